// Package handler serves the local web console on top of the session
// manager and the resource client.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/ong-collab/collabctl/internal/adapter/gateway"
	"github.com/ong-collab/collabctl/internal/domain"
	"github.com/ong-collab/collabctl/internal/guard"
	"github.com/ong-collab/collabctl/internal/navigation"
	"github.com/ong-collab/collabctl/internal/session"
	"github.com/ong-collab/collabctl/internal/utils/sanitizer"
	"github.com/ong-collab/collabctl/internal/utils/validator"
)

// SessionService is the part of *session.Manager the console needs.
type SessionService interface {
	guard.SnapshotSource
	Login(ctx context.Context, creds domain.Credentials) (domain.Identity, error)
	Register(ctx context.Context, input domain.RegisterInput) (*domain.Profile, error)
	Logout(ctx context.Context) error
}

// Resources is the part of *gateway.ResourceClient the console needs.
type Resources interface {
	ListProjects(ctx context.Context, f gateway.ProjectFilter) ([]domain.Project, error)
	GetProject(ctx context.Context, id string) (*domain.Project, error)
	CreateProject(ctx context.Context, in domain.NewProject) (*domain.Project, error)
	ListOfertas(ctx context.Context, pedidoID string) ([]domain.Oferta, error)
	ListMyOfertas(ctx context.Context) ([]domain.Oferta, error)
	CreateOferta(ctx context.Context, pedidoID string, in domain.NewOferta) (*domain.Oferta, error)
	ListObservaciones(ctx context.Context, projectID string) ([]domain.Observacion, error)
	CreateObservacion(ctx context.Context, projectID string, in domain.NewObservacion) (*domain.Observacion, error)
	ResolveObservacion(ctx context.Context, id string, in domain.ResolveObservacion) (*domain.Observacion, error)
	DashboardMetrics(ctx context.Context) (*domain.DashboardMetrics, error)
}

// Console holds the console's handlers.
type Console struct {
	session   SessionService
	resources Resources
	sanitize  *sanitizer.Sanitizer
	validate  *validator.Validator
	now       func() time.Time
	logger    *slog.Logger
}

// ConsoleOptions configures NewConsole. Session and Resources are required.
type ConsoleOptions struct {
	Session   SessionService
	Resources Resources
	Sanitizer *sanitizer.Sanitizer
	Validator *validator.Validator
	Now       func() time.Time
	Logger    *slog.Logger
}

// NewConsole creates the console handlers.
func NewConsole(opts ConsoleOptions) *Console {
	if opts.Sanitizer == nil {
		opts.Sanitizer = sanitizer.New()
	}
	if opts.Validator == nil {
		opts.Validator = validator.New()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Console{
		session:   opts.Session,
		resources: opts.Resources,
		sanitize:  opts.Sanitizer,
		validate:  opts.Validator,
		now:       opts.Now,
		logger:    opts.Logger.With("component", "console"),
	}
}

type pageResponse struct {
	Page string `json:"page"`
}

type redirectResponse struct {
	Redirect string           `json:"redirect"`
	Identity *domain.Identity `json:"identity,omitempty"`
	Profile  *domain.Profile  `json:"profile,omitempty"`
}

type navItem struct {
	Label string `json:"label"`
	Route string `json:"route"`
}

type sessionResponse struct {
	State      string           `json:"state"`
	Identity   *domain.Identity `json:"identity,omitempty"`
	ExpiresAt  *time.Time       `json:"expires_at,omitempty"`
	Refreshing bool             `json:"refreshing"`
}

// LoginPage renders the login form placeholder.
func (h *Console) LoginPage(c echo.Context) error {
	return c.JSON(http.StatusOK, pageResponse{Page: "login"})
}

// RegisterPage renders the registration form placeholder.
func (h *Console) RegisterPage(c echo.Context) error {
	return c.JSON(http.StatusOK, pageResponse{Page: "register"})
}

// Login handles POST /login.
func (h *Console) Login(c echo.Context) error {
	var creds domain.Credentials
	if err := c.Bind(&creds); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	id, err := h.session.Login(c.Request().Context(), creds)
	if err != nil {
		return mapDomainError(err)
	}
	return c.JSON(http.StatusOK, redirectResponse{Redirect: domain.RouteDashboard, Identity: &id})
}

// Register handles POST /register. The role field of the body is ignored.
func (h *Console) Register(c echo.Context) error {
	var in domain.RegisterInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	profile, err := h.session.Register(c.Request().Context(), in)
	if err != nil {
		return mapDomainError(err)
	}
	return c.JSON(http.StatusCreated, redirectResponse{Redirect: domain.RouteLogin, Profile: profile})
}

// Logout handles POST /logout.
func (h *Console) Logout(c echo.Context) error {
	if err := h.session.Logout(c.Request().Context()); err != nil {
		// the in-memory session is gone even when storage failed
		h.logger.WarnContext(c.Request().Context(), "logout storage error", "error", err)
	}
	return c.JSON(http.StatusOK, redirectResponse{Redirect: domain.RouteLogin})
}

// Session reports the current session state. It is not guarded so that
// clients can poll it while the session is loading.
func (h *Console) Session(c echo.Context) error {
	snap := h.session.Snapshot()
	resp := sessionResponse{
		State:      snap.State.String(),
		Identity:   snap.Identity,
		Refreshing: snap.Refreshing,
	}
	if snap.State == session.StateAuthenticated && !snap.ExpiresAt.IsZero() {
		exp := snap.ExpiresAt
		resp.ExpiresAt = &exp
	}
	return c.JSON(http.StatusOK, resp)
}

// Navigation returns the menu for the current role.
func (h *Console) Navigation(c echo.Context) error {
	id, _ := guard.IdentityFrom(c)
	return c.JSON(http.StatusOK, menu(id.Role))
}

func menu(role domain.Role) []navItem {
	items := navigation.For(role)
	out := make([]navItem, 0, len(items))
	for _, it := range items {
		out = append(out, navItem{Label: it.Label, Route: it.Route})
	}
	return out
}

// Health handles GET /health.
func (h *Console) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "healthy",
		"session": h.session.Snapshot().State.String(),
	})
}
