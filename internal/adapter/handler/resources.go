package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/sync/errgroup"

	"github.com/ong-collab/collabctl/internal/adapter/gateway"
	"github.com/ong-collab/collabctl/internal/domain"
	"github.com/ong-collab/collabctl/internal/guard"
)

type dashboardResponse struct {
	Identity   domain.Identity          `json:"identity"`
	Navigation []navItem                `json:"navigation"`
	Metrics    *domain.DashboardMetrics `json:"metrics,omitempty"`
	Projects   []domain.Project         `json:"projects"`
	Ofertas    []domain.Oferta          `json:"ofertas,omitempty"`
}

type observacionView struct {
	domain.Observacion
	Overdue          bool  `json:"overdue"`
	RemainingSeconds int64 `json:"remaining_seconds"`
}

// Dashboard handles GET /dashboard. COUNCIL sees metrics and all projects;
// MEMBER sees their projects and offers.
func (h *Console) Dashboard(c echo.Context) error {
	id, _ := guard.IdentityFrom(c)
	resp := dashboardResponse{Identity: id, Navigation: menu(id.Role)}

	g, ctx := errgroup.WithContext(c.Request().Context())
	if id.Role == domain.RoleCouncil {
		g.Go(func() error {
			m, err := h.resources.DashboardMetrics(ctx)
			resp.Metrics = m
			return err
		})
		g.Go(func() error {
			p, err := h.resources.ListProjects(ctx, gateway.ProjectFilter{})
			resp.Projects = p
			return err
		})
	} else {
		g.Go(func() error {
			p, err := h.resources.ListProjects(ctx, gateway.ProjectFilter{Mine: true})
			resp.Projects = p
			return err
		})
		g.Go(func() error {
			o, err := h.resources.ListMyOfertas(ctx)
			resp.Ofertas = o
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return mapDomainError(err)
	}

	resp.Projects = h.cleanProjects(resp.Projects)
	resp.Ofertas = h.cleanOfertas(resp.Ofertas)
	if resp.Projects == nil {
		resp.Projects = []domain.Project{}
	}
	return c.JSON(http.StatusOK, resp)
}

// ListProjects handles GET /projects?estado=&mine=.
func (h *Console) ListProjects(c echo.Context) error {
	mine, _ := strconv.ParseBool(c.QueryParam("mine"))
	return h.listProjects(c, gateway.ProjectFilter{Estado: c.QueryParam("estado"), Mine: mine})
}

// ListMyProjects handles GET /projects/mine.
func (h *Console) ListMyProjects(c echo.Context) error {
	return h.listProjects(c, gateway.ProjectFilter{Estado: c.QueryParam("estado"), Mine: true})
}

func (h *Console) listProjects(c echo.Context, f gateway.ProjectFilter) error {
	projects, err := h.resources.ListProjects(c.Request().Context(), f)
	if err != nil {
		return mapDomainError(err)
	}
	return c.JSON(http.StatusOK, h.cleanProjects(projects))
}

// GetProject handles GET /projects/:id.
func (h *Console) GetProject(c echo.Context) error {
	p, err := h.resources.GetProject(c.Request().Context(), c.Param("id"))
	if err != nil {
		return mapDomainError(err)
	}
	if p == nil {
		return echo.NewHTTPError(http.StatusNotFound, "project not found")
	}
	return c.JSON(http.StatusOK, h.cleanProject(*p))
}

// CreateProject handles POST /projects.
func (h *Console) CreateProject(c echo.Context) error {
	var in domain.NewProject
	if err := h.bind(c, &in); err != nil {
		return err
	}
	p, err := h.resources.CreateProject(c.Request().Context(), in)
	if err != nil {
		return mapDomainError(err)
	}
	return c.JSON(http.StatusCreated, h.cleanProject(*p))
}

// ListOfertas handles GET /pedidos/:id/ofertas.
func (h *Console) ListOfertas(c echo.Context) error {
	ofertas, err := h.resources.ListOfertas(c.Request().Context(), c.Param("id"))
	if err != nil {
		return mapDomainError(err)
	}
	return c.JSON(http.StatusOK, h.cleanOfertas(ofertas))
}

// ListMyOfertas handles GET /ofertas/mine.
func (h *Console) ListMyOfertas(c echo.Context) error {
	ofertas, err := h.resources.ListMyOfertas(c.Request().Context())
	if err != nil {
		return mapDomainError(err)
	}
	return c.JSON(http.StatusOK, h.cleanOfertas(ofertas))
}

// CreateOferta handles POST /pedidos/:id/ofertas.
func (h *Console) CreateOferta(c echo.Context) error {
	var in domain.NewOferta
	if err := h.bind(c, &in); err != nil {
		return err
	}
	o, err := h.resources.CreateOferta(c.Request().Context(), c.Param("id"), in)
	if err != nil {
		return mapDomainError(err)
	}
	o.Descripcion = h.sanitize.HTML(o.Descripcion)
	return c.JSON(http.StatusCreated, o)
}

// ListObservaciones handles GET /observaciones?project=.
func (h *Console) ListObservaciones(c echo.Context) error {
	projectID := c.QueryParam("project")
	if projectID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "project query parameter is required")
	}
	obs, err := h.resources.ListObservaciones(c.Request().Context(), projectID)
	if err != nil {
		return mapDomainError(err)
	}

	now := h.now()
	out := make([]observacionView, 0, len(obs))
	for _, o := range obs {
		out = append(out, h.observacionView(o, now))
	}
	return c.JSON(http.StatusOK, out)
}

// CreateObservacion handles POST /projects/:id/observaciones.
func (h *Console) CreateObservacion(c echo.Context) error {
	var in domain.NewObservacion
	if err := h.bind(c, &in); err != nil {
		return err
	}
	o, err := h.resources.CreateObservacion(c.Request().Context(), c.Param("id"), in)
	if err != nil {
		return mapDomainError(err)
	}
	return c.JSON(http.StatusCreated, h.observacionView(*o, h.now()))
}

// ResolveObservacion handles POST /observaciones/:id/resolve.
func (h *Console) ResolveObservacion(c echo.Context) error {
	var in domain.ResolveObservacion
	if err := h.bind(c, &in); err != nil {
		return err
	}
	o, err := h.resources.ResolveObservacion(c.Request().Context(), c.Param("id"), in)
	if err != nil {
		return mapDomainError(err)
	}
	return c.JSON(http.StatusOK, h.observacionView(*o, h.now()))
}

// Metrics handles GET /metrics.
func (h *Console) Metrics(c echo.Context) error {
	m, err := h.resources.DashboardMetrics(c.Request().Context())
	if err != nil {
		return mapDomainError(err)
	}
	return c.JSON(http.StatusOK, m)
}

func (h *Console) bind(c echo.Context, dst any) error {
	if err := c.Bind(dst); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := h.validate.Validate(dst); err != nil {
		return mapDomainError(err)
	}
	return nil
}

func (h *Console) observacionView(o domain.Observacion, now time.Time) observacionView {
	o.Descripcion = h.sanitize.HTML(o.Descripcion)
	o.Respuesta = h.sanitize.HTML(o.Respuesta)
	return observacionView{
		Observacion:      o,
		Overdue:          o.Overdue(now),
		RemainingSeconds: int64(o.Remaining(now) / time.Second),
	}
}

// clean* return sanitized copies; the originals may be shared with the
// query cache.
func (h *Console) cleanProjects(ps []domain.Project) []domain.Project {
	if ps == nil {
		return nil
	}
	out := make([]domain.Project, len(ps))
	for i := range ps {
		out[i] = h.cleanProject(ps[i])
	}
	return out
}

func (h *Console) cleanProject(p domain.Project) domain.Project {
	p.Descripcion = h.sanitize.HTML(p.Descripcion)
	if p.Etapas != nil {
		etapas := make([]domain.Etapa, len(p.Etapas))
		copy(etapas, p.Etapas)
		for i := range etapas {
			etapas[i].Descripcion = h.sanitize.HTML(etapas[i].Descripcion)
		}
		p.Etapas = etapas
	}
	return p
}

func (h *Console) cleanOfertas(ofertas []domain.Oferta) []domain.Oferta {
	if ofertas == nil {
		return nil
	}
	out := make([]domain.Oferta, len(ofertas))
	for i, o := range ofertas {
		o.Descripcion = h.sanitize.HTML(o.Descripcion)
		out[i] = o
	}
	return out
}
