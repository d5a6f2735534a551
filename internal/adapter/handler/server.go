package handler

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"golang.org/x/sync/errgroup"

	"github.com/ong-collab/collabctl/internal/domain"
	"github.com/ong-collab/collabctl/internal/guard"
)

const shutdownTimeout = 10 * time.Second

// RouterOptions configures NewRouter.
type RouterOptions struct {
	Console *Console
	// Tracing names the otelecho service; empty disables request spans.
	Tracing string
	Logger  *slog.Logger
}

// NewRouter registers the console routes.
func NewRouter(opts RouterOptions) *echo.Echo {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	h := opts.Console

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = errorHandler

	if opts.Tracing != "" {
		e.Use(otelecho.Middleware(opts.Tracing))
	}
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(requestLogger(logger))
	e.Use(securityHeaders())

	e.GET("/health", h.Health)
	e.GET("/session", h.Session)
	e.GET("/-/metrics", echo.WrapHandler(promhttp.Handler()))

	// Guards are route middleware rather than groups so that unknown paths
	// stay plain 404s.
	public := guard.PublicOnly(h.session)
	e.GET(domain.RouteLogin, h.LoginPage, public)
	e.POST(domain.RouteLogin, h.Login, public)
	e.GET(domain.RouteRegister, h.RegisterPage, public)
	e.POST(domain.RouteRegister, h.Register, public)

	protected := guard.ProtectedOnly(h.session)
	member := requireRole(domain.RoleMember)
	council := requireRole(domain.RoleCouncil)

	e.POST("/logout", h.Logout, protected)
	e.GET(domain.RouteDashboard, h.Dashboard, protected)
	e.GET("/navigation", h.Navigation, protected)

	e.GET("/projects", h.ListProjects, protected)
	e.GET("/projects/mine", h.ListMyProjects, protected, member)
	e.GET("/projects/:id", h.GetProject, protected)
	e.POST("/projects", h.CreateProject, protected, member)

	e.GET("/pedidos/:id/ofertas", h.ListOfertas, protected)
	e.POST("/pedidos/:id/ofertas", h.CreateOferta, protected, member)
	e.GET("/ofertas/mine", h.ListMyOfertas, protected, member)

	e.GET("/observaciones", h.ListObservaciones, protected)
	e.POST("/projects/:id/observaciones", h.CreateObservacion, protected, council)
	e.POST("/observaciones/:id/resolve", h.ResolveObservacion, protected, member)

	e.GET("/metrics", h.Metrics, protected, council)

	return e
}

// Serve listens on addr and runs until ctx is cancelled. background runs
// alongside the server for its whole lifetime (the passive expiry loop).
func Serve(ctx context.Context, e *echo.Echo, addr string, background func(context.Context) error, logger *slog.Logger) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return ServeListener(ctx, e, ln, background, logger)
}

// ServeListener is Serve on an existing listener.
func ServeListener(ctx context.Context, e *echo.Echo, ln net.Listener, background func(context.Context) error, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	e.Listener = ln

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.InfoContext(gctx, "console listening", "address", ln.Addr().String())
		if err := e.Start(ln.Addr().String()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if background != nil {
		g.Go(func() error {
			return background(gctx)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.InfoContext(context.WithoutCancel(gctx), "shutting down console")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
		defer cancel()
		return e.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
