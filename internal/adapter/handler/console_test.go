package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ong-collab/collabctl/internal/adapter/gateway"
	"github.com/ong-collab/collabctl/internal/domain"
	"github.com/ong-collab/collabctl/internal/session"
)

var fixedNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

type fakeSession struct {
	mu         sync.Mutex
	snap       session.Snapshot
	loginErr   error
	registered *domain.RegisterInput
	logouts    int
}

func (f *fakeSession) Snapshot() session.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snap
}

func (f *fakeSession) Login(_ context.Context, creds domain.Credentials) (domain.Identity, error) {
	if f.loginErr != nil {
		return domain.Identity{}, f.loginErr
	}
	return domain.Identity{ID: "u1", Email: creds.Email, Role: domain.RoleMember}, nil
}

func (f *fakeSession) Register(_ context.Context, in domain.RegisterInput) (*domain.Profile, error) {
	in.Role = domain.RoleMember
	f.registered = &in
	return &domain.Profile{ID: "u9", Email: in.Email, Role: in.Role}, nil
}

func (f *fakeSession) Logout(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logouts++
	f.snap = session.Snapshot{State: session.StateUnauthenticated}
	return nil
}

type fakeResources struct {
	mu            sync.Mutex
	projects      []domain.Project
	ofertas       []domain.Oferta
	observaciones []domain.Observacion
	metrics       *domain.DashboardMetrics
	err           error
	filters       []gateway.ProjectFilter
	created       *domain.NewProject
}

func (f *fakeResources) ListProjects(_ context.Context, filter gateway.ProjectFilter) ([]domain.Project, error) {
	f.mu.Lock()
	f.filters = append(f.filters, filter)
	f.mu.Unlock()
	return f.projects, f.err
}

func (f *fakeResources) GetProject(_ context.Context, id string) (*domain.Project, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, p := range f.projects {
		if p.ID == id {
			return &p, nil
		}
	}
	return nil, &gateway.APIError{Op: "projects.get", StatusCode: 404, Message: "project not found", Err: domain.ErrNotFound}
}

func (f *fakeResources) CreateProject(_ context.Context, in domain.NewProject) (*domain.Project, error) {
	f.created = &in
	return &domain.Project{ID: "p-new", Nombre: in.Nombre, Descripcion: in.Descripcion, Estado: domain.ProjectPlanning}, f.err
}

func (f *fakeResources) ListOfertas(context.Context, string) ([]domain.Oferta, error) {
	return f.ofertas, f.err
}

func (f *fakeResources) ListMyOfertas(context.Context) ([]domain.Oferta, error) {
	return f.ofertas, f.err
}

func (f *fakeResources) CreateOferta(_ context.Context, pedidoID string, in domain.NewOferta) (*domain.Oferta, error) {
	return &domain.Oferta{ID: "o-new", PedidoID: pedidoID, Descripcion: in.Descripcion, Estado: domain.OfferPending}, f.err
}

func (f *fakeResources) ListObservaciones(context.Context, string) ([]domain.Observacion, error) {
	return f.observaciones, f.err
}

func (f *fakeResources) CreateObservacion(_ context.Context, projectID string, in domain.NewObservacion) (*domain.Observacion, error) {
	return &domain.Observacion{ID: "ob-new", ProyectoID: projectID, Descripcion: in.Descripcion,
		Estado: domain.ObservationOpen, FechaLimite: fixedNow.Add(5 * 24 * time.Hour)}, f.err
}

func (f *fakeResources) ResolveObservacion(_ context.Context, id string, in domain.ResolveObservacion) (*domain.Observacion, error) {
	resolved := fixedNow
	return &domain.Observacion{ID: id, Respuesta: in.Respuesta, Estado: domain.ObservationClosed,
		FechaLimite: fixedNow.Add(time.Hour), FechaResolucion: &resolved}, f.err
}

func (f *fakeResources) DashboardMetrics(context.Context) (*domain.DashboardMetrics, error) {
	return f.metrics, f.err
}

func authed(role domain.Role) session.Snapshot {
	return session.Snapshot{
		State:     session.StateAuthenticated,
		Identity:  &domain.Identity{ID: "u1", Email: "ana@ong.org", Role: role, Nombre: "Ana"},
		ExpiresAt: fixedNow.Add(time.Hour),
	}
}

type testConsole struct {
	e         *echo.Echo
	session   *fakeSession
	resources *fakeResources
}

func newTestConsole(snap session.Snapshot) *testConsole {
	sess := &fakeSession{snap: snap}
	res := &fakeResources{}
	console := NewConsole(ConsoleOptions{
		Session:   sess,
		Resources: res,
		Now:       func() time.Time { return fixedNow },
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	e := NewRouter(RouterOptions{Console: console, Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
	return &testConsole{e: e, session: sess, resources: res}
}

func (tc *testConsole) do(method, path, body string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	tc.e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestHealth(t *testing.T) {
	tc := newTestConsole(session.Snapshot{State: session.StateUninitialized})

	rec := tc.do(http.MethodGet, "/health", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decode[map[string]string](t, rec)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "uninitialized", body["session"])
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))
}

func TestPublicRoutes(t *testing.T) {
	tests := []struct {
		name         string
		snap         session.Snapshot
		wantStatus   int
		wantLocation string
	}{
		{"loading", session.Snapshot{State: session.StateUninitialized}, http.StatusServiceUnavailable, ""},
		{"renders for anonymous", session.Snapshot{State: session.StateUnauthenticated}, http.StatusOK, ""},
		{"redirects authenticated to dashboard", authed(domain.RoleMember), http.StatusSeeOther, "/dashboard"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tc := newTestConsole(tt.snap)

			for _, path := range []string{"/login", "/register"} {
				rec := tc.do(http.MethodGet, path, "")
				assert.Equal(t, tt.wantStatus, rec.Code, path)
				assert.Equal(t, tt.wantLocation, rec.Header().Get("Location"), path)
			}
		})
	}
}

func TestLoadingIsJSONError(t *testing.T) {
	tc := newTestConsole(session.Snapshot{State: session.StateUninitialized})

	rec := tc.do(http.MethodGet, "/dashboard", "")

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
	assert.Equal(t, "session is loading", decode[errorResponse](t, rec).Error)
}

func TestLogin(t *testing.T) {
	tc := newTestConsole(session.Snapshot{State: session.StateUnauthenticated})

	rec := tc.do(http.MethodPost, "/login", `{"email":"ana@ong.org","password":"secret1"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decode[redirectResponse](t, rec)
	assert.Equal(t, "/dashboard", body.Redirect)
	require.NotNil(t, body.Identity)
	assert.Equal(t, "ana@ong.org", body.Identity.Email)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	tc := newTestConsole(session.Snapshot{State: session.StateUnauthenticated})
	tc.session.loginErr = &gateway.APIError{Op: "auth.login", StatusCode: 401, Message: "Invalid credentials", Err: domain.ErrInvalidCredentials}

	rec := tc.do(http.MethodPost, "/login", `{"email":"ana@ong.org","password":"wrong12"}`)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid credentials", decode[errorResponse](t, rec).Error)
}

func TestLogin_BadBody(t *testing.T) {
	tc := newTestConsole(session.Snapshot{State: session.StateUnauthenticated})

	rec := tc.do(http.MethodPost, "/login", `{"email":`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRegister_ForcesMember(t *testing.T) {
	tc := newTestConsole(session.Snapshot{State: session.StateUnauthenticated})

	rec := tc.do(http.MethodPost, "/register",
		`{"email":"b@ong.org","password":"secret1","nombre":"B","apellido":"C","ong":"Techo","role":"COUNCIL"}`)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "/login", decode[redirectResponse](t, rec).Redirect)
	require.NotNil(t, tc.session.registered)
	assert.Equal(t, domain.RoleMember, tc.session.registered.Role)
}

func TestLogout(t *testing.T) {
	tc := newTestConsole(authed(domain.RoleMember))

	rec := tc.do(http.MethodPost, "/logout", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "/login", decode[redirectResponse](t, rec).Redirect)
	assert.Equal(t, 1, tc.session.logouts)

	rec = tc.do(http.MethodGet, "/dashboard", "")
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
}

func TestSession(t *testing.T) {
	tc := newTestConsole(authed(domain.RoleCouncil))

	rec := tc.do(http.MethodGet, "/session", "")

	body := decode[sessionResponse](t, rec)
	assert.Equal(t, "authenticated", body.State)
	require.NotNil(t, body.ExpiresAt)
	assert.True(t, body.ExpiresAt.Equal(fixedNow.Add(time.Hour)))
}

func TestDashboard_Member(t *testing.T) {
	tc := newTestConsole(authed(domain.RoleMember))
	tc.resources.projects = []domain.Project{{ID: "p1", Nombre: "Escuela"}}
	tc.resources.ofertas = []domain.Oferta{{ID: "o1"}}

	rec := tc.do(http.MethodGet, "/dashboard", "")

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[dashboardResponse](t, rec)
	assert.Nil(t, body.Metrics)
	assert.Len(t, body.Projects, 1)
	assert.Len(t, body.Ofertas, 1)
	assert.Equal(t, []gateway.ProjectFilter{{Mine: true}}, tc.resources.filters)
	assert.Equal(t, "Mis proyectos", body.Navigation[1].Label)
}

func TestDashboard_Council(t *testing.T) {
	tc := newTestConsole(authed(domain.RoleCouncil))
	tc.resources.metrics = &domain.DashboardMetrics{ProyectosTotales: 3}

	rec := tc.do(http.MethodGet, "/dashboard", "")

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[dashboardResponse](t, rec)
	require.NotNil(t, body.Metrics)
	assert.Equal(t, 3, body.Metrics.ProyectosTotales)
	assert.NotNil(t, body.Projects)
	assert.Equal(t, []gateway.ProjectFilter{{}}, tc.resources.filters)
}

func TestDashboard_BackendDown(t *testing.T) {
	tc := newTestConsole(authed(domain.RoleCouncil))
	tc.resources.err = domain.ErrNetwork

	rec := tc.do(http.MethodGet, "/dashboard", "")

	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestRoleGating(t *testing.T) {
	tests := []struct {
		name   string
		role   domain.Role
		method string
		path   string
		body   string
		want   int
	}{
		{"member cannot read metrics", domain.RoleMember, http.MethodGet, "/metrics", "", http.StatusForbidden},
		{"council reads metrics", domain.RoleCouncil, http.MethodGet, "/metrics", "", http.StatusOK},
		{"council cannot create projects", domain.RoleCouncil, http.MethodPost, "/projects", `{}`, http.StatusForbidden},
		{"member cannot raise observations", domain.RoleMember, http.MethodPost, "/projects/p1/observaciones", `{"descripcion":"x"}`, http.StatusForbidden},
		{"council raises observations", domain.RoleCouncil, http.MethodPost, "/projects/p1/observaciones", `{"descripcion":"x"}`, http.StatusCreated},
		{"council cannot resolve", domain.RoleCouncil, http.MethodPost, "/observaciones/ob1/resolve", `{"respuesta":"ok"}`, http.StatusForbidden},
		{"member resolves", domain.RoleMember, http.MethodPost, "/observaciones/ob1/resolve", `{"respuesta":"ok"}`, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tc := newTestConsole(authed(tt.role))
			tc.resources.metrics = &domain.DashboardMetrics{}

			rec := tc.do(tt.method, tt.path, tt.body)

			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
}

func TestCreateProject_Validation(t *testing.T) {
	tc := newTestConsole(authed(domain.RoleMember))

	rec := tc.do(http.MethodPost, "/projects", `{"nombre":"Escuela","descripcion":"Aulas","etapas":[]}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode[errorResponse](t, rec).Error, "etapas")
	assert.Nil(t, tc.resources.created)
}

func TestCreateProject(t *testing.T) {
	tc := newTestConsole(authed(domain.RoleMember))

	rec := tc.do(http.MethodPost, "/projects", `{"nombre":"Escuela","descripcion":"Aulas","etapas":[
		{"nombre":"Obra","fecha_inicio":"2025-07-01T00:00:00Z","fecha_fin":"2025-09-01T00:00:00Z",
		 "pedidos":[{"tipo":"DINERO","descripcion":"Cemento","cantidad":100}]}]}`)

	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.NotNil(t, tc.resources.created)
	assert.Len(t, tc.resources.created.Etapas, 1)
}

func TestProjects_SanitizedCopies(t *testing.T) {
	tc := newTestConsole(authed(domain.RoleMember))
	raw := `<p>Aulas</p><script>alert(1)</script>`
	tc.resources.projects = []domain.Project{{ID: "p1", Descripcion: raw, Etapas: []domain.Etapa{{Descripcion: raw}}}}

	rec := tc.do(http.MethodGet, "/projects?estado=EJECUCION&mine=true", "")

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[[]domain.Project](t, rec)
	assert.NotContains(t, body[0].Descripcion, "<script>")
	assert.Contains(t, body[0].Descripcion, "Aulas")
	assert.NotContains(t, body[0].Etapas[0].Descripcion, "<script>")
	assert.Equal(t, raw, tc.resources.projects[0].Descripcion)
	assert.Equal(t, raw, tc.resources.projects[0].Etapas[0].Descripcion)
	assert.Equal(t, []gateway.ProjectFilter{{Estado: "EJECUCION", Mine: true}}, tc.resources.filters)
}

func TestGetProject_NotFound(t *testing.T) {
	tc := newTestConsole(authed(domain.RoleMember))

	rec := tc.do(http.MethodGet, "/projects/nope", "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "project not found", decode[errorResponse](t, rec).Error)
}

func TestListObservaciones(t *testing.T) {
	tc := newTestConsole(authed(domain.RoleCouncil))
	tc.resources.observaciones = []domain.Observacion{
		{ID: "ob1", Estado: domain.ObservationOpen, FechaLimite: fixedNow.Add(-time.Hour)},
		{ID: "ob2", Estado: domain.ObservationOpen, FechaLimite: fixedNow.Add(2 * time.Hour)},
	}

	rec := tc.do(http.MethodGet, "/observaciones?project=p1", "")

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[[]observacionView](t, rec)
	require.Len(t, body, 2)
	assert.True(t, body[0].Overdue)
	assert.Equal(t, int64(-3600), body[0].RemainingSeconds)
	assert.False(t, body[1].Overdue)
	assert.Equal(t, int64(7200), body[1].RemainingSeconds)
}

func TestListObservaciones_RequiresProject(t *testing.T) {
	tc := newTestConsole(authed(domain.RoleCouncil))

	rec := tc.do(http.MethodGet, "/observaciones", "")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUnknownRoute(t *testing.T) {
	tc := newTestConsole(session.Snapshot{State: session.StateUnauthenticated})

	rec := tc.do(http.MethodGet, "/nope", "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Not Found", decode[errorResponse](t, rec).Error)
}

func TestServeListener_StopsOnCancel(t *testing.T) {
	tc := newTestConsole(session.Snapshot{State: session.StateUnauthenticated})
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	started := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- ServeListener(ctx, tc.e, ln, func(ctx context.Context) error {
			close(started)
			<-ctx.Done()
			return nil
		}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	}()

	<-started
	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/health")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
