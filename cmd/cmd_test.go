package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"

	"github.com/ong-collab/collabctl/internal/config"
	"github.com/ong-collab/collabctl/internal/domain"
	"github.com/ong-collab/collabctl/internal/infrastructure/storage"
	"github.com/ong-collab/collabctl/internal/infrastructure/token"
	"github.com/ong-collab/collabctl/internal/infrastructure/token/tokentest"
)

type user struct {
	profile  domain.Profile
	password string
}

var users = map[string]user{
	"ana@techo.org": {
		profile:  domain.Profile{ID: "u1", Email: "ana@techo.org", Nombre: "Ana", Apellido: "Paz", Ong: "Techo", Role: domain.RoleMember},
		password: "secret1",
	},
	"consejo@plataforma.org": {
		profile:  domain.Profile{ID: "c1", Email: "consejo@plataforma.org", Nombre: "Consejo", Role: domain.RoleCouncil},
		password: "secret1",
	},
}

// backend is a fake platform API.
type backend struct {
	t   *testing.T
	srv *httptest.Server

	mu             sync.Mutex
	refreshes      int
	refreshStatus  int
	registered     []domain.RegisterInput
	projectQueries []string
	observaciones  []domain.Observacion
}

func newBackend(t *testing.T) *backend {
	t.Helper()
	b := &backend{t: t}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login", b.login)
	mux.HandleFunc("POST /auth/register", b.register)
	mux.HandleFunc("POST /auth/refresh", b.refresh)
	mux.HandleFunc("GET /projects", b.authed(b.listProjects))
	mux.HandleFunc("GET /projects/{id}", b.authed(b.getProject))
	mux.HandleFunc("POST /projects", b.authed(b.createProject))
	mux.HandleFunc("GET /projects/{id}/observaciones", b.authed(b.listObservaciones))
	mux.HandleFunc("POST /pedidos/{id}/ofertas", b.authed(b.createOferta))
	mux.HandleFunc("GET /metrics/dashboard", b.authed(b.metrics))

	b.srv = httptest.NewServer(mux)
	t.Cleanup(b.srv.Close)
	return b
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (b *backend) tokens(p domain.Profile) map[string]any {
	return map[string]any{
		"access_token":  tokentest.Access(b.t, p.ID, p.Email, string(p.Role), time.Now().Add(time.Hour)),
		"refresh_token": tokentest.Refresh(b.t, p.ID, time.Now().Add(24*time.Hour)),
		"token_type":    "Bearer",
		"user":          p,
	}
}

func (b *backend) login(w http.ResponseWriter, r *http.Request) {
	var creds domain.Credentials
	_ = json.NewDecoder(r.Body).Decode(&creds)
	u, ok := users[creds.Email]
	if !ok || u.password != creds.Password {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Invalid credentials"})
		return
	}
	writeJSON(w, http.StatusOK, b.tokens(u.profile))
}

func (b *backend) register(w http.ResponseWriter, r *http.Request) {
	var in domain.RegisterInput
	_ = json.NewDecoder(r.Body).Decode(&in)
	b.mu.Lock()
	b.registered = append(b.registered, in)
	b.mu.Unlock()
	if _, taken := users[in.Email]; taken {
		writeJSON(w, http.StatusConflict, map[string]string{"message": "Email already registered"})
		return
	}
	writeJSON(w, http.StatusCreated, domain.Profile{ID: "u9", Email: in.Email, Nombre: in.Nombre, Role: in.Role})
}

func (b *backend) refresh(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	b.refreshes++
	status := b.refreshStatus
	b.mu.Unlock()
	if status != 0 {
		writeJSON(w, status, map[string]string{"message": "Refresh token revoked"})
		return
	}
	writeJSON(w, http.StatusOK, b.tokens(users["ana@techo.org"].profile))
}

// authed rejects requests without a decodable bearer token and passes the
// caller's claims on.
func (b *backend) authed(next func(http.ResponseWriter, *http.Request, domain.Claims)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Unauthorized"})
			return
		}
		claims, err := token.NewDecoder().Decode(raw)
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Unauthorized"})
			return
		}
		next(w, r, claims)
	}
}

var fixtureProject = domain.Project{
	ID: "p1", Nombre: "Escuela rural", Ong: "Techo", Estado: domain.ProjectExecution,
	Descripcion: "<p>Construcción de <b>aulas</b></p>",
	Etapas: []domain.Etapa{{
		ID: "e1", Nombre: "Cimientos", Estado: domain.StageWaiting,
		Pedidos: []domain.Pedido{{ID: "pd1", Tipo: "MATERIALES", Descripcion: "Cemento", Cantidad: 50, Unidad: "bolsas", Estado: "ABIERTO"}},
	}},
}

func (b *backend) listProjects(w http.ResponseWriter, r *http.Request, _ domain.Claims) {
	b.mu.Lock()
	b.projectQueries = append(b.projectQueries, r.URL.RawQuery)
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, []domain.Project{fixtureProject})
}

func (b *backend) getProject(w http.ResponseWriter, r *http.Request, _ domain.Claims) {
	if r.PathValue("id") != fixtureProject.ID {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Project not found"})
		return
	}
	writeJSON(w, http.StatusOK, fixtureProject)
}

func (b *backend) createProject(w http.ResponseWriter, r *http.Request, c domain.Claims) {
	var in domain.NewProject
	_ = json.NewDecoder(r.Body).Decode(&in)
	writeJSON(w, http.StatusCreated, domain.Project{ID: "p2", Nombre: in.Nombre, OwnerID: c.Subject, Estado: domain.ProjectPlanning})
}

func (b *backend) listObservaciones(w http.ResponseWriter, r *http.Request, _ domain.Claims) {
	b.mu.Lock()
	defer b.mu.Unlock()
	writeJSON(w, http.StatusOK, b.observaciones)
}

func (b *backend) createOferta(w http.ResponseWriter, r *http.Request, c domain.Claims) {
	var in domain.NewOferta
	_ = json.NewDecoder(r.Body).Decode(&in)
	writeJSON(w, http.StatusCreated, domain.Oferta{ID: "o1", PedidoID: r.PathValue("id"), UserID: c.Subject,
		Descripcion: in.Descripcion, Estado: domain.OfferPending})
}

func (b *backend) metrics(w http.ResponseWriter, r *http.Request, c domain.Claims) {
	if c.Role != domain.RoleCouncil {
		writeJSON(w, http.StatusForbidden, map[string]string{"message": "Only council members can view metrics"})
		return
	}
	writeJSON(w, http.StatusOK, domain.DashboardMetrics{
		ProyectosTotales: 4, ProyectosPorEstado: map[string]int{"EJECUCION": 3, "PLANIFICACION": 1},
		PedidosTotales: 10, PedidosCubiertos: 4, ObservacionesVencidas: 1,
	})
}

// setupTest points the CLI at b with a fresh file store.
func setupTest(t *testing.T, b *backend) {
	t.Helper()
	cfg = config.Default()
	cfg.API.BaseURL = b.srv.URL
	cfg.API.RateLimit = 0
	cfg.Session.Store = config.StoreFile
	cfg.Session.Dir = t.TempDir()
	cfg.Output.Colors = false
	cfg.Logging.Level = "error"

	cfgFile, apiURL, colorMode = "", "", "auto"
	verbose, quiet = false, false
	resetFlags(rootCmd)
	t.Cleanup(func() { cfg = nil })
}

func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

type result struct {
	stdout string
	stderr string
	err    error
}

func (r result) exitCode() int {
	errBuf := new(bytes.Buffer)
	rootCmd.SetErr(errBuf)
	return HandleError(r.err)
}

func execute(t *testing.T, stdin string, args ...string) result {
	t.Helper()
	resetFlags(rootCmd)

	out, errOut := new(bytes.Buffer), new(bytes.Buffer)
	rootCmd.SetOut(out)
	rootCmd.SetErr(errOut)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)

	err := rootCmd.ExecuteContext(context.Background())
	return result{stdout: out.String(), stderr: errOut.String(), err: err}
}

func seedSession(t *testing.T, access, refresh string, profile *domain.Profile) {
	t.Helper()
	store, err := storage.NewFileStore(cfg.Session.Dir, nil)
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, store.Set(ctx, domain.KeyAccessToken, access))
	require.NoError(t, store.Set(ctx, domain.KeyRefreshToken, refresh))
	if profile != nil {
		raw, err := json.Marshal(profile)
		require.NoError(t, err)
		require.NoError(t, store.Set(ctx, domain.KeyUser, string(raw)))
	}
}

func storedKeys(t *testing.T) map[string]string {
	t.Helper()
	store, err := storage.NewFileStore(cfg.Session.Dir, nil)
	require.NoError(t, err)
	out := map[string]string{}
	for _, k := range domain.SessionKeys {
		if v, err := store.Get(context.Background(), k); err == nil {
			out[k] = v
		}
	}
	return out
}

func loginAs(t *testing.T, email string) {
	t.Helper()
	res := execute(t, "", "login", "--email", email, "--password", "secret1")
	require.NoError(t, res.err, res.stderr)
}
