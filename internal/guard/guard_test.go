package guard

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"

	"github.com/ong-collab/collabctl/internal/domain"
	"github.com/ong-collab/collabctl/internal/session"
)

var (
	uninitialized   = session.Snapshot{State: session.StateUninitialized}
	unauthenticated = session.Snapshot{State: session.StateUnauthenticated}
	authenticated   = session.Snapshot{
		State:    session.StateAuthenticated,
		Identity: &domain.Identity{ID: "u1", Email: "a@b.com", Role: domain.RoleCouncil},
	}
)

func TestPublic(t *testing.T) {
	assert.Equal(t, Decision{Kind: Loading}, Public(uninitialized))
	assert.Equal(t, Decision{Kind: Render}, Public(unauthenticated))
	assert.Equal(t, Decision{Kind: Redirect, Location: "/dashboard"}, Public(authenticated))
}

func TestProtected(t *testing.T) {
	assert.Equal(t, Decision{Kind: Loading}, Protected(uninitialized))
	assert.Equal(t, Decision{Kind: Redirect, Location: "/login"}, Protected(unauthenticated))
	assert.Equal(t, Decision{Kind: Render}, Protected(authenticated))
}

func TestGuards_RefreshingIsInvisible(t *testing.T) {
	refreshing := authenticated
	refreshing.Refreshing = true
	assert.Equal(t, Render, Protected(refreshing).Kind)
	assert.Equal(t, Redirect, Public(refreshing).Kind)
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "loading", Loading.String())
	assert.Equal(t, "render", Render.String())
	assert.Equal(t, "redirect", Redirect.String())
	assert.Equal(t, "unknown", Kind(9).String())
}

type fixedSource session.Snapshot

func (f fixedSource) Snapshot() session.Snapshot { return session.Snapshot(f) }

func serve(mw echo.MiddlewareFunc) *httptest.ResponseRecorder {
	e := echo.New()
	e.GET("/page", func(c echo.Context) error {
		if id, ok := IdentityFrom(c); ok {
			return c.String(http.StatusOK, id.Email)
		}
		return c.String(http.StatusOK, "anonymous")
	}, mw)

	req := httptest.NewRequest(http.MethodGet, "/page", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestProtectedOnly(t *testing.T) {
	tests := []struct {
		name         string
		snap         session.Snapshot
		wantStatus   int
		wantLocation string
		wantBody     string
	}{
		{"loading", uninitialized, http.StatusServiceUnavailable, "", ""},
		{"redirects to login", unauthenticated, http.StatusSeeOther, "/login", ""},
		{"renders with identity", authenticated, http.StatusOK, "", "a@b.com"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(ProtectedOnly(fixedSource(tt.snap)))

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantLocation, rec.Header().Get(echo.HeaderLocation))
			if tt.wantBody != "" {
				assert.Equal(t, tt.wantBody, rec.Body.String())
			}
			if tt.wantStatus == http.StatusServiceUnavailable {
				assert.Equal(t, "1", rec.Header().Get("Retry-After"))
			}
		})
	}
}

func TestPublicOnly(t *testing.T) {
	rec := serve(PublicOnly(fixedSource(authenticated)))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/dashboard", rec.Header().Get(echo.HeaderLocation))

	rec = serve(PublicOnly(fixedSource(unauthenticated)))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "anonymous", rec.Body.String())

	rec = serve(PublicOnly(fixedSource(uninitialized)))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
