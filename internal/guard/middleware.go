package guard

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ong-collab/collabctl/internal/domain"
	"github.com/ong-collab/collabctl/internal/session"
)

const identityKey = "identity"

// SnapshotSource is satisfied by *session.Manager.
type SnapshotSource interface {
	Snapshot() session.Snapshot
}

// PublicOnly applies the public guard to a route group.
func PublicOnly(src SnapshotSource) echo.MiddlewareFunc {
	return middleware(src, Public)
}

// ProtectedOnly applies the protected guard and exposes the identity to
// handlers through IdentityFrom.
func ProtectedOnly(src SnapshotSource) echo.MiddlewareFunc {
	return middleware(src, Protected)
}

func middleware(src SnapshotSource, decide func(session.Snapshot) Decision) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			snap := src.Snapshot()
			d := decide(snap)

			switch d.Kind {
			case Loading:
				c.Response().Header().Set("Retry-After", "1")
				return echo.NewHTTPError(http.StatusServiceUnavailable, "session is loading")
			case Redirect:
				return c.Redirect(http.StatusSeeOther, d.Location)
			}

			if snap.Identity != nil {
				c.Set(identityKey, *snap.Identity)
			}
			return next(c)
		}
	}
}

// IdentityFrom returns the identity stored by ProtectedOnly.
func IdentityFrom(c echo.Context) (domain.Identity, bool) {
	id, ok := c.Get(identityKey).(domain.Identity)
	return id, ok
}
