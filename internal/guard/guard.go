// Package guard projects the session state onto route access decisions.
// Guards hold no rules of their own.
package guard

import (
	"github.com/ong-collab/collabctl/internal/domain"
	"github.com/ong-collab/collabctl/internal/session"
)

// Kind is what a guarded surface should do.
type Kind int

const (
	Loading Kind = iota
	Render
	Redirect
)

func (k Kind) String() string {
	switch k {
	case Loading:
		return "loading"
	case Render:
		return "render"
	case Redirect:
		return "redirect"
	default:
		return "unknown"
	}
}

// Decision is the outcome of a guard. Location is set for Redirect only.
type Decision struct {
	Kind     Kind
	Location string
}

// Public guards login and registration pages.
func Public(s session.Snapshot) Decision {
	switch s.State {
	case session.StateUninitialized:
		return Decision{Kind: Loading}
	case session.StateAuthenticated:
		return Decision{Kind: Redirect, Location: domain.RouteDashboard}
	default:
		return Decision{Kind: Render}
	}
}

// Protected guards the authenticated area.
func Protected(s session.Snapshot) Decision {
	switch s.State {
	case session.StateUninitialized:
		return Decision{Kind: Loading}
	case session.StateUnauthenticated:
		return Decision{Kind: Redirect, Location: domain.RouteLogin}
	default:
		return Decision{Kind: Render}
	}
}
