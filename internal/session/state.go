package session

import (
	"time"

	"github.com/ong-collab/collabctl/internal/domain"
)

// State is the client-perceived session state.
type State int

const (
	StateUninitialized State = iota
	StateUnauthenticated
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateUnauthenticated:
		return "unauthenticated"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// Snapshot is an immutable view of the session. Identity is nil unless the
// state is StateAuthenticated.
type Snapshot struct {
	State      State
	Identity   *domain.Identity
	ExpiresAt  time.Time
	Refreshing bool
}

// Authenticated reports whether the snapshot carries an identity.
func (s Snapshot) Authenticated() bool {
	return s.State == StateAuthenticated && s.Identity != nil
}

// Role returns the identity's role, or "" when unauthenticated.
func (s Snapshot) Role() domain.Role {
	if s.Identity == nil {
		return ""
	}
	return s.Identity.Role
}
