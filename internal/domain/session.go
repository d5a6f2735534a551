package domain

import (
	"fmt"
	"time"
)

// Role is the closed set of platform roles.
type Role string

const (
	RoleMember  Role = "MEMBER"
	RoleCouncil Role = "COUNCIL"
)

// ParseRole accepts only the known role values.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleMember, RoleCouncil:
		return Role(s), nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

// Fixed storage keys of the persisted session.
const (
	KeyAccessToken  = "access_token"
	KeyRefreshToken = "refresh_token"
	KeyUser         = "user"
)

// SessionKeys lists every key the session owns, in write order.
var SessionKeys = []string{KeyAccessToken, KeyRefreshToken, KeyUser}

// Tokens is the bearer credential pair issued by the auth service.
type Tokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

// Claims is the decoded, unverified access token payload.
type Claims struct {
	Subject   string
	Email     string
	Role      Role
	ExpiresAt time.Time
}

// Profile is the cached user profile. Name and organisation fields only
// exist here; the access token never carries them.
type Profile struct {
	ID        string     `json:"id"`
	Email     string     `json:"email"`
	Nombre    string     `json:"nombre"`
	Apellido  string     `json:"apellido"`
	Ong       string     `json:"ong"`
	Role      Role       `json:"role"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// Identity is the authenticated user as seen by the client.
type Identity struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Role     Role   `json:"role"`
	Nombre   string `json:"nombre"`
	Apellido string `json:"apellido"`
	Ong      string `json:"ong"`
}

// DisplayName returns "Nombre Apellido", falling back to the email.
func (i Identity) DisplayName() string {
	switch {
	case i.Nombre != "" && i.Apellido != "":
		return i.Nombre + " " + i.Apellido
	case i.Nombre != "":
		return i.Nombre
	default:
		return i.Email
	}
}

// Profile converts the identity back into its cacheable form.
func (i Identity) Profile() Profile {
	return Profile{
		ID:       i.ID,
		Email:    i.Email,
		Nombre:   i.Nombre,
		Apellido: i.Apellido,
		Ong:      i.Ong,
		Role:     i.Role,
	}
}

// MergeIdentity derives an identity from token claims and a cached profile.
// The token always wins for id, email and role. The profile contributes
// nombre, apellido and ong, and only when it belongs to the same subject.
func MergeIdentity(c Claims, cached *Profile) Identity {
	id := Identity{
		ID:    c.Subject,
		Email: c.Email,
		Role:  c.Role,
	}
	if cached != nil && cached.ID == c.Subject {
		id.Nombre = cached.Nombre
		id.Apellido = cached.Apellido
		id.Ong = cached.Ong
	}
	return id
}

// Credentials is the login form.
type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// RegisterInput is the registration form. Role is always overwritten with
// RoleMember before it leaves the client.
type RegisterInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Nombre   string `json:"nombre" validate:"required,max=100"`
	Apellido string `json:"apellido" validate:"required,max=100"`
	Ong      string `json:"ong" validate:"required,max=200"`
	Role     Role   `json:"role" validate:"required,platform_role"`
}

// Client-side routes used for navigation after session transitions.
const (
	RouteLogin     = "/login"
	RouteRegister  = "/register"
	RouteDashboard = "/dashboard"
)
