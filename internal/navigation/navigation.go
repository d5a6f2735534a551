// Package navigation holds the role-gated menu and the Navigator used to
// report session redirects.
//
// Role gating here is presentation only. The backend authorises every call.
package navigation

import (
	"slices"
	"sync"

	"github.com/ong-collab/collabctl/internal/domain"
)

// Item is one entry of the main menu.
type Item struct {
	Label   string
	Route   string
	Command string
	Roles   []domain.Role
}

var (
	member  = []domain.Role{domain.RoleMember}
	council = []domain.Role{domain.RoleCouncil}
	both    = []domain.Role{domain.RoleMember, domain.RoleCouncil}
)

var items = []Item{
	{Label: "Dashboard", Route: domain.RouteDashboard, Command: "collabctl whoami", Roles: both},
	{Label: "Mis proyectos", Route: "/projects/mine", Command: "collabctl projects list --mine", Roles: member},
	{Label: "Explorar proyectos", Route: "/projects", Command: "collabctl projects list", Roles: member},
	{Label: "Mis ofertas", Route: "/ofertas/mine", Command: "collabctl offers list --mine", Roles: member},
	{Label: "Métricas", Route: "/metrics", Command: "collabctl metrics", Roles: council},
	{Label: "Proyectos", Route: "/projects", Command: "collabctl projects list", Roles: council},
	{Label: "Observaciones", Route: "/observaciones", Command: "collabctl observations list", Roles: both},
}

// For returns the menu visible to role, in display order. Unknown roles get nothing.
func For(role domain.Role) []Item {
	var out []Item
	for _, it := range items {
		if slices.Contains(it.Roles, role) {
			out = append(out, it)
		}
	}
	return out
}

// Allowed reports whether route appears in role's menu.
func Allowed(role domain.Role, route string) bool {
	for _, it := range For(role) {
		if it.Route == route {
			return true
		}
	}
	return false
}

// Recorder is a domain.Navigator that remembers every redirect and
// optionally forwards it.
type Recorder struct {
	mu      sync.Mutex
	routes  []string
	forward func(route string)
}

// NewRecorder creates a Recorder. forward may be nil.
func NewRecorder(forward func(route string)) *Recorder {
	return &Recorder{forward: forward}
}

func (r *Recorder) Navigate(route string) {
	r.mu.Lock()
	r.routes = append(r.routes, route)
	fwd := r.forward
	r.mu.Unlock()

	if fwd != nil {
		fwd(route)
	}
}

// Routes returns a copy of the recorded redirects.
func (r *Recorder) Routes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.routes)
}

// Last returns the most recent redirect, or "".
func (r *Recorder) Last() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.routes) == 0 {
		return ""
	}
	return r.routes[len(r.routes)-1]
}

// Reset forgets recorded redirects.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.routes = nil
	r.mu.Unlock()
}
