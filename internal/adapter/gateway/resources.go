package gateway

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/ong-collab/collabctl/internal/domain"
	"github.com/ong-collab/collabctl/internal/infrastructure/cache"
)

// ProjectFilter narrows GET /projects.
type ProjectFilter struct {
	Estado string
	Mine   bool
}

func (f ProjectFilter) query() url.Values {
	q := url.Values{}
	if f.Estado != "" {
		q.Set("estado", f.Estado)
	}
	if f.Mine {
		q.Set("mine", boolQuery(true))
	}
	return q
}

func (f ProjectFilter) cacheKey() string {
	key := "projects"
	if f.Mine {
		key = "projects:mine"
	}
	if f.Estado != "" {
		key += "?estado=" + f.Estado
	}
	return key
}

// ResourceClient reads and writes platform resources with the session's
// bearer token. Reads go through the query cache; writes invalidate it.
type ResourceClient struct {
	c     *Client
	cache *cache.QueryCache
	group singleflight.Group
	// epoch separates in-flight reads of one session from the next.
	epoch atomic.Uint64
}

// NewResourceClient wires a Client to a token source and an optional cache.
func NewResourceClient(c *Client, tokens domain.TokenSource, qc *cache.QueryCache) *ResourceClient {
	return &ResourceClient{c: c.WithTokenSource(tokens), cache: qc}
}

// Cache exposes the query cache so callers can purge it on logout.
func (r *ResourceClient) Cache() *cache.QueryCache {
	return r.cache
}

// PurgeCache drops every cached query. Reads still in flight finish for
// their original callers only; later callers never join or see them.
func (r *ResourceClient) PurgeCache() {
	r.epoch.Add(1)
	if r.cache != nil {
		r.cache.Purge()
	}
}

// query deduplicates identical in-flight reads and caches the result.
func query[T any](ctx context.Context, r *ResourceClient, key, op, path string, q url.Values) (T, error) {
	flight := strconv.FormatUint(r.epoch.Load(), 10) + "/" + key
	v, err, _ := r.group.Do(flight, func() (any, error) {
		return cache.Fetch(r.cache, key, func() (T, error) {
			var out T
			err := r.c.doJSON(ctx, op, http.MethodGet, path, q, nil, &out)
			return out, err
		})
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}

func (r *ResourceClient) invalidate(keys ...string) {
	if r.cache != nil {
		r.cache.Invalidate(keys...)
	}
}

// ListProjects returns projects matching the filter.
func (r *ResourceClient) ListProjects(ctx context.Context, f ProjectFilter) ([]domain.Project, error) {
	return query[[]domain.Project](ctx, r, f.cacheKey(), "projects.list", "/projects", f.query())
}

// GetProject returns one project with its stages and pedidos.
func (r *ResourceClient) GetProject(ctx context.Context, id string) (*domain.Project, error) {
	return query[*domain.Project](ctx, r, "project:"+id, "projects.get", escape("projects", id), nil)
}

// CreateProject publishes a new project.
func (r *ResourceClient) CreateProject(ctx context.Context, in domain.NewProject) (*domain.Project, error) {
	var out domain.Project
	if err := r.c.doJSON(ctx, "projects.create", http.MethodPost, "/projects", nil, in, &out); err != nil {
		return nil, err
	}
	r.invalidate("projects", "metrics")
	return &out, nil
}

// ListOfertas returns the offers submitted against a pedido.
func (r *ResourceClient) ListOfertas(ctx context.Context, pedidoID string) ([]domain.Oferta, error) {
	return query[[]domain.Oferta](ctx, r, "ofertas:"+pedidoID, "ofertas.list", escape("pedidos", pedidoID, "ofertas"), nil)
}

// ListMyOfertas returns the offers submitted by the current user.
func (r *ResourceClient) ListMyOfertas(ctx context.Context) ([]domain.Oferta, error) {
	return query[[]domain.Oferta](ctx, r, "ofertas:mine", "ofertas.mine", "/ofertas/mine", nil)
}

// CreateOferta submits an offer against a pedido.
func (r *ResourceClient) CreateOferta(ctx context.Context, pedidoID string, in domain.NewOferta) (*domain.Oferta, error) {
	var out domain.Oferta
	if err := r.c.doJSON(ctx, "ofertas.create", http.MethodPost, escape("pedidos", pedidoID, "ofertas"), nil, in, &out); err != nil {
		return nil, err
	}
	r.invalidate("ofertas:"+pedidoID, "ofertas:mine", "project", "projects", "metrics")
	return &out, nil
}

// ListObservaciones returns the observations raised on a project.
func (r *ResourceClient) ListObservaciones(ctx context.Context, projectID string) ([]domain.Observacion, error) {
	return query[[]domain.Observacion](ctx, r, "observaciones:"+projectID, "observaciones.list",
		escape("projects", projectID, "observaciones"), nil)
}

// CreateObservacion raises an observation on a project.
func (r *ResourceClient) CreateObservacion(ctx context.Context, projectID string, in domain.NewObservacion) (*domain.Observacion, error) {
	var out domain.Observacion
	if err := r.c.doJSON(ctx, "observaciones.create", http.MethodPost,
		escape("projects", projectID, "observaciones"), nil, in, &out); err != nil {
		return nil, err
	}
	r.invalidate("observaciones:"+projectID, "metrics")
	return &out, nil
}

// ResolveObservacion answers an open observation.
func (r *ResourceClient) ResolveObservacion(ctx context.Context, id string, in domain.ResolveObservacion) (*domain.Observacion, error) {
	var out domain.Observacion
	if err := r.c.doJSON(ctx, "observaciones.resolve", http.MethodPost,
		escape("observaciones", id, "resolve"), nil, in, &out); err != nil {
		return nil, err
	}
	r.invalidate("observaciones", "metrics")
	return &out, nil
}

// DashboardMetrics returns the COUNCIL metrics view.
func (r *ResourceClient) DashboardMetrics(ctx context.Context) (*domain.DashboardMetrics, error) {
	return query[*domain.DashboardMetrics](ctx, r, "metrics:dashboard", "metrics.dashboard", "/metrics/dashboard", nil)
}
