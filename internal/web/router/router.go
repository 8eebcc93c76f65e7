// Package router wraps chi with route introspection for the API.
package router

import (
	"net/http"
	"sort"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/resumate-app/resumate/internal/web/middleware"
	"github.com/resumate-app/resumate/internal/web/response"
)

// RouteInfo describes a registered route
type RouteInfo struct {
	Method    string   `json:"method"`
	Pattern   string   `json:"pattern"`
	Name      string   `json:"name,omitempty"`
	Params    []string `json:"params,omitempty"`
	Protected bool     `json:"protected"`
}

// registry is shared by a router and all of its groups
type registry struct {
	routes []*RouteInfo
}

// Router registers handlers on a chi mux and records them for listing
type Router struct {
	mux       chi.Router
	reg       *registry
	prefix    string
	protected bool
}

// New creates a router whose 404 and 405 replies are JSON
func New() *Router {
	mux := chi.NewRouter()
	mux.NotFound(func(w http.ResponseWriter, r *http.Request) {
		response.RenderNotFound(w, "Route not found")
	})
	mux.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		response.RenderMethodNotAllowed(w)
	})
	return &Router{mux: mux, reg: &registry{}}
}

// ServeHTTP implements http.Handler
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// Use appends middleware to every route of this router. It must be called
// before any route is registered.
func (r *Router) Use(middlewares ...middleware.Middleware) {
	for _, m := range middlewares {
		r.mux.Use(m)
	}
}

// Group mounts routes registered by fn under prefix with extra middleware.
// An empty prefix groups routes inline.
func (r *Router) Group(prefix string, fn func(*Router), middlewares ...middleware.Middleware) {
	setup := func(sub chi.Router) {
		for _, m := range middlewares {
			sub.Use(m)
		}
		fn(&Router{mux: sub, reg: r.reg, prefix: r.prefix + prefix, protected: r.protected})
	}
	if prefix == "" {
		r.mux.Group(setup)
		return
	}
	r.mux.Route(prefix, setup)
}

// Protected is like Group without a prefix; its routes are listed as
// requiring authentication
func (r *Router) Protected(fn func(*Router), middlewares ...middleware.Middleware) {
	r.mux.Group(func(sub chi.Router) {
		for _, m := range middlewares {
			sub.Use(m)
		}
		fn(&Router{mux: sub, reg: r.reg, prefix: r.prefix, protected: true})
	})
}

// With returns a router that applies middlewares to the routes registered
// on it only
func (r *Router) With(middlewares ...middleware.Middleware) *Router {
	chained := make([]func(http.Handler) http.Handler, len(middlewares))
	for i, m := range middlewares {
		chained[i] = m
	}
	return &Router{mux: r.mux.With(chained...), reg: r.reg, prefix: r.prefix, protected: r.protected}
}

// Get registers a GET route
func (r *Router) Get(pattern string, handler http.HandlerFunc) *RouteInfo {
	return r.handle(http.MethodGet, pattern, handler)
}

// Post registers a POST route
func (r *Router) Post(pattern string, handler http.HandlerFunc) *RouteInfo {
	return r.handle(http.MethodPost, pattern, handler)
}

// Put registers a PUT route
func (r *Router) Put(pattern string, handler http.HandlerFunc) *RouteInfo {
	return r.handle(http.MethodPut, pattern, handler)
}

// Patch registers a PATCH route
func (r *Router) Patch(pattern string, handler http.HandlerFunc) *RouteInfo {
	return r.handle(http.MethodPatch, pattern, handler)
}

// Delete registers a DELETE route
func (r *Router) Delete(pattern string, handler http.HandlerFunc) *RouteInfo {
	return r.handle(http.MethodDelete, pattern, handler)
}

func (r *Router) handle(method, pattern string, handler http.HandlerFunc) *RouteInfo {
	r.mux.Method(method, pattern, handler)

	full := r.prefix + pattern
	if full != "/" {
		full = strings.TrimSuffix(full, "/")
	}
	info := &RouteInfo{
		Method:    method,
		Pattern:   full,
		Params:    pathParams(full),
		Protected: r.protected,
	}
	r.reg.routes = append(r.reg.routes, info)
	return info
}

// Named sets a display name for the route
func (i *RouteInfo) Named(name string) *RouteInfo {
	i.Name = name
	return i
}

// Routes returns the registered routes ordered by pattern then method
func (r *Router) Routes() []RouteInfo {
	out := make([]RouteInfo, len(r.reg.routes))
	for i, info := range r.reg.routes {
		out[i] = *info
	}
	sort.SliceStable(out, func(a, b int) bool {
		if out[a].Pattern != out[b].Pattern {
			return out[a].Pattern < out[b].Pattern
		}
		return out[a].Method < out[b].Method
	})
	return out
}

func pathParams(pattern string) []string {
	var params []string
	for _, part := range strings.Split(pattern, "/") {
		if strings.HasPrefix(part, "{") && strings.HasSuffix(part, "}") {
			name, _, _ := strings.Cut(strings.Trim(part, "{}"), ":")
			params = append(params, name)
		}
	}
	return params
}
