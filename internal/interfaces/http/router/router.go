package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RouteRegistrar registers routes on the API group
type RouteRegistrar interface {
	RegisterRoutes(api *gin.RouterGroup)
}

// Router mounts registrars under /api/<version>
type Router struct {
	engine     *gin.Engine
	apiVersion string
	registrars []RouteRegistrar
}

// RouterOption configures a Router
type RouterOption func(*Router)

// WithAPIVersion sets the version segment of the API prefix
func WithAPIVersion(version string) RouterOption {
	return func(r *Router) { r.apiVersion = version }
}

func NewRouter(engine *gin.Engine, opts ...RouterOption) *Router {
	r := &Router{engine: engine, apiVersion: "v1"}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register queues registrars for Setup
func (r *Router) Register(registrars ...RouteRegistrar) *Router {
	r.registrars = append(r.registrars, registrars...)
	return r
}

// Setup mounts every registrar and returns the API group
func (r *Router) Setup() *gin.RouterGroup {
	api := r.engine.Group("/api/" + r.apiVersion)
	for _, reg := range r.registrars {
		reg.RegisterRoutes(api)
	}
	return api
}

// DomainGroup is one area of the store API (cart, checkout, dashboard...)
// mounted under its own prefix
type DomainGroup struct {
	prefix string
	routes []route
}

type route struct {
	method  string
	path    string
	handler gin.HandlerFunc
}

func NewDomainGroup(prefix string) *DomainGroup {
	return &DomainGroup{prefix: prefix}
}

func (dg *DomainGroup) handle(method, path string, h gin.HandlerFunc) *DomainGroup {
	dg.routes = append(dg.routes, route{method: method, path: path, handler: h})
	return dg
}

func (dg *DomainGroup) GET(path string, h gin.HandlerFunc) *DomainGroup {
	return dg.handle(http.MethodGet, path, h)
}

func (dg *DomainGroup) POST(path string, h gin.HandlerFunc) *DomainGroup {
	return dg.handle(http.MethodPost, path, h)
}

func (dg *DomainGroup) PUT(path string, h gin.HandlerFunc) *DomainGroup {
	return dg.handle(http.MethodPut, path, h)
}

func (dg *DomainGroup) DELETE(path string, h gin.HandlerFunc) *DomainGroup {
	return dg.handle(http.MethodDelete, path, h)
}

// RegisterRoutes implements RouteRegistrar
func (dg *DomainGroup) RegisterRoutes(api *gin.RouterGroup) {
	group := api.Group(dg.prefix)
	for _, r := range dg.routes {
		group.Handle(r.method, r.path, r.handler)
	}
}
