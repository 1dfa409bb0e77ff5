package router

import (
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"
)

// API mounts route areas under /api/<version>
type API struct {
	engine  *gin.Engine
	version string
	common  []gin.HandlerFunc
	areas   []*Area
}

// New returns an API for the given version ("v1" when empty)
func New(engine *gin.Engine, version string) *API {
	if version == "" {
		version = "v1"
	}
	return &API{engine: engine, version: version}
}

// BasePath is the prefix every area is mounted below
func (a *API) BasePath() string { return "/api/" + a.version }

// Use adds middleware for API routes only; routes the engine serves
// directly, such as /health, are not affected.
func (a *API) Use(mw ...gin.HandlerFunc) *API {
	a.common = append(a.common, withoutNil(mw)...)
	return a
}

func (a *API) Add(areas ...*Area) *API {
	a.areas = append(a.areas, areas...)
	return a
}

// Mount registers everything added so far on the engine
func (a *API) Mount() {
	base := a.engine.Group(a.BasePath(), a.common...)
	for _, area := range a.areas {
		area.attach(base)
	}
}

// Area is a path prefix with its own guard chain. Children inherit the
// parent's guards and append their own.
type Area struct {
	path     string
	guards   []gin.HandlerFunc
	routes   []route
	children []*Area
}

type route struct {
	method string
	path   string
	chain  []gin.HandlerFunc
}

func NewArea(path string) *Area {
	return &Area{path: path}
}

// With appends guards. Nil entries are dropped so optional middleware can
// be passed as is.
func (a *Area) With(guards ...gin.HandlerFunc) *Area {
	a.guards = append(a.guards, withoutNil(guards)...)
	return a
}

// Sub creates a nested area
func (a *Area) Sub(path string) *Area {
	child := NewArea(path)
	a.children = append(a.children, child)
	return child
}

func (a *Area) Handle(method, path string, chain ...gin.HandlerFunc) *Area {
	a.routes = append(a.routes, route{method: method, path: path, chain: withoutNil(chain)})
	return a
}

func (a *Area) GET(path string, chain ...gin.HandlerFunc) *Area {
	return a.Handle(http.MethodGet, path, chain...)
}

func (a *Area) POST(path string, chain ...gin.HandlerFunc) *Area {
	return a.Handle(http.MethodPost, path, chain...)
}

func (a *Area) PUT(path string, chain ...gin.HandlerFunc) *Area {
	return a.Handle(http.MethodPut, path, chain...)
}

func (a *Area) PATCH(path string, chain ...gin.HandlerFunc) *Area {
	return a.Handle(http.MethodPatch, path, chain...)
}

func (a *Area) DELETE(path string, chain ...gin.HandlerFunc) *Area {
	return a.Handle(http.MethodDelete, path, chain...)
}

func (a *Area) attach(parent *gin.RouterGroup) {
	g := parent.Group(a.path, a.guards...)
	for _, r := range a.routes {
		g.Handle(r.method, r.path, r.chain...)
	}
	for _, child := range a.children {
		child.attach(g)
	}
}

func withoutNil(hs []gin.HandlerFunc) []gin.HandlerFunc {
	return slices.DeleteFunc(slices.Clone(hs), func(h gin.HandlerFunc) bool { return h == nil })
}
