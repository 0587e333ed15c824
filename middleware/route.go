package middleware

import (
	midsec "SMProject/middleware/security"

	"github.com/gin-gonic/gin"
)

// RouteOpt picks the guards placed in front of a handler.
type RouteOpt struct {
	IsAuth bool
	// Optional attaches the caller when a token is present.
	Optional bool
	Roles    []string
}

// Router registers routes with the auth middleware their RouteOpt asks for.
type Router struct {
	r    gin.IRoutes
	auth *midsec.Options
}

func NewRouter(r gin.IRoutes, auth *midsec.Options) *Router {
	return &Router{r: r, auth: auth}
}

func (rt *Router) chain(h gin.HandlerFunc, opt RouteOpt) []gin.HandlerFunc {
	var hs []gin.HandlerFunc
	switch {
	case opt.IsAuth || len(opt.Roles) > 0:
		hs = append(hs, midsec.Middleware(rt.auth))
		if len(opt.Roles) > 0 {
			hs = append(hs, midsec.RequireRole(opt.Roles...))
		}
	case opt.Optional:
		hs = append(hs, midsec.Optional(rt.auth))
	}
	return append(hs, h)
}

func (rt *Router) POST(path string, h gin.HandlerFunc, opt RouteOpt) {
	rt.r.POST(path, rt.chain(h, opt)...)
}

func (rt *Router) GET(path string, h gin.HandlerFunc, opt RouteOpt) {
	rt.r.GET(path, rt.chain(h, opt)...)
}

func (rt *Router) PUT(path string, h gin.HandlerFunc, opt RouteOpt) {
	rt.r.PUT(path, rt.chain(h, opt)...)
}

func (rt *Router) DELETE(path string, h gin.HandlerFunc, opt RouteOpt) {
	rt.r.DELETE(path, rt.chain(h, opt)...)
}
