package project

import (
	"SMProject/middleware"
	usermodel "SMProject/module/user/model"
)

// RegisterRoutes mounts /projects on rt, which is rooted at /api.
func RegisterRoutes(rt *middleware.Router, h *Handler) {
	rt.GET("/projects", h.List, middleware.RouteOpt{Optional: true})
	rt.GET("/projects/:id", h.Get, middleware.RouteOpt{Optional: true})
	rt.POST("/projects", h.Create, middleware.RouteOpt{Roles: []string{usermodel.TypeClient}})
	rt.PUT("/projects/:id", h.Update, middleware.RouteOpt{IsAuth: true})
	rt.DELETE("/projects/:id", h.Delete, middleware.RouteOpt{IsAuth: true})
	rt.POST("/projects/:id/apply", h.Apply, middleware.RouteOpt{Roles: []string{usermodel.TypeMusician}})
	rt.PUT("/projects/:id/applications/:applicationId", h.UpdateApplication, middleware.RouteOpt{IsAuth: true})
}
