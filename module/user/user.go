package user

import (
	"SMProject/middleware"
	"SMProject/module/user/model"
)

// RegisterRoutes mounts the account and profile endpoints.
// rt is expected to be rooted at /api.
func RegisterRoutes(rt *middleware.Router, h *Handler) {
	rt.POST("/auth/register", h.Register, middleware.RouteOpt{})
	rt.POST("/auth/login", h.Login, middleware.RouteOpt{})
	rt.GET("/auth/me", h.Me, middleware.RouteOpt{IsAuth: true})

	rt.GET("/users/musicians", h.ListMusicians, middleware.RouteOpt{})
	rt.GET("/users/musicians/:id", h.GetMusician, middleware.RouteOpt{})
	rt.POST("/users/musicians/profile", h.UpsertMusicianProfile, middleware.RouteOpt{Roles: []string{model.TypeMusician}})

	rt.GET("/users/clients", h.ListClients, middleware.RouteOpt{Roles: []string{model.TypeAdmin}})
	rt.GET("/users/clients/:id", h.GetClient, middleware.RouteOpt{IsAuth: true})
	rt.POST("/users/clients/profile", h.UpsertClientProfile, middleware.RouteOpt{Roles: []string{model.TypeClient}})
}
