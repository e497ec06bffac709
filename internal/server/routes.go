package server

import (
	"github.com/danielgtaylor/huma/v2"
	"github.com/go-chi/chi/v5"

	v1 "github.com/repik/lavanderia/internal/api/v1"
	"github.com/repik/lavanderia/internal/api/ws"
)

func registerPublicRoutes(api huma.API, svc Services, db, redis v1.Pinger) {
	v1.RegisterAuthRoutes(api, svc.Auth)
	v1.RegisterHealthRoutes(api, db, redis)
}

func registerAPIRoutes(api huma.API, svc Services) {
	v1.RegisterSessionRoutes(api)
	v1.RegisterOrderRoutes(api, svc.Orders)
	v1.RegisterClientRoutes(api, svc.Clients)
	v1.RegisterReportRoutes(api, svc.Reports)
}

func registerOwnerRoutes(api huma.API, svc Services) {
	v1.RegisterOwnerReportRoutes(api, svc.Reports)
}

func registerWSRoutes(r chi.Router, hub *ws.Hub) {
	r.Get("/orders", hub.ServeOrders)
}
