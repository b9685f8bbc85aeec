package handlers

import (
	"net/http"

	"github.com/tenantbook/reservations/libs/httpx"
)

// Register mounts the public and admin routes on mux. admin wraps the admin
// routes, typically with basic auth.
func Register(mux *http.ServeMux, public *AvailabilityHandler, adminH *AdminHandler, admin httpx.Middleware) {
	mux.HandleFunc("GET /api/v1/public/stores/{store}/availability", public.Week)
	mux.HandleFunc("GET /api/v1/public/stores/{store}/duration", public.Duration)
	mux.HandleFunc("GET /api/v1/public/stores/{store}/config", public.Config)
	mux.HandleFunc("POST /api/v1/public/stores/{store}/reservations", public.CreateReservation)

	mux.Handle("GET /api/v1/admin/stores", httpx.Chain(http.HandlerFunc(adminH.ListStores), admin))
	mux.Handle("GET /api/v1/admin/stores/{store}/config", httpx.Chain(http.HandlerFunc(adminH.GetConfig), admin))
	mux.Handle("PUT /api/v1/admin/stores/{store}/config", httpx.Chain(http.HandlerFunc(adminH.PutConfig), admin))
}
