// cmd/server/server.go
package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/courtlyhq/courtly/internal/api"
	"github.com/courtlyhq/courtly/internal/api/bookings"
	"github.com/courtlyhq/courtly/internal/api/facilities"
	"github.com/courtlyhq/courtly/internal/api/search"
	"github.com/courtlyhq/courtly/internal/api/ws"
	"github.com/courtlyhq/courtly/internal/booking"
	"github.com/courtlyhq/courtly/internal/config"
	"github.com/courtlyhq/courtly/internal/db"
	"github.com/courtlyhq/courtly/internal/email"
	"github.com/courtlyhq/courtly/internal/fanout"
	"github.com/courtlyhq/courtly/internal/ratelimit"
)

func newServer(cfg *config.Config, database *db.DB, engine *booking.Engine, registry *fanout.Registry, hub *fanout.Hub, notifier *email.Service) *http.Server {
	facilities.InitHandlers(database.Queries)
	bookings.InitHandlers(engine, database.Queries, notifier, ratelimit.New(ratelimit.DefaultConfig()), registry)
	search.InitHandlers(database.Queries)
	ws.InitHandlers(hub)

	router := http.NewServeMux()
	registerRoutes(router)

	handler := api.ChainMiddleware(
		router,
		api.WithLogging,
		api.WithRecovery,
		api.WithRequestID,
		api.WithContentType,
	)

	return &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

func registerRoutes(mux *http.ServeMux) {
	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Facility management
	mux.HandleFunc("POST /api/v1/facilities", facilities.HandleFacilityCreate)
	mux.HandleFunc("GET /api/v1/facilities/{id}", facilities.HandleFacilityGet)
	mux.HandleFunc("POST /api/v1/facilities/{id}/courts", facilities.HandleCourtCreate)
	mux.HandleFunc("GET /api/v1/facilities/{id}/courts", facilities.HandleCourtList)
	mux.HandleFunc("POST /api/v1/facilities/{id}/time-slots", facilities.HandleTimeSlotCreate)
	mux.HandleFunc("GET /api/v1/facilities/{id}/slots", facilities.HandleSlotList)
	mux.HandleFunc("GET /api/v1/facilities/{id}/bookings", bookings.HandleFacilityBookingList)

	// Booking lifecycle
	mux.HandleFunc("POST /api/v1/bookings", bookings.HandleBookingCreate)
	mux.HandleFunc("GET /api/v1/bookings/{id}", bookings.HandleBookingGet)
	mux.HandleFunc("POST /api/v1/bookings/{id}/confirm", bookings.HandleBookingConfirm)
	mux.HandleFunc("POST /api/v1/bookings/{id}/cancel", bookings.HandleBookingCancel)
	mux.HandleFunc("POST /api/v1/bookings/{id}/complete", bookings.HandleBookingComplete)
	mux.HandleFunc("POST /api/v1/bookings/{id}/rating", bookings.HandleRatingCreate)

	// Player-facing search and aggregates
	mux.HandleFunc("GET /api/v1/facilities/search", search.HandleFacilitySearch)
	mux.HandleFunc("GET /api/v1/facilities/{id}/rating", search.HandleFacilityRating)

	// Live event stream
	mux.HandleFunc("GET /ws", ws.HandleSocket)
}
