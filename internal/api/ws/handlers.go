// internal/api/ws/handlers.go
package ws

import (
	"net/http"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/courtlyhq/courtly/internal/fanout"
)

var (
	hub     *fanout.Hub
	hubOnce sync.Once
)

// InitHandlers must be called during server startup before handling requests.
func InitHandlers(h *fanout.Hub) {
	if h == nil {
		return
	}
	hubOnce.Do(func() {
		hub = h
	})
}

// GET /ws
func HandleSocket(w http.ResponseWriter, r *http.Request) {
	if hub == nil {
		log.Ctx(r.Context()).Error().Msg("Fanout hub not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	hub.ServeWS(w, r)
}
