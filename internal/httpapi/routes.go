package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/Pamplemouss/eorguessr-backend/internal/hub"
	"github.com/Pamplemouss/eorguessr-backend/internal/ws"
)

func SetupRoutes(h *hub.Hub, defaults Defaults, history RoundHistory, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// Public routes
	r.Post("/sessions", CreateSession(h, defaults, logger))
	r.Get("/sessions", ListSessions(h))
	r.Get("/sessions/{code}/rounds", SessionRounds(history, logger))
	r.Get("/healthz", Healthz)
	r.Get("/ws", ws.Handler(h, logger))
	return r
}
