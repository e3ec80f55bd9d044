package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"hideseek/internal/server"
	"hideseek/internal/session"
)

// SetupRoutes builds the admin/WS router around an already-started game
// server.
func SetupRoutes(srv *server.Server, sess *session.Session, log *zap.SugaredLogger) http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", Healthz)
	r.Get("/status", Status(sess))
	r.Get("/metrics", MetricsDump(srv))
	r.Get("/ws", WS(srv, log))
	return r
}
