package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RouterConfig configures NewRouter.
type RouterConfig struct {
	// WebSocketPath is where renderers connect. Default: "/ws".
	WebSocketPath string

	// Gatherer serves /metrics. Nil disables the endpoint.
	Gatherer prometheus.Gatherer

	// Events serves /events. Nil disables the endpoint.
	Events *EventFeed

	// Logger logs plain HTTP requests. Upgrade requests are logged by the host.
	// Default: slog.Default() with component=http.
	Logger *slog.Logger
}

// NewRouter mounts h on a chi router next to the health, debug, metrics and
// event feed endpoints.
func NewRouter(h *Host, cfg RouterConfig) http.Handler {
	if cfg.WebSocketPath == "" {
		cfg.WebSocketPath = "/ws"
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default().With("component", "http")
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Handle(cfg.WebSocketPath, h)
	if cfg.Events != nil {
		r.Get("/events", cfg.Events.ServeHTTP)
	}

	r.Group(func(r chi.Router) {
		r.Use(requestLogger(cfg.Logger))

		r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
			status := http.StatusOK
			state := "ok"
			if h.isClosed() {
				status = http.StatusServiceUnavailable
				state = "closed"
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(status)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"status": state,
				"seq":    h.Seq(),
				"scopes": h.dom.LiveScopes(),
			})
		})

		r.Get("/debug/html", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = w.Write([]byte(h.HTML()))
		})

		if cfg.Gatherer != nil {
			r.Handle("/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
		}
	})
	return r
}

func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Debug("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()))
		})
	}
}
