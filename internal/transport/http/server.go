// Package http provides the REST transport of the notifyd dev host.
//
// Routes (Go 1.22+ method-qualified patterns):
//
//	GET    /health
//	GET    /players/{player}/notifications
//	POST   /players/{player}/notifications
//	POST   /players/{player}/notifications/{id}/dismiss
//	POST   /players/{player}/notifications/{id}/activate
//	GET    /players/{player}/notifications/{id}/dismissible
//	GET    /players/{player}/blocker
//	POST   /players/{player}/reconnect
//	GET    /players/{player}/ws
//	POST   /turn/end
//	POST   /save
//	GET    /metrics
package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/sneh-joshi/notifyring/internal/metrics"
)

// Options configures the Server.
type Options struct {
	// HostID is reported by /health.
	HostID string
	// APIKey, when set, is required in the X-Api-Key header.
	APIKey string
	// MaxRate and Burst feed the per-IP rate limiter.
	MaxRate float64
	Burst   int
	// WS serves /players/{player}/ws when non-nil.
	WS http.Handler
	// Metrics serves /metrics and counts requests when non-nil.
	Metrics *metrics.Registry
	Logger  *slog.Logger
}

// Server wraps the stdlib HTTP server with notifyd route wiring.
type Server struct {
	inner *http.Server
}

// New builds a Server around h.
// The caller is responsible for calling ListenAndServe / Shutdown.
func New(h Hub, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.MaxRate <= 0 {
		opts.MaxRate = 200
	}
	if opts.Burst <= 0 {
		opts.Burst = 400
	}
	hd := &Handler{hub: h, hostID: opts.HostID, started: time.Now()}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", hd.health)

	// Notifications
	mux.HandleFunc("GET /players/{player}/notifications", hd.listNotifications)
	mux.HandleFunc("POST /players/{player}/notifications", hd.addNotification)
	mux.HandleFunc("POST /players/{player}/notifications/{id}/dismiss", hd.dismissNotification)
	mux.HandleFunc("POST /players/{player}/notifications/{id}/activate", hd.activateNotification)
	mux.HandleFunc("GET /players/{player}/notifications/{id}/dismissible", hd.mayUserDismiss)

	// Turn and session
	mux.HandleFunc("GET /players/{player}/blocker", hd.blocker)
	mux.HandleFunc("POST /players/{player}/reconnect", hd.reconnect)
	mux.HandleFunc("POST /turn/end", hd.endTurn)
	mux.HandleFunc("POST /save", hd.save)

	if opts.WS != nil {
		mux.Handle("GET /players/{player}/ws", opts.WS)
	}
	if opts.Metrics != nil {
		mux.Handle("GET /metrics", opts.Metrics.Handler())
	}

	handler := chain(mux,
		CORSMiddleware,
		MaxBodyMiddleware,
		LoggingMiddleware(opts.Logger, opts.Metrics),
		RateLimitMiddleware(opts.MaxRate, opts.Burst),
		AuthMiddleware(opts.APIKey),
	)

	return &Server{
		inner: &http.Server{
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
	}
}

// Handler returns the composed http.Handler (useful for testing).
func (s *Server) Handler() http.Handler { return s.inner.Handler }

// ListenAndServe starts the server on the given address (e.g. ":8080").
// It returns when the server stops or encounters an error.
func (s *Server) ListenAndServe(addr string) error {
	s.inner.Addr = addr
	return s.inner.ListenAndServe()
}

// Shutdown gracefully stops the server, waiting up to ctx's deadline for
// in-flight requests to finish. Hijacked websocket connections are not
// waited for.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.inner.Shutdown(ctx)
}
