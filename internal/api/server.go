// Package api configures and exposes the status HTTP server: session state,
// recent scan history, Prometheus metrics and profiling endpoints for the
// scan engine.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"loyscan/internal/config"
	"loyscan/internal/history"
	"loyscan/pkg/controller"
	"loyscan/pkg/domain"
	"loyscan/pkg/logger"
)

// Options holds configuration for the status server.
// It is typically created from a config.Config via NewOptions.
// All durations are used to configure server timeouts, and zero values
// should be considered as using the defaults provided by net/http where applicable.
type Options struct {
	// Addr is the TCP address the server listens on, e.g. ":8080".
	Addr string
	// ReadTimeout is the maximum duration for reading the entire request, including the body.
	ReadTimeout time.Duration
	// ReadHeaderTimeout is the amount of time allowed to read request headers.
	ReadHeaderTimeout time.Duration
	// WriteTimeout is the maximum duration before timing out writes of the response.
	WriteTimeout time.Duration
	// IdleTimeout is the maximum amount of time to wait for the next request when keep-alives are enabled.
	IdleTimeout time.Duration
	// RequestTimeout is the global timeout applied via http.TimeoutHandler for handling requests.
	RequestTimeout time.Duration
	// MaxHeaderBytes controls the maximum number of bytes the server
	// will read parsing the request header's keys and values, including the request line.
	MaxHeaderBytes int
	// MetricsPath is the HTTP path at which Prometheus metrics are served.
	MetricsPath string
	// RecentLimit caps how many history records the session endpoint returns.
	RecentLimit int
}

// NewOptions constructs an Options value from the provided application configuration.
func NewOptions(cfg *config.Config) Options {
	return Options{
		Addr:              cfg.HTTP.Addr,
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
		IdleTimeout:       cfg.HTTP.IdleTimeout,
		RequestTimeout:    cfg.HTTP.RequestTimeout,
		MaxHeaderBytes:    cfg.HTTP.MaxHeaderBytes,
		MetricsPath:       cfg.HTTP.MetricsPath,
		RecentLimit:       cfg.History.RecentLimit,
	}
}

// SessionStatus is the read-only view of a scan session the server exposes.
// *session.Controller satisfies it.
type SessionStatus interface {
	ID() domain.SessionID
	State() domain.State
}

// Deps are the runtime dependencies of the status server.
type Deps struct {
	// Session is the scan session to report on.
	Session SessionStatus
	// History serves recent scan records. Optional.
	History history.Store
	// Gatherer serves the metrics endpoint.
	Gatherer prometheus.Gatherer
}

// sessionResponse is the JSON body of the session endpoint.
type sessionResponse struct {
	SessionID   string           `json:"sessionId"`
	State       domain.State     `json:"state"`
	RecentScans []history.Record `json:"recentScans"`
}

// NewServer wires up and returns a configured *http.Server using the provided Options.
// It sets up:
// - Prometheus metrics endpoint (MetricsPath)
// - health and session status endpoints
// - pprof endpoints for profiling
// It also wraps the mux with CORS and logging middlewares and applies a request timeout.
func NewServer(deps Deps, opts Options) *http.Server {
	mux := http.NewServeMux()

	// prometheus metrics server
	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	mux.Handle(opts.MetricsPath, promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("GET /v1/session", func(w http.ResponseWriter, r *http.Request) {
		resp := sessionResponse{
			RecentScans: []history.Record{},
		}
		if deps.Session != nil {
			resp.SessionID = deps.Session.ID().String()
			resp.State = deps.Session.State()
		}
		if deps.History != nil {
			records, err := deps.History.Recent(r.Context(), opts.RecentLimit)
			if err != nil {
				logger.Error(r.Context(), "could not read scan history", zap.Error(err))
				http.Error(w, `{"error":"could not read scan history"}`, http.StatusInternalServerError)

				return
			}
			resp.RecentScans = records
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	})

	// pprof
	mux.Handle("/debug/pprof/", controller.PprofMux())

	// cors
	handler := controller.WithCORS(mux)

	// logger
	handler = controller.WithLogger(handler)

	return &http.Server{
		Addr:              opts.Addr,
		Handler:           http.TimeoutHandler(handler, opts.RequestTimeout, `{"error":"request timed out"}`),
		ReadTimeout:       opts.ReadTimeout,
		ReadHeaderTimeout: opts.ReadHeaderTimeout,
		WriteTimeout:      opts.WriteTimeout,
		IdleTimeout:       opts.IdleTimeout,
		MaxHeaderBytes:    opts.MaxHeaderBytes,
	}
}
