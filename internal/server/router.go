// Package server wires the library, relay and download handlers into HTTP bindings.
package server

import (
	"net/http"

	"tubeshelf/internal/apperrors"
	"tubeshelf/internal/library"
	"tubeshelf/internal/relay"
	"tubeshelf/internal/ytdlp"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Mode selects which binding the router exposes.
type Mode int

const (
	// ModeServe is the local development server: static files, audio,
	// relay and optional local download.
	ModeServe Mode = iota
	// ModeProxy is the remote binding: relay and the placeholder download API.
	ModeProxy
)

// String returns the mode name.
func (m Mode) String() string {
	if m == ModeProxy {
		return "proxy"
	}
	return "serve"
}

// Deps are the components behind the routes.
type Deps struct {
	Mode Mode
	// Library serves the web root. Required in ModeServe.
	Library *library.Library
	Relay   *relay.Relay
	// Fetcher enables POST /download in ModeServe when set.
	Fetcher *ytdlp.Fetcher
	// AccessLog receives one event per request. Nil disables access logs.
	AccessLog *zerolog.Logger
}

// NewRouter returns a http Handler.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(requestID)
	r.Use(cors)
	r.Use(accessLog(d.AccessLog))
	r.Use(observe)
	r.Use(middleware.Recoverer)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		apperrors.WriteMessage(w, http.StatusNotFound, "Not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		apperrors.WriteMessage(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	r.Handle("/metrics", promhttp.Handler())

	// --- API Routes ---
	r.Route("/api", func(r chi.Router) {
		if d.Relay != nil {
			r.Method(http.MethodGet, "/proxy", d.Relay)
			r.Method(http.MethodHead, "/proxy", d.Relay)
		}
		r.Get("/download", handleAPIHealth)
		r.Post("/download", handleAPIDownload)
	})

	if d.Mode == ModeServe && d.Library != nil {
		if d.Fetcher != nil {
			r.Post("/download", handleLocalDownload(d.Fetcher))
		}

		// --- Static Frontend ---
		r.Method(http.MethodGet, "/*", d.Library)
		r.Method(http.MethodHead, "/*", d.Library)
	}

	return r
}
