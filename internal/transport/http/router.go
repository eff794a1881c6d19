// Package http assembles the service's HTTP surface: the global middleware
// stack, every domain handler and the operational endpoints.
package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"namemint/internal/platform/middleware"
)

// RouteRegistrar is implemented by every domain handler.
type RouteRegistrar interface {
	Register(r chi.Router)
}

// NewRouter builds the chi router with the shared middleware stack and mounts
// the given handlers. validator may be nil in tests, which leaves every
// request anonymous.
func NewRouter(logger *slog.Logger, validator middleware.Validator, handlers ...RouteRegistrar) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.Logger(logger))
	if validator != nil {
		r.Use(middleware.Identity(validator, logger))
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	for _, h := range handlers {
		h.Register(r)
	}
	return r
}
