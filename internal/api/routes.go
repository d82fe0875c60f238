// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Mokrovi/backServ/internal/control/middleware"
)

func (s *Server) routes() chi.Router {
	r := s.newRouter()
	s.registerCommandRoutes(r)
	s.registerOperatorRoutes(r)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeText(w, http.StatusNotFound, "Not Found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeText(w, http.StatusMethodNotAllowed, "Method Not Allowed")
	})
	return r
}

func (s *Server) newRouter() chi.Router {
	return middleware.NewRouter(middleware.StackConfig{
		EnableMetrics:  true,
		TracingService: "backserv-api",
		EnableLogging:  true,

		EnableRateLimit:   s.cfg.API.RateLimitEnabled,
		RateLimitRequests: s.cfg.API.RateLimitRequests,
		RateLimitWindow:   s.cfg.API.RateLimitWindow,
	})
}

// registerCommandRoutes mounts the LAN command protocol.
func (s *Server) registerCommandRoutes(r chi.Router) {
	r.Post("/stream", s.handleStream)
	r.Get("/toggle-stream", s.handleToggleStream)
	r.Post("/trigger", s.handleTrigger)

	r.Get("/videos", s.handleVideos)
	r.Post("/play-animation", s.handlePlayAnimation)
	r.Post("/stop-animation", s.handleStopAnimation)
	r.Post("/animation-volume", s.handleAnimationVolume)
}

// registerOperatorRoutes mounts the health checks, the served contract and the
// generated operator routes (status and notifications).
func (s *Server) registerOperatorRoutes(r chi.Router) {
	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/internal/openapi.yaml", s.handleOpenAPI)

	HandlerWithOptions(s, ChiServerOptions{
		BaseRouter:       r,
		ErrorHandlerFunc: operatorBindError,
	})
}
