package server

import (
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"auraroll/internal/handlers"
	"auraroll/internal/rewards"
)

// RegisterRoutes registers all application routes.
func (s *Server) RegisterRoutes(roller handlers.Roller, table *rewards.Table) {
	rollHandler := handlers.NewRollHandler(roller)
	probeHandler := handlers.NewProbeHandler(table)

	s.App.Post("/roll-aura", rollHandler.Roll)

	s.App.Get("/healthz", probeHandler.Liveness)
	s.App.Get("/readyz", probeHandler.Readiness)
	s.App.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
}
