package server

import (
	"github.com/go-chi/chi/v5"

	"github.com/finsight/finsight/internal/auth"
	"github.com/finsight/finsight/internal/server/handlers"
)

// registerRoutes registers all HTTP routes
func (s *Server) registerRoutes(deps Deps) {
	health := deps.Health
	if health == nil {
		health = handlers.NewHealthManager(handlers.AppVersion)
	}
	s.router.Get("/health", health.HealthHandler)
	s.router.Get("/health/live", health.LivenessHandler)
	s.router.Get("/health/ready", health.ReadinessHandler)

	s.router.Get("/version", handlers.VersionHandler)
	s.router.Get("/metrics", MetricsHandler)

	authHandler := &handlers.AuthHandler{Store: deps.Users, Issuer: deps.Issuer}
	analysis := &handlers.AnalysisHandler{Engine: deps.Engine, News: deps.News, Stocks: deps.Stocks}
	strategies := &handlers.StrategiesHandler{Store: deps.Strategies}
	history := &handlers.HistoryHandler{Store: deps.History}

	s.router.Route("/api", func(r chi.Router) {
		r.Post("/auth/register", authHandler.Register)
		r.Post("/auth/login", authHandler.Login)

		// Analysis routes accept anonymous callers; a valid bearer token
		// attributes the exchange to its subject for history.
		r.Group(func(r chi.Router) {
			r.Use(auth.OptionalToken(deps.Issuer))

			r.Post("/analysis/advise", analysis.Advise)
			r.Get("/analysis/news", analysis.GetNews)
			r.Get("/analysis/stock/{symbol}", analysis.GetStock)
		})

		// Strategy and history routes require a bearer token.
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireToken(deps.Issuer))

			r.Get("/strategies", strategies.List)
			r.Post("/strategies", strategies.Create)
			r.Get("/strategies/{id}", strategies.Get)
			r.Put("/strategies/{id}", strategies.Update)
			r.Delete("/strategies/{id}", strategies.Delete)

			r.Get("/history", history.List)
		})
	})
}
