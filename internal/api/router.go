// Scene Plus Engine - Loyalty Analytics and Personalized Offers
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/NandaKumar8776/scene-plus-engine

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/NandaKumar8776/scene-plus-engine/internal/config"
)

// Router assembles the middleware stack and routes.
type Router struct {
	handler    *Handler
	middleware *Middleware
}

// NewRouter creates a router from server configuration.
func NewRouter(cfg *config.Config, handler *Handler) *Router {
	mwConfig := DefaultMiddlewareConfig()
	mwConfig.CORSAllowedOrigins = cfg.Server.CORSOrigins
	mwConfig.RateLimitRequests = cfg.Server.RateLimitReqs
	mwConfig.RateLimitWindow = cfg.Server.RateLimitWindow

	return &Router{
		handler:    handler,
		middleware: NewMiddleware(mwConfig),
	}
}

// Setup configures all HTTP routes.
func (router *Router) Setup() http.Handler {
	r := chi.NewRouter()

	// Global middleware, applied to all routes in order.
	r.Use(RequestIDWithLogging())
	r.Use(RealIP())
	r.Use(Recoverer())
	r.Use(router.middleware.CORS())
	r.Use(RequestLogging())

	// Health endpoints get a permissive rate limit for monitoring.
	r.Route("/api/v1/health", func(r chi.Router) {
		r.Use(router.middleware.RateLimitHealth())
		r.Use(SecurityHeaders())
		r.Get("/", router.handler.Health)
		r.Get("/live", router.handler.HealthLive)
		r.Get("/ready", router.handler.HealthReady)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(router.middleware.RateLimit())
		r.Use(SecurityHeaders())

		r.Post("/transactions/normalize", router.handler.NormalizeTransactions)
		r.Post("/segmentation/train", router.handler.TrainSegmentation)
		r.Post("/segments/predict", router.handler.PredictSegments)
		r.Get("/segments/profiles", router.handler.SegmentProfiles)
		r.Post("/offers/generate", router.handler.GenerateOffers)
		r.Post("/offers/track", router.handler.TrackOfferEvent)
		r.Get("/offers/analytics", router.handler.OfferAnalytics)
	})

	r.Handle("/metrics", promhttp.Handler())

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		WriteNotFound(w, r, "Endpoint not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, r, http.StatusMethodNotAllowed, ErrCodeMethodNotAllowed, "Method not allowed")
	})

	return r
}
