package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/swasthya/sahayak/internal/config"
	"github.com/swasthya/sahayak/internal/escalation"
	"github.com/swasthya/sahayak/internal/storage/sqlite"
	"github.com/swasthya/sahayak/internal/triage"
	"github.com/swasthya/sahayak/pkg/logger"
)

// Router is the API router
type Router struct {
	handler    *Handler
	middleware *Middleware
	config     *config.Config
	logger     *logger.Logger
}

// NewRouter creates a new API router
func NewRouter(
	triageService *triage.Service,
	sessions *escalation.Manager,
	history *sqlite.HistoryStorage,
	cfg *config.Config,
	log *logger.Logger,
) *Router {
	return &Router{
		handler:    NewHandler(triageService, sessions, history, cfg, log),
		middleware: NewMiddleware(log),
		config:     cfg,
		logger:     log.Named("api-router"),
	}
}

// Routes returns the API routes
func (r *Router) Routes() http.Handler {
	router := chi.NewRouter()

	// Middleware
	router.Use(r.middleware.RequestID)
	router.Use(r.middleware.Logger)
	router.Use(r.middleware.Recoverer)
	router.Use(r.middleware.CORS(r.config.Server.CORSAllowedOrigins))

	// API routes
	router.Route("/api/v1", func(router chi.Router) {
		// Chat submission
		router.Post("/messages", r.handler.SubmitMessage)

		// Escalation sub-flow
		router.Get("/escalations/{id}", r.handler.GetEscalation)
		router.Delete("/escalations/{id}", r.handler.CloseEscalation)
		router.Post("/escalations/{id}/locating", r.handler.BeginLocating)
		router.Post("/escalations/{id}/location", r.handler.DeliverLocation)
		router.Post("/escalations/{id}/location-failure", r.handler.DeliverLocationFailure)
		router.Post("/escalations/{id}/dispatches", r.handler.RequestDispatch)

		// Chat history
		router.Get("/history/{userID}", r.handler.GetHistory)

		// Health check
		router.Get("/health", r.handler.GetHealth)

		// Configuration
		router.Get("/config", r.handler.GetConfig)
	})

	return router
}
