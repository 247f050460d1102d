// Package api exposes the research service and landmark lookups over HTTP.
package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"landmarks/internal/domain"
	"landmarks/internal/observability"
	"landmarks/internal/vectorstore"
)

// Researcher is the report-assembly surface the handlers depend on.
type Researcher interface {
	GenerateReport(ctx context.Context, req domain.ResearchRequest) (*domain.ResearchResponse, error)
	ConversationHistory(ctx context.Context, conversationID string) ([]domain.ResearchResponse, error)
	DeleteConversation(ctx context.Context, conversationID string) bool
}

// DocumentSource browses the hosted passage index directly.
type DocumentSource interface {
	GetDocument(ctx context.Context, id string) (map[string]any, error)
	LandmarkChunks(ctx context.Context, landmarkID string, topK int) ([]vectorstore.Hit, error)
}

// Option configures a Router.
type Option func(*Router)

// WithDocuments enables the document and landmark passage routes.
func WithDocuments(d DocumentSource) Option {
	return func(rt *Router) { rt.documents = d }
}

// AppInfo is reported by the root endpoint.
type AppInfo struct {
	Name    string
	Version string
}

// Router wires handlers and middleware.
type Router struct {
	research  Researcher
	landmarks domain.LandmarkGateway
	documents DocumentSource
	info      AppInfo
	metrics   *observability.Collector
	logger    *zap.Logger
}

// NewRouter creates a new router instance. metrics may be nil.
func NewRouter(research Researcher, landmarks domain.LandmarkGateway, info AppInfo, metrics *observability.Collector, logger *zap.Logger, opts ...Option) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	rt := &Router{
		research:  research,
		landmarks: landmarks,
		info:      info,
		metrics:   metrics,
		logger:    logger.Named("http"),
	}
	for _, opt := range opts {
		opt(rt)
	}
	return rt
}

// Setup configures all routes and middleware
func (rt *Router) Setup() http.Handler {
	router := chi.NewRouter()

	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(accessLog(rt.logger, rt.metrics))
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"*"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	router.Get("/", rt.root)
	router.Get("/health", rt.healthCheck)
	if rt.metrics != nil {
		router.Method(http.MethodGet, "/metrics", rt.metrics.Handler())
	}

	router.Route("/api", func(r chi.Router) {
		r.Route("/research", func(r chi.Router) {
			h := &researchHandler{service: rt.research, logger: rt.logger}
			r.Post("/generate", h.Generate)
			r.Get("/conversations/{conversationID}", h.History)
			r.Delete("/conversations/{conversationID}", h.Delete)
		})
		r.Route("/landmarks", func(r chi.Router) {
			h := &landmarkHandler{gateway: rt.landmarks, logger: rt.logger}
			r.Get("/", h.Search)
			r.Get("/find", h.FindByName)
			r.Get("/{landmarkID}", h.Get)
			r.Get("/{landmarkID}/photos", h.Photos)
			if rt.documents != nil {
				r.Get("/{landmarkID}/passages", (&documentHandler{source: rt.documents, logger: rt.logger}).Passages)
			}
		})
		if rt.documents != nil {
			r.Get("/documents/{documentID}", (&documentHandler{source: rt.documents, logger: rt.logger}).Get)
		}
	})

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, http.StatusNotFound, "Not Found")
	})
	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, http.StatusMethodNotAllowed, "Method Not Allowed")
	})
	return router
}

func (rt *Router) root(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"application": rt.info.Name,
		"version":     rt.info.Version,
		"status":      "running",
	})
}

func (rt *Router) healthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}
