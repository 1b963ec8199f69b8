// Package server wires the stores, services, and handlers into the HTTP
// router.
package server

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/lemaitremot/maitremot/internal/email"
	"github.com/lemaitremot/maitremot/internal/generator"
	"github.com/lemaitremot/maitremot/internal/handler"
	"github.com/lemaitremot/maitremot/internal/metrics"
	"github.com/lemaitremot/maitremot/internal/middleware"
	"github.com/lemaitremot/maitremot/internal/payment"
	"github.com/lemaitremot/maitremot/internal/render"
	"github.com/lemaitremot/maitremot/internal/store"
)

type Config struct {
	BaseURL     string
	EmailClient *email.Client
	Generator   generator.Config
	Stripe      payment.Config
}

type Server struct {
	db          *sql.DB
	subscribers *store.SubscriberStore
	magicLinks  *store.MagicLinkStore
	sessions    *store.SessionStore
	documents   *store.DocumentStore
	exports     *store.ExportStore
	templates   *store.TemplateStore

	authH         *handler.AuthHandler
	quotaH        *handler.QuotaHandler
	documentH     *handler.DocumentHandler
	exportH       *handler.ExportHandler
	templateH     *handler.TemplateHandler
	catalogH      *handler.CatalogHandler
	checkoutH     *handler.CheckoutHandler
	webhookH      *handler.WebhookHandler
	subscriptionH *handler.SubscriptionHandler
	analyticsH    *handler.AnalyticsHandler

	registry    *prometheus.Registry
	rateLimiter *middleware.RateLimiter
	logger      *slog.Logger
}

func New(db *sql.DB, cfg Config, logger *slog.Logger) (*Server, error) {
	subscribers := store.NewSubscriberStore(db)
	magicLinks := store.NewMagicLinkStore(db)
	sessions := store.NewSessionStore(db)
	documents := store.NewDocumentStore(db)
	exports := store.NewExportStore(db)
	templates := store.NewTemplateStore(db)
	transactions := store.NewTransactionStore(db)

	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	renderer, err := render.New()
	if err != nil {
		return nil, fmt.Errorf("init renderer: %w", err)
	}

	gen := generator.NewService(cfg.Generator)
	payments := payment.NewClient(cfg.Stripe)

	return &Server{
		db:          db,
		subscribers: subscribers,
		magicLinks:  magicLinks,
		sessions:    sessions,
		documents:   documents,
		exports:     exports,
		templates:   templates,

		authH: handler.NewAuthHandler(subscribers, magicLinks, sessions, cfg.EmailClient, collector,
			logger.With("component", "auth")),
		quotaH: handler.NewQuotaHandler(exports, logger.With("component", "quota")),
		documentH: handler.NewDocumentHandler(documents, gen, collector,
			logger.With("component", "document")),
		exportH: handler.NewExportHandler(documents, exports, templates, sessions, subscribers, renderer, collector,
			logger.With("component", "export")),
		templateH: handler.NewTemplateHandler(templates, logger.With("component", "template")),
		catalogH:  handler.NewCatalogHandler(),
		checkoutH: handler.NewCheckoutHandler(transactions, subscribers, payments, collector,
			logger.With("component", "checkout")),
		webhookH: handler.NewWebhookHandler(transactions, subscribers, payments, collector,
			logger.With("component", "webhook")),
		subscriptionH: handler.NewSubscriptionHandler(subscribers, logger.With("component", "subscription")),
		analyticsH:    handler.NewAnalyticsHandler(exports, logger.With("component", "analytics")),

		registry:    registry,
		rateLimiter: middleware.NewRateLimiter(),
		logger:      logger,
	}, nil
}

// SessionStore returns the session store for cleanup tasks.
func (s *Server) SessionStore() *store.SessionStore {
	return s.sessions
}

// MagicLinkStore returns the magic link store for cleanup tasks.
func (s *Server) MagicLinkStore() *store.MagicLinkStore {
	return s.magicLinks
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	requireAuth := middleware.RequireAuth(s.sessions, s.subscribers)
	rateLimit := middleware.RateLimit(s.rateLimiter, middleware.RealIP, 10, time.Minute)

	// Auth
	mux.Handle("POST /api/auth/request-login", rateLimit(http.HandlerFunc(s.authH.RequestLogin)))
	mux.Handle("POST /api/auth/verify-login", rateLimit(http.HandlerFunc(s.authH.VerifyLogin)))
	mux.Handle("GET /api/auth/session/validate", requireAuth(http.HandlerFunc(s.authH.ValidateSession)))
	mux.HandleFunc("POST /api/auth/logout", s.authH.Logout)

	// Documents and exports. Export resolves its own identity: the gate
	// distinguishes Pro sessions from guests inside the handler.
	mux.HandleFunc("GET /api/quota/check", s.quotaH.Check)
	mux.Handle("POST /api/export", rateLimit(http.HandlerFunc(s.exportH.Export)))
	mux.HandleFunc("POST /api/generate", s.documentH.Generate)
	mux.HandleFunc("GET /api/documents", s.documentH.List)
	mux.HandleFunc("POST /api/documents/{id}/vary/{index}", s.documentH.Vary)

	// Catalog and pricing (static)
	mux.HandleFunc("GET /api/catalog", s.catalogH.Catalog)
	mux.HandleFunc("GET /api/pricing", s.catalogH.Pricing)

	// Template personalization: style list is public, the profile is Pro.
	mux.HandleFunc("GET /api/template/styles", s.templateH.Styles)
	mux.Handle("GET /api/template/get", requireAuth(middleware.RequirePro(http.HandlerFunc(s.templateH.Get))))
	mux.Handle("POST /api/template/save", requireAuth(middleware.RequirePro(http.HandlerFunc(s.templateH.Save))))

	// Pro analytics
	mux.Handle("GET /api/analytics/overview", requireAuth(middleware.RequirePro(http.HandlerFunc(s.analyticsH.Overview))))

	// Billing
	mux.Handle("POST /api/checkout/session", rateLimit(http.HandlerFunc(s.checkoutH.CreateSession)))
	mux.HandleFunc("GET /api/checkout/status/{session_id}", s.checkoutH.Status)
	mux.HandleFunc("POST /api/webhook/stripe", s.webhookH.Stripe)
	mux.HandleFunc("GET /api/subscription/status/{email}", s.subscriptionH.Status)

	// Ops
	mux.HandleFunc("GET /api/health", s.healthCheck)
	mux.Handle("GET /metrics", metrics.Handler(s.registry))

	return middleware.RequestLogger(s.logger.With("component", "http"))(mux)
}

func (s *Server) healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
