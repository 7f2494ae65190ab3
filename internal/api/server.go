// Package api is the REST surface: a chi router over the repositories, the
// lifecycle manager, the analytics engine and the realtime orchestrator.
// Every /api/v1 route is scoped to the organization resolved from the bearer
// token.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/leadwire/leadwire/internal/analytics"
	"github.com/leadwire/leadwire/internal/config"
	"github.com/leadwire/leadwire/internal/lifecycle"
	"github.com/leadwire/leadwire/internal/metrics"
	"github.com/leadwire/leadwire/internal/realtime"
	"github.com/leadwire/leadwire/internal/repository"
)

// Deps bundles the services the server routes to
type Deps struct {
	Tokens        *repository.TokenRepository
	Leads         *repository.LeadRepository
	Campaigns     *repository.CampaignRepository
	Conversations *repository.ConversationRepository
	Messages      *repository.MessageRepository
	Agents        *repository.AgentRepository
	Lifecycle     *lifecycle.Manager
	Analytics     *analytics.Engine
	Orchestrator  *realtime.Orchestrator
	Gateway       *realtime.Gateway
}

// Server is the HTTP API server
type Server struct {
	router     *chi.Mux
	httpServer *http.Server
	cfg        *config.Config
	deps       Deps
	logger     *slog.Logger
	startTime  time.Time
}

// NewServer creates a new API server
func NewServer(cfg *config.Config, deps Deps, logger *slog.Logger) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		cfg:       cfg,
		deps:      deps,
		logger:    logger.With("component", "api"),
		startTime: time.Now(),
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures the HTTP routes
func (s *Server) setupRoutes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(middleware.Recoverer)
	s.router.Use(metrics.HTTPMiddleware)

	// Health check (no auth required)
	s.router.Get("/health", s.handleHealth)

	// Websocket gateway authenticates its own upgrade
	s.router.Handle(s.cfg.Realtime.Path, s.deps.Gateway.Handler())

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Use(s.authMiddleware)

		r.Route("/leads", func(r chi.Router) {
			r.Post("/", s.handleLeadCreate)
			r.Get("/", s.handleLeadList)
			r.Post("/import", s.handleLeadImport)
			r.Get("/stats", s.handleLeadStats)
			r.Get("/{id}", s.handleLeadGet)
			r.Put("/{id}", s.handleLeadUpdate)
			r.Delete("/{id}", s.handleLeadDelete)
			r.Post("/{id}/convert", s.handleLeadConvert)
		})

		r.Route("/campaigns", func(r chi.Router) {
			r.Post("/", s.handleCampaignCreate)
			r.Get("/", s.handleCampaignList)
			r.Get("/performance", s.handleCampaignPerformance)
			r.Get("/{id}", s.handleCampaignGet)
			r.Post("/{id}/start", s.handleCampaignStart)
			r.Post("/{id}/pause", s.handleCampaignPause)
			r.Post("/{id}/resume", s.handleCampaignResume)
			r.Post("/{id}/complete", s.handleCampaignComplete)
			r.Post("/{id}/archive", s.handleCampaignArchive)
			r.Post("/{id}/leads", s.handleCampaignEnroll)
			r.Post("/{id}/leads/import", s.handleCampaignImport)
		})

		r.Route("/conversations", func(r chi.Router) {
			r.Get("/", s.handleConversationList)
			r.Post("/find-or-create", s.handleConversationFindOrCreate)
			r.Get("/{id}/messages", s.handleMessageList)
			r.Post("/{id}/messages", s.handleMessageCreate)
			r.Post("/{id}/close", s.handleConversationClose)
		})

		r.Route("/analytics", func(r chi.Router) {
			r.Get("/dashboard", s.handleAnalyticsDashboard)
			r.Get("/funnel", s.handleAnalyticsFunnel)
			r.Get("/leads", s.handleAnalyticsLeads)
			r.Get("/conversations", s.handleAnalyticsConversations)
			r.Get("/report", s.handleAnalyticsReport)
		})

		r.Route("/agents", func(r chi.Router) {
			r.Get("/", s.handleAgentList)
			r.Post("/", s.handleAgentCreate)
			r.Get("/performance", s.handleAgentPerformance)
			r.Patch("/{id}/status", s.handleAgentStatus)
		})
	})
}

// Handler returns the configured router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe starts the HTTP server
func (s *Server) ListenAndServe() error {
	// Whole-connection read/write timeouts would sever long-lived websocket
	// clients on the realtime mount, so only the header read is bounded.
	s.httpServer = &http.Server{
		Addr:              s.cfg.Server.ListenAddr,
		Handler:           s.router,
		ReadHeaderTimeout: s.cfg.Server.ReadTimeout,
		IdleTimeout:       s.cfg.Server.IdleTimeout,
	}

	s.logger.Info("starting HTTP API server", "addr", s.cfg.Server.ListenAddr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP API server")
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}
