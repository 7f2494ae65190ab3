package api

import (
	"net/http"

	"github.com/leadwire/leadwire/internal/analytics"
)

// handleAnalyticsDashboard handles GET /api/v1/analytics/dashboard
func (s *Server) handleAnalyticsDashboard(w http.ResponseWriter, r *http.Request) {
	overview, err := s.deps.Analytics.DashboardOverview(orgID(r))
	if err != nil {
		s.writeErr(w, err)
		return
	}
	s.sendJSON(w, http.StatusOK, overview)
}

// handleAnalyticsFunnel handles GET /api/v1/analytics/funnel
func (s *Server) handleAnalyticsFunnel(w http.ResponseWriter, r *http.Request) {
	window := analytics.WindowFromPeriod(r.URL.Query().Get("period"))
	funnel, err := s.deps.Analytics.LeadFunnel(orgID(r), window)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	s.sendJSON(w, http.StatusOK, funnel)
}

// handleAnalyticsLeads handles GET /api/v1/analytics/leads
func (s *Server) handleAnalyticsLeads(w http.ResponseWriter, r *http.Request) {
	window := analytics.WindowFromPeriod(r.URL.Query().Get("period"))
	report, err := s.deps.Analytics.LeadAnalytics(orgID(r), window)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	s.sendJSON(w, http.StatusOK, report)
}

// handleAnalyticsConversations handles GET /api/v1/analytics/conversations
func (s *Server) handleAnalyticsConversations(w http.ResponseWriter, r *http.Request) {
	window := analytics.WindowFromPeriod(r.URL.Query().Get("period"))
	report, err := s.deps.Analytics.ConversationAnalytics(orgID(r), window)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	s.sendJSON(w, http.StatusOK, report)
}

// handleAnalyticsReport handles GET /api/v1/analytics/report
func (s *Server) handleAnalyticsReport(w http.ResponseWriter, r *http.Request) {
	report, err := s.deps.Analytics.PerformanceReport(orgID(r), r.URL.Query().Get("period"))
	if err != nil {
		s.writeErr(w, err)
		return
	}
	s.sendJSON(w, http.StatusOK, report)
}
