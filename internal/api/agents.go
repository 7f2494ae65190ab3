package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/leadwire/leadwire/internal/errs"
	"github.com/leadwire/leadwire/internal/models"
)

// AgentRequest is the request body for POST /agents
type AgentRequest struct {
	Name   string             `json:"name"`
	Type   models.AgentType   `json:"type"`
	Status models.AgentStatus `json:"status"`
}

// AgentStatusRequest is the request body for PATCH /agents/{id}/status
type AgentStatusRequest struct {
	Status models.AgentStatus `json:"status"`
}

// handleAgentList handles GET /api/v1/agents
func (s *Server) handleAgentList(w http.ResponseWriter, r *http.Request) {
	agents, err := s.deps.Agents.ListByOrg(orgID(r))
	if err != nil {
		s.writeErr(w, err)
		return
	}
	s.sendJSON(w, http.StatusOK, listResponse{Items: agents, Total: len(agents)})
}

// handleAgentCreate handles POST /api/v1/agents
func (s *Server) handleAgentCreate(w http.ResponseWriter, r *http.Request) {
	var req AgentRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.Name == "" {
		s.writeErr(w, errs.NewValidation("name", "is required"))
		return
	}
	if req.Type == "" {
		s.writeErr(w, errs.NewValidation("type", "is required"))
		return
	}

	agent := &models.Agent{
		OrganizationID: orgID(r),
		Name:           req.Name,
		Type:           req.Type,
		Status:         req.Status,
	}
	if err := s.deps.Agents.Create(agent); err != nil {
		s.writeErr(w, err)
		return
	}
	s.sendJSON(w, http.StatusCreated, agent)
}

// handleAgentStatus handles PATCH /api/v1/agents/{id}/status
func (s *Server) handleAgentStatus(w http.ResponseWriter, r *http.Request) {
	var req AgentStatusRequest
	if !s.decode(w, r, &req) {
		return
	}
	switch req.Status {
	case models.AgentStatusOnline, models.AgentStatusOffline, models.AgentStatusMaintenance:
	default:
		s.writeErr(w, errs.NewValidation("status", "must be online, offline or maintenance"))
		return
	}

	org := orgID(r)
	id := chi.URLParam(r, "id")
	if err := s.deps.Agents.UpdateStatus(org, id, req.Status); err != nil {
		s.writeErr(w, err)
		return
	}

	agent, err := s.deps.Agents.GetByID(org, id)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	s.sendJSON(w, http.StatusOK, agent)
}

// handleAgentPerformance handles GET /api/v1/agents/performance
func (s *Server) handleAgentPerformance(w http.ResponseWriter, r *http.Request) {
	rows, err := s.deps.Analytics.AgentPerformance(orgID(r))
	if err != nil {
		s.writeErr(w, err)
		return
	}
	s.sendJSON(w, http.StatusOK, rows)
}
