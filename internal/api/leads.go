package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/leadwire/leadwire/internal/analytics"
	"github.com/leadwire/leadwire/internal/errs"
	"github.com/leadwire/leadwire/internal/models"
)

// LeadRequest is the request body for POST and PUT /leads
type LeadRequest struct {
	Email     string            `json:"email"`
	Phone     string            `json:"phone"`
	FirstName string            `json:"first_name"`
	LastName  string            `json:"last_name"`
	Status    models.LeadStatus `json:"status"`
	Source    string            `json:"source"`
}

// ImportRequest is the request body for the lead import endpoints
type ImportRequest struct {
	Records []models.LeadRecord `json:"records"`
}

// handleLeadCreate handles POST /api/v1/leads
func (s *Server) handleLeadCreate(w http.ResponseWriter, r *http.Request) {
	var req LeadRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.Email == "" {
		s.writeErr(w, errs.NewValidation("email", "is required"))
		return
	}

	lead := &models.Lead{
		OrganizationID: orgID(r),
		Email:          req.Email,
		Phone:          req.Phone,
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		Status:         req.Status,
		Source:         req.Source,
	}
	if err := s.deps.Leads.Create(lead); err != nil {
		s.writeErr(w, err)
		return
	}
	s.sendJSON(w, http.StatusCreated, lead)
}

// handleLeadList handles GET /api/v1/leads
func (s *Server) handleLeadList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := models.LeadListFilter{
		Status: models.LeadStatus(q.Get("status")),
		Search: q.Get("search"),
		Skip:   intParam(q.Get("skip"), 0),
		Take:   intParam(q.Get("take"), 50),
	}

	leads, total, err := s.deps.Leads.List(orgID(r), filter)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	s.sendJSON(w, http.StatusOK, listResponse{Items: leads, Total: total})
}

// handleLeadGet handles GET /api/v1/leads/{id}
func (s *Server) handleLeadGet(w http.ResponseWriter, r *http.Request) {
	lead, err := s.deps.Leads.GetByID(orgID(r), chi.URLParam(r, "id"))
	if err != nil {
		s.writeErr(w, err)
		return
	}
	if lead == nil {
		s.writeErr(w, errs.ErrNotFound)
		return
	}
	s.sendJSON(w, http.StatusOK, lead)
}

// handleLeadUpdate handles PUT /api/v1/leads/{id}
func (s *Server) handleLeadUpdate(w http.ResponseWriter, r *http.Request) {
	lead, err := s.deps.Leads.GetByID(orgID(r), chi.URLParam(r, "id"))
	if err != nil {
		s.writeErr(w, err)
		return
	}
	if lead == nil {
		s.writeErr(w, errs.ErrNotFound)
		return
	}

	var req LeadRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.Email != "" {
		lead.Email = req.Email
	}
	if req.Phone != "" {
		lead.Phone = req.Phone
	}
	if req.FirstName != "" {
		lead.FirstName = req.FirstName
	}
	if req.LastName != "" {
		lead.LastName = req.LastName
	}
	if req.Status != "" {
		lead.Status = req.Status
	}
	if req.Source != "" {
		lead.Source = req.Source
	}

	if err := s.deps.Leads.Update(lead); err != nil {
		s.writeErr(w, err)
		return
	}
	s.sendJSON(w, http.StatusOK, lead)
}

// handleLeadDelete handles DELETE /api/v1/leads/{id}
func (s *Server) handleLeadDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Leads.Delete(orgID(r), chi.URLParam(r, "id")); err != nil {
		s.writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleLeadImport handles POST /api/v1/leads/import
func (s *Server) handleLeadImport(w http.ResponseWriter, r *http.Request) {
	var req ImportRequest
	if !s.decode(w, r, &req) {
		return
	}
	if len(req.Records) == 0 {
		s.writeErr(w, errs.NewValidation("records", "must not be empty"))
		return
	}

	result, err := s.deps.Lifecycle.ImportLeads(orgID(r), req.Records)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	s.sendJSON(w, http.StatusOK, result)
}

// handleLeadConvert handles POST /api/v1/leads/{id}/convert
func (s *Server) handleLeadConvert(w http.ResponseWriter, r *http.Request) {
	org := orgID(r)
	lead, err := s.deps.Lifecycle.MarkConverted(org, chi.URLParam(r, "id"))
	if err != nil {
		s.writeErr(w, err)
		return
	}
	s.deps.Orchestrator.LeadConverted(org, lead)
	s.sendJSON(w, http.StatusOK, lead)
}

// handleLeadStats handles GET /api/v1/leads/stats
func (s *Server) handleLeadStats(w http.ResponseWriter, r *http.Request) {
	funnel, err := s.deps.Analytics.LeadFunnel(orgID(r), analytics.Window{})
	if err != nil {
		s.writeErr(w, err)
		return
	}
	s.sendJSON(w, http.StatusOK, funnel)
}

func intParam(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}
