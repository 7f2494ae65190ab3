package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/leadwire/leadwire/internal/errs"
	"github.com/leadwire/leadwire/internal/models"
)

// CampaignRequest is the request body for POST /campaigns
type CampaignRequest struct {
	Name        string                  `json:"name"`
	Type        models.CampaignType     `json:"type"`
	Description string                  `json:"description"`
	Settings    models.CampaignSettings `json:"settings"`
}

// StartRequest is the request body for POST /campaigns/{id}/start
type StartRequest struct {
	Settings *models.CampaignSettings `json:"settings"`
	LeadIDs  []string                 `json:"lead_ids"`
}

// EnrollRequest is the request body for POST /campaigns/{id}/leads
type EnrollRequest struct {
	LeadIDs []string `json:"lead_ids"`
}

// handleCampaignCreate handles POST /api/v1/campaigns
func (s *Server) handleCampaignCreate(w http.ResponseWriter, r *http.Request) {
	var req CampaignRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.Name == "" {
		s.writeErr(w, errs.NewValidation("name", "is required"))
		return
	}

	campaign := &models.Campaign{
		OrganizationID: orgID(r),
		Name:           req.Name,
		Type:           req.Type,
		Description:    req.Description,
		Settings:       req.Settings,
	}
	if err := s.deps.Campaigns.Create(campaign); err != nil {
		s.writeErr(w, err)
		return
	}
	s.sendJSON(w, http.StatusCreated, campaign)
}

// handleCampaignList handles GET /api/v1/campaigns
func (s *Server) handleCampaignList(w http.ResponseWriter, r *http.Request) {
	campaigns, err := s.deps.Campaigns.List(orgID(r))
	if err != nil {
		s.writeErr(w, err)
		return
	}
	s.sendJSON(w, http.StatusOK, listResponse{Items: campaigns, Total: len(campaigns)})
}

// handleCampaignGet handles GET /api/v1/campaigns/{id}
func (s *Server) handleCampaignGet(w http.ResponseWriter, r *http.Request) {
	campaign, err := s.deps.Campaigns.GetByID(orgID(r), chi.URLParam(r, "id"))
	if err != nil {
		s.writeErr(w, err)
		return
	}
	if campaign == nil {
		s.writeErr(w, errs.ErrNotFound)
		return
	}
	s.sendJSON(w, http.StatusOK, campaign)
}

// handleCampaignStart handles POST /api/v1/campaigns/{id}/start
func (s *Server) handleCampaignStart(w http.ResponseWriter, r *http.Request) {
	var req StartRequest
	if r.ContentLength > 0 {
		if !s.decode(w, r, &req) {
			return
		}
	}

	org := orgID(r)
	campaign, err := s.deps.Lifecycle.Start(org, chi.URLParam(r, "id"), req.Settings, req.LeadIDs)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	s.deps.Orchestrator.CampaignStatusChanged(org, campaign)
	s.sendJSON(w, http.StatusOK, campaign)
}

func (s *Server) handleCampaignPause(w http.ResponseWriter, r *http.Request) {
	s.transition(w, r, s.deps.Lifecycle.Pause)
}

func (s *Server) handleCampaignResume(w http.ResponseWriter, r *http.Request) {
	s.transition(w, r, s.deps.Lifecycle.Resume)
}

func (s *Server) handleCampaignComplete(w http.ResponseWriter, r *http.Request) {
	s.transition(w, r, s.deps.Lifecycle.Complete)
}

func (s *Server) handleCampaignArchive(w http.ResponseWriter, r *http.Request) {
	s.transition(w, r, s.deps.Lifecycle.Archive)
}

func (s *Server) transition(w http.ResponseWriter, r *http.Request, op func(orgID, campaignID string) (*models.Campaign, error)) {
	org := orgID(r)
	campaign, err := op(org, chi.URLParam(r, "id"))
	if err != nil {
		s.writeErr(w, err)
		return
	}
	s.deps.Orchestrator.CampaignStatusChanged(org, campaign)
	s.sendJSON(w, http.StatusOK, campaign)
}

// handleCampaignEnroll handles POST /api/v1/campaigns/{id}/leads
func (s *Server) handleCampaignEnroll(w http.ResponseWriter, r *http.Request) {
	var req EnrollRequest
	if !s.decode(w, r, &req) {
		return
	}
	if len(req.LeadIDs) == 0 {
		s.writeErr(w, errs.NewValidation("lead_ids", "must not be empty"))
		return
	}

	org := orgID(r)
	campaignID := chi.URLParam(r, "id")
	if err := s.deps.Lifecycle.Enroll(org, campaignID, req.LeadIDs); err != nil {
		s.writeErr(w, err)
		return
	}

	progress, err := s.deps.Lifecycle.Progress(org, campaignID)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	s.sendJSON(w, http.StatusOK, progress)
}

// handleCampaignImport handles POST /api/v1/campaigns/{id}/leads/import
func (s *Server) handleCampaignImport(w http.ResponseWriter, r *http.Request) {
	var req ImportRequest
	if !s.decode(w, r, &req) {
		return
	}
	if len(req.Records) == 0 {
		s.writeErr(w, errs.NewValidation("records", "must not be empty"))
		return
	}

	result, err := s.deps.Lifecycle.ImportToCampaign(orgID(r), chi.URLParam(r, "id"), req.Records)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	s.sendJSON(w, http.StatusOK, result)
}

// handleCampaignPerformance handles GET /api/v1/campaigns/performance
func (s *Server) handleCampaignPerformance(w http.ResponseWriter, r *http.Request) {
	rows, err := s.deps.Analytics.CampaignPerformance(orgID(r))
	if err != nil {
		s.writeErr(w, err)
		return
	}
	s.sendJSON(w, http.StatusOK, rows)
}
