package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/leadwire/leadwire/internal/errs"
	"github.com/leadwire/leadwire/internal/models"
)

// FindOrCreateRequest is the request body for POST /conversations/find-or-create
type FindOrCreateRequest struct {
	LeadID  string                     `json:"lead_id"`
	Channel models.ConversationChannel `json:"channel"`
	AgentID string                     `json:"agent_id"`
}

// MessageRequest is the request body for POST /conversations/{id}/messages
type MessageRequest struct {
	Direction   models.MessageDirection `json:"direction"`
	Content     string                  `json:"content"`
	AIGenerated bool                    `json:"ai_generated"`
}

// handleConversationList handles GET /api/v1/conversations
func (s *Server) handleConversationList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := models.ConversationListFilter{
		Status:  models.ConversationStatus(q.Get("status")),
		Channel: models.ConversationChannel(q.Get("channel")),
		Skip:    intParam(q.Get("skip"), 0),
		Take:    intParam(q.Get("take"), 50),
	}

	conversations, total, err := s.deps.Conversations.List(orgID(r), filter)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	s.sendJSON(w, http.StatusOK, listResponse{Items: conversations, Total: total})
}

// handleConversationFindOrCreate handles POST /api/v1/conversations/find-or-create
func (s *Server) handleConversationFindOrCreate(w http.ResponseWriter, r *http.Request) {
	var req FindOrCreateRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.LeadID == "" {
		s.writeErr(w, errs.NewValidation("lead_id", "is required"))
		return
	}
	if req.Channel == "" {
		s.writeErr(w, errs.NewValidation("channel", "is required"))
		return
	}

	conv, err := s.deps.Orchestrator.FindOrCreateConversation(orgID(r), req.LeadID, req.Channel, req.AgentID)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	s.sendJSON(w, http.StatusOK, conv)
}

// handleMessageList handles GET /api/v1/conversations/{id}/messages
func (s *Server) handleMessageList(w http.ResponseWriter, r *http.Request) {
	conv, owner, err := s.deps.Conversations.GetWithOrg(chi.URLParam(r, "id"))
	if err != nil {
		s.writeErr(w, err)
		return
	}
	if conv == nil || owner != orgID(r) {
		s.writeErr(w, errs.ErrNotFound)
		return
	}

	messages, err := s.deps.Messages.ListByConversation(conv.ID)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	s.sendJSON(w, http.StatusOK, listResponse{Items: messages, Total: len(messages)})
}

// handleMessageCreate handles POST /api/v1/conversations/{id}/messages
func (s *Server) handleMessageCreate(w http.ResponseWriter, r *http.Request) {
	var req MessageRequest
	if !s.decode(w, r, &req) {
		return
	}

	msg, err := s.deps.Orchestrator.AddMessage(orgID(r), chi.URLParam(r, "id"), req.Direction, req.Content, req.AIGenerated)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	s.sendJSON(w, http.StatusCreated, msg)
}

// handleConversationClose handles POST /api/v1/conversations/{id}/close
func (s *Server) handleConversationClose(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Orchestrator.CloseConversation(orgID(r), chi.URLParam(r, "id")); err != nil {
		s.writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
