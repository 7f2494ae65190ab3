package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/leadwire/leadwire/internal/errs"
)

// ErrorResponse is the error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthResponse is the response for GET /health
type HealthResponse struct {
	Status string `json:"status"`
	Uptime string `json:"uptime"`
}

// handleHealth handles GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.sendJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Uptime: time.Since(s.startTime).Round(time.Second).String(),
	})
}

func (s *Server) sendJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (s *Server) sendError(w http.ResponseWriter, status int, message string) {
	s.sendJSON(w, status, ErrorResponse{Error: message})
}

// writeErr maps the error taxonomy to HTTP status codes
func (s *Server) writeErr(w http.ResponseWriter, err error) {
	var ve *errs.ValidationError
	switch {
	case errors.As(err, &ve):
		s.sendError(w, http.StatusUnprocessableEntity, ve.Error())
	case errors.Is(err, errs.ErrNotFound):
		s.sendError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, errs.ErrConflict):
		s.sendError(w, http.StatusConflict, err.Error())
	case errors.Is(err, errs.ErrInvalidTransition):
		s.sendError(w, http.StatusConflict, err.Error())
	case errors.Is(err, errs.ErrUnauthenticated):
		s.sendError(w, http.StatusUnauthorized, "authentication required")
	default:
		s.logger.Error("request failed", "error", err)
		s.sendError(w, http.StatusInternalServerError, "internal error")
	}
}

// decode reads a JSON request body; a malformed body is a 400
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.sendError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// listResponse is the envelope for paginated collections
type listResponse struct {
	Items interface{} `json:"items"`
	Total int         `json:"total"`
}
