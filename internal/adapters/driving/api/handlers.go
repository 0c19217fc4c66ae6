package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/custodia-labs/kbase/internal/core/domain"
	"github.com/custodia-labs/kbase/internal/logger"
)

// AskRequest is the body of POST /ask.
type AskRequest struct {
	Question *string `json:"question"`
}

// errorResponse is the body of every non-2xx JSON response.
type errorResponse struct {
	Detail string `json:"detail"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorResponse{Detail: detail})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxAskBody)

	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid request body: "+err.Error())
		return
	}
	if req.Question == nil {
		writeDetail(w, http.StatusUnprocessableEntity, "field required: question")
		return
	}

	result, err := s.answer.Ask(r.Context(), *req.Question)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			writeDetail(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		logger.Error("[%s] %s %s: %v", RequestID(r.Context()), r.Method, r.URL.Path, err)
		writeDetail(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, result)
}
