// Package handlers contains the HTTP surface of the intake backend.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/mlima/intake-backend/internal/conversation"
	"github.com/mlima/intake-backend/internal/session"
	"github.com/mlima/intake-backend/pkg/logging"
)

// ConversationHandler exposes the web-chat conversation endpoints.
type ConversationHandler struct {
	engine *conversation.Engine
	logger *logging.Logger
}

// NewConversationHandler builds the handler.
func NewConversationHandler(engine *conversation.Engine, logger *logging.Logger) *ConversationHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &ConversationHandler{engine: engine, logger: logger}
}

type startRequest struct {
	SessionID string `json:"session_id"`
}

// Start opens a web conversation and returns the opening question.
func (h *ConversationHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if r.Body != nil {
		// Body is optional; a missing or invalid one just means a fresh id.
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	sessionID := strings.TrimSpace(req.SessionID)
	if sessionID == "" {
		sessionID = "web-" + uuid.NewString()
	}

	result := h.engine.ProcessMessage(r.Context(), sessionID, session.PlatformWeb, "oi")
	writeJSON(w, http.StatusOK, result)
}

type respondRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

// Respond processes one user message.
func (h *ConversationHandler) Respond(w http.ResponseWriter, r *http.Request) {
	var req respondRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.SessionID) == "" {
		writeError(w, http.StatusBadRequest, "session_id is required")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	result := h.engine.ProcessMessage(r.Context(), req.SessionID, session.PlatformWeb, req.Message)
	writeJSON(w, http.StatusOK, result)
}

type phoneRequest struct {
	SessionID string `json:"session_id"`
	Phone     string `json:"phone_number"`
}

// SubmitPhone accepts the phone number collected by a dedicated form field.
func (h *ConversationHandler) SubmitPhone(w http.ResponseWriter, r *http.Request) {
	var req phoneRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.SessionID) == "" || strings.TrimSpace(req.Phone) == "" {
		writeError(w, http.StatusBadRequest, "session_id and phone_number are required")
		return
	}

	result := h.engine.SubmitPhone(r.Context(), req.SessionID, req.Phone)
	writeJSON(w, http.StatusOK, result)
}

// Status reports the current state of a session.
func (h *ConversationHandler) Status(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	sess, err := h.engine.Session(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		h.logger.Error("session status lookup failed", "session_id", sessionID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"session_id":     sess.ID,
		"platform":       sess.Platform,
		"current_step":   sess.CurrentStep,
		"flow_completed": sess.FlowCompleted,
		"ai_mode":        sess.AIMode,
		"lead_id":        sess.LeadID,
		"message_count":  sess.MessageCount,
		"last_updated":   sess.LastUpdated,
	})
}

// Reset discards the session.
func (h *ConversationHandler) Reset(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if err := h.engine.Reset(r.Context(), sessionID); err != nil {
		h.logger.Error("session reset failed", "session_id", sessionID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
