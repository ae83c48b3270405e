package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/mlima/intake-backend/internal/conversation"
	"github.com/mlima/intake-backend/internal/messaging"
	"github.com/mlima/intake-backend/internal/session"
	"github.com/mlima/intake-backend/pkg/logging"
)

// WhatsAppHandler receives inbound messages forwarded by the Baileys bridge
// and replies through it.
type WhatsAppHandler struct {
	engine *conversation.Engine
	sender messaging.Sender
	logger *logging.Logger
}

// NewWhatsAppHandler builds the webhook handler.
func NewWhatsAppHandler(engine *conversation.Engine, sender messaging.Sender, logger *logging.Logger) *WhatsAppHandler {
	if logger == nil {
		logger = logging.Default()
	}
	if sender == nil {
		sender = messaging.NopSender{}
	}
	return &WhatsAppHandler{engine: engine, sender: sender, logger: logger}
}

type whatsappWebhook struct {
	From      string `json:"from"`
	Message   string `json:"message"`
	MessageID string `json:"messageId"`
	SessionID string `json:"sessionId"`
}

// Webhook processes one inbound WhatsApp message. The bridge retries on
// non-2xx, so validation problems return 200 with an error status instead.
func (h *WhatsAppHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	var payload whatsappWebhook
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "error", "message": "invalid payload"})
		return
	}
	if strings.TrimSpace(payload.Message) == "" || strings.TrimSpace(payload.From) == "" {
		h.logger.Warn("whatsapp webhook missing message or sender")
		writeJSON(w, http.StatusOK, map[string]string{"status": "error", "message": "invalid payload"})
		return
	}

	sessionID := payload.SessionID
	if sessionID == "" {
		sessionID = messaging.SessionIDFromJID(payload.From)
	}
	if sessionID == "" {
		writeJSON(w, http.StatusOK, map[string]string{"status": "error", "message": "invalid sender"})
		return
	}

	result := h.engine.ProcessMessage(r.Context(), sessionID, session.PlatformWhatsApp, payload.Message)

	if err := h.sender.Send(r.Context(), payload.From, result.Text); err != nil {
		h.logger.Error("whatsapp reply failed", "session_id", sessionID, "error", err)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "success",
		"session_id": sessionID,
		"message_id": payload.MessageID,
		"ai_mode":    result.AIMode,
	})
}
