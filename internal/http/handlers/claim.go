package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mlima/intake-backend/internal/assignment"
	"github.com/mlima/intake-backend/internal/leads"
	"github.com/mlima/intake-backend/pkg/logging"
)

// ClaimHandler processes the claim links lawyers receive over WhatsApp.
// It is a plain GET because the link is opened from a chat client.
type ClaimHandler struct {
	assignments *assignment.Service
	logger      *logging.Logger
}

// NewClaimHandler builds the handler.
func NewClaimHandler(assignments *assignment.Service, logger *logging.Logger) *ClaimHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &ClaimHandler{assignments: assignments, logger: logger}
}

// Assign claims the lead for the lawyer in the URL. On success it redirects
// straight into a WhatsApp chat with the client; when someone else got there
// first it renders a plain already-taken page.
func (h *ClaimHandler) Assign(w http.ResponseWriter, r *http.Request) {
	leadID := chi.URLParam(r, "leadID")
	lawyerID := chi.URLParam(r, "lawyerID")

	result, err := h.assignments.Claim(r.Context(), leadID, lawyerID)
	if err != nil {
		if errors.Is(err, leads.ErrLeadNotFound) {
			renderPage(w, http.StatusNotFound, "Lead não encontrado",
				"Este link não corresponde a nenhum cliente ativo.")
			return
		}
		h.logger.Error("claim failed", "lead_id", leadID, "lawyer_id", lawyerID, "error", err)
		renderPage(w, http.StatusBadRequest, "Não foi possível assumir o caso",
			"Verifique o link recebido e tente novamente.")
		return
	}

	if result.AlreadyTaken {
		renderPage(w, http.StatusOK, "Caso já assumido",
			fmt.Sprintf("Este cliente já foi assumido por %s.", result.TakenByName))
		return
	}

	http.Redirect(w, r, result.WhatsAppURL, http.StatusFound)
}

// Details returns the lead as JSON so a lawyer can review the case before
// deciding to claim it.
func (h *ClaimHandler) Details(w http.ResponseWriter, r *http.Request) {
	leadID := chi.URLParam(r, "leadID")

	lead, err := h.assignments.Lead(r.Context(), leadID)
	if err != nil {
		if errors.Is(err, leads.ErrLeadNotFound) {
			writeError(w, http.StatusNotFound, "lead not found")
			return
		}
		h.logger.Error("lead lookup failed", "lead_id", leadID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, lead)
}

func renderPage(w http.ResponseWriter, status int, title, body string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	fmt.Fprintf(w, `<!DOCTYPE html>
<html lang="pt-BR">
<head><meta charset="utf-8"><title>%s</title></head>
<body>
<h1>%s</h1>
<p>%s</p>
</body>
</html>
`, title, title, body)
}
