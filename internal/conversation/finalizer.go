package conversation

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/mlima/intake-backend/internal/assignment"
	"github.com/mlima/intake-backend/internal/flow"
	"github.com/mlima/intake-backend/internal/leads"
	"github.com/mlima/intake-backend/internal/messaging"
	"github.com/mlima/intake-backend/internal/session"
	"github.com/mlima/intake-backend/pkg/logging"
)

// Finalizer turns a completed session into a persisted lead and kicks off
// the confirmation and lawyer-notification side effects.
type Finalizer struct {
	assignments *assignment.Service
	flows       flow.Source
	sender      messaging.Sender
	logger      *logging.Logger

	// syncSideEffects runs confirmation and fan-out inline instead of in a
	// goroutine. Tests rely on it for determinism.
	syncSideEffects bool
}

// FinalizerOption customizes a Finalizer.
type FinalizerOption func(*Finalizer)

// WithSyncSideEffects makes side effects run inline.
func WithSyncSideEffects() FinalizerOption {
	return func(f *Finalizer) {
		f.syncSideEffects = true
	}
}

// NewFinalizer wires the finalizer. sender may be nil on web-only setups.
func NewFinalizer(assignments *assignment.Service, flows flow.Source, sender messaging.Sender, logger *logging.Logger, opts ...FinalizerOption) *Finalizer {
	if logger == nil {
		logger = logging.Default()
	}
	if sender == nil {
		sender = messaging.NopSender{}
	}
	f := &Finalizer{
		assignments: assignments,
		flows:       flows,
		sender:      sender,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Finalize completes the intake for a session. Idempotent: a second call
// returns the confirmation text again without creating another lead.
//
// When no phone number is available yet, it returns the completion message
// followed by a phone request and leaves the session awaiting the phone
// sub-flow. Once a phone is present it persists the lead, fires the side
// effects, flags the session finalized, and switches it to AI mode.
func (f *Finalizer) Finalize(ctx context.Context, sess *session.Session) string {
	completion := f.completionMessage(ctx, sess)

	if sess.FinalizationDone {
		return completion
	}

	if sess.PhoneNumber == "" {
		if raw := f.extractPhone(sess); raw != "" {
			sess.PhoneNumber = raw
			sess.PhoneCollected = true
		}
	}
	if sess.PhoneNumber == "" {
		return completion + "\n\n" + flow.PhonePrompt
	}

	lead := f.persistLead(ctx, sess)
	sess.LeadID = lead.ID
	sess.FinalizationDone = true
	sess.AIMode = true

	f.runSideEffects(sess, lead)
	return completion
}

// extractPhone digs a phone number out of the collected answers.
func (f *Finalizer) extractPhone(sess *session.Session) string {
	candidates := []string{
		sess.Field("phone_number", "phone", "telefone"),
		sess.Field("contact_info", "contact", "contato"),
	}
	for _, c := range candidates {
		if c == "" {
			continue
		}
		if raw := messaging.ExtractPhone(c); raw != "" {
			if formatted := messaging.FormatBR(raw); formatted != "" {
				return formatted
			}
		}
	}
	return ""
}

// persistLead writes the lead record. A storage failure does not block the
// user-facing flow; the lead continues with an offline id and the
// notifications still carry the collected facts.
func (f *Finalizer) persistLead(ctx context.Context, sess *session.Session) *leads.Lead {
	req := &leads.CreateLeadRequest{
		Name:        sess.Field("user_name", "name", "identification"),
		Phone:       sess.PhoneNumber,
		Area:        sess.Field("area_qualification", "area", "area_of_law"),
		Description: sess.Field("problem_description", "situation", "description"),
		Platform:    string(sess.Platform),
		SessionID:   sess.ID,
	}

	lead, err := f.assignments.CreateLead(ctx, req)
	if err != nil {
		f.logger.Error("lead persistence failed, continuing with offline id", "session_id", sess.ID, "error", err)
		return &leads.Lead{
			ID:          "offline-" + uuid.NewString(),
			Name:        req.Name,
			Phone:       req.Phone,
			Area:        req.Area,
			Description: req.Description,
			Platform:    req.Platform,
			SessionID:   req.SessionID,
			Status:      leads.StatusNew,
		}
	}
	return lead
}

func (f *Finalizer) runSideEffects(sess *session.Session, lead *leads.Lead) {
	run := func() {
		// Detached from the request context so a returned HTTP response
		// does not cancel the fan-out.
		ctx := context.Background()
		f.sendLeadConfirmation(ctx, lead)
		result := f.assignments.NotifyRoster(ctx, lead)
		f.logger.Info("lawyer fan-out finished",
			"lead_id", lead.ID, "notified", result.Notified, "total", result.Total)
	}
	if f.syncSideEffects {
		run()
		return
	}
	go run()
}

// sendLeadConfirmation messages the lead's own phone with a summary.
func (f *Finalizer) sendLeadConfirmation(ctx context.Context, lead *leads.Lead) {
	if lead.Phone == "" {
		return
	}
	msg := fmt.Sprintf("✅ %s, recebemos suas informações!\n\nÁrea: %s\nSituação: %s\n\nUm de nossos advogados entrará em contato em breve. Obrigado pela confiança!",
		firstName(lead.Name), lead.Area, lead.Description)
	if err := f.sender.Send(ctx, lead.Phone, msg); err != nil {
		f.logger.Warn("lead confirmation message failed", "lead_id", lead.ID, "error", err)
	}
}

func (f *Finalizer) completionMessage(ctx context.Context, sess *session.Session) string {
	template := flow.Default().CompletionMessage
	if f.flows != nil {
		if active, err := f.flows.Flow(ctx); err == nil && active != nil && strings.TrimSpace(active.CompletionMessage) != "" {
			template = active.CompletionMessage
		}
	}
	return flow.Render(template, sess.LeadData)
}
