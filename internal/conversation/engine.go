// Package conversation implements the intake state machine: it walks a user
// through the scripted qualification flow, escalates to flexible validation
// after repeated failures, finalizes the lead, and hands the session over to
// the AI assistant once intake is done.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/mlima/intake-backend/internal/ai"
	"github.com/mlima/intake-backend/internal/flow"
	"github.com/mlima/intake-backend/internal/messaging"
	"github.com/mlima/intake-backend/internal/observability/metrics"
	"github.com/mlima/intake-backend/internal/session"
	"github.com/mlima/intake-backend/pkg/logging"
)

const (
	defaultFlexibleThreshold = 3
	defaultAITimeout         = 15 * time.Second
	defaultAICooldown        = 5 * time.Minute
)

const (
	apologyMessage = "Desculpe, tive um problema técnico por aqui. Vamos recomeçar do início.\n\n"

	invalidPhoneMessage = "Não consegui identificar um número de telefone válido. " +
		"Pode enviar novamente com DDD? Exemplo: (11) 91234-5678"
)

// Result is the outcome of one conversational turn.
type Result struct {
	Text          string `json:"response"`
	SessionID     string `json:"session_id"`
	CurrentStep   int    `json:"current_step"`
	FlowCompleted bool   `json:"flow_completed"`
	AIMode        bool   `json:"ai_mode"`
	LeadID        string `json:"lead_id,omitempty"`
}

// Engine is the per-turn orchestrator. One instance is shared by all
// sessions; per-session state lives in the session store.
type Engine struct {
	store     session.Store
	flows     flow.Source
	aiClient  ai.Client
	finalizer *Finalizer
	logger    *logging.Logger
	metrics   *metrics.IntakeMetrics

	flexibleThreshold int
	aiTimeout         time.Duration
	aiCooldown        time.Duration

	now func() time.Time

	cooldownMu    sync.Mutex
	cooldownUntil time.Time
}

// EngineOption customizes an Engine.
type EngineOption func(*Engine)

// WithFlexibleThreshold sets how many failed attempts on one step switch
// validation to flexible mode.
func WithFlexibleThreshold(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.flexibleThreshold = n
		}
	}
}

// WithAITimeout bounds each assistant generation call.
func WithAITimeout(d time.Duration) EngineOption {
	return func(e *Engine) {
		if d > 0 {
			e.aiTimeout = d
		}
	}
}

// WithAICooldown sets how long the assistant stays disabled after a
// quota-classified failure.
func WithAICooldown(d time.Duration) EngineOption {
	return func(e *Engine) {
		if d > 0 {
			e.aiCooldown = d
		}
	}
}

// WithMetrics attaches intake metrics.
func WithMetrics(m *metrics.IntakeMetrics) EngineOption {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithClock overrides the time source. Tests use this to move through the
// AI cooldown window.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// NewEngine wires the state machine. aiClient may be nil; the engine then
// always uses the scripted fallback after intake.
func NewEngine(store session.Store, flows flow.Source, aiClient ai.Client, finalizer *Finalizer, logger *logging.Logger, opts ...EngineOption) *Engine {
	if logger == nil {
		logger = logging.Default()
	}
	e := &Engine{
		store:             store,
		flows:             flows,
		aiClient:          aiClient,
		finalizer:         finalizer,
		logger:            logger,
		flexibleThreshold: defaultFlexibleThreshold,
		aiTimeout:         defaultAITimeout,
		aiCooldown:        defaultAICooldown,
		now:               time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ProcessMessage runs one turn. It never returns an error to the caller:
// any internal failure becomes an apology that restarts the script, so the
// conversation cannot hard-fail in front of the user.
func (e *Engine) ProcessMessage(ctx context.Context, sessionID string, platform session.Platform, message string) (result *Result) {
	sess := e.loadOrCreate(ctx, sessionID, platform)

	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("turn processing panicked", "session_id", sessionID, "panic", fmt.Sprint(r))
			result = e.recoverTurn(ctx, sess)
		}
	}()

	sess.MessageCount++
	sess.LastUserMessage = message

	var text string
	switch {
	case sess.AIMode:
		text = e.aiTurn(ctx, sess, message)
		e.metrics.MessageProcessed(string(sess.Platform), "ai")
	case sess.FlowCompleted && !sess.PhoneCollected:
		text = e.phoneTurn(ctx, sess, message)
		e.metrics.MessageProcessed(string(sess.Platform), "phone")
	default:
		text = e.scriptedTurn(ctx, sess, message)
		e.metrics.MessageProcessed(string(sess.Platform), "scripted")
	}

	if err := e.store.Save(ctx, sess); err != nil {
		e.logger.Error("session save failed", "session_id", sess.ID, "error", err)
	}
	return e.result(sess, text)
}

// SubmitPhone accepts a phone number out of band (e.g. a dedicated web
// form field) and finalizes the lead with it.
func (e *Engine) SubmitPhone(ctx context.Context, sessionID, phone string) *Result {
	sess, err := e.store.Get(ctx, sessionID)
	if err != nil {
		return &Result{Text: invalidPhoneMessage, SessionID: sessionID}
	}

	formatted := messaging.FormatBR(phone)
	if formatted == "" {
		return e.result(sess, invalidPhoneMessage)
	}
	sess.PhoneNumber = formatted
	sess.PhoneCollected = true
	sess.PhoneSubmitted = true

	text := e.finalizer.Finalize(ctx, sess)
	if err := e.store.Save(ctx, sess); err != nil {
		e.logger.Error("session save failed", "session_id", sess.ID, "error", err)
	}
	return e.result(sess, text)
}

// Reset discards the session so the next message starts a fresh intake.
func (e *Engine) Reset(ctx context.Context, sessionID string) error {
	if err := e.store.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("conversation: reset session: %w", err)
	}
	return nil
}

// Session exposes the current session state for status endpoints.
func (e *Engine) Session(ctx context.Context, sessionID string) (*session.Session, error) {
	return e.store.Get(ctx, sessionID)
}

func (e *Engine) loadOrCreate(ctx context.Context, sessionID string, platform session.Platform) *session.Session {
	sess, err := e.store.Get(ctx, sessionID)
	if err == nil {
		return sess
	}
	if !errors.Is(err, session.ErrNotFound) {
		e.logger.Warn("session load failed, starting fresh", "session_id", sessionID, "error", err)
	}
	return session.New(sessionID, platform)
}

// scriptedTurn handles one answer inside the guided flow.
func (e *Engine) scriptedTurn(ctx context.Context, sess *session.Session, message string) string {
	f := e.activeFlow(ctx)
	step, ok := f.Step(sess.CurrentStep)
	if !ok {
		// Corrupt step pointer, clamp back to the start.
		e.logger.Warn("session points at unknown step, resetting", "session_id", sess.ID, "step", sess.CurrentStep)
		sess.CurrentStep = 1
		step, ok = f.Step(1)
		if !ok {
			return apologyMessage
		}
	}

	// A bare greeting on the opening step re-prompts without consuming
	// the message as an answer.
	if sess.CurrentStep == 1 && len(sess.LeadData) == 0 && sess.Attempts(1) == 0 && flow.IsGreeting(message) {
		return e.render(step.Question, sess)
	}

	flexible := sess.Attempts(step.ID) >= e.flexibleThreshold
	if !flow.Validate(message, step, flexible) {
		attempts := sess.RecordFailure(step.ID)
		e.metrics.ValidationFailed(step.Field)
		e.logger.Debug("answer rejected",
			"session_id", sess.ID, "step", step.ID, "field", step.Field, "attempts", attempts)
		return e.render(step.ErrorMessage, sess) + "\n\n" + e.render(step.Question, sess)
	}

	value := flow.Normalize(message, step)
	sess.SetField(step.Field, value, flow.AliasKeys(step.Field)...)
	sess.ResetAttempts(step.ID)
	sess.CurrentStep = step.ID + 1

	next, ok := f.Step(sess.CurrentStep)
	if ok {
		return e.render(next.Question, sess)
	}

	sess.FlowCompleted = true
	return e.finalizer.Finalize(ctx, sess)
}

// phoneTurn handles the terminal phone-collection sub-flow.
func (e *Engine) phoneTurn(ctx context.Context, sess *session.Session, message string) string {
	raw := messaging.ExtractPhone(message)
	if raw == "" {
		return invalidPhoneMessage
	}
	formatted := messaging.FormatBR(raw)
	if formatted == "" {
		return invalidPhoneMessage
	}

	sess.PhoneNumber = formatted
	sess.PhoneCollected = true

	return e.finalizer.Finalize(ctx, sess)
}

// aiTurn generates a free-form reply, honoring the quota cooldown.
func (e *Engine) aiTurn(ctx context.Context, sess *session.Session, message string) string {
	if e.aiClient == nil || !e.aiAvailable() {
		return e.fallbackReply(sess)
	}

	aiCtx, cancel := context.WithTimeout(ctx, e.aiTimeout)
	defer cancel()

	start := e.now()
	reply, err := e.aiClient.Generate(aiCtx, message, sess.ID, SessionContext(sess))
	elapsed := e.now().Sub(start).Seconds()
	if err != nil {
		if ai.IsQuotaError(err) {
			e.tripCooldown()
			e.metrics.AIRequest("quota", elapsed)
			e.logger.Warn("assistant on cooldown after quota error", "session_id", sess.ID, "error", err)
		} else {
			e.metrics.AIRequest("error", elapsed)
			e.logger.Warn("assistant generation failed", "session_id", sess.ID, "error", err)
		}
		return e.fallbackReply(sess)
	}
	e.metrics.AIRequest("ok", elapsed)
	return reply
}

func (e *Engine) aiAvailable() bool {
	e.cooldownMu.Lock()
	defer e.cooldownMu.Unlock()
	return !e.now().Before(e.cooldownUntil)
}

func (e *Engine) tripCooldown() {
	e.cooldownMu.Lock()
	e.cooldownUntil = e.now().Add(e.aiCooldown)
	e.cooldownMu.Unlock()
}

// fallbackReply is the canned post-intake answer used while the assistant
// is unavailable.
func (e *Engine) fallbackReply(sess *session.Session) string {
	name := sess.Field("user_name", "name", "identification")
	if name != "" {
		return fmt.Sprintf("Obrigado pela sua mensagem, %s! Suas informações já foram registradas e um de nossos advogados entrará em contato em breve. Se tiver urgência, aguarde nosso retorno pelo WhatsApp.", firstName(name))
	}
	return "Obrigado pela sua mensagem! Suas informações já foram registradas e um de nossos advogados entrará em contato em breve."
}

func (e *Engine) recoverTurn(ctx context.Context, sess *session.Session) *Result {
	sess.CurrentStep = 1
	sess.ValidationAttempts = make(map[int]int)

	text := apologyMessage
	if f := e.activeFlow(ctx); f != nil {
		if step, ok := f.Step(1); ok {
			text += e.render(step.Question, sess)
		}
	}
	if err := e.store.Save(ctx, sess); err != nil {
		e.logger.Error("session save failed after recovery", "session_id", sess.ID, "error", err)
	}
	return e.result(sess, text)
}

func (e *Engine) activeFlow(ctx context.Context) *flow.Flow {
	f, err := e.flows.Flow(ctx)
	if err != nil || f == nil {
		e.logger.Warn("flow source unavailable, using built-in flow", "error", err)
		return flow.Default()
	}
	return f
}

func (e *Engine) render(template string, sess *session.Session) string {
	return flow.Render(template, sess.LeadData)
}

func (e *Engine) result(sess *session.Session, text string) *Result {
	return &Result{
		Text:          text,
		SessionID:     sess.ID,
		CurrentStep:   sess.CurrentStep,
		FlowCompleted: sess.FlowCompleted,
		AIMode:        sess.AIMode,
		LeadID:        sess.LeadID,
	}
}

// SessionContext projects the collected lead data into the context map
// passed to the assistant.
func SessionContext(sess *session.Session) map[string]string {
	out := make(map[string]string)
	for _, key := range []string{"name", "area", "situation", "phone"} {
		switch key {
		case "name":
			out[key] = sess.Field("user_name", "name", "identification")
		case "area":
			out[key] = sess.Field("area_qualification", "area", "area_of_law")
		case "situation":
			out[key] = sess.Field("problem_description", "situation", "description")
		case "phone":
			if sess.PhoneNumber != "" {
				out[key] = sess.PhoneNumber
			} else {
				out[key] = sess.Field("phone_number", "contact_info")
			}
		}
	}
	for k, v := range out {
		if strings.TrimSpace(v) == "" {
			delete(out, k)
		}
	}
	return out
}

func firstName(full string) string {
	parts := strings.Fields(full)
	if len(parts) == 0 {
		return full
	}
	return parts[0]
}
