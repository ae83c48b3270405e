// Package assignment creates leads from finished conversations, fans out
// claim notifications to the lawyer roster, and processes claim links with
// first-click-wins semantics.
package assignment

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/mlima/intake-backend/internal/lawyers"
	"github.com/mlima/intake-backend/internal/leads"
	"github.com/mlima/intake-backend/internal/messaging"
	"github.com/mlima/intake-backend/internal/observability/metrics"
	"github.com/mlima/intake-backend/pkg/logging"
)

const (
	situationPreviewLen = 200
	waMessagePreviewLen = 100
)

// FanoutResult reports how the claim-notification fan-out went.
type FanoutResult struct {
	Notified int
	Total    int
	Failed   []string
}

// Success is true when at least one lawyer received the notification.
func (r FanoutResult) Success() bool {
	return r.Notified > 0
}

// ClaimResult is the outcome of a lawyer clicking a claim link.
type ClaimResult struct {
	Lead        *leads.Lead
	Lawyer      lawyers.Lawyer
	WhatsAppURL string
	// AlreadyTaken is set when another lawyer claimed the lead first.
	AlreadyTaken bool
	TakenByName  string
}

// Service owns lead creation and the lawyer claim workflow.
type Service struct {
	repo       leads.Repository
	directory  *lawyers.Directory
	sender     messaging.Sender
	baseURL    string
	maxRetries int
	retryDelay time.Duration
	pause      time.Duration
	logger     *logging.Logger
	metrics    *metrics.IntakeMetrics
}

// Option customizes a Service.
type Option func(*Service)

// WithRetryPolicy sets the per-lawyer send retry count and delay.
func WithRetryPolicy(maxRetries int, delay time.Duration) Option {
	return func(s *Service) {
		if maxRetries > 0 {
			s.maxRetries = maxRetries
		}
		s.retryDelay = delay
	}
}

// WithFanoutPause sets the pause between lawyers during fan-out.
func WithFanoutPause(d time.Duration) Option {
	return func(s *Service) {
		s.pause = d
	}
}

// WithMetrics attaches intake metrics.
func WithMetrics(m *metrics.IntakeMetrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// NewService builds the assignment service. baseURL is the public address
// claim links point at.
func NewService(repo leads.Repository, directory *lawyers.Directory, sender messaging.Sender, baseURL string, logger *logging.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	if sender == nil {
		sender = messaging.NopSender{}
	}
	s := &Service{
		repo:       repo,
		directory:  directory,
		sender:     sender,
		baseURL:    strings.TrimRight(baseURL, "/"),
		maxRetries: 3,
		retryDelay: 2 * time.Second,
		pause:      time.Second,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateLead stores the lead without notifying anyone.
func (s *Service) CreateLead(ctx context.Context, req *leads.CreateLeadRequest) (*leads.Lead, error) {
	lead, err := s.repo.Create(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("assignment: create lead: %w", err)
	}
	s.metrics.LeadCreated(lead.Platform)
	s.logger.Info("lead created", "lead_id", lead.ID, "area", lead.Area, "platform", lead.Platform)
	return lead, nil
}

// Lead returns the stored lead so a lawyer can review the case details
// before claiming it.
func (s *Service) Lead(ctx context.Context, leadID string) (*leads.Lead, error) {
	return s.repo.GetByID(ctx, leadID)
}

// CreateLeadWithLinks stores the lead and notifies every lawyer on the
// roster with a personalized claim link. Notification failures do not fail
// lead creation.
func (s *Service) CreateLeadWithLinks(ctx context.Context, req *leads.CreateLeadRequest) (*leads.Lead, FanoutResult, error) {
	lead, err := s.CreateLead(ctx, req)
	if err != nil {
		return nil, FanoutResult{}, err
	}
	return lead, s.NotifyRoster(ctx, lead), nil
}

// Claim processes a claim-link click. The first lawyer wins; later clicks
// learn who took the case. The winning lawyer receives a confirmation with
// a wa.me deep link to the client, and the rest of the roster is told the
// case is taken.
func (s *Service) Claim(ctx context.Context, leadID, lawyerID string) (*ClaimResult, error) {
	lawyer, ok := s.directory.ByID(lawyerID)
	if !ok {
		return nil, fmt.Errorf("assignment: unknown lawyer %q", lawyerID)
	}

	lead, err := s.repo.Assign(ctx, leadID, lawyer.ID, lawyer.Name)
	if errors.Is(err, leads.ErrAlreadyAssigned) {
		takenBy := lead.AssignedName
		if takenBy == "" {
			takenBy = lead.AssignedTo
			if winner, ok := s.directory.ByID(lead.AssignedTo); ok {
				takenBy = winner.Name
			}
		}
		return &ClaimResult{
			Lead:         lead,
			Lawyer:       lawyer,
			AlreadyTaken: true,
			TakenByName:  takenBy,
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("assignment: claim lead: %w", err)
	}

	s.metrics.LeadAssigned()
	s.logger.Info("lead assigned", "lead_id", lead.ID, "lawyer", lawyer.Name)

	waURL := s.whatsappURL(lead, lawyer)
	s.sendConfirmation(ctx, lawyer, lead)
	s.notifyOthersTaken(ctx, lawyer, lead)

	return &ClaimResult{
		Lead:        lead,
		Lawyer:      lawyer,
		WhatsAppURL: waURL,
	}, nil
}

// ClaimURL builds the link a lawyer clicks to take a lead.
func (s *Service) ClaimURL(leadID, lawyerID string) string {
	return fmt.Sprintf("%s/api/v1/leads/%s/assign/%s", s.baseURL, leadID, lawyerID)
}

// NotifyRoster sends the claim notification to every lawyer, best effort.
// Partial success is a valid outcome.
func (s *Service) NotifyRoster(ctx context.Context, lead *leads.Lead) FanoutResult {
	roster := s.directory.All()
	result := FanoutResult{Total: len(roster)}

	for i, lawyer := range roster {
		if i > 0 && s.pause > 0 {
			sleepCtx(ctx, s.pause)
		}
		msg := s.claimNotification(lead, lawyer)
		if err := s.sendWithRetry(ctx, lawyer.Phone, msg); err != nil {
			s.logger.Error("claim notification failed", "lead_id", lead.ID, "lawyer", lawyer.Name, "error", err)
			result.Failed = append(result.Failed, lawyer.ID)
			continue
		}
		s.metrics.LawyerNotified()
		s.logger.Info("claim notification sent", "lead_id", lead.ID, "lawyer", lawyer.Name)
		result.Notified++
	}
	if !result.Success() {
		s.logger.Error("no lawyer could be notified about new lead", "lead_id", lead.ID)
	}
	return result
}

func (s *Service) claimNotification(lead *leads.Lead, lawyer lawyers.Lawyer) string {
	return fmt.Sprintf(`🚨 Novo cliente recebido!

Nome: %s
Telefone: %s
Área jurídica: %s
Situação: %s

👉 Clique no link abaixo se você deseja assumir este caso:
%s`,
		lead.Name,
		lead.Phone,
		lead.Area,
		truncate(lead.Description, situationPreviewLen),
		s.ClaimURL(lead.ID, lawyer.ID),
	)
}

func (s *Service) sendConfirmation(ctx context.Context, lawyer lawyers.Lawyer, lead *leads.Lead) {
	msg := fmt.Sprintf("✅ Você assumiu com sucesso este cliente: %s\n\nLead ID: %s\n\nPor favor, entre em contato com o cliente o quanto antes.",
		lead.Name, lead.ID)
	if err := s.sendWithRetry(ctx, lawyer.Phone, msg); err != nil {
		s.logger.Error("assignment confirmation failed", "lead_id", lead.ID, "lawyer", lawyer.Name, "error", err)
	}
}

func (s *Service) notifyOthersTaken(ctx context.Context, winner lawyers.Lawyer, lead *leads.Lead) {
	msg := fmt.Sprintf("ℹ️ O cliente '%s' foi atribuido por %s.", lead.Name, winner.Name)
	for _, lawyer := range s.directory.All() {
		if lawyer.ID == winner.ID {
			continue
		}
		if err := s.sender.Send(ctx, lawyer.Phone, msg); err != nil {
			s.logger.Warn("case-taken notice failed", "lead_id", lead.ID, "lawyer", lawyer.Name, "error", err)
		}
	}
}

// whatsappURL builds a wa.me deep link with a pre-filled greeting so the
// lawyer can open a chat with the client in one tap.
func (s *Service) whatsappURL(lead *leads.Lead, lawyer lawyers.Lawyer) string {
	phone := messaging.FormatBR(lead.Phone)
	if phone == "" {
		phone = messaging.Digits(lead.Phone)
	}
	msg := fmt.Sprintf("Olá %s, eu sou %s e vou cuidar do seu caso de %s. Situação: %s",
		lead.Name, lawyer.Name, lead.Area, truncate(lead.Description, waMessagePreviewLen))
	return fmt.Sprintf("https://wa.me/%s?text=%s", phone, url.QueryEscape(msg))
}

func (s *Service) sendWithRetry(ctx context.Context, to, body string) error {
	var lastErr error
	for attempt := 1; attempt <= s.maxRetries; attempt++ {
		err := s.sender.Send(ctx, to, body)
		if err == nil {
			return nil
		}
		lastErr = err
		if attempt < s.maxRetries {
			sleepCtx(ctx, s.retryDelay)
		}
	}
	return lastErr
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}

func sleepCtx(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
