// Package messaging sends outbound WhatsApp messages through the Baileys
// bridge service and normalizes Brazilian phone numbers.
package messaging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/mlima/intake-backend/pkg/logging"
)

var bridgeTracer = otel.Tracer("intake.internal.messaging.bridge")

// Sender dispatches a text message to a recipient identified by phone
// number or JID.
type Sender interface {
	Send(ctx context.Context, to, body string) error
}

// BridgeSender posts messages to the WhatsApp bridge's HTTP API.
type BridgeSender struct {
	baseURL    string
	httpClient *http.Client
	logger     *logging.Logger
}

// NewBridgeSender builds a sender for the bridge at baseURL
// (e.g. http://whatsapp_bot:3000).
func NewBridgeSender(baseURL string, timeout time.Duration, logger *logging.Logger) *BridgeSender {
	if logger == nil {
		logger = logging.Default()
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &BridgeSender{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

var _ Sender = (*BridgeSender)(nil)

// Send delivers one message through the bridge. The recipient may be a bare
// number or a full JID.
func (s *BridgeSender) Send(ctx context.Context, to, body string) error {
	if s.baseURL == "" {
		return errors.New("messaging: bridge url missing")
	}
	jid := WhatsAppJID(to)
	if jid == "" {
		return errors.New("messaging: recipient required")
	}
	if strings.TrimSpace(body) == "" {
		return errors.New("messaging: body required")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	ctx, span := bridgeTracer.Start(ctx, "messaging.bridge.send")
	defer span.End()
	span.SetAttributes(attribute.String("intake.to", jid))

	payload, err := json.Marshal(map[string]string{
		"number":  jid,
		"message": body,
	})
	if err != nil {
		return fmt.Errorf("messaging: marshal bridge payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/send", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("messaging: build bridge request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		s.logger.Error("whatsapp bridge unreachable", "to", jid, "error", err)
		return fmt.Errorf("messaging: bridge request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		err := fmt.Errorf("messaging: bridge send failed: status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
		span.RecordError(err)
		s.logger.Error("whatsapp bridge rejected message", "to", jid, "status", resp.StatusCode)
		return err
	}

	s.logger.Info("whatsapp message sent", "to", jid)
	return nil
}

// NopSender discards messages. Used on web-only deployments and in tests.
type NopSender struct{}

func (NopSender) Send(context.Context, string, string) error { return nil }
