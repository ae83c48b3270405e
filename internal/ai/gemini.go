package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/mlima/intake-backend/pkg/logging"
)

// GeminiClient implements Client using Google's Gemini API.
type GeminiClient struct {
	client       *genai.Client
	modelID      string
	systemPrompt string
	timeout      time.Duration
	logger       *logging.Logger
}

// GeminiOption customizes a GeminiClient.
type GeminiOption func(*GeminiClient)

// WithSystemPrompt overrides the default assistant instructions.
func WithSystemPrompt(prompt string) GeminiOption {
	return func(c *GeminiClient) {
		if strings.TrimSpace(prompt) != "" {
			c.systemPrompt = prompt
		}
	}
}

// WithTimeout bounds each generation call.
func WithTimeout(d time.Duration) GeminiOption {
	return func(c *GeminiClient) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithLogger sets the logger used for generation diagnostics.
func WithLogger(logger *logging.Logger) GeminiOption {
	return func(c *GeminiClient) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewGeminiClient creates a Gemini-backed assistant client.
func NewGeminiClient(ctx context.Context, apiKey, modelID string, opts ...GeminiOption) (*GeminiClient, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("ai: gemini api key is required")
	}
	if strings.TrimSpace(modelID) == "" {
		modelID = "gemini-1.5-flash"
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("ai: create gemini client: %w", err)
	}

	c := &GeminiClient{
		client:       client,
		modelID:      modelID,
		systemPrompt: DefaultSystemPrompt,
		timeout:      15 * time.Second,
		logger:       logging.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Generate produces an assistant reply for a user message, grounding the
// model on whatever lead data the session already holds.
func (c *GeminiClient) Generate(ctx context.Context, message, sessionID string, sessionContext map[string]string) (string, error) {
	if strings.TrimSpace(message) == "" {
		return "", errors.New("ai: message is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	model := c.client.GenerativeModel(c.modelID)
	model.SetTemperature(0.4)

	instruction := c.systemPrompt
	if preamble := contextPreamble(sessionContext); preamble != "" {
		instruction = instruction + "\n\n" + preamble
	}
	model.SystemInstruction = genai.NewUserContent(genai.Text(instruction))

	start := time.Now()
	resp, err := model.GenerateContent(ctx, genai.Text(message))
	if err != nil {
		c.logger.Warn("ai: gemini generation failed",
			"session_id", sessionID,
			"model", c.modelID,
			"elapsed", time.Since(start),
			"error", err)
		return "", fmt.Errorf("ai: gemini generation: %w", err)
	}

	text, err := extractText(resp)
	if err != nil {
		return "", err
	}
	c.logger.Debug("ai: gemini reply generated",
		"session_id", sessionID,
		"model", c.modelID,
		"elapsed", time.Since(start))
	return text, nil
}

// Close releases resources held by the underlying client.
func (c *GeminiClient) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

func extractText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", errors.New("ai: gemini returned no candidates")
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", errors.New("ai: gemini returned empty content")
	}

	var b strings.Builder
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	out := strings.TrimSpace(b.String())
	if out == "" {
		return "", errors.New("ai: gemini returned empty text")
	}
	return out, nil
}
