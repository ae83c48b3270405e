package ai

import (
	"errors"
	"strings"
	"testing"
)

func TestIsQuotaError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"http 429", errors.New("googleapi: Error 429: Resource has been exhausted"), true},
		{"quota word", errors.New("Quota exceeded for quota metric"), true},
		{"rate limit", errors.New("rate limit reached, slow down"), true},
		{"grpc resource exhausted", errors.New("rpc error: code = ResourceExhausted desc = quota"), true},
		{"billing", errors.New("billing account not configured"), true},
		{"too many requests", errors.New("Too Many Requests"), true},
		{"timeout", errors.New("context deadline exceeded"), false},
		{"network", errors.New("dial tcp: connection refused"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsQuotaError(tt.err); got != tt.want {
				t.Errorf("IsQuotaError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestContextPreamble(t *testing.T) {
	got := contextPreamble(map[string]string{
		"name":  "Carlos Pereira",
		"area":  "Direito Penal",
		"empty": "  ",
	})
	if !strings.Contains(got, "- area: Direito Penal") {
		t.Errorf("preamble missing area line: %q", got)
	}
	if !strings.Contains(got, "- name: Carlos Pereira") {
		t.Errorf("preamble missing name line: %q", got)
	}
	if strings.Contains(got, "empty") {
		t.Errorf("preamble should skip blank values: %q", got)
	}

	// Deterministic key order.
	if again := contextPreamble(map[string]string{"name": "Carlos Pereira", "area": "Direito Penal", "empty": "  "}); again != got {
		t.Errorf("preamble not stable across calls")
	}

	if contextPreamble(nil) != "" {
		t.Error("nil context should produce empty preamble")
	}
	if contextPreamble(map[string]string{"a": " "}) != "" {
		t.Error("all-blank context should produce empty preamble")
	}
}
