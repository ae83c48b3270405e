package session

import "time"

// Platform identifies the channel a conversation arrived on.
type Platform string

const (
	PlatformWeb      Platform = "web"
	PlatformWhatsApp Platform = "whatsapp"
)

// Session is the per-conversation state record. One exists per web session id
// or WhatsApp phone-derived id, and it is exclusively owned by the turn
// currently processing it.
type Session struct {
	ID                 string            `json:"session_id"`
	Platform           Platform          `json:"platform"`
	CurrentStep        int               `json:"current_step"`
	LeadData           map[string]string `json:"lead_data"`
	ValidationAttempts map[int]int       `json:"validation_attempts"`
	FlowCompleted      bool              `json:"flow_completed"`
	PhoneCollected     bool              `json:"phone_collected"`
	PhoneSubmitted     bool              `json:"phone_submitted"`
	AIMode             bool              `json:"ai_mode"`
	FinalizationDone   bool              `json:"finalization_done"`
	LeadID             string            `json:"lead_id,omitempty"`
	PhoneNumber        string            `json:"phone_number,omitempty"`
	MessageCount       int               `json:"message_count"`
	LastUserMessage    string            `json:"last_user_message,omitempty"`
	CreatedAt          time.Time         `json:"created_at"`
	LastUpdated        time.Time         `json:"last_updated"`
}

// New creates a fresh session positioned at the first step.
func New(id string, platform Platform) *Session {
	now := time.Now().UTC()
	return &Session{
		ID:                 id,
		Platform:           platform,
		CurrentStep:        1,
		LeadData:           make(map[string]string),
		ValidationAttempts: make(map[int]int),
		CreatedAt:          now,
		LastUpdated:        now,
	}
}

// Attempts returns the failed-validation count for a step.
func (s *Session) Attempts(stepID int) int {
	if s.ValidationAttempts == nil {
		return 0
	}
	return s.ValidationAttempts[stepID]
}

// RecordFailure increments the failed-validation counter for a step and
// returns the new count.
func (s *Session) RecordFailure(stepID int) int {
	if s.ValidationAttempts == nil {
		s.ValidationAttempts = make(map[int]int)
	}
	s.ValidationAttempts[stepID]++
	return s.ValidationAttempts[stepID]
}

// ResetAttempts clears the failed-validation counter for a step.
func (s *Session) ResetAttempts(stepID int) {
	if s.ValidationAttempts != nil {
		delete(s.ValidationAttempts, stepID)
	}
}

// SetField stores a collected value under the given field name and every
// provided alias, without overwriting an existing value with an alias copy.
func (s *Session) SetField(field, value string, aliases ...string) {
	if s.LeadData == nil {
		s.LeadData = make(map[string]string)
	}
	s.LeadData[field] = value
	for _, alias := range aliases {
		if alias == field {
			continue
		}
		s.LeadData[alias] = value
	}
}

// Field returns the first non-empty value among the given keys.
func (s *Session) Field(keys ...string) string {
	for _, k := range keys {
		if v, ok := s.LeadData[k]; ok && v != "" {
			return v
		}
	}
	return ""
}

// Touch bumps the last-updated timestamp.
func (s *Session) Touch() {
	s.LastUpdated = time.Now().UTC()
}
