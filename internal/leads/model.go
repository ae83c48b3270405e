// Package leads stores the leads produced by completed intake conversations.
package leads

import (
	"strings"
	"time"
)

// Status tracks the assignment lifecycle of a lead.
type Status string

const (
	StatusNew       Status = "new"
	StatusAssigned  Status = "assigned"
	StatusContacted Status = "contacted"
)

// Lead is one qualified client produced by the intake flow.
type Lead struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Phone        string    `json:"phone"`
	Area         string    `json:"area"`
	Description  string    `json:"description"`
	Platform     string    `json:"platform"`
	SessionID    string    `json:"session_id"`
	Status       Status    `json:"status"`
	AssignedTo   string    `json:"assigned_to,omitempty"`
	AssignedName string    `json:"assigned_lawyer_name,omitempty"`
	AssignedAt   time.Time `json:"assigned_at,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// CreateLeadRequest carries the fields extracted from a finished conversation.
type CreateLeadRequest struct {
	Name        string `json:"name"`
	Phone       string `json:"phone"`
	Area        string `json:"area"`
	Description string `json:"description"`
	Platform    string `json:"platform"`
	SessionID   string `json:"session_id"`
}

// Validate checks the request is storable.
func (r *CreateLeadRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return ErrInvalidName
	}
	if strings.TrimSpace(r.Phone) == "" {
		return ErrMissingPhone
	}
	return nil
}
