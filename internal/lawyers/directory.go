// Package lawyers holds the roster of lawyers who receive new-lead
// notifications and may claim leads.
package lawyers

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Lawyer is one member of the notification roster.
type Lawyer struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Area  string `json:"area,omitempty"`
}

// Directory is an immutable roster of lawyers.
type Directory struct {
	lawyers []Lawyer
	byID    map[string]Lawyer
}

// NewDirectory builds a directory, skipping entries without an id or phone.
// The id defaults to the phone digits when absent.
func NewDirectory(roster []Lawyer) *Directory {
	d := &Directory{byID: make(map[string]Lawyer)}
	for _, l := range roster {
		l.Phone = digits(l.Phone)
		if l.Phone == "" {
			continue
		}
		if l.ID == "" {
			l.ID = l.Phone
		}
		if _, dup := d.byID[l.ID]; dup {
			continue
		}
		d.lawyers = append(d.lawyers, l)
		d.byID[l.ID] = l
	}
	return d
}

// FromJSON parses a roster from a JSON array, as supplied via configuration.
func FromJSON(raw string) (*Directory, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, fmt.Errorf("lawyers: empty roster")
	}
	var roster []Lawyer
	if err := json.Unmarshal([]byte(raw), &roster); err != nil {
		return nil, fmt.Errorf("lawyers: parse roster: %w", err)
	}
	d := NewDirectory(roster)
	if len(d.lawyers) == 0 {
		return nil, fmt.Errorf("lawyers: roster has no usable entries")
	}
	return d, nil
}

// Default returns the built-in roster used when no configuration overrides it.
func Default() *Directory {
	return NewDirectory([]Lawyer{
		{ID: "maria-fernanda", Name: "Advogada Maria Fernanda", Phone: "555195690381"},
		{ID: "ricardo", Name: "Advogado Ricardo", Phone: "5511959840099"},
		{ID: "daniel", Name: "Advogado Daniel", Phone: "559985252836"},
	})
}

// All returns the roster in registration order.
func (d *Directory) All() []Lawyer {
	out := make([]Lawyer, len(d.lawyers))
	copy(out, d.lawyers)
	return out
}

// ByID looks a lawyer up by id.
func (d *Directory) ByID(id string) (Lawyer, bool) {
	l, ok := d.byID[id]
	return l, ok
}

// Len reports the roster size.
func (d *Directory) Len() int {
	return len(d.lawyers)
}

func digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
