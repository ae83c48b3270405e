package leads

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Repository defines the interface for lead storage.
type Repository interface {
	Create(ctx context.Context, req *CreateLeadRequest) (*Lead, error)
	GetByID(ctx context.Context, id string) (*Lead, error)
	// Assign claims the lead for a lawyer. It succeeds at most once per
	// lead; a second claim returns ErrAlreadyAssigned along with the
	// current state of the lead.
	Assign(ctx context.Context, id, lawyerID, lawyerName string) (*Lead, error)
}

// InMemoryRepository keeps leads in process memory. Used in tests and as a
// degraded fallback when the database is unavailable.
type InMemoryRepository struct {
	mu    sync.RWMutex
	leads map[string]*Lead
}

// NewInMemoryRepository creates a new in-memory repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		leads: make(map[string]*Lead),
	}
}

// Create stores a new lead in memory.
func (r *InMemoryRepository) Create(ctx context.Context, req *CreateLeadRequest) (*Lead, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	lead := &Lead{
		ID:          uuid.New().String(),
		Name:        req.Name,
		Phone:       req.Phone,
		Area:        req.Area,
		Description: req.Description,
		Platform:    req.Platform,
		SessionID:   req.SessionID,
		Status:      StatusNew,
		CreatedAt:   time.Now().UTC(),
	}

	r.mu.Lock()
	r.leads[lead.ID] = lead
	r.mu.Unlock()

	return copyLead(lead), nil
}

// GetByID retrieves a lead by ID.
func (r *InMemoryRepository) GetByID(ctx context.Context, id string) (*Lead, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	lead, ok := r.leads[id]
	if !ok {
		return nil, ErrLeadNotFound
	}
	return copyLead(lead), nil
}

// Assign claims the lead for a lawyer, first claim wins.
func (r *InMemoryRepository) Assign(ctx context.Context, id, lawyerID, lawyerName string) (*Lead, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	lead, ok := r.leads[id]
	if !ok {
		return nil, ErrLeadNotFound
	}
	if lead.AssignedTo != "" {
		return copyLead(lead), ErrAlreadyAssigned
	}

	lead.AssignedTo = lawyerID
	lead.AssignedName = lawyerName
	lead.AssignedAt = time.Now().UTC()
	lead.Status = StatusAssigned
	return copyLead(lead), nil
}

func copyLead(l *Lead) *Lead {
	cp := *l
	return &cp
}
