package leads

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the pgx pool surface the repository uses. pgxpool.Pool satisfies it.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository stores leads in the relational database.
type PostgresRepository struct {
	db DB
}

// NewPostgresRepository initializes a repo backed by a pgx pool.
func NewPostgresRepository(db DB) *PostgresRepository {
	if db == nil {
		panic("leads: db required")
	}
	return &PostgresRepository{db: db}
}

// Create inserts a new row.
func (r *PostgresRepository) Create(ctx context.Context, req *CreateLeadRequest) (*Lead, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	id := uuid.New()
	query := `
		INSERT INTO leads (id, name, phone, area, description, platform, session_id, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at
	`
	var createdAt time.Time
	if err := r.db.QueryRow(ctx, query,
		id,
		req.Name,
		req.Phone,
		req.Area,
		req.Description,
		req.Platform,
		req.SessionID,
		string(StatusNew),
	).Scan(&createdAt); err != nil {
		return nil, fmt.Errorf("leads: insert failed: %w", err)
	}

	return &Lead{
		ID:          id.String(),
		Name:        req.Name,
		Phone:       req.Phone,
		Area:        req.Area,
		Description: req.Description,
		Platform:    req.Platform,
		SessionID:   req.SessionID,
		Status:      StatusNew,
		CreatedAt:   createdAt,
	}, nil
}

// GetByID fetches a lead.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*Lead, error) {
	query := `
		SELECT id, name, phone, area, description, platform, session_id, status,
		       COALESCE(assigned_to, ''), COALESCE(assigned_name, ''),
		       COALESCE(assigned_at, 'epoch'::timestamptz), created_at
		FROM leads
		WHERE id = $1
	`
	row := r.db.QueryRow(ctx, query, id)
	lead, err := scanLead(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrLeadNotFound
		}
		return nil, fmt.Errorf("leads: select failed: %w", err)
	}
	return lead, nil
}

// Assign claims the lead for a lawyer. The conditional update makes the
// first claim win; a losing claim sees zero rows affected and gets the
// already-assigned state back.
func (r *PostgresRepository) Assign(ctx context.Context, id, lawyerID, lawyerName string) (*Lead, error) {
	query := `
		UPDATE leads
		SET status = $4, assigned_to = $2, assigned_name = $3, assigned_at = now()
		WHERE id = $1 AND assigned_to IS NULL
	`
	tag, err := r.db.Exec(ctx, query, id, lawyerID, lawyerName, string(StatusAssigned))
	if err != nil {
		return nil, fmt.Errorf("leads: assign failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		lead, err := r.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		return lead, ErrAlreadyAssigned
	}
	return r.GetByID(ctx, id)
}

func scanLead(row pgx.Row) (*Lead, error) {
	var lead Lead
	var assignedAt time.Time
	if err := row.Scan(
		&lead.ID,
		&lead.Name,
		&lead.Phone,
		&lead.Area,
		&lead.Description,
		&lead.Platform,
		&lead.SessionID,
		&lead.Status,
		&lead.AssignedTo,
		&lead.AssignedName,
		&assignedAt,
		&lead.CreatedAt,
	); err != nil {
		return nil, err
	}
	if assignedAt.Unix() > 0 {
		lead.AssignedAt = assignedAt
	}
	return &lead, nil
}
