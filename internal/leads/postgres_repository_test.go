package leads

import (
	"context"
	"errors"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v4"
)

func newMockRepo(t *testing.T) (pgxmock.PgxPoolIface, *PostgresRepository) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	t.Cleanup(mock.Close)
	return mock, NewPostgresRepository(mock)
}

func TestPostgresCreate(t *testing.T) {
	mock, repo := newMockRepo(t)

	now := time.Now().UTC()
	mock.ExpectQuery("INSERT INTO leads").
		WithArgs(pgxmock.AnyArg(), "João Silva", "5511918368812", "Direito Penal",
			"Fui detido injustamente e preciso de ajuda urgente", "web", "web-abc", "new").
		WillReturnRows(pgxmock.NewRows([]string{"created_at"}).AddRow(now))

	lead, err := repo.Create(context.Background(), newLeadRequest())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if lead.ID == "" {
		t.Error("lead id should be generated")
	}
	if !lead.CreatedAt.Equal(now) {
		t.Errorf("CreatedAt = %v, want %v", lead.CreatedAt, now)
	}
	if lead.Status != StatusNew {
		t.Errorf("Status = %q", lead.Status)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresGetByID(t *testing.T) {
	mock, repo := newMockRepo(t)

	created := time.Now().UTC()
	rows := pgxmock.NewRows([]string{
		"id", "name", "phone", "area", "description", "platform", "session_id",
		"status", "assigned_to", "assigned_name", "assigned_at", "created_at",
	}).AddRow("lead-1", "João Silva", "5511918368812", "Direito Penal",
		"descrição", "web", "web-abc", "new", "", "", time.Unix(0, 0).UTC(), created)
	mock.ExpectQuery("SELECT id, name, phone").WithArgs("lead-1").WillReturnRows(rows)

	lead, err := repo.GetByID(context.Background(), "lead-1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if lead.AssignedTo != "" || !lead.AssignedAt.IsZero() {
		t.Errorf("unassigned lead should have empty assignment, got %+v", lead)
	}
}

func TestPostgresGetByIDNotFound(t *testing.T) {
	mock, repo := newMockRepo(t)

	mock.ExpectQuery("SELECT id, name, phone").WithArgs("missing").
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "name", "phone", "area", "description", "platform", "session_id",
			"status", "assigned_to", "assigned_name", "assigned_at", "created_at",
		}))

	if _, err := repo.GetByID(context.Background(), "missing"); !errors.Is(err, ErrLeadNotFound) {
		t.Fatalf("err = %v, want ErrLeadNotFound", err)
	}
}

func TestPostgresAssign(t *testing.T) {
	mock, repo := newMockRepo(t)

	mock.ExpectExec("UPDATE leads").WithArgs("lead-1", "ricardo", "Advogado Ricardo", "assigned").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	assignedAt := time.Now().UTC()
	rows := pgxmock.NewRows([]string{
		"id", "name", "phone", "area", "description", "platform", "session_id",
		"status", "assigned_to", "assigned_name", "assigned_at", "created_at",
	}).AddRow("lead-1", "João Silva", "5511918368812", "Direito Penal",
		"descrição", "web", "web-abc", "assigned", "ricardo", "Advogado Ricardo", assignedAt, assignedAt.Add(-time.Minute))
	mock.ExpectQuery("SELECT id, name, phone").WithArgs("lead-1").WillReturnRows(rows)

	lead, err := repo.Assign(context.Background(), "lead-1", "ricardo", "Advogado Ricardo")
	if err != nil {
		t.Fatalf("Assign: %v", err)
	}
	if lead.AssignedTo != "ricardo" || lead.Status != StatusAssigned {
		t.Errorf("lead = %+v", lead)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresAssignAlreadyClaimed(t *testing.T) {
	mock, repo := newMockRepo(t)

	mock.ExpectExec("UPDATE leads").WithArgs("lead-1", "daniel", "Advogado Daniel", "assigned").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	assignedAt := time.Now().UTC()
	rows := pgxmock.NewRows([]string{
		"id", "name", "phone", "area", "description", "platform", "session_id",
		"status", "assigned_to", "assigned_name", "assigned_at", "created_at",
	}).AddRow("lead-1", "João Silva", "5511918368812", "Direito Penal",
		"descrição", "web", "web-abc", "assigned", "ricardo", "Advogado Ricardo", assignedAt, assignedAt.Add(-time.Minute))
	mock.ExpectQuery("SELECT id, name, phone").WithArgs("lead-1").WillReturnRows(rows)

	lead, err := repo.Assign(context.Background(), "lead-1", "daniel", "Advogado Daniel")
	if !errors.Is(err, ErrAlreadyAssigned) {
		t.Fatalf("err = %v, want ErrAlreadyAssigned", err)
	}
	if lead.AssignedTo != "ricardo" {
		t.Errorf("losing claim should report the winner, got %q", lead.AssignedTo)
	}
}
