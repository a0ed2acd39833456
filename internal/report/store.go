package report

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/midoriparadigm/Cajon-Valley-EDP-Attendance-App/internal/model"
)

// Store persists parent reports. Reports are never deleted by the
// engine; the only status move is draft -> sent.
type Store interface {
	Create(ctx context.Context, r model.ParentReport) (model.ParentReport, error)
	Get(ctx context.Context, id string) (model.ParentReport, error)
	ListByStudent(ctx context.Context, studentID string) ([]model.ParentReport, error)
	MarkSent(ctx context.Context, id string) (model.ParentReport, error)
}

// MemoryStore is the in-memory store for dev and tests.
type MemoryStore struct {
	mu      sync.Mutex
	reports map[string]model.ParentReport
	order   []string
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{reports: make(map[string]model.ParentReport)}
}

// Create stores a new report, assigning an id when missing.
func (s *MemoryStore) Create(ctx context.Context, r model.ParentReport) (model.ParentReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.Status == "" {
		r.Status = model.ReportDraft
	}
	s.reports[r.ID] = r
	s.order = append(s.order, r.ID)
	return r, nil
}

// Get returns a report by id.
func (s *MemoryStore) Get(ctx context.Context, id string) (model.ParentReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reports[id]
	if !ok {
		return model.ParentReport{}, model.ErrNotFound
	}
	return r, nil
}

// ListByStudent returns the student's reports in creation order.
func (s *MemoryStore) ListByStudent(ctx context.Context, studentID string) ([]model.ParentReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.ParentReport
	for _, id := range s.order {
		if r := s.reports[id]; r.StudentID == studentID {
			out = append(out, r)
		}
	}
	return out, nil
}

// MarkSent advances a draft to sent. Sending twice is an invalid
// transition; the status never moves backward.
func (s *MemoryStore) MarkSent(ctx context.Context, id string) (model.ParentReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reports[id]
	if !ok {
		return model.ParentReport{}, model.ErrNotFound
	}
	if r.Status != model.ReportDraft {
		return model.ParentReport{}, fmt.Errorf("report %s already %s: %w", id, r.Status, model.ErrInvalidTransition)
	}
	r.Status = model.ReportSent
	s.reports[id] = r
	return r, nil
}

// PostgresStore persists reports in Postgres.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a store over an open connection.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the reports table if missing.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS parent_reports (
			id             TEXT PRIMARY KEY,
			student_id     TEXT NOT NULL,
			type           TEXT NOT NULL,
			behavior_level TEXT NOT NULL DEFAULT '',
			message        TEXT NOT NULL,
			method         TEXT NOT NULL,
			status         TEXT NOT NULL DEFAULT 'draft',
			created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_parent_reports_student ON parent_reports(student_id);
	`)
	return err
}

// Create inserts a new report.
func (s *PostgresStore) Create(ctx context.Context, r model.ParentReport) (model.ParentReport, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.Status == "" {
		r.Status = model.ReportDraft
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO parent_reports (id, student_id, type, behavior_level, message, method, status, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, r.ID, r.StudentID, r.Type, r.BehaviorLevel, r.Message, r.Method, r.Status, r.CreatedAt)
	if err != nil {
		return model.ParentReport{}, err
	}
	return r, nil
}

// Get returns a report by id.
func (s *PostgresStore) Get(ctx context.Context, id string) (model.ParentReport, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, student_id, type, behavior_level, message, method, status, created_at
		FROM parent_reports WHERE id = $1
	`, id)
	return scanReport(row)
}

// ListByStudent returns the student's reports oldest first.
func (s *PostgresStore) ListByStudent(ctx context.Context, studentID string) ([]model.ParentReport, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, student_id, type, behavior_level, message, method, status, created_at
		FROM parent_reports WHERE student_id = $1 ORDER BY created_at
	`, studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.ParentReport
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// MarkSent advances a draft to sent.
func (s *PostgresStore) MarkSent(ctx context.Context, id string) (model.ParentReport, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE parent_reports SET status = 'sent' WHERE id = $1 AND status = 'draft'
	`, id)
	if err != nil {
		return model.ParentReport{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := s.Get(ctx, id); errors.Is(err, model.ErrNotFound) {
			return model.ParentReport{}, model.ErrNotFound
		}
		return model.ParentReport{}, fmt.Errorf("report %s not a draft: %w", id, model.ErrInvalidTransition)
	}
	return s.Get(ctx, id)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReport(row rowScanner) (model.ParentReport, error) {
	var r model.ParentReport
	err := row.Scan(&r.ID, &r.StudentID, &r.Type, &r.BehaviorLevel, &r.Message, &r.Method, &r.Status, &r.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.ParentReport{}, model.ErrNotFound
	}
	if err != nil {
		return model.ParentReport{}, err
	}
	return r, nil
}
