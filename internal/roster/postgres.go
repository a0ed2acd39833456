package roster

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/midoriparadigm/Cajon-Valley-EDP-Attendance-App/internal/model"
)

// Postgres persists student records as JSONB documents. Update runs the
// mutator inside a SELECT ... FOR UPDATE transaction so concurrent
// transitions on the same student serialize at the row.
type Postgres struct {
	db *sql.DB
}

// NewPostgres creates a repo over an open connection.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// Migrate creates the students table if missing.
func (p *Postgres) Migrate(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS students (
			id         TEXT PRIMARY KEY,
			grade      TEXT NOT NULL DEFAULT '',
			doc        JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`)
	return err
}

// Get returns a student by id.
func (p *Postgres) Get(ctx context.Context, id string) (model.Student, error) {
	row := p.db.QueryRowContext(ctx, `SELECT doc FROM students WHERE id = $1`, id)
	var raw []byte
	if err := row.Scan(&raw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Student{}, model.ErrNotFound
		}
		return model.Student{}, err
	}
	var st model.Student
	if err := json.Unmarshal(raw, &st); err != nil {
		return model.Student{}, fmt.Errorf("decode student %s: %w", id, err)
	}
	return st, nil
}

// List returns all students.
func (p *Postgres) List(ctx context.Context) ([]model.Student, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT doc FROM students ORDER BY grade, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Student
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var st model.Student
		if err := json.Unmarshal(raw, &st); err != nil {
			return nil, fmt.Errorf("decode student: %w", err)
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

// Create inserts a new student.
func (p *Postgres) Create(ctx context.Context, st model.Student) (model.Student, error) {
	if st.ID == "" {
		st.ID = uuid.NewString()
	}
	if st.CreatedAt.IsZero() {
		st.CreatedAt = time.Now().UTC()
	}
	raw, err := json.Marshal(st)
	if err != nil {
		return model.Student{}, err
	}
	_, err = p.db.ExecContext(ctx, `
		INSERT INTO students (id, grade, doc, created_at)
		VALUES ($1, $2, $3, $4)
	`, st.ID, st.Grade, raw, st.CreatedAt)
	if err != nil {
		return model.Student{}, err
	}
	return st, nil
}

// Update applies fn to the row under FOR UPDATE.
func (p *Postgres) Update(ctx context.Context, id string, fn func(*model.Student) error) (model.Student, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Student{}, err
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, `SELECT doc FROM students WHERE id = $1 FOR UPDATE`, id)
	var raw []byte
	if err := row.Scan(&raw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Student{}, model.ErrNotFound
		}
		return model.Student{}, err
	}
	var st model.Student
	if err := json.Unmarshal(raw, &st); err != nil {
		return model.Student{}, fmt.Errorf("decode student %s: %w", id, err)
	}
	if err := fn(&st); err != nil {
		return model.Student{}, err
	}
	next, err := json.Marshal(st)
	if err != nil {
		return model.Student{}, err
	}
	if _, err := tx.ExecContext(ctx, `UPDATE students SET doc = $2, grade = $3 WHERE id = $1`, id, next, st.Grade); err != nil {
		return model.Student{}, err
	}
	if err := tx.Commit(); err != nil {
		return model.Student{}, err
	}
	return st, nil
}
