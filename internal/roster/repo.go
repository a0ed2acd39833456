// Package roster supplies student and staff records to the engine. The
// engine never owns persistence; it works through Repository so storage
// can be swapped without touching transition logic.
package roster

import (
	"context"
	"sync"

	"github.com/midoriparadigm/Cajon-Valley-EDP-Attendance-App/internal/model"
)

// Repository is the student store boundary. Update applies fn to the
// current record as one atomic read-modify-write; fn returning an error
// aborts the update with no change. Transitions must never be computed
// from a snapshot read before the update.
type Repository interface {
	Get(ctx context.Context, id string) (model.Student, error)
	List(ctx context.Context) ([]model.Student, error)
	Create(ctx context.Context, st model.Student) (model.Student, error)
	Update(ctx context.Context, id string, fn func(*model.Student) error) (model.Student, error)
}

// Memory is the in-memory repository used in dev and tests.
type Memory struct {
	mu       sync.Mutex
	students map[string]model.Student
}

// NewMemory creates an empty in-memory repository.
func NewMemory() *Memory {
	return &Memory{students: make(map[string]model.Student)}
}

// Get returns a copy of the student record.
func (m *Memory) Get(ctx context.Context, id string) (model.Student, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.students[id]
	if !ok {
		return model.Student{}, model.ErrNotFound
	}
	return cloneStudent(st), nil
}

// List returns copies of all student records.
func (m *Memory) List(ctx context.Context) ([]model.Student, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Student, 0, len(m.students))
	for _, st := range m.students {
		out = append(out, cloneStudent(st))
	}
	return out, nil
}

// Create stores a new student record.
func (m *Memory) Create(ctx context.Context, st model.Student) (model.Student, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.students[st.ID]; ok {
		return model.Student{}, model.ErrValidation
	}
	m.students[st.ID] = cloneStudent(st)
	return st, nil
}

// Update applies fn under the repository lock.
func (m *Memory) Update(ctx context.Context, id string, fn func(*model.Student) error) (model.Student, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.students[id]
	if !ok {
		return model.Student{}, model.ErrNotFound
	}
	next := cloneStudent(cur)
	if err := fn(&next); err != nil {
		return model.Student{}, err
	}
	m.students[id] = next
	return cloneStudent(next), nil
}

// cloneStudent deep-copies the mutable parts so callers never share
// backing arrays or maps with the stored record.
func cloneStudent(st model.Student) model.Student {
	out := st
	if st.HeadInjury.Logs != nil {
		logs := make([]model.HeadInjuryLog, len(st.HeadInjury.Logs))
		for i, l := range st.HeadInjury.Logs {
			logs[i] = l
			if l.Symptoms != nil {
				sym := make(map[string]bool, len(l.Symptoms))
				for k, v := range l.Symptoms {
					sym[k] = v
				}
				logs[i].Symptoms = sym
			}
		}
		out.HeadInjury.Logs = logs
	}
	if st.HeadInjury.Alerted != nil {
		al := make(map[model.Stage]bool, len(st.HeadInjury.Alerted))
		for k, v := range st.HeadInjury.Alerted {
			al[k] = v
		}
		out.HeadInjury.Alerted = al
	}
	if st.Behavior.Issues != nil {
		out.Behavior.Issues = append([]string(nil), st.Behavior.Issues...)
	}
	return out
}
