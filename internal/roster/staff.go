package roster

import (
	"sync"

	"github.com/midoriparadigm/Cajon-Valley-EDP-Attendance-App/internal/model"
)

// StaffDirectory resolves authenticated staff ids to their capability
// records. Staff administration happens outside the engine; the directory
// is loaded at startup.
type StaffDirectory struct {
	mu    sync.RWMutex
	staff map[string]model.Staff
}

// NewStaffDirectory creates a directory seeded with the given staff.
func NewStaffDirectory(members ...model.Staff) *StaffDirectory {
	d := &StaffDirectory{staff: make(map[string]model.Staff, len(members))}
	for _, m := range members {
		d.staff[m.ID] = m
	}
	return d
}

// Get returns a staff record by id.
func (d *StaffDirectory) Get(id string) (model.Staff, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	m, ok := d.staff[id]
	if !ok {
		return model.Staff{}, model.ErrNotFound
	}
	return m, nil
}

// Upsert adds or replaces a staff record.
func (d *StaffDirectory) Upsert(m model.Staff) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.staff[m.ID] = m
}

// List returns all staff records.
func (d *StaffDirectory) List() []model.Staff {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]model.Staff, 0, len(d.staff))
	for _, m := range d.staff {
		out = append(out, m)
	}
	return out
}
