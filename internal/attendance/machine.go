// Package attendance owns the per-student, per-session attendance state
// machine. Statuses only ever move forward along
// absent -> present -> pending_parent -> checked_out.
package attendance

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/midoriparadigm/Cajon-Valley-EDP-Attendance-App/internal/clock"
	"github.com/midoriparadigm/Cajon-Valley-EDP-Attendance-App/internal/model"
	"github.com/midoriparadigm/Cajon-Valley-EDP-Attendance-App/internal/permission"
	"github.com/midoriparadigm/Cajon-Valley-EDP-Attendance-App/internal/roster"
)

// DefaultAutoAdvance is how long a student stays in pending_parent before
// the deferred transition to checked_out fires.
const DefaultAutoAdvance = 5 * time.Second

// BiometricResult is the verify side-data stored verbatim on check-in.
// The engine never recomputes the anomaly threshold.
type BiometricResult struct {
	MatchScore      float64 `json:"match_score"`
	AnomalyScore    float64 `json:"anomaly_score"`
	AnomalyDetected bool    `json:"anomaly_detected"`
}

// CheckInInput carries optional check-in side-data.
type CheckInInput struct {
	PhotoURL  string
	Biometric *BiometricResult
}

// Machine drives attendance transitions over the roster repository.
type Machine struct {
	repo        roster.Repository
	clk         clock.Clock
	sink        model.Sink
	autoAdvance time.Duration

	mu     sync.Mutex
	timers map[timerKey]clock.Timer
}

type timerKey struct {
	studentID string
	session   model.Session
}

// NewMachine creates a machine. autoAdvance <= 0 selects the default.
func NewMachine(repo roster.Repository, clk clock.Clock, sink model.Sink, autoAdvance time.Duration) *Machine {
	if autoAdvance <= 0 {
		autoAdvance = DefaultAutoAdvance
	}
	if sink == nil {
		sink = model.NopSink{}
	}
	return &Machine{
		repo:        repo,
		clk:         clk,
		sink:        sink,
		autoAdvance: autoAdvance,
		timers:      make(map[timerKey]clock.Timer),
	}
}

// CheckIn moves a student from absent to present. Precondition order is
// fixed: permission gate first, then the administrative block flag, then
// the state check. Biometric side-data is stored verbatim; an anomaly
// flag raises a VisualAnomalyDetected event for the caller to surface.
func (m *Machine) CheckIn(ctx context.Context, studentID string, session model.Session, actor model.Staff, in CheckInInput) (model.Student, error) {
	if !session.Valid() {
		return model.Student{}, fmt.Errorf("session %q: %w", session, model.ErrValidation)
	}
	var anomaly bool
	st, err := m.repo.Update(ctx, studentID, func(st *model.Student) error {
		if d := permission.CanCheckIn(actor, *st); !d.Allowed {
			return fmt.Errorf("check-in (%s): %w", d.Reason, model.ErrPermissionDenied)
		}
		if st.CheckInBlocked {
			return model.ErrCheckInBlocked
		}
		rec := st.SessionRecord(session)
		if rec.Status != model.StatusAbsent {
			return fmt.Errorf("check-in from %s: %w", rec.Status, model.ErrInvalidTransition)
		}
		now := m.clk.Now()
		rec.Status = model.StatusPresent
		rec.CheckInAt = &now
		rec.CheckInBy = actor.Name
		rec.PhotoURL = in.PhotoURL
		if in.Biometric != nil {
			match, anom := in.Biometric.MatchScore, in.Biometric.AnomalyScore
			rec.MatchScore = &match
			rec.AnomalyScore = &anom
			rec.AnomalyDetected = in.Biometric.AnomalyDetected
			anomaly = in.Biometric.AnomalyDetected
		}
		return nil
	})
	if err != nil {
		return model.Student{}, err
	}
	if anomaly {
		m.sink.Publish(model.Event{
			Type:      model.EventVisualAnomaly,
			StudentID: studentID,
			Session:   session,
			At:        m.clk.Now(),
		})
	}
	return st, nil
}

// RequestCheckOut moves a present student to pending_parent, stamps the
// SMS timestamp, and arms the deferred advance to checked_out. The
// deferred transition is a no-op if anything else moved the student out
// of pending_parent first.
func (m *Machine) RequestCheckOut(ctx context.Context, studentID string, session model.Session, actor model.Staff) (model.Student, error) {
	if !session.Valid() {
		return model.Student{}, fmt.Errorf("session %q: %w", session, model.ErrValidation)
	}
	if d := permission.CanCheckOut(actor); !d.Allowed {
		return model.Student{}, fmt.Errorf("checkout (%s): %w", d.Reason, model.ErrPermissionDenied)
	}
	st, err := m.repo.Update(ctx, studentID, func(st *model.Student) error {
		rec := st.SessionRecord(session)
		if rec.Status != model.StatusPresent {
			return fmt.Errorf("checkout from %s: %w", rec.Status, model.ErrInvalidTransition)
		}
		now := m.clk.Now()
		rec.Status = model.StatusPendingParent
		rec.SMSSentAt = &now
		return nil
	})
	if err != nil {
		return model.Student{}, err
	}
	m.armAutoAdvance(studentID, session)
	return st, nil
}

func (m *Machine) armAutoAdvance(studentID string, session model.Session) {
	key := timerKey{studentID, session}
	m.mu.Lock()
	if t, ok := m.timers[key]; ok {
		t.Stop()
	}
	m.timers[key] = m.clk.AfterFunc(m.autoAdvance, func() {
		m.autoAdvanceFired(key)
	})
	m.mu.Unlock()
}

func (m *Machine) autoAdvanceFired(key timerKey) {
	m.mu.Lock()
	delete(m.timers, key)
	m.mu.Unlock()

	moved := false
	_, err := m.repo.Update(context.Background(), key.studentID, func(st *model.Student) error {
		rec := st.SessionRecord(key.session)
		// First transition wins: someone else already moved the student.
		if rec.Status != model.StatusPendingParent {
			return nil
		}
		now := m.clk.Now()
		rec.Status = model.StatusCheckedOut
		rec.CheckOutAt = &now
		rec.CheckOutBy = "SMS Confirmed"
		moved = true
		return nil
	})
	if err != nil {
		log.Printf("auto checkout for %s/%s failed: %v", key.studentID, key.session, err)
		return
	}
	if moved {
		m.sink.Publish(model.Event{
			Type:      model.EventCheckedOut,
			StudentID: key.studentID,
			Session:   key.session,
			Mode:      model.ModeSMSConfirmed,
			At:        m.clk.Now(),
		})
	}
}

// ForceBatchCheckOut transitions every student currently present or
// pending_parent for the session to checked_out with a synthetic actor
// label. Students already checked out or absent are skipped. Returns the
// number of students transitioned.
func (m *Machine) ForceBatchCheckOut(ctx context.Context, session model.Session, deadlineTime, actorName string) (int, error) {
	if !session.Valid() {
		return 0, fmt.Errorf("session %q: %w", session, model.ErrValidation)
	}
	if actorName == "" {
		actorName = "Auto Checkout"
	}
	if deadlineTime != "" {
		actorName = fmt.Sprintf("%s (%s)", actorName, deadlineTime)
	}
	students, err := m.repo.List(ctx)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, cand := range students {
		if s := cand.SessionRecord(session).Status; s != model.StatusPresent && s != model.StatusPendingParent {
			continue
		}
		moved := false
		_, err := m.repo.Update(ctx, cand.ID, func(st *model.Student) error {
			rec := st.SessionRecord(session)
			// Re-check under the update; the snapshot above may be stale.
			if rec.Status != model.StatusPresent && rec.Status != model.StatusPendingParent {
				return nil
			}
			now := m.clk.Now()
			rec.Status = model.StatusCheckedOut
			rec.CheckOutAt = &now
			rec.CheckOutBy = actorName
			moved = true
			return nil
		})
		if err != nil {
			return count, fmt.Errorf("batch checkout %s: %w", cand.ID, err)
		}
		if moved {
			count++
			m.stopTimer(timerKey{cand.ID, session})
			m.sink.Publish(model.Event{
				Type:      model.EventCheckedOut,
				StudentID: cand.ID,
				Session:   session,
				Mode:      model.ModeBatch,
				At:        m.clk.Now(),
			})
		}
	}
	return count, nil
}

func (m *Machine) stopTimer(key timerKey) {
	m.mu.Lock()
	if t, ok := m.timers[key]; ok {
		t.Stop()
		delete(m.timers, key)
	}
	m.mu.Unlock()
}

// Stop releases every pending deferred-checkout timer.
func (m *Machine) Stop() {
	m.mu.Lock()
	for key, t := range m.timers {
		t.Stop()
		delete(m.timers, key)
	}
	m.mu.Unlock()
}
