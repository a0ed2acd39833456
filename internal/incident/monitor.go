// Package incident drives the staged head-injury reassessment protocol:
// checkpoints at 0, 15 and 30 minutes from the monitoring origin, completed
// strictly in order, with edge-triggered overdue alerting.
package incident

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/midoriparadigm/Cajon-Valley-EDP-Attendance-App/internal/clock"
	"github.com/midoriparadigm/Cajon-Valley-EDP-Attendance-App/internal/model"
	"github.com/midoriparadigm/Cajon-Valley-EDP-Attendance-App/internal/roster"
)

// Monitor owns incident state transitions.
type Monitor struct {
	repo roster.Repository
	clk  clock.Clock
}

// NewMonitor creates a monitor.
func NewMonitor(repo roster.Repository, clk clock.Clock) *Monitor {
	return &Monitor{repo: repo, clk: clk}
}

// Open starts an incident. The witness statement is mandatory; the
// monitoring origin time is not set until the 0min checkpoint is logged.
func (m *Monitor) Open(ctx context.Context, studentID, witness, description, staffName string) (model.Student, error) {
	if strings.TrimSpace(witness) == "" {
		return model.Student{}, fmt.Errorf("witness statement required: %w", model.ErrValidation)
	}
	return m.repo.Update(ctx, studentID, func(st *model.Student) error {
		if st.HeadInjury.Active {
			return fmt.Errorf("incident already open: %w", model.ErrInvalidTransition)
		}
		st.HeadInjury = model.HeadInjury{
			Active:      true,
			Witness:     witness,
			WitnessDesc: description,
			Alerted:     make(map[model.Stage]bool),
		}
		return nil
	})
}

// RecordStage logs the next mandatory checkpoint. Stages complete in
// fixed order with no skipping and no duplicates. An all-false symptom
// map is a meaningful "assessed, nothing observed" record. Logging the
// 0min checkpoint sets the monitoring origin time.
func (m *Monitor) RecordStage(ctx context.Context, studentID string, stage model.Stage, symptoms map[string]bool, notes, staffName string) (model.Student, error) {
	return m.repo.Update(ctx, studentID, func(st *model.Student) error {
		h := &st.HeadInjury
		if !h.Active {
			return fmt.Errorf("no open incident: %w", model.ErrInvalidTransition)
		}
		next, ok := h.NextStage()
		if !ok {
			return fmt.Errorf("monitoring already complete: %w", model.ErrInvalidTransition)
		}
		if stage != next {
			return fmt.Errorf("stage %s logged out of order (next is %s): %w", stage, next, model.ErrInvalidTransition)
		}
		now := m.clk.Now()
		if stage == model.Stage0 && h.StartTime == nil {
			h.StartTime = &now
		}
		h.Logs = append(h.Logs, model.HeadInjuryLog{
			Stage:       stage,
			CompletedAt: now,
			StaffName:   staffName,
			Symptoms:    symptoms,
			Notes:       notes,
		})
		return nil
	})
}

// Cancel fully resets the incident: witness fields, logs, origin time and
// alert markers. Any deadline computed from the old state is dead; the
// watcher re-reads state on every sweep so cleared incidents cannot fire.
func (m *Monitor) Cancel(ctx context.Context, studentID string) (model.Student, error) {
	return m.repo.Update(ctx, studentID, func(st *model.Student) error {
		st.HeadInjury = model.HeadInjury{}
		return nil
	})
}

// NextDeadline returns the next mandatory check time for the student, if
// monitoring is active and incomplete. Pure function of student state.
func NextDeadline(st model.Student) (time.Time, model.Stage, bool) {
	h := st.HeadInjury
	if !h.Active || h.StartTime == nil {
		return time.Time{}, "", false
	}
	if h.Log(model.Stage15) == nil {
		return h.StartTime.Add(model.Stage15.Offset()), model.Stage15, true
	}
	if h.Log(model.Stage30) == nil {
		return h.StartTime.Add(model.Stage30.Offset()), model.Stage30, true
	}
	return time.Time{}, "", false
}

// TimeLeft returns the remaining time to the next deadline at now.
// Negative means overdue. ok is false once monitoring is finished, at
// which point no countdown should be displayed.
func TimeLeft(st model.Student, now time.Time) (time.Duration, bool) {
	deadline, _, ok := NextDeadline(st)
	if !ok {
		return 0, false
	}
	return deadline.Sub(now), true
}
