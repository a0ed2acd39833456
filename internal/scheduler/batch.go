// Package scheduler owns the single pending batch-checkout deadline: a
// wall-clock time of day that, when reached, bulk-checks-out every
// eligible student for the target session.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/midoriparadigm/Cajon-Valley-EDP-Attendance-App/internal/attendance"
	"github.com/midoriparadigm/Cajon-Valley-EDP-Attendance-App/internal/clock"
	"github.com/midoriparadigm/Cajon-Valley-EDP-Attendance-App/internal/model"
)

// DefaultTick is the deadline check cadence.
const DefaultTick = time.Second

// timeLayout is the wall-clock form deadlines are scheduled and matched
// in. Matching is string equality at minute resolution, not a range.
const timeLayout = "15:04"

// Scheduler holds at most one pending deadline process-wide. Scheduling
// again overwrites it (last-write-wins); there is no queue.
type Scheduler struct {
	machine *attendance.Machine
	clk     clock.Clock
	tick    time.Duration

	mu      sync.Mutex
	pending *model.BatchCheckoutDeadline
}

// New creates a scheduler. tick <= 0 selects the default 1s.
func New(machine *attendance.Machine, clk clock.Clock, tick time.Duration) *Scheduler {
	if tick <= 0 {
		tick = DefaultTick
	}
	return &Scheduler{machine: machine, clk: clk, tick: tick}
}

// Schedule arms a deadline at the given time of day ("15:04") for the
// session. The time must be strictly in the future today.
func (s *Scheduler) Schedule(timeOfDay string, session model.Session) error {
	if !session.Valid() {
		return fmt.Errorf("session %q: %w", session, model.ErrValidation)
	}
	parsed, err := time.Parse(timeLayout, timeOfDay)
	if err != nil {
		return fmt.Errorf("time %q: %w", timeOfDay, model.ErrInvalidSchedule)
	}
	now := s.clk.Now()
	target := time.Date(now.Year(), now.Month(), now.Day(), parsed.Hour(), parsed.Minute(), 0, 0, now.Location())
	if !target.After(now) {
		return fmt.Errorf("deadline %s not in the future: %w", timeOfDay, model.ErrInvalidSchedule)
	}
	s.mu.Lock()
	s.pending = &model.BatchCheckoutDeadline{ScheduledTime: parsed.Format(timeLayout), Session: session}
	s.mu.Unlock()
	return nil
}

// Cancel clears any pending deadline. Clearing when none is pending is a
// no-op, not an error.
func (s *Scheduler) Cancel() {
	s.mu.Lock()
	s.pending = nil
	s.mu.Unlock()
}

// Pending returns the current deadline, if any.
func (s *Scheduler) Pending() (model.BatchCheckoutDeadline, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == nil {
		return model.BatchCheckoutDeadline{}, false
	}
	return *s.pending, true
}

// Run checks the deadline against the wall clock until the context is
// cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	t := s.clk.NewTicker(s.tick)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C():
			s.Check(ctx)
		}
	}
}

// Check fires the pending deadline when the current time of day matches
// it exactly. The deadline is cleared before the batch transition runs,
// so a slow batch can never fire twice.
func (s *Scheduler) Check(ctx context.Context) {
	s.mu.Lock()
	if s.pending == nil || s.clk.Now().Format(timeLayout) != s.pending.ScheduledTime {
		s.mu.Unlock()
		return
	}
	deadline := *s.pending
	s.pending = nil
	s.mu.Unlock()

	n, err := s.machine.ForceBatchCheckOut(ctx, deadline.Session, deadline.ScheduledTime, "Auto Checkout")
	if err != nil {
		log.Printf("batch checkout at %s failed: %v", deadline.ScheduledTime, err)
		return
	}
	log.Printf("batch checkout at %s: %d %s students checked out", deadline.ScheduledTime, n, deadline.Session)
}
