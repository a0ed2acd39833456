package incident

import (
	"context"
	"log"
	"time"

	"github.com/midoriparadigm/Cajon-Valley-EDP-Attendance-App/internal/clock"
	"github.com/midoriparadigm/Cajon-Valley-EDP-Attendance-App/internal/model"
	"github.com/midoriparadigm/Cajon-Valley-EDP-Attendance-App/internal/roster"
)

// DefaultSweepInterval is the system-wide overdue check cadence.
const DefaultSweepInterval = time.Second

// Watcher sweeps all open incidents and raises OverdueAssessment events.
// Alerting is edge-triggered: the per-stage alerted marker is persisted
// in the same atomic update that wins the right to publish, so each
// missed deadline alerts exactly once and never storms while overdue.
type Watcher struct {
	repo     roster.Repository
	clk      clock.Clock
	sink     model.Sink
	interval time.Duration
}

// NewWatcher creates a watcher. interval <= 0 selects the default 1s.
func NewWatcher(repo roster.Repository, clk clock.Clock, sink model.Sink, interval time.Duration) *Watcher {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	if sink == nil {
		sink = model.NopSink{}
	}
	return &Watcher{repo: repo, clk: clk, sink: sink, interval: interval}
}

// Run sweeps until the context is cancelled.
func (w *Watcher) Run(ctx context.Context) {
	t := w.clk.NewTicker(w.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C():
			w.Sweep(ctx)
		}
	}
}

// Sweep checks every student with an open incident once.
func (w *Watcher) Sweep(ctx context.Context) {
	students, err := w.repo.List(ctx)
	if err != nil {
		log.Printf("overdue sweep: list students: %v", err)
		return
	}
	now := w.clk.Now()
	for _, st := range students {
		deadline, stage, ok := NextDeadline(st)
		if !ok || now.Before(deadline) || st.HeadInjury.Alerted[stage] {
			continue
		}
		w.alert(ctx, st.ID, stage)
	}
}

func (w *Watcher) alert(ctx context.Context, studentID string, stage model.Stage) {
	won := false
	_, err := w.repo.Update(ctx, studentID, func(st *model.Student) error {
		h := &st.HeadInjury
		// Re-check under the update: the incident may have been cancelled
		// or the stage logged since the sweep snapshot.
		deadline, cur, ok := NextDeadline(*st)
		if !ok || cur != stage || w.clk.Now().Before(deadline) || h.Alerted[stage] {
			return nil
		}
		if h.Alerted == nil {
			h.Alerted = make(map[model.Stage]bool)
		}
		h.Alerted[stage] = true
		won = true
		return nil
	})
	if err != nil {
		log.Printf("overdue alert for %s/%s failed: %v", studentID, stage, err)
		return
	}
	if won {
		w.sink.Publish(model.Event{
			Type:      model.EventOverdueAssessment,
			StudentID: studentID,
			Stage:     stage,
			At:        w.clk.Now(),
		})
	}
}
