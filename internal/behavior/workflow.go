// Package behavior owns the behavior ticket lifecycle: level selection
// with toggle-undo, per-level checklist issues, and filing, which drafts
// the guardian report.
package behavior

import (
	"context"
	"fmt"

	"github.com/midoriparadigm/Cajon-Valley-EDP-Attendance-App/internal/clock"
	"github.com/midoriparadigm/Cajon-Valley-EDP-Attendance-App/internal/model"
	"github.com/midoriparadigm/Cajon-Valley-EDP-Attendance-App/internal/report"
	"github.com/midoriparadigm/Cajon-Valley-EDP-Attendance-App/internal/roster"
)

// Workflow drives behavior tickets over the roster repository.
type Workflow struct {
	repo    roster.Repository
	clk     clock.Clock
	reports report.Store
}

// NewWorkflow creates a workflow. reports receives the draft created on
// filing.
func NewWorkflow(repo roster.Repository, clk clock.Clock, reports report.Store) *Workflow {
	return &Workflow{repo: repo, clk: clk, reports: reports}
}

// SetLevel selects a severity level. Selecting the level already active
// clears the ticket back to none, discarding issues and description
// (undo). Selecting a different level stamps the timestamp and staff and
// resets the checklist, since issue labels never carry across levels.
func (w *Workflow) SetLevel(ctx context.Context, studentID string, level model.Level, staffName string) (model.Student, error) {
	if !level.Active() {
		return model.Student{}, fmt.Errorf("level %q: %w", level, model.ErrValidation)
	}
	return w.repo.Update(ctx, studentID, func(st *model.Student) error {
		if st.Behavior.Level == level {
			st.Behavior = model.BehaviorTicket{Level: model.LevelNone}
			return nil
		}
		now := w.clk.Now()
		st.Behavior = model.BehaviorTicket{
			Level:       level,
			Description: st.Behavior.Description,
			Timestamp:   &now,
			Staff:       staffName,
		}
		return nil
	})
}

// ToggleIssue checks or unchecks an issue label against the active
// level's checklist.
func (w *Workflow) ToggleIssue(ctx context.Context, studentID, issue string) (model.Student, error) {
	return w.repo.Update(ctx, studentID, func(st *model.Student) error {
		b := &st.Behavior
		if !b.Level.Active() {
			return fmt.Errorf("no level selected: %w", model.ErrInvalidTransition)
		}
		if !ValidIssue(b.Level, issue) {
			return fmt.Errorf("issue %q not on the %s checklist: %w", issue, b.Level, model.ErrValidation)
		}
		if b.HasIssue(issue) {
			next := b.Issues[:0:0]
			for _, is := range b.Issues {
				if is != issue {
					next = append(next, is)
				}
			}
			b.Issues = next
			return nil
		}
		b.Issues = append(b.Issues, issue)
		return nil
	})
}

// SetDescription sets the free-text description on the open ticket.
func (w *Workflow) SetDescription(ctx context.Context, studentID, description string) (model.Student, error) {
	return w.repo.Update(ctx, studentID, func(st *model.Student) error {
		if !st.Behavior.Level.Active() {
			return fmt.Errorf("no level selected: %w", model.ErrInvalidTransition)
		}
		st.Behavior.Description = description
		return nil
	})
}

// File files the ticket and silently drafts the guardian report
// (status draft, method both). Unlike injury incidents, no immediate
// composition step is surfaced to the actor.
func (w *Workflow) File(ctx context.Context, studentID string) (model.ParentReport, error) {
	st, err := w.repo.Update(ctx, studentID, func(st *model.Student) error {
		if !st.Behavior.Level.Active() {
			return fmt.Errorf("no level selected: %w", model.ErrInvalidTransition)
		}
		if st.Behavior.Filed {
			return fmt.Errorf("ticket already filed: %w", model.ErrInvalidTransition)
		}
		st.Behavior.Filed = true
		return nil
	})
	if err != nil {
		return model.ParentReport{}, err
	}
	now := w.clk.Now()
	return w.reports.Create(ctx, model.ParentReport{
		StudentID:     st.ID,
		Type:          model.ReportBehavior,
		BehaviorLevel: st.Behavior.Level,
		Message:       report.Generate(st, model.ReportBehavior, now),
		Method:        model.MethodBoth,
		Status:        model.ReportDraft,
		CreatedAt:     now,
	})
}

// Cancel resets the ticket to none, discarding every in-progress
// selection.
func (w *Workflow) Cancel(ctx context.Context, studentID string) (model.Student, error) {
	return w.repo.Update(ctx, studentID, func(st *model.Student) error {
		st.Behavior = model.BehaviorTicket{Level: model.LevelNone}
		return nil
	})
}
