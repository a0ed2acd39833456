package report

import (
	"context"
	"fmt"
	"log"

	"github.com/midoriparadigm/Cajon-Valley-EDP-Attendance-App/internal/model"
	"github.com/midoriparadigm/Cajon-Valley-EDP-Attendance-App/internal/queue"
)

// MsgSend is the queue message type for report delivery jobs. The body
// is the report id.
const MsgSend = "report.send"

// Dispatcher hands delivery jobs to the worker via the queue.
type Dispatcher struct {
	q queue.Queue
}

// NewDispatcher creates a dispatcher.
func NewDispatcher(q queue.Queue) *Dispatcher {
	return &Dispatcher{q: q}
}

// Enqueue publishes a send job for a draft report.
func (d *Dispatcher) Enqueue(ctx context.Context, reportID string) error {
	return d.q.Publish(ctx, queue.Message{Type: MsgSend, Body: []byte(reportID)})
}

// Deliver is the mocked delivery gateway: it logs the outgoing message
// per channel. No delivery confirmation exists; "sent" is a terminal
// local state only.
func Deliver(r model.ParentReport) error {
	if r.Status != model.ReportSent {
		return fmt.Errorf("report %s not marked sent: %w", r.ID, model.ErrInvalidTransition)
	}
	switch r.Method {
	case model.MethodEmail:
		log.Printf("delivering report %s to guardian of %s via email", r.ID, r.StudentID)
	case model.MethodSMS:
		log.Printf("delivering report %s to guardian of %s via sms", r.ID, r.StudentID)
	default:
		log.Printf("delivering report %s to guardian of %s via email and sms", r.ID, r.StudentID)
	}
	return nil
}
