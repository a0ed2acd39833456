package model

import "time"

// EventType identifies a domain event raised by the engine.
type EventType string

const (
	// EventVisualAnomaly is raised when a check-in's biometric result
	// carried an anomaly flag. The engine stores the scores verbatim and
	// leaves surfacing to the caller.
	EventVisualAnomaly EventType = "visual_anomaly_detected"

	// EventOverdueAssessment is raised exactly once per missed
	// head-injury checkpoint deadline.
	EventOverdueAssessment EventType = "overdue_assessment"

	// EventCheckedOut is raised when a checkout completes, whether by
	// guardian confirmation or a batch deadline.
	EventCheckedOut EventType = "checked_out"
)

// Checkout completion modes carried on EventCheckedOut.
const (
	ModeSMSConfirmed = "sms_confirmed"
	ModeBatch        = "batch"
)

// Event is a domain event. Missed deadlines are events, not errors.
type Event struct {
	Type      EventType `json:"type"`
	StudentID string    `json:"student_id"`
	Session   Session   `json:"session,omitempty"`
	Stage     Stage     `json:"stage,omitempty"`
	Mode      string    `json:"mode,omitempty"`
	At        time.Time `json:"at"`
}

// Sink receives domain events.
type Sink interface {
	Publish(Event)
}

// SinkFunc adapts a function to a Sink.
type SinkFunc func(Event)

// Publish calls f(e).
func (f SinkFunc) Publish(e Event) { f(e) }

// NopSink discards events.
type NopSink struct{}

// Publish discards the event.
func (NopSink) Publish(Event) {}
