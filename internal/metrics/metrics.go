// Package metrics exposes engine counters on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CheckIns counts successful check-ins per session.
	CheckIns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "edp_checkins_total",
		Help: "Successful student check-ins.",
	}, []string{"session"})

	// CheckOuts counts completed checkouts by mode (sms_confirmed, batch).
	CheckOuts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "edp_checkouts_total",
		Help: "Completed student checkouts.",
	}, []string{"session", "mode"})

	// AnomalyFlags counts check-ins whose biometric result was flagged.
	AnomalyFlags = promauto.NewCounter(prometheus.CounterOpts{
		Name: "edp_visual_anomalies_total",
		Help: "Check-ins flagged by the biometric service.",
	})

	// OverdueAlerts counts missed head-injury assessment deadlines.
	OverdueAlerts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "edp_overdue_assessments_total",
		Help: "Head-injury checkpoints that went overdue.",
	})

	// TicketsFiled counts filed behavior tickets by level.
	TicketsFiled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "edp_behavior_tickets_filed_total",
		Help: "Behavior tickets filed.",
	}, []string{"level"})

	// ReportsSent counts guardian reports handed to the delivery mock.
	ReportsSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "edp_reports_sent_total",
		Help: "Guardian reports marked sent.",
	})
)
