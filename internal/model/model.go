package model

import "time"

// Session is one of the two daily attendance windows.
type Session string

const (
	SessionSunrise Session = "sunrise"
	SessionSunset  Session = "sunset"
)

// Valid reports whether s is a known session.
func (s Session) Valid() bool {
	return s == SessionSunrise || s == SessionSunset
}

// Status is the per-session attendance state of a student.
type Status string

const (
	StatusAbsent        Status = "absent"
	StatusPresent       Status = "present"
	StatusPendingParent Status = "pending_parent"
	StatusCheckedOut    Status = "checked_out"
)

// Rank orders statuses along the only legal direction of travel.
// Transitions never decrease rank.
func (s Status) Rank() int {
	switch s {
	case StatusAbsent:
		return 0
	case StatusPresent:
		return 1
	case StatusPendingParent:
		return 2
	case StatusCheckedOut:
		return 3
	}
	return -1
}

// Stage is a checkpoint in the head-injury monitoring protocol.
type Stage string

const (
	Stage0  Stage = "0min"
	Stage15 Stage = "15min"
	Stage30 Stage = "30min"
)

// Stages lists the protocol checkpoints in mandatory completion order.
var Stages = []Stage{Stage0, Stage15, Stage30}

// Offset returns the stage's distance from the monitoring origin time.
func (s Stage) Offset() time.Duration {
	switch s {
	case Stage15:
		return 15 * time.Minute
	case Stage30:
		return 30 * time.Minute
	}
	return 0
}

// Level is a behavior ticket severity.
type Level string

const (
	LevelNone   Level = "none"
	LevelGreen  Level = "green"
	LevelYellow Level = "yellow"
	LevelRed    Level = "red"
)

// Active reports whether l is a selected severity (green, yellow or red).
// Both "" and LevelNone mean no ticket.
func (l Level) Active() bool {
	return l == LevelGreen || l == LevelYellow || l == LevelRed
}

// Label returns the guardian-facing severity label, e.g. "Level 3 (Red)".
func (l Level) Label() string {
	switch l {
	case LevelGreen:
		return "Level 1 (Green)"
	case LevelYellow:
		return "Level 2 (Yellow)"
	case LevelRed:
		return "Level 3 (Red)"
	}
	return ""
}

// SessionRecord holds one session's attendance state and its side-data.
type SessionRecord struct {
	Status          Status     `json:"status"`
	CheckInAt       *time.Time `json:"check_in_at,omitempty"`
	CheckInBy       string     `json:"check_in_by,omitempty"`
	PhotoURL        string     `json:"photo_url,omitempty"`
	MatchScore      *float64   `json:"match_score,omitempty"`
	AnomalyScore    *float64   `json:"anomaly_score,omitempty"`
	AnomalyDetected bool       `json:"anomaly_detected,omitempty"`
	SMSSentAt       *time.Time `json:"sms_sent_at,omitempty"`
	CheckOutAt      *time.Time `json:"check_out_at,omitempty"`
	CheckOutBy      string     `json:"check_out_by,omitempty"`
}

// HeadInjuryLog is one completed protocol checkpoint. Symptoms maps each
// tracked symptom to an explicit observation; a key set to false means
// "assessed, not observed", which is distinct from the key being absent.
type HeadInjuryLog struct {
	Stage       Stage           `json:"stage"`
	CompletedAt time.Time       `json:"completed_at"`
	StaffName   string          `json:"staff_name"`
	Symptoms    map[string]bool `json:"symptoms"`
	Notes       string          `json:"notes,omitempty"`
}

// HeadInjury is the monitoring state for an open (or absent) incident.
type HeadInjury struct {
	Active      bool            `json:"active"`
	StartTime   *time.Time      `json:"start_time,omitempty"`
	Witness     string          `json:"witness,omitempty"`
	WitnessDesc string          `json:"witness_desc,omitempty"`
	Logs        []HeadInjuryLog `json:"logs,omitempty"`
	Alerted     map[Stage]bool  `json:"alerted,omitempty"`
}

// Log returns the completed log for a stage, or nil.
func (h HeadInjury) Log(stage Stage) *HeadInjuryLog {
	for i := range h.Logs {
		if h.Logs[i].Stage == stage {
			return &h.Logs[i]
		}
	}
	return nil
}

// NextStage returns the first stage without a completed log. ok is false
// once all three stages are logged.
func (h HeadInjury) NextStage() (Stage, bool) {
	for _, st := range Stages {
		if h.Log(st) == nil {
			return st, true
		}
	}
	return "", false
}

// Complete reports whether the final 30min checkpoint is logged.
func (h HeadInjury) Complete() bool {
	return h.Log(Stage30) != nil
}

// BehaviorTicket is an in-progress or filed behavior incident.
type BehaviorTicket struct {
	Level       Level      `json:"level"`
	Issues      []string   `json:"issues,omitempty"`
	Description string     `json:"description,omitempty"`
	Timestamp   *time.Time `json:"timestamp,omitempty"`
	Staff       string     `json:"staff,omitempty"`
	Filed       bool       `json:"filed,omitempty"`
}

// HasIssue reports whether an issue label is currently checked.
func (b BehaviorTicket) HasIssue(name string) bool {
	for _, is := range b.Issues {
		if is == name {
			return true
		}
	}
	return false
}

// Student is a roster entry. The engine mutates attendance, incident and
// behavior state; identity and guardian fields are owned by the roster.
type Student struct {
	ID             string         `json:"id"`
	FirstName      string         `json:"first_name"`
	LastName       string         `json:"last_name"`
	Grade          string         `json:"grade"`
	GuardianName   string         `json:"guardian_name,omitempty"`
	GuardianEmail  string         `json:"guardian_email,omitempty"`
	GuardianPhone  string         `json:"guardian_phone,omitempty"`
	CheckInBlocked bool           `json:"check_in_blocked,omitempty"`
	Sunrise        SessionRecord  `json:"sunrise"`
	Sunset         SessionRecord  `json:"sunset"`
	HeadInjury     HeadInjury     `json:"head_injury"`
	Behavior       BehaviorTicket `json:"behavior"`
	CreatedAt      time.Time      `json:"created_at"`
}

// SessionRecord returns a pointer to the record for the given session.
func (s *Student) SessionRecord(sess Session) *SessionRecord {
	if sess == SessionSunset {
		return &s.Sunset
	}
	return &s.Sunrise
}

// Name returns the display name.
func (s Student) Name() string {
	if s.LastName == "" {
		return s.FirstName
	}
	return s.FirstName + " " + s.LastName
}

// Role is a staff role.
type Role string

const (
	RoleLead      Role = "Lead"
	RoleAssistant Role = "Assistant"
	RoleCoach     Role = "Coach"
)

// Staff is a program staff member with capability grants. Records are
// created at roster setup and treated as immutable during a transition.
type Staff struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	Role           Role     `json:"role"`
	CanCheckIn     bool     `json:"can_check_in"`
	CanAdminTasks  bool     `json:"can_admin_tasks"`
	CanCheckOut    bool     `json:"can_check_out"`
	CanHIR         bool     `json:"can_hir"`
	AssignedGrades []string `json:"assigned_grades,omitempty"`
}

// CoversGrade reports whether the staff member's grade assignment covers
// the given grade. An empty assignment means all grades.
func (s Staff) CoversGrade(grade string) bool {
	if len(s.AssignedGrades) == 0 {
		return true
	}
	for _, g := range s.AssignedGrades {
		if g == grade {
			return true
		}
	}
	return false
}

// ReportType distinguishes guardian report kinds.
type ReportType string

const (
	ReportInjury   ReportType = "injury"
	ReportBehavior ReportType = "behavior"
)

// ReportMethod is the requested delivery channel.
type ReportMethod string

const (
	MethodEmail ReportMethod = "email"
	MethodSMS   ReportMethod = "sms"
	MethodBoth  ReportMethod = "both"
)

// ReportStatus is the local lifecycle of a guardian report.
// The only legal move is draft -> sent.
type ReportStatus string

const (
	ReportDraft ReportStatus = "draft"
	ReportSent  ReportStatus = "sent"
)

// ParentReport is a guardian-facing message generated by the engine.
type ParentReport struct {
	ID            string       `json:"id"`
	StudentID     string       `json:"student_id"`
	Type          ReportType   `json:"type"`
	BehaviorLevel Level        `json:"behavior_level,omitempty"`
	Message       string       `json:"message"`
	Method        ReportMethod `json:"method"`
	Status        ReportStatus `json:"status"`
	CreatedAt     time.Time    `json:"created_at"`
}

// BatchCheckoutDeadline is the single pending bulk-checkout trigger.
// ScheduledTime is a wall-clock time of day in "15:04" form.
type BatchCheckoutDeadline struct {
	ScheduledTime string  `json:"scheduled_time"`
	Session       Session `json:"session"`
}

// gradeOrder is the display order of program grades.
var gradeOrder = map[string]int{
	"TK": 0, "K": 1, "1": 2, "2": 3, "3": 4, "4": 5, "5": 6,
}

// GradeRank returns the sort position of a grade; unknown grades sort last.
func GradeRank(grade string) int {
	if r, ok := gradeOrder[grade]; ok {
		return r
	}
	return len(gradeOrder)
}
