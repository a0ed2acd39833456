// Package handler maps the HTTP surface onto the engine. Every mutating
// route resolves the authenticated staff record and lets the engine's
// permission checks decide; no client-side mode flag grants anything.
package handler

import (
	"errors"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/midoriparadigm/Cajon-Valley-EDP-Attendance-App/internal/attendance"
	"github.com/midoriparadigm/Cajon-Valley-EDP-Attendance-App/internal/auth"
	"github.com/midoriparadigm/Cajon-Valley-EDP-Attendance-App/internal/behavior"
	"github.com/midoriparadigm/Cajon-Valley-EDP-Attendance-App/internal/clock"
	"github.com/midoriparadigm/Cajon-Valley-EDP-Attendance-App/internal/cloudinary"
	"github.com/midoriparadigm/Cajon-Valley-EDP-Attendance-App/internal/faceclient"
	"github.com/midoriparadigm/Cajon-Valley-EDP-Attendance-App/internal/incident"
	"github.com/midoriparadigm/Cajon-Valley-EDP-Attendance-App/internal/metrics"
	"github.com/midoriparadigm/Cajon-Valley-EDP-Attendance-App/internal/model"
	"github.com/midoriparadigm/Cajon-Valley-EDP-Attendance-App/internal/report"
	"github.com/midoriparadigm/Cajon-Valley-EDP-Attendance-App/internal/roster"
	"github.com/midoriparadigm/Cajon-Valley-EDP-Attendance-App/internal/scheduler"
)

// Handler bundles the engine components behind gin routes.
type Handler struct {
	Repo       roster.Repository
	Staff      *roster.StaffDirectory
	Machine    *attendance.Machine
	Monitor    *incident.Monitor
	Behavior   *behavior.Workflow
	Reports    report.Store
	Dispatcher *report.Dispatcher
	Scheduler  *scheduler.Scheduler
	Face       *faceclient.Client
	Cloud      *cloudinary.Client // nil if not configured
	Clock      clock.Clock
}

// Register mounts all authenticated engine routes on g.
func (h *Handler) Register(g *gin.RouterGroup) {
	g.GET("/roster", h.Roster)
	g.POST("/students/:id/checkin", h.CheckIn)
	g.POST("/students/:id/checkout-request", h.RequestCheckOut)

	g.POST("/students/:id/head-injury", h.OpenIncident)
	g.POST("/students/:id/head-injury/stages", h.RecordStage)
	g.DELETE("/students/:id/head-injury", h.CancelIncident)
	g.POST("/students/:id/head-injury/report", h.DraftInjuryReport)

	g.POST("/students/:id/behavior/level", h.SetBehaviorLevel)
	g.POST("/students/:id/behavior/issues", h.ToggleBehaviorIssue)
	g.POST("/students/:id/behavior/description", h.SetBehaviorDescription)
	g.POST("/students/:id/behavior/file", h.FileBehavior)
	g.DELETE("/students/:id/behavior", h.CancelBehavior)

	g.GET("/students/:id/reports", h.ListReports)
	g.POST("/reports/:id/send", h.SendReport)

	g.POST("/batch-checkout", h.ScheduleBatch)
	g.DELETE("/batch-checkout", h.CancelBatch)

	g.POST("/upload", h.Upload)
}

// actor resolves the authenticated staff record from the JWT claims.
func (h *Handler) actor(c *gin.Context) (model.Staff, bool) {
	claimsAny, _ := c.Get("claims")
	claims, _ := claimsAny.(auth.Claims)
	staff, err := h.Staff.Get(claims.Subject)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unknown staff member"})
		return model.Staff{}, false
	}
	return staff, true
}

// fail maps engine errors onto HTTP statuses.
func fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, model.ErrPermissionDenied):
		status = http.StatusForbidden
	case errors.Is(err, model.ErrCheckInBlocked), errors.Is(err, model.ErrInvalidTransition):
		status = http.StatusConflict
	case errors.Is(err, model.ErrValidation), errors.Is(err, model.ErrInvalidSchedule):
		status = http.StatusBadRequest
	case errors.Is(err, model.ErrNotFound):
		status = http.StatusNotFound
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// Roster returns students sorted for display, with per-session status.
func (h *Handler) Roster(c *gin.Context) {
	students, err := h.Repo.List(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	attendance.SortRoster(students)
	c.JSON(http.StatusOK, gin.H{"students": students})
}

type checkInRequest struct {
	Session  model.Session `json:"session" binding:"required"`
	PhotoURL string        `json:"photo_url"`
	Verify   bool          `json:"verify"`
}

// CheckIn marks a student present, optionally running biometric verify on
// the provided photo first.
func (h *Handler) CheckIn(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var req checkInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	in := attendance.CheckInInput{PhotoURL: req.PhotoURL}
	if req.Verify && req.PhotoURL != "" {
		res, err := h.Face.Verify(c.Request.Context(), req.PhotoURL, c.Param("id"))
		if err != nil {
			log.Printf("biometric verify failed: %v", err)
		} else {
			in.Biometric = &attendance.BiometricResult{
				MatchScore:      res.MatchScore,
				AnomalyScore:    res.AnomalyScore,
				AnomalyDetected: res.AnomalyDetected,
			}
		}
	}

	st, err := h.Machine.CheckIn(c.Request.Context(), c.Param("id"), req.Session, actor, in)
	if err != nil {
		fail(c, err)
		return
	}
	metrics.CheckIns.WithLabelValues(string(req.Session)).Inc()
	c.JSON(http.StatusOK, st)
}

type sessionRequest struct {
	Session model.Session `json:"session" binding:"required"`
}

// RequestCheckOut starts the guardian SMS checkout flow.
func (h *Handler) RequestCheckOut(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var req sessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	st, err := h.Machine.RequestCheckOut(c.Request.Context(), c.Param("id"), req.Session, actor)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

type openIncidentRequest struct {
	Witness     string `json:"witness" binding:"required"`
	Description string `json:"description"`
}

// OpenIncident starts head-injury monitoring.
func (h *Handler) OpenIncident(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	if err := requireHIR(actor); err != nil {
		fail(c, err)
		return
	}
	var req openIncidentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	st, err := h.Monitor.Open(c.Request.Context(), c.Param("id"), req.Witness, req.Description, actor.Name)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

type recordStageRequest struct {
	Stage    model.Stage     `json:"stage" binding:"required"`
	Symptoms map[string]bool `json:"symptoms"`
	Notes    string          `json:"notes"`
}

// RecordStage logs the next protocol checkpoint.
func (h *Handler) RecordStage(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	if err := requireHIR(actor); err != nil {
		fail(c, err)
		return
	}
	var req recordStageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	st, err := h.Monitor.RecordStage(c.Request.Context(), c.Param("id"), req.Stage, req.Symptoms, req.Notes, actor.Name)
	if err != nil {
		fail(c, err)
		return
	}
	left, monitoring := incident.TimeLeft(st, h.Clock.Now())
	resp := gin.H{"student": st}
	if monitoring {
		resp["next_check_in"] = left.String()
	}
	c.JSON(http.StatusOK, resp)
}

// CancelIncident fully resets head-injury monitoring.
func (h *Handler) CancelIncident(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	if err := requireHIR(actor); err != nil {
		fail(c, err)
		return
	}
	st, err := h.Monitor.Cancel(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

type draftReportRequest struct {
	Method model.ReportMethod `json:"method"`
}

// DraftInjuryReport composes the guardian injury report for review. The
// injury flow always passes through this explicit step; only behavior
// tickets draft silently.
func (h *Handler) DraftInjuryReport(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	if err := requireHIR(actor); err != nil {
		fail(c, err)
		return
	}
	var req draftReportRequest
	if err := c.ShouldBindJSON(&req); err != nil && err != io.EOF {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Method == "" {
		req.Method = model.MethodBoth
	}
	st, err := h.Repo.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	if !st.HeadInjury.Active {
		fail(c, model.ErrInvalidTransition)
		return
	}
	now := h.Clock.Now()
	r, err := h.Reports.Create(c.Request.Context(), model.ParentReport{
		StudentID: st.ID,
		Type:      model.ReportInjury,
		Message:   report.Generate(st, model.ReportInjury, now),
		Method:    req.Method,
		Status:    model.ReportDraft,
		CreatedAt: now,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, r)
}

type levelRequest struct {
	Level model.Level `json:"level" binding:"required"`
}

// SetBehaviorLevel selects or toggles off a ticket severity.
func (h *Handler) SetBehaviorLevel(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var req levelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	st, err := h.Behavior.SetLevel(c.Request.Context(), c.Param("id"), req.Level, actor.Name)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

type issueRequest struct {
	Issue string `json:"issue" binding:"required"`
}

// ToggleBehaviorIssue checks or unchecks a checklist issue.
func (h *Handler) ToggleBehaviorIssue(c *gin.Context) {
	if _, ok := h.actor(c); !ok {
		return
	}
	var req issueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	st, err := h.Behavior.ToggleIssue(c.Request.Context(), c.Param("id"), req.Issue)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

type descriptionRequest struct {
	Description string `json:"description"`
}

// SetBehaviorDescription sets the ticket free text.
func (h *Handler) SetBehaviorDescription(c *gin.Context) {
	if _, ok := h.actor(c); !ok {
		return
	}
	var req descriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	st, err := h.Behavior.SetDescription(c.Request.Context(), c.Param("id"), req.Description)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// FileBehavior files the ticket; the guardian draft is created silently.
func (h *Handler) FileBehavior(c *gin.Context) {
	if _, ok := h.actor(c); !ok {
		return
	}
	r, err := h.Behavior.File(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	metrics.TicketsFiled.WithLabelValues(string(r.BehaviorLevel)).Inc()
	c.JSON(http.StatusCreated, r)
}

// CancelBehavior discards the in-progress ticket.
func (h *Handler) CancelBehavior(c *gin.Context) {
	if _, ok := h.actor(c); !ok {
		return
	}
	st, err := h.Behavior.Cancel(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// ListReports returns a student's guardian reports.
func (h *Handler) ListReports(c *gin.Context) {
	if _, ok := h.actor(c); !ok {
		return
	}
	reports, err := h.Reports.ListByStudent(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reports": reports})
}

// SendReport hands a draft to the delivery worker.
func (h *Handler) SendReport(c *gin.Context) {
	if _, ok := h.actor(c); !ok {
		return
	}
	id := c.Param("id")
	if _, err := h.Reports.Get(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}
	if err := h.Dispatcher.Enqueue(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"report_id": id, "status": "queued"})
}

type scheduleRequest struct {
	Time    string        `json:"time" binding:"required"`
	Session model.Session `json:"session" binding:"required"`
}

// ScheduleBatch arms the batch-checkout deadline. Administrative action.
func (h *Handler) ScheduleBatch(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	if err := requireAdmin(actor); err != nil {
		fail(c, err)
		return
	}
	var req scheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.Scheduler.Schedule(req.Time, req.Session); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"scheduled_time": req.Time, "session": req.Session})
}

// CancelBatch clears any pending deadline.
func (h *Handler) CancelBatch(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	if err := requireAdmin(actor); err != nil {
		fail(c, err)
		return
	}
	h.Scheduler.Cancel()
	c.Status(http.StatusNoContent)
}

// Upload stores a check-in photo and returns its URL.
func (h *Handler) Upload(c *gin.Context) {
	if _, ok := h.actor(c); !ok {
		return
	}
	if h.Cloud == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "image storage not configured"})
		return
	}

	contentType := c.ContentType()
	var result *cloudinary.UploadResult
	var err error

	switch {
	case strings.Contains(contentType, "multipart/form-data"):
		file, header, ferr := c.Request.FormFile("file")
		if ferr != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "file field required"})
			return
		}
		defer file.Close()
		data, ferr := io.ReadAll(file)
		if ferr != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "read file failed"})
			return
		}
		result, err = h.Cloud.UploadBytes(data, header.Filename)

	default:
		var body struct {
			Data string `json:"data" binding:"required"`
		}
		if berr := c.ShouldBindJSON(&body); berr != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "provide {\"data\": \"<base64 data URL>\"}"})
			return
		}
		result, err = h.Cloud.UploadBase64(body.Data)
	}

	if err != nil {
		log.Printf("cloudinary upload failed: %v", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "image upload failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": result.SecureURL, "public_id": result.PublicID})
}
