package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/expensetrack/approval-engine/internal/application/port"
	"github.com/expensetrack/approval-engine/internal/application/service"
	"github.com/expensetrack/approval-engine/internal/approval"
	"github.com/expensetrack/approval-engine/internal/domain/entity"
)

// Logger is the minimal logging dependency of the HTTP layer
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// Handlers contains all HTTP request handlers
type Handlers struct {
	approvals service.ApprovalService
	reports   port.ReportRepository
	employees port.EmployeeRepository
	logger    Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(
	approvals service.ApprovalService,
	reports port.ReportRepository,
	employees port.EmployeeRepository,
	logger Logger,
) *Handlers {
	return &Handlers{
		approvals: approvals,
		reports:   reports,
		employees: employees,
		logger:    logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: gin.H{
			"status":    "healthy",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		},
	})
}

// CreateReportRequest is the thin draft-report create payload. Report
// editing itself lives outside the engine; this exists so the pipeline has
// rows to act on.
type CreateReportRequest struct {
	ID         string            `json:"id"`
	EmployeeID string            `json:"employee_id" binding:"required"`
	Month      int               `json:"month" binding:"required,min=1,max=12"`
	Year       int               `json:"year" binding:"required"`
	ReportData entity.ReportData `json:"report_data"`
}

// CreateReport handles POST /api/v1/reports
func (h *Handlers) CreateReport(c *gin.Context) {
	var req CreateReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: err.Error()})
		return
	}

	report := &entity.Report{
		ID:         req.ID,
		EmployeeID: req.EmployeeID,
		Month:      req.Month,
		Year:       req.Year,
		Status:     entity.StatusDraft,
		ReportData: req.ReportData,
	}
	if err := h.reports.Create(c.Request.Context(), report); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, Response{Success: true, Data: gin.H{"id": report.ID}})
}

// UpsertEmployee handles POST /api/v1/employees
func (h *Handlers) UpsertEmployee(c *gin.Context) {
	var emp entity.Employee
	if err := c.ShouldBindJSON(&emp); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: err.Error()})
		return
	}
	if emp.ID == "" || emp.Name == "" {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "id and name are required"})
		return
	}
	if err := h.employees.Upsert(c.Request.Context(), &emp); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: gin.H{"id": emp.ID}})
}

// SubmitReport handles POST /api/v1/reports/:id/submit
func (h *Handlers) SubmitReport(c *gin.Context) {
	head, err := h.approvals.Submit(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: head})
}

// ActionRequest is the act payload. Actor identity comes from the
// already-authenticated caller.
type ActionRequest struct {
	Action  string           `json:"action" binding:"required"`
	Actor   approval.Actor   `json:"actor" binding:"required"`
	Payload approval.Payload `json:"payload"`
}

// ActOnReport handles POST /api/v1/reports/:id/actions
func (h *Handlers) ActOnReport(c *gin.Context) {
	var req ActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: err.Error()})
		return
	}

	head, err := h.approvals.Act(c.Request.Context(), c.Param("id"), req.Action, req.Actor, req.Payload)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: head})
}

// GetApprovalState handles GET /api/v1/reports/:id/approval
func (h *Handlers) GetApprovalState(c *gin.Context) {
	head, err := h.approvals.GetApprovalState(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: head})
}

// GetAuditLog handles GET /api/v1/reports/:id/approval/log
func (h *Handlers) GetAuditLog(c *gin.Context) {
	entries, err := h.approvals.GetAuditLog(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: entries})
}

// AddRevisionNoteRequest is the direct revision-note create payload
type AddRevisionNoteRequest struct {
	RequestedBy     string `json:"requested_by" binding:"required"`
	RequestedByName string `json:"requested_by_name"`
	RequestedByRole string `json:"requested_by_role"`
	TargetRole      string `json:"target_role"`
	Category        string `json:"category" binding:"required"`
	ItemID          string `json:"item_id"`
	ItemType        string `json:"item_type"`
	Notes           string `json:"notes"`
}

// AddRevisionNote handles POST /api/v1/reports/:id/revision-notes
func (h *Handlers) AddRevisionNote(c *gin.Context) {
	var req AddRevisionNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: err.Error()})
		return
	}

	note := &entity.RevisionNote{
		RequestedBy:     req.RequestedBy,
		RequestedByName: req.RequestedByName,
		RequestedByRole: req.RequestedByRole,
		TargetRole:      req.TargetRole,
		Category:        entity.RevisionCategory(req.Category),
		ItemID:          req.ItemID,
		ItemType:        req.ItemType,
		Notes:           req.Notes,
	}
	id, err := h.approvals.AddRevisionNote(c.Request.Context(), c.Param("id"), note)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, Response{Success: true, Data: gin.H{"id": id}})
}

// ListRevisionNotes handles GET /api/v1/reports/:id/revision-notes
func (h *Handlers) ListRevisionNotes(c *gin.Context) {
	unresolvedOnly := c.Query("unresolved") == "true"
	notes, err := h.approvals.ListRevisionNotes(c.Request.Context(), c.Param("id"), unresolvedOnly)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: notes})
}

// ResolveRevisionNoteRequest identifies who resolved the note
type ResolveRevisionNoteRequest struct {
	ResolvedBy string `json:"resolved_by" binding:"required"`
}

// ResolveRevisionNote handles POST /api/v1/reports/:id/revision-notes/:noteId/resolve
func (h *Handlers) ResolveRevisionNote(c *gin.Context) {
	var req ResolveRevisionNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: err.Error()})
		return
	}
	err := h.approvals.ResolveRevisionNote(c.Request.Context(), c.Param("id"), c.Param("noteId"), req.ResolvedBy)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true})
}

// respondError maps engine error kinds onto HTTP statuses
func (h *Handlers) respondError(c *gin.Context, err error) {
	var (
		validationErr    *approval.ValidationError
		authorizationErr *approval.AuthorizationError
		notFoundErr      *approval.NotFoundError
		persistenceErr   *approval.PersistenceError
	)
	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: validationErr.Error()})
	case errors.As(err, &authorizationErr):
		c.JSON(http.StatusForbidden, Response{Success: false, Error: authorizationErr.Error()})
	case errors.As(err, &notFoundErr):
		c.JSON(http.StatusNotFound, Response{Success: false, Error: notFoundErr.Error()})
	case errors.Is(err, approval.ErrNoActiveStep):
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   "no active approval step; resubmit the report to rebuild its workflow",
		})
	case errors.As(err, &persistenceErr):
		h.logger.Error("Persistence failure", "error", err, "path", c.FullPath())
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "storage failure, the action was not applied"})
	default:
		h.logger.Error("Unhandled error", "error", err, "path", c.FullPath())
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "internal error"})
	}
}
