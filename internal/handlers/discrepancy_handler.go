package handlers

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/akylbek/ar-system/discrepancy-service/internal/mailer"
	"github.com/akylbek/ar-system/discrepancy-service/internal/models"
	"github.com/akylbek/ar-system/discrepancy-service/internal/service"
)

type DiscrepancyHandler struct {
	svc *service.DiscrepancyService
}

func NewDiscrepancyHandler(svc *service.DiscrepancyService) *DiscrepancyHandler {
	return &DiscrepancyHandler{svc: svc}
}

type discrepancyQuery struct {
	Search            string     `form:"search"`
	Status            string     `form:"status" binding:"omitempty,discrepancy_status"`
	Priority          string     `form:"priority" binding:"omitempty,priority"`
	Type              string     `form:"type" binding:"omitempty,discrepancy_type"`
	InterventionLevel string     `form:"interventionLevel" binding:"omitempty,oneof=AI_AUTONOMOUS AI_ASSISTED HUMAN_REQUIRED"`
	AssignedUserID    string     `form:"assignedUserId"`
	CustomerID        string     `form:"customerId"`
	StartDate         *time.Time `form:"startDate" time_format:"2006-01-02"`
	EndDate           *time.Time `form:"endDate" time_format:"2006-01-02"`
	Page              int        `form:"page" binding:"omitempty,min=1"`
	Limit             int        `form:"limit" binding:"omitempty,min=1,max=100"`
	SortBy            string     `form:"sortBy"`
	SortOrder         string     `form:"sortOrder" binding:"omitempty,oneof=asc desc"`
}

func (h *DiscrepancyHandler) List(c *gin.Context) {
	var q discrepancyQuery
	if !bindQuery(c, &q) {
		return
	}
	items, p, err := h.svc.List(c.Request.Context(), models.DiscrepancyFilter{
		Search:            q.Search,
		Status:            models.DiscrepancyStatus(q.Status),
		Priority:          models.Priority(q.Priority),
		Type:              models.DiscrepancyType(q.Type),
		InterventionLevel: models.InterventionLevel(q.InterventionLevel),
		AssignedUserID:    q.AssignedUserID,
		CustomerID:        q.CustomerID,
		StartDate:         q.StartDate,
		EndDate:           q.EndDate,
		Page:              q.Page,
		Limit:             q.Limit,
		SortBy:            q.SortBy,
		SortOrder:         q.SortOrder,
	})
	if err != nil {
		fail(c, err)
		return
	}
	list(c, items, p)
}

func (h *DiscrepancyHandler) Get(c *gin.Context) {
	d, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, d)
}

type createDiscrepancyRequest struct {
	CustomerID         string          `json:"customerId"`
	CustomerName       string          `json:"customerName"`
	CustomerEmail      string          `json:"customerEmail" binding:"omitempty,email"`
	Type               string          `json:"type" binding:"required,discrepancy_type"`
	ExpectedAmount     decimal.Decimal `json:"expectedAmount"`
	ActualAmount       decimal.Decimal `json:"actualAmount"`
	DueDate            *time.Time      `json:"dueDate"`
	Notes              string          `json:"notes"`
	Tags               []string        `json:"tags"`
	Priority           *string         `json:"priority" binding:"omitempty,priority"`
	GoodPaymentHistory *bool           `json:"goodPaymentHistory"`
}

func (h *DiscrepancyHandler) Create(c *gin.Context) {
	var req createDiscrepancyRequest
	if !bindJSON(c, &req) {
		return
	}
	in := service.CreateDiscrepancyInput{
		CustomerID:         req.CustomerID,
		CustomerName:       req.CustomerName,
		CustomerEmail:      req.CustomerEmail,
		Type:               models.DiscrepancyType(req.Type),
		ExpectedAmount:     req.ExpectedAmount,
		ActualAmount:       req.ActualAmount,
		DueDate:            req.DueDate,
		Notes:              req.Notes,
		Tags:               req.Tags,
		GoodPaymentHistory: req.GoodPaymentHistory,
	}
	if req.Priority != nil {
		p := models.Priority(*req.Priority)
		in.Priority = &p
	}
	view, err := h.svc.Create(c.Request.Context(), actorFrom(c), in)
	if err != nil {
		fail(c, err)
		return
	}
	created(c, view)
}

type updateDiscrepancyRequest struct {
	Status         *string  `json:"status" binding:"omitempty,discrepancy_status"`
	Priority       *string  `json:"priority" binding:"omitempty,priority"`
	Notes          *string  `json:"notes"`
	AssignedUserID *string  `json:"assignedUserId"`
	Tags           []string `json:"tags"`
	Version        *int     `json:"version" binding:"omitempty,min=1"`
}

func (h *DiscrepancyHandler) Update(c *gin.Context) {
	var req updateDiscrepancyRequest
	if !bindJSON(c, &req) {
		return
	}
	u := models.DiscrepancyUpdate{
		Notes:          req.Notes,
		AssignedUserID: req.AssignedUserID,
		Tags:           req.Tags,
		Version:        req.Version,
	}
	if req.Status != nil {
		s := models.DiscrepancyStatus(*req.Status)
		u.Status = &s
	}
	if req.Priority != nil {
		p := models.Priority(*req.Priority)
		u.Priority = &p
	}
	view, err := h.svc.Update(c.Request.Context(), actorFrom(c), c.Param("id"), u)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, view)
}

func (h *DiscrepancyHandler) Delete(c *gin.Context) {
	cascade := c.Query("cascade") == "true"
	if err := h.svc.Delete(c.Request.Context(), actorFrom(c), c.Param("id"), cascade); err != nil {
		fail(c, err)
		return
	}
	okMessage(c, "Discrepancy deleted")
}

type sendEmailRequest struct {
	EmailType     string   `json:"emailType" binding:"omitempty,oneof=reminder inquiry custom"`
	TemplateID    string   `json:"templateId"`
	CustomMessage string   `json:"customMessage"`
	Cc            []string `json:"cc" binding:"omitempty,dive,email"`
	Bcc           []string `json:"bcc" binding:"omitempty,dive,email"`
}

func (r sendEmailRequest) toService() service.SendRequest {
	kind := r.EmailType
	if kind == "" {
		kind = mailer.KindReminder
	}
	return service.SendRequest{
		Kind:          kind,
		TemplateID:    r.TemplateID,
		CustomMessage: r.CustomMessage,
		Cc:            r.Cc,
		Bcc:           r.Bcc,
	}
}

func (h *DiscrepancyHandler) SendEmail(c *gin.Context) {
	var req sendEmailRequest
	if !bindOptionalJSON(c, &req) {
		return
	}
	res, err := h.svc.SendEmail(c.Request.Context(), actorFrom(c), c.Param("id"), req.toService())
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, res)
}

func (h *DiscrepancyHandler) Statistics(c *gin.Context) {
	stats, err := h.svc.Statistics(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, stats)
}
