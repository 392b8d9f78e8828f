package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/akylbek/ar-system/discrepancy-service/internal/models"
	"github.com/akylbek/ar-system/discrepancy-service/internal/service"
)

type EmailHandler struct {
	email         *service.EmailService
	discrepancies *service.DiscrepancyService
}

func NewEmailHandler(email *service.EmailService, discrepancies *service.DiscrepancyService) *EmailHandler {
	return &EmailHandler{email: email, discrepancies: discrepancies}
}

func (h *EmailHandler) GetSettings(c *gin.Context) {
	s, err := h.email.MaskedSettings(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, s)
}

func (h *EmailHandler) SaveSettings(c *gin.Context) {
	var req models.EmailSettings
	if !bindJSON(c, &req) {
		return
	}
	if err := h.email.SaveSettings(c.Request.Context(), req); err != nil {
		fail(c, err)
		return
	}
	okMessage(c, "Email settings saved")
}

func (h *EmailHandler) TestConnection(c *gin.Context) {
	var req struct {
		SMTP *models.SMTPSettings `json:"smtp"`
	}
	if !bindOptionalJSON(c, &req) {
		return
	}
	connected, msg, err := h.email.TestConnection(c.Request.Context(), req.SMTP)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"connected": connected, "error": msg})
}

func (h *EmailHandler) SendTest(c *gin.Context) {
	var req struct {
		To string `json:"to" binding:"required,email"`
	}
	if !bindJSON(c, &req) {
		return
	}
	log, err := h.email.SendTest(c.Request.Context(), req.To)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, log)
}

type sendDiscrepancyRequest struct {
	DiscrepancyID string `json:"discrepancyId" binding:"required"`
	sendEmailRequest
}

func (h *EmailHandler) SendDiscrepancy(c *gin.Context) {
	var req sendDiscrepancyRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.discrepancies.SendEmail(c.Request.Context(), actorFrom(c), req.DiscrepancyID, req.toService())
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, res)
}

type emailLogQuery struct {
	Status        string `form:"status" binding:"omitempty,oneof=PENDING SENT FAILED DELIVERED BOUNCED"`
	DiscrepancyID string `form:"discrepancyId"`
	CustomerID    string `form:"customerId"`
	Page          int    `form:"page" binding:"omitempty,min=1"`
	Limit         int    `form:"limit" binding:"omitempty,min=1,max=100"`
}

func (h *EmailHandler) Logs(c *gin.Context) {
	var q emailLogQuery
	if !bindQuery(c, &q) {
		return
	}
	items, p, err := h.email.Logs(c.Request.Context(), models.EmailLogFilter{
		Status:        models.EmailStatus(q.Status),
		DiscrepancyID: q.DiscrepancyID,
		CustomerID:    q.CustomerID,
		Page:          q.Page,
		Limit:         q.Limit,
	})
	if err != nil {
		fail(c, err)
		return
	}
	list(c, items, p)
}

func (h *EmailHandler) Templates(c *gin.Context) {
	items, err := h.email.Templates(c.Request.Context(), c.Query("active") == "true")
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, items)
}

type templateRequest struct {
	Name      *string  `json:"name" binding:"omitempty,max=255"`
	Subject   *string  `json:"subject"`
	Body      *string  `json:"body"`
	Type      *string  `json:"type"`
	Stage     *string  `json:"stage"`
	Variables []string `json:"variables"`
	IsActive  *bool    `json:"isActive"`
}

func (h *EmailHandler) CreateTemplate(c *gin.Context) {
	var req templateRequest
	if !bindJSON(c, &req) {
		return
	}
	for field, v := range map[string]*string{"name": req.Name, "subject": req.Subject, "body": req.Body} {
		if v == nil || *v == "" {
			fail(c, validationRequired(field))
			return
		}
	}
	t := &models.EmailTemplate{
		Name:      *req.Name,
		Subject:   *req.Subject,
		Body:      *req.Body,
		Type:      "custom",
		Stage:     req.Stage,
		Variables: req.Variables,
	}
	if req.Type != nil && *req.Type != "" {
		t.Type = *req.Type
	}
	if err := h.email.CreateTemplate(c.Request.Context(), actorFrom(c), t); err != nil {
		fail(c, err)
		return
	}
	created(c, t)
}

func (h *EmailHandler) UpdateTemplate(c *gin.Context) {
	var req templateRequest
	if !bindJSON(c, &req) {
		return
	}
	t, err := h.email.UpdateTemplate(c.Request.Context(), c.Param("id"), service.TemplateInput{
		Name:      req.Name,
		Subject:   req.Subject,
		Body:      req.Body,
		Type:      req.Type,
		Stage:     req.Stage,
		Variables: req.Variables,
		IsActive:  req.IsActive,
	})
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, t)
}

func (h *EmailHandler) DeleteTemplate(c *gin.Context) {
	if err := h.email.DeleteTemplate(c.Request.Context(), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	okMessage(c, "Template deleted")
}
