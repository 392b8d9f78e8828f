package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/akylbek/ar-system/discrepancy-service/internal/models"
	"github.com/akylbek/ar-system/discrepancy-service/internal/service"
)

type CustomerHandler struct {
	svc *service.CustomerService
}

func NewCustomerHandler(svc *service.CustomerService) *CustomerHandler {
	return &CustomerHandler{svc: svc}
}

type customerQuery struct {
	Search    string `form:"search"`
	RiskLevel string `form:"riskLevel" binding:"omitempty,risk_tier"`
	IsActive  *bool  `form:"isActive"`
	Page      int    `form:"page" binding:"omitempty,min=1"`
	Limit     int    `form:"limit" binding:"omitempty,min=1,max=100"`
	SortBy    string `form:"sortBy"`
	SortOrder string `form:"sortOrder" binding:"omitempty,oneof=asc desc"`
}

func (h *CustomerHandler) List(c *gin.Context) {
	var q customerQuery
	if !bindQuery(c, &q) {
		return
	}
	items, p, err := h.svc.List(c.Request.Context(), models.CustomerFilter{
		Search:    q.Search,
		RiskLevel: models.RiskTier(q.RiskLevel),
		IsActive:  q.IsActive,
		Page:      q.Page,
		Limit:     q.Limit,
		SortBy:    q.SortBy,
		SortOrder: q.SortOrder,
	})
	if err != nil {
		fail(c, err)
		return
	}
	list(c, items, p)
}

func (h *CustomerHandler) Search(c *gin.Context) {
	items, err := h.svc.Search(c.Request.Context(), c.Query("q"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, items)
}

func (h *CustomerHandler) Get(c *gin.Context) {
	detail, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, detail)
}

type customerRequest struct {
	CustomerCode  string           `json:"customerCode" binding:"omitempty,max=50"`
	Name          string           `json:"name" binding:"omitempty,max=255"`
	Email         *string          `json:"email" binding:"omitempty,email"`
	Phone         *string          `json:"phone"`
	Address       *string          `json:"address"`
	ContactPerson *string          `json:"contactPerson"`
	PaymentTerms  *int             `json:"paymentTerms" binding:"omitempty,min=0"`
	CreditLimit   *decimal.Decimal `json:"creditLimit"`
	RiskLevel     string           `json:"riskLevel" binding:"omitempty,risk_tier"`
	Notes         *string          `json:"notes"`
	IsActive      *bool            `json:"isActive"`
}

func (r customerRequest) toInput() service.CustomerInput {
	return service.CustomerInput{
		CustomerCode:  r.CustomerCode,
		Name:          r.Name,
		Email:         r.Email,
		Phone:         r.Phone,
		Address:       r.Address,
		ContactPerson: r.ContactPerson,
		PaymentTerms:  r.PaymentTerms,
		CreditLimit:   r.CreditLimit,
		RiskLevel:     models.RiskTier(r.RiskLevel),
		Notes:         r.Notes,
		IsActive:      r.IsActive,
	}
}

func (h *CustomerHandler) Create(c *gin.Context) {
	var req customerRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.Name == "" {
		fail(c, validationRequired("name"))
		return
	}
	customer, err := h.svc.Create(c.Request.Context(), req.toInput())
	if err != nil {
		fail(c, err)
		return
	}
	created(c, customer)
}

func (h *CustomerHandler) Update(c *gin.Context) {
	var req customerRequest
	if !bindJSON(c, &req) {
		return
	}
	customer, err := h.svc.Update(c.Request.Context(), c.Param("id"), req.toInput())
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, customer)
}

func (h *CustomerHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), actorFrom(c), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	okMessage(c, "Customer deleted")
}
