package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type RiskTier string

const (
	RiskLow      RiskTier = "LOW"
	RiskMedium   RiskTier = "MEDIUM"
	RiskHigh     RiskTier = "HIGH"
	RiskCritical RiskTier = "CRITICAL"
)

func (r RiskTier) Valid() bool {
	switch r {
	case RiskLow, RiskMedium, RiskHigh, RiskCritical:
		return true
	}
	return false
}

const DefaultPaymentTerms = 30

// Customer is the aggregate root for discrepancies. CustomerCode never
// changes after creation.
type Customer struct {
	ID            string           `json:"id"`
	CustomerCode  string           `json:"customerCode"`
	Name          string           `json:"name"`
	Email         *string          `json:"email,omitempty"`
	Phone         *string          `json:"phone,omitempty"`
	Address       *string          `json:"address,omitempty"`
	ContactPerson *string          `json:"contactPerson,omitempty"`
	PaymentTerms  int              `json:"paymentTerms"`
	CreditLimit   *decimal.Decimal `json:"creditLimit,omitempty"`
	RiskLevel     RiskTier         `json:"riskLevel"`
	Notes         *string          `json:"notes,omitempty"`
	IsActive      bool             `json:"isActive"`
	CreatedAt     time.Time        `json:"createdAt"`
	UpdatedAt     time.Time        `json:"updatedAt"`
}

func (c *Customer) Summary() *CustomerSummary {
	return &CustomerSummary{
		ID:           c.ID,
		CustomerCode: c.CustomerCode,
		Name:         c.Name,
		Email:        c.Email,
		RiskLevel:    c.RiskLevel,
	}
}

type CustomerSummary struct {
	ID           string   `json:"id"`
	CustomerCode string   `json:"customerCode"`
	Name         string   `json:"name"`
	Email        *string  `json:"email,omitempty"`
	RiskLevel    RiskTier `json:"riskLevel"`
}

type CustomerDetail struct {
	Customer
	DiscrepancyCount    int                  `json:"discrepancyCount"`
	RecentDiscrepancies []PaymentDiscrepancy `json:"recentDiscrepancies"`
	RecentEmails        []EmailLog           `json:"recentEmails"`
}

type CustomerFilter struct {
	Search    string
	RiskLevel RiskTier
	IsActive  *bool
	Page      int
	Limit     int
	SortBy    string
	SortOrder string
}
