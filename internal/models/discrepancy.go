package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

type DiscrepancyType string

const (
	TypeUnpaid           DiscrepancyType = "UNPAID"
	TypeOverpaid         DiscrepancyType = "OVERPAID"
	TypePartial          DiscrepancyType = "PARTIAL"
	TypeMultipleInvoices DiscrepancyType = "MULTIPLE_INVOICES"
)

func (t DiscrepancyType) Valid() bool {
	switch t {
	case TypeUnpaid, TypeOverpaid, TypePartial, TypeMultipleInvoices:
		return true
	}
	return false
}

type DiscrepancyStatus string

const (
	StatusDetected          DiscrepancyStatus = "DETECTED"
	StatusProcessing        DiscrepancyStatus = "PROCESSING"
	StatusEmailSent         DiscrepancyStatus = "EMAIL_SENT"
	StatusCustomerContacted DiscrepancyStatus = "CUSTOMER_CONTACTED"
	StatusAgreed            DiscrepancyStatus = "AGREED"
	StatusResolved          DiscrepancyStatus = "RESOLVED"
)

func (s DiscrepancyStatus) Valid() bool {
	switch s {
	case StatusDetected, StatusProcessing, StatusEmailSent, StatusCustomerContacted, StatusAgreed, StatusResolved:
		return true
	}
	return false
}

type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
	PriorityUrgent Priority = "URGENT"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

type InterventionLevel string

const (
	InterventionAutonomous InterventionLevel = "AI_AUTONOMOUS"
	InterventionAssisted   InterventionLevel = "AI_ASSISTED"
	InterventionHuman      InterventionLevel = "HUMAN_REQUIRED"
)

// AnalysisFactors is the fixed part of the scoring inputs kept with a discrepancy.
type AnalysisFactors struct {
	Amount             decimal.Decimal `json:"amount"`
	CustomerRiskLevel  RiskTier        `json:"customerRiskLevel"`
	Type               DiscrepancyType `json:"type"`
	GoodPaymentHistory bool            `json:"goodPaymentHistory"`
	ImportSource       string          `json:"importSource,omitempty"`
	HeaderOffset       *int            `json:"headerOffset,omitempty"`
}

// AIAnalysis is stored as jsonb. Extensions carries caller-defined keys
// that are not part of the scoring contract.
type AIAnalysis struct {
	Confidence        float64           `json:"confidence"`
	RecommendedAction string            `json:"recommendedAction"`
	Reasoning         string            `json:"reasoning"`
	Factors           AnalysisFactors   `json:"factors"`
	Extensions        map[string]string `json:"extensions,omitempty"`
}

func (a AIAnalysis) Value() (driver.Value, error) {
	return json.Marshal(a)
}

func (a *AIAnalysis) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*a = AIAnalysis{}
		return nil
	case []byte:
		return json.Unmarshal(v, a)
	case string:
		return json.Unmarshal([]byte(v), a)
	}
	return errors.New("unsupported ai_analysis column type")
}

type PaymentDiscrepancy struct {
	ID                string            `json:"id"`
	CustomerID        string            `json:"customerId"`
	Type              DiscrepancyType   `json:"type"`
	Status            DiscrepancyStatus `json:"status"`
	Priority          Priority          `json:"priority"`
	InterventionLevel InterventionLevel `json:"interventionLevel"`
	ExpectedAmount    decimal.Decimal   `json:"expectedAmount"`
	ActualAmount      decimal.Decimal   `json:"actualAmount"`
	DifferenceAmount  decimal.Decimal   `json:"differenceAmount"`
	DueDate           *time.Time        `json:"dueDate,omitempty"`
	OverdueDays       *int              `json:"overdueDays,omitempty"`
	AssignedUserID    *string           `json:"assignedUserId,omitempty"`
	AssignedAt        *time.Time        `json:"assignedAt,omitempty"`
	AIAnalysis        AIAnalysis        `json:"aiAnalysis"`
	ImportKey         *string           `json:"importKey,omitempty"`
	Notes             string            `json:"notes"`
	Tags              []string          `json:"tags"`
	Version           int               `json:"version"`
	CreatedAt         time.Time         `json:"createdAt"`
	UpdatedAt         time.Time         `json:"updatedAt"`
	Customer          *CustomerSummary  `json:"customer,omitempty"`
}

// DiscrepancyView adds the lifecycle presentation fields.
type DiscrepancyView struct {
	PaymentDiscrepancy
	Progress                int    `json:"progress"`
	CurrentStep             int    `json:"currentStep"`
	TotalSteps              int    `json:"totalSteps"`
	NextAction              string `json:"nextAction"`
	EstimatedCompletionDays int    `json:"estimatedCompletionDays"`
	RecommendedAction       string `json:"recommendedAction"`
}

type DiscrepancyDetail struct {
	DiscrepancyView
	EmailLogs []EmailLog `json:"emailLogs"`
	Tasks     []Task     `json:"tasks"`
}

type DiscrepancyFilter struct {
	Search            string
	Status            DiscrepancyStatus
	Priority          Priority
	Type              DiscrepancyType
	InterventionLevel InterventionLevel
	AssignedUserID    string
	CustomerID        string
	StartDate         *time.Time
	EndDate           *time.Time
	Page              int
	Limit             int
	SortBy            string
	SortOrder         string
}

// DiscrepancyUpdate holds a partial edit. Nil fields are left unchanged.
// A non-nil Version turns the update into a compare-and-swap.
type DiscrepancyUpdate struct {
	Status         *DiscrepancyStatus
	Priority       *Priority
	Notes          *string
	AssignedUserID *string
	Tags           []string
	Version        *int
}

type DiscrepancyStatistics struct {
	Total                int            `json:"total"`
	Autonomous           int            `json:"autonomous"`
	Assisted             int            `json:"assisted"`
	HumanRequired        int            `json:"humanRequired"`
	Resolved             int            `json:"resolved"`
	AutonomousRate       float64        `json:"autonomousRate"`
	ResolutionRate       float64        `json:"resolutionRate"`
	TargetAutonomousRate float64        `json:"targetAutonomousRate"`
	StatusBreakdown      map[string]int `json:"statusBreakdown"`
}

type StatusChangedEvent struct {
	DiscrepancyID string            `json:"discrepancyId"`
	CustomerID    string            `json:"customerId"`
	From          DiscrepancyStatus `json:"from"`
	To            DiscrepancyStatus `json:"to"`
	Trigger       string            `json:"trigger"`
	ActorID       string            `json:"actorId,omitempty"`
	ChangedAt     time.Time         `json:"changedAt"`
}

type DiscrepancyCreatedEvent struct {
	DiscrepancyID     string            `json:"discrepancyId"`
	CustomerID        string            `json:"customerId"`
	Type              DiscrepancyType   `json:"type"`
	InterventionLevel InterventionLevel `json:"interventionLevel"`
	Confidence        float64           `json:"confidence"`
	DifferenceAmount  decimal.Decimal   `json:"differenceAmount"`
	Source            string            `json:"source"`
	CreatedAt         time.Time         `json:"createdAt"`
}
