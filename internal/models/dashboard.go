package models

import "github.com/shopspring/decimal"

type DailyCount struct {
	Date     string `json:"date"`
	Detected int    `json:"detected"`
	Resolved int    `json:"resolved"`
}

type DashboardStats struct {
	TotalDiscrepancies   int             `json:"totalDiscrepancies"`
	OpenDiscrepancies    int             `json:"openDiscrepancies"`
	TotalCustomers       int             `json:"totalCustomers"`
	ByStatus             map[string]int  `json:"byStatus"`
	ByIntervention       map[string]int  `json:"byIntervention"`
	ByPriority           map[string]int  `json:"byPriority"`
	RiskDistribution     map[string]int  `json:"riskDistribution"`
	AutonomousRate       float64         `json:"autonomousRate"`
	ResolutionRate       float64         `json:"resolutionRate"`
	OutstandingAmount    decimal.Decimal `json:"outstandingAmount"`
	Timeline             []DailyCount    `json:"timeline"`
	EmailsSentLast30Days int             `json:"emailsSentLast30Days"`
}

// GroupCount is one row of a group-by aggregate.
type GroupCount struct {
	Key   string
	Count int
}
