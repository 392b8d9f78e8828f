// Package lifecycle holds the discrepancy status progression and the
// presentation values derived from it.
package lifecycle

import (
	"github.com/akylbek/ar-system/discrepancy-service/internal/models"
	"github.com/akylbek/ar-system/discrepancy-service/internal/scoring"
)

const TotalSteps = 5

// Trigger names what caused a status change.
type Trigger string

const (
	TriggerManual    Trigger = "manual"
	TriggerEmailSent Trigger = "email_sent"
)

// Ordered is the forward order of the five milestones.
var Ordered = []models.DiscrepancyStatus{
	models.StatusDetected,
	models.StatusEmailSent,
	models.StatusCustomerContacted,
	models.StatusAgreed,
	models.StatusResolved,
}

var progress = map[models.DiscrepancyStatus]int{
	models.StatusDetected:          20,
	models.StatusProcessing:        20,
	models.StatusEmailSent:         40,
	models.StatusCustomerContacted: 60,
	models.StatusAgreed:            80,
	models.StatusResolved:          100,
}

// Progress returns the completion percentage, 0 for unknown statuses.
func Progress(s models.DiscrepancyStatus) int {
	return progress[s]
}

func CurrentStep(s models.DiscrepancyStatus) int {
	return Progress(s) / 20
}

// Allowed reports whether from -> to may happen for the given trigger.
// Manual edits may move to any known status. The email edge only fires
// from DETECTED.
func Allowed(from, to models.DiscrepancyStatus, trigger Trigger) bool {
	if !to.Valid() {
		return false
	}
	switch trigger {
	case TriggerManual:
		return true
	case TriggerEmailSent:
		return from == models.StatusDetected && to == models.StatusEmailSent
	}
	return false
}

// AfterEmailSent returns the status a discrepancy takes after a successful
// send and whether it changed.
func AfterEmailSent(current models.DiscrepancyStatus) (models.DiscrepancyStatus, bool) {
	if Allowed(current, models.StatusEmailSent, TriggerEmailSent) {
		return models.StatusEmailSent, true
	}
	return current, false
}

func NextAction(s models.DiscrepancyStatus, level models.InterventionLevel) string {
	switch s {
	case models.StatusDetected, models.StatusProcessing:
		if level == models.InterventionAutonomous {
			return "Automatic reminder email scheduled"
		}
		return "Awaiting approval of the email to the customer"
	case models.StatusEmailSent:
		return "Waiting for the customer's reply"
	case models.StatusCustomerContacted:
		return "Agreeing on a resolution with the customer"
	case models.StatusAgreed:
		return "Final confirmation of the settlement"
	}
	return "Complete"
}

func EstimatedCompletionDays(level models.InterventionLevel) int {
	switch level {
	case models.InterventionAutonomous:
		return 1
	case models.InterventionAssisted:
		return 2
	}
	return 5
}

// View decorates a discrepancy with its lifecycle presentation fields.
func View(d models.PaymentDiscrepancy) models.DiscrepancyView {
	return models.DiscrepancyView{
		PaymentDiscrepancy:      d,
		Progress:                Progress(d.Status),
		CurrentStep:             CurrentStep(d.Status),
		TotalSteps:              TotalSteps,
		NextAction:              NextAction(d.Status, d.InterventionLevel),
		EstimatedCompletionDays: EstimatedCompletionDays(d.InterventionLevel),
		RecommendedAction:       scoring.RecommendedAction(d.Type, d.InterventionLevel),
	}
}
