package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ImportRows = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ar_import_rows_total",
		Help: "Spreadsheet rows handled by imports, by outcome.",
	}, []string{"outcome"})

	DiscrepanciesCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ar_discrepancies_created_total",
		Help: "Discrepancies created, by source and intervention level.",
	}, []string{"source", "intervention_level"})

	StatusTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ar_discrepancy_status_transitions_total",
		Help: "Discrepancy status changes.",
	}, []string{"from", "to", "trigger"})

	EmailsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ar_emails_total",
		Help: "Email send attempts, by resulting status.",
	}, []string{"status"})

	ConfidenceScores = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ar_confidence_score",
		Help:    "Confidence assigned by the scorer.",
		Buckets: []float64{0.1, 0.3, 0.5, 0.7, 0.8, 0.9, 0.99},
	})
)
