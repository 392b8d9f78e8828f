package models

import (
	"encoding/json"
	"time"
)

type ActivityLog struct {
	ID         string          `json:"id"`
	UserID     *string         `json:"userId,omitempty"`
	Action     string          `json:"action"`
	Details    json.RawMessage `json:"details"`
	ExecutedAt time.Time       `json:"executedAt"`
}

const ActivityDataImport = "DATA_IMPORT"
