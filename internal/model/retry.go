package model

import (
	"encoding/json"
	"time"
)

// Sync action names carried in the envelope sent to the webhook.
const (
	ActionDirectSync  = "DIRECT_SYNC"
	ActionCreatePO    = "CREATE_PO"
	ActionUpdatePO    = "UPDATE_PO"
	ActionDeletePO    = "DELETE_PO"
	ActionHealthCheck = "HEALTH_CHECK"
)

// RetryEntry is an operation that exhausted its in-call retries and was
// parked for later replay.
type RetryEntry struct {
	ID        string          `json:"id" db:"id"`
	Action    string          `json:"action" db:"action"`
	Data      json.RawMessage `json:"data" db:"data"`
	Timestamp time.Time       `json:"timestamp" db:"timestamp"`
	Attempts  int             `json:"attempts" db:"attempts"`
}
