package state

import "time"

type EventType string

const (
	EventStateChanged    EventType = "state_changed"
	EventDepositApproved EventType = "deposit_approved"
)

// Event describes a committed change, emitted after the snapshot is written
type Event struct {
	Type          EventType `json:"type"`
	Operation     string    `json:"operation"`
	TransactionID string    `json:"transaction_id,omitempty"`
	Balance       *int64    `json:"balance,omitempty"`
	At            time.Time `json:"at"`
}
