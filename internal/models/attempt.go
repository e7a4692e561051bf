package models

import (
	"time"
)

// Attempt is the audit record persisted for one verification request.
type Attempt struct {
	Timestamp    time.Time `json:"timestamp"`
	Network      string    `json:"network"`
	AddressCount int       `json:"address_count"`
	Outcome      string    `json:"outcome"` // "Spendable" or the failure kind
	Spendable    int64     `json:"spendable"`
}
