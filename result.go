package verimail

import (
	"time"

	"github.com/optimode/verimail/types"
)

// ValidationResult is the full verdict for one address.
type ValidationResult struct {
	Email          string               `json:"email"`
	IsValid        bool                 `json:"isValid"`
	Score          int                  `json:"score"`
	Deliverability types.Deliverability `json:"deliverability"`
	Risk           types.Risk           `json:"risk"`
	Checks         types.Checks         `json:"checks"`
	Message        string               `json:"message,omitempty"`
	Timestamp      time.Time            `json:"timestamp"`
}

// BulkMetadata summarises a ValidateBulk run.
type BulkMetadata struct {
	Total          int           `json:"total"`
	Completed      int           `json:"completed"`
	TimedOut       bool          `json:"timedOut"`
	ProcessingTime time.Duration `json:"processingTime"`
	// Sanitation counters from the list cleanup pass.
	DuplicatesRemoved int `json:"duplicatesRemoved,omitempty"`
	InvalidRemoved    int `json:"invalidRemoved,omitempty"`
}

// BulkResult is the outcome of a ValidateBulk call. Results holds one
// entry per surviving input, in input order.
type BulkResult struct {
	Results  []ValidationResult `json:"results"`
	Metadata BulkMetadata       `json:"metadata"`
}
