package model

import "time"

// Status is the outcome recorded for a key after a validation attempt.
type Status string

const (
	StatusValid   Status = "valid"
	StatusInvalid Status = "invalid"
	StatusError   Status = "error"
	StatusDBError Status = "db_error"
	StatusUnknown Status = "unknown"
	StatusDeleted Status = "deleted"
	StatusInfo    Status = "info"
)

// PrunableStatuses are the statuses removed by a bulk clear.
var PrunableStatuses = []Status{StatusInvalid, StatusError}

// KeyRecord is a Gemini API key and the result of its latest validation.
type KeyRecord struct {
	ID              uint      `gorm:"primarykey" json:"id"`
	KeyString       string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"keyString"`
	Status          Status    `gorm:"type:varchar(50);default:'unknown';not null;index" json:"status"`
	ErrorMessage    *string   `gorm:"type:text" json:"errorMessage"`
	CreatedAt       time.Time `json:"createdAt"`
	LastValidatedAt time.Time `json:"lastValidatedAt"`
}

// Result is the per-key outcome reported back to the caller of a batch.
type Result struct {
	KeyString    string  `json:"keyString"`
	Status       Status  `json:"status"`
	ErrorMessage *string `json:"errorMessage"`
	// AttemptedStatus keeps the remote outcome when saving it failed.
	AttemptedStatus Status `json:"attemptedStatus,omitempty"`
}

// NewResult builds a Result, leaving ErrorMessage nil when msg is empty.
func NewResult(key string, status Status, msg string) Result {
	r := Result{KeyString: key, Status: status}
	if msg != "" {
		r.ErrorMessage = &msg
	}
	return r
}

// Message returns the error message, or "" when there is none.
func (r Result) Message() string {
	if r.ErrorMessage == nil {
		return ""
	}
	return *r.ErrorMessage
}
