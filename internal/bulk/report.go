package bulk

import (
	"fmt"
	"strings"
	"time"
)

// Status classifies how a submission run ended.
type Status string

const (
	StatusCompleted       Status = "completed"
	StatusNothingToSubmit Status = "nothing_to_submit"
	StatusDuplicates      Status = "duplicates"
	StatusInProgress      Status = "in_progress"
)

// Failure describes one row whose registration did not succeed.
type Failure struct {
	RowID      int         `json:"rowId"`
	Identifier string      `json:"identifier"`
	Kind       OutcomeKind `json:"kind"`
	Reason     string      `json:"reason"`
}

// Report is the result of one submission run.
type Report struct {
	RunID      string        `json:"runId"`
	Status     Status        `json:"status"`
	Attempted  int           `json:"attempted"`
	Succeeded  int           `json:"succeeded"`
	Failed     int           `json:"failed"`
	Failures   []Failure     `json:"failures,omitempty"`
	Duplicates []string      `json:"duplicates,omitempty"`
	Registered []SavedVoter  `json:"registered,omitempty"`
	StartedAt  time.Time     `json:"startedAt"`
	Duration   time.Duration `json:"duration"`
}

// NotificationLevel is the severity of a user notification.
type NotificationLevel string

const (
	LevelSuccess NotificationLevel = "success"
	LevelWarning NotificationLevel = "warning"
	LevelError   NotificationLevel = "error"
)

// Notification is a single toast shown after a run.
type Notification struct {
	Level   NotificationLevel `json:"level"`
	Message string            `json:"message"`
}

// Notifications renders the report for the notification surface.
func (r Report) Notifications() []Notification {
	switch r.Status {
	case StatusInProgress:
		return []Notification{{Level: LevelWarning, Message: "A submission is already running for this grid."}}
	case StatusDuplicates:
		return []Notification{{
			Level:   LevelError,
			Message: "Duplicate identifiers found: " + strings.Join(r.Duplicates, ", "),
		}}
	case StatusNothingToSubmit:
		return []Notification{{
			Level:   LevelWarning,
			Message: "There are no valid rows to register. Review the highlighted errors.",
		}}
	}

	var out []Notification
	for _, f := range r.Failures {
		out = append(out, Notification{
			Level:   LevelError,
			Message: fmt.Sprintf("Row %d: %s", f.RowID, f.Reason),
		})
	}
	if r.Succeeded > 0 {
		out = append(out, Notification{
			Level:   LevelSuccess,
			Message: fmt.Sprintf("%d voters registered successfully", r.Succeeded),
		})
	}
	if r.Failed > 0 {
		out = append(out, Notification{
			Level:   LevelError,
			Message: fmt.Sprintf("%d registrations failed", r.Failed),
		})
	}
	return out
}
