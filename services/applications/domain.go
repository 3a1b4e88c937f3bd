// Package applications manages a student's scholarship applications.
package applications

import (
	"strings"
	"time"

	"github.com/scholarship-finder/backend/internal/dates"
	"github.com/scholarship-finder/backend/internal/errors"
)

// Status is the application lifecycle state.
type Status string

const (
	StatusNotStarted Status = "Not Started"
	StatusInProgress Status = "In Progress"
	StatusSubmitted  Status = "Submitted"
	StatusAwarded    Status = "Awarded"
	StatusNotAwarded Status = "Not Awarded"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusNotStarted, StatusInProgress, StatusSubmitted, StatusAwarded, StatusNotAwarded:
		return true
	}
	return false
}

// Terminal reports whether the application needs no further work.
// Terminal applications are excluded from reminder buckets.
func (s Status) Terminal() bool {
	switch s {
	case StatusSubmitted, StatusAwarded, StatusNotAwarded:
		return true
	}
	return false
}

// TerminalStatuses lists the statuses excluded from reminders.
func TerminalStatuses() []Status {
	return []Status{StatusSubmitted, StatusAwarded, StatusNotAwarded}
}

// Application is one scholarship application owned by a student.
type Application struct {
	ID            int64      `json:"id"`
	UserID        int64      `json:"user_id"`
	ScholarshipID *int64     `json:"scholarship_id,omitempty"`
	Name          string     `json:"name"`
	Organization  *string    `json:"organization,omitempty"`
	Status        Status     `json:"status"`
	DueDate       dates.Date `json:"due_date"`
	AwardAmount   *float64   `json:"award_amount,omitempty"`
	Notes         *string    `json:"notes,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// CreateInput holds the fields accepted when creating an application.
type CreateInput struct {
	ScholarshipID *int64      `json:"scholarship_id"`
	Name          string      `json:"name"`
	Organization  *string     `json:"organization"`
	Status        *Status     `json:"status"`
	DueDate       *dates.Date `json:"due_date"`
	AwardAmount   *float64    `json:"award_amount"`
	Notes         *string     `json:"notes"`
}

// Validate enforces the mandatory name, due date and status vocabulary.
func (in *CreateInput) Validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return errors.Validation("name is required")
	}
	if in.DueDate == nil || in.DueDate.IsZero() {
		return errors.Validation("due_date is required")
	}
	if in.Status != nil && !in.Status.Valid() {
		return errors.Validation("invalid application status")
	}
	return nil
}

// UpdateInput holds partial-update fields; nil fields are untouched.
type UpdateInput struct {
	Name         *string     `json:"name"`
	Organization *string     `json:"organization"`
	Status       *Status     `json:"status"`
	DueDate      *dates.Date `json:"due_date"`
	AwardAmount  *float64    `json:"award_amount"`
	Notes        *string     `json:"notes"`
}
