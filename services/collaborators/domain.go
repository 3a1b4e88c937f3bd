// Package collaborators manages the people a student can invite to help
// with an application: recommenders, essay reviewers, guidance counselors.
package collaborators

import (
	"strings"
	"time"

	"github.com/scholarship-finder/backend/internal/errors"
)

// Collaborator is a person owned by exactly one student.
type Collaborator struct {
	ID           int64     `json:"id"`
	UserID       int64     `json:"user_id"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	Email        string    `json:"email"`
	Phone        *string   `json:"phone,omitempty"`
	Relationship *string   `json:"relationship,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// CreateInput holds the fields accepted when creating a collaborator.
type CreateInput struct {
	FirstName    string  `json:"first_name"`
	LastName     string  `json:"last_name"`
	Email        string  `json:"email"`
	Phone        *string `json:"phone"`
	Relationship *string `json:"relationship"`
}

// Validate checks the required identity fields.
func (in *CreateInput) Validate() error {
	if strings.TrimSpace(in.FirstName) == "" {
		return errors.Validation("first_name is required")
	}
	if strings.TrimSpace(in.LastName) == "" {
		return errors.Validation("last_name is required")
	}
	email := strings.TrimSpace(in.Email)
	if email == "" || !strings.Contains(email, "@") {
		return errors.Validation("a valid email is required")
	}
	return nil
}

// UpdateInput holds partial-update fields; nil fields are untouched.
type UpdateInput struct {
	FirstName    *string `json:"first_name"`
	LastName     *string `json:"last_name"`
	Email        *string `json:"email"`
	Phone        *string `json:"phone"`
	Relationship *string `json:"relationship"`
}
