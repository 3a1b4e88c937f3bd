package users

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/scholarship-finder/backend/internal/errors"
	"github.com/scholarship-finder/backend/internal/logging"
	"github.com/scholarship-finder/backend/supabase/client"
)

const tableUsers = "users"

// User is a student profile row. Auth identity lives in Supabase Auth;
// this table carries the application-level profile.
type User struct {
	ID             int64     `json:"id"`
	Email          string    `json:"email"`
	FirstName      string    `json:"first_name"`
	LastName       string    `json:"last_name"`
	EducationLevel *string   `json:"education_level,omitempty"`
	FieldOfStudy   *string   `json:"field_of_study,omitempty"`
	GraduationYear *int      `json:"graduation_year,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// UpdateInput holds the writable profile fields; nil fields are
// untouched.
type UpdateInput struct {
	FirstName      *string `json:"first_name"`
	LastName       *string `json:"last_name"`
	EducationLevel *string `json:"education_level"`
	FieldOfStudy   *string `json:"field_of_study"`
	GraduationYear *int    `json:"graduation_year"`
}

// Store defines user persistence.
type Store interface {
	GetByID(ctx context.Context, id int64) (*User, error)
	Update(ctx context.Context, id int64, updates map[string]interface{}) (*User, error)
	Exists(ctx context.Context, id int64) (bool, error)
}

// SupabaseStore persists users through the Supabase REST API.
type SupabaseStore struct {
	db *client.Client
}

// NewSupabaseStore creates a user store.
func NewSupabaseStore(db *client.Client) *SupabaseStore {
	return &SupabaseStore{db: db}
}

func (s *SupabaseStore) GetByID(ctx context.Context, id int64) (*User, error) {
	resp, err := s.db.From(tableUsers).Eq("id", id).Single().Execute(ctx)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}

	var u User
	if err := resp.Decode(&u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *SupabaseStore) Update(ctx context.Context, id int64, updates map[string]interface{}) (*User, error) {
	resp, err := s.db.From(tableUsers).Eq("id", id).Single().ExecuteUpdate(ctx, updates)
	if err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}

	var u User
	if err := resp.Decode(&u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *SupabaseStore) Exists(ctx context.Context, id int64) (bool, error) {
	_, err := s.GetByID(ctx, id)
	if err != nil {
		if stderrors.Is(err, client.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Service implements user profile reads and updates.
type Service struct {
	store  Store
	logger *logging.Logger
}

// NewService creates the user service.
func NewService(store Store, logger *logging.Logger) *Service {
	return &Service{store: store, logger: logger}
}

// Profile returns the acting user's own profile.
func (s *Service) Profile(ctx context.Context, userID int64) (*User, error) {
	u, err := s.store.GetByID(ctx, userID)
	if err != nil {
		if stderrors.Is(err, client.ErrNotFound) {
			return nil, errors.NotFound("User")
		}
		return nil, errors.Internal("failed to load user", err)
	}
	return u, nil
}

// UpdateProfile applies the supplied profile fields.
func (s *Service) UpdateProfile(ctx context.Context, userID int64, input UpdateInput) (*User, error) {
	updates := map[string]interface{}{}
	if input.FirstName != nil {
		if strings.TrimSpace(*input.FirstName) == "" {
			return nil, errors.Validation("first_name must not be empty")
		}
		updates["first_name"] = *input.FirstName
	}
	if input.LastName != nil {
		if strings.TrimSpace(*input.LastName) == "" {
			return nil, errors.Validation("last_name must not be empty")
		}
		updates["last_name"] = *input.LastName
	}
	if input.EducationLevel != nil {
		updates["education_level"] = *input.EducationLevel
	}
	if input.FieldOfStudy != nil {
		updates["field_of_study"] = *input.FieldOfStudy
	}
	if input.GraduationYear != nil {
		updates["graduation_year"] = *input.GraduationYear
	}
	if len(updates) == 0 {
		return s.Profile(ctx, userID)
	}

	u, err := s.store.Update(ctx, userID, updates)
	if err != nil {
		if stderrors.Is(err, client.ErrNotFound) {
			return nil, errors.NotFound("User")
		}
		return nil, errors.Internal("failed to update user", err)
	}
	return u, nil
}

// Exists reports whether a user row exists.
func (s *Service) Exists(ctx context.Context, userID int64) (bool, error) {
	return s.store.Exists(ctx, userID)
}
