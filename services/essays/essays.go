package essays

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/scholarship-finder/backend/internal/errors"
	"github.com/scholarship-finder/backend/internal/logging"
	"github.com/scholarship-finder/backend/services/applications"
	"github.com/scholarship-finder/backend/supabase/client"
)

const tableEssays = "essays"

// Essay is one essay draft attached to an application.
type Essay struct {
	ID            int64     `json:"id"`
	UserID        int64     `json:"user_id"`
	ApplicationID int64     `json:"application_id"`
	Title         string    `json:"title"`
	Prompt        *string   `json:"prompt,omitempty"`
	Content       *string   `json:"content,omitempty"`
	WordLimit     *int      `json:"word_limit,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// CreateInput holds the fields accepted when creating an essay.
type CreateInput struct {
	ApplicationID int64   `json:"application_id"`
	Title         string  `json:"title"`
	Prompt        *string `json:"prompt"`
	Content       *string `json:"content"`
	WordLimit     *int    `json:"word_limit"`
}

// Validate checks the required fields.
func (in CreateInput) Validate() error {
	if in.ApplicationID == 0 {
		return errors.Validation("application_id is required")
	}
	if strings.TrimSpace(in.Title) == "" {
		return errors.Validation("title is required")
	}
	if in.WordLimit != nil && *in.WordLimit <= 0 {
		return errors.Validation("word_limit must be positive")
	}
	return nil
}

// UpdateInput holds partial-update fields; nil fields are untouched.
type UpdateInput struct {
	Title     *string `json:"title"`
	Prompt    *string `json:"prompt"`
	Content   *string `json:"content"`
	WordLimit *int    `json:"word_limit"`
}

// Store defines essay persistence.
type Store interface {
	Insert(ctx context.Context, e *Essay) (*Essay, error)
	GetOwned(ctx context.Context, id, userID int64) (*Essay, error)
	ListByApplication(ctx context.Context, applicationID, userID int64) ([]Essay, error)
	Update(ctx context.Context, id, userID int64, updates map[string]interface{}) (*Essay, error)
	Delete(ctx context.Context, id, userID int64) error
}

// SupabaseStore persists essays through the Supabase REST API.
type SupabaseStore struct {
	db *client.Client
}

// NewSupabaseStore creates an essay store.
func NewSupabaseStore(db *client.Client) *SupabaseStore {
	return &SupabaseStore{db: db}
}

func (s *SupabaseStore) Insert(ctx context.Context, e *Essay) (*Essay, error) {
	row := map[string]interface{}{
		"user_id":        e.UserID,
		"application_id": e.ApplicationID,
		"title":          e.Title,
		"prompt":         e.Prompt,
		"content":        e.Content,
		"word_limit":     e.WordLimit,
	}

	resp, err := s.db.From(tableEssays).Single().ExecuteInsert(ctx, row)
	if err != nil {
		return nil, fmt.Errorf("insert essay: %w", err)
	}

	var created Essay
	if err := resp.Decode(&created); err != nil {
		return nil, err
	}
	return &created, nil
}

func (s *SupabaseStore) GetOwned(ctx context.Context, id, userID int64) (*Essay, error) {
	resp, err := s.db.From(tableEssays).
		Eq("id", id).
		Eq("user_id", userID).
		Single().
		Execute(ctx)
	if err != nil {
		return nil, fmt.Errorf("get essay: %w", err)
	}

	var e Essay
	if err := resp.Decode(&e); err != nil {
		return nil, err
	}
	return &e, nil
}

func (s *SupabaseStore) ListByApplication(ctx context.Context, applicationID, userID int64) ([]Essay, error) {
	resp, err := s.db.From(tableEssays).
		Eq("application_id", applicationID).
		Eq("user_id", userID).
		Order("created_at", true).
		Execute(ctx)
	if err != nil {
		return nil, fmt.Errorf("list essays: %w", err)
	}

	var out []Essay
	if err := resp.Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *SupabaseStore) Update(ctx context.Context, id, userID int64, updates map[string]interface{}) (*Essay, error) {
	resp, err := s.db.From(tableEssays).
		Eq("id", id).
		Eq("user_id", userID).
		Single().
		ExecuteUpdate(ctx, updates)
	if err != nil {
		return nil, fmt.Errorf("update essay: %w", err)
	}

	var e Essay
	if err := resp.Decode(&e); err != nil {
		return nil, err
	}
	return &e, nil
}

func (s *SupabaseStore) Delete(ctx context.Context, id, userID int64) error {
	resp, err := s.db.From(tableEssays).
		Eq("id", id).
		Eq("user_id", userID).
		Count("exact").
		ExecuteDelete(ctx)
	if err != nil {
		return fmt.Errorf("delete essay: %w", err)
	}
	if resp.Count == 0 {
		return client.ErrNotFound
	}
	return nil
}

// ApplicationDirectory resolves applications for ownership checks.
type ApplicationDirectory interface {
	GetOwned(ctx context.Context, id, userID int64) (*applications.Application, error)
}

// Service implements essay CRUD.
type Service struct {
	store  Store
	apps   ApplicationDirectory
	logger *logging.Logger
}

// NewService creates the essay service.
func NewService(store Store, apps ApplicationDirectory, logger *logging.Logger) *Service {
	return &Service{store: store, apps: apps, logger: logger}
}

// Create adds an essay to an owned application.
func (s *Service) Create(ctx context.Context, userID int64, input CreateInput) (*Essay, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.apps.GetOwned(ctx, input.ApplicationID, userID); err != nil {
		if stderrors.Is(err, client.ErrNotFound) || errors.IsNotFound(err) {
			return nil, errors.NotFound("Application")
		}
		return nil, errors.Internal("failed to verify application", err)
	}

	created, err := s.store.Insert(ctx, &Essay{
		UserID:        userID,
		ApplicationID: input.ApplicationID,
		Title:         input.Title,
		Prompt:        input.Prompt,
		Content:       input.Content,
		WordLimit:     input.WordLimit,
	})
	if err != nil {
		return nil, errors.Internal("failed to create essay", err)
	}
	return created, nil
}

// GetByID fetches an owned essay. Absent and foreign-owned rows are
// indistinguishable.
func (s *Service) GetByID(ctx context.Context, id, userID int64) (*Essay, error) {
	e, err := s.store.GetOwned(ctx, id, userID)
	if err != nil {
		if stderrors.Is(err, client.ErrNotFound) {
			return nil, errors.NotFound("Essay")
		}
		return nil, errors.Internal("failed to load essay", err)
	}
	return e, nil
}

// ListByApplication returns the essays on one owned application.
func (s *Service) ListByApplication(ctx context.Context, applicationID, userID int64) ([]Essay, error) {
	if _, err := s.apps.GetOwned(ctx, applicationID, userID); err != nil {
		if stderrors.Is(err, client.ErrNotFound) || errors.IsNotFound(err) {
			return nil, errors.NotFound("Application")
		}
		return nil, errors.Internal("failed to verify application", err)
	}

	out, err := s.store.ListByApplication(ctx, applicationID, userID)
	if err != nil {
		return nil, errors.Internal("failed to list essays", err)
	}
	return out, nil
}

// Update applies the supplied fields to an owned essay.
func (s *Service) Update(ctx context.Context, id, userID int64, input UpdateInput) (*Essay, error) {
	updates := map[string]interface{}{}
	if input.Title != nil {
		if strings.TrimSpace(*input.Title) == "" {
			return nil, errors.Validation("title must not be empty")
		}
		updates["title"] = *input.Title
	}
	if input.Prompt != nil {
		updates["prompt"] = *input.Prompt
	}
	if input.Content != nil {
		updates["content"] = *input.Content
	}
	if input.WordLimit != nil {
		if *input.WordLimit <= 0 {
			return nil, errors.Validation("word_limit must be positive")
		}
		updates["word_limit"] = *input.WordLimit
	}
	if len(updates) == 0 {
		return s.GetByID(ctx, id, userID)
	}

	e, err := s.store.Update(ctx, id, userID, updates)
	if err != nil {
		if stderrors.Is(err, client.ErrNotFound) {
			return nil, errors.NotFound("Essay")
		}
		return nil, errors.Internal("failed to update essay", err)
	}
	return e, nil
}

// Delete removes an owned essay.
func (s *Service) Delete(ctx context.Context, id, userID int64) error {
	if err := s.store.Delete(ctx, id, userID); err != nil {
		if stderrors.Is(err, client.ErrNotFound) {
			return errors.NotFound("Essay")
		}
		return errors.Internal("failed to delete essay", err)
	}
	return nil
}
