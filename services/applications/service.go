package applications

import (
	"context"
	stderrors "errors"

	"github.com/scholarship-finder/backend/internal/errors"
	"github.com/scholarship-finder/backend/internal/logging"
	"github.com/scholarship-finder/backend/supabase/client"
)

// Service implements application operations.
type Service struct {
	store  Store
	logger *logging.Logger
}

// NewService creates the application service.
func NewService(store Store, logger *logging.Logger) *Service {
	return &Service{store: store, logger: logger}
}

// Create adds an application owned by userID. due_date is mandatory.
func (s *Service) Create(ctx context.Context, userID int64, input CreateInput) (*Application, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	status := StatusNotStarted
	if input.Status != nil {
		status = *input.Status
	}

	created, err := s.store.Insert(ctx, &Application{
		UserID:        userID,
		ScholarshipID: input.ScholarshipID,
		Name:          input.Name,
		Organization:  input.Organization,
		Status:        status,
		DueDate:       *input.DueDate,
		AwardAmount:   input.AwardAmount,
		Notes:         input.Notes,
	})
	if err != nil {
		return nil, errors.Internal("failed to create application", err)
	}
	return created, nil
}

// GetByID fetches an owned application. Absent and foreign-owned rows
// are indistinguishable.
func (s *Service) GetByID(ctx context.Context, id, userID int64) (*Application, error) {
	a, err := s.store.GetOwned(ctx, id, userID)
	if err != nil {
		return nil, mapStoreError(err, "failed to load application")
	}
	return a, nil
}

// List returns all applications owned by userID.
func (s *Service) List(ctx context.Context, userID int64) ([]Application, error) {
	out, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, errors.Internal("failed to list applications", err)
	}
	return out, nil
}

// Update applies the supplied fields to an owned application.
func (s *Service) Update(ctx context.Context, id, userID int64, input UpdateInput) (*Application, error) {
	if input.Status != nil && !input.Status.Valid() {
		return nil, errors.Validation("invalid application status")
	}
	if input.DueDate != nil && input.DueDate.IsZero() {
		return nil, errors.Validation("due_date must be a valid date")
	}

	updates := map[string]interface{}{}
	if input.Name != nil {
		updates["name"] = *input.Name
	}
	if input.Organization != nil {
		updates["organization"] = *input.Organization
	}
	if input.Status != nil {
		updates["status"] = *input.Status
	}
	if input.DueDate != nil {
		updates["due_date"] = input.DueDate.String()
	}
	if input.AwardAmount != nil {
		updates["award_amount"] = *input.AwardAmount
	}
	if input.Notes != nil {
		updates["notes"] = *input.Notes
	}
	if len(updates) == 0 {
		return s.GetByID(ctx, id, userID)
	}

	a, err := s.store.Update(ctx, id, userID, updates)
	if err != nil {
		return nil, mapStoreError(err, "failed to update application")
	}
	return a, nil
}

// Delete removes an owned application.
func (s *Service) Delete(ctx context.Context, id, userID int64) error {
	if err := s.store.Delete(ctx, id, userID); err != nil {
		return mapStoreError(err, "failed to delete application")
	}
	return nil
}

func mapStoreError(err error, internalMsg string) error {
	if stderrors.Is(err, client.ErrNotFound) {
		return errors.NotFound("Application")
	}
	return errors.Internal(internalMsg, err)
}
