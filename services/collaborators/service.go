package collaborators

import (
	"context"
	stderrors "errors"

	"github.com/scholarship-finder/backend/internal/errors"
	"github.com/scholarship-finder/backend/internal/logging"
	"github.com/scholarship-finder/backend/supabase/client"
)

// Service implements collaborator operations.
type Service struct {
	store  Store
	logger *logging.Logger
}

// NewService creates the collaborator service.
func NewService(store Store, logger *logging.Logger) *Service {
	return &Service{store: store, logger: logger}
}

// Create adds a collaborator owned by userID.
func (s *Service) Create(ctx context.Context, userID int64, input CreateInput) (*Collaborator, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	created, err := s.store.Insert(ctx, &Collaborator{
		UserID:       userID,
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		Email:        input.Email,
		Phone:        input.Phone,
		Relationship: input.Relationship,
	})
	if err != nil {
		return nil, errors.Internal("failed to create collaborator", err)
	}
	return created, nil
}

// GetByID fetches an owned collaborator. Absent and foreign-owned rows
// are indistinguishable.
func (s *Service) GetByID(ctx context.Context, id, userID int64) (*Collaborator, error) {
	c, err := s.store.GetOwned(ctx, id, userID)
	if err != nil {
		return nil, mapStoreError(err, "failed to load collaborator")
	}
	return c, nil
}

// List returns all collaborators owned by userID.
func (s *Service) List(ctx context.Context, userID int64) ([]Collaborator, error) {
	out, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, errors.Internal("failed to list collaborators", err)
	}
	return out, nil
}

// Update applies the supplied fields to an owned collaborator.
func (s *Service) Update(ctx context.Context, id, userID int64, input UpdateInput) (*Collaborator, error) {
	updates := map[string]interface{}{}
	if input.FirstName != nil {
		updates["first_name"] = *input.FirstName
	}
	if input.LastName != nil {
		updates["last_name"] = *input.LastName
	}
	if input.Email != nil {
		updates["email"] = *input.Email
	}
	if input.Phone != nil {
		updates["phone"] = *input.Phone
	}
	if input.Relationship != nil {
		updates["relationship"] = *input.Relationship
	}
	if len(updates) == 0 {
		return s.GetByID(ctx, id, userID)
	}

	c, err := s.store.Update(ctx, id, userID, updates)
	if err != nil {
		return nil, mapStoreError(err, "failed to update collaborator")
	}
	return c, nil
}

// Delete removes an owned collaborator and its collaborations.
func (s *Service) Delete(ctx context.Context, id, userID int64) error {
	if err := s.store.Delete(ctx, id, userID); err != nil {
		return mapStoreError(err, "failed to delete collaborator")
	}
	return nil
}

func mapStoreError(err error, internalMsg string) error {
	if stderrors.Is(err, client.ErrNotFound) {
		return errors.NotFound("Collaborator")
	}
	return errors.Internal(internalMsg, err)
}
