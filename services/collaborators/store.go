package collaborators

import (
	"context"
	"fmt"

	"github.com/scholarship-finder/backend/supabase/client"
)

const tableCollaborators = "collaborators"

// Store defines collaborator persistence.
type Store interface {
	Insert(ctx context.Context, c *Collaborator) (*Collaborator, error)
	GetOwned(ctx context.Context, id, userID int64) (*Collaborator, error)
	ListByUser(ctx context.Context, userID int64) ([]Collaborator, error)
	Update(ctx context.Context, id, userID int64, updates map[string]interface{}) (*Collaborator, error)
	Delete(ctx context.Context, id, userID int64) error
}

// SupabaseStore persists collaborators through the Supabase REST API.
type SupabaseStore struct {
	db *client.Client
}

// NewSupabaseStore creates a collaborator store.
func NewSupabaseStore(db *client.Client) *SupabaseStore {
	return &SupabaseStore{db: db}
}

// ErrNotFound is returned when a row is absent or owned by another user.
var ErrNotFound = client.ErrNotFound

// Insert creates a collaborator row and returns the stored entity.
func (s *SupabaseStore) Insert(ctx context.Context, c *Collaborator) (*Collaborator, error) {
	row := map[string]interface{}{
		"user_id":      c.UserID,
		"first_name":   c.FirstName,
		"last_name":    c.LastName,
		"email":        c.Email,
		"phone":        c.Phone,
		"relationship": c.Relationship,
	}

	resp, err := s.db.From(tableCollaborators).Single().ExecuteInsert(ctx, row)
	if err != nil {
		return nil, fmt.Errorf("insert collaborator: %w", err)
	}

	var created Collaborator
	if err := resp.Decode(&created); err != nil {
		return nil, err
	}
	return &created, nil
}

// GetOwned fetches a collaborator only when owned by userID.
func (s *SupabaseStore) GetOwned(ctx context.Context, id, userID int64) (*Collaborator, error) {
	resp, err := s.db.From(tableCollaborators).
		Eq("id", id).
		Eq("user_id", userID).
		Single().
		Execute(ctx)
	if err != nil {
		return nil, fmt.Errorf("get collaborator: %w", err)
	}

	var c Collaborator
	if err := resp.Decode(&c); err != nil {
		return nil, err
	}
	return &c, nil
}

// ListByUser returns all collaborators owned by userID, newest first.
func (s *SupabaseStore) ListByUser(ctx context.Context, userID int64) ([]Collaborator, error) {
	resp, err := s.db.From(tableCollaborators).
		Eq("user_id", userID).
		Order("created_at", false).
		Execute(ctx)
	if err != nil {
		return nil, fmt.Errorf("list collaborators: %w", err)
	}

	var out []Collaborator
	if err := resp.Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}

// Update patches the given fields on an owned collaborator row.
func (s *SupabaseStore) Update(ctx context.Context, id, userID int64, updates map[string]interface{}) (*Collaborator, error) {
	resp, err := s.db.From(tableCollaborators).
		Eq("id", id).
		Eq("user_id", userID).
		Single().
		ExecuteUpdate(ctx, updates)
	if err != nil {
		return nil, fmt.Errorf("update collaborator: %w", err)
	}

	var c Collaborator
	if err := resp.Decode(&c); err != nil {
		return nil, err
	}
	return &c, nil
}

// Delete removes an owned collaborator; collaborations cascade at the
// database level.
func (s *SupabaseStore) Delete(ctx context.Context, id, userID int64) error {
	resp, err := s.db.From(tableCollaborators).
		Eq("id", id).
		Eq("user_id", userID).
		ExecuteDelete(ctx)
	if err != nil {
		return fmt.Errorf("delete collaborator: %w", err)
	}

	var deleted []Collaborator
	if err := resp.Decode(&deleted); err != nil {
		return err
	}
	if len(deleted) == 0 {
		return ErrNotFound
	}
	return nil
}
