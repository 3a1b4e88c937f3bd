package applications

import (
	"context"
	"fmt"

	"github.com/scholarship-finder/backend/internal/dates"
	"github.com/scholarship-finder/backend/supabase/client"
)

const tableApplications = "applications"

// Store defines application persistence.
type Store interface {
	Insert(ctx context.Context, a *Application) (*Application, error)
	GetOwned(ctx context.Context, id, userID int64) (*Application, error)
	ListByUser(ctx context.Context, userID int64) ([]Application, error)
	Update(ctx context.Context, id, userID int64, updates map[string]interface{}) (*Application, error)
	Delete(ctx context.Context, id, userID int64) error
	DueWithin(ctx context.Context, userID int64, from, to dates.Date) ([]Application, error)
	Overdue(ctx context.Context, userID int64, before dates.Date) ([]Application, error)
}

// SupabaseStore persists applications through the Supabase REST API.
type SupabaseStore struct {
	db *client.Client
}

// NewSupabaseStore creates an application store.
func NewSupabaseStore(db *client.Client) *SupabaseStore {
	return &SupabaseStore{db: db}
}

// Insert creates an application row and returns the stored entity.
func (s *SupabaseStore) Insert(ctx context.Context, a *Application) (*Application, error) {
	row := map[string]interface{}{
		"user_id":        a.UserID,
		"scholarship_id": a.ScholarshipID,
		"name":           a.Name,
		"organization":   a.Organization,
		"status":         a.Status,
		"due_date":       a.DueDate.String(),
		"award_amount":   a.AwardAmount,
		"notes":          a.Notes,
	}

	resp, err := s.db.From(tableApplications).Single().ExecuteInsert(ctx, row)
	if err != nil {
		return nil, fmt.Errorf("insert application: %w", err)
	}

	var created Application
	if err := resp.Decode(&created); err != nil {
		return nil, err
	}
	return &created, nil
}

// GetOwned fetches an application only when owned by userID.
func (s *SupabaseStore) GetOwned(ctx context.Context, id, userID int64) (*Application, error) {
	resp, err := s.db.From(tableApplications).
		Eq("id", id).
		Eq("user_id", userID).
		Single().
		Execute(ctx)
	if err != nil {
		return nil, fmt.Errorf("get application: %w", err)
	}

	var a Application
	if err := resp.Decode(&a); err != nil {
		return nil, err
	}
	return &a, nil
}

// ListByUser returns all applications owned by userID ordered by due date.
func (s *SupabaseStore) ListByUser(ctx context.Context, userID int64) ([]Application, error) {
	resp, err := s.db.From(tableApplications).
		Eq("user_id", userID).
		Order("due_date", true).
		Execute(ctx)
	if err != nil {
		return nil, fmt.Errorf("list applications: %w", err)
	}

	var out []Application
	if err := resp.Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}

// Update patches the given fields on an owned application row.
func (s *SupabaseStore) Update(ctx context.Context, id, userID int64, updates map[string]interface{}) (*Application, error) {
	resp, err := s.db.From(tableApplications).
		Eq("id", id).
		Eq("user_id", userID).
		Single().
		ExecuteUpdate(ctx, updates)
	if err != nil {
		return nil, fmt.Errorf("update application: %w", err)
	}

	var a Application
	if err := resp.Decode(&a); err != nil {
		return nil, err
	}
	return &a, nil
}

// Delete removes an owned application; essays and collaborations cascade
// at the database level.
func (s *SupabaseStore) Delete(ctx context.Context, id, userID int64) error {
	resp, err := s.db.From(tableApplications).
		Eq("id", id).
		Eq("user_id", userID).
		ExecuteDelete(ctx)
	if err != nil {
		return fmt.Errorf("delete application: %w", err)
	}

	var deleted []Application
	if err := resp.Decode(&deleted); err != nil {
		return err
	}
	if len(deleted) == 0 {
		return client.ErrNotFound
	}
	return nil
}

// DueWithin returns non-terminal applications with a due date inside the
// [from, to] calendar window, soonest first.
func (s *SupabaseStore) DueWithin(ctx context.Context, userID int64, from, to dates.Date) ([]Application, error) {
	resp, err := s.db.From(tableApplications).
		Eq("user_id", userID).
		Gte("due_date", from.String()).
		Lte("due_date", to.String()).
		NotIn("status", terminalStatusValues()).
		Order("due_date", true).
		Execute(ctx)
	if err != nil {
		return nil, fmt.Errorf("list due applications: %w", err)
	}

	var out []Application
	if err := resp.Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}

// Overdue returns non-terminal applications due strictly before the given
// date, most overdue first.
func (s *SupabaseStore) Overdue(ctx context.Context, userID int64, before dates.Date) ([]Application, error) {
	resp, err := s.db.From(tableApplications).
		Eq("user_id", userID).
		Lt("due_date", before.String()).
		NotIn("status", terminalStatusValues()).
		Order("due_date", true).
		Execute(ctx)
	if err != nil {
		return nil, fmt.Errorf("list overdue applications: %w", err)
	}

	var out []Application
	if err := resp.Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}

func terminalStatusValues() []any {
	statuses := TerminalStatuses()
	out := make([]any, len(statuses))
	for i, s := range statuses {
		// Quoted: the status vocabulary contains spaces, which PostgREST
		// in.() lists require to be double-quoted.
		out[i] = `"` + string(s) + `"`
	}
	return out
}
