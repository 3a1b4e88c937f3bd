package collaborations

import (
	"context"
	"fmt"
	"time"

	"github.com/scholarship-finder/backend/internal/dates"
	"github.com/scholarship-finder/backend/supabase/client"
)

const (
	tableCollaborations = "collaborations"
	tableHistory        = "collaboration_history"
	tableInvites        = "collaboration_invites"
)

// Store defines collaboration persistence. The base table and the three
// extension tables are written separately; PostgREST offers no
// cross-table transaction, so Insert cleans up the base row when the
// detail insert fails.
type Store interface {
	Insert(ctx context.Context, c *Collaboration) (int64, error)
	GetByID(ctx context.Context, id, userID int64) (*Collaboration, error)
	GetByIDAny(ctx context.Context, id int64) (*Collaboration, error)
	ListByUser(ctx context.Context, userID int64) ([]Collaboration, error)
	ListByApplication(ctx context.Context, applicationID, userID int64) ([]Collaboration, error)
	UpdateBase(ctx context.Context, id int64, updates map[string]interface{}) error
	UpdateDetails(ctx context.Context, t Type, collaborationID int64, updates map[string]interface{}) error

	InsertHistory(ctx context.Context, h *HistoryEntry) (*HistoryEntry, error)
	ListHistory(ctx context.Context, collaborationID int64) ([]HistoryEntry, error)

	InsertInvite(ctx context.Context, inv *Invite) (*Invite, error)
	UpdateInvite(ctx context.Context, id int64, updates map[string]interface{}) (*Invite, error)
	GetInviteByProviderEmailID(ctx context.Context, providerEmailID string) (*Invite, error)
	ListDueScheduledInvites(ctx context.Context, now time.Time) ([]Invite, error)

	DueWithin(ctx context.Context, userID int64, from, to dates.Date) ([]Collaboration, error)
	Overdue(ctx context.Context, userID int64, before dates.Date) ([]Collaboration, error)
	PendingResponse(ctx context.Context, userID int64) ([]Collaboration, error)
}

// SupabaseStore persists collaborations through the Supabase REST API.
type SupabaseStore struct {
	db *client.Client
}

// NewSupabaseStore creates a collaboration store.
func NewSupabaseStore(db *client.Client) *SupabaseStore {
	return &SupabaseStore{db: db}
}

type recommendationRow struct {
	CollaborationID int64 `json:"collaboration_id"`
	RecommendationDetails
}

type essayReviewRow struct {
	CollaborationID int64 `json:"collaboration_id"`
	EssayReviewDetails
}

type guidanceRow struct {
	CollaborationID int64 `json:"collaboration_id"`
	GuidanceDetails
}

// Insert creates the base row and the matching extension row. A failed
// extension insert removes the base row again so no orphan remains.
func (s *SupabaseStore) Insert(ctx context.Context, c *Collaboration) (int64, error) {
	baseRow := map[string]interface{}{
		"user_id":                 c.UserID,
		"collaborator_id":         c.CollaboratorID,
		"application_id":          c.ApplicationID,
		"collaboration_type":      c.Type,
		"status":                  c.Status,
		"awaiting_action_from":    c.AwaitingActionFrom,
		"awaiting_action_type":    c.AwaitingActionType,
		"next_action_description": c.NextActionDescription,
		"notes":                   c.Notes,
	}
	if c.NextActionDueDate != nil {
		baseRow["next_action_due_date"] = c.NextActionDueDate.String()
	}

	resp, err := s.db.From(tableCollaborations).Single().ExecuteInsert(ctx, baseRow)
	if err != nil {
		return 0, fmt.Errorf("insert collaboration: %w", err)
	}

	var created Collaboration
	if err := resp.Decode(&created); err != nil {
		return 0, err
	}

	if err := s.insertDetails(ctx, created.ID, c.Details); err != nil {
		// No cross-table transaction; undo the base insert.
		_, _ = s.db.From(tableCollaborations).Eq("id", created.ID).ExecuteDelete(ctx)
		return 0, err
	}

	return created.ID, nil
}

func (s *SupabaseStore) insertDetails(ctx context.Context, collaborationID int64, details Details) error {
	table, err := DetailTable(details.CollaborationType())
	if err != nil {
		return err
	}

	var row interface{}
	switch d := details.(type) {
	case RecommendationDetails:
		row = recommendationRow{CollaborationID: collaborationID, RecommendationDetails: d}
	case EssayReviewDetails:
		row = essayReviewRow{CollaborationID: collaborationID, EssayReviewDetails: d}
	case GuidanceDetails:
		row = guidanceRow{CollaborationID: collaborationID, GuidanceDetails: d}
	default:
		return fmt.Errorf("unknown details type %T", details)
	}

	if _, err := s.db.From(table).ExecuteInsert(ctx, row); err != nil {
		return fmt.Errorf("insert %s: %w", table, err)
	}
	return nil
}

// GetByID fetches the base row (ownership-filtered) and merges the
// extension row.
func (s *SupabaseStore) GetByID(ctx context.Context, id, userID int64) (*Collaboration, error) {
	resp, err := s.db.From(tableCollaborations).
		Eq("id", id).
		Eq("user_id", userID).
		Single().
		Execute(ctx)
	if err != nil {
		return nil, fmt.Errorf("get collaboration: %w", err)
	}

	var c Collaboration
	if err := resp.Decode(&c); err != nil {
		return nil, err
	}

	if err := s.attachDetails(ctx, []*Collaboration{&c}); err != nil {
		return nil, err
	}
	return &c, nil
}

// GetByIDAny fetches a collaboration without an ownership filter. Only
// the scheduled-invite dispatcher uses it; every request-path read goes
// through GetByID.
func (s *SupabaseStore) GetByIDAny(ctx context.Context, id int64) (*Collaboration, error) {
	resp, err := s.db.From(tableCollaborations).
		Eq("id", id).
		Single().
		Execute(ctx)
	if err != nil {
		return nil, fmt.Errorf("get collaboration: %w", err)
	}

	var c Collaboration
	if err := resp.Decode(&c); err != nil {
		return nil, err
	}

	if err := s.attachDetails(ctx, []*Collaboration{&c}); err != nil {
		return nil, err
	}
	return &c, nil
}

// ListByUser returns all collaborations owned by userID, newest first.
func (s *SupabaseStore) ListByUser(ctx context.Context, userID int64) ([]Collaboration, error) {
	return s.list(ctx, func(q *client.QueryBuilder) *client.QueryBuilder {
		return q.Eq("user_id", userID).Order("created_at", false)
	})
}

// ListByApplication returns the collaborations on one owned application.
func (s *SupabaseStore) ListByApplication(ctx context.Context, applicationID, userID int64) ([]Collaboration, error) {
	return s.list(ctx, func(q *client.QueryBuilder) *client.QueryBuilder {
		return q.Eq("application_id", applicationID).Eq("user_id", userID).Order("created_at", false)
	})
}

func (s *SupabaseStore) list(ctx context.Context, filter func(*client.QueryBuilder) *client.QueryBuilder) ([]Collaboration, error) {
	resp, err := filter(s.db.From(tableCollaborations)).Execute(ctx)
	if err != nil {
		return nil, fmt.Errorf("list collaborations: %w", err)
	}

	var out []Collaboration
	if err := resp.Decode(&out); err != nil {
		return nil, err
	}

	refs := make([]*Collaboration, len(out))
	for i := range out {
		refs[i] = &out[i]
	}
	if err := s.attachDetails(ctx, refs); err != nil {
		return nil, err
	}
	return out, nil
}

// attachDetails loads extension rows in one query per type and merges
// them onto the base entities.
func (s *SupabaseStore) attachDetails(ctx context.Context, collabs []*Collaboration) error {
	byType := map[Type][]any{}
	for _, c := range collabs {
		byType[c.Type] = append(byType[c.Type], c.ID)
	}

	for t, ids := range byType {
		table, err := DetailTable(t)
		if err != nil {
			return err
		}

		resp, err := s.db.From(table).In("collaboration_id", ids).Execute(ctx)
		if err != nil {
			return fmt.Errorf("load %s: %w", table, err)
		}

		switch t {
		case TypeRecommendation:
			var rows []recommendationRow
			if err := resp.Decode(&rows); err != nil {
				return err
			}
			for _, row := range rows {
				if c := findByID(collabs, row.CollaborationID); c != nil {
					c.Details = row.RecommendationDetails
				}
			}
		case TypeEssayReview:
			var rows []essayReviewRow
			if err := resp.Decode(&rows); err != nil {
				return err
			}
			for _, row := range rows {
				if c := findByID(collabs, row.CollaborationID); c != nil {
					c.Details = row.EssayReviewDetails
				}
			}
		case TypeGuidance:
			var rows []guidanceRow
			if err := resp.Decode(&rows); err != nil {
				return err
			}
			for _, row := range rows {
				if c := findByID(collabs, row.CollaborationID); c != nil {
					c.Details = row.GuidanceDetails
				}
			}
		}
	}
	return nil
}

func findByID(collabs []*Collaboration, id int64) *Collaboration {
	for _, c := range collabs {
		if c.ID == id {
			return c
		}
	}
	return nil
}

// UpdateBase patches the given fields on the base row. Ownership is
// checked by the caller before any update reaches the store.
func (s *SupabaseStore) UpdateBase(ctx context.Context, id int64, updates map[string]interface{}) error {
	if _, err := s.db.From(tableCollaborations).Eq("id", id).ExecuteUpdate(ctx, updates); err != nil {
		return fmt.Errorf("update collaboration: %w", err)
	}
	return nil
}

// UpdateDetails patches the given fields on the extension row for t.
func (s *SupabaseStore) UpdateDetails(ctx context.Context, t Type, collaborationID int64, updates map[string]interface{}) error {
	table, err := DetailTable(t)
	if err != nil {
		return err
	}
	if _, err := s.db.From(table).Eq("collaboration_id", collaborationID).ExecuteUpdate(ctx, updates); err != nil {
		return fmt.Errorf("update %s: %w", table, err)
	}
	return nil
}

// InsertHistory appends one audit-trail row.
func (s *SupabaseStore) InsertHistory(ctx context.Context, h *HistoryEntry) (*HistoryEntry, error) {
	row := map[string]interface{}{
		"collaboration_id": h.CollaborationID,
		"action":           h.Action,
		"details":          h.Details,
	}

	resp, err := s.db.From(tableHistory).Single().ExecuteInsert(ctx, row)
	if err != nil {
		return nil, fmt.Errorf("insert history: %w", err)
	}

	var created HistoryEntry
	if err := resp.Decode(&created); err != nil {
		return nil, err
	}
	return &created, nil
}

// ListHistory returns all history rows oldest first. There is no
// pagination; the trail for one collaboration stays small.
func (s *SupabaseStore) ListHistory(ctx context.Context, collaborationID int64) ([]HistoryEntry, error) {
	resp, err := s.db.From(tableHistory).
		Eq("collaboration_id", collaborationID).
		Order("created_at", true).
		Execute(ctx)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}

	var out []HistoryEntry
	if err := resp.Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}

// InsertInvite creates one invitation-attempt row.
func (s *SupabaseStore) InsertInvite(ctx context.Context, inv *Invite) (*Invite, error) {
	row := map[string]interface{}{
		"collaboration_id":  inv.CollaborationID,
		"token":             inv.Token,
		"sent_at":           inv.SentAt,
		"scheduled_for":     inv.ScheduledFor,
		"expires_at":        inv.ExpiresAt,
		"delivery_status":   inv.DeliveryStatus,
		"provider_email_id": inv.ProviderEmailID,
	}

	resp, err := s.db.From(tableInvites).Single().ExecuteInsert(ctx, row)
	if err != nil {
		return nil, fmt.Errorf("insert invite: %w", err)
	}

	var created Invite
	if err := resp.Decode(&created); err != nil {
		return nil, err
	}
	return &created, nil
}

// UpdateInvite patches the given fields on an invite row.
func (s *SupabaseStore) UpdateInvite(ctx context.Context, id int64, updates map[string]interface{}) (*Invite, error) {
	resp, err := s.db.From(tableInvites).
		Eq("id", id).
		Single().
		ExecuteUpdate(ctx, updates)
	if err != nil {
		return nil, fmt.Errorf("update invite: %w", err)
	}

	var inv Invite
	if err := resp.Decode(&inv); err != nil {
		return nil, err
	}
	return &inv, nil
}

// GetInviteByProviderEmailID looks up the invite matching a provider
// webhook event.
func (s *SupabaseStore) GetInviteByProviderEmailID(ctx context.Context, providerEmailID string) (*Invite, error) {
	resp, err := s.db.From(tableInvites).
		Eq("provider_email_id", providerEmailID).
		Single().
		Execute(ctx)
	if err != nil {
		return nil, fmt.Errorf("get invite by provider id: %w", err)
	}

	var inv Invite
	if err := resp.Decode(&inv); err != nil {
		return nil, err
	}
	return &inv, nil
}

// ListDueScheduledInvites returns pending invites whose scheduled send
// time has arrived.
func (s *SupabaseStore) ListDueScheduledInvites(ctx context.Context, now time.Time) ([]Invite, error) {
	resp, err := s.db.From(tableInvites).
		Eq("delivery_status", DeliveryPending).
		Not("scheduled_for", "is", "null").
		Lte("scheduled_for", now.UTC().Format(time.RFC3339)).
		Execute(ctx)
	if err != nil {
		return nil, fmt.Errorf("list due invites: %w", err)
	}

	var out []Invite
	if err := resp.Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}

// DueWithin returns non-terminal collaborations with a next action due
// inside the [from, to] calendar window, soonest first.
func (s *SupabaseStore) DueWithin(ctx context.Context, userID int64, from, to dates.Date) ([]Collaboration, error) {
	return s.list(ctx, func(q *client.QueryBuilder) *client.QueryBuilder {
		return q.Eq("user_id", userID).
			Gte("next_action_due_date", from.String()).
			Lte("next_action_due_date", to.String()).
			NotIn("status", terminalStatusValues()).
			Order("next_action_due_date", true)
	})
}

// Overdue returns non-terminal collaborations with a next action due
// strictly before the given date.
func (s *SupabaseStore) Overdue(ctx context.Context, userID int64, before dates.Date) ([]Collaboration, error) {
	return s.list(ctx, func(q *client.QueryBuilder) *client.QueryBuilder {
		return q.Eq("user_id", userID).
			Lt("next_action_due_date", before.String()).
			NotIn("status", terminalStatusValues()).
			Order("next_action_due_date", true)
	})
}

// PendingResponse returns collaborations still waiting on the
// collaborator to respond, newest first, regardless of due date.
func (s *SupabaseStore) PendingResponse(ctx context.Context, userID int64) ([]Collaboration, error) {
	return s.list(ctx, func(q *client.QueryBuilder) *client.QueryBuilder {
		return q.Eq("user_id", userID).
			In("status", []any{StatusPending, StatusInvited}).
			Order("created_at", false)
	})
}

func terminalStatusValues() []any {
	return []any{StatusCompleted, StatusDeclined}
}
