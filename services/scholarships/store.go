package scholarships

import (
	"context"
	"fmt"

	"github.com/scholarship-finder/backend/internal/dates"
	"github.com/scholarship-finder/backend/supabase/client"
)

const (
	tableScholarships = "scholarships"
	tablePreferences  = "search_preferences"
	tableInteractions = "scholarship_interactions"
)

// CandidateFilter narrows the recommendation candidate query. All fields
// are optional; the store always requires active status and a future
// deadline.
type CandidateFilter struct {
	TargetType     *string
	MinAmount      *float64
	EducationLevel *string
	FieldKeyword   *string
	ExcludeIDs     []int64
	Limit          int
}

// Store defines scholarship persistence.
type Store interface {
	GetByID(ctx context.Context, id int64) (*Scholarship, error)
	Search(ctx context.Context, filter SearchFilter) ([]Scholarship, error)
	Insert(ctx context.Context, s *Scholarship) (*Scholarship, error)
	Candidates(ctx context.Context, today dates.Date, filter CandidateFilter) ([]Scholarship, error)
	DeactivateExpired(ctx context.Context, before dates.Date) (int, error)

	GetPreferences(ctx context.Context, userID int64) (*SearchPreferences, error)
	UpsertPreferences(ctx context.Context, userID int64, input PreferencesInput) (*SearchPreferences, error)

	InteractedIDs(ctx context.Context, userID int64) ([]int64, error)
	InsertInteraction(ctx context.Context, userID, scholarshipID int64, status string) (*Interaction, error)
}

// SupabaseStore persists scholarships through the Supabase REST API.
type SupabaseStore struct {
	db *client.Client
}

// NewSupabaseStore creates a scholarship store.
func NewSupabaseStore(db *client.Client) *SupabaseStore {
	return &SupabaseStore{db: db}
}

func (s *SupabaseStore) GetByID(ctx context.Context, id int64) (*Scholarship, error) {
	resp, err := s.db.From(tableScholarships).Eq("id", id).Single().Execute(ctx)
	if err != nil {
		return nil, fmt.Errorf("get scholarship: %w", err)
	}

	var out Scholarship
	if err := resp.Decode(&out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Search runs a catalog query over active scholarships.
func (s *SupabaseStore) Search(ctx context.Context, filter SearchFilter) ([]Scholarship, error) {
	q := s.db.From(tableScholarships).Eq("active", true)

	if filter.Query != "" {
		pattern := "*" + filter.Query + "*"
		q = q.Or(
			fmt.Sprintf("title.ilike.%s", pattern),
			fmt.Sprintf("description.ilike.%s", pattern),
			fmt.Sprintf("organization.ilike.%s", pattern),
		)
	}
	if filter.Category != "" {
		q = q.Eq("category", filter.Category)
	}
	if filter.TargetType != "" {
		q = q.Eq("target_type", filter.TargetType)
	}
	if filter.EducationLevel != "" {
		q = q.Eq("education_level", filter.EducationLevel)
	}
	if filter.MinAmount != nil {
		q = q.Gte("max_award", *filter.MinAmount)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}

	resp, err := q.Order("deadline", true).Execute(ctx)
	if err != nil {
		return nil, fmt.Errorf("search scholarships: %w", err)
	}

	var out []Scholarship
	if err := resp.Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}

// Insert adds one scholarship. Used by the seed importer.
func (s *SupabaseStore) Insert(ctx context.Context, sch *Scholarship) (*Scholarship, error) {
	resp, err := s.db.From(tableScholarships).Single().ExecuteInsert(ctx, sch)
	if err != nil {
		return nil, fmt.Errorf("insert scholarship: %w", err)
	}

	var out Scholarship
	if err := resp.Decode(&out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Candidates returns active, not-yet-expired scholarships for the
// recommender, ordered by award descending as a coarse pre-rank.
func (s *SupabaseStore) Candidates(ctx context.Context, today dates.Date, filter CandidateFilter) ([]Scholarship, error) {
	q := s.db.From(tableScholarships).
		Eq("active", true).
		Gte("deadline", today.String())

	if filter.TargetType != nil && *filter.TargetType != "" {
		q = q.Eq("target_type", *filter.TargetType)
	}
	if filter.MinAmount != nil {
		q = q.Gte("max_award", *filter.MinAmount)
	}
	if filter.EducationLevel != nil && *filter.EducationLevel != "" {
		q = q.Eq("education_level", *filter.EducationLevel)
	}
	if filter.FieldKeyword != nil && *filter.FieldKeyword != "" {
		pattern := "*" + *filter.FieldKeyword + "*"
		q = q.Or(
			fmt.Sprintf("field_of_study.ilike.%s", pattern),
			fmt.Sprintf("subject_areas.cs.{%s}", *filter.FieldKeyword),
		)
	}
	if len(filter.ExcludeIDs) > 0 {
		ids := make([]any, len(filter.ExcludeIDs))
		for i, id := range filter.ExcludeIDs {
			ids[i] = id
		}
		q = q.NotIn("id", ids)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}

	resp, err := q.Order("max_award", false).Execute(ctx)
	if err != nil {
		return nil, fmt.Errorf("list candidates: %w", err)
	}

	var out []Scholarship
	if err := resp.Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}

// DeactivateExpired flips active off for scholarships whose deadline
// has passed, returning how many rows changed.
func (s *SupabaseStore) DeactivateExpired(ctx context.Context, before dates.Date) (int, error) {
	resp, err := s.db.From(tableScholarships).
		Eq("active", true).
		Lt("deadline", before.String()).
		ExecuteUpdate(ctx, map[string]interface{}{"active": false})
	if err != nil {
		return 0, fmt.Errorf("deactivate expired scholarships: %w", err)
	}

	var rows []struct {
		ID int64 `json:"id"`
	}
	if err := resp.Decode(&rows); err != nil {
		return 0, err
	}
	return len(rows), nil
}

// GetPreferences returns the user's search preferences row.
func (s *SupabaseStore) GetPreferences(ctx context.Context, userID int64) (*SearchPreferences, error) {
	resp, err := s.db.From(tablePreferences).Eq("user_id", userID).Single().Execute(ctx)
	if err != nil {
		return nil, fmt.Errorf("get preferences: %w", err)
	}

	var prefs SearchPreferences
	if err := resp.Decode(&prefs); err != nil {
		return nil, err
	}
	return &prefs, nil
}

// UpsertPreferences writes the user's single preferences row, creating
// it on first use.
func (s *SupabaseStore) UpsertPreferences(ctx context.Context, userID int64, input PreferencesInput) (*SearchPreferences, error) {
	row := map[string]interface{}{
		"user_id":         userID,
		"category":        input.Category,
		"education_level": input.EducationLevel,
		"field_of_study":  input.FieldOfStudy,
		"target_type":     input.TargetType,
		"min_amount":      input.MinAmount,
	}

	resp, err := s.db.From(tablePreferences).
		Upsert("user_id").
		Single().
		ExecuteInsert(ctx, row)
	if err != nil {
		return nil, fmt.Errorf("upsert preferences: %w", err)
	}

	var prefs SearchPreferences
	if err := resp.Decode(&prefs); err != nil {
		return nil, err
	}
	return &prefs, nil
}

// InteractedIDs returns every scholarship id the user has acted on,
// regardless of interaction status.
func (s *SupabaseStore) InteractedIDs(ctx context.Context, userID int64) ([]int64, error) {
	resp, err := s.db.From(tableInteractions).
		Select("scholarship_id").
		Eq("user_id", userID).
		Execute(ctx)
	if err != nil {
		return nil, fmt.Errorf("list interactions: %w", err)
	}

	var rows []struct {
		ScholarshipID int64 `json:"scholarship_id"`
	}
	if err := resp.Decode(&rows); err != nil {
		return nil, err
	}

	ids := make([]int64, len(rows))
	for i, r := range rows {
		ids[i] = r.ScholarshipID
	}
	return ids, nil
}

// InsertInteraction records that the user acted on a scholarship.
func (s *SupabaseStore) InsertInteraction(ctx context.Context, userID, scholarshipID int64, status string) (*Interaction, error) {
	row := map[string]interface{}{
		"user_id":        userID,
		"scholarship_id": scholarshipID,
		"status":         status,
	}

	resp, err := s.db.From(tableInteractions).Single().ExecuteInsert(ctx, row)
	if err != nil {
		return nil, fmt.Errorf("insert interaction: %w", err)
	}

	var out Interaction
	if err := resp.Decode(&out); err != nil {
		return nil, err
	}
	return &out, nil
}
