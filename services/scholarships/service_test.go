package scholarships

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scholarship-finder/backend/internal/dates"
	apperrors "github.com/scholarship-finder/backend/internal/errors"
	"github.com/scholarship-finder/backend/internal/logging"
	"github.com/scholarship-finder/backend/supabase/client"
)

type mockScholarshipStore struct {
	scholarships []Scholarship
	prefs        *SearchPreferences
	interacted   []int64

	candidateFilter CandidateFilter
}

func (m *mockScholarshipStore) GetByID(_ context.Context, id int64) (*Scholarship, error) {
	for i := range m.scholarships {
		if m.scholarships[i].ID == id {
			return &m.scholarships[i], nil
		}
	}
	return nil, client.ErrNotFound
}

func (m *mockScholarshipStore) Search(_ context.Context, _ SearchFilter) ([]Scholarship, error) {
	return m.scholarships, nil
}

func (m *mockScholarshipStore) Insert(_ context.Context, s *Scholarship) (*Scholarship, error) {
	return s, nil
}

func (m *mockScholarshipStore) Candidates(_ context.Context, _ dates.Date, filter CandidateFilter) ([]Scholarship, error) {
	m.candidateFilter = filter
	excluded := map[int64]bool{}
	for _, id := range filter.ExcludeIDs {
		excluded[id] = true
	}
	var out []Scholarship
	for _, s := range m.scholarships {
		if !excluded[s.ID] {
			out = append(out, s)
		}
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}
	return out, nil
}

func (m *mockScholarshipStore) DeactivateExpired(_ context.Context, before dates.Date) (int, error) {
	n := 0
	for i := range m.scholarships {
		s := &m.scholarships[i]
		if s.Active && s.Deadline != nil && s.Deadline.Before(before) {
			s.Active = false
			n++
		}
	}
	return n, nil
}

func (m *mockScholarshipStore) GetPreferences(_ context.Context, _ int64) (*SearchPreferences, error) {
	if m.prefs == nil {
		return nil, client.ErrNotFound
	}
	return m.prefs, nil
}

func (m *mockScholarshipStore) UpsertPreferences(_ context.Context, userID int64, input PreferencesInput) (*SearchPreferences, error) {
	m.prefs = &SearchPreferences{
		UserID:         userID,
		Category:       input.Category,
		EducationLevel: input.EducationLevel,
		FieldOfStudy:   input.FieldOfStudy,
		TargetType:     input.TargetType,
		MinAmount:      input.MinAmount,
	}
	return m.prefs, nil
}

func (m *mockScholarshipStore) InteractedIDs(_ context.Context, _ int64) ([]int64, error) {
	return m.interacted, nil
}

func (m *mockScholarshipStore) InsertInteraction(_ context.Context, userID, scholarshipID int64, status string) (*Interaction, error) {
	for _, id := range m.interacted {
		if id == scholarshipID {
			return nil, client.ErrConflict
		}
	}
	m.interacted = append(m.interacted, scholarshipID)
	return &Interaction{UserID: userID, ScholarshipID: scholarshipID, Status: status}, nil
}

type mockUsers struct {
	known map[int64]bool
}

func (m *mockUsers) Exists(_ context.Context, userID int64) (bool, error) {
	return m.known[userID], nil
}

func newRecommendFixture() (*Service, *mockScholarshipStore) {
	deadline := dates.New(2026, time.June, 1)
	store := &mockScholarshipStore{
		scholarships: []Scholarship{
			{ID: 1, Title: "Arts Grant", Category: strPtr("arts"), MaxAward: f64Ptr(20000), Deadline: &deadline, Active: true},
			{ID: 2, Title: "STEM Award", Category: strPtr("STEM"), MaxAward: f64Ptr(2000), Deadline: &deadline, Active: true},
			{ID: 3, Title: "Community Grant", MaxAward: f64Ptr(15000), Deadline: &deadline, Active: true},
		},
	}
	svc := NewService(store, &mockUsers{known: map[int64]bool{1: true}}, logging.New("test", "error", "json"))
	svc.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	return svc, store
}

func TestRecommended_UnknownUserIsNotFound(t *testing.T) {
	svc, _ := newRecommendFixture()

	_, err := svc.Recommended(context.Background(), 99, 10)
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestRecommended_RanksByScoreNotAmount(t *testing.T) {
	svc, store := newRecommendFixture()
	store.prefs = &SearchPreferences{Category: strPtr("STEM")}

	out, err := svc.Recommended(context.Background(), 1, 10)
	require.NoError(t, err)
	require.NotEmpty(t, out)

	// The STEM award outranks the larger grants on score.
	assert.Equal(t, int64(2), out[0].ID)
	assert.Greater(t, out[0].MatchScore, out[1].MatchScore)
}

func TestRecommended_MissingPreferencesIsNotAnError(t *testing.T) {
	svc, _ := newRecommendFixture()

	out, err := svc.Recommended(context.Background(), 1, 10)
	require.NoError(t, err)
	assert.Len(t, out, 3)
}

func TestRecommended_ExcludesInteracted(t *testing.T) {
	svc, store := newRecommendFixture()
	store.interacted = []int64{1, 3}

	out, err := svc.Recommended(context.Background(), 1, 10)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, int64(2), out[0].ID)
}

func TestRecommended_OverFetchesDoubleLimit(t *testing.T) {
	svc, store := newRecommendFixture()

	out, err := svc.Recommended(context.Background(), 1, 2)
	require.NoError(t, err)

	assert.Equal(t, 4, store.candidateFilter.Limit)
	assert.Len(t, out, 2)
}

func TestRecommended_DefaultLimit(t *testing.T) {
	svc, store := newRecommendFixture()

	_, err := svc.Recommended(context.Background(), 1, 0)
	require.NoError(t, err)
	assert.Equal(t, defaultRecommendLimit*2, store.candidateFilter.Limit)
}

func TestDeactivateExpired_MarksOnlyPastDeadlineActives(t *testing.T) {
	svc, store := newRecommendFixture()

	past := dates.New(2026, time.January, 15)
	store.scholarships = append(store.scholarships,
		Scholarship{ID: 4, Title: "Closed Grant", Deadline: &past, Active: true},
		Scholarship{ID: 5, Title: "Already Inactive", Deadline: &past, Active: false},
	)

	n, err := svc.DeactivateExpired(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	for _, s := range store.scholarships {
		if s.ID == 4 {
			assert.False(t, s.Active)
		}
	}
}

func TestDeactivateExpired_FutureDeadlinesStayActive(t *testing.T) {
	svc, store := newRecommendFixture()

	n, err := svc.DeactivateExpired(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	for _, s := range store.scholarships {
		assert.True(t, s.Active)
	}
}

func TestUpdatePreferences_NegativeMinAmount(t *testing.T) {
	svc, _ := newRecommendFixture()

	_, err := svc.UpdatePreferences(context.Background(), 1, PreferencesInput{MinAmount: f64Ptr(-1)})
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
}

func TestRecordInteraction_UnknownScholarshipIsNotFound(t *testing.T) {
	svc, _ := newRecommendFixture()

	_, err := svc.RecordInteraction(context.Background(), 1, 99, "saved")
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestRecordInteraction_DuplicateConflicts(t *testing.T) {
	svc, _ := newRecommendFixture()

	_, err := svc.RecordInteraction(context.Background(), 1, 1, "saved")
	require.NoError(t, err)

	_, err = svc.RecordInteraction(context.Background(), 1, 1, "dismissed")
	require.Error(t, err)
	assert.True(t, apperrors.IsConflict(err))
}
