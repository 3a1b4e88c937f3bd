package scholarships

import (
	"context"
	stderrors "errors"
	"sort"
	"time"

	"github.com/scholarship-finder/backend/internal/dates"
	"github.com/scholarship-finder/backend/internal/errors"
	"github.com/scholarship-finder/backend/internal/logging"
	"github.com/scholarship-finder/backend/supabase/client"
)

const defaultRecommendLimit = 10

// UserDirectory verifies that a user exists before recommendations are
// computed for them.
type UserDirectory interface {
	Exists(ctx context.Context, userID int64) (bool, error)
}

// Service implements scholarship search, preferences, and matching.
type Service struct {
	store  Store
	users  UserDirectory
	logger *logging.Logger
	now    func() time.Time
}

// NewService creates the scholarship service.
func NewService(store Store, users UserDirectory, logger *logging.Logger) *Service {
	return &Service{
		store:  store,
		users:  users,
		logger: logger,
		now:    time.Now,
	}
}

// GetByID fetches one scholarship. The catalog is shared, so there is no
// ownership filter.
func (s *Service) GetByID(ctx context.Context, id int64) (*Scholarship, error) {
	sch, err := s.store.GetByID(ctx, id)
	if err != nil {
		if stderrors.Is(err, client.ErrNotFound) {
			return nil, errors.NotFound("Scholarship")
		}
		return nil, errors.Internal("failed to load scholarship", err)
	}
	return sch, nil
}

// Search runs a filtered catalog query.
func (s *Service) Search(ctx context.Context, filter SearchFilter) ([]Scholarship, error) {
	out, err := s.store.Search(ctx, filter)
	if err != nil {
		return nil, errors.Internal("failed to search scholarships", err)
	}
	return out, nil
}

// Recommended returns the user's top-scoring scholarships. Candidates
// are pre-filtered and pre-ordered by award in the database, then
// re-ranked here by the full match score: the weighting cannot be
// expressed as one ORDER BY, so the query over-fetches and the service
// sorts.
func (s *Service) Recommended(ctx context.Context, userID int64, limit int) ([]Recommendation, error) {
	exists, err := s.users.Exists(ctx, userID)
	if err != nil {
		return nil, errors.Internal("failed to verify user", err)
	}
	if !exists {
		return nil, errors.NotFound("User")
	}

	if limit <= 0 {
		limit = defaultRecommendLimit
	}

	// Missing preferences are fine; scoring degrades to deadline-only.
	prefs, err := s.store.GetPreferences(ctx, userID)
	if err != nil {
		if !stderrors.Is(err, client.ErrNotFound) {
			return nil, errors.Internal("failed to load preferences", err)
		}
		prefs = nil
	}

	interacted, err := s.store.InteractedIDs(ctx, userID)
	if err != nil {
		return nil, errors.Internal("failed to load interactions", err)
	}

	filter := CandidateFilter{
		ExcludeIDs: interacted,
		Limit:      limit * 2,
	}
	if prefs != nil {
		filter.TargetType = prefs.TargetType
		filter.MinAmount = prefs.MinAmount
		filter.EducationLevel = prefs.EducationLevel
		filter.FieldKeyword = prefs.FieldOfStudy
	}

	now := s.now()
	candidates, err := s.store.Candidates(ctx, dates.FromTime(now), filter)
	if err != nil {
		return nil, errors.Internal("failed to load candidates", err)
	}

	out := make([]Recommendation, len(candidates))
	for i := range candidates {
		match := CalculateMatchScoreAt(&candidates[i], prefs, now)
		out[i] = Recommendation{
			Scholarship:  candidates[i],
			MatchScore:   match.Score,
			MatchReasons: match.Reasons,
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].MatchScore > out[j].MatchScore })

	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// DeactivateExpired marks past-deadline scholarships inactive so they
// drop out of search and recommendations. The sweeper calls this
// periodically.
func (s *Service) DeactivateExpired(ctx context.Context) (int, error) {
	n, err := s.store.DeactivateExpired(ctx, dates.FromTime(s.now()))
	if err != nil {
		return 0, errors.Internal("failed to deactivate expired scholarships", err)
	}
	if n > 0 {
		s.logger.WithField("count", n).Info("deactivated expired scholarships")
	}
	return n, nil
}

// Preferences returns the user's stored search preferences.
func (s *Service) Preferences(ctx context.Context, userID int64) (*SearchPreferences, error) {
	prefs, err := s.store.GetPreferences(ctx, userID)
	if err != nil {
		if stderrors.Is(err, client.ErrNotFound) {
			return nil, errors.NotFound("Search preferences")
		}
		return nil, errors.Internal("failed to load preferences", err)
	}
	return prefs, nil
}

// UpdatePreferences writes the user's preferences, creating the row on
// first use.
func (s *Service) UpdatePreferences(ctx context.Context, userID int64, input PreferencesInput) (*SearchPreferences, error) {
	if input.MinAmount != nil && *input.MinAmount < 0 {
		return nil, errors.Validation("min_amount must not be negative")
	}

	prefs, err := s.store.UpsertPreferences(ctx, userID, input)
	if err != nil {
		return nil, errors.Internal("failed to save preferences", err)
	}
	return prefs, nil
}

// RecordInteraction marks a scholarship as acted on, removing it from
// future recommendations.
func (s *Service) RecordInteraction(ctx context.Context, userID, scholarshipID int64, status string) (*Interaction, error) {
	if status == "" {
		return nil, errors.Validation("status is required")
	}
	if _, err := s.GetByID(ctx, scholarshipID); err != nil {
		return nil, err
	}

	interaction, err := s.store.InsertInteraction(ctx, userID, scholarshipID, status)
	if err != nil {
		if stderrors.Is(err, client.ErrConflict) {
			return nil, errors.Conflict("scholarship already has an interaction")
		}
		return nil, errors.Internal("failed to record interaction", err)
	}
	return interaction, nil
}
