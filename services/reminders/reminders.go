package reminders

import (
	"context"

	"github.com/scholarship-finder/backend/internal/dates"
	"github.com/scholarship-finder/backend/internal/errors"
	"github.com/scholarship-finder/backend/internal/logging"
	"github.com/scholarship-finder/backend/services/applications"
	"github.com/scholarship-finder/backend/services/collaborations"
)

// dueSoonDays is the width of the "due soon" window in calendar days.
const dueSoonDays = 7

// ApplicationQueries is the slice of application persistence the
// aggregator needs.
type ApplicationQueries interface {
	DueWithin(ctx context.Context, userID int64, from, to dates.Date) ([]applications.Application, error)
	Overdue(ctx context.Context, userID int64, before dates.Date) ([]applications.Application, error)
}

// CollaborationQueries is the slice of collaboration persistence the
// aggregator needs.
type CollaborationQueries interface {
	DueWithin(ctx context.Context, userID int64, from, to dates.Date) ([]collaborations.Collaboration, error)
	Overdue(ctx context.Context, userID int64, before dates.Date) ([]collaborations.Collaboration, error)
	PendingResponse(ctx context.Context, userID int64) ([]collaborations.Collaboration, error)
}

// Stats summarizes the dashboard buckets.
type Stats struct {
	TotalUpcoming int `json:"total_upcoming"`
	TotalOverdue  int `json:"total_overdue"`
}

// Dashboard is the reminder payload for one user. Each bucket keeps its
// own query's ordering; nothing is re-sorted here.
type Dashboard struct {
	DueSoonApplications   []applications.Application     `json:"due_soon_applications"`
	OverdueApplications   []applications.Application     `json:"overdue_applications"`
	DueSoonCollaborations []collaborations.Collaboration `json:"due_soon_collaborations"`
	OverdueCollaborations []collaborations.Collaboration `json:"overdue_collaborations"`
	PendingCollaborations []collaborations.Collaboration `json:"pending_collaborations"`
	Stats                 Stats                          `json:"stats"`
}

// Service aggregates reminders across applications and collaborations.
type Service struct {
	apps    ApplicationQueries
	collabs CollaborationQueries
	logger  *logging.Logger
	today   func() dates.Date
}

// NewService creates the reminder aggregator.
func NewService(apps ApplicationQueries, collabs CollaborationQueries, logger *logging.Logger) *Service {
	return &Service{
		apps:    apps,
		collabs: collabs,
		logger:  logger,
		today:   dates.Today,
	}
}

// ForUser combines five independent queries into one dashboard payload.
// Window boundaries are calendar dates; an item due today counts as due
// soon, never overdue.
func (s *Service) ForUser(ctx context.Context, userID int64) (*Dashboard, error) {
	today := s.today()
	horizon := today.AddDays(dueSoonDays)

	dueSoonApps, err := s.apps.DueWithin(ctx, userID, today, horizon)
	if err != nil {
		return nil, errors.Internal("failed to load due applications", err)
	}
	overdueApps, err := s.apps.Overdue(ctx, userID, today)
	if err != nil {
		return nil, errors.Internal("failed to load overdue applications", err)
	}
	dueSoonCollabs, err := s.collabs.DueWithin(ctx, userID, today, horizon)
	if err != nil {
		return nil, errors.Internal("failed to load due collaborations", err)
	}
	overdueCollabs, err := s.collabs.Overdue(ctx, userID, today)
	if err != nil {
		return nil, errors.Internal("failed to load overdue collaborations", err)
	}
	pending, err := s.collabs.PendingResponse(ctx, userID)
	if err != nil {
		return nil, errors.Internal("failed to load pending collaborations", err)
	}

	return &Dashboard{
		DueSoonApplications:   dueSoonApps,
		OverdueApplications:   overdueApps,
		DueSoonCollaborations: dueSoonCollabs,
		OverdueCollaborations: overdueCollabs,
		PendingCollaborations: pending,
		Stats: Stats{
			TotalUpcoming: len(dueSoonApps) + len(dueSoonCollabs),
			TotalOverdue:  len(overdueApps) + len(overdueCollabs),
		},
	}, nil
}
