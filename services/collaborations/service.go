package collaborations

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/scholarship-finder/backend/internal/email"
	"github.com/scholarship-finder/backend/internal/errors"
	"github.com/scholarship-finder/backend/internal/logging"
	"github.com/scholarship-finder/backend/services/applications"
	"github.com/scholarship-finder/backend/services/collaborators"
	"github.com/scholarship-finder/backend/supabase/client"
)

// CollaboratorDirectory resolves collaborators for ownership checks and
// invitation addressing.
type CollaboratorDirectory interface {
	GetOwned(ctx context.Context, id, userID int64) (*collaborators.Collaborator, error)
}

// ApplicationDirectory resolves applications for ownership checks.
type ApplicationDirectory interface {
	GetOwned(ctx context.Context, id, userID int64) (*applications.Application, error)
}

// inviteTTL is how long an invitation token stays valid.
const inviteTTL = 7 * 24 * time.Hour

// Service implements the collaboration engine.
type Service struct {
	store         Store
	collaborators CollaboratorDirectory
	applications  ApplicationDirectory
	sender        email.Sender
	logger        *logging.Logger
	now           func() time.Time
}

// NewService creates the collaboration service.
func NewService(store Store, collabs CollaboratorDirectory, apps ApplicationDirectory, sender email.Sender, logger *logging.Logger) *Service {
	return &Service{
		store:         store,
		collaborators: collabs,
		applications:  apps,
		sender:        sender,
		logger:        logger,
		now:           time.Now,
	}
}

// Create adds a collaboration after verifying that both the collaborator
// and the application belong to the acting user. The same
// (collaborator, application, type) triple must not repeat.
func (s *Service) Create(ctx context.Context, userID int64, input CreateInput) (*Collaboration, error) {
	if _, err := s.collaborators.GetOwned(ctx, input.CollaboratorID, userID); err != nil {
		return nil, notFoundOr(err, "Collaborator", "failed to verify collaborator")
	}
	if _, err := s.applications.GetOwned(ctx, input.ApplicationID, userID); err != nil {
		return nil, notFoundOr(err, "Application", "failed to verify application")
	}

	if !input.Type.Valid() {
		return nil, errors.Validation("invalid collaboration_type")
	}
	if input.Type == TypeRecommendation && (input.NextActionDueDate == nil || input.NextActionDueDate.IsZero()) {
		return nil, errors.Validation("next_action_due_date is required for recommendation collaborations")
	}
	if input.Type == TypeEssayReview && input.EssayID != nil {
		return nil, errors.Validation("essay_id is no longer supported; essay reviews cover the application's essays")
	}

	status := input.Status
	if status == "" {
		status = StatusPending
	}
	if !status.Valid() {
		return nil, errors.Validation("invalid status")
	}
	if input.AwaitingActionFrom != nil && !input.AwaitingActionFrom.Valid() {
		return nil, errors.Validation("invalid awaiting_action_from")
	}

	details, err := buildDetails(input)
	if err != nil {
		return nil, err
	}

	id, err := s.store.Insert(ctx, &Collaboration{
		UserID:                userID,
		CollaboratorID:        input.CollaboratorID,
		ApplicationID:         input.ApplicationID,
		Type:                  input.Type,
		Status:                status,
		AwaitingActionFrom:    input.AwaitingActionFrom,
		AwaitingActionType:    input.AwaitingActionType,
		NextActionDescription: input.NextActionDescription,
		NextActionDueDate:     input.NextActionDueDate,
		Notes:                 input.Notes,
		Details:               details,
	})
	if err != nil {
		if stderrors.Is(err, client.ErrConflict) {
			return nil, errors.Conflict("a collaboration of this type already exists for this collaborator and application")
		}
		return nil, errors.Internal("failed to create collaboration", err)
	}

	// Refetch so the create response matches a subsequent read exactly.
	return s.GetByID(ctx, id, userID)
}

func buildDetails(input CreateInput) (Details, error) {
	switch input.Type {
	case TypeRecommendation:
		d := RecommendationDetails{PortalURL: input.PortalURL}
		if input.QuestionnaireCompleted != nil {
			d.QuestionnaireCompleted = *input.QuestionnaireCompleted
		}
		return d, nil
	case TypeEssayReview:
		d := EssayReviewDetails{CurrentDraftVersion: 1}
		if input.CurrentDraftVersion != nil {
			d.CurrentDraftVersion = *input.CurrentDraftVersion
		}
		return d, nil
	case TypeGuidance:
		d := GuidanceDetails{
			SessionType:  SessionInitial,
			MeetingURL:   input.MeetingURL,
			ScheduledFor: input.ScheduledFor,
		}
		if input.SessionType != nil {
			if !input.SessionType.Valid() {
				return nil, errors.Validation("invalid session_type")
			}
			d.SessionType = *input.SessionType
		}
		return d, nil
	}
	return nil, errors.Validation("invalid collaboration_type")
}

// GetByID fetches an owned collaboration with its type-specific fields.
// Absent and foreign-owned rows are indistinguishable.
func (s *Service) GetByID(ctx context.Context, id, userID int64) (*Collaboration, error) {
	c, err := s.store.GetByID(ctx, id, userID)
	if err != nil {
		return nil, notFoundOr(err, "Collaboration", "failed to load collaboration")
	}
	return c, nil
}

// List returns all collaborations owned by userID.
func (s *Service) List(ctx context.Context, userID int64) ([]Collaboration, error) {
	out, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, errors.Internal("failed to list collaborations", err)
	}
	return out, nil
}

// ListByApplication returns the collaborations on one owned application.
func (s *Service) ListByApplication(ctx context.Context, applicationID, userID int64) ([]Collaboration, error) {
	if _, err := s.applications.GetOwned(ctx, applicationID, userID); err != nil {
		return nil, notFoundOr(err, "Application", "failed to verify application")
	}
	out, err := s.store.ListByApplication(ctx, applicationID, userID)
	if err != nil {
		return nil, errors.Internal("failed to list collaborations", err)
	}
	return out, nil
}

// Update applies the supplied fields. collaboration_type is ignored even
// when supplied. A status change appends a history row as a best-effort
// side effect: losing an audit entry must not block the state change.
func (s *Service) Update(ctx context.Context, id, userID int64, input UpdateInput) (*Collaboration, error) {
	current, err := s.GetByID(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	if input.Status != nil && !input.Status.Valid() {
		return nil, errors.Validation("invalid status")
	}
	if input.AwaitingActionFrom != nil && !input.AwaitingActionFrom.Valid() {
		return nil, errors.Validation("invalid awaiting_action_from")
	}
	if input.SessionType != nil && !input.SessionType.Valid() {
		return nil, errors.Validation("invalid session_type")
	}

	baseUpdates := map[string]interface{}{}
	if input.Status != nil {
		baseUpdates["status"] = *input.Status
	}
	if input.AwaitingActionFrom != nil {
		baseUpdates["awaiting_action_from"] = *input.AwaitingActionFrom
	}
	if input.AwaitingActionType != nil {
		baseUpdates["awaiting_action_type"] = *input.AwaitingActionType
	}
	if input.NextActionDescription != nil {
		baseUpdates["next_action_description"] = *input.NextActionDescription
	}
	if input.NextActionDueDate != nil {
		baseUpdates["next_action_due_date"] = input.NextActionDueDate.String()
	}
	if input.Notes != nil {
		baseUpdates["notes"] = *input.Notes
	}

	if len(baseUpdates) > 0 {
		if err := s.store.UpdateBase(ctx, id, baseUpdates); err != nil {
			return nil, errors.Internal("failed to update collaboration", err)
		}
	}

	detailUpdates := detailUpdatesFor(current.Type, input)
	if len(detailUpdates) > 0 {
		if err := s.store.UpdateDetails(ctx, current.Type, id, detailUpdates); err != nil {
			return nil, errors.Internal("failed to update collaboration details", err)
		}
	}

	if input.Status != nil && *input.Status != current.Status {
		s.appendHistoryBestEffort(ctx, id, "status_changed",
			fmt.Sprintf("status changed from %s to %s", current.Status, *input.Status))
	}

	return s.GetByID(ctx, id, userID)
}

// detailUpdatesFor keeps each variant's fields on its own table: fields
// belonging to another variant are ignored, so an essay review can never
// acquire a portal URL.
func detailUpdatesFor(t Type, input UpdateInput) map[string]interface{} {
	updates := map[string]interface{}{}
	switch t {
	case TypeRecommendation:
		if input.PortalURL != nil {
			updates["portal_url"] = *input.PortalURL
		}
		if input.QuestionnaireCompleted != nil {
			updates["questionnaire_completed"] = *input.QuestionnaireCompleted
		}
		if input.LetterSubmittedAt != nil {
			updates["letter_submitted_at"] = *input.LetterSubmittedAt
		}
	case TypeEssayReview:
		if input.CurrentDraftVersion != nil {
			updates["current_draft_version"] = *input.CurrentDraftVersion
		}
		if input.FeedbackRounds != nil {
			updates["feedback_rounds"] = *input.FeedbackRounds
		}
		if input.LastFeedbackAt != nil {
			updates["last_feedback_at"] = *input.LastFeedbackAt
		}
	case TypeGuidance:
		if input.SessionType != nil {
			updates["session_type"] = *input.SessionType
		}
		if input.MeetingURL != nil {
			updates["meeting_url"] = *input.MeetingURL
		}
		if input.ScheduledFor != nil {
			updates["scheduled_for"] = *input.ScheduledFor
		}
	}
	return updates
}

func (s *Service) appendHistoryBestEffort(ctx context.Context, collaborationID int64, action, details string) {
	if _, err := s.store.InsertHistory(ctx, &HistoryEntry{
		CollaborationID: collaborationID,
		Action:          action,
		Details:         &details,
	}); err != nil {
		s.logger.WithContext(ctx).WithError(err).WithFields(map[string]interface{}{
			"collaboration_id": collaborationID,
			"action":           action,
		}).Warn("failed to append collaboration history")
	}
}

// AddHistory appends one immutable audit row to an owned collaboration.
func (s *Service) AddHistory(ctx context.Context, collaborationID, userID int64, action string, details *string) (*HistoryEntry, error) {
	if _, err := s.GetByID(ctx, collaborationID, userID); err != nil {
		return nil, err
	}
	if action == "" {
		return nil, errors.Validation("action is required")
	}

	entry, err := s.store.InsertHistory(ctx, &HistoryEntry{
		CollaborationID: collaborationID,
		Action:          action,
		Details:         details,
	})
	if err != nil {
		return nil, errors.Internal("failed to append history", err)
	}
	return entry, nil
}

// History returns the audit trail oldest first.
func (s *Service) History(ctx context.Context, collaborationID, userID int64) ([]HistoryEntry, error) {
	if _, err := s.GetByID(ctx, collaborationID, userID); err != nil {
		return nil, err
	}

	out, err := s.store.ListHistory(ctx, collaborationID)
	if err != nil {
		return nil, errors.Internal("failed to load history", err)
	}
	return out, nil
}

// SendInvitation creates an invitation attempt and submits the email
// immediately. The returned delivery status reflects the submission
// outcome only; webhook events move it onward asynchronously.
func (s *Service) SendInvitation(ctx context.Context, id, userID int64) (*Invite, error) {
	return s.sendInvitation(ctx, id, userID, "invitation_sent")
}

// ResendInvitation creates a fresh invitation attempt. Prior invite rows
// are kept untouched.
func (s *Service) ResendInvitation(ctx context.Context, id, userID int64) (*Invite, error) {
	return s.sendInvitation(ctx, id, userID, "invitation_resent")
}

func (s *Service) sendInvitation(ctx context.Context, id, userID int64, historyAction string) (*Invite, error) {
	c, err := s.GetByID(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	collaborator, err := s.collaborators.GetOwned(ctx, c.CollaboratorID, userID)
	if err != nil {
		return nil, notFoundOr(err, "Collaborator", "failed to load collaborator")
	}

	invite, err := s.store.InsertInvite(ctx, &Invite{
		CollaborationID: id,
		Token:           uuid.NewString(),
		ExpiresAt:       s.now().Add(inviteTTL),
		DeliveryStatus:  DeliveryPending,
	})
	if err != nil {
		return nil, errors.Internal("failed to create invite", err)
	}

	invite = s.deliver(ctx, invite, c, collaborator)
	s.appendHistoryBestEffort(ctx, id, historyAction,
		fmt.Sprintf("invitation %s to %s", invite.DeliveryStatus, collaborator.Email))
	return invite, nil
}

// deliver submits the invite email and records the outcome on the invite
// row. A failed submission marks the invite failed; it never fails the
// operation itself.
func (s *Service) deliver(ctx context.Context, invite *Invite, c *Collaboration, collaborator *collaborators.Collaborator) *Invite {
	result, err := s.sender.Send(ctx, invitationMessage(invite, c, collaborator))

	now := s.now()
	updates := map[string]interface{}{"sent_at": now}
	if err != nil {
		s.logger.WithContext(ctx).WithError(err).WithField("invite_id", invite.ID).Error("invitation email failed")
		updates["delivery_status"] = DeliveryFailed
	} else {
		updates["delivery_status"] = DeliveryStatus(result.Status)
		updates["provider_email_id"] = result.ProviderID
	}

	updated, updErr := s.store.UpdateInvite(ctx, invite.ID, updates)
	if updErr != nil {
		s.logger.WithContext(ctx).WithError(updErr).WithField("invite_id", invite.ID).Error("failed to record invite outcome")
		return invite
	}
	return updated
}

func invitationMessage(invite *Invite, c *Collaboration, collaborator *collaborators.Collaborator) email.Message {
	return email.Message{
		To:      collaborator.Email,
		Subject: "You have been invited to help with a scholarship application",
		HTML: fmt.Sprintf(
			"<p>Hi %s,</p><p>A student has asked for your help with a %s on their scholarship application.</p><p>Use this link to respond: https://scholarshipfinder.app/invites/%s</p>",
			collaborator.FirstName, describeType(c.Type), invite.Token),
	}
}

func describeType(t Type) string {
	switch t {
	case TypeRecommendation:
		return "recommendation letter"
	case TypeEssayReview:
		return "essay review"
	case TypeGuidance:
		return "guidance session"
	}
	return "collaboration"
}

// ScheduleInvitation records an invitation to be sent at a future time by
// the dispatcher. scheduledFor must parse and lie strictly in the future.
func (s *Service) ScheduleInvitation(ctx context.Context, id, userID int64, scheduledFor string) (*Invite, error) {
	if _, err := s.GetByID(ctx, id, userID); err != nil {
		return nil, err
	}

	at, err := time.Parse(time.RFC3339, scheduledFor)
	if err != nil {
		return nil, errors.Validation("scheduled_for must be an RFC 3339 timestamp")
	}
	if !at.After(s.now()) {
		return nil, errors.Validation("scheduled_for must be in the future")
	}

	invite, err := s.store.InsertInvite(ctx, &Invite{
		CollaborationID: id,
		Token:           uuid.NewString(),
		ScheduledFor:    &at,
		ExpiresAt:       at.Add(inviteTTL),
		DeliveryStatus:  DeliveryPending,
	})
	if err != nil {
		return nil, errors.Internal("failed to schedule invite", err)
	}

	s.appendHistoryBestEffort(ctx, id, "invitation_scheduled",
		fmt.Sprintf("invitation scheduled for %s", at.Format(time.RFC3339)))
	return invite, nil
}

// DispatchDueInvites sends every scheduled invite whose time has come.
// Called periodically by the cron dispatcher.
func (s *Service) DispatchDueInvites(ctx context.Context) error {
	due, err := s.store.ListDueScheduledInvites(ctx, s.now())
	if err != nil {
		return fmt.Errorf("list due invites: %w", err)
	}

	for i := range due {
		invite := &due[i]
		c, err := s.store.GetByIDAny(ctx, invite.CollaborationID)
		if err != nil {
			s.logger.WithError(err).WithField("invite_id", invite.ID).Warn("skipping invite with missing collaboration")
			continue
		}
		collaborator, err := s.collaborators.GetOwned(ctx, c.CollaboratorID, c.UserID)
		if err != nil {
			s.logger.WithError(err).WithField("invite_id", invite.ID).Warn("skipping invite with missing collaborator")
			continue
		}
		s.deliver(ctx, invite, c, collaborator)
		s.appendHistoryBestEffort(ctx, c.ID, "invitation_sent",
			fmt.Sprintf("scheduled invitation dispatched to %s", collaborator.Email))
	}
	return nil
}

func notFoundOr(err error, resource, internalMsg string) error {
	if stderrors.Is(err, client.ErrNotFound) || errors.IsNotFound(err) {
		return errors.NotFound(resource)
	}
	return errors.Internal(internalMsg, err)
}
