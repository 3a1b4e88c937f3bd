// Package collaborations implements the collaboration workflow: the unit
// of help-work (recommendation, essay review, guidance) linking a
// collaborator to an application, with per-type detail records, an
// append-only history trail, and invitation tracking.
package collaborations

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/scholarship-finder/backend/internal/dates"
)

// Type discriminates the three collaboration variants. It is immutable
// after creation.
type Type string

const (
	TypeRecommendation Type = "recommendation"
	TypeEssayReview    Type = "essay_review"
	TypeGuidance       Type = "guidance"
)

// Valid reports whether t is a known collaboration type.
func (t Type) Valid() bool {
	switch t {
	case TypeRecommendation, TypeEssayReview, TypeGuidance:
		return true
	}
	return false
}

// Status is the collaboration lifecycle state. The vocabulary is fixed
// but transitions are deliberately unconstrained: any status may be set
// to any other. Enforcing a transition graph would change observable
// behavior and is left to a future revision.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInvited    Status = "invited"
	StatusInProgress Status = "in_progress"
	StatusSubmitted  Status = "submitted"
	StatusCompleted  Status = "completed"
	StatusDeclined   Status = "declined"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusInvited, StatusInProgress, StatusSubmitted, StatusCompleted, StatusDeclined:
		return true
	}
	return false
}

// Terminal reports whether the collaboration needs no further action.
// Terminal collaborations are excluded from reminder buckets.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusDeclined
}

// Party identifies whose turn it is to act. Advisory UI state only; it
// gates no operation.
type Party string

const (
	PartyStudent      Party = "student"
	PartyCollaborator Party = "collaborator"
)

// Valid reports whether p is a known party.
func (p Party) Valid() bool {
	return p == PartyStudent || p == PartyCollaborator
}

// SessionType classifies a guidance session.
type SessionType string

const (
	SessionInitial  SessionType = "initial"
	SessionFollowup SessionType = "followup"
	SessionFinal    SessionType = "final"
)

// Valid reports whether st is a known session type.
func (st SessionType) Valid() bool {
	switch st {
	case SessionInitial, SessionFollowup, SessionFinal:
		return true
	}
	return false
}

// Details is the type-specific extension of a collaboration. Exactly one
// variant exists per collaboration, discriminated by Type.
type Details interface {
	CollaborationType() Type
}

// RecommendationDetails extends a recommendation collaboration.
type RecommendationDetails struct {
	PortalURL              *string    `json:"portal_url,omitempty"`
	QuestionnaireCompleted bool       `json:"questionnaire_completed"`
	LetterSubmittedAt      *time.Time `json:"letter_submitted_at,omitempty"`
}

// CollaborationType implements Details.
func (RecommendationDetails) CollaborationType() Type { return TypeRecommendation }

// EssayReviewDetails extends an essay-review collaboration. Essay linkage
// was removed: a review covers the application's essays generically.
type EssayReviewDetails struct {
	CurrentDraftVersion int        `json:"current_draft_version"`
	FeedbackRounds      int        `json:"feedback_rounds"`
	LastFeedbackAt      *time.Time `json:"last_feedback_at,omitempty"`
}

// CollaborationType implements Details.
func (EssayReviewDetails) CollaborationType() Type { return TypeEssayReview }

// GuidanceDetails extends a guidance collaboration.
type GuidanceDetails struct {
	SessionType  SessionType `json:"session_type"`
	MeetingURL   *string     `json:"meeting_url,omitempty"`
	ScheduledFor *time.Time  `json:"scheduled_for,omitempty"`
}

// CollaborationType implements Details.
func (GuidanceDetails) CollaborationType() Type { return TypeGuidance }

// Collaboration is the base entity plus its type-specific details.
type Collaboration struct {
	ID                    int64       `json:"id"`
	UserID                int64       `json:"user_id"`
	CollaboratorID        int64       `json:"collaborator_id"`
	ApplicationID         int64       `json:"application_id"`
	Type                  Type        `json:"collaboration_type"`
	Status                Status      `json:"status"`
	AwaitingActionFrom    *Party      `json:"awaiting_action_from,omitempty"`
	AwaitingActionType    *string     `json:"awaiting_action_type,omitempty"`
	NextActionDescription *string     `json:"next_action_description,omitempty"`
	NextActionDueDate     *dates.Date `json:"next_action_due_date,omitempty"`
	Notes                 *string     `json:"notes,omitempty"`
	CreatedAt             time.Time   `json:"created_at"`
	UpdatedAt             time.Time   `json:"updated_at"`
	Details               Details     `json:"-"`
}

// MarshalJSON flattens the type-specific details into the base object, so
// a caller sees one merged entity.
func (c Collaboration) MarshalJSON() ([]byte, error) {
	type base Collaboration
	baseJSON, err := json.Marshal(base(c))
	if err != nil {
		return nil, err
	}
	if c.Details == nil {
		return baseJSON, nil
	}

	detailJSON, err := json.Marshal(c.Details)
	if err != nil {
		return nil, err
	}

	var merged map[string]json.RawMessage
	if err := json.Unmarshal(baseJSON, &merged); err != nil {
		return nil, err
	}
	var detailFields map[string]json.RawMessage
	if err := json.Unmarshal(detailJSON, &detailFields); err != nil {
		return nil, err
	}
	for k, v := range detailFields {
		merged[k] = v
	}
	return json.Marshal(merged)
}

// HistoryEntry is one immutable audit-trail row.
type HistoryEntry struct {
	ID              int64     `json:"id"`
	CollaborationID int64     `json:"collaboration_id"`
	Action          string    `json:"action"`
	Details         *string   `json:"details,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// DeliveryStatus tracks an invitation email through its lifecycle.
type DeliveryStatus string

const (
	DeliveryPending   DeliveryStatus = "pending"
	DeliverySent      DeliveryStatus = "sent"
	DeliveryDelivered DeliveryStatus = "delivered"
	DeliveryBounced   DeliveryStatus = "bounced"
	DeliveryFailed    DeliveryStatus = "failed"
)

// Invite is one invitation attempt. Prior attempts are never invalidated;
// the full history of attempts is preserved.
type Invite struct {
	ID              int64          `json:"id"`
	CollaborationID int64          `json:"collaboration_id"`
	Token           string         `json:"token"`
	SentAt          *time.Time     `json:"sent_at,omitempty"`
	ScheduledFor    *time.Time     `json:"scheduled_for,omitempty"`
	ExpiresAt       time.Time      `json:"expires_at"`
	DeliveryStatus  DeliveryStatus `json:"delivery_status"`
	OpenedAt        *time.Time     `json:"opened_at,omitempty"`
	ClickedAt       *time.Time     `json:"clicked_at,omitempty"`
	ProviderEmailID *string        `json:"provider_email_id,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
}

// CreateInput holds the fields accepted when creating a collaboration.
type CreateInput struct {
	CollaboratorID int64  `json:"collaborator_id"`
	ApplicationID  int64  `json:"application_id"`
	Type           Type   `json:"collaboration_type"`
	Status         Status `json:"status"`

	AwaitingActionFrom    *Party      `json:"awaiting_action_from"`
	AwaitingActionType    *string     `json:"awaiting_action_type"`
	NextActionDescription *string     `json:"next_action_description"`
	NextActionDueDate     *dates.Date `json:"next_action_due_date"`
	Notes                 *string     `json:"notes"`

	// Recommendation fields.
	PortalURL              *string `json:"portal_url"`
	QuestionnaireCompleted *bool   `json:"questionnaire_completed"`

	// Essay review fields. EssayID is rejected: reviews no longer bind
	// to a single essay.
	EssayID             *int64 `json:"essay_id"`
	CurrentDraftVersion *int   `json:"current_draft_version"`

	// Guidance fields.
	SessionType  *SessionType `json:"session_type"`
	MeetingURL   *string      `json:"meeting_url"`
	ScheduledFor *time.Time   `json:"scheduled_for"`
}

// UpdateInput holds partial-update fields; nil fields are untouched.
// Type is accepted on the wire but ignored: collaboration_type never
// changes after creation.
type UpdateInput struct {
	Type *Type `json:"collaboration_type"`

	Status                *Status     `json:"status"`
	AwaitingActionFrom    *Party      `json:"awaiting_action_from"`
	AwaitingActionType    *string     `json:"awaiting_action_type"`
	NextActionDescription *string     `json:"next_action_description"`
	NextActionDueDate     *dates.Date `json:"next_action_due_date"`
	Notes                 *string     `json:"notes"`

	// Recommendation fields.
	PortalURL              *string    `json:"portal_url"`
	QuestionnaireCompleted *bool      `json:"questionnaire_completed"`
	LetterSubmittedAt      *time.Time `json:"letter_submitted_at"`

	// Essay review fields.
	CurrentDraftVersion *int       `json:"current_draft_version"`
	FeedbackRounds      *int       `json:"feedback_rounds"`
	LastFeedbackAt      *time.Time `json:"last_feedback_at"`

	// Guidance fields.
	SessionType  *SessionType `json:"session_type"`
	MeetingURL   *string      `json:"meeting_url"`
	ScheduledFor *time.Time   `json:"scheduled_for"`
}

// detailTables maps each type to its extension table.
var detailTables = map[Type]string{
	TypeRecommendation: "recommendation_collaborations",
	TypeEssayReview:    "essay_review_collaborations",
	TypeGuidance:       "guidance_collaborations",
}

// DetailTable returns the extension table for t.
func DetailTable(t Type) (string, error) {
	table, ok := detailTables[t]
	if !ok {
		return "", fmt.Errorf("unknown collaboration type %q", t)
	}
	return table, nil
}
