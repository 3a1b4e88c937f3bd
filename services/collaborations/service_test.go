package collaborations

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scholarship-finder/backend/internal/dates"
	"github.com/scholarship-finder/backend/internal/email"
	apperrors "github.com/scholarship-finder/backend/internal/errors"
	"github.com/scholarship-finder/backend/internal/logging"
	"github.com/scholarship-finder/backend/services/applications"
	"github.com/scholarship-finder/backend/services/collaborators"
	"github.com/scholarship-finder/backend/supabase/client"
)

// mockStore is an in-memory Store for service tests.
type mockStore struct {
	collabs      map[int64]*Collaboration
	history      []HistoryEntry
	invites      map[int64]*Invite
	nextID       int64
	insertErr    error
	historyErr   error
	detailPatch  map[string]interface{}
	basePatch    map[string]interface{}
	patchedTable Type
}

func newMockStore() *mockStore {
	return &mockStore{
		collabs: map[int64]*Collaboration{},
		invites: map[int64]*Invite{},
		nextID:  1,
	}
}

func (m *mockStore) Insert(_ context.Context, c *Collaboration) (int64, error) {
	if m.insertErr != nil {
		return 0, m.insertErr
	}
	for _, existing := range m.collabs {
		if existing.CollaboratorID == c.CollaboratorID &&
			existing.ApplicationID == c.ApplicationID &&
			existing.Type == c.Type {
			return 0, client.ErrConflict
		}
	}
	stored := *c
	stored.ID = m.nextID
	m.nextID++
	stored.CreatedAt = time.Now()
	m.collabs[stored.ID] = &stored
	return stored.ID, nil
}

func (m *mockStore) GetByID(_ context.Context, id, userID int64) (*Collaboration, error) {
	c, ok := m.collabs[id]
	if !ok || c.UserID != userID {
		return nil, client.ErrNotFound
	}
	copied := *c
	return &copied, nil
}

func (m *mockStore) GetByIDAny(_ context.Context, id int64) (*Collaboration, error) {
	c, ok := m.collabs[id]
	if !ok {
		return nil, client.ErrNotFound
	}
	copied := *c
	return &copied, nil
}

func (m *mockStore) ListByUser(_ context.Context, userID int64) ([]Collaboration, error) {
	var out []Collaboration
	for _, c := range m.collabs {
		if c.UserID == userID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (m *mockStore) ListByApplication(_ context.Context, applicationID, userID int64) ([]Collaboration, error) {
	var out []Collaboration
	for _, c := range m.collabs {
		if c.ApplicationID == applicationID && c.UserID == userID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (m *mockStore) UpdateBase(_ context.Context, id int64, updates map[string]interface{}) error {
	c, ok := m.collabs[id]
	if !ok {
		return client.ErrNotFound
	}
	m.basePatch = updates
	if v, ok := updates["status"]; ok {
		c.Status = v.(Status)
	}
	if v, ok := updates["notes"]; ok {
		notes := v.(string)
		c.Notes = &notes
	}
	if v, ok := updates["awaiting_action_from"]; ok {
		party := v.(Party)
		c.AwaitingActionFrom = &party
	}
	if v, ok := updates["next_action_due_date"]; ok {
		d, err := dates.Parse(v.(string))
		if err != nil {
			return err
		}
		c.NextActionDueDate = &d
	}
	return nil
}

func (m *mockStore) UpdateDetails(_ context.Context, t Type, collaborationID int64, updates map[string]interface{}) error {
	m.patchedTable = t
	m.detailPatch = updates
	c, ok := m.collabs[collaborationID]
	if !ok {
		return client.ErrNotFound
	}
	if t == TypeRecommendation {
		d, _ := c.Details.(RecommendationDetails)
		if v, ok := updates["portal_url"]; ok {
			s := v.(string)
			d.PortalURL = &s
		}
		if v, ok := updates["questionnaire_completed"]; ok {
			d.QuestionnaireCompleted = v.(bool)
		}
		c.Details = d
	}
	return nil
}

func (m *mockStore) InsertHistory(_ context.Context, h *HistoryEntry) (*HistoryEntry, error) {
	if m.historyErr != nil {
		return nil, m.historyErr
	}
	stored := *h
	stored.ID = int64(len(m.history) + 1)
	stored.CreatedAt = time.Now()
	m.history = append(m.history, stored)
	return &stored, nil
}

func (m *mockStore) ListHistory(_ context.Context, collaborationID int64) ([]HistoryEntry, error) {
	var out []HistoryEntry
	for _, h := range m.history {
		if h.CollaborationID == collaborationID {
			out = append(out, h)
		}
	}
	return out, nil
}

func (m *mockStore) InsertInvite(_ context.Context, inv *Invite) (*Invite, error) {
	stored := *inv
	stored.ID = int64(len(m.invites) + 1)
	stored.CreatedAt = time.Now()
	m.invites[stored.ID] = &stored
	copied := stored
	return &copied, nil
}

func (m *mockStore) UpdateInvite(_ context.Context, id int64, updates map[string]interface{}) (*Invite, error) {
	inv, ok := m.invites[id]
	if !ok {
		return nil, client.ErrNotFound
	}
	if v, ok := updates["delivery_status"]; ok {
		inv.DeliveryStatus = v.(DeliveryStatus)
	}
	if v, ok := updates["provider_email_id"]; ok {
		s := v.(string)
		inv.ProviderEmailID = &s
	}
	if v, ok := updates["sent_at"]; ok {
		t := v.(time.Time)
		inv.SentAt = &t
	}
	if v, ok := updates["opened_at"]; ok {
		t := v.(time.Time)
		inv.OpenedAt = &t
	}
	copied := *inv
	return &copied, nil
}

func (m *mockStore) GetInviteByProviderEmailID(_ context.Context, providerEmailID string) (*Invite, error) {
	for _, inv := range m.invites {
		if inv.ProviderEmailID != nil && *inv.ProviderEmailID == providerEmailID {
			copied := *inv
			return &copied, nil
		}
	}
	return nil, client.ErrNotFound
}

func (m *mockStore) ListDueScheduledInvites(_ context.Context, now time.Time) ([]Invite, error) {
	var out []Invite
	for _, inv := range m.invites {
		if inv.DeliveryStatus == DeliveryPending && inv.ScheduledFor != nil && !inv.ScheduledFor.After(now) {
			out = append(out, *inv)
		}
	}
	return out, nil
}

func (m *mockStore) DueWithin(_ context.Context, userID int64, from, to dates.Date) ([]Collaboration, error) {
	return nil, nil
}

func (m *mockStore) Overdue(_ context.Context, userID int64, before dates.Date) ([]Collaboration, error) {
	return nil, nil
}

func (m *mockStore) PendingResponse(_ context.Context, userID int64) ([]Collaboration, error) {
	return nil, nil
}

type mockCollaborators struct {
	owned map[int64]int64 // collaborator id -> owner user id
}

func (m *mockCollaborators) GetOwned(_ context.Context, id, userID int64) (*collaborators.Collaborator, error) {
	owner, ok := m.owned[id]
	if !ok || owner != userID {
		return nil, client.ErrNotFound
	}
	return &collaborators.Collaborator{
		ID:        id,
		UserID:    owner,
		FirstName: "Dana",
		LastName:  "Reyes",
		Email:     "dana@example.com",
	}, nil
}

type mockApplications struct {
	owned map[int64]int64 // application id -> owner user id
}

func (m *mockApplications) GetOwned(_ context.Context, id, userID int64) (*applications.Application, error) {
	owner, ok := m.owned[id]
	if !ok || owner != userID {
		return nil, client.ErrNotFound
	}
	return &applications.Application{ID: id, UserID: owner}, nil
}

type mockSender struct {
	sent    []email.Message
	sendErr error
}

func (m *mockSender) Send(_ context.Context, msg email.Message) (*email.SendResult, error) {
	if m.sendErr != nil {
		return nil, m.sendErr
	}
	m.sent = append(m.sent, msg)
	return &email.SendResult{ProviderID: "prov-1", Status: "sent"}, nil
}

func newTestService(store *mockStore) (*Service, *mockSender) {
	sender := &mockSender{}
	svc := NewService(
		store,
		&mockCollaborators{owned: map[int64]int64{10: 1, 11: 2}},
		&mockApplications{owned: map[int64]int64{20: 1, 21: 2}},
		sender,
		logging.New("test", "error", "json"),
	)
	return svc, sender
}

func recommendationInput() CreateInput {
	due := dates.New(2026, time.December, 1)
	return CreateInput{
		CollaboratorID:    10,
		ApplicationID:     20,
		Type:              TypeRecommendation,
		NextActionDueDate: &due,
	}
}

func TestCreate_Recommendation(t *testing.T) {
	svc, _ := newTestService(newMockStore())

	c, err := svc.Create(context.Background(), 1, recommendationInput())
	require.NoError(t, err)

	assert.Equal(t, TypeRecommendation, c.Type)
	assert.Equal(t, StatusPending, c.Status)
	require.IsType(t, RecommendationDetails{}, c.Details)
	assert.False(t, c.Details.(RecommendationDetails).QuestionnaireCompleted)
}

func TestCreate_ForeignCollaboratorIsNotFound(t *testing.T) {
	svc, _ := newTestService(newMockStore())

	input := recommendationInput()
	input.CollaboratorID = 11 // owned by user 2

	_, err := svc.Create(context.Background(), 1, input)
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestCreate_ForeignApplicationIsNotFound(t *testing.T) {
	svc, _ := newTestService(newMockStore())

	input := recommendationInput()
	input.ApplicationID = 21 // owned by user 2

	_, err := svc.Create(context.Background(), 1, input)
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestCreate_RecommendationRequiresDueDate(t *testing.T) {
	svc, _ := newTestService(newMockStore())

	input := recommendationInput()
	input.NextActionDueDate = nil

	_, err := svc.Create(context.Background(), 1, input)
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
}

func TestCreate_EssayReviewRejectsEssayID(t *testing.T) {
	svc, _ := newTestService(newMockStore())

	essayID := int64(5)
	_, err := svc.Create(context.Background(), 1, CreateInput{
		CollaboratorID: 10,
		ApplicationID:  20,
		Type:           TypeEssayReview,
		EssayID:        &essayID,
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
}

func TestCreate_EssayReviewDefaultsDraftVersion(t *testing.T) {
	svc, _ := newTestService(newMockStore())

	c, err := svc.Create(context.Background(), 1, CreateInput{
		CollaboratorID: 10,
		ApplicationID:  20,
		Type:           TypeEssayReview,
	})
	require.NoError(t, err)

	require.IsType(t, EssayReviewDetails{}, c.Details)
	assert.Equal(t, 1, c.Details.(EssayReviewDetails).CurrentDraftVersion)
}

func TestCreate_GuidanceDefaultsSessionType(t *testing.T) {
	svc, _ := newTestService(newMockStore())

	c, err := svc.Create(context.Background(), 1, CreateInput{
		CollaboratorID: 10,
		ApplicationID:  20,
		Type:           TypeGuidance,
	})
	require.NoError(t, err)

	require.IsType(t, GuidanceDetails{}, c.Details)
	assert.Equal(t, SessionInitial, c.Details.(GuidanceDetails).SessionType)
}

func TestCreate_DuplicateTripleConflicts(t *testing.T) {
	svc, _ := newTestService(newMockStore())

	_, err := svc.Create(context.Background(), 1, recommendationInput())
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), 1, recommendationInput())
	require.Error(t, err)
	assert.True(t, apperrors.IsConflict(err))
}

func TestCreate_InvalidTypeIsValidation(t *testing.T) {
	svc, _ := newTestService(newMockStore())

	_, err := svc.Create(context.Background(), 1, CreateInput{
		CollaboratorID: 10,
		ApplicationID:  20,
		Type:           "mentorship",
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
}

func TestGetByID_CrossUserIsNotFound(t *testing.T) {
	store := newMockStore()
	svc, _ := newTestService(store)

	created, err := svc.Create(context.Background(), 1, recommendationInput())
	require.NoError(t, err)

	_, err = svc.GetByID(context.Background(), created.ID, 2)
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestUpdate_TypeIsIgnored(t *testing.T) {
	store := newMockStore()
	svc, _ := newTestService(store)

	created, err := svc.Create(context.Background(), 1, recommendationInput())
	require.NoError(t, err)

	newType := TypeGuidance
	updated, err := svc.Update(context.Background(), created.ID, 1, UpdateInput{Type: &newType})
	require.NoError(t, err)

	assert.Equal(t, TypeRecommendation, updated.Type)
}

func TestUpdate_PartialLeavesOtherFields(t *testing.T) {
	store := newMockStore()
	svc, _ := newTestService(store)

	created, err := svc.Create(context.Background(), 1, recommendationInput())
	require.NoError(t, err)

	notes := "called the recommender"
	updated, err := svc.Update(context.Background(), created.ID, 1, UpdateInput{Notes: &notes})
	require.NoError(t, err)

	assert.Equal(t, notes, *updated.Notes)
	assert.Equal(t, created.Status, updated.Status)
	require.NotNil(t, updated.NextActionDueDate)
	assert.Equal(t, created.NextActionDueDate.String(), updated.NextActionDueDate.String())
}

func TestUpdate_StatusChangeAppendsHistory(t *testing.T) {
	store := newMockStore()
	svc, _ := newTestService(store)

	created, err := svc.Create(context.Background(), 1, recommendationInput())
	require.NoError(t, err)

	status := StatusInvited
	_, err = svc.Update(context.Background(), created.ID, 1, UpdateInput{Status: &status})
	require.NoError(t, err)

	require.Len(t, store.history, 1)
	assert.Equal(t, "status_changed", store.history[0].Action)
	assert.Contains(t, *store.history[0].Details, "pending")
	assert.Contains(t, *store.history[0].Details, "invited")
}

func TestUpdate_SameStatusSkipsHistory(t *testing.T) {
	store := newMockStore()
	svc, _ := newTestService(store)

	created, err := svc.Create(context.Background(), 1, recommendationInput())
	require.NoError(t, err)

	status := StatusPending
	_, err = svc.Update(context.Background(), created.ID, 1, UpdateInput{Status: &status})
	require.NoError(t, err)

	assert.Empty(t, store.history)
}

func TestUpdate_HistoryFailureDoesNotBlock(t *testing.T) {
	store := newMockStore()
	svc, _ := newTestService(store)

	created, err := svc.Create(context.Background(), 1, recommendationInput())
	require.NoError(t, err)

	store.historyErr = errors.New("history table unavailable")

	status := StatusInvited
	updated, err := svc.Update(context.Background(), created.ID, 1, UpdateInput{Status: &status})
	require.NoError(t, err)
	assert.Equal(t, StatusInvited, updated.Status)
}

func TestUpdate_DetailFieldsStayWithVariant(t *testing.T) {
	store := newMockStore()
	svc, _ := newTestService(store)

	created, err := svc.Create(context.Background(), 1, CreateInput{
		CollaboratorID: 10,
		ApplicationID:  20,
		Type:           TypeEssayReview,
	})
	require.NoError(t, err)

	// A portal URL belongs to recommendations only; updating an essay
	// review with one must not touch any detail table.
	portal := "https://recs.example.com"
	_, err = svc.Update(context.Background(), created.ID, 1, UpdateInput{PortalURL: &portal})
	require.NoError(t, err)

	assert.Nil(t, store.detailPatch)
}

func TestAddHistory_RequiresAction(t *testing.T) {
	store := newMockStore()
	svc, _ := newTestService(store)

	created, err := svc.Create(context.Background(), 1, recommendationInput())
	require.NoError(t, err)

	_, err = svc.AddHistory(context.Background(), created.ID, 1, "", nil)
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
}

func TestHistory_CrossUserIsNotFound(t *testing.T) {
	store := newMockStore()
	svc, _ := newTestService(store)

	created, err := svc.Create(context.Background(), 1, recommendationInput())
	require.NoError(t, err)

	_, err = svc.History(context.Background(), created.ID, 2)
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestSendInvitation_Success(t *testing.T) {
	store := newMockStore()
	svc, sender := newTestService(store)
	svc.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }

	created, err := svc.Create(context.Background(), 1, recommendationInput())
	require.NoError(t, err)

	invite, err := svc.SendInvitation(context.Background(), created.ID, 1)
	require.NoError(t, err)

	assert.Equal(t, DeliverySent, invite.DeliveryStatus)
	assert.NotEmpty(t, invite.Token)
	assert.Equal(t, "prov-1", *invite.ProviderEmailID)
	assert.Equal(t, svc.now().Add(inviteTTL), invite.ExpiresAt)

	require.Len(t, sender.sent, 1)
	assert.Equal(t, "dana@example.com", sender.sent[0].To)
	assert.Contains(t, sender.sent[0].HTML, invite.Token)
}

func TestSendInvitation_FailedSendStillReturnsInvite(t *testing.T) {
	store := newMockStore()
	svc, sender := newTestService(store)
	sender.sendErr = errors.New("provider down")

	created, err := svc.Create(context.Background(), 1, recommendationInput())
	require.NoError(t, err)

	invite, err := svc.SendInvitation(context.Background(), created.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, DeliveryFailed, invite.DeliveryStatus)
}

func TestResendInvitation_KeepsPriorAttempt(t *testing.T) {
	store := newMockStore()
	svc, _ := newTestService(store)

	created, err := svc.Create(context.Background(), 1, recommendationInput())
	require.NoError(t, err)

	first, err := svc.SendInvitation(context.Background(), created.ID, 1)
	require.NoError(t, err)
	second, err := svc.ResendInvitation(context.Background(), created.ID, 1)
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
	assert.NotEqual(t, first.Token, second.Token)
	assert.Len(t, store.invites, 2)
}

func TestScheduleInvitation_PastTimeIsValidation(t *testing.T) {
	store := newMockStore()
	svc, _ := newTestService(store)
	svc.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }

	created, err := svc.Create(context.Background(), 1, recommendationInput())
	require.NoError(t, err)

	_, err = svc.ScheduleInvitation(context.Background(), created.ID, 1, "2026-03-01T11:00:00Z")
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
}

func TestScheduleInvitation_UnparseableIsValidation(t *testing.T) {
	store := newMockStore()
	svc, _ := newTestService(store)

	created, err := svc.Create(context.Background(), 1, recommendationInput())
	require.NoError(t, err)

	_, err = svc.ScheduleInvitation(context.Background(), created.ID, 1, "next tuesday")
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
}

func TestScheduleInvitation_FutureCreatesPendingInvite(t *testing.T) {
	store := newMockStore()
	svc, _ := newTestService(store)
	svc.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }

	created, err := svc.Create(context.Background(), 1, recommendationInput())
	require.NoError(t, err)

	invite, err := svc.ScheduleInvitation(context.Background(), created.ID, 1, "2026-03-02T09:00:00Z")
	require.NoError(t, err)

	assert.Equal(t, DeliveryPending, invite.DeliveryStatus)
	require.NotNil(t, invite.ScheduledFor)
	assert.Nil(t, invite.SentAt)
}

func TestDispatchDueInvites_SendsOnlyDue(t *testing.T) {
	store := newMockStore()
	svc, sender := newTestService(store)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return base }

	created, err := svc.Create(context.Background(), 1, recommendationInput())
	require.NoError(t, err)

	_, err = svc.ScheduleInvitation(context.Background(), created.ID, 1, "2026-03-01T13:00:00Z")
	require.NoError(t, err)
	_, err = svc.ScheduleInvitation(context.Background(), created.ID, 1, "2026-03-05T13:00:00Z")
	require.NoError(t, err)

	svc.now = func() time.Time { return base.Add(2 * time.Hour) }
	require.NoError(t, svc.DispatchDueInvites(context.Background()))

	assert.Len(t, sender.sent, 1)
}

func TestHandleEmailEvent_UpdatesDeliveryStatus(t *testing.T) {
	store := newMockStore()
	svc, _ := newTestService(store)

	created, err := svc.Create(context.Background(), 1, recommendationInput())
	require.NoError(t, err)
	invite, err := svc.SendInvitation(context.Background(), created.ID, 1)
	require.NoError(t, err)

	err = svc.HandleEmailEvent(context.Background(), "email.delivered", *invite.ProviderEmailID, time.Now())
	require.NoError(t, err)
	assert.Equal(t, DeliveryDelivered, store.invites[invite.ID].DeliveryStatus)

	err = svc.HandleEmailEvent(context.Background(), "email.opened", *invite.ProviderEmailID, time.Now())
	require.NoError(t, err)
	assert.NotNil(t, store.invites[invite.ID].OpenedAt)
}

func TestHandleEmailEvent_UnknownProviderIDIsIgnored(t *testing.T) {
	store := newMockStore()
	svc, _ := newTestService(store)

	err := svc.HandleEmailEvent(context.Background(), "email.delivered", "no-such-id", time.Now())
	assert.NoError(t, err)
}

func TestHandleEmailEvent_UnknownEventTypeIsIgnored(t *testing.T) {
	store := newMockStore()
	svc, _ := newTestService(store)

	created, err := svc.Create(context.Background(), 1, recommendationInput())
	require.NoError(t, err)
	invite, err := svc.SendInvitation(context.Background(), created.ID, 1)
	require.NoError(t, err)

	err = svc.HandleEmailEvent(context.Background(), "email.unsubscribed", *invite.ProviderEmailID, time.Now())
	assert.NoError(t, err)
	assert.Equal(t, DeliverySent, store.invites[invite.ID].DeliveryStatus)
}
