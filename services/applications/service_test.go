package applications

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

type mockStore struct {
	rows   map[int64]*Application
	nextID int64
}

func newMockStore() *mockStore {
	return &mockStore{rows: map[int64]*Application{}, nextID: 1}
}

func (m *mockStore) Insert(_ context.Context, a *Application) (*Application, error) {
	stored := *a
	stored.ID = m.nextID
	m.nextID++
	stored.CreatedAt = time.Now()
	m.rows[stored.ID] = &stored
	copied := stored
	return &copied, nil
}

func (m *mockStore) GetOwned(_ context.Context, id, userID int64) (*Application, error) {
	a, ok := m.rows[id]
	if !ok || a.UserID != userID {
		return nil, client.ErrNotFound
	}
	copied := *a
	return &copied, nil
}

func (m *mockStore) ListByUser(_ context.Context, userID int64) ([]Application, error) {
	var out []Application
	for _, a := range m.rows {
		if a.UserID == userID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (m *mockStore) Update(_ context.Context, id, userID int64, updates map[string]interface{}) (*Application, error) {
	a, ok := m.rows[id]
	if !ok || a.UserID != userID {
		return nil, client.ErrNotFound
	}
	if v, ok := updates["status"]; ok {
		a.Status = v.(Status)
	}
	if v, ok := updates["name"]; ok {
		a.Name = v.(string)
	}
	copied := *a
	return &copied, nil
}

func (m *mockStore) Delete(_ context.Context, id, userID int64) error {
	a, ok := m.rows[id]
	if !ok || a.UserID != userID {
		return client.ErrNotFound
	}
	delete(m.rows, id)
	return nil
}

func (m *mockStore) DueWithin(_ context.Context, userID int64, from, to dates.Date) ([]Application, error) {
	return nil, nil
}

func (m *mockStore) Overdue(_ context.Context, userID int64, before dates.Date) ([]Application, error) {
	return nil, nil
}

func newTestService() (*Service, *mockStore) {
	store := newMockStore()
	return NewService(store, logging.New("test", "error", "json")), store
}

func validInput() CreateInput {
	due := dates.New(2026, time.May, 1)
	return CreateInput{Name: "Merit Scholarship", DueDate: &due}
}

func TestCreate_DefaultsToNotStarted(t *testing.T) {
	svc, _ := newTestService()

	a, err := svc.Create(context.Background(), 1, validInput())
	require.NoError(t, err)
	assert.Equal(t, StatusNotStarted, a.Status)
}

func TestCreate_RequiresDueDate(t *testing.T) {
	svc, _ := newTestService()

	input := validInput()
	input.DueDate = nil

	_, err := svc.Create(context.Background(), 1, input)
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
}

func TestCreate_RejectsUnknownStatus(t *testing.T) {
	svc, _ := newTestService()

	input := validInput()
	bad := Status("Pending Review")
	input.Status = &bad

	_, err := svc.Create(context.Background(), 1, input)
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
}

func TestUpdate_StatusTransition(t *testing.T) {
	svc, _ := newTestService()

	a, err := svc.Create(context.Background(), 1, validInput())
	require.NoError(t, err)

	status := StatusSubmitted
	updated, err := svc.Update(context.Background(), a.ID, 1, UpdateInput{Status: &status})
	require.NoError(t, err)
	assert.Equal(t, StatusSubmitted, updated.Status)
	assert.True(t, updated.Status.Terminal())
}

func TestUpdate_InvalidStatus(t *testing.T) {
	svc, _ := newTestService()

	a, err := svc.Create(context.Background(), 1, validInput())
	require.NoError(t, err)

	bad := Status("Done")
	_, err = svc.Update(context.Background(), a.ID, 1, UpdateInput{Status: &bad})
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
}

func TestGetByID_CrossUserIsNotFound(t *testing.T) {
	svc, _ := newTestService()

	a, err := svc.Create(context.Background(), 1, validInput())
	require.NoError(t, err)

	_, err = svc.GetByID(context.Background(), a.ID, 2)
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestTerminalStatuses(t *testing.T) {
	assert.True(t, StatusSubmitted.Terminal())
	assert.True(t, StatusAwarded.Terminal())
	assert.True(t, StatusNotAwarded.Terminal())
	assert.False(t, StatusNotStarted.Terminal())
	assert.False(t, StatusInProgress.Terminal())
}
