package collaborators

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/scholarship-finder/backend/internal/errors"
	"github.com/scholarship-finder/backend/internal/logging"
	"github.com/scholarship-finder/backend/supabase/client"
)

type mockStore struct {
	rows   map[int64]*Collaborator
	nextID int64
}

func newMockStore() *mockStore {
	return &mockStore{rows: map[int64]*Collaborator{}, nextID: 1}
}

func (m *mockStore) Insert(_ context.Context, c *Collaborator) (*Collaborator, error) {
	stored := *c
	stored.ID = m.nextID
	m.nextID++
	stored.CreatedAt = time.Now()
	m.rows[stored.ID] = &stored
	copied := stored
	return &copied, nil
}

func (m *mockStore) GetOwned(_ context.Context, id, userID int64) (*Collaborator, error) {
	c, ok := m.rows[id]
	if !ok || c.UserID != userID {
		return nil, client.ErrNotFound
	}
	copied := *c
	return &copied, nil
}

func (m *mockStore) ListByUser(_ context.Context, userID int64) ([]Collaborator, error) {
	var out []Collaborator
	for _, c := range m.rows {
		if c.UserID == userID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (m *mockStore) Update(_ context.Context, id, userID int64, updates map[string]interface{}) (*Collaborator, error) {
	c, ok := m.rows[id]
	if !ok || c.UserID != userID {
		return nil, client.ErrNotFound
	}
	if v, ok := updates["email"]; ok {
		c.Email = v.(string)
	}
	if v, ok := updates["first_name"]; ok {
		c.FirstName = v.(string)
	}
	copied := *c
	return &copied, nil
}

func (m *mockStore) Delete(_ context.Context, id, userID int64) error {
	c, ok := m.rows[id]
	if !ok || c.UserID != userID {
		return client.ErrNotFound
	}
	delete(m.rows, id)
	return nil
}

func newTestService() (*Service, *mockStore) {
	store := newMockStore()
	return NewService(store, logging.New("test", "error", "json")), store
}

func validInput() CreateInput {
	return CreateInput{FirstName: "Dana", LastName: "Reyes", Email: "dana@example.com"}
}

func TestCreate_Valid(t *testing.T) {
	svc, _ := newTestService()

	c, err := svc.Create(context.Background(), 1, validInput())
	require.NoError(t, err)
	assert.Equal(t, int64(1), c.UserID)
	assert.NotZero(t, c.ID)
}

func TestCreate_MissingEmail(t *testing.T) {
	svc, _ := newTestService()

	input := validInput()
	input.Email = "not-an-email"

	_, err := svc.Create(context.Background(), 1, input)
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
}

func TestCreate_BlankNameIsValidation(t *testing.T) {
	svc, _ := newTestService()

	input := validInput()
	input.FirstName = "   "

	_, err := svc.Create(context.Background(), 1, input)
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
}

func TestGetByID_CrossUserIsNotFound(t *testing.T) {
	svc, _ := newTestService()

	c, err := svc.Create(context.Background(), 1, validInput())
	require.NoError(t, err)

	_, err = svc.GetByID(context.Background(), c.ID, 2)
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestList_OnlyOwn(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.Create(context.Background(), 1, validInput())
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), 2, validInput())
	require.NoError(t, err)

	out, err := svc.List(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, int64(1), out[0].UserID)
}

func TestUpdate_EmptyInputReturnsCurrent(t *testing.T) {
	svc, _ := newTestService()

	c, err := svc.Create(context.Background(), 1, validInput())
	require.NoError(t, err)

	same, err := svc.Update(context.Background(), c.ID, 1, UpdateInput{})
	require.NoError(t, err)
	assert.Equal(t, c.Email, same.Email)
}

func TestDelete_ThenGetIsNotFound(t *testing.T) {
	svc, _ := newTestService()

	c, err := svc.Create(context.Background(), 1, validInput())
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), c.ID, 1))

	_, err = svc.GetByID(context.Background(), c.ID, 1)
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}
