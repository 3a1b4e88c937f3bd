package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCaptureServer(t *testing.T, status int, body string) (*Client, *http.Request) {
	t.Helper()
	captured := &http.Request{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*captured = *r.Clone(r.Context())
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	c, err := New(Config{URL: srv.URL, APIKey: "test-key"})
	require.NoError(t, err)
	return c, captured
}

func TestExecute_BuildsFilterQueryString(t *testing.T) {
	c, captured := newCaptureServer(t, http.StatusOK, "[]")

	_, err := c.From("collaborations").
		Eq("user_id", 7).
		Gte("next_action_due_date", "2026-03-01").
		NotIn("status", []any{"completed", "declined"}).
		Order("next_action_due_date", true).
		Limit(20).
		Execute(context.Background())
	require.NoError(t, err)

	q := captured.URL.Query()
	assert.Equal(t, "eq.7", q.Get("user_id"))
	assert.Equal(t, "gte.2026-03-01", q.Get("next_action_due_date"))
	assert.Equal(t, "not.in.(completed,declined)", q.Get("status"))
	assert.Equal(t, "next_action_due_date.asc", q.Get("order"))
	assert.Equal(t, "20", q.Get("limit"))
	assert.Equal(t, "/rest/v1/collaborations", captured.URL.Path)
}

func TestExecute_NotOperator(t *testing.T) {
	c, captured := newCaptureServer(t, http.StatusOK, "[]")

	_, err := c.From("collaboration_invites").
		Not("scheduled_for", "is", "null").
		Execute(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "not.is.null", captured.URL.Query().Get("scheduled_for"))
}

func TestExecute_OrFilter(t *testing.T) {
	c, captured := newCaptureServer(t, http.StatusOK, "[]")

	_, err := c.From("scholarships").
		Or("title.ilike.*stem*", "description.ilike.*stem*").
		Execute(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "(title.ilike.*stem*,description.ilike.*stem*)", captured.URL.Query().Get("or"))
}

func TestExecute_SingleSetsObjectAccept(t *testing.T) {
	c, captured := newCaptureServer(t, http.StatusOK, "{}")

	_, err := c.From("users").Eq("id", 1).Single().Execute(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "application/vnd.pgrst.object+json", captured.Header.Get("Accept"))
}

func TestExecute_SendsAuthHeaders(t *testing.T) {
	c, captured := newCaptureServer(t, http.StatusOK, "[]")

	_, err := c.From("users").Execute(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "test-key", captured.Header.Get("apikey"))
	assert.Equal(t, "Bearer test-key", captured.Header.Get("Authorization"))
}

func TestExecuteInsert_UpsertSetsResolution(t *testing.T) {
	c, captured := newCaptureServer(t, http.StatusCreated, "{}")

	_, err := c.From("search_preferences").
		Upsert("user_id").
		Single().
		ExecuteInsert(context.Background(), map[string]interface{}{"user_id": 1})
	require.NoError(t, err)

	assert.Equal(t, "user_id", captured.URL.Query().Get("on_conflict"))
	assert.Contains(t, captured.Header.Get("Prefer"), "resolution=merge-duplicates")
}

func TestDo_NotAcceptableMapsToNotFound(t *testing.T) {
	c, _ := newCaptureServer(t, http.StatusNotAcceptable,
		`{"code":"PGRST116","message":"JSON object requested, multiple (or no) rows returned"}`)

	_, err := c.From("users").Eq("id", 99).Single().Execute(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestDo_ConflictMapsToConflict(t *testing.T) {
	c, _ := newCaptureServer(t, http.StatusConflict,
		`{"code":"23505","message":"duplicate key value violates unique constraint"}`)

	_, err := c.From("collaborations").ExecuteInsert(context.Background(), map[string]interface{}{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConflict))
}

func TestDo_DecodesRows(t *testing.T) {
	c, _ := newCaptureServer(t, http.StatusOK, `[{"id": 1}, {"id": 2}]`)

	resp, err := c.From("users").Execute(context.Background())
	require.NoError(t, err)

	var rows []struct {
		ID int64 `json:"id"`
	}
	require.NoError(t, resp.Decode(&rows))
	require.Len(t, rows, 2)
	assert.Equal(t, int64(2), rows[1].ID)
}

func TestRetry_RecoversFromServerError(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte("[]"))
	}))
	t.Cleanup(srv.Close)

	c, err := New(Config{URL: srv.URL, APIKey: "test-key", Retry: DefaultRetryConfig()})
	require.NoError(t, err)

	_, err = c.From("users").Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
}

func TestRetry_DoesNotRetryClientError(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code":"PGRST102","message":"bad request"}`))
	}))
	t.Cleanup(srv.Close)

	c, err := New(Config{URL: srv.URL, APIKey: "test-key", Retry: DefaultRetryConfig()})
	require.NoError(t, err)

	_, err = c.From("users").Execute(context.Background())
	require.Error(t, err)
	assert.Equal(t, 1, attempts)
}

func TestParseContentRangeCount(t *testing.T) {
	assert.Equal(t, int64(3573), parseContentRangeCount("0-24/3573"))
	assert.Equal(t, int64(-1), parseContentRangeCount("0-24/*"))
	assert.Equal(t, int64(-1), parseContentRangeCount(""))
}
