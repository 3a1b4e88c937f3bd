package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for the two PostgREST failure classes callers branch on.
// Match with errors.Is.
var (
	ErrNotFound = errors.New("supabase: row not found")
	ErrConflict = errors.New("supabase: conflict")
)

// APIError is a PostgREST error response.
type APIError struct {
	StatusCode int    `json:"-"`
	Code       string `json:"code"`
	Message    string `json:"message"`
	Details    string `json:"details"`
	Hint       string `json:"hint"`
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("supabase API error %d (%s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("supabase API error %d: %s", e.StatusCode, e.Message)
}

// Is maps PostgREST codes onto the sentinel errors.
// PGRST116 is "JSON object requested, multiple (or no) rows returned";
// 23505 is the Postgres unique-violation SQLSTATE.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.StatusCode == http.StatusNotAcceptable || e.Code == "PGRST116"
	case ErrConflict:
		return e.StatusCode == http.StatusConflict || e.Code == "23505"
	}
	return false
}

func parseAPIError(statusCode int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: statusCode}
	if err := json.Unmarshal(body, apiErr); err != nil {
		apiErr.Message = string(body)
	}
	return apiErr
}
