// Package httputil provides response and request helpers shared by all
// HTTP handlers.
package httputil

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/scholarship-finder/backend/internal/errors"
	"github.com/scholarship-finder/backend/internal/logging"
)

const maxRequestBodyBytes = 1 << 20 // 1 MiB

// WriteJSON writes v as a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// WriteErrorResponse writes a structured error body.
func WriteErrorResponse(w http.ResponseWriter, r *http.Request, status int, code, message string, details map[string]interface{}) {
	body := map[string]interface{}{
		"error": map[string]interface{}{
			"code":    code,
			"message": message,
		},
	}
	if details != nil {
		body["error"].(map[string]interface{})["details"] = details
	}
	if traceID := logging.GetTraceID(r.Context()); traceID != "" {
		body["trace_id"] = traceID
	}
	WriteJSON(w, status, body)
}

// WriteError maps a service error (or any error) onto the response.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	svcErr := errors.GetServiceError(err)
	if svcErr == nil {
		svcErr = errors.Internal("Internal server error", err)
	}
	WriteErrorResponse(w, r, svcErr.HTTPStatus, string(svcErr.Code), svcErr.Message, svcErr.Details)
}

// BadRequest writes a 400 response.
func BadRequest(w http.ResponseWriter, message string) {
	writeSimpleError(w, http.StatusBadRequest, string(errors.CodeValidation), message)
}

// NotFound writes a 404 response.
func NotFound(w http.ResponseWriter, message string) {
	if message == "" {
		message = "Not found"
	}
	writeSimpleError(w, http.StatusNotFound, string(errors.CodeNotFound), message)
}

// Conflict writes a 409 response.
func Conflict(w http.ResponseWriter, message string) {
	writeSimpleError(w, http.StatusConflict, string(errors.CodeConflict), message)
}

// Unauthorized writes a 401 response.
func Unauthorized(w http.ResponseWriter, message string) {
	if message == "" {
		message = "Unauthorized"
	}
	writeSimpleError(w, http.StatusUnauthorized, string(errors.CodeUnauthorized), message)
}

// InternalError writes a 500 response.
func InternalError(w http.ResponseWriter, message string) {
	writeSimpleError(w, http.StatusInternalServerError, string(errors.CodeInternal), message)
}

func writeSimpleError(w http.ResponseWriter, status int, code, message string) {
	WriteJSON(w, status, map[string]interface{}{
		"error": map[string]interface{}{
			"code":    code,
			"message": message,
		},
	})
}

// DecodeJSON decodes the request body into v. On failure it writes a 400
// response and returns false.
func DecodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	body := http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	dec := json.NewDecoder(body)
	if err := dec.Decode(v); err != nil {
		BadRequest(w, "invalid JSON body")
		return false
	}
	return true
}

// RequireUserID extracts the authenticated user id from the request
// context. On failure it writes a 401 response and returns ok=false.
func RequireUserID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := logging.GetUserID(r.Context())
	if raw == "" {
		Unauthorized(w, "")
		return 0, false
	}
	userID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || userID <= 0 {
		Unauthorized(w, "")
		return 0, false
	}
	return userID, true
}

// PathID parses the named mux route variable as a positive integer id.
func PathID(vars map[string]string, name string) (int64, error) {
	raw, ok := vars[name]
	if !ok {
		return 0, fmt.Errorf("missing path parameter %q", name)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid path parameter %q", name)
	}
	return id, nil
}

// ReadAllWithLimit reads at most limit bytes from r, reporting whether
// the input was truncated.
func ReadAllWithLimit(r io.Reader, limit int64) ([]byte, bool, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, false, err
	}
	if int64(len(data)) > limit {
		return data[:limit], true, nil
	}
	return data, false, nil
}
