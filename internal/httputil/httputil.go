// Package httputil provides JSON request/response helpers shared by handlers.
package httputil

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/careconnect/backend/internal/errors"
	"github.com/careconnect/backend/internal/logging"
)

// WriteJSON writes data as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// WriteMessage writes a `{"message": ...}` envelope.
func WriteMessage(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, map[string]string{"message": message})
}

// WriteError reduces err to its ServiceError form, or to a generic 500 when
// it is not one. Internal causes are never serialized.
func WriteError(w http.ResponseWriter, err error) {
	svcErr := errors.GetServiceError(err)
	if svcErr == nil {
		svcErr = errors.Internal("Server error", err)
	}
	WriteJSON(w, svcErr.HTTPStatus, map[string]interface{}{"error": svcErr})
}

// BadRequest writes a validation error response.
func BadRequest(w http.ResponseWriter, message string) {
	WriteError(w, errors.Validation(message))
}

// Unauthorized writes a 401 response.
func Unauthorized(w http.ResponseWriter, message string) {
	if message == "" {
		message = "Unauthorized"
	}
	WriteError(w, errors.Unauthorized(message))
}

// InternalError writes a generic 500 response.
func InternalError(w http.ResponseWriter, message string) {
	WriteError(w, errors.Internal(message, nil))
}

// DecodeJSON decodes the request body into dst, responding with a validation
// error and returning false on malformed input.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	defer r.Body.Close()
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	if err := dec.Decode(dst); err != nil {
		BadRequest(w, "invalid JSON body")
		return false
	}
	return true
}

// RequireUserID extracts the authenticated user ID from the request context,
// responding with 401 and returning false when it is absent.
func RequireUserID(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := logging.GetUserID(r.Context())
	if userID == "" {
		Unauthorized(w, "")
		return "", false
	}
	return userID, true
}
