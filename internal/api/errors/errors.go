// Package errors writes error responses in the single JSON shape the API
// uses: {"error": {"code": "...", "message": "..."}}.
package errors

import (
	"encoding/json"
	"net/http"

	"cloudstore/internal/drive"
)

// Error codes.
const (
	CodeValidationError = "VALIDATION_ERROR"
	CodeNotFound        = "NOT_FOUND"
	CodeUnauthorized    = "UNAUTHORIZED"
	CodeForbidden       = "FORBIDDEN"
	CodeConflict        = "CONFLICT"
	CodeTooLarge        = "PAYLOAD_TOO_LARGE"
	CodeInternalError   = "INTERNAL_ERROR"
)

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// WriteError writes an error response with the given status and code.
func WriteError(w http.ResponseWriter, statusCode int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(errorBody{
		Error: errorDetail{
			Code:    code,
			Message: message,
		},
	})
}

// ValidationError writes 400.
func ValidationError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, CodeValidationError, message)
}

// NotFound writes 404.
func NotFound(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, CodeNotFound, message)
}

// Unauthorized writes 401 with a Bearer challenge.
func Unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="cloudstore"`)
	WriteError(w, http.StatusUnauthorized, CodeUnauthorized, message)
}

// Forbidden writes 403.
func Forbidden(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusForbidden, CodeForbidden, message)
}

// Conflict writes 409.
func Conflict(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusConflict, CodeConflict, message)
}

// TooLarge writes 413.
func TooLarge(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusRequestEntityTooLarge, CodeTooLarge, message)
}

// InternalError writes 500.
func InternalError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, CodeInternalError, message)
}

// FromDomain writes the response for an error returned by the namespace
// layer. Internal errors get a generic message; it is the caller's job to
// log the cause. It returns the status written.
func FromDomain(w http.ResponseWriter, err error) int {
	switch drive.KindOf(err) {
	case drive.KindNotFound:
		NotFound(w, err.Error())
		return http.StatusNotFound
	case drive.KindForbidden:
		Forbidden(w, err.Error())
		return http.StatusForbidden
	case drive.KindConflict:
		Conflict(w, err.Error())
		return http.StatusConflict
	case drive.KindInvalid:
		ValidationError(w, err.Error())
		return http.StatusBadRequest
	default:
		InternalError(w, "internal error")
		return http.StatusInternalServerError
	}
}
