// internal/app/features/errors/errors.go
package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"runtime/debug"

	"github.com/dalemusser/orghub/internal/app/system/auth"
	"github.com/dalemusser/orghub/internal/app/system/authz"
	"github.com/dalemusser/orghub/internal/app/system/inputval"
	"go.uber.org/zap"
)

// MaxBodyBytes caps JSON request bodies.
const MaxBodyBytes = 1 << 20

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error   string            `json:"error"`
	Message string            `json:"message,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// ErrorLogger writes JSON error responses and logs server-side failures.
type ErrorLogger struct {
	log *zap.Logger
}

// NewErrorLogger constructs an ErrorLogger.
func NewErrorLogger(logger *zap.Logger) *ErrorLogger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ErrorLogger{log: logger}
}

// Log500 logs err with request context and writes a generic 500.
func (e *ErrorLogger) Log500(w http.ResponseWriter, r *http.Request, msg string, err error) {
	fields := []zap.Field{
		zap.Error(err),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
	}
	if u, ok := auth.CurrentUser(r); ok {
		fields = append(fields, zap.String("user_id", u.ID))
	}
	e.log.Error(msg, fields...)
	WriteError(w, http.StatusInternalServerError, "internal_error", "")
}

// Recoverer turns a panic into a logged 500 with a JSON body.
func (e *ErrorLogger) Recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				e.log.Error("panic serving request",
					zap.String("panic", fmt.Sprint(rec)),
					zap.String("path", r.URL.Path),
					zap.ByteString("stack", debug.Stack()))
				WriteError(w, http.StatusInternalServerError, "internal_error", "")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// WriteJSON encodes v with status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// WriteError writes an ErrorBody. code is a stable machine-readable string.
func WriteError(w http.ResponseWriter, status int, code, message string) {
	WriteJSON(w, status, ErrorBody{Error: code, Message: message})
}

// WriteInvalid writes a 400 with per-field messages.
func WriteInvalid(w http.ResponseWriter, fields map[string]string) {
	WriteJSON(w, http.StatusBadRequest, ErrorBody{Error: "invalid_input", Fields: fields})
}

// WriteValidation writes a 400 for a failed inputval.Validate, keeping the
// first message per field.
func WriteValidation(w http.ResponseWriter, res *inputval.Result) {
	fields := make(map[string]string, len(res.Errors))
	for _, e := range res.Errors {
		if _, seen := fields[e.Field]; !seen {
			fields[e.Field] = e.Message
		}
	}
	WriteInvalid(w, fields)
}

// ErrBadJSON is returned by DecodeJSON for a malformed or oversized body.
var ErrBadJSON = errors.New("malformed JSON body")

// DecodeJSON decodes one JSON object into dst, rejecting unknown fields
// and trailing data. On failure it has already written a 400.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		WriteError(w, http.StatusBadRequest, "bad_request", "request body must be a JSON object")
		return fmt.Errorf("%w: %v", ErrBadJSON, err)
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		WriteError(w, http.StatusBadRequest, "bad_request", "request body must contain a single JSON object")
		return ErrBadJSON
	}
	return nil
}

// Handler serves the fallback error routes.
type Handler struct{}

// NewHandler constructs an errors Handler.
func NewHandler() *Handler {
	return &Handler{}
}

// NotFound answers unknown routes.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	WriteError(w, http.StatusNotFound, "not_found", "")
}

// MethodNotAllowed answers known routes with the wrong method.
func (h *Handler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	WriteError(w, http.StatusMethodNotAllowed, "method_not_allowed", "")
}

// Forbidden answers GET /forbidden.
func (h *Handler) Forbidden(w http.ResponseWriter, r *http.Request) {
	authz.Forbidden(w)
}

// Unauthorized answers GET /unauthorized.
func (h *Handler) Unauthorized(w http.ResponseWriter, r *http.Request) {
	auth.Unauthorized(w, r)
}
