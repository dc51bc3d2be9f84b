package routekit

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors collaborators may wrap; the translator maps them to the
// matching failure kind.
var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
)

// ErrorKind classifies a failure. The translation table maps each kind to an
// HTTP status and a machine-readable code.
type ErrorKind int

// Failure kinds.
const (
	KindInternal ErrorKind = iota
	KindBadRequest
	KindValidation
	KindNotFound
	KindConflict
	KindTooLarge
	KindRateLimited
	KindUnready
)

type translation struct {
	status int
	code   string
}

var translations = map[ErrorKind]translation{
	KindInternal:    {http.StatusInternalServerError, "INTERNAL_ERROR"},
	KindBadRequest:  {http.StatusBadRequest, "BAD_REQUEST"},
	KindValidation:  {http.StatusBadRequest, "VALIDATION_FAILED"},
	KindNotFound:    {http.StatusNotFound, "NOT_FOUND"},
	KindConflict:    {http.StatusConflict, "CONFLICT"},
	KindTooLarge:    {http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE"},
	KindRateLimited: {http.StatusTooManyRequests, "RATE_LIMITED"},
	KindUnready:     {http.StatusServiceUnavailable, "NOT_READY"},
}

// Status returns the HTTP status code for the kind.
func (k ErrorKind) Status() int {
	if t, ok := translations[k]; ok {
		return t.status
	}
	return http.StatusInternalServerError
}

// Code returns the machine-readable code for the kind.
func (k ErrorKind) Code() string {
	if t, ok := translations[k]; ok {
		return t.code
	}
	return translations[KindInternal].code
}

// Error is the single failure type the dispatcher translates into a response.
type Error struct {
	Kind    ErrorKind
	Message string
	Details any
	Err     error
}

// Error returns the message, falling back to the wrapped error.
func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Kind.Code()
}

// Unwrap returns the wrapped cause.
func (e *Error) Unwrap() error { return e.Err }

// StatusCode returns the HTTP status code.
func (e *Error) StatusCode() int { return e.Kind.Status() }

// Envelope is the JSON body of every failure response.
type Envelope struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Details any    `json:"details,omitempty"`
}

// ValidationDetails is the details payload of a VALIDATION_FAILED response.
type ValidationDetails struct {
	Location   string      `json:"location"`
	Reason     string      `json:"reason"`
	Violations []Violation `json:"violations,omitempty"`
}

// Violation describes a single field failure.
type Violation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Value   any    `json:"value,omitempty"`
}

// Validation failure reasons.
const (
	ReasonSchemaMismatch         = "schema_mismatch"
	ReasonMalformedBody          = "malformed_body"
	ReasonUnsupportedContentType = "unsupported_content_type"
)

// NotFound returns a KindNotFound error.
func NotFound(message string) error {
	return &Error{Kind: KindNotFound, Message: message, Err: ErrNotFound}
}

// NotFoundf returns a formatted KindNotFound error.
func NotFoundf(format string, args ...any) error {
	return NotFound(fmt.Sprintf(format, args...))
}

// Conflict returns a KindConflict error.
func Conflict(message string) error {
	return &Error{Kind: KindConflict, Message: message, Err: ErrConflict}
}

// Conflictf returns a formatted KindConflict error.
func Conflictf(format string, args ...any) error {
	return Conflict(fmt.Sprintf(format, args...))
}

// BadRequest returns a KindBadRequest error.
func BadRequest(message string) error {
	return &Error{Kind: KindBadRequest, Message: message}
}

// Unready returns the error used while no AppContext is available.
func Unready() error {
	return &Error{Kind: KindUnready, Message: "server is not ready"}
}

// Internal wraps err as a KindInternal failure. Its message is never shown
// to clients.
func Internal(err error) error {
	return &Error{Kind: KindInternal, Err: err}
}

func validationError(location, reason, message string, violations []Violation) error {
	return &Error{
		Kind:    KindValidation,
		Message: message,
		Details: ValidationDetails{
			Location:   location,
			Reason:     reason,
			Violations: violations,
		},
	}
}

// classify resolves any error to a tagged *Error. Plain errors wrapping a
// sentinel keep their message; everything else is internal.
func classify(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}

	switch {
	case errors.Is(err, ErrNotFound):
		return &Error{Kind: KindNotFound, Message: err.Error(), Err: err}
	case errors.Is(err, ErrConflict):
		return &Error{Kind: KindConflict, Message: err.Error(), Err: err}
	default:
		return &Error{Kind: KindInternal, Err: err}
	}
}

// translate converts an error into a status and envelope. Internal errors
// and kinds missing from the table get a generic message.
func translate(err error) (int, Envelope) {
	e := classify(err)

	if _, known := translations[e.Kind]; !known || e.Kind == KindInternal {
		return e.Kind.Status(), Envelope{
			Error: "internal server error",
			Code:  e.Kind.Code(),
		}
	}

	return e.Kind.Status(), Envelope{
		Error:   e.Error(),
		Code:    e.Kind.Code(),
		Details: e.Details,
	}
}

// ErrorStatus extracts the HTTP status code an error would be answered with.
func ErrorStatus(err error) int {
	return classify(err).Kind.Status()
}
