package errors

import (
	"errors"
	"net/http"
	"strings"
)

// Kind classifies a failure so the HTTP boundary can pick a status code.
type Kind int

const (
	// KindInternal is an unexpected failure, usually mid-way through a multi-step mutation.
	KindInternal Kind = iota
	// KindValidation is missing or malformed input.
	KindValidation
	// KindConflict is a duplicate unique key.
	KindConflict
	// KindNotFound is a missing user or token subject.
	KindNotFound
	// KindUnauthorized is bad credentials or an invalid, expired or superseded token.
	KindUnauthorized
	// KindUpstream is a failure of the media host or token signing.
	KindUpstream
)

// String returns the machine-readable code for the kind.
func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "VALIDATION_ERROR"
	case KindConflict:
		return "CONFLICT"
	case KindNotFound:
		return "NOT_FOUND"
	case KindUnauthorized:
		return "UNAUTHORIZED"
	case KindUpstream:
		return "UPSTREAM_FAILURE"
	default:
		return "INTERNAL_ERROR"
	}
}

// StatusCode maps the kind to an HTTP status.
func (k Kind) StatusCode() int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindConflict:
		return http.StatusConflict
	case KindNotFound:
		return http.StatusNotFound
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Error is the single typed failure every service operation returns.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error of the same kind and message, so sentinel values work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Message == e.Message
}

// New creates an error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates an error of the given kind that keeps cause in the chain.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Err: cause}
}

// Validation reports missing or malformed input.
func Validation(message string) *Error { return New(KindValidation, message) }

// Conflict reports a duplicate username or email.
func Conflict(message string) *Error { return New(KindConflict, message) }

// NotFound reports a missing user.
func NotFound(message string) *Error { return New(KindNotFound, message) }

// Unauthorized reports bad credentials or a rejected token.
func Unauthorized(message string) *Error { return New(KindUnauthorized, message) }

// Upstream wraps a media host or signing failure.
func Upstream(message string, cause error) *Error { return Wrap(KindUpstream, message, cause) }

// Internal wraps an unexpected failure.
func Internal(message string, cause error) *Error { return Wrap(KindInternal, message, cause) }

// KindOf returns the kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// CodeForStatus returns the envelope code for an HTTP status raised outside
// the service layer, such as routing or body-limit failures.
func CodeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return KindValidation.String()
	case http.StatusConflict:
		return KindConflict.String()
	case http.StatusNotFound:
		return KindNotFound.String()
	case http.StatusUnauthorized:
		return KindUnauthorized.String()
	case http.StatusBadGateway:
		return KindUpstream.String()
	}
	text := http.StatusText(status)
	if text == "" || status == http.StatusInternalServerError {
		return KindInternal.String()
	}
	return strings.ToUpper(strings.NewReplacer(" ", "_", "-", "_", "'", "").Replace(text))
}

// ErrorResponse represents the uniform failure envelope.
type ErrorResponse struct {
	StatusCode int      `json:"statusCode"`
	Message    string   `json:"message"`
	Code       string   `json:"code"`
	Success    bool     `json:"success"`
	Errors     []string `json:"errors"`
}

// ToErrorResponse converts any error into the failure envelope.
// Internal failures never expose their cause.
func ToErrorResponse(err error) ErrorResponse {
	var e *Error
	if !errors.As(err, &e) {
		e = Internal("internal server error", err)
	}
	message := e.Message
	if e.Kind == KindInternal && message == "" {
		message = "internal server error"
	}
	return ErrorResponse{
		StatusCode: e.Kind.StatusCode(),
		Message:    message,
		Code:       e.Kind.String(),
		Success:    false,
		Errors:     []string{},
	}
}
