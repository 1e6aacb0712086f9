package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
)

type Code string

const (
	CodeValidation    Code = "VALIDATION_ERROR"
	CodeUnauthorized  Code = "UNAUTHORIZED"
	CodeForbidden     Code = "FORBIDDEN"
	CodeNotFound      Code = "NOT_FOUND"
	CodeConflict      Code = "CONFLICT"
	CodeStateConflict Code = "STATE_CONFLICT"
	CodeIdempotency   Code = "IDEMPOTENCY_KEY_REUSED"
	CodeRateLimit     Code = "RATE_LIMIT_EXCEEDED"
	CodeInternal      Code = "INTERNAL_ERROR"
	CodeDependency    Code = "DEPENDENCY_ERROR"
	CodeConsistency   Code = "CONSISTENCY_ERROR"
)

// Metadata is how a code surfaces over HTTP and which failure family it
// belongs to.
type Metadata struct {
	HTTPStatus     int
	Retryable      bool
	PublicMessage  string
	DetailsAllowed bool
	Category       Category
}

// Category groups codes into the three failure families callers act on.
type Category string

const (
	CategoryValidation  Category = "validation"
	CategoryAdapter     Category = "adapter"
	CategoryConsistency Category = "consistency"
)

func meta(status int, retryable bool, msg string, details bool, cat Category) Metadata {
	return Metadata{HTTPStatus: status, Retryable: retryable, PublicMessage: msg, DetailsAllowed: details, Category: cat}
}

var metadataByCode = map[Code]Metadata{
	CodeValidation:    meta(http.StatusBadRequest, false, "validation failed", true, CategoryValidation),
	CodeUnauthorized:  meta(http.StatusUnauthorized, false, "authentication required", false, CategoryValidation),
	CodeForbidden:     meta(http.StatusForbidden, false, "access denied", false, CategoryValidation),
	CodeNotFound:      meta(http.StatusNotFound, false, "resource not found", false, CategoryValidation),
	CodeConflict:      meta(http.StatusConflict, false, "conflict detected", true, CategoryValidation),
	CodeStateConflict: meta(http.StatusUnprocessableEntity, false, "state transition disallowed", true, CategoryValidation),
	CodeIdempotency:   meta(http.StatusConflict, false, "idempotency key reused", true, CategoryValidation),
	CodeRateLimit:     meta(http.StatusTooManyRequests, false, "rate limit exceeded", false, CategoryValidation),
	CodeInternal:      meta(http.StatusInternalServerError, true, "internal server error", false, CategoryAdapter),
	CodeDependency:    meta(http.StatusServiceUnavailable, true, "dependency unavailable", true, CategoryAdapter),
	// One side of a dual write landed and the other did not; an operator
	// has to reconcile the first write, so it is never retryable.
	CodeConsistency: meta(http.StatusInternalServerError, false, "partial write requires manual reconciliation", true, CategoryConsistency),
}

// MetadataFor falls back to CodeInternal for unknown codes.
func MetadataFor(code Code) Metadata {
	if m, ok := metadataByCode[code]; ok {
		return m
	}
	return metadataByCode[CodeInternal]
}

// CategoryOf classifies err. Untyped errors are adapter failures.
func CategoryOf(err error) Category {
	typed := As(err)
	if typed == nil {
		return CategoryAdapter
	}
	return MetadataFor(typed.Code()).Category
}

type Error struct {
	code    Code
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

// Newf is New with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

func Wrap(code Code, err error, message string) *Error {
	if err == nil {
		return New(code, message)
	}
	return &Error{code: code, message: message, cause: err}
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	return e.details
}

// WithDetails returns a copy of e carrying details, so package-level
// error values can be decorated per request.
func (e *Error) WithDetails(details any) *Error {
	if e == nil {
		return nil
	}
	cp := *e
	cp.details = details
	return &cp
}

// Category reports the failure family of e.
func (e *Error) Category() Category {
	return CategoryOf(e)
}

// Is matches another *Error by code, so errors.Is(err, New(CodeNotFound, ""))
// holds for any not-found error in the chain.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil || t == nil {
		return false
	}
	return e.code == t.code
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.code, e.message)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

func As(err error) *Error {
	if err == nil {
		return nil
	}
	var typed *Error
	if stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}
