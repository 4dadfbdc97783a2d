// Package errs defines the error taxonomy shared by the chart pipeline and its outer surfaces.
package errs

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// Kind is the category of a chart error.
type Kind string

const (
	// KindConfiguration is an unrecognized ayanamsha model, house system or similar setting.
	KindConfiguration Kind = "CONFIGURATION_ERROR"

	// KindUnsupportedDivisionalFactor is a divisional factor with no classical table.
	KindUnsupportedDivisionalFactor Kind = "UNSUPPORTED_DIVISIONAL_FACTOR"

	// KindEphemerisUnavailable is a failed or timed out ephemeris lookup.
	KindEphemerisUnavailable Kind = "EPHEMERIS_UNAVAILABLE"

	// KindBoundaryArithmetic is an internal invariant violation. It indicates a bug.
	KindBoundaryArithmetic Kind = "BOUNDARY_ARITHMETIC_ERROR"

	// KindValidation is malformed caller input (coordinates, instants, request bodies).
	KindValidation Kind = "VALIDATION_ERROR"

	// KindNotFound is a missing stored resource.
	KindNotFound Kind = "NOT_FOUND"
)

// Sentinels for errors.Is. Matching is by kind only.
var (
	ErrConfiguration               = &Error{Kind: KindConfiguration}
	ErrUnsupportedDivisionalFactor = &Error{Kind: KindUnsupportedDivisionalFactor}
	ErrEphemerisUnavailable        = &Error{Kind: KindEphemerisUnavailable}
	ErrBoundaryArithmetic          = &Error{Kind: KindBoundaryArithmetic}
	ErrValidation                  = &Error{Kind: KindValidation}
	ErrNotFound                    = &Error{Kind: KindNotFound}
)

// Error is a categorized error with enough context for the caller to remediate.
type Error struct {
	Kind    Kind           `json:"kind"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
	Cause   error          `json:"-"`
}

// New creates an error of the given kind.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Error implements the error interface. Details are rendered in key order.
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if len(e.Details) > 0 {
		keys := make([]string, 0, len(e.Details))
		for k := range e.Details {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteString(" (")
		for i, k := range keys {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "%s=%v", k, e.Details[k])
		}
		b.WriteString(")")
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

// WithDetail attaches a key/value pair and returns e.
func (e *Error) WithDetail(key string, value any) *Error {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// WithCause sets the underlying cause and returns e.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// Unwrap returns the cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Configuration reports an unrecognized setting value.
func Configuration(setting, value string) *Error {
	return New(KindConfiguration, "unrecognized %s %q", setting, value).
		WithDetail("setting", setting).
		WithDetail("value", value)
}

// UnsupportedFactor reports a divisional factor without a lookup table.
func UnsupportedFactor(factor int) *Error {
	return New(KindUnsupportedDivisionalFactor, "no classical table for D%d", factor).
		WithDetail("factor", factor)
}

// EphemerisUnavailable wraps an adapter failure for the named target (a body or "ascendant").
func EphemerisUnavailable(target string, cause error) *Error {
	return New(KindEphemerisUnavailable, "ephemeris lookup failed for %s", target).
		WithDetail("target", target).
		WithCause(cause)
}

// Boundary reports an internal invariant violation.
func Boundary(format string, args ...any) *Error {
	return New(KindBoundaryArithmetic, format, args...)
}

// Validation reports invalid caller input.
func Validation(format string, args ...any) *Error {
	return New(KindValidation, format, args...)
}

// NotFound reports a missing resource.
func NotFound(resource, id string) *Error {
	return New(KindNotFound, "%s not found: %s", resource, id).WithDetail("id", id)
}

// KindOf returns the kind of the first *Error in err's chain, or "" if there is none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// StatusCode maps err to an HTTP status code.
func StatusCode(err error) int {
	switch KindOf(err) {
	case KindConfiguration, KindValidation, KindUnsupportedDivisionalFactor:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindEphemerisUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
