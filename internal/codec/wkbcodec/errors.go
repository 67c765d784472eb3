package wkbcodec

import (
	"errors"
	"fmt"
)

var (
	ErrMalformedGeometry       = errors.New("malformed geometry")
	ErrUnsupportedGeometryType = errors.New("unsupported geometry type")
)

// DecodeError carries the reason a payload was rejected. Kind is one of the
// package sentinels so callers can branch with errors.Is.
type DecodeError struct {
	Kind   error
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%v: %s: %v", e.Kind, e.Reason, e.Err)
	}
	return fmt.Sprintf("%v: %s", e.Kind, e.Reason)
}

func (e *DecodeError) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}

func malformed(reason string, err error) error {
	return &DecodeError{Kind: ErrMalformedGeometry, Reason: reason, Err: err}
}

func unsupported(reason string) error {
	return &DecodeError{Kind: ErrUnsupportedGeometryType, Reason: reason}
}

// Reason returns a short label for metrics and skip reports.
func Reason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUnsupportedGeometryType):
		return "unsupported_type"
	case errors.Is(err, ErrMalformedGeometry):
		return "malformed"
	default:
		return "error"
	}
}
