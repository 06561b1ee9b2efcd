package extract

import (
	"errors"
	"fmt"
)

// Kind classifies extraction failures. The pipeline is the only place that
// decides retry vs skip vs abort; components just tag what happened.
type Kind int

const (
	// KindTransient covers timeouts, rate limits and malformed model output.
	// Worth retrying with backoff.
	KindTransient Kind = iota
	// KindFatal covers authentication, quota exhaustion and anything a retry
	// cannot fix. Fails the video immediately.
	KindFatal
)

func (k Kind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindFatal:
		return "fatal"
	}
	return "unknown"
}

type Error struct {
	Kind   Kind
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s extraction failure (%s): %v", e.Kind, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s extraction failure: %s", e.Kind, e.Reason)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func Transient(reason string, err error) *Error {
	return &Error{Kind: KindTransient, Reason: reason, Err: err}
}

func Fatal(reason string, err error) *Error {
	return &Error{Kind: KindFatal, Reason: reason, Err: err}
}

// IsTransient reports whether err should be retried. Unclassified errors are
// treated as transient so a flaky network path never permanently fails a
// video on the first hiccup.
func IsTransient(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == KindTransient
	}
	return true
}

func IsFatal(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == KindFatal
	}
	return false
}

// Reason extracts the tagged reason, falling back to the error text.
func Reason(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Reason
	}
	if err != nil {
		return err.Error()
	}
	return ""
}
