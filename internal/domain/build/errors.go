package build

import (
	"errors"
	"fmt"
)

// Failure kinds. Every error returned by a packaging stage matches exactly one
// of them through errors.Is.
var (
	ErrResourceNotFound = errors.New("resource not found")
	ErrParse            = errors.New("parse error")
	ErrContentMissing   = errors.New("pass content missing")
	ErrResourceCreation = errors.New("resource creation failure")
	ErrCopy             = errors.New("copy failure")
	ErrSerialization    = errors.New("serialization failure")
	ErrWrite            = errors.New("write failure")
	ErrDigest           = errors.New("digest failure")
	ErrSigning          = errors.New("signing failure")
)

//nolint:gochecknoglobals // Read-only lookup table.
var kinds = []error{
	ErrResourceNotFound,
	ErrParse,
	ErrContentMissing,
	ErrResourceCreation,
	ErrCopy,
	ErrSerialization,
	ErrWrite,
	ErrDigest,
	ErrSigning,
}

// Error is a failed stage: its kind, the resource it was working on and the cause.
type Error struct {
	// Kind is one of the package failure sentinels.
	Kind error
	// Subject names the file, directory or entry involved, if any.
	Subject string
	// Err is the underlying cause, if any.
	Err error
}

// Fail builds an *Error.
func Fail(kind error, subject string, cause error) *Error {
	return &Error{
		Kind:    kind,
		Subject: subject,
		Err:     cause,
	}
}

// Error implements error.
func (e *Error) Error() string {
	msg := e.Kind.Error()
	if e.Subject != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Subject)
	}

	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}

	return msg
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}

	return []error{e.Kind, e.Err}
}

// KindOf returns the failure kind carried by err, or nil when err is not a build failure.
func KindOf(err error) error {
	var buildErr *Error
	if errors.As(err, &buildErr) {
		return buildErr.Kind
	}

	for _, kind := range kinds {
		if errors.Is(err, kind) {
			return kind
		}
	}

	return nil
}
