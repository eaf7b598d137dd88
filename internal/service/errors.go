package service

import "errors"

// ErrorKind classifies service failures so handlers can map each to the
// correct response without matching on message strings.
type ErrorKind int

const (
	// KindInternal covers unclassified failures.
	KindInternal ErrorKind = iota
	// KindInvalidInput marks client errors rejected before any mutation.
	KindInvalidInput
	// KindConflict marks duplicate-submission rejections.
	KindConflict
	// KindNotFound marks lookups of missing entities.
	KindNotFound
	// KindDependency marks failures of external collaborators (media
	// transforms, scoring service, object storage).
	KindDependency
	// KindTransactional marks persistence-layer failures.
	KindTransactional
)

// Error is the tagged failure type returned by the orchestration services.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind ErrorKind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf extracts the kind from a service error chain. Untagged errors
// report KindInternal.
func KindOf(err error) ErrorKind {
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return svcErr.Kind
	}
	return KindInternal
}

// MessageOf returns the client-safe message of a tagged error, or an
// empty string for untagged errors.
func MessageOf(err error) string {
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return svcErr.Message
	}
	return ""
}
