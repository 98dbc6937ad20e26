// Package fleeterr defines the typed error taxonomy shared by every
// fleetctl component: the model store, the stager, the runtime planner,
// the k8s apply engine and the lifecycle controller all report failures
// through this one Kind set so callers can branch on category instead of
// string-matching messages.
package fleeterr

import (
	"errors"
	"fmt"
)

// Kind classifies an Error into one of a closed set of categories. New
// kinds are added here, never invented ad-hoc at call sites.
type Kind string

const (
	// ConfigInvalid marks a Document or ModelGroup that failed validation.
	ConfigInvalid Kind = "ConfigInvalid"
	// NoModelResolvable marks a group whose runtime planner could not find
	// any of the three model-location strategies satisfied.
	NoModelResolvable Kind = "NoModelResolvable"
	// AmbiguousArtifact marks a glob that matched more than one candidate
	// where exactly one was required.
	AmbiguousArtifact Kind = "AmbiguousArtifact"
	// DigestMismatch marks a staged or stored blob whose computed sha256
	// did not match the expected value.
	DigestMismatch Kind = "DigestMismatch"
	// StoreUnavailable marks a model store operation that failed because
	// the backing object store could not be reached.
	StoreUnavailable Kind = "StoreUnavailable"
	// ApiUnavailable marks a failure to reach the Kubernetes API server or
	// an upstream HTTP source (HuggingFace Hub, direct URL).
	ApiUnavailable Kind = "ApiUnavailable"
	// Conflict marks an optimistic-concurrency conflict on update.
	Conflict Kind = "Conflict"
	// NotFound marks a missing object. Callers that treat absence as
	// success (delete-of-orphan) check for this kind and swallow it.
	NotFound Kind = "NotFound"
	// Orphaned marks a live workload with no corresponding declared group.
	Orphaned Kind = "Orphaned"
)

// Error is the concrete error type returned by fleetctl packages. It
// carries enough structure for a caller to branch on Kind and for a log
// line to include Group/Field/Op without parsing the message.
type Error struct {
	Kind  Kind
	Op    string // operation that failed, e.g. "modelstore.SaveStream"
	Group string // model group name, empty if not group-scoped
	Field string // config field path, empty if not a config error
	Err   error  // wrapped cause, may be nil
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Op, e.Kind)
	if e.Group != "" {
		msg = fmt.Sprintf("%s [group=%s]", msg, e.Group)
	}
	if e.Field != "" {
		msg = fmt.Sprintf("%s [field=%s]", msg, e.Field)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is a *Error with the same Kind, so callers
// can write errors.Is(err, fleeterr.New(fleeterr.NotFound, "", nil)) or,
// more idiomatically, use IsKind below.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Kind == t.Kind
}

// New constructs an Error of the given kind for operation op, wrapping
// cause (which may be nil).
func New(kind Kind, op string, cause error) *Error {
	return &Error{Kind: kind, Op: op, Err: cause}
}

// WithGroup returns a copy of e annotated with the model group name.
func (e *Error) WithGroup(group string) *Error {
	cp := *e
	cp.Group = group
	return &cp
}

// WithField returns a copy of e annotated with the offending config field.
func (e *Error) WithField(field string) *Error {
	cp := *e
	cp.Field = field
	return &cp
}

// IsKind reports whether err is, or wraps, a *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}

// IsNotFound reports whether err represents a missing object. Callers
// performing best-effort deletes treat this as success.
func IsNotFound(err error) bool {
	return IsKind(err, NotFound)
}

// IsRetryable reports whether err is the kind of transient failure a
// retry loop should reattempt: unreachable backends, not data errors.
func IsRetryable(err error) bool {
	return IsKind(err, StoreUnavailable) || IsKind(err, ApiUnavailable) || IsKind(err, Conflict)
}
