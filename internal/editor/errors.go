package editor

import "errors"

// ErrDisposed is returned by operations invoked on a host whose
// Teardown has already completed.
var ErrDisposed = errors.New("editor: host disposed")

// FailureKind classifies failures delivered on the host's error channel.
type FailureKind string

const (
	// LoadFailure means buffer construction or attach failed during LoadFile.
	LoadFailure FailureKind = "load_failure"
	// PersistFailure means the external persist operation rejected a save.
	PersistFailure FailureKind = "persist_failure"
)

// HostError is an operational failure surfaced through Host.Errors.
// The host never panics past its boundary; load and persist failures are
// always funneled here with a human-readable message.
type HostError struct {
	Kind    FailureKind
	Message string
	Err     error
}

func (e HostError) Error() string { return e.Message }

// Unwrap exposes the underlying cause, if any.
func (e HostError) Unwrap() error { return e.Err }
