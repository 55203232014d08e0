package domain

import "fmt"

// ErrorKind classifies a sync failure for retry decisions.
type ErrorKind string

const (
	// KindNetwork is a remote backend failure (timeouts, 5xx, refused connections).
	KindNetwork ErrorKind = "network"
	// KindDatabase is a local store failure.
	KindDatabase ErrorKind = "database"
	// KindValidation is malformed input, usually a remote document missing a field.
	KindValidation ErrorKind = "validation"
	// KindUnauthorized means the remote rejected the credentials.
	KindUnauthorized ErrorKind = "unauthorized"
	// KindNotFound means the remote path or document does not exist.
	KindNotFound ErrorKind = "not_found"
	// KindUnknown is anything that could not be classified.
	KindUnknown ErrorKind = "unknown"
	// KindSecurity means the remote refused access to an existing resource.
	KindSecurity ErrorKind = "security"
)

// Retryable reports whether a failure of this kind may succeed on a later
// attempt without outside intervention.
func (k ErrorKind) Retryable() bool {
	switch k {
	case KindNetwork, KindDatabase, KindUnknown:
		return true
	default:
		return false
	}
}

// DomainError is a classified failure. It wraps the underlying error so
// errors.Is and errors.As keep working through it.
type DomainError struct {
	// Kind drives retry policy.
	Kind ErrorKind

	// Op names the operation that failed, e.g. "push tasks".
	Op string

	// Err is the underlying cause.
	Err error
}

// NewDomainError creates a DomainError.
func NewDomainError(kind ErrorKind, op string, err error) *DomainError {
	return &DomainError{Kind: kind, Op: op, Err: err}
}

func (e *DomainError) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%s error: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s error: %v", e.Op, e.Kind, e.Err)
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the scheduler should try again.
func (e *DomainError) Retryable() bool {
	return e.Kind.Retryable()
}

// RemoteError is returned by remote store adapters for any backend failure.
// Every RemoteError classifies as KindNetwork whatever its Status. Status
// carries the HTTP-like status code when the backend reported one, and is 0
// for transport failures.
type RemoteError struct {
	Op     string
	Path   string
	Status int
	Err    error
}

func (e *RemoteError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("remote %s %s: status %d: %v", e.Op, e.Path, e.Status, e.Err)
	}
	return fmt.Sprintf("remote %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}
