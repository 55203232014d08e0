package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates an entity already exists.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates an unknown entity type.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrSyncInProgress indicates a sync is already running for the same
	// entity type and scope.
	ErrSyncInProgress = errors.New("sync in progress")

	// Sync Errors.

	// ErrScopeRequired indicates a parent-scoped engine was invoked without
	// a parent. Scoped engines only sync through SyncForScope.
	ErrScopeRequired = errors.New("parent scope required")

	// ErrMalformedDocument indicates a remote document is missing a required
	// field or carries a value of the wrong type.
	ErrMalformedDocument = errors.New("malformed remote document")

	// ErrLocalStore indicates the embedded relational store failed.
	ErrLocalStore = errors.New("local store failure")

	// ErrInvalidConfig indicates an engine configuration is missing a
	// required collaborator.
	ErrInvalidConfig = errors.New("invalid engine configuration")
)
