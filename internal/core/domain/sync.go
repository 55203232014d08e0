package domain

import "time"

// SyncMetadata is embedded in every remote document under the
// "syncMetadata" key.
type SyncMetadata struct {
	// LocalID is the row id on the device that last uploaded the document.
	LocalID int64

	// SyncedAt is when that upload happened.
	SyncedAt time.Time

	// DeletedAt marks a remote tombstone. Nil means the document is active.
	DeletedAt *time.Time
}

// RemoteDocument is a document read from the remote store.
type RemoteDocument struct {
	// ID is the document id within its collection path.
	ID string

	// Fields holds the document body, including the syncMetadata block.
	Fields map[string]any
}

// IdentityEntry associates a local row with a remote document for one
// entity type. There is at most one entry per (EntityType, LocalID) and at
// most one per (EntityType, RemoteID).
type IdentityEntry struct {
	// ID is the surrogate row id assigned by the store.
	ID int64

	EntityType string
	LocalID    int64
	RemoteID   string

	// LastSyncedAt is when this item last went through a successful push or pull.
	LastSyncedAt time.Time

	// IsDeleted is the soft-delete flag. The engine never clears or sets it.
	IsDeleted bool
}

// SyncState tracks the last successful sync for an entity type within a scope.
type SyncState struct {
	EntityType string
	ScopeID    string

	// LastSync is the start time of the last run that returned Success or
	// PartialSuccess. Zero means the entity has never synced.
	LastSync time.Time
}

// LastSyncPtr returns LastSync as the optional timestamp the engine expects.
func (s *SyncState) LastSyncPtr() *time.Time {
	if s == nil || s.LastSync.IsZero() {
		return nil
	}
	t := s.LastSync
	return &t
}

// SyncResult is the outcome of one sync call: Success, PartialSuccess or Failure.
type SyncResult interface {
	isSyncResult()
}

// Success means every item in both passes went through.
type Success struct {
	Uploaded   int
	Downloaded int
	Conflicts  int
}

// PartialSuccess means at least one item failed. FailedIDs and Errors are
// index-aligned.
type PartialSuccess struct {
	SuccessCount int
	FailedIDs    []string
	Errors       []*DomainError
}

// Failure means a whole pass could not run.
type Failure struct {
	Err *DomainError
}

func (Success) isSyncResult()        {}
func (PartialSuccess) isSyncResult() {}
func (Failure) isSyncResult()        {}

// Succeeded reports whether a result counts as a completed run.
// PartialSuccess counts: failed items are picked up again on the next cycle.
func Succeeded(r SyncResult) bool {
	switch r.(type) {
	case Success, PartialSuccess:
		return true
	default:
		return false
	}
}

// SuccessCount returns the number of items that went through.
func SuccessCount(r SyncResult) int {
	switch v := r.(type) {
	case Success:
		return v.Uploaded + v.Downloaded
	case PartialSuccess:
		return v.SuccessCount
	default:
		return 0
	}
}

// MergeResults combines the push and pull results of one sync call.
// A Failure in either pass wins, push first. Two Successes sum their
// counts. Anything else becomes a PartialSuccess with summed success counts
// and the failed ids and errors of both passes concatenated.
func MergeResults(push, pull SyncResult) SyncResult {
	if f, ok := push.(Failure); ok {
		return f
	}
	if f, ok := pull.(Failure); ok {
		return f
	}

	ps, pushOK := push.(Success)
	ls, pullOK := pull.(Success)
	if pushOK && pullOK {
		return Success{
			Uploaded:   ps.Uploaded + ls.Uploaded,
			Downloaded: ps.Downloaded + ls.Downloaded,
			Conflicts:  ps.Conflicts + ls.Conflicts,
		}
	}

	merged := PartialSuccess{
		SuccessCount: SuccessCount(push) + SuccessCount(pull),
	}
	for _, r := range []SyncResult{push, pull} {
		if p, ok := r.(PartialSuccess); ok {
			merged.FailedIDs = append(merged.FailedIDs, p.FailedIDs...)
			merged.Errors = append(merged.Errors, p.Errors...)
		}
	}
	return merged
}
