package domain

import (
	"fmt"
	"math"
	"time"
)

// Remote document field names shared by every entity.
const (
	FieldSyncMetadata = "syncMetadata"
	FieldLocalID      = "localId"
	FieldSyncedAt     = "syncedAt"
	FieldDeletedAt    = "deletedAt"
	FieldCreatedAt    = "createdAt"
	FieldUpdatedAt    = "updatedAt"
)

// FormatTime renders a timestamp the way remote documents store it.
func FormatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// ParseTime reads a timestamp written by FormatTime. It also accepts a
// time.Time, which in-process stores may hand back unchanged.
func ParseTime(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t.UTC(), nil
	case string:
		parsed, err := time.Parse(time.RFC3339Nano, t)
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: bad timestamp %q", ErrMalformedDocument, t)
		}
		return parsed.UTC(), nil
	default:
		return time.Time{}, fmt.Errorf("%w: timestamp has type %T", ErrMalformedDocument, v)
	}
}

// ToInt64 reads an integral number from a decoded document. JSON decoding
// yields float64, in-process stores may keep int64.
func ToInt64(v any) (int64, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	case float64:
		if n != math.Trunc(n) {
			return 0, fmt.Errorf("%w: %v is not an integer", ErrMalformedDocument, n)
		}
		return int64(n), nil
	default:
		return 0, fmt.Errorf("%w: number has type %T", ErrMalformedDocument, v)
	}
}

// Fields renders the metadata as the syncMetadata sub-document.
func (m SyncMetadata) Fields() map[string]any {
	var deletedAt any
	if m.DeletedAt != nil {
		deletedAt = FormatTime(*m.DeletedAt)
	}
	return map[string]any{
		FieldLocalID:   m.LocalID,
		FieldSyncedAt:  FormatTime(m.SyncedAt),
		FieldDeletedAt: deletedAt,
	}
}

// ParseSyncMetadata reads the syncMetadata block of a remote document.
// A missing block, or one with missing or mistyped fields, is malformed.
func ParseSyncMetadata(fields map[string]any) (SyncMetadata, error) {
	raw, ok := fields[FieldSyncMetadata]
	if !ok || raw == nil {
		return SyncMetadata{}, fmt.Errorf("%w: missing %s", ErrMalformedDocument, FieldSyncMetadata)
	}
	block, ok := raw.(map[string]any)
	if !ok {
		return SyncMetadata{}, fmt.Errorf("%w: %s has type %T", ErrMalformedDocument, FieldSyncMetadata, raw)
	}

	var meta SyncMetadata
	var err error

	v, ok := block[FieldLocalID]
	if !ok {
		return SyncMetadata{}, fmt.Errorf("%w: missing %s.%s", ErrMalformedDocument, FieldSyncMetadata, FieldLocalID)
	}
	if meta.LocalID, err = ToInt64(v); err != nil {
		return SyncMetadata{}, fmt.Errorf("read %s: %w", FieldLocalID, err)
	}

	v, ok = block[FieldSyncedAt]
	if !ok {
		return SyncMetadata{}, fmt.Errorf("%w: missing %s.%s", ErrMalformedDocument, FieldSyncMetadata, FieldSyncedAt)
	}
	if meta.SyncedAt, err = ParseTime(v); err != nil {
		return SyncMetadata{}, fmt.Errorf("read %s: %w", FieldSyncedAt, err)
	}

	if v := block[FieldDeletedAt]; v != nil {
		deletedAt, err := ParseTime(v)
		if err != nil {
			return SyncMetadata{}, fmt.Errorf("read %s: %w", FieldDeletedAt, err)
		}
		meta.DeletedAt = &deletedAt
	}
	return meta, nil
}

// IsActive reports whether a remote document is not tombstoned. Documents
// without readable metadata count as active so the pull pass can report them.
func IsActive(fields map[string]any) bool {
	block, ok := fields[FieldSyncMetadata].(map[string]any)
	if !ok {
		return true
	}
	return block[FieldDeletedAt] == nil
}

// MergeFields deep-merges src into dst the way the remote store's
// merge-upsert does: nested objects are merged key by key, every other value
// replaces what was there.
func MergeFields(dst, src map[string]any) {
	for k, v := range src {
		if sub, ok := v.(map[string]any); ok {
			if existing, ok := dst[k].(map[string]any); ok {
				MergeFields(existing, sub)
				continue
			}
			dst[k] = CopyFields(sub)
			continue
		}
		dst[k] = copyValue(v)
	}
}

// CopyFields returns a deep copy of a document body.
func CopyFields(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return CopyFields(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = copyValue(e)
		}
		return out
	case []string:
		return append([]string(nil), t...)
	default:
		return v
	}
}
