package driven

import (
	"context"
	"time"

	"github.com/custodia-labs/caresync/internal/core/domain"
)

// RemoteStore is the hierarchical remote document store. Documents are
// addressed by a slash-separated collection path and a document id.
// Implementations return *domain.RemoteError for backend failures.
type RemoteStore interface {
	// UpsertMerge creates the document or merges fields into it. Keys not
	// present in fields are left untouched.
	UpsertMerge(ctx context.Context, path, docID string, fields map[string]any) error

	// QueryActiveSince returns the documents in path whose
	// syncMetadata.deletedAt is null. When since is non-nil only documents
	// with updatedAt after since are returned.
	QueryActiveSince(ctx context.Context, path string, since *time.Time) ([]domain.RemoteDocument, error)
}
