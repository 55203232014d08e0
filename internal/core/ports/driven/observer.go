package driven

import (
	"time"

	"github.com/custodia-labs/caresync/internal/core/domain"
)

// SyncObserver receives the outcome of every completed sync call.
// Cancelled calls are not reported.
type SyncObserver interface {
	ObserveSync(entityType string, result domain.SyncResult, duration time.Duration)
}
