// Package ratelimit throttles calls to a remote document store.
package ratelimit

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/caresync/internal/core/domain"
	"github.com/custodia-labs/caresync/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.RemoteStore = (*Store)(nil)

// DefaultBackoff is how long calls are held back after the remote answers
// 429 Too Many Requests.
const DefaultBackoff = 30 * time.Second

// Store wraps a RemoteStore with a token bucket. A 429 from the remote
// also pauses every call for the backoff period.
type Store struct {
	next    driven.RemoteStore
	limiter *rate.Limiter
	backoff time.Duration
	now     func() time.Time

	mu      sync.Mutex
	retryAt time.Time
}

// New wraps next. A non-positive requestsPerSecond disables the token
// bucket; the 429 backoff still applies.
func New(next driven.RemoteStore, requestsPerSecond float64, burst int) *Store {
	limit := rate.Inf
	if requestsPerSecond > 0 {
		limit = rate.Limit(requestsPerSecond)
	}
	if burst < 1 {
		burst = 1
	}
	return &Store{
		next:    next,
		limiter: rate.NewLimiter(limit, burst),
		backoff: DefaultBackoff,
		now:     time.Now,
	}
}

// UpsertMerge waits for a token, then forwards.
func (s *Store) UpsertMerge(ctx context.Context, path, docID string, fields map[string]any) error {
	if err := s.Wait(ctx); err != nil {
		return err
	}
	err := s.next.UpsertMerge(ctx, path, docID, fields)
	s.observe(err)
	return err
}

// QueryActiveSince waits for a token, then forwards.
func (s *Store) QueryActiveSince(ctx context.Context, path string, since *time.Time) ([]domain.RemoteDocument, error) {
	if err := s.Wait(ctx); err != nil {
		return nil, err
	}
	docs, err := s.next.QueryActiveSince(ctx, path, since)
	s.observe(err)
	return docs, err
}

// Wait blocks until a call may be made. It honours any backoff period
// set by a previous 429.
func (s *Store) Wait(ctx context.Context) error {
	s.mu.Lock()
	retryAt := s.retryAt
	s.mu.Unlock()

	if wait := retryAt.Sub(s.now()); wait > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}

	return s.limiter.Wait(ctx)
}

// Allow reports whether a call could be made right now without blocking.
func (s *Store) Allow() bool {
	s.mu.Lock()
	retryAt := s.retryAt
	s.mu.Unlock()

	if s.now().Before(retryAt) {
		return false
	}
	return s.limiter.Allow()
}

func (s *Store) observe(err error) {
	var re *domain.RemoteError
	if !errors.As(err, &re) || re.Status != http.StatusTooManyRequests {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.retryAt = s.now().Add(s.backoff)
}
