package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/caresync/internal/core/domain"
	"github.com/custodia-labs/caresync/internal/core/ports/driven"
	"github.com/custodia-labs/caresync/internal/core/ports/driving"
	"github.com/custodia-labs/caresync/internal/logger"
)

// Ensure Engine implements the interface.
var _ driving.EntitySyncer = (*Engine[struct{}, struct{}])(nil)

// unknownItemID is recorded for a pulled item that has neither a mapped
// local id nor a document id.
const unknownItemID = "unknown"

// EngineConfig bundles every collaborator the engine needs for one entity
// type. R is the local row type and M the domain model type.
type EngineConfig[R, M any] struct {
	// EntityType keys the identity map and names the entity in logs.
	EntityType string

	// RemotePath builds the remote collection path for a scope.
	RemotePath func(scopeID string) string

	// Local store operations.
	GetAll  func(ctx context.Context) ([]R, error)
	GetByID func(ctx context.Context, id int64) (*R, error)
	Save    func(ctx context.Context, row R) (int64, error)
	Delete  func(ctx context.Context, id int64) error

	// GetModifiedSince is optional. Without it the push pass scans every row.
	GetModifiedSince func(ctx context.Context, since time.Time) ([]R, error)

	// Mapping functions.
	RowToDomain    func(row R) M
	DomainToRow    func(localID int64, model M) R
	DomainToRemote func(model M, meta domain.SyncMetadata) map[string]any
	RemoteToDomain func(fields map[string]any) (M, error)

	// ExtractSyncMetadata is optional and defaults to domain.ParseSyncMetadata.
	ExtractSyncMetadata func(fields map[string]any) (domain.SyncMetadata, error)

	// Row accessors.
	LocalID   func(row R) int64
	UpdatedAt func(row R) time.Time
}

// Validate checks that every required collaborator is present.
func (c *EngineConfig[R, M]) Validate() error {
	return c.validate(true)
}

// validate checks the collaborators. Scoped engines supply their own path
// and candidate functions, so global ones are only required when global.
func (c *EngineConfig[R, M]) validate(global bool) error {
	missing := func(name string) error {
		return fmt.Errorf("%w: %s: %s is required", domain.ErrInvalidConfig, c.EntityType, name)
	}

	if c.EntityType == "" {
		return fmt.Errorf("%w: entity type is required", domain.ErrInvalidConfig)
	}
	if global {
		if c.RemotePath == nil {
			return missing("RemotePath")
		}
		if c.GetAll == nil {
			return missing("GetAll")
		}
	}

	switch {
	case c.GetByID == nil:
		return missing("GetByID")
	case c.Save == nil:
		return missing("Save")
	case c.Delete == nil:
		return missing("Delete")
	case c.RowToDomain == nil:
		return missing("RowToDomain")
	case c.DomainToRow == nil:
		return missing("DomainToRow")
	case c.DomainToRemote == nil:
		return missing("DomainToRemote")
	case c.RemoteToDomain == nil:
		return missing("RemoteToDomain")
	case c.LocalID == nil:
		return missing("LocalID")
	case c.UpdatedAt == nil:
		return missing("UpdatedAt")
	}
	return nil
}

// engineOptions holds settings shared by Engine and ScopedEngine.
type engineOptions struct {
	now      func() time.Time
	newID    func() string
	observer driven.SyncObserver
}

// EngineOption configures an engine.
type EngineOption func(*engineOptions)

// WithClock overrides the clock used for syncedAt and lastSyncedAt.
func WithClock(now func() time.Time) EngineOption {
	return func(o *engineOptions) {
		if now != nil {
			o.now = now
		}
	}
}

// WithIDGenerator overrides how new remote document ids are minted.
func WithIDGenerator(newID func() string) EngineOption {
	return func(o *engineOptions) {
		if newID != nil {
			o.newID = newID
		}
	}
}

// WithObserver reports every completed sync to observer.
func WithObserver(observer driven.SyncObserver) EngineOption {
	return func(o *engineOptions) {
		o.observer = observer
	}
}

func newEngineOptions(opts []EngineOption) engineOptions {
	o := engineOptions{
		now:   func() time.Time { return time.Now().UTC() },
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Engine synchronises one entity type stored in a single remote collection.
// It runs a push pass then a pull pass, strictly sequentially, and resolves
// conflicts last-writer-wins on the update timestamp.
type Engine[R, M any] struct {
	cfg      EngineConfig[R, M]
	remote   driven.RemoteStore
	identity driven.IdentityMapStore
	opts     engineOptions
}

// NewEngine creates an engine from a configuration.
func NewEngine[R, M any](
	cfg EngineConfig[R, M],
	remote driven.RemoteStore,
	identity driven.IdentityMapStore,
	opts ...EngineOption,
) (*Engine[R, M], error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return newEngine(cfg, remote, identity, opts)
}

func newEngine[R, M any](
	cfg EngineConfig[R, M],
	remote driven.RemoteStore,
	identity driven.IdentityMapStore,
	opts []EngineOption,
) (*Engine[R, M], error) {
	if remote == nil {
		return nil, fmt.Errorf("%w: %s: remote store is required", domain.ErrInvalidConfig, cfg.EntityType)
	}
	if identity == nil {
		return nil, fmt.Errorf("%w: %s: identity map is required", domain.ErrInvalidConfig, cfg.EntityType)
	}
	if cfg.ExtractSyncMetadata == nil {
		cfg.ExtractSyncMetadata = domain.ParseSyncMetadata
	}
	return &Engine[R, M]{
		cfg:      cfg,
		remote:   remote,
		identity: identity,
		opts:     newEngineOptions(opts),
	}, nil
}

// EntityType returns the entity type this engine handles.
func (e *Engine[R, M]) EntityType() string {
	return e.cfg.EntityType
}

// Sync pushes local changes, pulls remote changes and merges the results.
func (e *Engine[R, M]) Sync(ctx context.Context, scopeID string, lastSync *time.Time) (domain.SyncResult, error) {
	return e.run(ctx, pass[R]{
		path:       func() string { return e.cfg.RemotePath(scopeID) },
		candidates: e.candidates,
	}, lastSync)
}

// candidates lists the rows the push pass considers.
func (e *Engine[R, M]) candidates(ctx context.Context, lastSync *time.Time) ([]R, error) {
	if lastSync != nil && e.cfg.GetModifiedSince != nil {
		return e.cfg.GetModifiedSince(ctx, *lastSync)
	}
	return e.cfg.GetAll(ctx)
}

// pass describes where one sync call reads and writes.
type pass[R any] struct {
	// path returns the remote collection path.
	path func() string

	// candidates lists local rows for the push pass.
	candidates func(ctx context.Context, lastSync *time.Time) ([]R, error)

	// bind, when set, is applied to every row materialised by the pull pass.
	bind func(row R) R
}

// run executes push then pull and merges them. A panic anywhere in the call
// is recovered here and reported as a Failure. Cancellation is returned as
// an error, never as a result.
func (e *Engine[R, M]) run(ctx context.Context, p pass[R], lastSync *time.Time) (result domain.SyncResult, err error) {
	started := time.Now()
	op := "sync " + e.cfg.EntityType

	defer func() {
		if r := recover(); r != nil {
			result = domain.Failure{Err: domain.NewDomainError(domain.KindUnknown, op, fmt.Errorf("panic: %v", r))}
			err = nil
		}
		if err == nil && e.opts.observer != nil {
			e.opts.observer.ObserveSync(e.cfg.EntityType, result, time.Since(started))
		}
	}()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path := p.path()
	logger.Debug("Syncing %s at %s", e.cfg.EntityType, path)

	push, err := e.push(ctx, path, p, lastSync)
	if err != nil {
		return nil, err
	}
	pull, err := e.pull(ctx, path, p, lastSync)
	if err != nil {
		return nil, err
	}

	result = domain.MergeResults(push, pull)
	logResult(e.cfg.EntityType, result)
	return result, nil
}

// push uploads every candidate row that needs it. Item failures are
// recorded and the pass continues.
func (e *Engine[R, M]) push(ctx context.Context, path string, p pass[R], lastSync *time.Time) (domain.SyncResult, error) {
	op := "push " + e.cfg.EntityType

	rows, err := p.candidates(ctx, lastSync)
	if err != nil {
		if cerr := cancellation(ctx, err); cerr != nil {
			return nil, cerr
		}
		return domain.Failure{Err: Classify(op, fmt.Errorf("list local rows: %w", err))}, nil
	}

	var (
		uploaded  int
		failedIDs []string
		errs      []*domain.DomainError
	)
	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		localID := e.cfg.LocalID(row)
		ok, err := e.pushOne(ctx, path, row, lastSync)
		if err != nil {
			if cerr := cancellation(ctx, err); cerr != nil {
				return nil, cerr
			}
			de := Classify(op, err)
			logger.Warn("Failed to push %s %d: %v", e.cfg.EntityType, localID, de)
			failedIDs = append(failedIDs, strconv.FormatInt(localID, 10))
			errs = append(errs, de)
			continue
		}
		if ok {
			uploaded++
		}
	}

	if len(failedIDs) > 0 {
		return domain.PartialSuccess{SuccessCount: uploaded, FailedIDs: failedIDs, Errors: errs}, nil
	}
	return domain.Success{Uploaded: uploaded}, nil
}

// pushOne uploads a single row if it needs uploading. Returns whether it did.
func (e *Engine[R, M]) pushOne(ctx context.Context, path string, row R, lastSync *time.Time) (bool, error) {
	localID := e.cfg.LocalID(row)

	entry, err := e.identity.GetByLocalID(ctx, e.cfg.EntityType, localID)
	if err != nil {
		return false, fmt.Errorf("look up identity: %w", err)
	}
	if !needsUpload(entry, e.cfg.UpdatedAt(row), lastSync) {
		return false, nil
	}

	remoteID := ""
	if entry != nil {
		remoteID = entry.RemoteID
	} else {
		remoteID = e.opts.newID()
	}

	now := e.opts.now()
	meta := domain.SyncMetadata{LocalID: localID, SyncedAt: now}
	fields := e.cfg.DomainToRemote(e.cfg.RowToDomain(row), meta)

	if err := e.remote.UpsertMerge(ctx, path, remoteID, fields); err != nil {
		return false, err
	}

	updated := domain.IdentityEntry{
		EntityType:   e.cfg.EntityType,
		LocalID:      localID,
		RemoteID:     remoteID,
		LastSyncedAt: now,
	}
	if entry != nil {
		updated.ID = entry.ID
		updated.IsDeleted = entry.IsDeleted
	}
	if err := e.identity.Upsert(ctx, updated); err != nil {
		return false, fmt.Errorf("record identity: %w", err)
	}

	logger.Debug("Pushed %s %d as %s", e.cfg.EntityType, localID, remoteID)
	return true, nil
}

// needsUpload reports whether a row must be pushed: it was never uploaded,
// or it changed after the last sync.
func needsUpload(entry *domain.IdentityEntry, updatedAt time.Time, lastSync *time.Time) bool {
	if entry == nil {
		return true
	}
	return lastSync != nil && updatedAt.After(*lastSync)
}

// pullOutcome is what happened to one pulled document.
type pullOutcome int

const (
	pullUnchanged pullOutcome = iota
	pullOverwritten
	pullMaterialised
)

// pull downloads active remote documents changed since lastSync.
func (e *Engine[R, M]) pull(ctx context.Context, path string, p pass[R], lastSync *time.Time) (domain.SyncResult, error) {
	op := "pull " + e.cfg.EntityType

	docs, err := e.remote.QueryActiveSince(ctx, path, lastSync)
	if err != nil {
		if cerr := cancellation(ctx, err); cerr != nil {
			return nil, cerr
		}
		return domain.Failure{Err: Classify(op, err)}, nil
	}

	var (
		downloaded int
		conflicts  int
		failedIDs  []string
		errs       []*domain.DomainError
	)
	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		outcome, localID, err := e.pullOne(ctx, p, doc)
		if err != nil {
			if cerr := cancellation(ctx, err); cerr != nil {
				return nil, cerr
			}
			de := Classify(op, err)
			id := failedPullID(localID, doc.ID)
			logger.Warn("Failed to pull %s %s: %v", e.cfg.EntityType, id, de)
			failedIDs = append(failedIDs, id)
			errs = append(errs, de)
			continue
		}

		switch outcome {
		case pullOverwritten:
			downloaded++
			conflicts++
		case pullMaterialised:
			downloaded++
		}
	}

	if len(failedIDs) > 0 {
		return domain.PartialSuccess{SuccessCount: downloaded, FailedIDs: failedIDs, Errors: errs}, nil
	}
	return domain.Success{Downloaded: downloaded, Conflicts: conflicts}, nil
}

// pullOne applies a single remote document. It returns the mapped local id
// when one is known so failures can be recorded against it.
func (e *Engine[R, M]) pullOne(ctx context.Context, p pass[R], doc domain.RemoteDocument) (pullOutcome, int64, error) {
	entry, err := e.identity.GetByRemoteID(ctx, e.cfg.EntityType, doc.ID)
	if err != nil {
		return pullUnchanged, 0, fmt.Errorf("look up identity: %w", err)
	}
	var mappedID int64
	if entry != nil {
		mappedID = entry.LocalID
	}

	meta, err := e.cfg.ExtractSyncMetadata(doc.Fields)
	if err != nil {
		return pullUnchanged, mappedID, err
	}
	if meta.DeletedAt != nil {
		return pullUnchanged, mappedID, nil
	}

	model, err := e.cfg.RemoteToDomain(doc.Fields)
	if err != nil {
		return pullUnchanged, mappedID, err
	}

	if entry != nil {
		local, err := e.cfg.GetByID(ctx, entry.LocalID)
		if err != nil {
			return pullUnchanged, mappedID, fmt.Errorf("load local row: %w", err)
		}
		if local != nil {
			return e.resolve(ctx, p, *entry, *local, model)
		}
		if entry.IsDeleted {
			// Deleted on this device; the local deletion stands.
			return pullUnchanged, mappedID, nil
		}
	}

	return e.materialise(ctx, p, entry, doc.ID, model)
}

// resolve applies last-writer-wins between a mapped local row and the
// incoming remote version. Remote wins only when strictly newer.
func (e *Engine[R, M]) resolve(ctx context.Context, p pass[R], entry domain.IdentityEntry, local R, model M) (pullOutcome, int64, error) {
	incoming := e.cfg.DomainToRow(entry.LocalID, model)
	if p.bind != nil {
		incoming = p.bind(incoming)
	}

	if !e.cfg.UpdatedAt(incoming).After(e.cfg.UpdatedAt(local)) {
		return pullUnchanged, entry.LocalID, nil
	}

	if _, err := e.cfg.Save(ctx, incoming); err != nil {
		return pullUnchanged, entry.LocalID, fmt.Errorf("overwrite local row: %w", err)
	}

	entry.LastSyncedAt = e.opts.now()
	if err := e.identity.Upsert(ctx, entry); err != nil {
		return pullUnchanged, entry.LocalID, fmt.Errorf("record identity: %w", err)
	}

	logger.Debug("Pulled newer %s %d from %s", e.cfg.EntityType, entry.LocalID, entry.RemoteID)
	return pullOverwritten, entry.LocalID, nil
}

// materialise creates a local row for a document this device has not seen,
// or whose mapped row no longer exists.
func (e *Engine[R, M]) materialise(ctx context.Context, p pass[R], entry *domain.IdentityEntry, remoteID string, model M) (pullOutcome, int64, error) {
	row := e.cfg.DomainToRow(0, model)
	if p.bind != nil {
		row = p.bind(row)
	}

	localID, err := e.cfg.Save(ctx, row)
	if err != nil {
		var mappedID int64
		if entry != nil {
			mappedID = entry.LocalID
		}
		return pullUnchanged, mappedID, fmt.Errorf("create local row: %w", err)
	}

	created := domain.IdentityEntry{
		EntityType:   e.cfg.EntityType,
		LocalID:      localID,
		RemoteID:     remoteID,
		LastSyncedAt: e.opts.now(),
	}
	if entry != nil {
		created.ID = entry.ID
	}
	if err := e.identity.Upsert(ctx, created); err != nil {
		return pullUnchanged, localID, fmt.Errorf("record identity: %w", err)
	}

	logger.Debug("Pulled new %s %s as %d", e.cfg.EntityType, remoteID, localID)
	return pullMaterialised, localID, nil
}

// failedPullID picks the id a pull failure is recorded against: the mapped
// local id when known, otherwise the remote document id.
func failedPullID(localID int64, docID string) string {
	switch {
	case localID > 0:
		return strconv.FormatInt(localID, 10)
	case docID != "":
		return docID
	default:
		return unknownItemID
	}
}

// cancellation returns the error to unwind with when err was caused by
// cancellation, and nil otherwise.
func cancellation(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func logResult(entityType string, result domain.SyncResult) {
	switch r := result.(type) {
	case domain.Success:
		logger.Info("Synced %s: %d uploaded, %d downloaded, %d conflicts",
			entityType, r.Uploaded, r.Downloaded, r.Conflicts)
	case domain.PartialSuccess:
		logger.Warn("Synced %s with failures: %d succeeded, %d failed",
			entityType, r.SuccessCount, len(r.FailedIDs))
	case domain.Failure:
		logger.Warn("Sync of %s failed: %v", entityType, r.Err)
	}
}
