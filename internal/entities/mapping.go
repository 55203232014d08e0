package entities

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/custodia-labs/caresync/internal/core/domain"
	"github.com/custodia-labs/caresync/internal/core/ports/driven"
	"github.com/custodia-labs/caresync/internal/core/services"
)

// RootCollection is the top-level remote collection. Each scope is one
// document in it.
const RootCollection = "caregivers"

// medicationLogCollection is the child collection under a medication.
const medicationLogCollection = "logs"

var validate = validator.New(validator.WithRequiredStructEnabled())

// CollectionPath returns the remote path of a top-level entity collection.
func CollectionPath(scopeID, entityType string) string {
	return RootCollection + "/" + scopeID + "/" + entityType
}

// MedicationLogPath returns the remote path of one medication's logs.
func MedicationLogPath(scopeID, medicationRemoteID string) string {
	return CollectionPath(scopeID, domain.EntityMedication) + "/" + medicationRemoteID + "/" + medicationLogCollection
}

// ExtractSyncMetadata reads the syncMetadata block shared by every entity.
func ExtractSyncMetadata(fields map[string]any) (domain.SyncMetadata, error) {
	return domain.ParseSyncMetadata(fields)
}

// validateModel runs the struct tag checks on a decoded model.
func validateModel(model any) error {
	if err := validate.Struct(model); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrMalformedDocument, err)
	}
	return nil
}

// mapper holds the pure conversions of one entity type.
type mapper[R, M any] struct {
	toDomain   func(row R) M
	toRow      func(localID int64, model M) R
	toRemote   func(model M) map[string]any
	fromRemote func(r *fieldReader) M
}

// decode reads a model from a remote document and validates it.
func (m mapper[R, M]) decode(fields map[string]any) (M, error) {
	r := newFieldReader(fields)
	model := m.fromRemote(r)
	if r.err != nil {
		var zero M
		return zero, r.err
	}
	if err := validateModel(model); err != nil {
		var zero M
		return zero, err
	}
	return model, nil
}

// encode renders a model as a remote document with its sync metadata.
func (m mapper[R, M]) encode(model M, meta domain.SyncMetadata) map[string]any {
	fields := m.toRemote(model)
	fields[domain.FieldSyncMetadata] = meta.Fields()
	return fields
}

// engineConfig builds the shared part of an engine configuration.
func engineConfig[R, M any](
	entityType string,
	store driven.LocalStore[R],
	schema driven.RowSchema[R],
	m mapper[R, M],
) services.EngineConfig[R, M] {
	return services.EngineConfig[R, M]{
		EntityType:          entityType,
		GetAll:              store.GetAll,
		GetByID:             store.GetByID,
		Save:                store.Save,
		Delete:              store.Delete,
		RowToDomain:         m.toDomain,
		DomainToRow:         m.toRow,
		DomainToRemote:      m.encode,
		RemoteToDomain:      m.decode,
		ExtractSyncMetadata: ExtractSyncMetadata,
		LocalID:             schema.ID,
		UpdatedAt:           schema.UpdatedAt,
	}
}

// topLevelConfig builds the configuration of an entity stored directly
// under the scope document.
func topLevelConfig[R, M any](
	entityType string,
	store driven.IncrementalLocalStore[R],
	schema driven.RowSchema[R],
	m mapper[R, M],
) services.EngineConfig[R, M] {
	cfg := engineConfig[R, M](entityType, store, schema, m)
	cfg.RemotePath = func(scopeID string) string { return CollectionPath(scopeID, entityType) }
	cfg.GetModifiedSince = store.GetModifiedSince
	return cfg
}

// rowSchema builds a RowSchema from the id and timestamp accessors every row has.
func rowSchema[R any](
	id func(R) int64,
	withID func(R, int64) R,
	updatedAtMillis func(R) int64,
) driven.RowSchema[R] {
	return driven.RowSchema[R]{
		ID:        id,
		WithID:    withID,
		UpdatedAt: func(row R) time.Time { return fromMillis(updatedAtMillis(row)) },
	}
}
