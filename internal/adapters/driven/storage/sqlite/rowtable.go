package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/custodia-labs/caresync/internal/core/domain"
	"github.com/custodia-labs/caresync/internal/core/ports/driven"
)

// tableName restricts table names to plain identifiers; they are spliced
// into SQL text.
var tableName = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// RowTable stores one entity type's rows as JSON documents. The id, parent
// and update timestamp are kept in their own columns for lookups.
type RowTable[R any] struct {
	store  *Store
	table  string
	schema driven.RowSchema[R]
}

var (
	_ driven.IncrementalLocalStore[struct{}] = (*RowTable[struct{}])(nil)
	_ driven.ChildStore[struct{}]            = (*RowTable[struct{}])(nil)
)

// NewRowTable returns the rows of table. The table must exist; migrations
// create one per entity type, named after it.
func NewRowTable[R any](s *Store, table string, schema driven.RowSchema[R]) (*RowTable[R], error) {
	if !tableName.MatchString(table) {
		return nil, fmt.Errorf("%w: table name %q", domain.ErrInvalidInput, table)
	}
	if schema.ID == nil || schema.WithID == nil || schema.UpdatedAt == nil {
		return nil, fmt.Errorf("%w: incomplete row schema for %s", domain.ErrInvalidInput, table)
	}

	var found string
	err := s.db.QueryRow("SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?", table).Scan(&found)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: table %s", domain.ErrNotFound, table)
	}
	if err != nil {
		return nil, localStoreErr("looking up table "+table, err)
	}

	return &RowTable[R]{store: s, table: table, schema: schema}, nil
}

// GetAll returns every row ordered by id.
func (t *RowTable[R]) GetAll(ctx context.Context) ([]R, error) {
	return t.query(ctx, "SELECT id, data FROM "+t.table+" ORDER BY id")
}

// GetByID returns a row, or nil and no error if it does not exist.
func (t *RowTable[R]) GetByID(ctx context.Context, id int64) (*R, error) {
	var data string
	err := t.store.db.QueryRowContext(ctx, "SELECT data FROM "+t.table+" WHERE id = ?", id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, localStoreErr("reading "+t.table, err)
	}

	row, err := t.decode(id, data)
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// Save inserts the row when its id is 0 and overwrites it otherwise.
func (t *RowTable[R]) Save(ctx context.Context, row R) (int64, error) {
	id := t.schema.ID(row)
	data, err := json.Marshal(t.schema.WithID(row, 0))
	if err != nil {
		return 0, localStoreErr("encoding "+t.table+" row", err)
	}

	updatedAt := t.schema.UpdatedAt(row).UnixMilli()
	parent := t.parentID(row)

	if id == 0 {
		res, err := t.store.db.ExecContext(ctx,
			"INSERT INTO "+t.table+" (parent_id, data, updated_at) VALUES (?, ?, ?)",
			parent, string(data), updatedAt)
		if err != nil {
			return 0, localStoreErr("inserting into "+t.table, err)
		}
		id, err = res.LastInsertId()
		if err != nil {
			return 0, localStoreErr("reading "+t.table+" row id", err)
		}
		return id, nil
	}

	_, err = t.store.db.ExecContext(ctx, `
		INSERT INTO `+t.table+` (id, parent_id, data, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			parent_id = excluded.parent_id,
			data = excluded.data,
			updated_at = excluded.updated_at
	`, id, parent, string(data), updatedAt)
	if err != nil {
		return 0, localStoreErr("saving "+t.table, err)
	}
	return id, nil
}

// Delete removes a row.
func (t *RowTable[R]) Delete(ctx context.Context, id int64) error {
	if _, err := t.store.db.ExecContext(ctx, "DELETE FROM "+t.table+" WHERE id = ?", id); err != nil {
		return localStoreErr("deleting from "+t.table, err)
	}
	return nil
}

// GetModifiedSince returns rows whose update timestamp is after since.
func (t *RowTable[R]) GetModifiedSince(ctx context.Context, since time.Time) ([]R, error) {
	return t.query(ctx,
		"SELECT id, data FROM "+t.table+" WHERE updated_at > ? ORDER BY id", since.UnixMilli())
}

// GetAllForParent returns the rows owned by one parent.
func (t *RowTable[R]) GetAllForParent(ctx context.Context, parentID int64) ([]R, error) {
	return t.query(ctx,
		"SELECT id, data FROM "+t.table+" WHERE parent_id = ? ORDER BY id", parentID)
}

func (t *RowTable[R]) parentID(row R) any {
	if t.schema.ParentID == nil {
		return nil
	}
	return t.schema.ParentID(row)
}

func (t *RowTable[R]) query(ctx context.Context, query string, args ...any) ([]R, error) {
	rows, err := t.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, localStoreErr("querying "+t.table, err)
	}
	defer rows.Close()

	var out []R //nolint:prealloc // size unknown from query
	for rows.Next() {
		var id int64
		var data string
		if err := rows.Scan(&id, &data); err != nil {
			return nil, localStoreErr("scanning "+t.table, err)
		}
		row, err := t.decode(id, data)
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, localStoreErr("iterating "+t.table, err)
	}
	return out, nil
}

func (t *RowTable[R]) decode(id int64, data string) (R, error) {
	var row R
	if err := json.Unmarshal([]byte(data), &row); err != nil {
		return row, localStoreErr(fmt.Sprintf("decoding %s row %d", t.table, id), err)
	}
	return t.schema.WithID(row, id), nil
}
