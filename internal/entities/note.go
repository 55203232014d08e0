package entities

import (
	"github.com/custodia-labs/caresync/internal/core/domain"
	"github.com/custodia-labs/caresync/internal/core/ports/driven"
	"github.com/custodia-labs/caresync/internal/core/services"
)

// NoteRow is the local storage form of a note.
type NoteRow struct {
	ID              int64    `json:"id"`
	Title           string   `json:"title"`
	Body            string   `json:"body,omitempty"`
	Pinned          bool     `json:"pinned"`
	Tags            []string `json:"tags,omitempty"`
	CreatedAtMillis int64    `json:"created_at"`
	UpdatedAtMillis int64    `json:"updated_at"`
}

// NoteSchema describes NoteRow to the stores.
func NoteSchema() driven.RowSchema[NoteRow] {
	return rowSchema(
		func(r NoteRow) int64 { return r.ID },
		func(r NoteRow, id int64) NoteRow { r.ID = id; return r },
		func(r NoteRow) int64 { return r.UpdatedAtMillis },
	)
}

var noteMapper = mapper[NoteRow, domain.Note]{
	toDomain: func(r NoteRow) domain.Note {
		return domain.Note{
			ID:        r.ID,
			Title:     r.Title,
			Body:      r.Body,
			Pinned:    r.Pinned,
			Tags:      cloneStrings(r.Tags),
			CreatedAt: fromMillis(r.CreatedAtMillis),
			UpdatedAt: fromMillis(r.UpdatedAtMillis),
		}
	},
	toRow: func(localID int64, m domain.Note) NoteRow {
		return NoteRow{
			ID:              localID,
			Title:           m.Title,
			Body:            m.Body,
			Pinned:          m.Pinned,
			Tags:            cloneStrings(m.Tags),
			CreatedAtMillis: toMillis(m.CreatedAt),
			UpdatedAtMillis: toMillis(m.UpdatedAt),
		}
	},
	toRemote: func(m domain.Note) map[string]any {
		return map[string]any{
			"title":               m.Title,
			"body":                m.Body,
			"pinned":              m.Pinned,
			"tags":                stringList(m.Tags),
			domain.FieldCreatedAt: domain.FormatTime(m.CreatedAt),
			domain.FieldUpdatedAt: domain.FormatTime(m.UpdatedAt),
		}
	},
	fromRemote: func(r *fieldReader) domain.Note {
		return domain.Note{
			Title:     r.str("title", true),
			Body:      r.str("body", false),
			Pinned:    r.boolean("pinned"),
			Tags:      r.strings("tags"),
			CreatedAt: r.time(domain.FieldCreatedAt, true),
			UpdatedAt: r.time(domain.FieldUpdatedAt, true),
		}
	},
}

// NoteConfig returns the engine configuration for notes.
func NoteConfig(store driven.IncrementalLocalStore[NoteRow]) services.EngineConfig[NoteRow, domain.Note] {
	return topLevelConfig(domain.EntityNote, store, NoteSchema(), noteMapper)
}
