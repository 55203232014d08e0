package entities

import (
	"github.com/custodia-labs/caresync/internal/core/domain"
	"github.com/custodia-labs/caresync/internal/core/ports/driven"
	"github.com/custodia-labs/caresync/internal/core/services"
)

// CalendarEventRow is the local storage form of a calendar event.
type CalendarEventRow struct {
	ID              int64  `json:"id"`
	Title           string `json:"title"`
	StartsAtMillis  int64  `json:"starts_at"`
	EndsAtMillis    *int64 `json:"ends_at,omitempty"`
	Location        string `json:"location,omitempty"`
	AllDay          bool   `json:"all_day"`
	ReminderMins    *int   `json:"reminder_mins,omitempty"`
	CreatedAtMillis int64  `json:"created_at"`
	UpdatedAtMillis int64  `json:"updated_at"`
}

// CalendarEventSchema describes CalendarEventRow to the stores.
func CalendarEventSchema() driven.RowSchema[CalendarEventRow] {
	return rowSchema(
		func(r CalendarEventRow) int64 { return r.ID },
		func(r CalendarEventRow, id int64) CalendarEventRow { r.ID = id; return r },
		func(r CalendarEventRow) int64 { return r.UpdatedAtMillis },
	)
}

var calendarEventMapper = mapper[CalendarEventRow, domain.CalendarEvent]{
	toDomain: func(r CalendarEventRow) domain.CalendarEvent {
		return domain.CalendarEvent{
			ID:           r.ID,
			Title:        r.Title,
			StartsAt:     fromMillis(r.StartsAtMillis),
			EndsAt:       fromOptMillis(r.EndsAtMillis),
			Location:     r.Location,
			AllDay:       r.AllDay,
			ReminderMins: r.ReminderMins,
			CreatedAt:    fromMillis(r.CreatedAtMillis),
			UpdatedAt:    fromMillis(r.UpdatedAtMillis),
		}
	},
	toRow: func(localID int64, m domain.CalendarEvent) CalendarEventRow {
		return CalendarEventRow{
			ID:              localID,
			Title:           m.Title,
			StartsAtMillis:  toMillis(m.StartsAt),
			EndsAtMillis:    toOptMillis(m.EndsAt),
			Location:        m.Location,
			AllDay:          m.AllDay,
			ReminderMins:    m.ReminderMins,
			CreatedAtMillis: toMillis(m.CreatedAt),
			UpdatedAtMillis: toMillis(m.UpdatedAt),
		}
	},
	toRemote: func(m domain.CalendarEvent) map[string]any {
		return map[string]any{
			"title":               m.Title,
			"startsAt":            domain.FormatTime(m.StartsAt),
			"endsAt":              optTime(m.EndsAt),
			"location":            m.Location,
			"allDay":              m.AllDay,
			"reminderMins":        optInt(m.ReminderMins),
			domain.FieldCreatedAt: domain.FormatTime(m.CreatedAt),
			domain.FieldUpdatedAt: domain.FormatTime(m.UpdatedAt),
		}
	},
	fromRemote: func(r *fieldReader) domain.CalendarEvent {
		return domain.CalendarEvent{
			Title:        r.str("title", true),
			StartsAt:     r.time("startsAt", true),
			EndsAt:       r.timePtr("endsAt"),
			Location:     r.str("location", false),
			AllDay:       r.boolean("allDay"),
			ReminderMins: r.intPtr("reminderMins"),
			CreatedAt:    r.time(domain.FieldCreatedAt, true),
			UpdatedAt:    r.time(domain.FieldUpdatedAt, true),
		}
	},
}

// CalendarEventConfig returns the engine configuration for calendar events.
func CalendarEventConfig(store driven.IncrementalLocalStore[CalendarEventRow]) services.EngineConfig[CalendarEventRow, domain.CalendarEvent] {
	return topLevelConfig(domain.EntityCalendarEvent, store, CalendarEventSchema(), calendarEventMapper)
}
