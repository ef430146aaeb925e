// Package notes implements calendar notes. A note is pinned to a calendar
// date and may repeat weekly, monthly or yearly. Notes are stored in MariaDB
// with their anchor kept as structured date parts, so a definition change
// never shifts which day a note belongs to.
//
// Whether a note falls on a given day is decided by the calendar engine;
// this package only stores, filters and orders notes.
package notes

import (
	"time"

	"github.com/keyxmakerx/chronicle-calendar/internal/plugins/calendar"
)

// MaxTitleLength bounds note titles.
const MaxTitleLength = 200

// MaxListLimit caps the number of notes returned by day and upcoming queries.
const MaxListLimit = 500

// Note is a calendar note.
type Note struct {
	ID         string `json:"id"`
	CalendarID string `json:"calendarId"`
	Author     string `json:"author"`
	Title      string `json:"title"`
	// Content is sanitized HTML.
	Content string `json:"content"`

	Anchor calendar.DateTimeParts  `json:"anchor"`
	End    *calendar.DateTimeParts `json:"end,omitempty"` // only for non-repeating notes
	Repeat calendar.Repeat         `json:"repeat"`
	AllDay bool                    `json:"allDay"`

	Categories    []string `json:"categories"`
	PlayerVisible bool     `json:"playerVisible"`
	Order         int      `json:"order"`
	RemindUsers   []string `json:"remindUsers"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Recurrence returns the part of the note the calendar engine evaluates.
func (n *Note) Recurrence() calendar.Note {
	return calendar.Note{ID: n.ID, Anchor: n.Anchor, End: n.End, Repeat: n.Repeat}
}

// Occurrence is one note on one day.
type Occurrence struct {
	Note *Note                  `json:"note"`
	Date calendar.DateTimeParts `json:"date"`
	// Seconds is Date as linear time, used for ordering.
	Seconds int64 `json:"seconds"`
}

// --- Request DTOs ---

// CreateNoteRequest holds the data submitted when creating a note.
type CreateNoteRequest struct {
	Title         string                  `json:"title"`
	Content       string                  `json:"content"`
	Anchor        calendar.DateTimeParts  `json:"anchor"`
	End           *calendar.DateTimeParts `json:"end,omitempty"`
	Repeat        string                  `json:"repeat"`
	AllDay        bool                    `json:"allDay"`
	Categories    []string                `json:"categories,omitempty"`
	PlayerVisible bool                    `json:"playerVisible"`
	RemindUsers   []string                `json:"remindUsers,omitempty"`
}

// UpdateNoteRequest holds a partial update. Nil fields are left unchanged.
type UpdateNoteRequest struct {
	Title         *string                 `json:"title,omitempty"`
	Content       *string                 `json:"content,omitempty"`
	Anchor        *calendar.DateTimeParts `json:"anchor,omitempty"`
	End           *calendar.DateTimeParts `json:"end,omitempty"`
	ClearEnd      bool                    `json:"clearEnd,omitempty"`
	Repeat        *string                 `json:"repeat,omitempty"`
	AllDay        *bool                   `json:"allDay,omitempty"`
	Categories    *[]string               `json:"categories,omitempty"`
	PlayerVisible *bool                   `json:"playerVisible,omitempty"`
	RemindUsers   *[]string               `json:"remindUsers,omitempty"`
}

// ListFilter narrows a note listing.
type ListFilter struct {
	// VisibleOnly drops notes hidden from players.
	VisibleOnly bool
	// Category keeps only notes tagged with this category.
	Category string
}

// matches reports whether n passes the filter.
func (f ListFilter) matches(n *Note) bool {
	if f.VisibleOnly && !n.PlayerVisible {
		return false
	}
	if f.Category == "" {
		return true
	}
	for _, c := range n.Categories {
		if c == f.Category {
			return true
		}
	}
	return false
}
