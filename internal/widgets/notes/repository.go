package notes

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/keyxmakerx/chronicle-calendar/internal/apperror"
	"github.com/keyxmakerx/chronicle-calendar/internal/plugins/calendar"
)

// NoteRepository defines the data access contract for note operations.
type NoteRepository interface {
	Create(ctx context.Context, note *Note) error
	FindByID(ctx context.Context, id string) (*Note, error)
	Update(ctx context.Context, note *Note) error
	Delete(ctx context.Context, id string) error

	// ListByCalendar returns every note of a calendar ordered by sort order.
	ListByCalendar(ctx context.Context, calendarID string) ([]Note, error)

	// DeleteByCalendar removes all notes of a calendar.
	DeleteByCalendar(ctx context.Context, calendarID string) error

	// Reorder sets sort_order to each ID's position in ids, in one
	// transaction. IDs not in the calendar are an error.
	Reorder(ctx context.Context, calendarID string, ids []string) error
}

// noteRepository is the MariaDB implementation of NoteRepository.
type noteRepository struct {
	db *sql.DB
}

// NewNoteRepository creates a new MariaDB-backed note repository.
func NewNoteRepository(db *sql.DB) NoteRepository {
	return &noteRepository{db: db}
}

// noteColumns is the SELECT column list for note queries.
const noteColumns = `id, calendar_id, author, title, content,
	anchor, end_date, repeat_rule, all_day, categories,
	player_visible, sort_order, remind_users, created_at, updated_at`

// noteJSON holds the JSON-encoded columns of a note.
type noteJSON struct {
	anchor      []byte
	end         []byte
	categories  []byte
	remindUsers []byte
}

func encodeNote(n *Note) (noteJSON, error) {
	var out noteJSON
	var err error
	if out.anchor, err = json.Marshal(n.Anchor); err != nil {
		return out, fmt.Errorf("marshaling note anchor: %w", err)
	}
	if n.End != nil {
		if out.end, err = json.Marshal(n.End); err != nil {
			return out, fmt.Errorf("marshaling note end: %w", err)
		}
	}
	if out.categories, err = json.Marshal(nonNil(n.Categories)); err != nil {
		return out, fmt.Errorf("marshaling note categories: %w", err)
	}
	if out.remindUsers, err = json.Marshal(nonNil(n.RemindUsers)); err != nil {
		return out, fmt.Errorf("marshaling note reminders: %w", err)
	}
	return out, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// Create inserts a new note into the database.
func (r *noteRepository) Create(ctx context.Context, note *Note) error {
	enc, err := encodeNote(note)
	if err != nil {
		return err
	}

	query := `INSERT INTO calendar_notes
		(id, calendar_id, author, title, content, anchor, end_date, repeat_rule,
		 all_day, categories, player_visible, sort_order, remind_users)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = r.db.ExecContext(ctx, query,
		note.ID, note.CalendarID, note.Author, note.Title, note.Content,
		enc.anchor, enc.end, string(note.Repeat),
		note.AllDay, enc.categories, note.PlayerVisible, note.Order, enc.remindUsers,
	)
	if err != nil {
		return fmt.Errorf("inserting note: %w", err)
	}
	return nil
}

// FindByID retrieves a note by its ID.
func (r *noteRepository) FindByID(ctx context.Context, id string) (*Note, error) {
	query := `SELECT ` + noteColumns + ` FROM calendar_notes WHERE id = ?`
	n, err := scanNote(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NewNotFound("note not found")
	}
	if err != nil {
		return nil, err
	}
	return n, nil
}

// Update saves changes to an existing note.
func (r *noteRepository) Update(ctx context.Context, note *Note) error {
	enc, err := encodeNote(note)
	if err != nil {
		return err
	}

	query := `UPDATE calendar_notes
		SET title = ?, content = ?, anchor = ?, end_date = ?, repeat_rule = ?,
		    all_day = ?, categories = ?, player_visible = ?, remind_users = ?,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query,
		note.Title, note.Content, enc.anchor, enc.end, string(note.Repeat),
		note.AllDay, enc.categories, note.PlayerVisible, enc.remindUsers,
		note.ID,
	)
	if err != nil {
		return fmt.Errorf("updating note: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return apperror.NewNotFound("note not found")
	}
	return nil
}

// Delete removes a note from the database.
func (r *noteRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM calendar_notes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting note: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return apperror.NewNotFound("note not found")
	}
	return nil
}

// ListByCalendar returns all notes of a calendar.
func (r *noteRepository) ListByCalendar(ctx context.Context, calendarID string) ([]Note, error) {
	query := `SELECT ` + noteColumns + `
		FROM calendar_notes WHERE calendar_id = ?
		ORDER BY sort_order, created_at`

	rows, err := r.db.QueryContext(ctx, query, calendarID)
	if err != nil {
		return nil, fmt.Errorf("querying notes: %w", err)
	}
	defer rows.Close()

	var notes []Note
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, err
		}
		notes = append(notes, *n)
	}
	return notes, rows.Err()
}

// DeleteByCalendar removes every note of a calendar.
func (r *noteRepository) DeleteByCalendar(ctx context.Context, calendarID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM calendar_notes WHERE calendar_id = ?`, calendarID); err != nil {
		return fmt.Errorf("deleting calendar notes: %w", err)
	}
	return nil
}

// Reorder assigns sort_order from the position of each ID.
func (r *noteRepository) Reorder(ctx context.Context, calendarID string, ids []string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning reorder transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`UPDATE calendar_notes SET sort_order = ? WHERE id = ? AND calendar_id = ?`)
	if err != nil {
		return fmt.Errorf("preparing reorder: %w", err)
	}
	defer stmt.Close()

	for i, id := range ids {
		result, err := stmt.ExecContext(ctx, i, id, calendarID)
		if err != nil {
			return fmt.Errorf("reordering note %s: %w", id, err)
		}
		if rows, _ := result.RowsAffected(); rows == 0 {
			return apperror.NewBadRequest("note " + id + " does not belong to this calendar")
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing reorder: %w", err)
	}
	return nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanNote scans a single note row and decodes its JSON columns.
func scanNote(row rowScanner) (*Note, error) {
	n := &Note{}
	var repeat string
	var anchorRaw, endRaw, categoriesRaw, usersRaw []byte

	err := row.Scan(
		&n.ID, &n.CalendarID, &n.Author, &n.Title, &n.Content,
		&anchorRaw, &endRaw, &repeat, &n.AllDay, &categoriesRaw,
		&n.PlayerVisible, &n.Order, &usersRaw, &n.CreatedAt, &n.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scanning note: %w", err)
	}

	n.Repeat = calendar.Repeat(repeat)
	if err := json.Unmarshal(anchorRaw, &n.Anchor); err != nil {
		return nil, fmt.Errorf("unmarshaling note anchor: %w", err)
	}
	if len(endRaw) > 0 {
		var end calendar.DateTimeParts
		if err := json.Unmarshal(endRaw, &end); err != nil {
			return nil, fmt.Errorf("unmarshaling note end: %w", err)
		}
		n.End = &end
	}
	if len(categoriesRaw) > 0 {
		if err := json.Unmarshal(categoriesRaw, &n.Categories); err != nil {
			return nil, fmt.Errorf("unmarshaling note categories: %w", err)
		}
	}
	if len(usersRaw) > 0 {
		if err := json.Unmarshal(usersRaw, &n.RemindUsers); err != nil {
			return nil, fmt.Errorf("unmarshaling note reminders: %w", err)
		}
	}
	return n, nil
}
