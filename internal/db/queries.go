package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/misnaej/the-jam-machine/internal/errors"
)

// ErrUniqueConstraint is returned when an insert violates a UNIQUE constraint.
var ErrUniqueConstraint = &errors.JamError{
	Code:    "UNIQUE_CONSTRAINT",
	Status:  409,
	Message: "unique constraint violation",
}

// Piece is one stored encoding: the token text plus the summary columns
// the list and stats queries filter on.
type Piece struct {
	ID   string `json:"id"`
	Name string `json:"name"`

	// Source is the path of the MIDI file the piece was encoded from,
	// when known.
	Source *string `json:"source,omitempty"`

	// Tokens is the full encoded token text.
	Tokens string `json:"tokens"`

	// Familized records whether INST values are family numbers.
	Familized bool `json:"familized"`

	TrackCount int `json:"track_count"`
	BarCount   int `json:"bar_count"`
	NoteCount  int `json:"note_count"`

	// Density maps density class (1-3) to the number of sections in it.
	Density map[int]int `json:"density,omitempty"`

	// Notes is free-form markdown shown on the piece's web page.
	Notes *string `json:"notes,omitempty"`

	CreatedAt int64  `json:"created_at"`
	UpdatedAt int64  `json:"updated_at"`
	DeletedAt *int64 `json:"deleted_at,omitempty"`
}

// Insert stores a new piece in the database.
func Insert(ctx context.Context, db *sql.DB, p *Piece) error {
	var densityJSON sql.NullString
	if len(p.Density) > 0 {
		data, err := json.Marshal(p.Density)
		if err != nil {
			return errors.NewInternal(err)
		}
		densityJSON = sql.NullString{String: string(data), Valid: true}
	}

	query := `
		INSERT INTO pieces (
			id, name, source, tokens, familized,
			track_count, bar_count, note_count,
			density_json, notes, created_at, updated_at, deleted_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NULL)
	`

	_, err := db.ExecContext(ctx, query,
		p.ID, p.Name, toNullString(p.Source), p.Tokens, p.Familized,
		p.TrackCount, p.BarCount, p.NoteCount,
		densityJSON, toNullString(p.Notes), p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrUniqueConstraint
		}
		return errors.NewInternal(err)
	}

	return nil
}

// isUniqueConstraintError checks if the error is a SQLite UNIQUE constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	// SQLite returns "UNIQUE constraint failed: ..." for unique violations
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

const pieceColumns = `id, name, source, tokens, familized,
	track_count, bar_count, note_count,
	density_json, notes, created_at, updated_at, deleted_at`

// GetByID retrieves a piece by its ULID.
// If includeDeleted is false, soft-deleted pieces are excluded.
func GetByID(ctx context.Context, db *sql.DB, id string, includeDeleted bool) (*Piece, error) {
	query := "SELECT " + pieceColumns + " FROM pieces WHERE id = ?"
	if !includeDeleted {
		query += " AND deleted_at IS NULL"
	}

	p, err := scanPiece(db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound(id)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return p, nil
}

// List returns active pieces ordered by most recently updated. A
// non-empty nameFilter matches names by substring; limit <= 0 means no
// limit.
func List(ctx context.Context, db *sql.DB, nameFilter string, limit int) ([]*Piece, error) {
	query := "SELECT " + pieceColumns + " FROM pieces WHERE deleted_at IS NULL"
	var args []any
	if nameFilter != "" {
		query += " AND name LIKE ?"
		args = append(args, "%"+nameFilter+"%")
	}
	query += " ORDER BY updated_at DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	var pieces []*Piece
	for rows.Next() {
		p, err := scanPiece(rows)
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		pieces = append(pieces, p)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return pieces, nil
}

// UpdateNotes replaces a piece's markdown notes.
// Sets updated_at to current timestamp.
func UpdateNotes(ctx context.Context, db *sql.DB, id string, notes *string) error {
	now := time.Now().Unix()

	query := `
		UPDATE pieces
		SET notes = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`
	result, err := db.ExecContext(ctx, query, toNullString(notes), now, id)
	if err != nil {
		return errors.NewInternal(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.NewInternal(err)
	}
	if rowsAffected == 0 {
		return errors.NewNotFound(id)
	}
	return nil
}

// SoftDelete marks a piece as deleted by setting deleted_at.
func SoftDelete(ctx context.Context, db *sql.DB, id string) error {
	now := time.Now().Unix()

	query := `
		UPDATE pieces
		SET deleted_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`
	result, err := db.ExecContext(ctx, query, now, id)
	if err != nil {
		return errors.NewInternal(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.NewInternal(err)
	}
	if rowsAffected == 0 {
		return errors.NewNotFound(id)
	}
	return nil
}

// Totals aggregates the active pieces for the stats operation.
type Totals struct {
	Pieces    int `json:"pieces"`
	Familized int `json:"familized"`
	Tracks    int `json:"tracks"`
	Bars      int `json:"bars"`
	Notes     int `json:"notes"`
}

// GetTotals returns aggregate counts over active pieces.
func GetTotals(ctx context.Context, db *sql.DB) (*Totals, error) {
	query := `
		SELECT COUNT(*),
			COALESCE(SUM(familized), 0),
			COALESCE(SUM(track_count), 0),
			COALESCE(SUM(bar_count), 0),
			COALESCE(SUM(note_count), 0)
		FROM pieces
		WHERE deleted_at IS NULL
	`
	var t Totals
	err := db.QueryRowContext(ctx, query).Scan(&t.Pieces, &t.Familized, &t.Tracks, &t.Bars, &t.Notes)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return &t, nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// scanPiece scans a single row into a Piece struct.
func scanPiece(row scanner) (*Piece, error) {
	var (
		p           Piece
		source      sql.NullString
		densityJSON sql.NullString
		notes       sql.NullString
		deletedAt   sql.NullInt64
	)

	err := row.Scan(
		&p.ID, &p.Name, &source, &p.Tokens, &p.Familized,
		&p.TrackCount, &p.BarCount, &p.NoteCount,
		&densityJSON, &notes, &p.CreatedAt, &p.UpdatedAt, &deletedAt,
	)
	if err != nil {
		return nil, err
	}

	p.Source = fromNullString(source)
	p.Notes = fromNullString(notes)
	if deletedAt.Valid {
		p.DeletedAt = &deletedAt.Int64
	}
	if densityJSON.Valid && densityJSON.String != "" {
		if err := json.Unmarshal([]byte(densityJSON.String), &p.Density); err != nil {
			return nil, err
		}
	}

	return &p, nil
}

// toNullString converts a *string to sql.NullString.
func toNullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// fromNullString converts a sql.NullString to *string.
func fromNullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return &ns.String
}
