package db

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/misnaej/the-jam-machine/internal/errors"
)

var ctx = context.Background()

func testDB(t *testing.T) *sql.DB {
	t.Helper()
	database, err := Init(t.TempDir())
	if err != nil {
		t.Fatalf("Init() error: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return database
}

func testPiece(id, name string) *Piece {
	now := time.Now().Unix()
	return &Piece{
		ID:         id,
		Name:       name,
		Tokens:     "PIECE_START TRACK_START INST=0 DENSITY=1 BAR_START TIME_DELTA=16 BAR_END TRACK_END",
		TrackCount: 1,
		BarCount:   1,
		NoteCount:  0,
		Density:    map[int]int{1: 1},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func TestInsertAndGetByID(t *testing.T) {
	database := testDB(t)

	p := testPiece("01JTEST0000000000000000001", "first jam")
	src := "/tmp/first.mid"
	p.Source = &src

	if err := Insert(ctx, database, p); err != nil {
		t.Fatalf("Insert() error: %v", err)
	}

	got, err := GetByID(ctx, database, p.ID, false)
	if err != nil {
		t.Fatalf("GetByID() error: %v", err)
	}
	if got.Name != "first jam" || got.Tokens != p.Tokens {
		t.Errorf("GetByID() = %+v, want inserted piece", got)
	}
	if got.Source == nil || *got.Source != src {
		t.Errorf("Source = %v, want %q", got.Source, src)
	}
	if got.Density[1] != 1 {
		t.Errorf("Density = %v, want map[1:1]", got.Density)
	}
}

func TestGetByID_NotFound(t *testing.T) {
	database := testDB(t)

	_, err := GetByID(ctx, database, "nope", false)
	if !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("GetByID(missing) error = %v, want NOT_FOUND", err)
	}
}

func TestInsert_DuplicateID(t *testing.T) {
	database := testDB(t)

	p := testPiece("01JTEST0000000000000000001", "dup")
	if err := Insert(ctx, database, p); err != nil {
		t.Fatalf("Insert() error: %v", err)
	}
	if err := Insert(ctx, database, p); err != ErrUniqueConstraint {
		t.Errorf("second Insert() error = %v, want ErrUniqueConstraint", err)
	}
}

func TestList_OrderAndFilter(t *testing.T) {
	database := testDB(t)

	a := testPiece("01JTEST0000000000000000001", "slow blues")
	a.UpdatedAt = 100
	b := testPiece("01JTEST0000000000000000002", "fast blues")
	b.UpdatedAt = 200
	c := testPiece("01JTEST0000000000000000003", "waltz")
	c.UpdatedAt = 300
	for _, p := range []*Piece{a, b, c} {
		if err := Insert(ctx, database, p); err != nil {
			t.Fatalf("Insert(%s) error: %v", p.Name, err)
		}
	}

	all, err := List(ctx, database, "", 0)
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("List() returned %d pieces, want 3", len(all))
	}
	if all[0].Name != "waltz" || all[2].Name != "slow blues" {
		t.Errorf("List() not ordered by updated_at DESC: %s, %s, %s",
			all[0].Name, all[1].Name, all[2].Name)
	}

	blues, err := List(ctx, database, "blues", 0)
	if err != nil {
		t.Fatalf("List(filter) error: %v", err)
	}
	if len(blues) != 2 {
		t.Errorf("List(\"blues\") returned %d pieces, want 2", len(blues))
	}

	limited, err := List(ctx, database, "", 1)
	if err != nil {
		t.Fatalf("List(limit) error: %v", err)
	}
	if len(limited) != 1 {
		t.Errorf("List(limit 1) returned %d pieces, want 1", len(limited))
	}
}

func TestUpdateNotes(t *testing.T) {
	database := testDB(t)

	p := testPiece("01JTEST0000000000000000001", "annotated")
	if err := Insert(ctx, database, p); err != nil {
		t.Fatalf("Insert() error: %v", err)
	}

	notes := "# Session notes\n\nRecorded at *midnight*."
	if err := UpdateNotes(ctx, database, p.ID, &notes); err != nil {
		t.Fatalf("UpdateNotes() error: %v", err)
	}

	got, err := GetByID(ctx, database, p.ID, false)
	if err != nil {
		t.Fatalf("GetByID() error: %v", err)
	}
	if got.Notes == nil || *got.Notes != notes {
		t.Errorf("Notes = %v, want %q", got.Notes, notes)
	}

	if err := UpdateNotes(ctx, database, "missing", &notes); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("UpdateNotes(missing) error = %v, want NOT_FOUND", err)
	}
}

func TestSoftDelete(t *testing.T) {
	database := testDB(t)

	p := testPiece("01JTEST0000000000000000001", "ephemeral")
	if err := Insert(ctx, database, p); err != nil {
		t.Fatalf("Insert() error: %v", err)
	}
	if err := SoftDelete(ctx, database, p.ID); err != nil {
		t.Fatalf("SoftDelete() error: %v", err)
	}

	if _, err := GetByID(ctx, database, p.ID, false); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("GetByID(deleted) error = %v, want NOT_FOUND", err)
	}

	got, err := GetByID(ctx, database, p.ID, true)
	if err != nil {
		t.Fatalf("GetByID(includeDeleted) error: %v", err)
	}
	if got.DeletedAt == nil {
		t.Error("DeletedAt should be set after soft delete")
	}

	if err := SoftDelete(ctx, database, p.ID); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("second SoftDelete() error = %v, want NOT_FOUND", err)
	}
}

func TestGetTotals(t *testing.T) {
	database := testDB(t)

	a := testPiece("01JTEST0000000000000000001", "a")
	a.TrackCount, a.BarCount, a.NoteCount = 2, 16, 40
	b := testPiece("01JTEST0000000000000000002", "b")
	b.Familized = true
	b.TrackCount, b.BarCount, b.NoteCount = 1, 8, 12
	for _, p := range []*Piece{a, b} {
		if err := Insert(ctx, database, p); err != nil {
			t.Fatalf("Insert() error: %v", err)
		}
	}

	totals, err := GetTotals(ctx, database)
	if err != nil {
		t.Fatalf("GetTotals() error: %v", err)
	}
	if totals.Pieces != 2 || totals.Familized != 1 {
		t.Errorf("totals = %+v, want 2 pieces, 1 familized", totals)
	}
	if totals.Tracks != 3 || totals.Bars != 24 || totals.Notes != 52 {
		t.Errorf("totals = %+v, want tracks 3, bars 24, notes 52", totals)
	}

	// Deleted pieces drop out of the totals.
	if err := SoftDelete(ctx, database, a.ID); err != nil {
		t.Fatalf("SoftDelete() error: %v", err)
	}
	totals, err = GetTotals(ctx, database)
	if err != nil {
		t.Fatalf("GetTotals() error: %v", err)
	}
	if totals.Pieces != 1 || totals.Tracks != 1 {
		t.Errorf("totals after delete = %+v, want 1 piece, 1 track", totals)
	}
}
