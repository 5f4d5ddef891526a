package ops

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/misnaej/the-jam-machine/internal/config"
	"github.com/misnaej/the-jam-machine/internal/db"
	"github.com/misnaej/the-jam-machine/internal/errors"
	"github.com/misnaej/the-jam-machine/internal/event"
)

var ctx = context.Background()

// fakeTokenizer serves canned tracks and records renders, keeping the
// ops tests free of real MIDI files.
type fakeTokenizer struct {
	tracks   map[string][]event.Track
	rendered map[string][]event.Track
}

func newFakeTokenizer() *fakeTokenizer {
	return &fakeTokenizer{
		tracks:   make(map[string][]event.Track),
		rendered: make(map[string][]event.Track),
	}
}

func (f *fakeTokenizer) Tokenize(path string, unitsPerBeat int) ([]event.Track, error) {
	tracks, ok := f.tracks[path]
	if !ok {
		return nil, fmt.Errorf("cannot read %s", path)
	}
	return tracks, nil
}

func (f *fakeTokenizer) Render(path string, tracks []event.Track, unitsPerBeat int) error {
	f.rendered[path] = tracks
	return nil
}

func simpleTracks() []event.Track {
	return []event.Track{{Program: 0, Events: []event.Event{
		event.Note(60, 99),
		event.Rest(8),
		event.NoteEnd(60),
	}}}
}

func setup(t *testing.T) (*sql.DB, *config.Config, *fakeTokenizer) {
	t.Helper()
	database, err := db.Init(t.TempDir())
	if err != nil {
		t.Fatalf("db.Init() error: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return database, config.DefaultConfig(), newFakeTokenizer()
}

func TestEncode_Validation(t *testing.T) {
	database, cfg, tok := setup(t)

	if _, err := Encode(ctx, database, cfg, tok, EncodeInput{}); !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("Encode(no path) error = %v, want INVALID_REQUEST", err)
	}
	if _, err := Encode(ctx, database, cfg, tok, EncodeInput{Path: "song.wav"}); !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("Encode(.wav) error = %v, want INVALID_REQUEST", err)
	}
	if _, err := Encode(ctx, database, cfg, tok, EncodeInput{Path: "missing.mid"}); !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("Encode(unreadable) error = %v, want INVALID_REQUEST", err)
	}
}

func TestEncode_WithoutStore(t *testing.T) {
	database, cfg, tok := setup(t)
	tok.tracks["/music/riff.mid"] = simpleTracks()

	out, err := Encode(ctx, database, cfg, tok, EncodeInput{Path: "/music/riff.mid"})
	if err != nil {
		t.Fatalf("Encode() error: %v", err)
	}
	if out.ID != nil {
		t.Error("unstored encode should not carry an id")
	}
	if out.Name != "riff" {
		t.Errorf("Name = %q, want %q (derived from path)", out.Name, "riff")
	}
	if out.TrackCount != 1 || out.BarCount != 1 || out.NoteCount != 1 {
		t.Errorf("summary = %d tracks, %d bars, %d notes; want 1, 1, 1",
			out.TrackCount, out.BarCount, out.NoteCount)
	}
	if out.Density[1] != 1 {
		t.Errorf("Density = %v, want map[1:1]", out.Density)
	}

	// Nothing was persisted.
	listed, err := List(ctx, database, cfg, ListInput{})
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if listed.Count != 0 {
		t.Errorf("List() count = %d, want 0", listed.Count)
	}
}

func TestEncode_StoreAndFetch(t *testing.T) {
	database, cfg, tok := setup(t)
	tok.tracks["/music/riff.mid"] = simpleTracks()

	notes := "First take, *keeper*."
	out, err := Encode(ctx, database, cfg, tok, EncodeInput{
		Path:  "/music/riff.mid",
		Name:  "the riff",
		Store: true,
		Notes: &notes,
	})
	if err != nil {
		t.Fatalf("Encode() error: %v", err)
	}
	if out.ID == nil {
		t.Fatal("stored encode should carry an id")
	}

	fetched, err := Fetch(ctx, database, cfg, FetchInput{ID: *out.ID})
	if err != nil {
		t.Fatalf("Fetch() error: %v", err)
	}
	if fetched.Piece.Name != "the riff" || fetched.Piece.Tokens != out.Tokens {
		t.Errorf("fetched piece = %+v, want stored encode", fetched.Piece)
	}
	if fetched.Piece.Notes == nil || *fetched.Piece.Notes != notes {
		t.Errorf("Notes = %v, want %q", fetched.Piece.Notes, notes)
	}
}

func TestDecode_FromTokens(t *testing.T) {
	database, cfg, tok := setup(t)

	text := "PIECE_START TRACK_START INST=0 DENSITY=1" +
		" BAR_START NOTE_ON=60 TIME_DELTA=8 NOTE_OFF=60 BAR_END TRACK_END"

	out, err := Decode(ctx, database, cfg, tok, DecodeInput{Tokens: text, Output: "/tmp/out.mid"})
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	if out.TrackCount != 1 || out.NoteCount != 1 {
		t.Errorf("summary = %d tracks, %d notes; want 1, 1", out.TrackCount, out.NoteCount)
	}
	if len(out.Diagnostics) != 0 {
		t.Errorf("diagnostics = %v, want none", out.Diagnostics)
	}

	rendered, ok := tok.rendered["/tmp/out.mid"]
	if !ok {
		t.Fatal("Decode() should render to the output path")
	}
	if len(rendered) != 1 || rendered[0].NoteOnCount() != 1 {
		t.Errorf("rendered tracks = %v, want one track with one note", rendered)
	}
}

func TestDecode_FromStoredPiece(t *testing.T) {
	database, cfg, tok := setup(t)
	tok.tracks["/music/riff.mid"] = simpleTracks()

	stored, err := Encode(ctx, database, cfg, tok, EncodeInput{Path: "/music/riff.mid", Store: true})
	if err != nil {
		t.Fatalf("Encode() error: %v", err)
	}

	out, err := Decode(ctx, database, cfg, tok, DecodeInput{ID: *stored.ID, Output: "/tmp/riff.mid"})
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	if out.TrackCount != 1 {
		t.Errorf("TrackCount = %d, want 1", out.TrackCount)
	}
	if _, ok := tok.rendered["/tmp/riff.mid"]; !ok {
		t.Error("Decode() should render the stored piece")
	}
}

func TestDecode_Validation(t *testing.T) {
	database, cfg, tok := setup(t)

	cases := []DecodeInput{
		{},                                      // neither id nor tokens
		{ID: "x", Tokens: "PIECE_START"},        // both
		{Tokens: "PIECE_START"},                 // no output
		{Tokens: "PIECE_START", Output: "a.txt"}, // wrong extension
	}
	for i, input := range cases {
		if _, err := Decode(ctx, database, cfg, tok, input); !errors.Is(err, errors.ErrInvalidRequest) {
			t.Errorf("case %d: error = %v, want INVALID_REQUEST", i, err)
		}
	}

	if _, err := Decode(ctx, database, cfg, tok, DecodeInput{ID: "missing", Output: "a.mid"}); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("Decode(missing id) error = %v, want NOT_FOUND", err)
	}

	if _, err := Decode(ctx, database, cfg, tok, DecodeInput{Tokens: "junk tokens", Output: "a.mid"}); !errors.Is(err, errors.ErrEmptyStream) {
		t.Errorf("Decode(no PIECE_START) error = %v, want EMPTY_STREAM", err)
	}
}

func TestDelete(t *testing.T) {
	database, cfg, tok := setup(t)
	tok.tracks["/music/riff.mid"] = simpleTracks()

	stored, err := Encode(ctx, database, cfg, tok, EncodeInput{Path: "/music/riff.mid", Store: true})
	if err != nil {
		t.Fatalf("Encode() error: %v", err)
	}

	out, err := Delete(ctx, database, cfg, DeleteInput{ID: *stored.ID})
	if err != nil {
		t.Fatalf("Delete() error: %v", err)
	}
	if !out.Deleted {
		t.Error("Deleted should be true")
	}

	if _, err := Fetch(ctx, database, cfg, FetchInput{ID: *stored.ID}); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("Fetch(deleted) error = %v, want NOT_FOUND", err)
	}
	if _, err := Delete(ctx, database, cfg, DeleteInput{ID: *stored.ID}); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("second Delete() error = %v, want NOT_FOUND", err)
	}
}

func TestAnnotate(t *testing.T) {
	database, cfg, tok := setup(t)
	tok.tracks["/music/riff.mid"] = simpleTracks()

	stored, err := Encode(ctx, database, cfg, tok, EncodeInput{Path: "/music/riff.mid", Store: true})
	if err != nil {
		t.Fatalf("Encode() error: %v", err)
	}

	out, err := Annotate(ctx, database, cfg, AnnotateInput{ID: *stored.ID, Notes: "## Mix\nToo much reverb."})
	if err != nil {
		t.Fatalf("Annotate() error: %v", err)
	}
	if out.Cleared {
		t.Error("setting notes should not report cleared")
	}

	fetched, _ := Fetch(ctx, database, cfg, FetchInput{ID: *stored.ID})
	if fetched.Piece.Notes == nil {
		t.Fatal("notes not persisted")
	}

	out, err = Annotate(ctx, database, cfg, AnnotateInput{ID: *stored.ID})
	if err != nil {
		t.Fatalf("Annotate(clear) error: %v", err)
	}
	if !out.Cleared {
		t.Error("clearing notes should report cleared")
	}
	fetched, _ = Fetch(ctx, database, cfg, FetchInput{ID: *stored.ID})
	if fetched.Piece.Notes != nil {
		t.Error("notes should be cleared")
	}
}
