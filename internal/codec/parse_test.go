package codec

import (
	"testing"

	"github.com/misnaej/the-jam-machine/internal/errors"
	"github.com/misnaej/the-jam-machine/internal/event"
)

func hasDiag(diags []Diagnostic, code errors.ErrorCode) bool {
	for _, d := range diags {
		if d.Code == code {
			return true
		}
	}
	return false
}

func TestParse_WellFormed(t *testing.T) {
	text := "PIECE_START" +
		" TRACK_START INST=30 DENSITY=2" +
		" BAR_START NOTE_ON=60 TIME_DELTA=8 NOTE_OFF=60 BAR_END" +
		" BAR_START TIME_DELTA=16 BAR_END" +
		" TRACK_END" +
		" TRACK_START INST=DRUMS DENSITY=3" +
		" BAR_START NOTE_ON=36 NOTE_OFF=36 BAR_END" +
		" TRACK_END"

	piece, diags, err := Parse(DefaultConfig(), text)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if len(diags) != 0 {
		t.Errorf("Parse() diagnostics = %v, want none", diags)
	}
	if len(piece.Sections) != 2 {
		t.Fatalf("Parse() produced %d sections, want 2", len(piece.Sections))
	}

	first := piece.Sections[0]
	if first.Instrument.Program != 30 || first.Instrument.IsDrum {
		t.Errorf("section 0 instrument = %+v, want program 30", first.Instrument)
	}
	if first.Density != DensityMedium {
		t.Errorf("section 0 density = %d, want %d", first.Density, DensityMedium)
	}
	if len(first.Bars) != 2 {
		t.Fatalf("section 0 has %d bars, want 2", len(first.Bars))
	}
	wantBar := []event.Event{
		{Kind: event.NoteOn, Value: 60},
		event.Rest(8),
		{Kind: event.NoteOff, Value: 60},
	}
	if len(first.Bars[0].Events) != len(wantBar) {
		t.Fatalf("bar 0 has %d events, want %d", len(first.Bars[0].Events), len(wantBar))
	}
	for i, ev := range first.Bars[0].Events {
		if ev != wantBar[i] {
			t.Errorf("bar 0 event %d = %v, want %v", i, ev, wantBar[i])
		}
	}

	second := piece.Sections[1]
	if !second.Instrument.IsDrum {
		t.Errorf("section 1 should be drums, got %+v", second.Instrument)
	}
	if first.TrackID != 0 || second.TrackID != 1 {
		t.Errorf("track ids = %d, %d, want 0, 1", first.TrackID, second.TrackID)
	}
}

func TestParse_NoPieceStart(t *testing.T) {
	for _, text := range []string{"", "   ", "TRACK_START INST=0 DENSITY=1"} {
		_, _, err := Parse(DefaultConfig(), text)
		if !errors.Is(err, errors.ErrEmptyStream) {
			t.Errorf("Parse(%q) error = %v, want EMPTY_STREAM", text, err)
		}
	}
}

func TestParse_TruncatedInsideBar(t *testing.T) {
	// Truncation mid-generation: the open bar is dropped, completed bars
	// and the enclosing track survive.
	text := "PIECE_START TRACK_START INST=30 DENSITY=2" +
		" BAR_START NOTE_ON=60 TIME_DELTA=16 NOTE_OFF=60 BAR_END" +
		" BAR_START NOTE_ON=62"

	piece, diags, err := Parse(DefaultConfig(), text)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if !hasDiag(diags, errors.ErrIncompleteBar) {
		t.Errorf("diagnostics = %v, want INCOMPLETE_BAR", diags)
	}
	if len(piece.Sections) != 1 {
		t.Fatalf("Parse() produced %d sections, want 1", len(piece.Sections))
	}
	if len(piece.Sections[0].Bars) != 1 {
		t.Errorf("section has %d bars, want 1 (open bar dropped)", len(piece.Sections[0].Bars))
	}
}

func TestParse_TruncatedInsideTrack(t *testing.T) {
	text := "PIECE_START TRACK_START INST=30 DENSITY=2" +
		" BAR_START TIME_DELTA=16 BAR_END"

	piece, diags, err := Parse(DefaultConfig(), text)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if !hasDiag(diags, errors.ErrIncompleteTrack) {
		t.Errorf("diagnostics = %v, want INCOMPLETE_TRACK", diags)
	}
	if len(piece.Sections) != 1 || len(piece.Sections[0].Bars) != 1 {
		t.Errorf("truncated track should keep its completed bar")
	}
}

func TestParse_UnknownTokenInBar(t *testing.T) {
	// The malformed bar is skipped; the rest of the track still parses.
	text := "PIECE_START TRACK_START INST=30 DENSITY=1" +
		" BAR_START NOTE_ON=60 GARBAGE TIME_DELTA=16 BAR_END" +
		" BAR_START TIME_DELTA=16 BAR_END" +
		" TRACK_END"

	piece, diags, err := Parse(DefaultConfig(), text)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if !hasDiag(diags, errors.ErrMalformedGrammar) {
		t.Errorf("diagnostics = %v, want MALFORMED_GRAMMAR", diags)
	}
	if len(piece.Sections) != 1 {
		t.Fatalf("Parse() produced %d sections, want 1", len(piece.Sections))
	}
	if len(piece.Sections[0].Bars) != 1 {
		t.Errorf("section has %d bars, want 1 (malformed bar skipped)", len(piece.Sections[0].Bars))
	}
}

func TestParse_UnknownInstrumentSkipsTrack(t *testing.T) {
	text := "PIECE_START" +
		" TRACK_START INST=banjo DENSITY=1 BAR_START TIME_DELTA=16 BAR_END TRACK_END" +
		" TRACK_START INST=5 DENSITY=1 BAR_START TIME_DELTA=16 BAR_END TRACK_END"

	piece, diags, err := Parse(DefaultConfig(), text)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if !hasDiag(diags, errors.ErrUnknownInstrument) {
		t.Errorf("diagnostics = %v, want UNKNOWN_INSTRUMENT", diags)
	}
	if len(piece.Sections) != 1 {
		t.Fatalf("Parse() produced %d sections, want 1 (bad track skipped)", len(piece.Sections))
	}
	if piece.Sections[0].Instrument.Program != 5 {
		t.Errorf("surviving section program = %d, want 5", piece.Sections[0].Instrument.Program)
	}
}

func TestParse_InvalidDensity(t *testing.T) {
	for _, val := range []string{"0", "4", "-1", "high"} {
		text := "PIECE_START TRACK_START INST=0 DENSITY=" + val +
			" BAR_START TIME_DELTA=16 BAR_END TRACK_END"
		piece, diags, err := Parse(DefaultConfig(), text)
		if err != nil {
			t.Fatalf("Parse(DENSITY=%s) error: %v", val, err)
		}
		if !hasDiag(diags, errors.ErrInvalidDensity) {
			t.Errorf("DENSITY=%s: diagnostics = %v, want INVALID_DENSITY", val, diags)
		}
		if len(piece.Sections) != 0 {
			t.Errorf("DENSITY=%s: %d sections survived, want 0", val, len(piece.Sections))
		}
	}
}

func TestParse_DuplicateEventReportedButKept(t *testing.T) {
	text := "PIECE_START TRACK_START INST=0 DENSITY=2" +
		" BAR_START NOTE_ON=60 NOTE_ON=60 TIME_DELTA=16 BAR_END TRACK_END"

	piece, diags, err := Parse(DefaultConfig(), text)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if !hasDiag(diags, errors.ErrDuplicateEvent) {
		t.Errorf("diagnostics = %v, want DUPLICATE_EVENT", diags)
	}
	if got := piece.Sections[0].Bars[0].NoteOnCount(); got != 2 {
		t.Errorf("bar note-on count = %d, want 2 (duplicate kept)", got)
	}
}

func TestParse_RepeatedPieceStartKeepsSections(t *testing.T) {
	text := "PIECE_START" +
		" TRACK_START INST=0 DENSITY=1 BAR_START TIME_DELTA=16 BAR_END TRACK_END" +
		" PIECE_START" +
		" TRACK_START INST=1 DENSITY=1 BAR_START TIME_DELTA=16 BAR_END TRACK_END"

	piece, _, err := Parse(DefaultConfig(), text)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if len(piece.Sections) != 2 {
		t.Fatalf("Parse() produced %d sections, want 2", len(piece.Sections))
	}
	if piece.Sections[0].TrackID != 0 || piece.Sections[1].TrackID != 1 {
		t.Errorf("track ids not strictly increasing across PIECE_START reset")
	}
}

func TestParse_FamilizedInstrumentVocabulary(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Familize = true

	// Family number 3 is valid; 20 is outside the 16-family vocabulary.
	text := "PIECE_START TRACK_START INST=3 DENSITY=1 BAR_START TIME_DELTA=16 BAR_END TRACK_END"
	piece, _, err := Parse(cfg, text)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if !piece.Sections[0].Instrument.Familized || piece.Sections[0].Instrument.Program != 3 {
		t.Errorf("instrument = %+v, want familized 3", piece.Sections[0].Instrument)
	}

	text = "PIECE_START TRACK_START INST=20 DENSITY=1 BAR_START TIME_DELTA=16 BAR_END TRACK_END"
	piece, diags, err := Parse(cfg, text)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if !hasDiag(diags, errors.ErrUnknownInstrument) {
		t.Errorf("diagnostics = %v, want UNKNOWN_INSTRUMENT for INST=20", diags)
	}
	if len(piece.Sections) != 0 {
		t.Errorf("%d sections survived, want 0", len(piece.Sections))
	}
}

func TestParse_BarDensityRecomputed(t *testing.T) {
	// Bar density comes from the parsed note-on count, not the header.
	text := "PIECE_START TRACK_START INST=0 DENSITY=3" +
		" BAR_START NOTE_ON=60 TIME_DELTA=16 NOTE_OFF=60 BAR_END TRACK_END"

	piece, _, err := Parse(DefaultConfig(), text)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if piece.Sections[0].Density != DensityHigh {
		t.Errorf("section density = %d, want header value 3", piece.Sections[0].Density)
	}
	if piece.Sections[0].Bars[0].Density != DensityLow {
		t.Errorf("bar density = %d, want recomputed 1", piece.Sections[0].Bars[0].Density)
	}
}

func TestParse_HeaderlessTrackDropped(t *testing.T) {
	// TRACK_END with no INST/DENSITY header carries no usable section;
	// it must be dropped with a diagnostic, never emitted with zero
	// density and a phantom piano instrument.
	text := "PIECE_START TRACK_START TRACK_END"

	piece, diags, err := Parse(DefaultConfig(), text)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if !hasDiag(diags, errors.ErrMalformedGrammar) {
		t.Errorf("diagnostics = %v, want MALFORMED_GRAMMAR", diags)
	}
	if len(piece.Sections) != 0 {
		t.Fatalf("%d sections survived, want 0", len(piece.Sections))
	}
}

func TestParse_TruncatedHeaderlessTrackDropped(t *testing.T) {
	// Same for EOF before the header completes: the truncation is
	// reported, but no section is fabricated for the empty track.
	text := "PIECE_START TRACK_START"

	piece, diags, err := Parse(DefaultConfig(), text)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if !hasDiag(diags, errors.ErrIncompleteTrack) {
		t.Errorf("diagnostics = %v, want INCOMPLETE_TRACK", diags)
	}
	if len(piece.Sections) != 0 {
		t.Fatalf("%d sections survived, want 0", len(piece.Sections))
	}
}

func TestParse_HeaderlessTrackRecovery(t *testing.T) {
	// A dropped headerless track must not take the following valid
	// track with it.
	text := "PIECE_START" +
		" TRACK_START INST=12 TRACK_END" +
		" TRACK_START INST=5 DENSITY=1 BAR_START TIME_DELTA=16 BAR_END TRACK_END"

	piece, diags, err := Parse(DefaultConfig(), text)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if !hasDiag(diags, errors.ErrMalformedGrammar) {
		t.Errorf("diagnostics = %v, want MALFORMED_GRAMMAR", diags)
	}
	if len(piece.Sections) != 1 {
		t.Fatalf("Parse() produced %d sections, want 1", len(piece.Sections))
	}
	if piece.Sections[0].Instrument.Program != 5 || piece.Sections[0].TrackID != 0 {
		t.Errorf("surviving section = %+v, want program 5 with track id 0", piece.Sections[0])
	}
}

func TestParse_HeaderOutOfOrder(t *testing.T) {
	// BAR_START before the header completes discards the track.
	text := "PIECE_START TRACK_START INST=0" +
		" BAR_START TIME_DELTA=16 BAR_END TRACK_END"

	piece, diags, err := Parse(DefaultConfig(), text)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if !hasDiag(diags, errors.ErrMalformedGrammar) {
		t.Errorf("diagnostics = %v, want MALFORMED_GRAMMAR", diags)
	}
	if len(piece.Sections) != 0 {
		t.Errorf("%d sections survived, want 0", len(piece.Sections))
	}
}
