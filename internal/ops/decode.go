package ops

import (
	"context"
	"database/sql"
	"strings"

	"github.com/misnaej/the-jam-machine/internal/codec"
	"github.com/misnaej/the-jam-machine/internal/config"
	"github.com/misnaej/the-jam-machine/internal/db"
	"github.com/misnaej/the-jam-machine/internal/errors"
)

// DecodeInput contains parameters for the Decode operation.
// Exactly one of ID and Tokens must be set.
type DecodeInput struct {
	// ID selects a stored piece to decode.
	ID string

	// Tokens is raw token text to decode directly.
	Tokens string

	// Output is the MIDI file to write. Required.
	Output string

	// Familize overrides the config's familize setting when non-nil.
	// Ignored when decoding a stored piece, which knows its own format.
	Familize *bool
}

// DecodeOutput contains the result of the Decode operation.
type DecodeOutput struct {
	Output      string             `json:"output"`
	TrackCount  int                `json:"track_count"`
	BarCount    int                `json:"bar_count"`
	NoteCount   int                `json:"note_count"`
	Diagnostics []codec.Diagnostic `json:"diagnostics,omitempty"`
}

// Decode parses token text back into tracks and renders them to a MIDI
// file. Recovered parse problems are returned as diagnostics, not
// errors; only a stream with no PIECE_START fails.
func Decode(ctx context.Context, database *sql.DB, cfg *config.Config, tok Tokenizer, input DecodeInput) (*DecodeOutput, error) {
	hasID := strings.TrimSpace(input.ID) != ""
	hasTokens := strings.TrimSpace(input.Tokens) != ""
	if hasID == hasTokens {
		return nil, errors.NewInvalidRequest("specify exactly one of id and tokens")
	}
	if strings.TrimSpace(input.Output) == "" {
		return nil, errors.NewInvalidRequest("output path is required")
	}
	if !isMIDIPath(input.Output) {
		return nil, errors.NewInvalidRequest("output must be a .mid or .midi file")
	}

	tokens := input.Tokens
	familize := input.Familize
	if hasID {
		stored, err := db.GetByID(ctx, database, strings.TrimSpace(input.ID), false)
		if err != nil {
			return nil, err
		}
		tokens = stored.Tokens
		familize = &stored.Familized
	}

	cc := codecConfig(cfg, familize)
	dec, err := codec.NewDecoder(cc)
	if err != nil {
		return nil, err
	}

	res, err := dec.Decode(tokens)
	if err != nil {
		return nil, err
	}

	if err := tok.Render(input.Output, res.Tracks, cc.UnitsPerBeat); err != nil {
		return nil, errors.NewInternal(err)
	}

	return &DecodeOutput{
		Output:      input.Output,
		TrackCount:  len(res.Tracks),
		BarCount:    res.Piece.BarCount(),
		NoteCount:   res.Piece.NoteOnCount(),
		Diagnostics: res.Diagnostics,
	}, nil
}
