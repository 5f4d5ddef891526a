package ops

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/misnaej/the-jam-machine/internal/codec"
	"github.com/misnaej/the-jam-machine/internal/config"
	"github.com/misnaej/the-jam-machine/internal/db"
	"github.com/misnaej/the-jam-machine/internal/errors"
)

// EncodeInput contains parameters for the Encode operation.
type EncodeInput struct {
	// Path is the MIDI file to encode. Required.
	Path string

	// Name labels the stored piece; defaults to the file's base name.
	Name string

	// Familize overrides the config's familize setting when non-nil.
	Familize *bool

	// Store persists the result; without it Encode is a pure conversion.
	Store bool

	// Notes is optional markdown attached to the stored piece.
	Notes *string
}

// EncodeOutput contains the result of the Encode operation.
type EncodeOutput struct {
	// ID is set when the piece was stored.
	ID *string `json:"id,omitempty"`

	Name       string      `json:"name"`
	Tokens     string      `json:"tokens"`
	Familized  bool        `json:"familized"`
	TrackCount int         `json:"track_count"`
	BarCount   int         `json:"bar_count"`
	NoteCount  int         `json:"note_count"`
	Density    map[int]int `json:"density,omitempty"`
}

// Encode tokenizes a MIDI file and encodes it to token text, optionally
// storing the result.
func Encode(ctx context.Context, database *sql.DB, cfg *config.Config, tok Tokenizer, input EncodeInput) (*EncodeOutput, error) {
	if strings.TrimSpace(input.Path) == "" {
		return nil, errors.NewInvalidRequest("path is required")
	}
	if !isMIDIPath(input.Path) {
		return nil, errors.NewInvalidRequest("path must be a .mid or .midi file")
	}

	cc := codecConfig(cfg, input.Familize)
	enc, err := codec.NewEncoder(cc)
	if err != nil {
		return nil, err
	}

	tracks, err := tok.Tokenize(input.Path, cc.UnitsPerBeat)
	if err != nil {
		return nil, errors.NewInvalidRequest(err.Error())
	}

	piece, err := enc.Build(tracks)
	if err != nil {
		return nil, err
	}

	output := &EncodeOutput{
		Name:       pieceName(input.Name, input.Path),
		Tokens:     codec.Serialize(piece),
		Familized:  cc.Familize,
		TrackCount: piece.TrackCount(),
		BarCount:   piece.BarCount(),
		NoteCount:  piece.NoteOnCount(),
		Density:    densityDistribution(piece),
	}

	if input.Store {
		now := time.Now().Unix()
		record := &db.Piece{
			ID:         generateULID(),
			Name:       output.Name,
			Source:     &input.Path,
			Tokens:     output.Tokens,
			Familized:  output.Familized,
			TrackCount: output.TrackCount,
			BarCount:   output.BarCount,
			NoteCount:  output.NoteCount,
			Density:    output.Density,
			Notes:      input.Notes,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := db.Insert(ctx, database, record); err != nil {
			return nil, err
		}
		output.ID = &record.ID
	}

	return output, nil
}
