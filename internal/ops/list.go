package ops

import (
	"context"
	"database/sql"
	"strings"

	"github.com/misnaej/the-jam-machine/internal/config"
	"github.com/misnaej/the-jam-machine/internal/db"
)

// ListInput contains parameters for the List operation.
type ListInput struct {
	// Name filters pieces by name substring when non-empty.
	Name string

	// Limit caps the number of results; clamped to MaxListLimit,
	// defaulting to DefaultListLimit.
	Limit int
}

// ListItem is a piece summary without the token text, which can be
// large and is available via Fetch.
type ListItem struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	Source     *string     `json:"source,omitempty"`
	Familized  bool        `json:"familized"`
	TrackCount int         `json:"track_count"`
	BarCount   int         `json:"bar_count"`
	NoteCount  int         `json:"note_count"`
	Density    map[int]int `json:"density,omitempty"`
	UpdatedAt  int64       `json:"updated_at"`
}

// ListOutput contains the result of the List operation.
type ListOutput struct {
	Pieces []ListItem `json:"pieces"`
	Count  int        `json:"count"`
}

// List returns summaries of stored pieces, most recently updated first.
func List(ctx context.Context, database *sql.DB, cfg *config.Config, input ListInput) (*ListOutput, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}

	pieces, err := db.List(ctx, database, strings.TrimSpace(input.Name), limit)
	if err != nil {
		return nil, err
	}

	output := &ListOutput{Pieces: make([]ListItem, 0, len(pieces)), Count: len(pieces)}
	for _, p := range pieces {
		output.Pieces = append(output.Pieces, ListItem{
			ID:         p.ID,
			Name:       p.Name,
			Source:     p.Source,
			Familized:  p.Familized,
			TrackCount: p.TrackCount,
			BarCount:   p.BarCount,
			NoteCount:  p.NoteCount,
			Density:    p.Density,
			UpdatedAt:  p.UpdatedAt,
		})
	}
	return output, nil
}
