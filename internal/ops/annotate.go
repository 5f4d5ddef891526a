package ops

import (
	"context"
	"database/sql"
	"strings"

	"github.com/misnaej/the-jam-machine/internal/config"
	"github.com/misnaej/the-jam-machine/internal/db"
	"github.com/misnaej/the-jam-machine/internal/errors"
)

// AnnotateInput contains parameters for the Annotate operation.
type AnnotateInput struct {
	ID string

	// Notes is the markdown to attach. An empty string clears the notes.
	Notes string
}

// AnnotateOutput contains the result of the Annotate operation.
type AnnotateOutput struct {
	ID      string `json:"id"`
	Cleared bool   `json:"cleared"`
}

// Annotate sets or clears a stored piece's markdown notes.
func Annotate(ctx context.Context, database *sql.DB, cfg *config.Config, input AnnotateInput) (*AnnotateOutput, error) {
	id := strings.TrimSpace(input.ID)
	if id == "" {
		return nil, errors.NewInvalidRequest("id is required")
	}

	var notes *string
	cleared := strings.TrimSpace(input.Notes) == ""
	if !cleared {
		notes = &input.Notes
	}

	if err := db.UpdateNotes(ctx, database, id, notes); err != nil {
		return nil, err
	}
	return &AnnotateOutput{ID: id, Cleared: cleared}, nil
}
