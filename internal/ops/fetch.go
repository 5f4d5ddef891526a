package ops

import (
	"context"
	"database/sql"
	"strings"

	"github.com/misnaej/the-jam-machine/internal/config"
	"github.com/misnaej/the-jam-machine/internal/db"
	"github.com/misnaej/the-jam-machine/internal/errors"
)

// FetchInput contains parameters for the Fetch operation.
type FetchInput struct {
	ID string
}

// FetchOutput contains the result of the Fetch operation.
type FetchOutput struct {
	Piece *db.Piece `json:"piece"`
}

// Fetch retrieves a stored piece by id.
func Fetch(ctx context.Context, database *sql.DB, cfg *config.Config, input FetchInput) (*FetchOutput, error) {
	id := strings.TrimSpace(input.ID)
	if id == "" {
		return nil, errors.NewInvalidRequest("id is required")
	}

	p, err := db.GetByID(ctx, database, id, false)
	if err != nil {
		return nil, err
	}
	return &FetchOutput{Piece: p}, nil
}
