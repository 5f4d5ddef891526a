package ops

import (
	"context"
	"database/sql"

	"github.com/misnaej/the-jam-machine/internal/codec"
	"github.com/misnaej/the-jam-machine/internal/config"
	"github.com/misnaej/the-jam-machine/internal/db"
	"github.com/misnaej/the-jam-machine/internal/family"
)

// StatsOutput summarizes the stored corpus: aggregate counts, the
// density distribution of sections, and per-family section counts.
type StatsOutput struct {
	Totals   *db.Totals     `json:"totals"`
	Density  map[int]int    `json:"density,omitempty"`
	Families map[string]int `json:"families,omitempty"`
	Drums    int            `json:"drums"`
}

// Stats aggregates the active pieces. Density comes from the stored
// summaries; family counts reparse each piece's token text, which is
// cheap relative to the I/O that produced it.
func Stats(ctx context.Context, database *sql.DB, cfg *config.Config) (*StatsOutput, error) {
	totals, err := db.GetTotals(ctx, database)
	if err != nil {
		return nil, err
	}

	output := &StatsOutput{
		Totals:   totals,
		Density:  make(map[int]int),
		Families: make(map[string]int),
	}

	pieces, err := db.List(ctx, database, "", 0)
	if err != nil {
		return nil, err
	}

	for _, p := range pieces {
		for d, n := range p.Density {
			output.Density[d] += n
		}

		cc := cfg.Codec()
		cc.Familize = p.Familized
		piece, _, err := codec.Parse(cc, p.Tokens)
		if err != nil {
			// A stored piece that no longer parses is skipped, not fatal.
			continue
		}
		for _, s := range piece.Sections {
			switch {
			case s.Instrument.IsDrum:
				output.Drums++
			case s.Instrument.Familized:
				output.Families[family.Name(s.Instrument.Program)]++
			default:
				num, err := family.Number(s.Instrument.Program)
				if err != nil {
					continue
				}
				output.Families[family.Name(num)]++
			}
		}
	}

	if len(output.Density) == 0 {
		output.Density = nil
	}
	if len(output.Families) == 0 {
		output.Families = nil
	}
	return output, nil
}
