package codec

import (
	"fmt"

	"github.com/misnaej/the-jam-machine/internal/errors"
	"github.com/misnaej/the-jam-machine/internal/event"
	"github.com/misnaej/the-jam-machine/internal/family"
)

// splitSections slices a track's bars into windows of barsPerSection.
// A remainder shorter than barsPerSection forms a final, shorter section;
// it is never dropped.
func splitSections(bars []Bar, barsPerSection int) [][]Bar {
	var windows [][]Bar
	for start := 0; start < len(bars); start += barsPerSection {
		end := min(start+barsPerSection, len(bars))
		windows = append(windows, bars[start:end])
	}
	return windows
}

// sectionDensity returns the statistical mode of the bars' densities.
// Ties resolve toward the lower density value for determinism.
func sectionDensity(bars []Bar) int {
	var counts [DensityHigh + 1]int
	for _, b := range bars {
		if b.Density >= DensityLow && b.Density <= DensityHigh {
			counts[b.Density]++
		}
	}
	mode, best := DensityLow, -1
	for d := DensityLow; d <= DensityHigh; d++ {
		if counts[d] > best {
			mode, best = d, counts[d]
		}
	}
	return mode
}

// resolveInstrument maps a source track's identity to the serialized
// instrument: the drum sentinel for percussion, the family number when
// familization is requested, or the raw program number.
func resolveInstrument(cfg Config, t event.Track) (Instrument, error) {
	if t.IsDrum {
		return Instrument{IsDrum: true}, nil
	}
	if t.Program < 0 || t.Program > 127 {
		return Instrument{}, errors.NewInvalidRequest(
			fmt.Sprintf("program number %d outside General MIDI range", t.Program))
	}
	if cfg.Familize {
		num, err := family.Number(t.Program)
		if err != nil {
			return Instrument{}, errors.NewInvalidRequest(err.Error())
		}
		return Instrument{Program: num, Familized: true}, nil
	}
	return Instrument{Program: t.Program}, nil
}

// buildPiece groups every track's bars into sections and interleaves them
// into piece order: section round 0 of every track, then round 1, and so
// on. Track ids are assigned in that order, strictly increasing, and are
// never reused.
func buildPiece(cfg Config, instruments []Instrument, tracks [][]Bar) *Piece {
	sections := make([][][]Bar, len(tracks))
	rounds := 0
	for i, bars := range tracks {
		sections[i] = splitSections(bars, cfg.BarsPerSection)
		rounds = max(rounds, len(sections[i]))
	}

	piece := &Piece{}
	trackID := 0
	for round := range rounds {
		for i := range sections {
			if round >= len(sections[i]) {
				continue
			}
			bars := sections[i][round]
			piece.Sections = append(piece.Sections, Section{
				TrackID:    trackID,
				Instrument: instruments[i],
				Density:    sectionDensity(bars),
				Bars:       bars,
			})
			trackID++
		}
	}
	return piece
}
