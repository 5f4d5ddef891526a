package codec

import (
	"github.com/misnaej/the-jam-machine/internal/errors"
	"github.com/misnaej/the-jam-machine/internal/event"
	"github.com/misnaej/the-jam-machine/internal/family"
)

// reconcileBars rebuilds one instrument's continuous event stream from
// its bars. Each bar whose stored gaps fall short of the bar duration
// gets a synthetic trailing gap, undoing the encode-time trim, and gaps
// that become adjacent across bar boundaries are merged. The result
// satisfies the same shape as tokenizer output: no two consecutive gaps,
// and every bar's span accounted for.
func reconcileBars(cfg Config, bars []Bar) []event.Event {
	unitsPerBar := cfg.UnitsPerBar()

	var out []event.Event
	for _, bar := range bars {
		evs := bar.Events
		if missing := unitsPerBar - bar.GapUnits(); missing > 0 {
			evs = append(evs[:len(evs):len(evs)], event.Rest(missing))
		}
		for _, ev := range evs {
			if ev.Kind == event.Gap && len(out) > 0 && out[len(out)-1].Kind == event.Gap {
				out[len(out)-1].Value += ev.Value
				continue
			}
			out = append(out, ev)
		}
	}
	return out
}

// Reconstruct turns a parsed piece back into per-instrument tracks.
// Sections sharing an instrument are concatenated in piece order, which
// is how sections of one source track were interleaved during encoding.
// Note-ons get the configured default velocity; familized instruments
// resolve to their family's representative program.
func Reconstruct(cfg Config, p *Piece) ([]event.Track, error) {
	var order []Instrument
	grouped := make(map[Instrument][]Bar)
	for _, s := range p.Sections {
		if _, ok := grouped[s.Instrument]; !ok {
			order = append(order, s.Instrument)
		}
		grouped[s.Instrument] = append(grouped[s.Instrument], s.Bars...)
	}

	tracks := make([]event.Track, 0, len(order))
	for _, inst := range order {
		t := event.Track{IsDrum: inst.IsDrum}
		switch {
		case inst.IsDrum:
		case inst.Familized:
			prog, err := family.Program(inst.Program)
			if err != nil {
				return nil, errors.NewInternal(err)
			}
			t.Program = prog
		default:
			t.Program = inst.Program
		}

		t.Events = reconcileBars(cfg, grouped[inst])
		for i := range t.Events {
			if t.Events[i].Kind == event.NoteOn {
				t.Events[i].Velocity = cfg.DefaultVelocity
			}
		}
		tracks = append(tracks, t)
	}
	return tracks, nil
}
