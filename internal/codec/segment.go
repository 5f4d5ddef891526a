package codec

import "github.com/misnaej/the-jam-machine/internal/event"

// SegmentBars partitions a normalized event stream into bars of exactly
// UnitsPerBar gap units, then applies the two storage optimizations:
// consecutive gaps within a bar are combined into one, and the gap
// trailing the last note of a bar is trimmed (the bar boundary implies
// it). Each bar's density is computed from its note-on count.
func SegmentBars(cfg Config, events []event.Event) []Bar {
	raw := cutBars(cfg.UnitsPerBar(), events)
	bars := make([]Bar, len(raw))
	for i, evs := range raw {
		evs = combineGaps(evs)
		evs = trimTrailingGap(evs)
		bars[i] = Bar{Events: evs}
		bars[i].Density = cfg.DensityOf(bars[i].NoteOnCount())
	}
	return bars
}

// cutBars walks unit-granularity events, accumulating gap units and
// cutting a new bar whenever the counter reaches unitsPerBar. Note-offs
// that land exactly on a bar boundary are kept in the closing bar, so a
// note held to the end of a bar releases inside it. The final bar is
// padded with the missing gap, so the bar-duration invariant holds for
// every bar including the last.
func cutBars(unitsPerBar int, events []event.Event) [][]event.Event {
	if len(events) == 0 {
		return nil
	}

	var bars [][]event.Event
	var cur []event.Event
	var units int

	for _, ev := range events {
		if units >= unitsPerBar && ev.Kind != event.NoteOff {
			bars = append(bars, cur)
			cur = nil
			units = 0
		}
		cur = append(cur, ev)
		if ev.Kind == event.Gap {
			units += ev.Value
		}
	}

	if units < unitsPerBar {
		cur = append(cur, event.Rest(unitsPerBar-units))
	}
	return append(bars, cur)
}

// combineGaps merges runs of consecutive gaps into a single gap carrying
// the summed duration. This is the only point in the pipeline where
// multiple events collapse into one.
func combineGaps(events []event.Event) []event.Event {
	out := make([]event.Event, 0, len(events))
	var pending int
	for _, ev := range events {
		if ev.Kind == event.Gap {
			pending += ev.Value
			continue
		}
		if pending > 0 {
			out = append(out, event.Rest(pending))
			pending = 0
		}
		out = append(out, ev)
	}
	if pending > 0 {
		out = append(out, event.Rest(pending))
	}
	return out
}

// trimTrailingGap drops a gap that immediately precedes the bar end.
// Trailing silence is implied by the bar boundary; the gap reconciler
// restores it during decoding.
func trimTrailingGap(events []event.Event) []event.Event {
	if n := len(events); n > 0 && events[n-1].Kind == event.Gap {
		return events[:n-1]
	}
	return events
}
