package codec

import "github.com/misnaej/the-jam-machine/internal/event"

// Normalize rewrites one track's primitive events to unit granularity:
// velocity is discarded, and every gap is split into a run of
// unit-duration gaps so later stages can cut and merge silence at bar
// boundaries without fractional remainders. Zero-duration gaps are
// dropped. Normalization has no error conditions.
func Normalize(events []event.Event) []event.Event {
	out := make([]event.Event, 0, len(events))
	for _, ev := range events {
		switch ev.Kind {
		case event.Gap:
			for range ev.Value {
				out = append(out, event.Rest(1))
			}
		case event.NoteOn:
			out = append(out, event.Event{Kind: event.NoteOn, Value: ev.Value})
		case event.NoteOff:
			out = append(out, event.Event{Kind: event.NoteOff, Value: ev.Value})
		}
	}
	return out
}
