package event

import "fmt"

// Kind tags a primitive event. The set is closed: every pipeline stage
// switches over it exhaustively.
type Kind uint8

const (
	// NoteOn starts sounding a pitch.
	NoteOn Kind = iota

	// NoteOff stops sounding a pitch.
	NoteOff

	// Gap is silence; Value is a duration in quantization units.
	Gap
)

// String returns the kind name used in logs and diagnostics.
func (k Kind) String() string {
	switch k {
	case NoteOn:
		return "note-on"
	case NoteOff:
		return "note-off"
	case Gap:
		return "gap"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Event is a primitive performance event at the tokenizer boundary.
// Value is a MIDI pitch (0–127) for note events and a duration in units
// for gaps. Velocity is only meaningful on NoteOn and is dropped during
// encoding; the decoder reattaches a fixed default.
type Event struct {
	Kind     Kind
	Value    int
	Velocity int
}

// Note creates a NoteOn event with the given velocity.
func Note(pitch, velocity int) Event {
	return Event{Kind: NoteOn, Value: pitch, Velocity: velocity}
}

// NoteEnd creates a NoteOff event.
func NoteEnd(pitch int) Event {
	return Event{Kind: NoteOff, Value: pitch}
}

// Rest creates a Gap event of the given duration in units.
func Rest(units int) Event {
	return Event{Kind: Gap, Value: units}
}

// Track is one instrument's ordered event stream, already beat-quantized
// by the tokenizer collaborator.
type Track struct {
	// Program is the General MIDI program number (0–127).
	// Ignored when IsDrum is set.
	Program int

	// IsDrum marks a percussion track (MIDI channel 10).
	IsDrum bool

	Events []Event
}

// NoteOnCount returns the number of NoteOn events in the track.
func (t Track) NoteOnCount() int {
	var n int
	for _, ev := range t.Events {
		if ev.Kind == NoteOn {
			n++
		}
	}
	return n
}

// TotalUnits returns the summed duration of all gaps in the track.
func (t Track) TotalUnits() int {
	var units int
	for _, ev := range t.Events {
		if ev.Kind == Gap {
			units += ev.Value
		}
	}
	return units
}
