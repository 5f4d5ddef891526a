// Package codec converts multi-track performances between primitive event
// streams and the flat token text consumed by the sequence model. The
// encode pipeline runs normalize → segment → sections → serialize; the
// decode pipeline runs parse → reconcile → reconstruct. Both directions
// are pure: independent pieces can be processed concurrently without
// synchronization.
package codec

import (
	"strconv"

	"github.com/misnaej/the-jam-machine/internal/event"
)

// Density classes summarizing note activity in a bar or section.
const (
	DensityLow    = 1
	DensityMedium = 2
	DensityHigh   = 3
)

// Instrument identifies the voice of a section: a General MIDI program
// number, a family number when familized, or the drum sentinel.
type Instrument struct {
	// Program is the GM program number, or the family number when
	// Familized is set. Meaningless for drum tracks.
	Program int

	Familized bool
	IsDrum    bool
}

// Token returns the INST value for the grammar: a plain number, or
// "DRUMS" for percussion tracks.
func (i Instrument) Token() string {
	if i.IsDrum {
		return drumsValue
	}
	return strconv.Itoa(i.Program)
}

// Bar is one fixed-duration window of a track's events. Stored gaps are
// already combined, and the trailing gap before the bar boundary is
// trimmed; the decoder restores it from the bar-duration invariant.
// A bar is never mutated after its density is computed.
type Bar struct {
	Events  []event.Event
	Density int
}

// NoteOnCount returns the number of note-on events in the bar.
func (b Bar) NoteOnCount() int {
	var n int
	for _, ev := range b.Events {
		if ev.Kind == event.NoteOn {
			n++
		}
	}
	return n
}

// GapUnits returns the stored gap duration of the bar in units. Because
// the trailing gap is trimmed, this is at most the configured bar
// duration, never more for well-formed input.
func (b Bar) GapUnits() int {
	var units int
	for _, ev := range b.Events {
		if ev.Kind == event.Gap {
			units += ev.Value
		}
	}
	return units
}

// Section is a run of consecutive bars for one track, the unit that
// carries instrument and density metadata in the token grammar.
type Section struct {
	// TrackID is the section's position in the piece. Ids increase
	// strictly in serialization order and are never reused.
	TrackID int

	Instrument Instrument

	// Density is the mode of the bars' densities, ties broken toward
	// the lower value.
	Density int

	Bars []Bar
}

// Piece is an ordered sequence of sections across all tracks; the only
// entity serialized to token text.
type Piece struct {
	Sections []Section
}

// TrackCount returns the number of TRACK blocks the piece serializes to.
func (p *Piece) TrackCount() int {
	return len(p.Sections)
}

// BarCount returns the total number of bars across all sections.
func (p *Piece) BarCount() int {
	var n int
	for _, s := range p.Sections {
		n += len(s.Bars)
	}
	return n
}

// NoteOnCount returns the total number of note-on events in the piece.
func (p *Piece) NoteOnCount() int {
	var n int
	for _, s := range p.Sections {
		for _, b := range s.Bars {
			n += b.NoteOnCount()
		}
	}
	return n
}
