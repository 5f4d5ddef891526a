// Package midifile bridges Standard MIDI Files and the primitive event
// model: reading quantizes note events onto the codec's unit grid,
// writing renders reconstructed events back to an SMF. It is the
// tokenizer collaborator the codec itself stays independent of.
package midifile

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"os"
	"sort"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/misnaej/the-jam-machine/internal/event"
)

// drumChannel is the zero-based MIDI channel reserved for percussion.
const drumChannel = 9

// defaultTempo is written when rendering, since the token format carries
// no tempo information.
const defaultTempo = 120

// voice keys one instrument stream inside an SMF: gomidi tracks can
// interleave channels, and one channel can appear in several tracks.
type voice struct {
	track   int
	channel uint8
}

type rawNote struct {
	unit int
	off  bool
	key  uint8
	vel  uint8
}

// Read loads an SMF from disk and tokenizes it at unitsPerBeat.
func Read(path string, unitsPerBeat int) ([]event.Track, error) {
	dat, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading midi file: %w", err)
	}
	return ReadFrom(bytes.NewReader(dat), unitsPerBeat)
}

// ReadFrom tokenizes an SMF stream into per-voice primitive event
// tracks. Note times are rounded to the nearest unit; a voice on the
// percussion channel becomes a drum track. Voices appear in order of
// their first note.
func ReadFrom(r io.Reader, unitsPerBeat int) (tracks []event.Track, err error) {
	// The smf reader panics on some malformed files.
	// https://github.com/gomidi/midi/issues/20
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("parsing midi file: %v", rec)
		}
	}()

	s, err := smf.ReadFrom(r)
	if err != nil {
		return nil, fmt.Errorf("parsing midi file: %w", err)
	}

	ticksPerQuarter := 480
	if tf, ok := s.TimeFormat.(smf.MetricTicks); ok {
		ticksPerQuarter = int(tf)
	}
	toUnit := func(absTicks int64) int {
		return int(math.Round(float64(absTicks) * float64(unitsPerBeat) / float64(ticksPerQuarter)))
	}

	var order []voice
	notes := make(map[voice][]rawNote)
	programs := make(map[voice]uint8)

	for ti, track := range s.Tracks {
		var absTicks int64
		for _, ev := range track {
			absTicks += int64(ev.Delta)
			var channel, key, velocity, program uint8
			switch {
			case ev.Message.GetProgramChange(&channel, &program):
				programs[voice{ti, channel}] = program
			case ev.Message.GetNoteStart(&channel, &key, &velocity):
				v := voice{ti, channel}
				if _, ok := notes[v]; !ok {
					order = append(order, v)
				}
				notes[v] = append(notes[v], rawNote{unit: toUnit(absTicks), key: key, vel: velocity})
			case ev.Message.GetNoteEnd(&channel, &key):
				v := voice{ti, channel}
				if _, ok := notes[v]; !ok {
					order = append(order, v)
				}
				notes[v] = append(notes[v], rawNote{unit: toUnit(absTicks), off: true, key: key})
			}
		}
	}

	for _, v := range order {
		tracks = append(tracks, buildTrack(notes[v], int(programs[v]), v.channel == drumChannel))
	}
	return tracks, nil
}

// buildTrack converts one voice's time-stamped notes into the gap-
// separated primitive stream. Simultaneous events sort note-off first so
// a retriggered pitch releases before it restarts.
func buildTrack(raw []rawNote, program int, isDrum bool) event.Track {
	sort.SliceStable(raw, func(i, j int) bool {
		if raw[i].unit != raw[j].unit {
			return raw[i].unit < raw[j].unit
		}
		return raw[i].off && !raw[j].off
	})

	t := event.Track{Program: program, IsDrum: isDrum}
	var cursor int
	for _, n := range raw {
		if n.unit > cursor {
			t.Events = append(t.Events, event.Rest(n.unit-cursor))
			cursor = n.unit
		}
		if n.off {
			t.Events = append(t.Events, event.NoteEnd(int(n.key)))
		} else {
			t.Events = append(t.Events, event.Note(int(n.key), int(n.vel)))
		}
	}
	return t
}

// Write renders primitive event tracks to an SMF on disk.
func Write(path string, tracks []event.Track, unitsPerBeat int) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating midi file: %w", err)
	}
	defer f.Close()
	return WriteTo(f, tracks, unitsPerBeat)
}

// WriteTo renders primitive event tracks to an SMF stream. Each track
// gets its own SMF track and channel; drum tracks go to the percussion
// channel, melodic tracks take the remaining channels in order.
func WriteTo(w io.Writer, tracks []event.Track, unitsPerBeat int) error {
	if unitsPerBeat <= 0 {
		return fmt.Errorf("units per beat must be positive, got %d", unitsPerBeat)
	}

	s := smf.New()
	ticks, ok := s.TimeFormat.(smf.MetricTicks)
	if !ok {
		ticks = smf.MetricTicks(960)
		s.TimeFormat = ticks
	}
	ticksPerUnit := uint32(int(ticks) / unitsPerBeat)
	if ticksPerUnit == 0 {
		ticksPerUnit = 1
	}

	nextMelodic := uint8(0)
	for i, t := range tracks {
		channel := nextMelodic
		if t.IsDrum {
			channel = drumChannel
		} else {
			nextMelodic++
			if nextMelodic == drumChannel {
				nextMelodic++
			}
			if nextMelodic > 15 {
				nextMelodic = 15
			}
		}

		var tr smf.Track
		if i == 0 {
			tr.Add(0, smf.MetaTempo(defaultTempo))
		}
		if !t.IsDrum {
			tr.Add(0, midi.ProgramChange(channel, uint8(t.Program)))
		}

		var delta uint32
		for _, ev := range t.Events {
			switch ev.Kind {
			case event.Gap:
				delta += uint32(ev.Value) * ticksPerUnit
			case event.NoteOn:
				tr.Add(delta, midi.NoteOn(channel, uint8(ev.Value), uint8(ev.Velocity)))
				delta = 0
			case event.NoteOff:
				tr.Add(delta, midi.NoteOff(channel, uint8(ev.Value)))
				delta = 0
			}
		}
		tr.Close(delta)
		if err := s.Add(tr); err != nil {
			return fmt.Errorf("adding midi track: %w", err)
		}
	}

	if _, err := s.WriteTo(w); err != nil {
		return fmt.Errorf("writing midi file: %w", err)
	}
	return nil
}
