package codec

import (
	"strconv"
	"strings"

	"github.com/misnaej/the-jam-machine/internal/event"
)

// Token grammar literals. Tokens are whitespace-separated and
// case-sensitive; key=value tokens carry their value after '='.
const (
	tokPieceStart = "PIECE_START"
	tokTrackStart = "TRACK_START"
	tokTrackEnd   = "TRACK_END"
	tokBarStart   = "BAR_START"
	tokBarEnd     = "BAR_END"

	keyInst      = "INST"
	keyDensity   = "DENSITY"
	keyNoteOn    = "NOTE_ON"
	keyNoteOff   = "NOTE_OFF"
	keyTimeDelta = "TIME_DELTA"

	drumsValue = "DRUMS"
)

// Serialize flattens a piece depth-first into token text. It is a pure
// function of the piece: serializing the same piece twice yields
// byte-identical output.
func Serialize(p *Piece) string {
	var sb strings.Builder
	sb.WriteString(tokPieceStart)
	for _, section := range p.Sections {
		sb.WriteByte(' ')
		sb.WriteString(tokTrackStart)
		writeKeyValue(&sb, keyInst, section.Instrument.Token())
		writeKeyValue(&sb, keyDensity, strconv.Itoa(section.Density))
		for _, bar := range section.Bars {
			sb.WriteByte(' ')
			sb.WriteString(tokBarStart)
			for _, ev := range bar.Events {
				writeEvent(&sb, ev)
			}
			sb.WriteByte(' ')
			sb.WriteString(tokBarEnd)
		}
		sb.WriteByte(' ')
		sb.WriteString(tokTrackEnd)
	}
	return sb.String()
}

func writeKeyValue(sb *strings.Builder, key, value string) {
	sb.WriteByte(' ')
	sb.WriteString(key)
	sb.WriteByte('=')
	sb.WriteString(value)
}

func writeEvent(sb *strings.Builder, ev event.Event) {
	switch ev.Kind {
	case event.NoteOn:
		writeKeyValue(sb, keyNoteOn, strconv.Itoa(ev.Value))
	case event.NoteOff:
		writeKeyValue(sb, keyNoteOff, strconv.Itoa(ev.Value))
	case event.Gap:
		writeKeyValue(sb, keyTimeDelta, strconv.Itoa(ev.Value))
	}
}
