package codec

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/misnaej/the-jam-machine/internal/errors"
	"github.com/misnaej/the-jam-machine/internal/event"
	"github.com/misnaej/the-jam-machine/internal/family"
)

// Diagnostic is one recovered parse problem. The parser accumulates
// diagnostics instead of failing on the first malformed token, so a
// partially malformed generator output still yields its valid tracks.
type Diagnostic struct {
	Code    errors.ErrorCode `json:"code"`
	Pos     int              `json:"pos"`
	Token   string           `json:"token,omitempty"`
	Message string           `json:"message"`
}

func (d Diagnostic) String() string {
	if d.Token == "" {
		return fmt.Sprintf("%s at token %d: %s", d.Code, d.Pos, d.Message)
	}
	return fmt.Sprintf("%s at token %d (%s): %s", d.Code, d.Pos, d.Token, d.Message)
}

// parseState enumerates the parser's explicit states. The source's
// implicit "current bar/track" counters become transitions here, which
// makes truncation a defined path instead of an exception.
type parseState int

const (
	statePiece parseState = iota
	stateTrack
	stateBar
)

type parser struct {
	cfg   Config
	toks  []string
	pos   int
	state parseState

	piece    Piece
	diags    []Diagnostic
	sawPiece bool

	section    Section
	headerInst bool
	headerDens bool
	bar        Bar
	lastTok    string
}

// Parse scans token text left to right and rebuilds the piece structure.
// Structural errors are recovered locally: the smallest enclosing unit
// (bar, else track) is discarded and scanning resumes at the next
// recognizable marker. The only fatal failure is a stream in which no
// PIECE_START is ever found; a truncated stream yields a best-effort
// partial piece, which is the desired behavior for cancelled generator
// output.
func Parse(cfg Config, text string) (*Piece, []Diagnostic, error) {
	p := &parser{cfg: cfg, toks: strings.Fields(text)}

	for p.pos = 0; p.pos < len(p.toks); p.pos++ {
		tok := p.toks[p.pos]
		switch p.state {
		case statePiece:
			p.inPiece(tok)
		case stateTrack:
			p.inTrack(tok)
		case stateBar:
			p.inBar(tok)
		}
	}
	p.finish()

	if !p.sawPiece {
		return nil, p.diags, errors.NewEmptyStream()
	}

	// Track ids are positional: strictly increasing in piece order.
	for i := range p.piece.Sections {
		p.piece.Sections[i].TrackID = i
	}
	return &p.piece, p.diags, nil
}

func (p *parser) inPiece(tok string) {
	switch {
	case tok == tokPieceStart:
		// Idempotent: a repeated PIECE_START restarts piece context but
		// keeps the sections collected so far.
		p.sawPiece = true
	case !p.sawPiece:
		p.report(errors.ErrMalformedGrammar, tok, "token before PIECE_START")
	case tok == tokTrackStart:
		p.openTrack()
	default:
		p.report(errors.ErrMalformedGrammar, tok, "expected TRACK_START")
	}
}

func (p *parser) inTrack(tok string) {
	key, val, hasVal := strings.Cut(tok, "=")
	switch {
	case hasVal && key == keyInst && !p.headerInst:
		inst, err := p.parseInstrument(val)
		if err != nil {
			p.report(errors.ErrUnknownInstrument, tok, err.Error())
			p.skipTrack()
			return
		}
		p.section.Instrument = inst
		p.headerInst = true
	case hasVal && key == keyDensity && !p.headerDens:
		d, err := strconv.Atoi(val)
		if err != nil || d < DensityLow || d > DensityHigh {
			p.report(errors.ErrInvalidDensity, tok, "density must be 1, 2, or 3")
			p.skipTrack()
			return
		}
		p.section.Density = d
		p.headerDens = true
	case tok == tokBarStart:
		if !p.headerInst || !p.headerDens {
			p.report(errors.ErrMalformedGrammar, tok, "BAR_START before INST/DENSITY header")
			p.skipTrack()
			return
		}
		p.openBar()
	case tok == tokTrackEnd:
		p.closeTrack()
	case tok == tokTrackStart:
		p.report(errors.ErrMalformedGrammar, tok, "TRACK_START inside track; discarding open track")
		p.openTrack()
	case tok == tokPieceStart:
		p.report(errors.ErrIncompleteTrack, tok, "PIECE_START inside track")
		p.closeTrack()
	default:
		p.report(errors.ErrMalformedGrammar, tok, "unexpected token in track")
		p.skipTrack()
	}
}

func (p *parser) inBar(tok string) {
	key, val, hasVal := strings.Cut(tok, "=")
	switch {
	case hasVal && (key == keyNoteOn || key == keyNoteOff):
		pitch, err := strconv.Atoi(val)
		if err != nil || pitch < 0 || pitch > 127 {
			p.report(errors.ErrMalformedGrammar, tok, "pitch must be in 0-127")
			p.skipBar()
			return
		}
		kind := event.NoteOn
		if key == keyNoteOff {
			kind = event.NoteOff
		}
		p.appendEvent(event.Event{Kind: kind, Value: pitch}, tok)
	case hasVal && key == keyTimeDelta:
		units, err := strconv.Atoi(val)
		if err != nil || units < 0 {
			p.report(errors.ErrMalformedGrammar, tok, "TIME_DELTA must be a non-negative integer")
			p.skipBar()
			return
		}
		if units == 0 {
			return
		}
		p.appendEvent(event.Rest(units), tok)
		if p.bar.GapUnits() > p.cfg.UnitsPerBar() {
			p.report(errors.ErrMalformedGrammar, tok,
				fmt.Sprintf("bar exceeds %d units", p.cfg.UnitsPerBar()))
		}
	case tok == tokBarEnd:
		p.closeBar()
	case tok == tokTrackEnd:
		p.report(errors.ErrIncompleteBar, tok, "TRACK_END before BAR_END; dropping open bar")
		p.dropBar()
		p.closeTrack()
	case tok == tokBarStart:
		p.report(errors.ErrMalformedGrammar, tok, "BAR_START inside bar; discarding open bar")
		p.dropBar()
		p.openBar()
	case tok == tokTrackStart:
		p.report(errors.ErrIncompleteBar, tok, "TRACK_START inside bar; dropping open bar")
		p.dropBar()
		p.closeTrack()
		p.openTrack()
	case tok == tokPieceStart:
		p.report(errors.ErrIncompleteBar, tok, "PIECE_START inside bar; dropping open bar")
		p.dropBar()
		p.closeTrack()
	default:
		p.report(errors.ErrMalformedGrammar, tok, "unexpected token in bar")
		p.skipBar()
	}
}

// finish handles end of input. A stream that stops mid-structure keeps
// everything completed so far and reports the truncation.
func (p *parser) finish() {
	switch p.state {
	case stateBar:
		p.reportEOF(errors.ErrIncompleteBar, "stream ended inside bar; dropping open bar")
		p.dropBar()
		p.closeTrack()
	case stateTrack:
		p.reportEOF(errors.ErrIncompleteTrack, "stream ended inside track")
		p.closeTrack()
	}
}

func (p *parser) openTrack() {
	p.section = Section{}
	p.headerInst = false
	p.headerDens = false
	p.state = stateTrack
}

// closeTrack appends the open section to the piece. A track that never
// completed its INST/DENSITY header carries no usable metadata and
// cannot become a valid section, so it is dropped instead.
func (p *parser) closeTrack() {
	if p.headerInst && p.headerDens {
		p.piece.Sections = append(p.piece.Sections, p.section)
	} else {
		p.report(errors.ErrMalformedGrammar, "", "track closed without INST/DENSITY header; dropping track")
	}
	p.section = Section{}
	p.state = statePiece
}

func (p *parser) openBar() {
	p.bar = Bar{}
	p.lastTok = ""
	p.state = stateBar
}

func (p *parser) closeBar() {
	p.bar.Density = p.cfg.DensityOf(p.bar.NoteOnCount())
	p.section.Bars = append(p.section.Bars, p.bar)
	p.bar = Bar{}
	p.state = stateTrack
}

func (p *parser) dropBar() {
	p.bar = Bar{}
}

// appendEvent adds an event to the open bar. A consecutive duplicate of
// the previous event token is an anomaly in generator output; it is
// reported but kept, never silently discarded.
func (p *parser) appendEvent(ev event.Event, tok string) {
	if tok == p.lastTok {
		p.report(errors.ErrDuplicateEvent, tok, "consecutive duplicate event; keeping both")
	}
	p.lastTok = tok
	p.bar.Events = append(p.bar.Events, ev)
}

// skipTrack discards the open track and advances to the next structural
// marker. A TRACK_END is consumed; a TRACK_START or PIECE_START is left
// for the piece state to reprocess.
func (p *parser) skipTrack() {
	p.section = Section{}
	p.state = statePiece
	for p.pos+1 < len(p.toks) {
		switch p.toks[p.pos+1] {
		case tokTrackEnd:
			p.pos++
			return
		case tokTrackStart, tokPieceStart:
			return
		}
		p.pos++
	}
	p.pos = len(p.toks)
}

// skipBar discards the open bar and advances to the next structural
// marker, consuming a BAR_END; the track's remaining bars still parse.
func (p *parser) skipBar() {
	p.dropBar()
	p.state = stateTrack
	for p.pos+1 < len(p.toks) {
		switch p.toks[p.pos+1] {
		case tokBarEnd:
			p.pos++
			return
		case tokBarStart, tokTrackEnd, tokTrackStart, tokPieceStart:
			return
		}
		p.pos++
	}
	p.pos = len(p.toks)
}

// parseInstrument resolves an INST value against the known vocabulary:
// the drum sentinel, a family number when decoding familized text, or a
// General MIDI program number otherwise.
func (p *parser) parseInstrument(val string) (Instrument, error) {
	if val == drumsValue {
		return Instrument{IsDrum: true}, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return Instrument{}, fmt.Errorf("instrument %q is not in the known vocabulary", val)
	}
	if p.cfg.Familize {
		if n < 0 || n >= family.Count {
			return Instrument{}, fmt.Errorf("family number %d outside range 0-%d", n, family.Count-1)
		}
		return Instrument{Program: n, Familized: true}, nil
	}
	if n < 0 || n > 127 {
		return Instrument{}, fmt.Errorf("program number %d outside General MIDI range", n)
	}
	return Instrument{Program: n}, nil
}

func (p *parser) report(code errors.ErrorCode, tok, msg string) {
	p.diags = append(p.diags, Diagnostic{Code: code, Pos: p.pos, Token: tok, Message: msg})
}

func (p *parser) reportEOF(code errors.ErrorCode, msg string) {
	p.diags = append(p.diags, Diagnostic{Code: code, Pos: len(p.toks), Message: msg})
}
