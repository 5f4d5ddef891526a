package codec

import "github.com/misnaej/the-jam-machine/internal/event"

// Encoder turns per-instrument event tracks into token text. It is
// stateless after construction and safe for concurrent use across
// pieces.
type Encoder struct {
	cfg Config
}

// NewEncoder validates the configuration and returns an encoder.
// An invalid configuration is the only encode-time error besides an
// out-of-range instrument.
func NewEncoder(cfg Config) (*Encoder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Encoder{cfg: cfg}, nil
}

// Config returns the encoder's configuration.
func (e *Encoder) Config() Config {
	return e.cfg
}

// Build runs the pipeline up to the structural piece, without
// serializing. A track with no events contributes no sections and
// vanishes from the piece, mirroring the segmenter's empty-input
// behavior.
func (e *Encoder) Build(tracks []event.Track) (*Piece, error) {
	instruments := make([]Instrument, len(tracks))
	barLists := make([][]Bar, len(tracks))
	for i, t := range tracks {
		inst, err := resolveInstrument(e.cfg, t)
		if err != nil {
			return nil, err
		}
		instruments[i] = inst
		barLists[i] = SegmentBars(e.cfg, Normalize(t.Events))
	}
	return buildPiece(e.cfg, instruments, barLists), nil
}

// Encode runs the full pipeline over all tracks and serializes the
// resulting piece. An empty track list yields the bare PIECE_START
// marker.
func (e *Encoder) Encode(tracks []event.Track) (string, error) {
	piece, err := e.Build(tracks)
	if err != nil {
		return "", err
	}
	return Serialize(piece), nil
}

// Decoder turns token text back into per-instrument event tracks.
// Like the encoder it is stateless and safe for concurrent use.
type Decoder struct {
	cfg Config
}

// NewDecoder validates the configuration and returns a decoder.
func NewDecoder(cfg Config) (*Decoder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Decoder{cfg: cfg}, nil
}

// Config returns the decoder's configuration.
func (d *Decoder) Config() Config {
	return d.cfg
}

// DecodeResult carries everything a decode produces: the structural
// piece, the reconstructed per-instrument tracks, and any diagnostics
// the parser recovered from. Diagnostics being non-empty does not make
// the result unusable; callers decide how strict to be.
type DecodeResult struct {
	Piece       *Piece
	Tracks      []event.Track
	Diagnostics []Diagnostic
}

// Decode parses token text, restores the silence trimmed at encode
// time, and rebuilds primitive event tracks. The only fatal parse
// failure is a stream with no PIECE_START.
func (d *Decoder) Decode(text string) (*DecodeResult, error) {
	piece, diags, err := Parse(d.cfg, text)
	if err != nil {
		return nil, err
	}
	tracks, err := Reconstruct(d.cfg, piece)
	if err != nil {
		return nil, err
	}
	return &DecodeResult{Piece: piece, Tracks: tracks, Diagnostics: diags}, nil
}
