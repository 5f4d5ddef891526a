// Package ops implements the application operations shared by the CLI,
// the MCP server, and the web API. Each operation takes a context, the
// database handle, the app config, and a typed input, and returns a
// typed output.
package ops

import (
	"crypto/rand"
	"path/filepath"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/misnaej/the-jam-machine/internal/codec"
	"github.com/misnaej/the-jam-machine/internal/config"
	"github.com/misnaej/the-jam-machine/internal/event"
	"github.com/misnaej/the-jam-machine/internal/midifile"
)

// Pagination limits
const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// Tokenizer bridges MIDI files and primitive event tracks. The codec
// never touches files; this seam keeps it that way and lets tests
// substitute an in-memory implementation.
type Tokenizer interface {
	Tokenize(path string, unitsPerBeat int) ([]event.Track, error)
	Render(path string, tracks []event.Track, unitsPerBeat int) error
}

// MIDITokenizer is the default Tokenizer backed by Standard MIDI Files.
type MIDITokenizer struct{}

func (MIDITokenizer) Tokenize(path string, unitsPerBeat int) ([]event.Track, error) {
	return midifile.Read(path, unitsPerBeat)
}

func (MIDITokenizer) Render(path string, tracks []event.Track, unitsPerBeat int) error {
	return midifile.Write(path, tracks, unitsPerBeat)
}

// codecConfig resolves the effective codec constants: app config
// defaults, with an optional per-request familize override.
func codecConfig(cfg *config.Config, familize *bool) codec.Config {
	cc := cfg.Codec()
	if familize != nil {
		cc.Familize = *familize
	}
	return cc
}

// densityDistribution counts sections per density class.
func densityDistribution(p *codec.Piece) map[int]int {
	if len(p.Sections) == 0 {
		return nil
	}
	dist := make(map[int]int)
	for _, s := range p.Sections {
		dist[s.Density]++
	}
	return dist
}

// pieceName derives a display name from an explicit name or a file path.
func pieceName(name, path string) string {
	name = strings.TrimSpace(name)
	if name != "" {
		return name
	}
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// isMIDIPath reports whether the path has a MIDI file extension.
func isMIDIPath(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mid", ".midi":
		return true
	}
	return false
}

// generateULID creates a new ULID for a stored piece.
func generateULID() string {
	entropy := ulid.Monotonic(rand.Reader, 0)
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}
