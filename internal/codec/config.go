package codec

import (
	"fmt"

	"github.com/misnaej/the-jam-machine/internal/errors"
)

// Config holds the codec constants shared by the encode and decode
// pipelines. The zero value is not usable; start from DefaultConfig.
type Config struct {
	// BeatsPerBar is the number of beats in one bar.
	BeatsPerBar int `json:"beats_per_bar"`

	// UnitsPerBeat is the quantization resolution defined by the tokenizer
	// collaborator: the smallest representable gap is 1/UnitsPerBeat of a
	// beat. The codec only does unit arithmetic on top of it.
	UnitsPerBeat int `json:"units_per_beat"`

	// BarsPerSection is the number of bars grouped into one section.
	// A track's trailing remainder forms a final, shorter section.
	BarsPerSection int `json:"bars_per_section"`

	// DensityLowMax and DensityMediumMax are the note-on count breakpoints
	// for the per-bar density class: count <= DensityLowMax is 1,
	// count <= DensityMediumMax is 2, anything above is 3.
	DensityLowMax    int `json:"density_low_max"`
	DensityMediumMax int `json:"density_medium_max"`

	// DefaultVelocity is reattached to every reconstructed note-on, since
	// the original velocity is discarded during encoding.
	DefaultVelocity int `json:"default_velocity"`

	// Familize coarsens instrument program numbers to family numbers on
	// encode, and expects family numbers in INST tokens on decode.
	Familize bool `json:"familize"`
}

// DefaultConfig returns the codec constants used for training data.
func DefaultConfig() Config {
	return Config{
		BeatsPerBar:      4,
		UnitsPerBeat:     4,
		BarsPerSection:   8,
		DensityLowMax:    1,
		DensityMediumMax: 8,
		DefaultVelocity:  99,
	}
}

// UnitsPerBar returns the fixed bar duration in quantization units.
// Every closed bar's gaps sum to exactly this value.
func (c Config) UnitsPerBar() int {
	return c.BeatsPerBar * c.UnitsPerBeat
}

// Validate checks the configuration constants. Construction of an encoder
// or decoder fails on the first violation; there are no other encode-time
// error conditions.
func (c Config) Validate() error {
	if c.BeatsPerBar <= 0 {
		return errors.NewInvalidConfig(fmt.Sprintf("beats_per_bar must be positive, got %d", c.BeatsPerBar))
	}
	if c.UnitsPerBeat <= 0 {
		return errors.NewInvalidConfig(fmt.Sprintf("units_per_beat must be positive, got %d", c.UnitsPerBeat))
	}
	if c.BarsPerSection <= 0 {
		return errors.NewInvalidConfig(fmt.Sprintf("bars_per_section must be positive, got %d", c.BarsPerSection))
	}
	if c.DensityLowMax < 0 || c.DensityMediumMax <= c.DensityLowMax {
		return errors.NewInvalidConfig(fmt.Sprintf(
			"density breakpoints must satisfy 0 <= low (%d) < medium (%d)",
			c.DensityLowMax, c.DensityMediumMax))
	}
	if c.DefaultVelocity < 1 || c.DefaultVelocity > 127 {
		return errors.NewInvalidConfig(fmt.Sprintf("default_velocity must be in 1-127, got %d", c.DefaultVelocity))
	}
	return nil
}

// DensityOf maps a note-on count to its density class in {1, 2, 3}.
func (c Config) DensityOf(noteOns int) int {
	switch {
	case noteOns <= c.DensityLowMax:
		return DensityLow
	case noteOns <= c.DensityMediumMax:
		return DensityMedium
	default:
		return DensityHigh
	}
}
