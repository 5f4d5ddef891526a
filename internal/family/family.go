// Package family maps General MIDI program numbers to coarser instrument
// families and back. It is consulted by the section builder when familized
// encoding is requested, and by the decoder to pick a concrete program for
// a family token.
package family

import "fmt"

// Class describes one General MIDI instrument family.
type Class struct {
	Name string

	// ProgramLow and ProgramHigh bound the family's program range,
	// inclusive low, exclusive high.
	ProgramLow  int
	ProgramHigh int

	// Transfer is the representative program used when decoding a family
	// token back to a concrete instrument. Chosen once per family so that
	// decoding is deterministic.
	Transfer int

	Number int
}

// Classes lists the sixteen General MIDI instrument families in family
// number order. The transfer programs favor synth voices that render well
// on a plain soundfont.
var Classes = []Class{
	{Name: "Piano", ProgramLow: 0, ProgramHigh: 8, Transfer: 4, Number: 0},
	{Name: "Chromatic Percussion", ProgramLow: 8, ProgramHigh: 16, Transfer: 11, Number: 1},
	{Name: "Organ", ProgramLow: 16, ProgramHigh: 24, Transfer: 17, Number: 2},
	{Name: "Guitar", ProgramLow: 24, ProgramHigh: 32, Transfer: 80, Number: 3},
	{Name: "Bass", ProgramLow: 32, ProgramHigh: 40, Transfer: 38, Number: 4},
	{Name: "Strings", ProgramLow: 40, ProgramHigh: 48, Transfer: 50, Number: 5},
	{Name: "Ensemble", ProgramLow: 48, ProgramHigh: 56, Transfer: 51, Number: 6},
	{Name: "Brass", ProgramLow: 56, ProgramHigh: 64, Transfer: 63, Number: 7},
	{Name: "Reed", ProgramLow: 64, ProgramHigh: 72, Transfer: 64, Number: 8},
	{Name: "Pipe", ProgramLow: 72, ProgramHigh: 80, Transfer: 82, Number: 9},
	{Name: "Synth Lead", ProgramLow: 80, ProgramHigh: 88, Transfer: 81, Number: 10},
	{Name: "Synth Pad", ProgramLow: 88, ProgramHigh: 96, Transfer: 88, Number: 11},
	{Name: "Synth Effects", ProgramLow: 96, ProgramHigh: 104, Transfer: 96, Number: 12},
	{Name: "Ethnic", ProgramLow: 104, ProgramHigh: 112, Transfer: 104, Number: 13},
	{Name: "Percussive", ProgramLow: 112, ProgramHigh: 120, Transfer: 112, Number: 14},
	{Name: "Sound Effects", ProgramLow: 120, ProgramHigh: 128, Transfer: 120, Number: 15},
}

// Count is the number of instrument families.
const Count = 16

// Number returns the family number for a General MIDI program number.
func Number(program int) (int, error) {
	for _, c := range Classes {
		if program >= c.ProgramLow && program < c.ProgramHigh {
			return c.Number, nil
		}
	}
	return 0, fmt.Errorf("program number %d outside General MIDI range", program)
}

// Program returns the representative program number for a family.
// This is the inverse of Number up to the family's granularity.
func Program(familyNumber int) (int, error) {
	if familyNumber < 0 || familyNumber >= Count {
		return 0, fmt.Errorf("family number %d outside range 0-%d", familyNumber, Count-1)
	}
	return Classes[familyNumber].Transfer, nil
}

// Name returns the family's display name, or "Unknown" for an invalid
// family number.
func Name(familyNumber int) string {
	if familyNumber < 0 || familyNumber >= Count {
		return "Unknown"
	}
	return Classes[familyNumber].Name
}
