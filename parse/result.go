// Package parse reads accelerator lattice descriptions in the Elegant
// (.lte) and MAD-X input formats and produces element definitions plus
// the ordered element sequence, ready to load into a lattice.Builder.
package parse

import (
	"fmt"
	"os"
	"strings"

	"github.com/tomerten/latticeconstructor/lattice"
)

// Supported source formats.
const (
	FormatElegant = "lte"
	FormatMADX    = "madx"
)

// Placement is an explicit element placement from a MAD-X sequence:
// the element name and its centre position from the sequence start.
type Placement struct {
	Name string  `json:"name"`
	At   float64 `json:"at"`
}

// Result holds everything extracted from a lattice file.
type Result struct {
	// Name of the selected lattice: the USE target for Elegant, the
	// sequence or USE name for MAD-X. Empty when the file names none.
	Name string

	// Defs are the element definitions, names upper-cased and
	// families converted to the MAD-X vocabulary.
	Defs lattice.Defs

	// Order is the flattened, ordered element-name sequence.
	Order []string

	// Placements carries explicit positions for sequence files; nil
	// for line-based files.
	Placements []Placement
}

// Positions returns the placement centres aligned with Order, or nil
// when the source had no explicit positions.
func (r *Result) Positions() []float64 {
	if r.Placements == nil {
		return nil
	}
	out := make([]float64, len(r.Placements))
	for i, p := range r.Placements {
		out[i] = p.At
	}
	return out
}

// Apply installs the parsed lattice into the builder.
func (r *Result) Apply(b *lattice.Builder) error {
	return b.SetLattice(r.Name, r.Defs, r.Order, r.Positions())
}

// String parses lattice source text in the given format.
func String(src, format string) (*Result, error) {
	switch strings.ToLower(format) {
	case FormatElegant:
		return Elegant(src)
	case FormatMADX:
		return MADX(src)
	default:
		return nil, fmt.Errorf("unknown lattice format %q (want %q or %q)", format, FormatElegant, FormatMADX)
	}
}

// File reads and parses a lattice file in the given format.
func File(path, format string) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read lattice file: %w", err)
	}
	res, err := String(string(data), format)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return res, nil
}
