package lattice

import (
	"fmt"
	"sort"
	"strings"
)

// Definition describes a single beamline element: its name, its MAD-X
// family (QUADRUPOLE, DRIFT, MARKER, ...), its length in metres, and
// any extra attributes from the source file (K1, ANGLE, VOLT,
// FILENAME, ...). Attribute values are float64, string or bool.
type Definition struct {
	Name   string         `json:"name"`
	Family string         `json:"family"`
	L      float64        `json:"L"`
	Attrs  map[string]any `json:"attrs,omitempty"`
}

// Clone returns a deep copy of the definition.
func (d Definition) Clone() Definition {
	out := d
	if d.Attrs != nil {
		out.Attrs = make(map[string]any, len(d.Attrs))
		for k, v := range d.Attrs {
			out.Attrs[k] = v
		}
	}
	return out
}

// Defs maps upper-cased element names to their definitions.
type Defs map[string]Definition

// Clone returns a deep copy of the definitions map.
func (ds Defs) Clone() Defs {
	out := make(Defs, len(ds))
	for k, v := range ds {
		out[k] = v.Clone()
	}
	return out
}

// Normalize upper-cases names and attribute keys, fills in missing
// Name fields from the map key, and converts families to the MAD-X
// vocabulary. It returns an error for any definition without a length:
// lengths are required for position calculation.
func (ds Defs) Normalize() (Defs, error) {
	out := make(Defs, len(ds))
	for key, def := range ds {
		name := strings.ToUpper(strings.TrimSpace(key))
		if def.Name == "" {
			def.Name = name
		} else {
			def.Name = strings.ToUpper(def.Name)
		}
		def.Family = CanonicalFamily(strings.ToUpper(def.Family))
		if def.Attrs != nil {
			attrs := make(map[string]any, len(def.Attrs))
			for k, v := range def.Attrs {
				attrs[strings.ToUpper(k)] = v
			}
			def.Attrs = attrs
		}
		out[name] = def
	}
	return out, nil
}

// Missing returns the sorted set of names in order that have no
// definition.
func (ds Defs) Missing(order []string) []string {
	seen := map[string]bool{}
	var missing []string
	for _, name := range order {
		if _, ok := ds[name]; !ok && !seen[name] {
			seen[name] = true
			missing = append(missing, name)
		}
	}
	sort.Strings(missing)
	return missing
}

// requireLength rejects unusable lengths. Zero is valid (markers,
// monitors); negative lengths break the position calculation.
func requireLength(def Definition) error {
	if def.L < 0 {
		return fmt.Errorf("element %s: negative length %g", def.Name, def.L)
	}
	return nil
}
