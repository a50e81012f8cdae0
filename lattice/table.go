package lattice

import (
	"fmt"
	"sort"
	"strings"

	"gonum.org/v1/gonum/floats"
)

// Row is one line of an element table: a placed element with its
// resolved centre position along the beamline.
type Row struct {
	Name   string         `json:"name"`
	Family string         `json:"family"`
	L      float64        `json:"L"`
	Pos    float64        `json:"pos"`
	Attrs  map[string]any `json:"attrs,omitempty"`
}

// Table is an ordered element table. Rows appear in beamline order;
// positions are element centres in metres from the start of the
// lattice.
type Table struct {
	Name string `json:"name,omitempty"`
	Rows []Row  `json:"rows"`
}

// buildTable expands the ordered name list against the definitions.
// Positions come from the explicit placements when given (MAD-X
// sequence imports); otherwise each centre is the running sum of
// lengths minus half the element's own length.
func buildTable(name string, order []string, defs Defs, at []float64) (*Table, error) {
	if missing := defs.Missing(order); len(missing) > 0 {
		return nil, fmt.Errorf("table not built, undefined elements: %s", strings.Join(missing, ", "))
	}
	if at != nil && len(at) != len(order) {
		return nil, fmt.Errorf("table not built: %d placements for %d elements", len(at), len(order))
	}

	rows := make([]Row, len(order))
	lengths := make([]float64, len(order))
	for i, n := range order {
		def := defs[n]
		rows[i] = Row{Name: def.Name, Family: def.Family, L: def.L}
		if def.Attrs != nil {
			rows[i].Attrs = make(map[string]any, len(def.Attrs))
			for k, v := range def.Attrs {
				rows[i].Attrs[k] = v
			}
		}
		lengths[i] = def.L
	}

	if at != nil {
		for i := range rows {
			rows[i].Pos = at[i]
		}
	} else {
		cum := make([]float64, len(lengths))
		floats.CumSum(cum, lengths)
		for i := range rows {
			rows[i].Pos = cum[i] - lengths[i]/2
		}
	}

	return &Table{Name: name, Rows: rows}, nil
}

// Clone returns a deep copy of the table.
func (t *Table) Clone() *Table {
	if t == nil {
		return nil
	}
	out := &Table{Name: t.Name, Rows: make([]Row, len(t.Rows))}
	for i, r := range t.Rows {
		out.Rows[i] = r
		if r.Attrs != nil {
			out.Rows[i].Attrs = make(map[string]any, len(r.Attrs))
			for k, v := range r.Attrs {
				out.Rows[i].Attrs[k] = v
			}
		}
	}
	return out
}

// Length returns the total lattice length: end of the last element.
func (t *Table) Length() float64 {
	if len(t.Rows) == 0 {
		return 0
	}
	last := t.Rows[len(t.Rows)-1]
	return last.Pos + last.L/2
}

// Columns returns the fixed columns followed by the sorted union of
// attribute keys across all rows.
func (t *Table) Columns() []string {
	cols := []string{"name", "family", "L", "pos"}
	set := map[string]bool{}
	for _, r := range t.Rows {
		for k := range r.Attrs {
			set[k] = true
		}
	}
	extra := make([]string, 0, len(set))
	for k := range set {
		extra = append(extra, k)
	}
	sort.Strings(extra)
	return append(cols, extra...)
}

// Format renders the table as aligned text for terminal output.
func (t *Table) Format() string {
	cols := t.Columns()
	var b strings.Builder
	fmt.Fprintf(&b, "%-12s %-12s %10s %12s", "NAME", "FAMILY", "L", "POS")
	for _, c := range cols[4:] {
		fmt.Fprintf(&b, " %12s", c)
	}
	b.WriteByte('\n')
	for _, r := range t.Rows {
		fmt.Fprintf(&b, "%-12s %-12s %10.4f %12.5f", r.Name, r.Family, r.L, r.Pos)
		for _, c := range cols[4:] {
			v, ok := r.Attrs[c]
			if !ok {
				fmt.Fprintf(&b, " %12s", "")
				continue
			}
			switch x := v.(type) {
			case float64:
				fmt.Fprintf(&b, " %12.5g", x)
			default:
				fmt.Fprintf(&b, " %12v", x)
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}
