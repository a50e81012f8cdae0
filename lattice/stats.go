package lattice

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// FamilyStats summarises one element family within a survey.
type FamilyStats struct {
	Count    int     `json:"count"`
	Length   float64 `json:"length"`
	Fraction float64 `json:"fraction"`
}

// Survey summarises a built element table: total length, element
// count, per-family footprint and length statistics.
type Survey struct {
	Name        string                 `json:"name,omitempty"`
	Elements    int                    `json:"elements"`
	TotalLength float64                `json:"total_length"`
	MeanLength  float64                `json:"mean_length"`
	StdLength   float64                `json:"std_length"`
	Families    map[string]FamilyStats `json:"families"`
}

// Survey computes summary statistics for the table.
func (t *Table) Survey() (*Survey, error) {
	if len(t.Rows) == 0 {
		return nil, fmt.Errorf("survey of empty table")
	}

	lengths := make([]float64, len(t.Rows))
	for i, r := range t.Rows {
		lengths[i] = r.L
	}
	total := floats.Sum(lengths)

	s := &Survey{
		Name:        t.Name,
		Elements:    len(t.Rows),
		TotalLength: total,
		MeanLength:  stat.Mean(lengths, nil),
		StdLength:   stat.StdDev(lengths, nil),
		Families:    make(map[string]FamilyStats),
	}

	for _, r := range t.Rows {
		fs := s.Families[r.Family]
		fs.Count++
		fs.Length += r.L
		s.Families[r.Family] = fs
	}
	if total > 0 {
		for fam, fs := range s.Families {
			fs.Fraction = fs.Length / total
			s.Families[fam] = fs
		}
	}
	return s, nil
}

// FamilyNames returns the survey's family names in sorted order.
func (s *Survey) FamilyNames() []string {
	names := make([]string, 0, len(s.Families))
	for fam := range s.Families {
		names = append(names, fam)
	}
	sort.Strings(names)
	return names
}
