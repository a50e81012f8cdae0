package lattice

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSurveyFODO(t *testing.T) {
	b := fodoBuilder(t)
	table, err := b.BuildTable()
	require.NoError(t, err)

	s, err := table.Survey()
	require.NoError(t, err)

	assert.Equal(t, 6, s.Elements)
	assert.InDelta(t, 8.513, s.TotalLength, 1e-12)
	assert.InDelta(t, 8.513/6, s.MeanLength, 1e-12)
	assert.Greater(t, s.StdLength, 0.0)

	require.Contains(t, s.Families, "QUADRUPOLE")
	require.Contains(t, s.Families, "DRIFT")
	require.Contains(t, s.Families, "MARKER")

	quads := s.Families["QUADRUPOLE"]
	assert.Equal(t, 3, quads.Count)
	assert.InDelta(t, 2*0.342+0.668, quads.Length, 1e-12)
	assert.InDelta(t, quads.Length/8.513, quads.Fraction, 1e-12)

	drifts := s.Families["DRIFT"]
	assert.Equal(t, 2, drifts.Count)
	assert.InDelta(t, 2*3.5805, drifts.Length, 1e-12)

	assert.Equal(t, []string{"DRIFT", "MARKER", "QUADRUPOLE"}, s.FamilyNames())
}

func TestSurveyEmptyTable(t *testing.T) {
	table := &Table{}
	_, err := table.Survey()
	require.Error(t, err)
}

func TestTableColumnsAndFormat(t *testing.T) {
	b := fodoBuilder(t)
	table, err := b.BuildTable()
	require.NoError(t, err)

	cols := table.Columns()
	assert.Equal(t, []string{"name", "family", "L", "pos"}, cols[:4])
	assert.Contains(t, cols, "K1")
	assert.Contains(t, cols, "MODE")

	out := table.Format()
	assert.Contains(t, out, "NAME")
	assert.Contains(t, out, "QF")
	assert.Contains(t, out, "QUADRUPOLE")
}
