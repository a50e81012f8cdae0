package monitor

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomerten/latticeconstructor/lattice"
)

func fodoTable(t *testing.T) *lattice.Table {
	t.Helper()
	b := lattice.NewBuilder()
	require.NoError(t, b.AddDefinitions(lattice.Defs{
		"QF": {Family: "KQUAD", L: 0.342},
		"QD": {Family: "KQUAD", L: 0.668},
		"D":  {Family: "DRIF", L: 3.5805},
		"W1": {Family: "WATCH", L: 0},
	}))
	require.NoError(t, b.AddElements("W1", "QF", "D", "QD", "D", "QF"))
	table, err := b.BuildTable()
	require.NoError(t, err)
	return table
}

func TestRenderSynoptic(t *testing.T) {
	table := fodoTable(t)

	var buf bytes.Buffer
	require.NoError(t, RenderSynoptic(&buf, table))

	html := buf.String()
	assert.Contains(t, html, "Lattice Synoptic")
	assert.Contains(t, html, "QUADRUPOLE")
	assert.Contains(t, html, "DRIFT")
	assert.Contains(t, html, "MARKER")
}

func TestRenderSynopticEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.Error(t, RenderSynoptic(&buf, &lattice.Table{}))
}

func TestSurveyPlot(t *testing.T) {
	table := fodoTable(t)

	path := filepath.Join(t.TempDir(), "survey.png")
	require.NoError(t, SurveyPlot(table, path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestSurveyPlotEmpty(t *testing.T) {
	require.Error(t, SurveyPlot(&lattice.Table{}, "unused.png"))
}
