package lattice

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fodoDefs() Defs {
	return Defs{
		"QF": {Family: "KQUAD", L: 0.342, Attrs: map[string]any{"K1": 0.49, "N_KICKS": 16.0}},
		"QD": {Family: "KQUAD", L: 0.668, Attrs: map[string]any{"K1": -0.4999, "N_KICKS": 16.0}},
		"D":  {Family: "DRIF", L: 3.5805},
		"W1": {Family: "WATCH", L: 0, Attrs: map[string]any{"FILENAME": `"%s-%03ld.w1"`, "MODE": "coordinates"}},
	}
}

func fodoBuilder(t *testing.T) *Builder {
	t.Helper()
	b := NewBuilder()
	require.NoError(t, b.AddDefinitions(fodoDefs()))
	require.NoError(t, b.AddElements("W1", "QF", "D", "QD", "D", "QF"))
	return b
}

func TestBuildTableFODO(t *testing.T) {
	b := fodoBuilder(t)
	table, err := b.BuildTable()
	require.NoError(t, err)
	require.Len(t, table.Rows, 6)

	wantNames := []string{"W1", "QF", "D", "QD", "D", "QF"}
	wantFamilies := []string{"MARKER", "QUADRUPOLE", "DRIFT", "QUADRUPOLE", "DRIFT", "QUADRUPOLE"}
	wantPos := []float64{0.0, 0.171, 2.13225, 4.2565, 6.38075, 8.342}

	for i, r := range table.Rows {
		assert.Equal(t, wantNames[i], r.Name)
		assert.Equal(t, wantFamilies[i], r.Family)
		assert.InDelta(t, wantPos[i], r.Pos, 1e-12, "row %d pos", i)
	}

	assert.InDelta(t, 8.513, table.Length(), 1e-12)
	assert.Equal(t, 0.49, table.Rows[1].Attrs["K1"])
	assert.Equal(t, "coordinates", table.Rows[0].Attrs["MODE"])
}

func TestBuildTableMissingDefinitions(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.AddDefinitions(Defs{"QF": {Family: "KQUAD", L: 0.342}}))
	require.NoError(t, b.AddElements("QF", "D", "QD"))

	_, err := b.BuildTable()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "D")
	assert.Contains(t, err.Error(), "QD")
	assert.Nil(t, b.Table())
}

func TestFamilyConversion(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.AddDefinitions(Defs{
		"M1": {Family: "MARK", L: 0},
		"B1": {Family: "CSBEND", L: 1.2},
		"BP": {Family: "SOMETHING_ELSE", L: 0.1},
	}))
	defs := b.Definitions()
	assert.Equal(t, "MARKER", defs["M1"].Family)
	assert.Equal(t, "SBEND", defs["B1"].Family)
	assert.Equal(t, "SOMETHING_ELSE", defs["BP"].Family)
}

func TestAddDefinitionsRejectsNegativeLength(t *testing.T) {
	b := NewBuilder()
	err := b.AddDefinitions(Defs{"X": {Family: "DRIFT", L: -1}})
	require.Error(t, err)
	assert.Empty(t, b.Definitions())
}

func TestEditOperations(t *testing.T) {
	t.Run("replace by name", func(t *testing.T) {
		b := fodoBuilder(t)
		require.NoError(t, b.ReplaceElement("QD", "QD2"))
		assert.Equal(t, []string{"W1", "QF", "D", "QD2", "D", "QF"}, b.Order())
	})

	t.Run("replace by name with list", func(t *testing.T) {
		b := fodoBuilder(t)
		require.NoError(t, b.ReplaceElement("QD", "QDA", "QDB"))
		assert.Equal(t, []string{"W1", "QF", "D", "QDA", "QDB", "D", "QF"}, b.Order())
	})

	t.Run("replace unknown name", func(t *testing.T) {
		b := fodoBuilder(t)
		require.Error(t, b.ReplaceElement("NOPE", "QD2"))
	})

	t.Run("replace at index", func(t *testing.T) {
		b := fodoBuilder(t)
		require.NoError(t, b.ReplaceElementAt(0, "W2"))
		assert.Equal(t, []string{"W2", "QF", "D", "QD", "D", "QF"}, b.Order())
	})

	t.Run("replace range", func(t *testing.T) {
		b := fodoBuilder(t)
		require.NoError(t, b.ReplaceRange(1, 3, "HC"))
		assert.Equal(t, []string{"W1", "HC", "D", "QF"}, b.Order())
	})

	t.Run("insert before and after", func(t *testing.T) {
		b := fodoBuilder(t)
		require.NoError(t, b.InsertBefore(1, "BPM1"))
		require.NoError(t, b.InsertAfter(2, "COR1"))
		assert.Equal(t, []string{"W1", "BPM1", "QF", "COR1", "D", "QD", "D", "QF"}, b.Order())
	})

	t.Run("remove", func(t *testing.T) {
		b := fodoBuilder(t)
		require.NoError(t, b.RemoveAt(0))
		require.NoError(t, b.RemoveRange(0, 1))
		assert.Equal(t, []string{"QD", "D", "QF"}, b.Order())
	})

	t.Run("index bounds", func(t *testing.T) {
		b := fodoBuilder(t)
		assert.Error(t, b.RemoveAt(-1))
		assert.Error(t, b.RemoveAt(6))
		assert.Error(t, b.ReplaceRange(3, 2, "X"))
		assert.Error(t, b.InsertAfter(6, "X"))
		require.NoError(t, b.InsertBefore(6, "X")) // append position is valid
	})
}

func TestIndices(t *testing.T) {
	b := fodoBuilder(t)
	assert.Equal(t, []int{1, 5}, b.Indices("QF"))
	assert.Equal(t, []int{2, 4}, b.Indices("d"))
	assert.Nil(t, b.Indices("NOPE"))
}

func TestTableRefreshAfterEdit(t *testing.T) {
	b := fodoBuilder(t)
	_, err := b.BuildTable()
	require.NoError(t, err)

	// dropping the leading marker shifts every centre forward
	require.NoError(t, b.RemoveAt(0))
	table := b.Table()
	require.NotNil(t, table)
	require.Len(t, table.Rows, 5)
	assert.InDelta(t, 0.171, table.Rows[0].Pos, 1e-12)

	// introducing an undefined element invalidates the table
	require.NoError(t, b.AddElements("MYSTERY"))
	assert.Nil(t, b.Table())
}

func TestUndo(t *testing.T) {
	b := NewBuilder()
	require.ErrorIs(t, b.Undo(), ErrNoHistory)

	require.NoError(t, b.AddDefinitions(fodoDefs()))
	require.NoError(t, b.AddElements("QF", "D"))
	require.NoError(t, b.AddElements("QD"))

	require.NoError(t, b.Undo())
	assert.Equal(t, []string{"QF", "D"}, b.Order())

	require.NoError(t, b.Undo())
	assert.Empty(t, b.Order())
	assert.Len(t, b.Definitions(), 4)

	require.NoError(t, b.Undo())
	assert.Empty(t, b.Definitions())
	require.ErrorIs(t, b.Undo(), ErrNoHistory)
}

func TestUndoRestoresTable(t *testing.T) {
	b := fodoBuilder(t)
	_, err := b.BuildTable()
	require.NoError(t, err)
	before := b.Table().Clone()

	require.NoError(t, b.RemoveRange(0, 2))
	require.NoError(t, b.Undo())

	if diff := cmp.Diff(before, b.Table()); diff != "" {
		t.Errorf("table mismatch after undo (-want +got):\n%s", diff)
	}
}

func TestSetLatticeWithPlacements(t *testing.T) {
	b := NewBuilder()
	defs := Defs{
		"QF": {Family: "QUADRUPOLE", L: 0.342},
		"D":  {Family: "DRIFT", L: 3.5805},
	}
	require.NoError(t, b.SetLattice("RING", defs, []string{"QF", "D"}, []float64{0.5, 2.5}))

	table, err := b.BuildTable()
	require.NoError(t, err)
	assert.Equal(t, "RING", table.Name)
	assert.Equal(t, 0.5, table.Rows[0].Pos)
	assert.Equal(t, 2.5, table.Rows[1].Pos)

	// a structural edit drops the imported positions
	require.NoError(t, b.AddElements("D"))
	assert.Nil(t, b.Placements())
	table = b.Table()
	require.NotNil(t, table)
	assert.InDelta(t, 0.171, table.Rows[0].Pos, 1e-12)
}

func TestSetLatticePlacementMismatch(t *testing.T) {
	b := NewBuilder()
	err := b.SetLattice("X", Defs{"D": {Family: "DRIFT", L: 1}}, []string{"D", "D"}, []float64{0.5})
	require.Error(t, err)
}
