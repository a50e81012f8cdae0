package parse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMADXLineFile(t *testing.T) {
	src := `
// FODO in line notation
LQ := 0.342;
KF = 0.98 / 2;

QF: QUADRUPOLE, L=LQ, K1:=KF;
QD: QUADRUPOLE, L=0.668, K1=-0.4999;
D: DRIFT, L=3.5805;

FODO: LINE=(QF, D, QD, D);
USE, PERIOD=FODO;
`
	res, err := MADX(src)
	require.NoError(t, err)

	assert.Equal(t, "FODO", res.Name)
	assert.Equal(t, []string{"QF", "D", "QD", "D"}, res.Order)
	assert.Nil(t, res.Placements)

	qf := res.Defs["QF"]
	assert.Equal(t, "QUADRUPOLE", qf.Family)
	assert.Equal(t, 0.342, qf.L)
	assert.Equal(t, 0.49, qf.Attrs["K1"])
}

func TestMADXSequence(t *testing.T) {
	src := `
QF: QUADRUPOLE, L=0.342, K1=0.49;
QD: QUADRUPOLE, L=0.668, K1=-0.4999;

FODO: SEQUENCE, L=8.513;
  QF, at=0.171;
  QD, at=4.2565;
  QF2: QF, at=8.342;
ENDSEQUENCE;

USE, SEQUENCE=FODO;
`
	res, err := MADX(src)
	require.NoError(t, err)

	assert.Equal(t, "FODO", res.Name)
	assert.Equal(t, []string{"QF", "QD", "QF2"}, res.Order)

	require.Len(t, res.Placements, 3)
	assert.Equal(t, Placement{Name: "QF", At: 0.171}, res.Placements[0])
	assert.Equal(t, Placement{Name: "QD", At: 4.2565}, res.Placements[1])
	assert.Equal(t, Placement{Name: "QF2", At: 8.342}, res.Placements[2])

	assert.Equal(t, []float64{0.171, 4.2565, 8.342}, res.Positions())

	// the inline element inherits its class
	qf2 := res.Defs["QF2"]
	assert.Equal(t, "QUADRUPOLE", qf2.Family)
	assert.Equal(t, 0.342, qf2.L)
	assert.Equal(t, 0.49, qf2.Attrs["K1"])
	assert.NotContains(t, qf2.Attrs, "AT")
}

func TestMADXSequenceMissingAt(t *testing.T) {
	src := `
QF: QUADRUPOLE, L=0.342;
FODO: SEQUENCE, L=8.513;
  QF;
ENDSEQUENCE;
`
	_, err := MADX(src)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing at=")
}

func TestMADXComments(t *testing.T) {
	src := `
! exclamation comment
// slash comment
/* block
   comment spanning lines */
QF: QUADRUPOLE, ! trailing comment
    L=0.342;
CELL: LINE=(QF);
`
	res, err := MADX(src)
	require.NoError(t, err)
	assert.Equal(t, 0.342, res.Defs["QF"].L)
	assert.Equal(t, []string{"QF"}, res.Order)
}

func TestMADXExpressionsAndVariables(t *testing.T) {
	src := `
CONST E0 = 1.5;
half.cell := 4.2565;
QF: QUADRUPOLE, L=0.342, K1=E0 * 2 - 2.51, TILT=pi / 2;
D: DRIFT, L=half.cell - 0.342;
CELL: LINE=(QF, D);
`
	res, err := MADX(src)
	require.NoError(t, err)

	qf := res.Defs["QF"]
	assert.InDelta(t, 0.49, qf.Attrs["K1"].(float64), 1e-12)
	assert.InDelta(t, 1.5707963267948966, qf.Attrs["TILT"].(float64), 1e-12)
	assert.InDelta(t, 3.9145, res.Defs["D"].L, 1e-12)
}

func TestMADXBareWordAttribute(t *testing.T) {
	src := `
COL: RCOLLIMATOR, L=0.1, APERTYPE=circle;
CELL: LINE=(COL);
`
	res, err := MADX(src)
	require.NoError(t, err)
	assert.Equal(t, "circle", res.Defs["COL"].Attrs["APERTYPE"])
}

func TestMADXFlagsAndStrings(t *testing.T) {
	src := `
M: MARKER, L=0, THICK, LABEL="inj point";
CELL: LINE=(M);
`
	res, err := MADX(src)
	require.NoError(t, err)
	m := res.Defs["M"]
	assert.Equal(t, true, m.Attrs["THICK"])
	assert.Equal(t, "inj point", m.Attrs["LABEL"])
}

func TestMADXUndefinedVariable(t *testing.T) {
	src := `
QF: QUADRUPOLE, L=LQ + 1;
CELL: LINE=(QF);
`
	_, err := MADX(src)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "undefined variable")
}

func TestMADXUnknownUseTarget(t *testing.T) {
	src := `
QF: QUADRUPOLE, L=0.342;
CELL: LINE=(QF);
USE, SEQUENCE=RING;
`
	_, err := MADX(src)
	require.Error(t, err)
}

func TestMADXIgnoresOtherCommands(t *testing.T) {
	src := `
TITLE, "test machine";
BEAM, PARTICLE=ELECTRON, ENERGY=1.7;
QF: QUADRUPOLE, L=0.342;
CELL: LINE=(QF);
TWISS, FILE="twiss.out";
`
	res, err := MADX(src)
	require.NoError(t, err)
	assert.Equal(t, []string{"QF"}, res.Order)
}
