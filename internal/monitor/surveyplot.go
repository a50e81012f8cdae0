package monitor

import (
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/tomerten/latticeconstructor/lattice"
)

// SurveyPlot saves a PNG footprint plot of the element table: each
// family on its own horizontal level, one line segment per element
// spanning [pos-L/2, pos+L/2]. Zero-length elements (markers) are
// drawn as points.
func SurveyPlot(t *lattice.Table, path string) error {
	if len(t.Rows) == 0 {
		return fmt.Errorf("survey plot of empty table")
	}

	p := plot.New()
	title := t.Name
	if title == "" {
		title = "lattice"
	}
	p.Title.Text = fmt.Sprintf("Survey - %s", title)
	p.X.Label.Text = "s (m)"
	p.Y.Label.Text = "family"

	// stable family levels: order of first appearance
	level := map[string]float64{}
	var names []string
	for _, r := range t.Rows {
		if _, ok := level[r.Family]; !ok {
			level[r.Family] = float64(len(level) + 1)
			names = append(names, r.Family)
		}
	}

	// beamline axis
	axis := plotter.XYs{{X: 0, Y: 0}, {X: t.Length(), Y: 0}}
	axisLine, err := plotter.NewLine(axis)
	if err != nil {
		return fmt.Errorf("beamline axis: %w", err)
	}
	axisLine.Width = vg.Points(1)
	p.Add(axisLine)

	for _, r := range t.Rows {
		y := level[r.Family]
		if r.L == 0 {
			pts, err := plotter.NewScatter(plotter.XYs{{X: r.Pos, Y: y}})
			if err != nil {
				return fmt.Errorf("element %s: %w", r.Name, err)
			}
			p.Add(pts)
			continue
		}
		seg := plotter.XYs{
			{X: r.Pos - r.L/2, Y: y},
			{X: r.Pos + r.L/2, Y: y},
		}
		line, err := plotter.NewLine(seg)
		if err != nil {
			return fmt.Errorf("element %s: %w", r.Name, err)
		}
		line.Width = vg.Points(4)
		p.Add(line)
	}

	ticks := make([]plot.Tick, 0, len(names)+1)
	ticks = append(ticks, plot.Tick{Value: 0, Label: "beamline"})
	for _, fam := range names {
		ticks = append(ticks, plot.Tick{Value: level[fam], Label: fam})
	}
	p.Y.Tick.Marker = plot.ConstantTicks(ticks)
	p.Y.Min = -0.5
	p.Y.Max = float64(len(names)) + 0.5

	if err := p.Save(14*vg.Inch, 4*vg.Inch, path); err != nil {
		return fmt.Errorf("save survey plot: %w", err)
	}
	return nil
}
