// Package monitor renders lattice tables for humans: an interactive
// synoptic chart (go-echarts HTML) and a static survey plot (PNG).
package monitor

import (
	"fmt"
	"io"
	"sort"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/tomerten/latticeconstructor/lattice"
)

// RenderSynoptic writes an HTML synoptic chart of the element table:
// one scatter series per element family, x = centre position along the
// beamline, symbol size scaled with element length. Tooltips carry the
// element names.
func RenderSynoptic(w io.Writer, t *lattice.Table) error {
	if len(t.Rows) == 0 {
		return fmt.Errorf("synoptic of empty table")
	}

	byFamily := map[string][]opts.ScatterData{}
	maxL := 0.0
	for _, r := range t.Rows {
		if r.L > maxL {
			maxL = r.L
		}
	}
	if maxL == 0 {
		maxL = 1
	}

	families := make([]string, 0, 8)
	for i, r := range t.Rows {
		if _, ok := byFamily[r.Family]; !ok {
			families = append(families, r.Family)
		}
		// symbol size 6..22 px, proportional to length
		size := int(6 + 16*r.L/maxL)
		byFamily[r.Family] = append(byFamily[r.Family], opts.ScatterData{
			Name:       fmt.Sprintf("%s [%d]", r.Name, i),
			Value:      []any{r.Pos, r.Family},
			SymbolSize: size,
		})
	}
	sort.Strings(families)

	title := t.Name
	if title == "" {
		title = "lattice"
	}
	end := t.Length()

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Lattice Synoptic", Theme: "dark", Width: "1200px", Height: "500px"}),
		charts.WithTitleOpts(opts.Title{Title: "Lattice Synoptic", Subtitle: fmt.Sprintf("lattice=%s elements=%d length=%.3f m", title, len(t.Rows), end)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Min: 0, Max: end, Name: "s (m)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Type: "category", Name: "family"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
	)

	for _, fam := range families {
		scatter.AddSeries(fam, byFamily[fam])
	}

	return scatter.Render(w)
}
