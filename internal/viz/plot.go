package viz

import (
	"fmt"

	"github.com/guptarohit/asciigraph"
)

const (
	PlotHeight = 10
	PlotWidth  = 80
)

// Column extracts column j of row-major sweep values.
func Column(values [][]float64, j int) []float64 {
	out := make([]float64, len(values))
	for i, row := range values {
		if j < len(row) {
			out[i] = row[j]
		}
	}
	return out
}

// PlotColumn plots one sweep column against the grid.
func PlotColumn(variable string, grid []float64, values [][]float64, j int, name string) string {
	if len(grid) == 0 {
		return ""
	}
	caption := fmt.Sprintf("%s vs %s [%g, %g]", name, variable, grid[0], grid[len(grid)-1])
	return asciigraph.Plot(Column(values, j),
		asciigraph.Height(PlotHeight),
		asciigraph.Width(PlotWidth),
		asciigraph.Caption(caption),
	)
}
