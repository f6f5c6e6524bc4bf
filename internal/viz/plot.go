package viz

import (
	"fmt"
	"math"

	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/fesdsim/internal/homotopy"
)

var seriesColors = []asciigraph.AnsiColor{
	asciigraph.Cyan, asciigraph.Yellow, asciigraph.Magenta, asciigraph.Green, asciigraph.Red, asciigraph.Blue,
}

// Column extracts component i of every state.
func Column[S ~[]float64](states []S, i int) []float64 {
	out := make([]float64, 0, len(states))
	for _, s := range states {
		if i < len(s) {
			out = append(out, s[i])
		}
	}
	return out
}

// Trajectory plots every state component over the run, one colored series
// per component.
func Trajectory[S ~[]float64](states []S, width, height int, caption string) string {
	if len(states) < 2 {
		return ""
	}
	n := len(states[0])
	data := make([][]float64, n)
	legends := make([]string, n)
	colors := make([]asciigraph.AnsiColor, n)
	for i := range data {
		data[i] = Column(states, i)
		legends[i] = fmt.Sprintf("x%d", i)
		colors[i] = seriesColors[i%len(seriesColors)]
	}
	return asciigraph.PlotMany(data,
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Caption(caption),
		asciigraph.SeriesColors(colors...),
		asciigraph.SeriesLegends(legends...),
	)
}

// Convergence plots log10 of the complementarity residual per homotopy level.
func Convergence(log *homotopy.Log, width, height int) string {
	if log == nil || log.Levels() == 0 {
		return ""
	}
	data := make([]float64, log.Levels())
	for i, r := range log.CompRes {
		data[i] = math.Log10(math.Max(r, 1e-300))
	}
	if len(data) == 1 {
		data = append(data, data[0])
	}
	return asciigraph.Plot(data,
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Precision(1),
		asciigraph.Caption("log10 comp residual per level"),
	)
}

// Series plots one named sequence, such as Newton iterations per step.
func Series(data []float64, width, height int, caption string) string {
	if len(data) == 0 {
		return ""
	}
	if len(data) == 1 {
		data = []float64{data[0], data[0]}
	}
	return asciigraph.Plot(data,
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Caption(caption),
	)
}
