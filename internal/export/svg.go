// Package export writes phase portraits as SVG.
package export

import (
	"fmt"
	"io"
	"math"
	"strings"
)

type SVGOptions struct {
	Width, Height int
	Stroke        string
	Background    string
}

func DefaultSVGOptions() SVGOptions {
	return SVGOptions{Width: 640, Height: 480, Stroke: "#00ccff", Background: "#0a0a0a"}
}

// TrajectoryToSVG writes the path through (xs[k], ys[k]) with 10% padding
// and marks the first point. Degenerate ranges are widened to 1.
func TrajectoryToSVG(w io.Writer, xs, ys []float64, opts SVGOptions) error {
	n := min(len(xs), len(ys))
	if n < 2 {
		return fmt.Errorf("need at least two points, got %d", n)
	}

	minX, maxX := xs[0], xs[0]
	minY, maxY := ys[0], ys[0]
	for k := 0; k < n; k++ {
		minX, maxX = math.Min(minX, xs[k]), math.Max(maxX, xs[k])
		minY, maxY = math.Min(minY, ys[k]), math.Max(maxY, ys[k])
	}

	rangeX := maxX - minX
	rangeY := maxY - minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	minX -= rangeX * 0.1
	minY -= rangeY * 0.1
	rangeX *= 1.2
	rangeY *= 1.2

	width, height := float64(opts.Width), float64(opts.Height)
	px := func(v float64) float64 { return (v - minX) / rangeX * width }
	py := func(v float64) float64 { return height - (v-minY)/rangeY*height }

	var sb strings.Builder
	fmt.Fprintf(&sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="%s"/>
<path fill="none" stroke="%s" stroke-width="1.5" d="M`,
		opts.Width, opts.Height, opts.Width, opts.Height, opts.Background, opts.Stroke)

	for k := 0; k < n; k++ {
		if k == 0 {
			fmt.Fprintf(&sb, "%.1f,%.1f", px(xs[k]), py(ys[k]))
		} else {
			fmt.Fprintf(&sb, " L%.1f,%.1f", px(xs[k]), py(ys[k]))
		}
	}

	fmt.Fprintf(&sb, `"/>
<circle cx="%.1f" cy="%.1f" r="3" fill="%s"/>
</svg>
`, px(xs[0]), py(ys[0]), opts.Stroke)

	_, err := io.WriteString(w, sb.String())
	return err
}
