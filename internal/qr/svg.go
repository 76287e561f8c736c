package qr

import (
	"bytes"
	"fmt"

	svg "github.com/ajstarks/svgo"
)

// svgScale maps one module to 10 user units so sub-module geometry (corner
// radii, bridges) stays on integer coordinates.
const svgScale = 10

// RenderSVG expresses the same geometry as RenderImage with vector
// primitives. The document scales via its viewBox and embeds no raster, so
// it stays print quality at any size.
func RenderSVG(grid *ModuleGrid, opts Options) (string, error) {
	if err := opts.Validate(); err != nil {
		return "", err
	}

	total := grid.Side() + 2*opts.Border
	units := total * svgScale
	fg := "fill:" + hexString(opts.Foreground)
	bg := "fill:" + hexString(opts.Background)

	var buf bytes.Buffer
	canvas := svg.New(&buf)
	canvas.Start(opts.Size, opts.Size, fmt.Sprintf(`viewBox="0 0 %d %d"`, units, units))
	canvas.Rect(0, 0, units, units, bg)

	for y := 0; y < grid.Side(); y++ {
		for x := 0; x < grid.Side(); x++ {
			if !grid.Dark(x, y) {
				continue
			}
			px := (opts.Border + x) * svgScale
			py := (opts.Border + y) * svgScale
			switch moduleStyle(grid, opts.Style, x, y) {
			case StyleRounded:
				canvas.Roundrect(px, py, svgScale, svgScale, 4, 4, fg)
				bridgeSVG(canvas, grid, x, y, px, py, fg)
			case StyleCircle:
				canvas.Circle(px+svgScale/2, py+svgScale/2, svgScale/2, fg)
				bridgeSVG(canvas, grid, x, y, px, py, fg)
			default:
				canvas.Rect(px, py, svgScale, svgScale, fg)
			}
		}
	}

	canvas.End()
	return buf.String(), nil
}

func bridgeSVG(canvas *svg.SVG, grid *ModuleGrid, x, y, px, py int, fg string) {
	if grid.Dark(x+1, y) {
		canvas.Rect(px+svgScale/2, py+1, svgScale, svgScale-2, fg)
	}
	if grid.Dark(x, y+1) {
		canvas.Rect(px+1, py+svgScale/2, svgScale-2, svgScale, fg)
	}
}
