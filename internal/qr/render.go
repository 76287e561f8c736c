package qr

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"strings"

	"github.com/fogleman/gg"
)

// Style selects how dark modules are drawn.
type Style string

const (
	StyleSquare  Style = "square"
	StyleRounded Style = "rounded"
	StyleCircle  Style = "circle"
)

// ParseStyle maps the wire form to a Style. Empty defaults to square.
func ParseStyle(s string) (Style, error) {
	switch strings.ToLower(s) {
	case "", "square":
		return StyleSquare, nil
	case "rounded":
		return StyleRounded, nil
	case "circle":
		return StyleCircle, nil
	}
	return "", ErrInvalidStyle
}

// Options control how a module grid is turned into an image.
type Options struct {
	Size       int // output edge length in pixels, 50-2000
	Border     int // quiet zone width in modules, 0-10
	Foreground color.RGBA
	Background color.RGBA
	Style      Style
}

// ParseHexColor parses "#RRGGBB" (or short "#RGB") into an opaque color.
func ParseHexColor(s string) (color.RGBA, error) {
	if !strings.HasPrefix(s, "#") {
		return color.RGBA{}, ErrInvalidColor
	}
	hex := s[1:]
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 {
		return color.RGBA{}, ErrInvalidColor
	}
	var rgb [3]uint8
	for i := 0; i < 3; i++ {
		var v int
		for _, c := range hex[i*2 : i*2+2] {
			switch {
			case c >= '0' && c <= '9':
				v = v<<4 | int(c-'0')
			case c >= 'a' && c <= 'f':
				v = v<<4 | int(c-'a'+10)
			case c >= 'A' && c <= 'F':
				v = v<<4 | int(c-'A'+10)
			default:
				return color.RGBA{}, ErrInvalidColor
			}
		}
		rgb[i] = uint8(v)
	}
	return color.RGBA{R: rgb[0], G: rgb[1], B: rgb[2], A: 255}, nil
}

func hexString(c color.RGBA) string {
	return fmt.Sprintf("#%02X%02X%02X", c.R, c.G, c.B)
}

// Validate checks range constraints before any drawing work.
func (o Options) Validate() error {
	if o.Size < 50 || o.Size > 2000 {
		return ErrInvalidSize
	}
	if o.Border < 0 || o.Border > 10 {
		return ErrInvalidBorder
	}
	switch o.Style {
	case StyleSquare, StyleRounded, StyleCircle:
	default:
		return ErrInvalidStyle
	}
	return nil
}

// RenderImage draws the grid into an in-memory raster. The background fills
// the whole canvas, including the quiet zone; only dark modules are painted
// foreground. For rounded and circle styles, orthogonally adjacent dark
// modules are bridged so scanners still see continuous runs, and function
// patterns stay square so locators keep their module ratios. Each module is
// filled on its own; accumulating paths lets overlapping subpaths cancel
// under the winding rule.
func RenderImage(grid *ModuleGrid, opts Options) (image.Image, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	total := grid.Side() + 2*opts.Border
	cell := float64(opts.Size) / float64(total)
	offset := float64(opts.Border) * cell

	dc := gg.NewContext(opts.Size, opts.Size)
	dc.SetColor(opts.Background)
	dc.Clear()
	dc.SetColor(opts.Foreground)

	for y := 0; y < grid.Side(); y++ {
		for x := 0; x < grid.Side(); x++ {
			if !grid.Dark(x, y) {
				continue
			}
			px := offset + float64(x)*cell
			py := offset + float64(y)*cell
			switch moduleStyle(grid, opts.Style, x, y) {
			case StyleRounded:
				dc.DrawRoundedRectangle(px, py, cell, cell, cell*0.35)
				dc.Fill()
				bridgeNeighbors(dc, grid, x, y, px, py, cell)
			case StyleCircle:
				dc.DrawCircle(px+cell/2, py+cell/2, cell/2)
				dc.Fill()
				bridgeNeighbors(dc, grid, x, y, px, py, cell)
			default:
				dc.DrawRectangle(px, py, cell, cell)
				dc.Fill()
			}
		}
	}

	return dc.Image(), nil
}

// moduleStyle resolves the style for one module. Finder, timing and
// alignment modules render square even in styled output.
func moduleStyle(grid *ModuleGrid, style Style, x, y int) Style {
	if style != StyleSquare && grid.functionModule(x, y) {
		return StyleSquare
	}
	return style
}

// bridgeNeighbors fills the gap toward dark right/down neighbors so shaped
// modules stay connected. Only two directions are needed per module since
// the left/up neighbor already bridged toward us.
func bridgeNeighbors(dc *gg.Context, grid *ModuleGrid, x, y int, px, py, cell float64) {
	if grid.Dark(x+1, y) {
		dc.DrawRectangle(px+cell/2, py+cell*0.15, cell, cell*0.7)
		dc.Fill()
	}
	if grid.Dark(x, y+1) {
		dc.DrawRectangle(px+cell*0.15, py+cell/2, cell*0.7, cell)
		dc.Fill()
	}
}

// EncodePNG serialises a rendered image as PNG bytes.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// RenderPNG draws the grid and returns PNG bytes.
func RenderPNG(grid *ModuleGrid, opts Options) ([]byte, error) {
	img, err := RenderImage(grid, opts)
	if err != nil {
		return nil, err
	}
	return EncodePNG(img)
}
