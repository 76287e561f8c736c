package qr

import (
	"bytes"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func testOptions() Options {
	return Options{
		Size:       200,
		Border:     4,
		Foreground: color.RGBA{A: 255},
		Background: color.RGBA{R: 255, G: 255, B: 255, A: 255},
		Style:      StyleSquare,
	}
}

func TestParseHexColor(t *testing.T) {
	tests := []struct {
		in   string
		want color.RGBA
		ok   bool
	}{
		{"#000000", color.RGBA{A: 255}, true},
		{"#FFFFFF", color.RGBA{R: 255, G: 255, B: 255, A: 255}, true},
		{"#1a2B3c", color.RGBA{R: 0x1A, G: 0x2B, B: 0x3C, A: 255}, true},
		{"#F00", color.RGBA{R: 255, A: 255}, true},
		{"000000", color.RGBA{}, false},
		{"#12345", color.RGBA{}, false},
		{"#GGHHII", color.RGBA{}, false},
		{"", color.RGBA{}, false},
	}
	for _, tc := range tests {
		got, err := ParseHexColor(tc.in)
		if !tc.ok {
			assert.ErrorIs(t, err, ErrInvalidColor, "input %q", tc.in)
			continue
		}
		assert.NoError(t, err, "input %q", tc.in)
		assert.Equal(t, tc.want, got, "input %q", tc.in)
	}
}

func TestParseStyle(t *testing.T) {
	for in, want := range map[string]Style{
		"":        StyleSquare,
		"square":  StyleSquare,
		"ROUNDED": StyleRounded,
		"circle":  StyleCircle,
	} {
		got, err := ParseStyle(in)
		assert.NoError(t, err, "input %q", in)
		assert.Equal(t, want, got, "input %q", in)
	}

	_, err := ParseStyle("hexagon")
	assert.ErrorIs(t, err, ErrInvalidStyle)
}

func TestOptionsValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Options)
		want   error
	}{
		{"size too small", func(o *Options) { o.Size = 49 }, ErrInvalidSize},
		{"size too large", func(o *Options) { o.Size = 2001 }, ErrInvalidSize},
		{"negative border", func(o *Options) { o.Border = -1 }, ErrInvalidBorder},
		{"border too wide", func(o *Options) { o.Border = 11 }, ErrInvalidBorder},
		{"unknown style", func(o *Options) { o.Style = "star" }, ErrInvalidStyle},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			opts := testOptions()
			tc.mutate(&opts)
			assert.ErrorIs(t, opts.Validate(), tc.want)
		})
	}

	assert.NoError(t, testOptions().Validate())
}

func TestRenderPNG_AllStyles(t *testing.T) {
	grid, err := Encode("https://example.com", LevelM, 0)
	assert.NoError(t, err)

	for _, style := range []Style{StyleSquare, StyleRounded, StyleCircle} {
		opts := testOptions()
		opts.Style = style

		data, err := RenderPNG(grid, opts)
		assert.NoError(t, err, "style %s", style)

		img, err := png.Decode(bytes.NewReader(data))
		assert.NoError(t, err, "style %s", style)
		assert.Equal(t, opts.Size, img.Bounds().Dx(), "style %s", style)
		assert.Equal(t, opts.Size, img.Bounds().Dy(), "style %s", style)
	}
}

func TestRenderImage_QuietZoneStaysBackground(t *testing.T) {
	grid, err := Encode("hello", LevelM, 0)
	assert.NoError(t, err)

	opts := testOptions()
	opts.Foreground = color.RGBA{R: 200, A: 255}
	opts.Background = color.RGBA{G: 200, B: 50, A: 255}

	img, err := RenderImage(grid, opts)
	assert.NoError(t, err)

	// Corner lies inside the quiet zone and must keep the background color.
	r, g, b, _ := img.At(1, 1).RGBA()
	assert.Equal(t, uint32(0), r>>8)
	assert.Equal(t, uint32(200), g>>8)
	assert.Equal(t, uint32(50), b>>8)
}

func TestRenderImage_DrawsForegroundModules(t *testing.T) {
	grid, err := Encode("hello", LevelM, 0)
	assert.NoError(t, err)

	opts := testOptions()
	img, err := RenderImage(grid, opts)
	assert.NoError(t, err)

	// Center of the top-left finder pattern module (0,0) is dark.
	cell := float64(opts.Size) / float64(grid.Side()+2*opts.Border)
	px := int(cell*float64(opts.Border) + cell/2)
	r, g, b, _ := img.At(px, px).RGBA()
	assert.Equal(t, uint32(0), r>>8)
	assert.Equal(t, uint32(0), g>>8)
	assert.Equal(t, uint32(0), b>>8)
}

func TestRenderPNG_InvalidOptions(t *testing.T) {
	grid, err := Encode("hello", LevelM, 0)
	assert.NoError(t, err)

	opts := testOptions()
	opts.Size = 10
	_, err = RenderPNG(grid, opts)
	assert.ErrorIs(t, err, ErrInvalidSize)
}

func TestRenderSVG(t *testing.T) {
	grid, err := Encode("https://example.com", LevelM, 0)
	assert.NoError(t, err)

	opts := testOptions()
	opts.Foreground = color.RGBA{R: 0x11, G: 0x22, B: 0x33, A: 255}
	opts.Background = color.RGBA{R: 0xEE, G: 0xEE, B: 0xEE, A: 255}

	markup, err := RenderSVG(grid, opts)
	assert.NoError(t, err)

	assert.True(t, strings.HasPrefix(strings.TrimSpace(markup), "<?xml"))
	assert.Contains(t, markup, "<svg")
	assert.Contains(t, markup, "viewBox")
	assert.Contains(t, markup, "fill:#112233")
	assert.Contains(t, markup, "fill:#EEEEEE")
	assert.NotContains(t, markup, "image") // no embedded raster
	assert.Contains(t, markup, "</svg>")
}

func TestRenderSVG_StylesProducePrimitives(t *testing.T) {
	grid, err := Encode("hello", LevelM, 0)
	assert.NoError(t, err)

	opts := testOptions()
	opts.Style = StyleCircle
	markup, err := RenderSVG(grid, opts)
	assert.NoError(t, err)
	assert.Contains(t, markup, "<circle")

	opts.Style = StyleRounded
	markup, err = RenderSVG(grid, opts)
	assert.NoError(t, err)
	assert.Contains(t, markup, "rx=")
}

func TestRenderSVG_Deterministic(t *testing.T) {
	grid, err := Encode("determinism", LevelH, 0)
	assert.NoError(t, err)

	a, err := RenderSVG(grid, testOptions())
	assert.NoError(t, err)
	b, err := RenderSVG(grid, testOptions())
	assert.NoError(t, err)
	assert.Equal(t, a, b)
}
