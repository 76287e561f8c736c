package qr

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
		ok   bool
	}{
		{"L", LevelL, true},
		{"m", LevelM, true},
		{"Q", LevelQ, true},
		{"H", LevelH, true},
		{"", LevelM, true},
		{"X", 0, false},
	}
	for _, tc := range tests {
		got, err := ParseLevel(tc.in)
		if !tc.ok {
			assert.ErrorIs(t, err, ErrInvalidLevel, "input %q", tc.in)
			continue
		}
		assert.NoError(t, err, "input %q", tc.in)
		assert.Equal(t, tc.want, got, "input %q", tc.in)
	}
}

func TestCharCapacity_KnownValues(t *testing.T) {
	// Reference values from the QR capacity tables.
	assert.Equal(t, 41, charCapacity(1, LevelL, modeNumeric))
	assert.Equal(t, 25, charCapacity(1, LevelL, modeAlphanumeric))
	assert.Equal(t, 17, charCapacity(1, LevelL, modeByte))
	assert.Equal(t, 7, charCapacity(1, LevelH, modeByte))
	assert.Equal(t, 2953, charCapacity(40, LevelL, modeByte))
	assert.Equal(t, 1273, charCapacity(40, LevelH, modeByte))
	assert.Equal(t, MaxDataChars, charCapacity(40, LevelL, modeAlphanumeric))
}

func TestDetectMode(t *testing.T) {
	assert.Equal(t, modeNumeric, detectMode("0123456789"))
	assert.Equal(t, modeAlphanumeric, detectMode("HELLO WORLD 42"))
	assert.Equal(t, modeByte, detectMode("hello"))
	assert.Equal(t, modeByte, detectMode("HTTPS://example.com"))
}

func TestEncode_Deterministic(t *testing.T) {
	a, err := Encode("https://example.com/some/path", LevelQ, 0)
	assert.NoError(t, err)
	b, err := Encode("https://example.com/some/path", LevelQ, 0)
	assert.NoError(t, err)

	assert.Equal(t, a.Version(), b.Version())
	assert.Equal(t, a.Side(), b.Side())
	for y := 0; y < a.Side(); y++ {
		for x := 0; x < a.Side(); x++ {
			if a.Dark(x, y) != b.Dark(x, y) {
				t.Fatalf("grids differ at (%d,%d)", x, y)
			}
		}
	}
}

func TestEncode_SideMatchesVersion(t *testing.T) {
	grid, err := Encode("hello", LevelM, 0)
	assert.NoError(t, err)
	assert.Equal(t, 4*grid.Version()+17, grid.Side())

	forced, err := Encode("hello", LevelM, 5)
	assert.NoError(t, err)
	assert.Equal(t, 5, forced.Version())
	assert.Equal(t, 37, forced.Side())
}

func TestEncode_AutoVersionPicksSmallest(t *testing.T) {
	grid, err := Encode("A", LevelL, 0)
	assert.NoError(t, err)
	assert.Equal(t, 1, grid.Version())

	// 20 bytes exceeds version 1 at L (17 bytes) but fits version 2 (32).
	grid, err = Encode(strings.Repeat("x", 20), LevelL, 0)
	assert.NoError(t, err)
	assert.Equal(t, 2, grid.Version())
}

func TestEncode_CapacityErrors(t *testing.T) {
	_, err := Encode("", LevelM, 0)
	assert.ErrorIs(t, err, ErrEmptyData)

	// 18 bytes cannot fit version 1 at level L; no silent upgrade.
	_, err = Encode(strings.Repeat("x", 18), LevelL, 1)
	assert.ErrorIs(t, err, ErrCapacityExceeded)

	_, err = Encode("hello", LevelM, 41)
	assert.ErrorIs(t, err, ErrInvalidVersion)

	// Beyond the byte capacity of version 40 at level L.
	_, err = Encode(strings.Repeat("x", 2954), LevelL, 0)
	assert.ErrorIs(t, err, ErrDataTooLarge)

	// Beyond the absolute character ceiling.
	_, err = Encode(strings.Repeat("1", MaxDataChars+1), LevelL, 0)
	assert.ErrorIs(t, err, ErrDataTooLarge)
}

func TestFitVersion_LevelTradeoff(t *testing.T) {
	data := strings.Repeat("x", 100)

	vL, err := FitVersion(data, LevelL)
	assert.NoError(t, err)
	vH, err := FitVersion(data, LevelH)
	assert.NoError(t, err)

	// Stronger correction needs a bigger symbol for the same payload.
	assert.Less(t, vL, vH)
}

func TestGridDark_OutOfRangeIsLight(t *testing.T) {
	grid, err := Encode("hello", LevelM, 0)
	assert.NoError(t, err)

	assert.False(t, grid.Dark(-1, 0))
	assert.False(t, grid.Dark(0, -1))
	assert.False(t, grid.Dark(grid.Side(), 0))
	assert.False(t, grid.Dark(0, grid.Side()))

	// Finder pattern corner module is always dark.
	assert.True(t, grid.Dark(0, 0))
}

func TestFits_VersionOutOfRange(t *testing.T) {
	assert.True(t, Fits("hello", LevelM, 1))
	assert.False(t, Fits("hello", LevelM, 0))
	assert.False(t, Fits("hello", LevelM, -3))
	assert.False(t, Fits("hello", LevelM, 41))
}

func TestFunctionModule_MarksFindersTimingAndAlignment(t *testing.T) {
	grid, err := Encode(strings.Repeat("x", 40), LevelM, 7)
	assert.NoError(t, err)
	side := grid.Side()

	// Finder corners plus separators.
	assert.True(t, grid.functionModule(0, 0))
	assert.True(t, grid.functionModule(7, 7))
	assert.True(t, grid.functionModule(side-1, 0))
	assert.True(t, grid.functionModule(0, side-1))

	// Timing row and column.
	assert.True(t, grid.functionModule(6, side/2))
	assert.True(t, grid.functionModule(side/2, 6))

	// Version 7 has an alignment pattern centered at (22, 22).
	assert.True(t, grid.functionModule(22, 22))
	assert.True(t, grid.functionModule(20, 24))
	assert.False(t, grid.functionModule(22, 25))

	// Data region.
	assert.False(t, grid.functionModule(10, 12))
}
