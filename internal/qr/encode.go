package qr

import (
	"strings"

	qrcode "github.com/skip2/go-qrcode"
)

// MaxDataChars is the absolute input ceiling: the alphanumeric capacity of
// version 40 at level L. Longer payloads cannot be represented at all.
const MaxDataChars = 4296

// Level is a QR error correction level.
type Level int

const (
	LevelL Level = iota // ~7% recovery
	LevelM              // ~15% recovery
	LevelQ              // ~25% recovery
	LevelH              // ~30% recovery
)

// ParseLevel maps the wire form ("L", "M", "Q", "H") to a Level. The empty
// string defaults to M, matching the service default.
func ParseLevel(s string) (Level, error) {
	switch strings.ToUpper(s) {
	case "", "M":
		return LevelM, nil
	case "L":
		return LevelL, nil
	case "Q":
		return LevelQ, nil
	case "H":
		return LevelH, nil
	}
	return 0, ErrInvalidLevel
}

func (l Level) String() string {
	switch l {
	case LevelL:
		return "L"
	case LevelQ:
		return "Q"
	case LevelH:
		return "H"
	}
	return "M"
}

// Recovery returns the fraction of obscured modules the level can tolerate.
func (l Level) Recovery() float64 {
	switch l {
	case LevelL:
		return 0.07
	case LevelQ:
		return 0.25
	case LevelH:
		return 0.30
	}
	return 0.15
}

func (l Level) recoveryLevel() qrcode.RecoveryLevel {
	switch l {
	case LevelL:
		return qrcode.Low
	case LevelQ:
		return qrcode.High // skip2 naming: High=Q, Highest=H
	case LevelH:
		return qrcode.Highest
	}
	return qrcode.Medium
}

// ModuleGrid is an immutable square matrix of dark/light modules without a
// quiet zone. The border is owned by the renderer.
type ModuleGrid struct {
	version int
	side    int
	modules [][]bool
}

// Version returns the QR version (1-40) the grid was built at.
func (g *ModuleGrid) Version() int { return g.version }

// Side returns the grid side length in modules (4*version + 17).
func (g *ModuleGrid) Side() int { return g.side }

// Dark reports whether the module at (x, y) is dark. Out-of-range
// coordinates are light.
func (g *ModuleGrid) Dark(x, y int) bool {
	if y < 0 || y >= g.side || x < 0 || x >= g.side {
		return false
	}
	return g.modules[y][x]
}

// alignmentCenters lists the alignment pattern center coordinates per
// version, indexed [version-1]. Version 1 has none.
var alignmentCenters = [40][]int{
	nil,
	{6, 18},
	{6, 22},
	{6, 26},
	{6, 30},
	{6, 34},
	{6, 22, 38},
	{6, 24, 42},
	{6, 26, 46},
	{6, 28, 50},
	{6, 30, 54},
	{6, 32, 58},
	{6, 34, 62},
	{6, 26, 46, 66},
	{6, 26, 48, 70},
	{6, 26, 50, 74},
	{6, 30, 54, 78},
	{6, 30, 56, 82},
	{6, 30, 58, 86},
	{6, 34, 62, 90},
	{6, 28, 50, 72, 94},
	{6, 26, 50, 74, 98},
	{6, 30, 54, 78, 102},
	{6, 28, 54, 80, 106},
	{6, 32, 58, 84, 110},
	{6, 30, 58, 86, 114},
	{6, 34, 62, 90, 118},
	{6, 26, 50, 74, 98, 122},
	{6, 30, 54, 78, 102, 126},
	{6, 26, 52, 78, 104, 130},
	{6, 30, 56, 82, 108, 134},
	{6, 34, 60, 86, 112, 138},
	{6, 30, 58, 86, 114, 142},
	{6, 34, 62, 90, 118, 146},
	{6, 30, 54, 78, 102, 126, 150},
	{6, 24, 50, 76, 102, 128, 154},
	{6, 28, 54, 80, 106, 132, 158},
	{6, 32, 58, 84, 110, 136, 162},
	{6, 26, 54, 82, 110, 138, 166},
	{6, 30, 58, 86, 114, 142, 170},
}

// functionModule reports whether (x, y) belongs to a finder, timing or
// alignment pattern. Scanners locate the symbol by measuring these
// patterns' module ratios, so styled renderers must keep them square;
// only data modules may change shape.
func (g *ModuleGrid) functionModule(x, y int) bool {
	s := g.side

	// Finder patterns with their separators.
	if (x < 8 && y < 8) || (x >= s-8 && y < 8) || (x < 8 && y >= s-8) {
		return true
	}

	// Timing patterns. Row 6 and column 6 hold no data modules.
	if x == 6 || y == 6 {
		return true
	}

	centers := alignmentCenters[g.version-1]
	for _, cy := range centers {
		if y < cy-2 || y > cy+2 {
			continue
		}
		for _, cx := range centers {
			// The three combinations overlapping finder corners carry no
			// alignment pattern.
			if (cx <= 8 && cy <= 8) || (cx <= 8 && cy >= s-9) || (cx >= s-9 && cy <= 8) {
				continue
			}
			if x >= cx-2 && x <= cx+2 {
				return true
			}
		}
	}
	return false
}

// dataCodewords lists the data codeword capacity for versions 1-40, indexed
// [version-1][level]. Values are from the QR specification's codeword table.
var dataCodewords = [40][4]int{
	{19, 16, 13, 9},
	{34, 28, 22, 16},
	{55, 44, 34, 26},
	{80, 64, 48, 36},
	{108, 86, 62, 46},
	{136, 108, 76, 60},
	{156, 124, 88, 66},
	{194, 154, 110, 86},
	{232, 182, 132, 100},
	{274, 216, 154, 122},
	{324, 254, 180, 140},
	{370, 290, 206, 158},
	{428, 334, 244, 180},
	{461, 365, 261, 197},
	{523, 415, 295, 223},
	{589, 453, 325, 253},
	{647, 507, 367, 283},
	{721, 563, 397, 313},
	{795, 627, 445, 341},
	{861, 669, 485, 385},
	{932, 714, 512, 406},
	{1006, 782, 568, 442},
	{1094, 860, 614, 464},
	{1174, 914, 664, 514},
	{1276, 1000, 718, 538},
	{1370, 1062, 754, 596},
	{1468, 1128, 808, 628},
	{1531, 1193, 871, 661},
	{1631, 1267, 911, 701},
	{1735, 1373, 985, 745},
	{1843, 1455, 1033, 793},
	{1955, 1541, 1115, 845},
	{2071, 1631, 1171, 901},
	{2191, 1725, 1231, 961},
	{2306, 1812, 1286, 986},
	{2434, 1914, 1354, 1054},
	{2566, 1992, 1426, 1096},
	{2702, 2102, 1502, 1142},
	{2812, 2216, 1582, 1222},
	{2956, 2334, 1666, 1276},
}

type segmentMode int

const (
	modeNumeric segmentMode = iota
	modeAlphanumeric
	modeByte
)

const alphanumericSet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ $%*+-./:"

// detectMode picks the densest mode able to represent the whole payload,
// the same selection a single-segment conformant encoder makes.
func detectMode(data string) segmentMode {
	numeric := true
	alphanumeric := true
	for _, r := range data {
		if r < '0' || r > '9' {
			numeric = false
		}
		if !strings.ContainsRune(alphanumericSet, r) {
			alphanumeric = false
		}
		if !numeric && !alphanumeric {
			return modeByte
		}
	}
	if numeric {
		return modeNumeric
	}
	return modeAlphanumeric
}

// countIndicatorBits returns the character count indicator width for the
// mode at the given version.
func countIndicatorBits(mode segmentMode, version int) int {
	var row [3]int
	switch {
	case version <= 9:
		row = [3]int{10, 9, 8}
	case version <= 26:
		row = [3]int{12, 11, 16}
	default:
		row = [3]int{14, 13, 16}
	}
	return row[mode]
}

// charCapacity computes how many characters of the given mode fit in a
// symbol of the given version and level.
func charCapacity(version int, level Level, mode segmentMode) int {
	bits := dataCodewords[version-1][level]*8 - 4 - countIndicatorBits(mode, version)
	if bits <= 0 {
		return 0
	}
	switch mode {
	case modeNumeric:
		n := (bits / 10) * 3
		switch rem := bits % 10; {
		case rem >= 7:
			n += 2
		case rem >= 4:
			n++
		}
		return n
	case modeAlphanumeric:
		n := (bits / 11) * 2
		if bits%11 >= 6 {
			n++
		}
		return n
	default:
		return bits / 8
	}
}

// charLength is the payload length in mode units: characters for numeric
// and alphanumeric data, bytes for everything else.
func charLength(data string, mode segmentMode) int {
	if mode == modeByte {
		return len(data)
	}
	return len([]rune(data))
}

// FitVersion returns the smallest version whose capacity holds data at the
// given level, or ErrDataTooLarge when even version 40 is insufficient.
func FitVersion(data string, level Level) (int, error) {
	mode := detectMode(data)
	length := charLength(data, mode)
	for v := 1; v <= 40; v++ {
		if length <= charCapacity(v, level, mode) {
			return v, nil
		}
	}
	return 0, ErrDataTooLarge
}

// Fits reports whether data fits an explicit version at the given level.
// Versions outside 1-40 never fit.
func Fits(data string, level Level, version int) bool {
	if version < 1 || version > 40 {
		return false
	}
	mode := detectMode(data)
	return charLength(data, mode) <= charCapacity(version, level, mode)
}

// Encode builds the module grid for data at the given error correction
// level. version 0 selects the smallest version that fits; an explicit
// version (1-40) is validated strictly and never silently upgraded.
// Identical inputs always produce identical grids.
func Encode(data string, level Level, version int) (*ModuleGrid, error) {
	if data == "" {
		return nil, ErrEmptyData
	}
	if len([]rune(data)) > MaxDataChars {
		return nil, ErrDataTooLarge
	}

	switch {
	case version == 0:
		v, err := FitVersion(data, level)
		if err != nil {
			return nil, err
		}
		version = v
	case version < 1 || version > 40:
		return nil, ErrInvalidVersion
	default:
		if !Fits(data, level, version) {
			return nil, ErrCapacityExceeded
		}
	}

	code, err := qrcode.NewWithForcedVersion(data, version, level.recoveryLevel())
	if err != nil {
		return nil, err
	}
	code.DisableBorder = true

	bitmap := code.Bitmap()
	side := len(bitmap)
	modules := make([][]bool, side)
	for y := range bitmap {
		row := make([]bool, side)
		copy(row, bitmap[y])
		modules[y] = row
	}

	return &ModuleGrid{version: version, side: side, modules: modules}, nil
}
