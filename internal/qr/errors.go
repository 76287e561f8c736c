package qr

import "errors"

var (
	// ErrEmptyData signals that there is nothing to encode.
	ErrEmptyData = errors.New("data must not be empty")
	// ErrDataTooLarge signals that the data does not fit any QR version at
	// the requested error correction level.
	ErrDataTooLarge = errors.New("data too large for any QR version")
	// ErrCapacityExceeded signals that the data does not fit the explicitly
	// requested version. The encoder never truncates or silently upgrades.
	ErrCapacityExceeded = errors.New("data exceeds capacity of requested version")

	ErrInvalidVersion = errors.New("version must be between 1 and 40")
	ErrInvalidLevel   = errors.New("error correction level must be L, M, Q or H")
	ErrInvalidColor   = errors.New("color must be a hex triplet like #1A2B3C")
	ErrInvalidSize    = errors.New("size must be between 50 and 2000 pixels")
	ErrInvalidBorder  = errors.New("border must be between 0 and 10 modules")
	ErrInvalidStyle   = errors.New("module style must be square, rounded or circle")
	ErrInvalidRatio   = errors.New("logo size ratio must be between 0.1 and 0.4")

	// ErrLogoTooLarge signals that the logo would obscure more modules than
	// the error correction level can recover.
	ErrLogoTooLarge = errors.New("logo too large for error correction level")
	// ErrLogoFetchFailed signals that the logo could not be retrieved or decoded.
	ErrLogoFetchFailed = errors.New("logo fetch failed")
	// ErrUnsupportedCombination signals an option mix the service rejects,
	// such as a logo on vector output.
	ErrUnsupportedCombination = errors.New("unsupported option combination")
)
