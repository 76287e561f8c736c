package qr

import (
	"context"
	"fmt"
	"image"
	"io"
	"net/http"
	"time"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	xdraw "golang.org/x/image/draw"
)

// maxLogoBytes bounds how much of a remote logo we are willing to read.
const maxLogoBytes = 10 << 20

// FetchLogo retrieves and decodes a logo image within the given timeout.
// Any retrieval or decode failure maps to ErrLogoFetchFailed; the fetch can
// never hang past its deadline.
func FetchLogo(ctx context.Context, url string, timeout time.Duration) (image.Image, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLogoFetchFailed, err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLogoFetchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: unexpected status %d", ErrLogoFetchFailed, resp.StatusCode)
	}

	img, _, err := image.Decode(io.LimitReader(resp.Body, maxLogoBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrLogoFetchFailed, err)
	}
	return img, nil
}

// CheckLogoBudget rejects ratios whose obscured area would exceed the error
// correction redundancy. The logo covers roughly ratio^2 of the symbol, and
// that fraction must stay below the level's recovery rate or the code
// becomes unscannable.
func CheckLogoBudget(ratio float64, level Level) error {
	if ratio < 0.1 || ratio > 0.4 {
		return ErrInvalidRatio
	}
	if ratio*ratio >= level.Recovery() {
		return ErrLogoTooLarge
	}
	return nil
}

// CompositeLogo overlays the logo centered on the rendered code, scaled to
// ratio of the smaller output dimension with aspect ratio preserved. The
// caller must have validated the budget via CheckLogoBudget.
func CompositeLogo(base image.Image, logo image.Image, ratio float64, level Level) (image.Image, error) {
	if err := CheckLogoBudget(ratio, level); err != nil {
		return nil, err
	}

	bounds := base.Bounds()
	target := int(ratio * float64(min(bounds.Dx(), bounds.Dy())))
	if target < 1 {
		return nil, ErrInvalidRatio
	}

	lb := logo.Bounds()
	scale := float64(target) / float64(max(lb.Dx(), lb.Dy()))
	w := int(float64(lb.Dx()) * scale)
	h := int(float64(lb.Dy()) * scale)
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}

	out := image.NewRGBA(bounds)
	xdraw.Draw(out, bounds, base, bounds.Min, xdraw.Src)

	x0 := bounds.Min.X + (bounds.Dx()-w)/2
	y0 := bounds.Min.Y + (bounds.Dy()-h)/2
	dst := image.Rect(x0, y0, x0+w, y0+h)
	xdraw.CatmullRom.Scale(out, dst, logo, lb, xdraw.Over, nil)

	return out, nil
}
