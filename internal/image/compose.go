package imagepkg

import (
	"image"

	"github.com/disintegration/imaging"
)

// Stretch resizes img to exactly w×h, ignoring aspect ratio.
func Stretch(img image.Image, w, h int) *image.NRGBA {
	return imaging.Resize(img, w, h, imaging.Lanczos)
}

// Blur applies a gaussian blur with the given sigma. Non-positive sigma
// returns an unblurred copy.
func Blur(img image.Image, sigma float64) *image.NRGBA {
	if sigma <= 0 {
		return imaging.Clone(img)
	}
	return imaging.Blur(img, sigma)
}

// BlurCover stretches a cover image over a w×h card and blurs it. Stretching
// happens first so the blur radius is relative to the card, not the source.
func BlurCover(cover image.Image, w, h int, sigma float64) *image.NRGBA {
	return Blur(Stretch(cover, w, h), sigma)
}

// ScaleToWidth resizes img to width w keeping its aspect ratio.
func ScaleToWidth(img image.Image, w int) *image.NRGBA {
	return imaging.Resize(img, w, 0, imaging.Lanczos)
}
