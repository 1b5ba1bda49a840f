package image

import (
	"errors"
	"image"
	"image/color"
)

var (
	// ErrDimensionMismatch is returned when the two input images do not
	// share the same width and height.
	ErrDimensionMismatch = errors.New("image dimensions do not match")
	// ErrUnexpectedDimensions is returned when the decoded dimensions do
	// not match the caller-supplied ExpectedWidth/ExpectedHeight.
	ErrUnexpectedDimensions = errors.New("image dimensions do not match expected width/height")
	// ErrOutOfBounds indicates a write outside the output buffer. Given
	// the dimension gate it signals a programming defect, not bad input.
	ErrOutOfBounds = errors.New("pixel is not in bounds of output")
)

type DiffResult struct {
	// Image is the rendered visualization. Nil when no rendering was
	// requested.
	Image image.Image
	// DiffPixels counts pixels classified as a genuine difference.
	// Anti-aliasing artifacts and matches are never counted.
	DiffPixels int
	// DiffAmount is DiffPixels normalized by the total pixel count.
	DiffAmount float64
}

type Differ interface {
	Calculate(baseline image.Image, target image.Image) (*DiffResult, error)
}

// Options configures a comparison. Start from DefaultOptions rather
// than the zero value.
type Options struct {
	// Matching threshold in [0, 1]; smaller is more sensitive.
	Threshold float64
	// Count anti-aliased pixels as differences instead of ignoring them.
	IncludeAA bool
	// Opacity of the grayscale background drawn for matched pixels.
	Alpha float64
	// Color for pixels classified as anti-aliasing artifacts.
	AAColor color.NRGBA
	// Color for genuine differences.
	DiffColor color.NRGBA
	// Optional color for differences where the baseline pixel is
	// brighter than the target pixel. Falls back to DiffColor when nil.
	DiffColorAlt *color.NRGBA
	// Render only genuine differences over a transparent background.
	DiffMask bool
	// Optional cross-check against the decoded dimensions. Zero means
	// unchecked.
	ExpectedWidth  int
	ExpectedHeight int
}

func DefaultOptions() Options {
	return Options{
		Threshold: 0.1,
		IncludeAA: false,
		Alpha:     0.1,
		AAColor:   color.NRGBA{R: 255, G: 255, B: 0, A: 255},
		DiffColor: color.NRGBA{R: 255, G: 0, B: 0, A: 255},
		DiffMask:  false,
	}
}
