package image

import (
	"image"

	"golang.org/x/xerrors"
)

// drawGrayPixel writes the desaturated background pixel for a match.
// The configured alpha is scaled by the pixel's own alpha channel, the
// luma is blended toward white, and all four output channels carry the
// blended value. The bounds check is unreachable after the dimension
// gate; failing it means a defect in the comparison loop itself.
func drawGrayPixel(out *image.NRGBA, x int, y int, c [4]uint8, alpha float64) error {
	if !(image.Point{X: x, Y: y}.In(out.Rect)) {
		return xerrors.Errorf("(%d, %d): %w", x, y, ErrOutOfBounds)
	}

	val := uint8(blend(
		rgb2y(float64(c[0]), float64(c[1]), float64(c[2])),
		alpha*float64(c[3])/255,
	))

	i := out.PixOffset(x, y)
	out.Pix[i] = val
	out.Pix[i+1] = val
	out.Pix[i+2] = val
	out.Pix[i+3] = val
	return nil
}
