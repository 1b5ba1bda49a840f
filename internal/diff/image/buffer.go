package image

import (
	"image"
	"image/draw"
)

// buffer is a read-only view over a decoded image in 8-bit NRGBA
// order. It is the only pixel source the comparison loop and the
// neighbor scans read from; the output image is never read back.
type buffer struct {
	width  int
	height int
	pix    []uint8
}

// newBuffer normalizes an image to a densely packed NRGBA buffer.
// An *image.NRGBA anchored at the origin with no row padding is used
// as-is; everything else is converted once up front.
func newBuffer(img image.Image) *buffer {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	if n, ok := img.(*image.NRGBA); ok && n.Rect.Min == (image.Point{}) && n.Stride == 4*w {
		return &buffer{width: w, height: h, pix: n.Pix}
	}

	n := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.Draw(n, n.Bounds(), img, bounds.Min, draw.Src)
	return &buffer{width: w, height: h, pix: n.Pix}
}

// at returns the RGBA quadruplet at (x, y). Each coordinate is clamped
// independently to the buffer, so reads just outside an edge duplicate
// the boundary row or column.
func (b *buffer) at(x, y int) [4]uint8 {
	if x < 0 {
		x = 0
	} else if x >= b.width {
		x = b.width - 1
	}
	if y < 0 {
		y = 0
	} else if y >= b.height {
		y = b.height - 1
	}

	var c [4]uint8
	i := (y*b.width + x) * 4
	copy(c[:], b.pix[i:i+4:i+4])
	return c
}
