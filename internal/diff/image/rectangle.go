package image

import (
	"image"
	"image/color"
	"image/draw"
)

// mergeGap is how close two difference clusters may be, in pixels,
// before they are reported as a single rectangle.
const mergeGap = 8

type Rectangle struct {
	X      int
	Y      int
	Width  int
	Height int
}

// RectangleDiff highlights regions of genuine difference with bounding
// rectangles drawn over the target image. Classification is the same
// perceptual metric and anti-aliasing heuristic as PixelDiff.
type RectangleDiff struct {
	opts Options
}

func NewRectangleDiff(opts Options) *RectangleDiff {
	return &RectangleDiff{
		opts: opts,
	}
}

func (r *RectangleDiff) Calculate(baseline image.Image, target image.Image) (*DiffResult, error) {
	// run the pixel classifier in mask mode: only genuine differences
	// are drawn, so the mask alpha channel is the classification
	opts := r.opts
	opts.DiffMask = true
	opts.DiffColor = color.NRGBA{R: 255, A: 255}
	opts.DiffColorAlt = nil

	mask, err := NewPixelDiff(opts).Calculate(baseline, target)
	if err != nil {
		return nil, err
	}

	rectangles := findRectangles(mask.Image.(*image.NRGBA))

	bounds := target.Bounds()
	result := image.NewNRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(result, result.Bounds(), target, bounds.Min, draw.Src)

	for _, rect := range rectangles {
		drawOutline(result, rect)
	}

	return &DiffResult{
		Image:      result,
		DiffPixels: mask.DiffPixels,
		DiffAmount: mask.DiffAmount,
	}, nil
}

// findRectangles collects the bounding boxes of connected difference
// clusters in the mask, merging boxes that sit within mergeGap of each
// other.
func findRectangles(mask *image.NRGBA) []Rectangle {
	w := mask.Rect.Dx()
	h := mask.Rect.Dy()

	visited := make([]bool, w*h)
	isDiff := func(x, y int) bool {
		return mask.Pix[mask.PixOffset(x, y)+3] != 0
	}

	var rectangles []Rectangle
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if visited[y*w+x] || !isDiff(x, y) {
				continue
			}

			// flood the 8-connected cluster and track its bounding box
			minX, minY, maxX, maxY := x, y, x, y
			stack := []image.Point{{X: x, Y: y}}
			visited[y*w+x] = true
			for len(stack) > 0 {
				p := stack[len(stack)-1]
				stack = stack[:len(stack)-1]

				if p.X < minX {
					minX = p.X
				}
				if p.X > maxX {
					maxX = p.X
				}
				if p.Y < minY {
					minY = p.Y
				}
				if p.Y > maxY {
					maxY = p.Y
				}

				for dy := -1; dy <= 1; dy++ {
					for dx := -1; dx <= 1; dx++ {
						nx, ny := p.X+dx, p.Y+dy
						if nx < 0 || nx >= w || ny < 0 || ny >= h {
							continue
						}
						if visited[ny*w+nx] || !isDiff(nx, ny) {
							continue
						}
						visited[ny*w+nx] = true
						stack = append(stack, image.Point{X: nx, Y: ny})
					}
				}
			}

			rectangles = append(rectangles, Rectangle{
				X:      minX,
				Y:      minY,
				Width:  maxX - minX + 1,
				Height: maxY - minY + 1,
			})
		}
	}

	return mergeRectangles(rectangles)
}

func mergeRectangles(rectangles []Rectangle) []Rectangle {
	merged := true
	for merged {
		merged = false
		for i := 0; i < len(rectangles); i++ {
			for j := i + 1; j < len(rectangles); j++ {
				if !nearby(rectangles[i], rectangles[j]) {
					continue
				}
				rectangles[i] = union(rectangles[i], rectangles[j])
				rectangles = append(rectangles[:j], rectangles[j+1:]...)
				j--
				merged = true
			}
		}
	}
	return rectangles
}

func nearby(a, b Rectangle) bool {
	return a.X-mergeGap < b.X+b.Width && b.X-mergeGap < a.X+a.Width &&
		a.Y-mergeGap < b.Y+b.Height && b.Y-mergeGap < a.Y+a.Height
}

func union(a, b Rectangle) Rectangle {
	minX := a.X
	if b.X < minX {
		minX = b.X
	}
	minY := a.Y
	if b.Y < minY {
		minY = b.Y
	}
	maxX := a.X + a.Width
	if b.X+b.Width > maxX {
		maxX = b.X + b.Width
	}
	maxY := a.Y + a.Height
	if b.Y+b.Height > maxY {
		maxY = b.Y + b.Height
	}
	return Rectangle{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}

func drawOutline(result *image.NRGBA, rect Rectangle) {
	bounds := result.Rect
	rectColor := color.NRGBA{R: 255, A: 255}

	for thickness := 0; thickness < 3; thickness++ {
		for x := rect.X - thickness; x < rect.X+rect.Width+thickness; x++ {
			if x < 0 || x >= bounds.Max.X {
				continue
			}
			if rect.Y-thickness >= 0 {
				result.SetNRGBA(x, rect.Y-thickness, rectColor)
			}
			if rect.Y+rect.Height+thickness < bounds.Max.Y {
				result.SetNRGBA(x, rect.Y+rect.Height+thickness, rectColor)
			}
		}

		for y := rect.Y - thickness; y < rect.Y+rect.Height+thickness; y++ {
			if y < 0 || y >= bounds.Max.Y {
				continue
			}
			if rect.X-thickness >= 0 {
				result.SetNRGBA(rect.X-thickness, y, rectColor)
			}
			if rect.X+rect.Width+thickness < bounds.Max.X {
				result.SetNRGBA(rect.X+rect.Width+thickness, y, rectColor)
			}
		}
	}
}
