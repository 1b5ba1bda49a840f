package image

import (
	"bytes"
	"image"
	"math"
	"runtime"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
	"golang.org/x/xerrors"
)

// PixelDiff compares two equally-sized images pixel by pixel using a
// perceptual YIQ color metric with optional anti-aliasing suppression.
type PixelDiff struct {
	opts Options
}

func NewPixelDiff(opts Options) *PixelDiff {
	return &PixelDiff{
		opts: opts,
	}
}

// Calculate compares baseline against target and renders a diff
// visualization of the same dimensions.
func (p *PixelDiff) Calculate(baseline image.Image, target image.Image) (*DiffResult, error) {
	if err := p.validate(baseline, target); err != nil {
		return nil, err
	}

	b1 := newBuffer(baseline)
	b2 := newBuffer(target)

	out := image.NewNRGBA(image.Rect(0, 0, b1.width, b1.height))
	diffPixels, err := p.match(b1, b2, out)
	if err != nil {
		return nil, err
	}

	return &DiffResult{
		Image:      out,
		DiffPixels: diffPixels,
		DiffAmount: diffAmount(diffPixels, b1.width*b1.height),
	}, nil
}

// Count compares baseline against target without rendering.
func (p *PixelDiff) Count(baseline image.Image, target image.Image) (int, error) {
	if err := p.validate(baseline, target); err != nil {
		return 0, err
	}

	return p.match(newBuffer(baseline), newBuffer(target), nil)
}

// validate runs the dimension gate before any pixel work happens.
func (p *PixelDiff) validate(baseline image.Image, target image.Image) error {
	bs := baseline.Bounds().Size()
	ts := target.Bounds().Size()

	if bs != ts {
		return xerrors.Errorf("baseline is %dx%d, target is %dx%d: %w", bs.X, bs.Y, ts.X, ts.Y, ErrDimensionMismatch)
	}

	if (p.opts.ExpectedWidth != 0 && p.opts.ExpectedWidth != bs.X) ||
		(p.opts.ExpectedHeight != 0 && p.opts.ExpectedHeight != bs.Y) {
		return xerrors.Errorf("images are %dx%d, expected %dx%d: %w", bs.X, bs.Y, p.opts.ExpectedWidth, p.opts.ExpectedHeight, ErrUnexpectedDimensions)
	}

	return nil
}

func (p *PixelDiff) match(b1, b2 *buffer, out *image.NRGBA) (int, error) {
	// fast path when the buffers are byte-identical: no metric or
	// anti-aliasing work, only the background rendering if requested
	if bytes.Equal(b1.pix, b2.pix) {
		if out != nil && !p.opts.DiffMask {
			if err := p.forEachRow(b1.height, func(startY, endY int) error {
				for y := startY; y < endY; y++ {
					for x := 0; x < b1.width; x++ {
						if err := drawGrayPixel(out, x, y, b1.at(x, y), p.opts.Alpha); err != nil {
							return err
						}
					}
				}
				return nil
			}); err != nil {
				return 0, err
			}
		}
		return 0, nil
	}

	// maximum acceptable squared distance between two colors
	maxDelta := yiqDeltaMax * p.opts.Threshold * p.opts.Threshold

	var diffs int64
	if err := p.forEachRow(b1.height, func(startY, endY int) error {
		return p.matchRows(b1, b2, out, startY, endY, maxDelta, &diffs)
	}); err != nil {
		return 0, err
	}

	return int(diffs), nil
}

// forEachRow partitions the rows across GOMAXPROCS workers. Pixels are
// classified independently of each other and every worker writes a
// disjoint region of the output, so no locking is needed.
func (p *PixelDiff) forEachRow(height int, fn func(startY int, endY int) error) error {
	// Use GOMAXPROCS instead of runtime.NumCPU() to consider cgroup.
	// https://tip.golang.org/doc/go1.25#container-aware-gomaxprocs
	numWorkers := runtime.GOMAXPROCS(0)
	rowsPerWorker := height / numWorkers

	var eg errgroup.Group
	for i := 0; i < numWorkers; i++ {
		startY := i * rowsPerWorker
		endY := startY + rowsPerWorker
		if i == numWorkers-1 {
			endY = height
		}

		eg.Go(func() error {
			return fn(startY, endY)
		})
	}
	return eg.Wait()
}

func (p *PixelDiff) matchRows(b1, b2 *buffer, out *image.NRGBA, startY int, endY int, maxDelta float64, diffs *int64) error {
	var local int64

	for y := startY; y < endY; y++ {
		for x := 0; x < b1.width; x++ {
			c1 := b1.at(x, y)
			c2 := b2.at(x, y)

			// squared YIQ distance, negative when the baseline pixel
			// is brighter than the target pixel
			delta := colorDelta(c1, c2, false)

			if math.Abs(delta) <= maxDelta {
				// pixels are similar; draw the background as grayscale
				// blended with white
				if out != nil && !p.opts.DiffMask {
					if err := drawGrayPixel(out, x, y, c1, p.opts.Alpha); err != nil {
						return err
					}
				}
				continue
			}

			// the difference exceeds the threshold; check whether it is
			// a real rendering difference or just anti-aliasing
			if !p.opts.IncludeAA && (antialiased(b1, x, y, b2) || antialiased(b2, x, y, b1)) {
				// anti-aliasing artifacts are drawn but never counted;
				// a mask does not include them at all
				if out != nil && !p.opts.DiffMask {
					out.SetNRGBA(x, y, p.opts.AAColor)
				}
				continue
			}

			// substantial difference not caused by anti-aliasing
			if out != nil {
				c := p.opts.DiffColor
				if delta < 0 && p.opts.DiffColorAlt != nil {
					c = *p.opts.DiffColorAlt
				}
				out.SetNRGBA(x, y, c)
			}
			local++
		}
	}

	atomic.AddInt64(diffs, local)
	return nil
}

func diffAmount(diffPixels int, totalPixels int) float64 {
	if totalPixels == 0 {
		return 0
	}
	return float64(diffPixels) / float64(totalPixels)
}
