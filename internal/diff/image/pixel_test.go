package image

import (
	"errors"
	"image"
	"image/color"
	"image/draw"
	"testing"
)

func createTestImage(width, height int, c color.Color) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: c}, image.Point{}, draw.Src)
	return img
}

func fillRect(img *image.NRGBA, x0, y0, x1, y1 int, c color.Color) {
	draw.Draw(img, image.Rect(x0, y0, x1, y1), &image.Uniform{C: c}, image.Point{}, draw.Src)
}

// antialiasedEdgePair returns two 5x5 images that differ only in the
// anti-aliased column between a black half and a white half.
func antialiasedEdgePair() (*image.NRGBA, *image.NRGBA) {
	img1 := createTestImage(5, 5, color.White)
	fillRect(img1, 0, 0, 2, 5, color.Black)
	fillRect(img1, 2, 0, 3, 5, color.Gray{Y: 128})

	img2 := createTestImage(5, 5, color.White)
	fillRect(img2, 0, 0, 2, 5, color.Black)
	fillRect(img2, 2, 0, 3, 5, color.Gray{Y: 100})

	return img1, img2
}

func TestPixelDiff_Calculate(t *testing.T) {
	t.Run("NoDifference", func(t *testing.T) {
		img1 := createTestImage(100, 100, color.White)
		img2 := createTestImage(100, 100, color.White)

		result, err := NewPixelDiff(DefaultOptions()).Calculate(img1, img2)
		if err != nil {
			t.Fatalf("Calculate returned error: %v", err)
		}

		if result.DiffPixels != 0 {
			t.Errorf("Expected DiffPixels to be 0, got %d", result.DiffPixels)
		}
		if result.DiffAmount != 0.0 {
			t.Errorf("Expected DiffAmount to be 0.0, got %f", result.DiffAmount)
		}
	})

	t.Run("CompleteDifference", func(t *testing.T) {
		img1 := createTestImage(100, 100, color.White)
		img2 := createTestImage(100, 100, color.Black)

		result, err := NewPixelDiff(DefaultOptions()).Calculate(img1, img2)
		if err != nil {
			t.Fatalf("Calculate returned error: %v", err)
		}

		if result.DiffPixels != 100*100 {
			t.Errorf("Expected DiffPixels to be %d, got %d", 100*100, result.DiffPixels)
		}
		if result.DiffAmount != 1.0 {
			t.Errorf("Expected DiffAmount to be 1.0, got %f", result.DiffAmount)
		}
	})

	t.Run("FlatRectangle", func(t *testing.T) {
		// a solid-color block inside a flat background has no edges, so
		// anti-aliasing detection must not change the count
		img1 := createTestImage(100, 100, color.White)
		img2 := createTestImage(100, 100, color.White)
		fillRect(img2, 10, 10, 30, 20, color.Black)

		opts := DefaultOptions()
		opts.Threshold = 0.05

		withAA, err := NewPixelDiff(opts).Count(img1, img2)
		if err != nil {
			t.Fatalf("Count returned error: %v", err)
		}

		opts.IncludeAA = true
		withoutAA, err := NewPixelDiff(opts).Count(img1, img2)
		if err != nil {
			t.Fatalf("Count returned error: %v", err)
		}

		if want := 20 * 10; withAA != want {
			t.Errorf("Expected %d different pixels, got %d", want, withAA)
		}
		if withAA != withoutAA {
			t.Errorf("Expected identical counts for a flat rectangle, got %d and %d", withAA, withoutAA)
		}
	})

	t.Run("DimensionMismatch", func(t *testing.T) {
		img1 := createTestImage(100, 100, color.White)
		img2 := createTestImage(100, 50, color.White)

		if _, err := NewPixelDiff(DefaultOptions()).Calculate(img1, img2); !errors.Is(err, ErrDimensionMismatch) {
			t.Errorf("Expected ErrDimensionMismatch, got %v", err)
		}
	})

	t.Run("UnexpectedDimensions", func(t *testing.T) {
		img1 := createTestImage(100, 100, color.White)
		img2 := createTestImage(100, 100, color.White)

		opts := DefaultOptions()
		opts.ExpectedWidth = 50
		opts.ExpectedHeight = 100

		_, err := NewPixelDiff(opts).Calculate(img1, img2)
		if !errors.Is(err, ErrUnexpectedDimensions) {
			t.Errorf("Expected ErrUnexpectedDimensions, got %v", err)
		}
		if errors.Is(err, ErrDimensionMismatch) {
			t.Errorf("Expected a distinct error kind, got %v", err)
		}
	})

	t.Run("SizeGateBeforePixelReads", func(t *testing.T) {
		// the gate must trip on metadata alone, before any pixel access
		img1 := &panicImage{rect: image.Rect(0, 0, 10, 10)}
		img2 := &panicImage{rect: image.Rect(0, 0, 5, 5)}

		if _, err := NewPixelDiff(DefaultOptions()).Calculate(img1, img2); !errors.Is(err, ErrDimensionMismatch) {
			t.Errorf("Expected ErrDimensionMismatch, got %v", err)
		}
	})

	t.Run("AntialiasingSuppressed", func(t *testing.T) {
		img1, img2 := antialiasedEdgePair()

		opts := DefaultOptions()
		suppressed, err := NewPixelDiff(opts).Count(img1, img2)
		if err != nil {
			t.Fatalf("Count returned error: %v", err)
		}

		opts.IncludeAA = true
		counted, err := NewPixelDiff(opts).Count(img1, img2)
		if err != nil {
			t.Fatalf("Count returned error: %v", err)
		}

		if suppressed != 0 {
			t.Errorf("Expected anti-aliased column to be suppressed, got %d", suppressed)
		}
		if counted != 5 {
			t.Errorf("Expected 5 different pixels with IncludeAA, got %d", counted)
		}
	})

	t.Run("AntialiasedPixelsDrawnNotCounted", func(t *testing.T) {
		img1, img2 := antialiasedEdgePair()

		opts := DefaultOptions()
		result, err := NewPixelDiff(opts).Calculate(img1, img2)
		if err != nil {
			t.Fatalf("Calculate returned error: %v", err)
		}

		if result.DiffPixels != 0 {
			t.Errorf("Expected DiffPixels to be 0, got %d", result.DiffPixels)
		}

		out := result.Image.(*image.NRGBA)
		var aaPixels int
		for y := 0; y < 5; y++ {
			for x := 0; x < 5; x++ {
				if out.NRGBAAt(x, y) == opts.AAColor {
					aaPixels++
				}
			}
		}
		if aaPixels != 5 {
			t.Errorf("Expected 5 pixels drawn with AAColor, got %d", aaPixels)
		}
	})

	t.Run("ThresholdMonotonicity", func(t *testing.T) {
		img1 := noiseImage(64, 64, 1)
		img2 := noiseImage(64, 64, 2)

		previous := 64 * 64
		for _, threshold := range []float64{0, 0.05, 0.1, 0.2, 0.5, 1} {
			opts := DefaultOptions()
			opts.Threshold = threshold

			count, err := NewPixelDiff(opts).Count(img1, img2)
			if err != nil {
				t.Fatalf("Count returned error: %v", err)
			}
			if count > previous {
				t.Errorf("Diff count grew from %d to %d as threshold rose to %f", previous, count, threshold)
			}
			previous = count
		}
	})

	t.Run("IncludeAANeverLowersCount", func(t *testing.T) {
		img1 := noiseImage(64, 64, 3)
		img2 := noiseImage(64, 64, 4)

		opts := DefaultOptions()
		withDetection, err := NewPixelDiff(opts).Count(img1, img2)
		if err != nil {
			t.Fatalf("Count returned error: %v", err)
		}

		opts.IncludeAA = true
		withoutDetection, err := NewPixelDiff(opts).Count(img1, img2)
		if err != nil {
			t.Fatalf("Count returned error: %v", err)
		}

		if withoutDetection < withDetection {
			t.Errorf("IncludeAA lowered the count from %d to %d", withDetection, withoutDetection)
		}
	})

	t.Run("MaskExclusivity", func(t *testing.T) {
		img1, img2 := antialiasedEdgePair()
		fillRect(img2, 4, 4, 5, 5, color.Black)

		opts := DefaultOptions()
		opts.DiffMask = true

		result, err := NewPixelDiff(opts).Calculate(img1, img2)
		if err != nil {
			t.Fatalf("Calculate returned error: %v", err)
		}

		out := result.Image.(*image.NRGBA)
		var drawn int
		for y := 0; y < 5; y++ {
			for x := 0; x < 5; x++ {
				if (out.NRGBAAt(x, y) != color.NRGBA{}) {
					drawn++
				}
			}
		}
		if drawn != result.DiffPixels {
			t.Errorf("Mask has %d drawn pixels but %d genuine differences", drawn, result.DiffPixels)
		}
	})

	t.Run("DirectionSensitiveColoring", func(t *testing.T) {
		alt := color.NRGBA{R: 0, G: 0, B: 255, A: 255}

		opts := DefaultOptions()
		opts.DiffColorAlt = &alt

		// baseline brighter than target at (0, 0)
		img1 := createTestImage(4, 4, color.White)
		img2 := createTestImage(4, 4, color.White)
		fillRect(img2, 0, 0, 1, 1, color.Black)

		result, err := NewPixelDiff(opts).Calculate(img1, img2)
		if err != nil {
			t.Fatalf("Calculate returned error: %v", err)
		}
		if got := result.Image.(*image.NRGBA).NRGBAAt(0, 0); got != alt {
			t.Errorf("Expected DiffColorAlt for a darkening pixel, got %v", got)
		}

		// target brighter than baseline at (0, 0)
		result, err = NewPixelDiff(opts).Calculate(img2, img1)
		if err != nil {
			t.Fatalf("Calculate returned error: %v", err)
		}
		if got := result.Image.(*image.NRGBA).NRGBAAt(0, 0); got != opts.DiffColor {
			t.Errorf("Expected DiffColor for a lightening pixel, got %v", got)
		}
	})

	t.Run("GrayBackground", func(t *testing.T) {
		img1 := createTestImage(8, 8, color.Black)
		img2 := createTestImage(8, 8, color.Black)

		result, err := NewPixelDiff(DefaultOptions()).Calculate(img1, img2)
		if err != nil {
			t.Fatalf("Calculate returned error: %v", err)
		}

		// luma 0 blended toward white at 0.1 opacity: 255 - 255*0.1
		want := color.NRGBA{R: 229, G: 229, B: 229, A: 229}
		out := result.Image.(*image.NRGBA)
		for y := 0; y < 8; y++ {
			for x := 0; x < 8; x++ {
				if got := out.NRGBAAt(x, y); got != want {
					t.Fatalf("Expected background %v at (%d, %d), got %v", want, x, y, got)
				}
			}
		}
	})

	t.Run("CountMatchesCalculate", func(t *testing.T) {
		img1 := noiseImage(32, 32, 5)
		img2 := noiseImage(32, 32, 6)

		p := NewPixelDiff(DefaultOptions())
		count, err := p.Count(img1, img2)
		if err != nil {
			t.Fatalf("Count returned error: %v", err)
		}
		result, err := p.Calculate(img1, img2)
		if err != nil {
			t.Fatalf("Calculate returned error: %v", err)
		}

		if count != result.DiffPixels {
			t.Errorf("Count returned %d but Calculate counted %d", count, result.DiffPixels)
		}
	})
}

// noiseImage builds a deterministic pseudo-random image so property
// tests do not depend on fixture files.
func noiseImage(width, height int, seed uint32) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	state := seed
	next := func() uint8 {
		state = state*1664525 + 1013904223
		return uint8(state >> 24)
	}
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i] = next()
		img.Pix[i+1] = next()
		img.Pix[i+2] = next()
		img.Pix[i+3] = 255
	}
	return img
}

// panicImage fails the test if any pixel is read.
type panicImage struct {
	rect image.Rectangle
}

func (p *panicImage) ColorModel() color.Model {
	return color.NRGBAModel
}

func (p *panicImage) Bounds() image.Rectangle {
	return p.rect
}

func (p *panicImage) At(x, y int) color.Color {
	panic("pixel read before dimension validation")
}

func BenchmarkPixelDiff_Calculate_Identical(b *testing.B) {
	p := NewPixelDiff(DefaultOptions())
	img1 := createTestImage(1920, 1080, color.White)
	img2 := createTestImage(1920, 1080, color.White)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := p.Calculate(img1, img2); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkPixelDiff_Calculate_Different(b *testing.B) {
	p := NewPixelDiff(DefaultOptions())
	img1 := noiseImage(1920, 1080, 1)
	img2 := noiseImage(1920, 1080, 2)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := p.Calculate(img1, img2); err != nil {
			b.Fatal(err)
		}
	}
}
