package image

// yiqDeltaMax is the maximum possible value of the YIQ difference
// metric; thresholds in [0, 1] are scaled into metric units with it.
const yiqDeltaMax = 35215.0

// colorDelta calculates the perceived difference between two colors
// according to the paper "Measuring perceived color difference using
// YIQ NTSC transmission color space in mobile applications" by
// Y. Kotsarenko and F. Ramos.
//
// The magnitude is the weighted squared distance in YIQ space; the
// sign is negative when c1 is the brighter color. With yOnly set only
// the brightness difference Y1-Y2 is returned.
func colorDelta(c1, c2 [4]uint8, yOnly bool) float64 {
	if c1 == c2 {
		return 0
	}

	r1, g1, b1 := float64(c1[0]), float64(c1[1]), float64(c1[2])
	r2, g2, b2 := float64(c2[0]), float64(c2[1]), float64(c2[2])

	// Semi-transparent colors are composited over white first.
	if a1 := float64(c1[3]); a1 < 255 {
		a1 /= 255
		r1 = blend(r1, a1)
		g1 = blend(g1, a1)
		b1 = blend(b1, a1)
	}
	if a2 := float64(c2[3]); a2 < 255 {
		a2 /= 255
		r2 = blend(r2, a2)
		g2 = blend(g2, a2)
		b2 = blend(b2, a2)
	}

	y1 := rgb2y(r1, g1, b1)
	y2 := rgb2y(r2, g2, b2)
	y := y1 - y2

	if yOnly {
		return y
	}

	i := rgb2i(r1, g1, b1) - rgb2i(r2, g2, b2)
	q := rgb2q(r1, g1, b1) - rgb2q(r2, g2, b2)

	delta := 0.5053*y*y + 0.299*i*i + 0.1957*q*q

	// encode whether the pixel lightens or darkens in the sign
	if y1 > y2 {
		return -delta
	}
	return delta
}

// blend composites a semi-transparent channel over white.
func blend(c, a float64) float64 {
	return 255 + (c-255)*a
}

func rgb2y(r, g, b float64) float64 {
	return r*0.29889531 + g*0.58662247 + b*0.11448223
}

func rgb2i(r, g, b float64) float64 {
	return r*0.59597799 - g*0.27417610 - b*0.32180189
}

func rgb2q(r, g, b float64) float64 {
	return r*0.21147017 - g*0.52261711 + b*0.31114694
}
