package image

// antialiased reports whether the pixel at (x, y) in primary is likely
// part of anti-aliasing rather than a genuine rendering difference;
// based on "Anti-aliased Pixel and Intensity Slope Detector" paper by
// V. Vysniauskas, 2009. The secondary image cross-validates the
// extreme neighbors so that a real content change is not suppressed.
func antialiased(primary *buffer, x, y int, secondary *buffer) bool {
	center := primary.at(x, y)

	var zeroes int
	var min, max float64
	var minX, minY, maxX, maxY int

	for dx := -1; dx <= 1; dx++ {
		for dy := -1; dy <= 1; dy++ {
			if dx == 0 && dy == 0 {
				continue
			}

			ax := clamp(x+dx, primary.width-1)
			ay := clamp(y+dy, primary.height-1)

			// brightness delta between the center pixel and adjacent one
			delta := colorDelta(center, primary.at(ax, ay), true)

			switch {
			case delta == 0:
				zeroes++
				// more than 2 equal siblings means a flat region, not an edge
				if zeroes > 2 {
					return false
				}
			case delta < min:
				// remember the darkest neighbor
				min = delta
				minX = ax
				minY = ay
			case delta > max:
				// remember the brightest neighbor
				max = delta
				maxX = ax
				maxY = ay
			}
		}
	}

	// an edge needs contrast in both directions
	if min == 0 || max == 0 {
		return false
	}

	// if either the darkest or the brightest neighbor sits in a flat
	// region of both images, the center pixel is anti-aliased
	return (hasManySiblings(primary, minX, minY) && hasManySiblings(secondary, minX, minY)) ||
		(hasManySiblings(primary, maxX, maxY) && hasManySiblings(secondary, maxX, maxY))
}

// hasManySiblings reports whether the pixel at (x, y) has 3+ adjacent
// pixels of the exact same color.
func hasManySiblings(b *buffer, x, y int) bool {
	center := b.at(x, y)

	var siblings int
	for dx := -1; dx <= 1; dx++ {
		for dy := -1; dy <= 1; dy++ {
			if dx == 0 && dy == 0 {
				continue
			}

			if center == b.at(clamp(x+dx, b.width-1), clamp(y+dy, b.height-1)) {
				siblings++
			}
			if siblings > 2 {
				return true
			}
		}
	}

	return false
}

func clamp(v, max int) int {
	if v < 0 {
		return 0
	}
	if v > max {
		return max
	}
	return v
}
