package raster

import "math"

// fillTriangle rasterizes one screen-space triangle with a constant color
// and a z-buffer test. Flat shading keeps the inner loop allocation-free:
// the color is resolved once per face by the renderer.
func (fb *FrameBuffer) fillTriangle(
	x0, y0, z0,
	x1, y1, z1,
	x2, y2, z2 float64,
	r, g, b, a uint8,
) {
	minX := int(math.Min(math.Min(x0, x1), x2))
	maxX := int(math.Max(math.Max(x0, x1), x2)) + 1
	minY := int(math.Min(math.Min(y0, y1), y2))
	maxY := int(math.Max(math.Max(y0, y1), y2)) + 1

	if minX < 0 {
		minX = 0
	}
	if maxX > fb.Width {
		maxX = fb.Width
	}
	if minY < 0 {
		minY = 0
	}
	if maxY > fb.Height {
		maxY = fb.Height
	}
	if minX >= maxX || minY >= maxY {
		return
	}

	det := (y1-y2)*(x0-x2) + (x2-x1)*(y0-y2)
	if det > -1e-8 && det < 1e-8 {
		return
	}
	invDet := 1.0 / det

	dy12 := y1 - y2
	dx21 := x2 - x1
	dy20 := y2 - y0
	dx02 := x0 - x2

	for py := minY; py < maxY; py++ {
		fy := float64(py) + 0.5
		row := py * fb.Width
		for px := minX; px < maxX; px++ {
			fx := float64(px) + 0.5

			w0 := (dy12*(fx-x2) + dx21*(fy-y2)) * invDet
			w1 := (dy20*(fx-x2) + dx02*(fy-y2)) * invDet
			w2 := 1.0 - w0 - w1
			if w0 < 0 || w1 < 0 || w2 < 0 {
				continue
			}

			z := w0*z0 + w1*z1 + w2*z2
			idx := row + px
			if z <= fb.Depth[idx] {
				continue
			}
			fb.Depth[idx] = z

			ci := idx * 4
			fb.Color[ci] = r
			fb.Color[ci+1] = g
			fb.Color[ci+2] = b
			fb.Color[ci+3] = a
		}
	}
}
