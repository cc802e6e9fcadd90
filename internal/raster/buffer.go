package raster

import (
	"image"
	"math"
)

// FrameBuffer is the render target: interleaved RGBA plus a per-pixel depth
// buffer initialized to -inf (larger z wins).
type FrameBuffer struct {
	Width  int
	Height int
	Color  []uint8
	Depth  []float64
}

// NewFrameBuffer allocates a transparent color buffer and -inf depth buffer.
func NewFrameBuffer(w, h int) *FrameBuffer {
	n := w * h
	depth := make([]float64, n)
	for i := range depth {
		depth[i] = math.Inf(-1)
	}
	return &FrameBuffer{
		Width:  w,
		Height: h,
		Color:  make([]uint8, n*4),
		Depth:  depth,
	}
}

// Image copies the color buffer into an NRGBA image.
func (fb *FrameBuffer) Image() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, fb.Width, fb.Height))
	copy(img.Pix, fb.Color)
	return img
}
