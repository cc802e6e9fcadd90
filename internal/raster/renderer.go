package raster

import (
	"image"
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"sml-renderer/internal/mesh"
)

// Options controls a preview render. Zero values fall back to sane defaults.
type Options struct {
	Size        int     // output edge length in pixels
	Supersample int     // render at Size*Supersample, caller downsamples
	Yaw         float64 // turntable rotation in degrees
	Pitch       float64 // camera tilt in degrees
	Matcap      *image.NRGBA
}

func (o *Options) fill() {
	if o.Size <= 0 {
		o.Size = 512
	}
	if o.Supersample <= 0 {
		o.Supersample = 1
	}
}

// Default base color for untextured meshes.
const (
	baseR = 160
	baseG = 160
	baseB = 170
)

// Render draws the mesh into an NRGBA image of edge Size*Supersample using a
// turntable camera: rotate, fit the bounding box with a margin, project
// orthographically and rasterize flat-shaded with a z-buffer.
func Render(m *mesh.Mesh, opts Options) *image.NRGBA {
	opts.fill()
	renderSize := opts.Size * opts.Supersample

	if m.TriangleCount() == 0 {
		return image.NewNRGBA(image.Rect(0, 0, renderSize, renderSize))
	}

	rot := mgl64.Rotate3DX(mgl64.DegToRad(opts.Pitch)).
		Mul3(mgl64.Rotate3DY(mgl64.DegToRad(opts.Yaw)))

	// Transform once; the projection needs the rotated bounds first.
	view := make([][3]mgl64.Vec3, len(m.Triangles))
	bmin := mgl64.Vec3{math.Inf(1), math.Inf(1), math.Inf(1)}
	bmax := mgl64.Vec3{math.Inf(-1), math.Inf(-1), math.Inf(-1)}
	for i, t := range m.Triangles {
		view[i] = [3]mgl64.Vec3{rot.Mul3x1(t.V1), rot.Mul3x1(t.V2), rot.Mul3x1(t.V3)}
		for _, v := range view[i] {
			for k := 0; k < 3; k++ {
				if v[k] < bmin[k] {
					bmin[k] = v[k]
				}
				if v[k] > bmax[k] {
					bmax[k] = v[k]
				}
			}
		}
	}

	center := bmin.Add(bmax).Mul(0.5)
	span := math.Max(bmax[0]-bmin[0], bmax[1]-bmin[1])
	if span < 1e-3 {
		span = 1e-3
	}
	// A fixed margin would swallow small render sizes, so cap it at a
	// quarter of the frame.
	margin := min(16*opts.Supersample, renderSize/4)
	scale := float64(renderSize-2*margin) / span
	half := float64(renderSize) / 2

	fb := NewFrameBuffer(renderSize, renderSize)
	lc := DefaultLightConfig()

	for _, tv := range view {
		n := faceNormal(tv[0], tv[1], tv[2])
		if n == (mgl64.Vec3{}) {
			continue
		}

		r, g, b, a := uint8(baseR), uint8(baseG), uint8(baseB), uint8(255)
		if opts.Matcap != nil {
			r, g, b, a = sampleMatcap(opts.Matcap, n)
		}
		r, g, b, a = lc.ShadeColor(lc.Shade(n), r, g, b, a)

		var sx, sy, sz [3]float64
		for k, v := range tv {
			sx[k] = (v[0]-center[0])*scale + half
			sy[k] = half - (v[1]-center[1])*scale
			sz[k] = (v[2] - center[2]) * scale
		}
		fb.fillTriangle(sx[0], sy[0], sz[0], sx[1], sy[1], sz[1], sx[2], sy[2], sz[2], r, g, b, a)
	}

	return fb.Image()
}

func faceNormal(v0, v1, v2 mgl64.Vec3) mgl64.Vec3 {
	n := v1.Sub(v0).Cross(v2.Sub(v0))
	if n.Len() < 1e-12 {
		return mgl64.Vec3{}
	}
	return n.Normalize()
}

// sampleMatcap looks the view-space normal up in a sphere map. Normals facing
// the camera hit the center; grazing normals hit the rim.
func sampleMatcap(tex *image.NRGBA, n mgl64.Vec3) (uint8, uint8, uint8, uint8) {
	b := tex.Bounds()
	u := n[0]*0.5 + 0.5
	v := 0.5 - n[1]*0.5

	x := b.Min.X + int(u*float64(b.Dx()-1)+0.5)
	y := b.Min.Y + int(v*float64(b.Dy()-1)+0.5)
	i := tex.PixOffset(x, y)
	return tex.Pix[i], tex.Pix[i+1], tex.Pix[i+2], tex.Pix[i+3]
}
