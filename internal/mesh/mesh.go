package mesh

import (
	"math"

	"github.com/fogleman/simplify"
	"github.com/go-gl/mathgl/mgl64"
)

// Triangle is a single face with resolved corner points. Meshes produced by
// the SML decoder are unindexed: every face carries its own copies.
type Triangle struct {
	V1, V2, V3 mgl64.Vec3
}

// Normal returns the unit face normal, or the zero vector for a degenerate face.
func (t Triangle) Normal() mgl64.Vec3 {
	n := t.V2.Sub(t.V1).Cross(t.V3.Sub(t.V1))
	if n.Len() < 1e-12 {
		return mgl64.Vec3{}
	}
	return n.Normalize()
}

// Mesh is a flat triangle soup in emission order.
type Mesh struct {
	Triangles []Triangle
}

func (m *Mesh) Add(t Triangle) {
	m.Triangles = append(m.Triangles, t)
}

func (m *Mesh) TriangleCount() int {
	return len(m.Triangles)
}

// BoundingBox returns the axis-aligned bounds of all corner points.
// An empty mesh returns two zero vectors.
func (m *Mesh) BoundingBox() (min, max mgl64.Vec3) {
	if len(m.Triangles) == 0 {
		return mgl64.Vec3{}, mgl64.Vec3{}
	}
	min = mgl64.Vec3{math.Inf(1), math.Inf(1), math.Inf(1)}
	max = mgl64.Vec3{math.Inf(-1), math.Inf(-1), math.Inf(-1)}
	for _, t := range m.Triangles {
		for _, v := range [3]mgl64.Vec3{t.V1, t.V2, t.V3} {
			for k := 0; k < 3; k++ {
				if v[k] < min[k] {
					min[k] = v[k]
				}
				if v[k] > max[k] {
					max[k] = v[k]
				}
			}
		}
	}
	return min, max
}

// Center returns the midpoint of the bounding box.
func (m *Mesh) Center() mgl64.Vec3 {
	min, max := m.BoundingBox()
	return min.Add(max).Mul(0.5)
}

// Span returns the largest bounding-box extent.
func (m *Mesh) Span() float64 {
	min, max := m.BoundingBox()
	d := max.Sub(min)
	return math.Max(d[0], math.Max(d[1], d[2]))
}

// Simplify decimates the mesh, keeping roughly factor of the faces.
// Factor is clamped to (0, 1]; a factor of 1 returns the mesh unchanged.
func (m *Mesh) Simplify(factor float64) *Mesh {
	if factor >= 1 || len(m.Triangles) == 0 {
		return m
	}
	if factor <= 0 {
		factor = 0.1
	}

	tris := make([]*simplify.Triangle, len(m.Triangles))
	for i, t := range m.Triangles {
		tris[i] = simplify.NewTriangle(
			simplify.Vector{X: t.V1[0], Y: t.V1[1], Z: t.V1[2]},
			simplify.Vector{X: t.V2[0], Y: t.V2[1], Z: t.V2[2]},
			simplify.Vector{X: t.V3[0], Y: t.V3[1], Z: t.V3[2]},
		)
	}

	reduced := simplify.NewMesh(tris).Simplify(factor)

	out := &Mesh{Triangles: make([]Triangle, 0, len(reduced.Triangles))}
	for _, t := range reduced.Triangles {
		out.Add(Triangle{
			V1: mgl64.Vec3{t.V1.X, t.V1.Y, t.V1.Z},
			V2: mgl64.Vec3{t.V2.X, t.V2.Y, t.V2.Z},
			V3: mgl64.Vec3{t.V3.X, t.V3.Y, t.V3.Z},
		})
	}
	return out
}
