package raster

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// LightConfig holds precomputed lighting parameters for flat shading in
// view space (camera looking down -Z after rotation).
type LightConfig struct {
	LightDir mgl64.Vec3
	RimDir   mgl64.Vec3
	HalfMain mgl64.Vec3
	Ambient  float64
	Hemi     float64
	Direct   float64
	Rim      float64
	SpecInt  float64
	SpecPow  float64
	Exposure float64
	InvGamma float64
}

// DefaultLightConfig returns a key light above and to the right, a cool rim
// light from behind, and a Blinn-Phong highlight.
func DefaultLightConfig() LightConfig {
	lightDir := mgl64.Vec3{0.45, 0.65, 0.35}.Normalize()
	rimDir := mgl64.Vec3{-0.4, 0.33, -0.53}.Normalize()
	viewDir := mgl64.Vec3{0, 0, -1}

	return LightConfig{
		LightDir: lightDir,
		RimDir:   rimDir,
		HalfMain: lightDir.Sub(viewDir).Normalize(),
		Ambient:  0.55,
		Hemi:     0.50,
		Direct:   1.50,
		Rim:      0.60,
		SpecInt:  0.45,
		SpecPow:  12.0,
		Exposure: 1.05,
		InvGamma: 1.0 / 2.2,
	}
}

// Shade returns the combined lighting scalar for a face normal. Lambertian
// terms take the absolute dot product so back faces light the same way
// (the soup carries no reliable winding).
func (lc *LightConfig) Shade(n mgl64.Vec3) float64 {
	ndlMain := math.Abs(n.Dot(lc.LightDir))
	ndlRim := math.Abs(n.Dot(lc.RimDir))

	hemi := ((1.0-math.Abs(n[1]))*0.5 + 0.5) * lc.Hemi

	ndh := n.Dot(lc.HalfMain)
	if ndh < 0 {
		ndh = 0
	}
	spec := math.Pow(ndh, lc.SpecPow) * lc.SpecInt

	return lc.Ambient + hemi + ndlMain*lc.Direct + ndlRim*lc.Rim + spec
}

// srgbToLinear is a 256-entry sRGB decode table.
var srgbToLinear [256]float64

func init() {
	for i := range srgbToLinear {
		srgbToLinear[i] = math.Pow(float64(i)/255.0, 2.2)
	}
}

// acesTonemap applies ACES filmic tone mapping to a linear value.
func acesTonemap(x float64) float64 {
	return (x * (2.51*x + 0.03)) / (x*(2.43*x+0.59) + 0.14)
}

// ShadeColor applies the shade scalar, exposure, tone mapping and gamma to a
// base sRGB color, returning the display color.
func (lc *LightConfig) ShadeColor(shade float64, r, g, b, a uint8) (uint8, uint8, uint8, uint8) {
	k := shade * lc.Exposure
	return encode(srgbToLinear[r]*k, lc.InvGamma),
		encode(srgbToLinear[g]*k, lc.InvGamma),
		encode(srgbToLinear[b]*k, lc.InvGamma),
		a
}

func encode(linear, invGamma float64) uint8 {
	v := math.Pow(acesTonemap(linear), invGamma) * 255.0
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v + 0.5)
}
