// Package matcap loads sphere-map images used to shade untextured meshes.
package matcap

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/ftrvxmtrx/tga"
	"github.com/nfnt/resize"
)

// LookupSize is the edge length matcaps are normalized to. Sampling is a
// plain nearest lookup, so a fixed modest resolution is plenty.
const LookupSize = 256

// Load reads a PNG, JPEG or TGA sphere map and returns it as an NRGBA image
// normalized to LookupSize×LookupSize.
func Load(path string) (*image.NRGBA, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("matcap: read %s: %w", path, err)
	}

	// TGA has no magic bytes to sniff, so the codec is picked by extension.
	var img image.Image
	switch strings.ToLower(filepath.Ext(path)) {
	case ".tga":
		img, err = tga.Decode(bytes.NewReader(raw))
	default:
		img, _, err = image.Decode(bytes.NewReader(raw))
	}
	if err != nil {
		return nil, fmt.Errorf("matcap: decode %s: %w", path, err)
	}

	b := img.Bounds()
	if b.Dx() != LookupSize || b.Dy() != LookupSize {
		img = resize.Resize(LookupSize, LookupSize, img, resize.Bilinear)
	}
	return toNRGBA(img), nil
}

func toNRGBA(src image.Image) *image.NRGBA {
	if n, ok := src.(*image.NRGBA); ok {
		return n
	}
	b := src.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
	return dst
}
