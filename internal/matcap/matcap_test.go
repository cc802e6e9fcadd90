package matcap

import (
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/ftrvxmtrx/tga"
)

func TestLoadNormalizesSize(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 31, 17))
	for i := 0; i < len(src.Pix); i += 4 {
		src.Pix[i] = 128
		src.Pix[i+3] = 255
	}

	path := filepath.Join(t.TempDir(), "matcap.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := png.Encode(f, src); err != nil {
		t.Fatal(err)
	}
	f.Close()

	img, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if img.Bounds().Dx() != LookupSize || img.Bounds().Dy() != LookupSize {
		t.Errorf("bounds = %v, want %d square", img.Bounds(), LookupSize)
	}
}

func TestLoadPNGDecodesAsPNG(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, LookupSize, LookupSize))
	for i := 0; i < len(src.Pix); i += 4 {
		src.Pix[i] = 200
		src.Pix[i+3] = 255
	}

	path := filepath.Join(t.TempDir(), "red.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := png.Encode(f, src); err != nil {
		t.Fatal(err)
	}
	f.Close()

	img, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if img.Pix[0] != 200 {
		t.Errorf("red channel = %d, want 200", img.Pix[0])
	}
}

func TestLoadTGA(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 8, 8))
	for i := 0; i < len(src.Pix); i += 4 {
		src.Pix[i+1] = 90
		src.Pix[i+3] = 255
	}

	path := filepath.Join(t.TempDir(), "matcap.tga")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := tga.Encode(f, src); err != nil {
		t.Fatal(err)
	}
	f.Close()

	img, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if img.Bounds().Dx() != LookupSize || img.Bounds().Dy() != LookupSize {
		t.Errorf("bounds = %v, want %d square", img.Bounds(), LookupSize)
	}
	if img.Pix[1] == 0 {
		t.Error("green channel lost in tga round trip")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.png")); err == nil {
		t.Fatal("want error for missing file")
	}
}
