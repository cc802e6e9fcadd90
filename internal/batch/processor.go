// Package batch converts directories of SML files to WebP previews using a
// worker pool.
package batch

import (
	"context"
	"fmt"
	"image"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/HugoSmits86/nativewebp"

	"sml-renderer/internal/logger"
	"sml-renderer/internal/postprocess"
	"sml-renderer/internal/raster"
	"sml-renderer/internal/sml"
)

// Config holds all shared resources for a batch run.
type Config struct {
	InputDir    string
	OutputDir   string
	RenderSize  int
	Supersample int
	Workers     int
	Yaw         float64
	Pitch       float64
	Matcap      *image.NRGBA
	Simplify    float64
	Log         logger.Logger
}

// Result holds the outcome of processing one file.
type Result struct {
	Name        string `json:"name"`
	Triangles   int    `json:"triangles"`
	Diagnostics int    `json:"diagnostics"`
	Success     bool   `json:"success"`
	Error       string `json:"error,omitempty"`
}

// Run converts every .sml file under cfg.InputDir, mirroring the directory
// layout into cfg.OutputDir. Results come back in discovery order.
func Run(ctx context.Context, cfg Config) ([]Result, error) {
	if cfg.Log == nil {
		cfg.Log = logger.Default()
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}

	var files []string
	err := filepath.WalkDir(cfg.InputDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.EqualFold(filepath.Ext(path), ".sml") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("batch: scan %s: %w", cfg.InputDir, err)
	}

	total := len(files)
	results := make([]Result, total)
	var processed atomic.Int64

	start := time.Now()
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(2 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				p := processed.Load()
				if p > 0 {
					rate := float64(p) / time.Since(start).Seconds()
					cfg.Log.Info("progress", "done", p, "total", total, "files_per_sec", fmt.Sprintf("%.1f", rate))
				}
			}
		}
	}()

	fileChan := make(chan int, cfg.Workers*2)
	var wg sync.WaitGroup
	for w := 0; w < cfg.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range fileChan {
				results[idx] = processFile(ctx, cfg, files[idx])
				processed.Add(1)
			}
		}()
	}

	for i := range files {
		fileChan <- i
	}
	close(fileChan)

	wg.Wait()
	close(done)

	return results, nil
}

func processFile(ctx context.Context, cfg Config, path string) Result {
	rel, err := filepath.Rel(cfg.InputDir, path)
	if err != nil {
		rel = filepath.Base(path)
	}
	res := Result{Name: rel}

	data, err := os.ReadFile(path)
	if err != nil {
		res.Error = err.Error()
		return res
	}

	m, diags, err := sml.Decode(ctx, data)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	res.Diagnostics = len(diags)
	for _, d := range diags {
		cfg.Log.Warn("decode diagnostic", "file", rel, "kind", d.Kind.String(), "detail", d.Detail)
	}

	if cfg.Simplify > 0 && cfg.Simplify < 1 {
		m = m.Simplify(cfg.Simplify)
	}
	res.Triangles = m.TriangleCount()

	img := raster.Render(m, raster.Options{
		Size:        cfg.RenderSize,
		Supersample: cfg.Supersample,
		Yaw:         cfg.Yaw,
		Pitch:       cfg.Pitch,
		Matcap:      cfg.Matcap,
	})
	if cfg.Supersample > 1 {
		img = postprocess.Downsample(img, cfg.RenderSize)
	}

	outPath := filepath.Join(cfg.OutputDir, strings.TrimSuffix(rel, filepath.Ext(rel))+".webp")
	if err := os.MkdirAll(filepath.Dir(outPath), 0755); err != nil {
		res.Error = err.Error()
		return res
	}

	f, err := os.Create(outPath)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	defer f.Close()

	if err := nativewebp.Encode(f, img, nil); err != nil {
		res.Error = fmt.Sprintf("webp encode: %v", err)
		return res
	}

	res.Success = true
	return res
}
