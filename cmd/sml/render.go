package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/HugoSmits86/nativewebp"
	"github.com/urfave/cli/v3"

	"sml-renderer/internal/config"
	"sml-renderer/internal/postprocess"
	"sml-renderer/internal/raster"
	"sml-renderer/internal/sml"
)

func renderCmd() *cli.Command {
	var (
		output      string
		size        int
		supersample int
		yaw         float64
		pitch       float64
		matcapPath  string
		simplify    float64
	)

	return &cli.Command{
		Name:      "render",
		Usage:     "Render an SML file to a WebP preview",
		ArgsUsage: "<file.sml>",
		Flags: append(loggingFlags(),
			&cli.StringFlag{
				Name:        "output",
				Aliases:     []string{"o"},
				Usage:       "output WebP path (default: input with .webp extension)",
				Destination: &output,
			},
			&cli.IntFlag{
				Name:        "size",
				Usage:       "output image size in pixels",
				Destination: &size,
			},
			&cli.IntFlag{
				Name:        "supersample",
				Usage:       "supersampling factor",
				Destination: &supersample,
			},
			&cli.Float64Flag{
				Name:        "yaw",
				Usage:       "camera yaw in degrees",
				Destination: &yaw,
			},
			&cli.Float64Flag{
				Name:        "pitch",
				Usage:       "camera pitch in degrees",
				Destination: &pitch,
			},
			&cli.StringFlag{
				Name:        "matcap",
				Usage:       "matcap texture (png, jpeg or tga)",
				Destination: &matcapPath,
			},
			&cli.Float64Flag{
				Name:        "simplify",
				Usage:       "decimate to this fraction of triangles (0 disables)",
				Destination: &simplify,
			},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			path := cmd.Args().First()
			if path == "" {
				return fmt.Errorf("render: missing input file")
			}

			cfg, err := loadConfig(config.Flags{Size: size, Matcap: matcapPath})
			if err != nil {
				return err
			}
			if supersample > 0 {
				cfg.Supersample = supersample
			}
			if yaw != 0 {
				cfg.Yaw = yaw
			}
			if pitch != 0 {
				cfg.Pitch = pitch
			}
			if simplify > 0 {
				cfg.Simplify = simplify
			}
			log := newLogger()

			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("render: %w", err)
			}
			m, diags, err := sml.Decode(ctx, data)
			if err != nil {
				return fmt.Errorf("render %s: %w", path, err)
			}
			for _, d := range diags {
				log.Warn("decode diagnostic", "file", path, "kind", d.Kind.String(), "detail", d.Detail)
			}
			if cfg.Simplify > 0 && cfg.Simplify < 1 {
				before := m.TriangleCount()
				m = m.Simplify(cfg.Simplify)
				log.Info("simplified mesh", "before", before, "after", m.TriangleCount())
			}

			tex, err := loadMatcap(cfg.Matcap)
			if err != nil {
				return fmt.Errorf("render: %w", err)
			}

			img := raster.Render(m, raster.Options{
				Size:        cfg.RenderSize,
				Supersample: cfg.Supersample,
				Yaw:         cfg.Yaw,
				Pitch:       cfg.Pitch,
				Matcap:      tex,
			})
			if cfg.Supersample > 1 {
				img = postprocess.Downsample(img, cfg.RenderSize)
			}

			if output == "" {
				output = strings.TrimSuffix(path, ".sml") + ".webp"
			}
			f, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("render: %w", err)
			}
			defer f.Close()
			if err := nativewebp.Encode(f, img, nil); err != nil {
				return fmt.Errorf("render: encode %s: %w", output, err)
			}
			log.Info("wrote preview", "file", output, "triangles", m.TriangleCount())
			return nil
		},
	}
}
