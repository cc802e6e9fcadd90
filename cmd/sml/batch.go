package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/urfave/cli/v3"

	"sml-renderer/internal/batch"
	"sml-renderer/internal/config"
)

func batchCmd() *cli.Command {
	var (
		outputDir  string
		size       int
		workers    int
		matcapPath string
		manifest   bool
	)

	return &cli.Command{
		Name:      "batch",
		Usage:     "Convert a directory of SML files to WebP previews",
		ArgsUsage: "<input-dir>",
		Flags: append(loggingFlags(),
			&cli.StringFlag{
				Name:        "output",
				Aliases:     []string{"o"},
				Usage:       "output directory",
				Destination: &outputDir,
			},
			&cli.IntFlag{
				Name:        "size",
				Usage:       "output image size in pixels",
				Destination: &size,
			},
			&cli.IntFlag{
				Name:        "workers",
				Usage:       "parallel workers (default: CPU count)",
				Destination: &workers,
			},
			&cli.StringFlag{
				Name:        "matcap",
				Usage:       "matcap texture applied to every preview",
				Destination: &matcapPath,
			},
			&cli.BoolFlag{
				Name:        "manifest",
				Usage:       "write a manifest.json next to the previews",
				Value:       true,
				Destination: &manifest,
			},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			inputDir := cmd.Args().First()
			if inputDir == "" {
				return fmt.Errorf("batch: missing input directory")
			}

			cfg, err := loadConfig(config.Flags{
				OutputDir: outputDir,
				Size:      size,
				Workers:   workers,
				Matcap:    matcapPath,
			})
			if err != nil {
				return err
			}
			if cfg.OutputDir == "" {
				cfg.OutputDir = inputDir
			}
			log := newLogger()

			tex, err := loadMatcap(cfg.Matcap)
			if err != nil {
				return fmt.Errorf("batch: %w", err)
			}

			results, err := batch.Run(ctx, batch.Config{
				InputDir:    inputDir,
				OutputDir:   cfg.OutputDir,
				RenderSize:  cfg.RenderSize,
				Supersample: cfg.Supersample,
				Workers:     cfg.Workers,
				Yaw:         cfg.Yaw,
				Pitch:       cfg.Pitch,
				Matcap:      tex,
				Simplify:    cfg.Simplify,
				Log:         log,
			})
			if err != nil {
				return err
			}

			failed := 0
			for _, r := range results {
				if !r.Success {
					failed++
					log.Error("conversion failed", "file", r.Name, "error", r.Error)
				}
			}
			log.Info("batch finished", "total", len(results), "failed", failed)

			if manifest {
				path := filepath.Join(cfg.OutputDir, "manifest.json")
				if err := batch.WriteManifest(path, results); err != nil {
					return err
				}
				log.Info("wrote manifest", "file", path)
			}
			if failed > 0 {
				return fmt.Errorf("batch: %d of %d files failed", failed, len(results))
			}
			return nil
		},
	}
}
