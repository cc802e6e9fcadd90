package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v3"

	"sml-renderer/internal/gltfout"
	"sml-renderer/internal/sml"
)

func convertCmd() *cli.Command {
	var (
		output   string
		simplify float64
	)

	return &cli.Command{
		Name:      "convert",
		Usage:     "Convert an SML file to glTF (.gltf or .glb)",
		ArgsUsage: "<file.sml>",
		Flags: append(loggingFlags(),
			&cli.StringFlag{
				Name:        "output",
				Aliases:     []string{"o"},
				Usage:       "output path (default: input with .glb extension)",
				Destination: &output,
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
				return fmt.Errorf("convert: missing input file")
			}
			log := newLogger()

			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("convert: %w", err)
			}
			m, diags, err := sml.Decode(ctx, data)
			if err != nil {
				return fmt.Errorf("convert %s: %w", path, err)
			}
			for _, d := range diags {
				log.Warn("decode diagnostic", "file", path, "kind", d.Kind.String(), "detail", d.Detail)
			}
			if simplify > 0 && simplify < 1 {
				m = m.Simplify(simplify)
			}

			if output == "" {
				output = strings.TrimSuffix(path, ".sml") + ".glb"
			}
			name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
			if err := gltfout.Write(m, name, output); err != nil {
				return fmt.Errorf("convert %s: %w", path, err)
			}
			log.Info("wrote mesh", "file", output, "triangles", m.TriangleCount())
			return nil
		},
	}
}
