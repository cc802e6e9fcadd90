package main

import (
	"context"
	"fmt"
	"os"

	"github.com/goccy/go-json"
	"github.com/urfave/cli/v3"

	"sml-renderer/internal/sml"
)

type inspectReport struct {
	File        string            `json:"file"`
	Size        int               `json:"size"`
	Checksum    uint32            `json:"checksum"`
	Triangles   int               `json:"triangles"`
	BoundsMin   [3]float64        `json:"bounds_min"`
	BoundsMax   [3]float64        `json:"bounds_max"`
	Segments    []sml.SegmentInfo `json:"segments"`
	Diagnostics []sml.Diagnostic  `json:"diagnostics"`
}

func inspectCmd() *cli.Command {
	var (
		asJSON       bool
		skipChecksum bool
	)

	return &cli.Command{
		Name:      "inspect",
		Usage:     "Report the segment table, triangle count and diagnostics of an SML file",
		ArgsUsage: "<file.sml>",
		Flags: append(loggingFlags(),
			&cli.BoolFlag{
				Name:        "json",
				Usage:       "emit the report as JSON",
				Destination: &asJSON,
			},
			&cli.BoolFlag{
				Name:        "skip-checksum",
				Usage:       "skip checksum verification (reported as a diagnostic)",
				Destination: &skipChecksum,
			},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			path := cmd.Args().First()
			if path == "" {
				return fmt.Errorf("inspect: missing input file")
			}

			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("inspect: %w", err)
			}

			dec := sml.Decoder{SkipChecksum: skipChecksum}
			m, diags, err := dec.Decode(ctx, data)
			if err != nil {
				return fmt.Errorf("inspect %s: %w", path, err)
			}
			segs, err := sml.Scan(data)
			if err != nil {
				return fmt.Errorf("inspect %s: %w", path, err)
			}
			crc, err := sml.StoredChecksum(data)
			if err != nil {
				return fmt.Errorf("inspect %s: %w", path, err)
			}

			report := inspectReport{
				File:        path,
				Size:        len(data),
				Checksum:    crc,
				Triangles:   m.TriangleCount(),
				Segments:    segs,
				Diagnostics: diags,
			}
			min, max := m.BoundingBox()
			report.BoundsMin, report.BoundsMax = [3]float64(min), [3]float64(max)

			if asJSON {
				out, err := json.MarshalIndent(report, "", "  ")
				if err != nil {
					return fmt.Errorf("inspect: encode report: %w", err)
				}
				fmt.Println(string(out))
				return nil
			}

			fmt.Printf("%s: %d bytes, checksum %08x\n", path, len(data), crc)
			fmt.Printf("triangles: %d\n", report.Triangles)
			fmt.Printf("bounds: min (%.3f, %.3f, %.3f) max (%.3f, %.3f, %.3f)\n",
				report.BoundsMin[0], report.BoundsMin[1], report.BoundsMin[2],
				report.BoundsMax[0], report.BoundsMax[1], report.BoundsMax[2])
			fmt.Printf("segments (%d):\n", len(segs))
			for _, s := range segs {
				fmt.Printf("  %8d  %-14s %d bytes\n", s.Offset, s.TypeName(), s.Length)
			}
			if len(diags) > 0 {
				fmt.Printf("diagnostics (%d):\n", len(diags))
				for _, d := range diags {
					fmt.Printf("  %s at offset %d: %s\n", d.Kind, d.Offset, d.Detail)
				}
			}
			return nil
		},
	}
}
