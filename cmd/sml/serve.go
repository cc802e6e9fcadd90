package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"
	"github.com/urfave/cli/v3"

	"sml-renderer/internal/config"
	"sml-renderer/internal/server"
)

func serveCmd() *cli.Command {
	var (
		addr        string
		size        int
		matcapPath  string
		cacheSize   int
		rateLimit   float64
		readTimeout time.Duration
	)

	return &cli.Command{
		Name:  "serve",
		Usage: "Serve SML previews and inspection over HTTP",
		Flags: append(loggingFlags(),
			&cli.StringFlag{
				Name:        "addr",
				Usage:       "listen address (default: config server_addr)",
				Destination: &addr,
			},
			&cli.IntFlag{
				Name:        "size",
				Usage:       "default preview size in pixels",
				Destination: &size,
			},
			&cli.StringFlag{
				Name:        "matcap",
				Usage:       "matcap texture applied to every preview",
				Destination: &matcapPath,
			},
			&cli.IntFlag{
				Name:        "cache-size",
				Usage:       "rendered previews kept in memory",
				Value:       128,
				Destination: &cacheSize,
			},
			&cli.Float64Flag{
				Name:        "rate-limit",
				Usage:       "uploads per second per client (0 disables)",
				Destination: &rateLimit,
			},
			&cli.DurationFlag{
				Name:        "read-timeout",
				Usage:       "read header timeout",
				Value:       30 * time.Second,
				Destination: &readTimeout,
			},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(config.Flags{Size: size, Matcap: matcapPath})
			if err != nil {
				return err
			}
			if addr == "" {
				addr = cfg.ServerAddr
			}
			log := newLogger()

			tex, err := loadMatcap(cfg.Matcap)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}

			srv, err := server.New(server.Options{
				Log:         log,
				RenderSize:  cfg.RenderSize,
				Supersample: cfg.Supersample,
				Matcap:      tex,
				CacheSize:   cacheSize,
				RateLimit:   rateLimit,
			})
			if err != nil {
				return err
			}

			e := echo.New()
			e.Use(middleware.RequestLogger())
			e.Use(middleware.Recover())
			srv.Register(e)
			log.Info("starting server", "address", addr)
			sc := echo.StartConfig{
				Address: addr,
				BeforeServeFunc: func(s *http.Server) error {
					s.ReadHeaderTimeout = readTimeout
					return nil
				},
			}
			return sc.Start(ctx, e)
		},
	}
}
