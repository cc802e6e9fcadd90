package main

import (
	"image"
	"os"

	"github.com/urfave/cli/v3"

	"sml-renderer/internal/config"
	"sml-renderer/internal/logger"
	"sml-renderer/internal/matcap"
)

var (
	configPath string
	logLevel   string
	logFormat  string
)

func loggingFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "log level (debug, info, warn, error)",
			Value:       "info",
			Destination: &logLevel,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "log format (text, json)",
			Value:       "text",
			Destination: &logFormat,
		},
		&cli.StringFlag{
			Name:        "config",
			Usage:       "path to a JSON or YAML config file",
			Destination: &configPath,
		},
	}
}

func newLogger() logger.Logger {
	level := logger.ParseLevel(logLevel)
	if logFormat == "json" {
		return logger.JSON(os.Stderr, level)
	}
	return logger.Text(os.Stderr, level)
}

// loadConfig reads the optional config file and applies flag overrides.
func loadConfig(flags config.Flags) (config.Config, error) {
	var cfg config.Config
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return config.Config{}, err
		}
		cfg = loaded
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = logLevel
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = logFormat
	}
	cfg.Resolve(flags)
	return cfg, nil
}

func loadMatcap(path string) (*image.NRGBA, error) {
	if path == "" {
		return nil, nil
	}
	return matcap.Load(path)
}
