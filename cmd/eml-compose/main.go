// Package main is the entry point for the eml-compose CLI.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"github.com/mailfab/eml-compose/internal/config"
	"github.com/mailfab/eml-compose/internal/manifest"
	"github.com/mailfab/eml-compose/internal/output"
	"github.com/mailfab/eml-compose/internal/output/file"
	"github.com/mailfab/eml-compose/internal/output/stdout"
)

func main() {
	configPath := flag.String("config", "", "path to YAML configuration file (optional)")
	manifestPath := flag.String("manifest", "", "path to the YAML message manifest (required)")
	outPath := flag.String("out", "", "write the composed message to this file (overrides config)")
	flag.Parse()

	// Load configuration
	cfg, err := loadConfig(*configPath)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup structured logging
	setupLogger(cfg.Logging.Level)

	if *manifestPath == "" {
		slog.Error("the -manifest flag is required")
		flag.Usage()
		os.Exit(1)
	}

	mail, err := manifest.Load(*manifestPath)
	if err != nil {
		slog.Error("failed to load manifest", "path", *manifestPath, "error", err)
		os.Exit(1)
	}

	raw, err := mail.Compose()
	if err != nil {
		slog.Error("failed to compose message", "error", err)
		os.Exit(1)
	}

	writer := selectWriter(cfg, *outPath)

	slog.Info("composing message",
		"manifest", *manifestPath,
		"attachments", len(mail.Attachments),
		"writer", writer.Name(),
	)

	if err := writer.Write(context.Background(), mail, raw); err != nil {
		slog.Error("failed to write message", "writer", writer.Name(), "error", err)
		os.Exit(1)
	}
}

// loadConfig loads configuration from the specified path (YAML + env override)
// or from environment variables only if no path is given.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromFile(path)
	}
	return config.Load()
}

// setupLogger configures the global slog logger with JSON output and the
// specified log level. Logs go to stderr so the stdout writer stays clean.
func setupLogger(level string) {
	var logLevel slog.Level

	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	})
	slog.SetDefault(slog.New(handler))
}

// selectWriter chooses the message destination. The -out flag forces a file
// destination; otherwise the configured target decides.
func selectWriter(cfg *config.Config, outPath string) output.Writer {
	if outPath != "" {
		return file.New(outPath, "")
	}

	switch cfg.Output.Target {
	case "file":
		return file.New(cfg.Output.Path, cfg.Output.Dir)

	case "stdout", "":
		return stdout.New()

	default:
		slog.Error("unknown output target", "target", cfg.Output.Target)
		os.Exit(1)
		return nil
	}
}
