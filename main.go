package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/marcopiovanello/trackdl/server"
	"github.com/marcopiovanello/trackdl/server/config"
	"github.com/marcopiovanello/trackdl/server/logging"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

func main() {
	fs := pflag.NewFlagSet("trackdl", pflag.ExitOnError)

	var (
		configFile  = fs.String("conf", "./config.yml", "Config file path")
		printConfig = fs.Bool("print-config", false, "Print the effective configuration and exit")
	)
	fs.String("host", "0.0.0.0", "Host to listen on, or a unix socket path")
	fs.Int("port", 8000, "Port to listen on")
	fs.String("log-level", "info", "Log level (debug, info, warn, error)")
	fs.String("downloader", "yt-dlp", "Path of the yt-dlp executable")
	fs.String("processor", "ffmpeg", "Path of the ffmpeg executable")

	fs.Parse(os.Args[1:])

	cfg, err := config.Load(*configFile, fs)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load config:", err)
		os.Exit(1)
	}

	if *printConfig {
		enc := yaml.NewEncoder(os.Stdout)
		enc.SetIndent(2)
		if err := enc.Encode(cfg); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	logger, closer := logging.New(cfg.Logging, os.Stdout)
	defer closer.Close()

	// Graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("starting server",
		slog.String("host", cfg.Server.Host),
		slog.Int("port", cfg.Server.Port),
		slog.String("downloader", cfg.Paths.DownloaderPath),
		slog.String("processor", cfg.Paths.ProcessorPath),
	)

	if err := server.Run(ctx, cfg, logger); err != nil {
		logger.Error("server stopped with error", slog.String("err", err.Error()))
		closer.Close()
		os.Exit(1)
	}

	logger.Info("server exited cleanly")
}
