// a stupid package name...
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/marcopiovanello/trackdl/server/config"
	"github.com/marcopiovanello/trackdl/server/internal/downloaders"
	"github.com/marcopiovanello/trackdl/server/internal/events"
	"github.com/marcopiovanello/trackdl/server/internal/metadata"
	"github.com/marcopiovanello/trackdl/server/internal/process"
	middlewares "github.com/marcopiovanello/trackdl/server/middleware"
	"github.com/marcopiovanello/trackdl/server/rest"
	"github.com/marcopiovanello/trackdl/server/status"
	"github.com/marcopiovanello/trackdl/server/updater"
	"golang.org/x/sync/errgroup"
)

type serverConfig struct {
	conf    *config.Config
	runner  process.Runner
	bus     *events.Bus
	monitor *status.Monitor
	logger  *slog.Logger
}

func Run(ctx context.Context, conf *config.Config, logger *slog.Logger) error {
	runner := process.NewExec(logger)

	checkTools(conf, logger)

	if conf.Server.UpdateOnStart {
		if err := updater.UpdateExecutable(ctx, runner, conf.Paths.DownloaderPath, logger); err != nil {
			logger.Warn("failed to update downloader", slog.String("err", err.Error()))
		}
	}

	if err := os.MkdirAll(conf.WorkRoot(), 0o755); err != nil {
		return fmt.Errorf("failed to create work root: %w", err)
	}

	bus := events.NewBus()
	monitor := status.NewMonitor(bus, logger)
	if err := monitor.Start(); err != nil {
		return err
	}

	srv := newServer(serverConfig{
		conf:    conf,
		runner:  runner,
		bus:     bus,
		monitor: monitor,
		logger:  logger,
	})

	var (
		network = "tcp"
		address = fmt.Sprintf("%s:%d", conf.Server.Host, conf.Server.Port)
	)

	// support unix sockets
	if strings.HasPrefix(conf.Server.Host, "/") {
		network = "unix"
		address = conf.Server.Host
	}

	listener, err := net.Listen(network, address)
	if err != nil {
		logger.Error("failed to listen", slog.String("err", err.Error()))
		monitor.Stop()
		return err
	}

	logger.Info("trackdl started", slog.String("address", address))

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := srv.Serve(listener); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		return gracefulShutdown(srv, monitor, conf, logger)
	})

	return g.Wait()
}

func newServer(c serverConfig) *http.Server {
	r := chi.NewRouter()

	corsMiddleware := cors.New(cors.Options{
		AllowedOrigins: c.conf.Server.AllowedOrigins,
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
		},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
	})

	r.Use(corsMiddleware.Handler)
	r.Use(middleware.RequestID)
	r.Use(middlewares.RequestLogger(c.logger))
	r.Use(middleware.Recoverer)

	settings := downloaders.SettingsFromConfig(c.conf)
	prober := metadata.NewProber(c.runner, settings.DownloaderPath, settings.WorkRoot, c.logger)

	// Download and version handlers
	r.Group(rest.ApplyRouter(&rest.ContainerArgs{
		Music:          downloaders.NewMusic(c.runner, prober, c.bus, settings, c.logger),
		Rutube:         downloaders.NewRutube(c.runner, c.bus, settings, c.logger),
		Runner:         c.runner,
		DownloaderPath: settings.DownloaderPath,
		ProcessorPath:  settings.ProcessorPath,
		VersionTimeout: c.conf.Processing.VersionTimeout,
		Logger:         c.logger,
	}))

	// Status
	r.Route("/status", status.ApplyRouter(c.monitor, c.logger))

	return &http.Server{Handler: r}
}

// checkTools only warns: a missing tool fails the requests that need it,
// not the whole server.
func checkTools(conf *config.Config, logger *slog.Logger) {
	for _, tool := range []string{conf.Paths.DownloaderPath, conf.Paths.ProcessorPath} {
		path, err := process.LookPath(tool)
		if err != nil {
			logger.Warn("external tool not found", slog.String("tool", tool), slog.String("err", err.Error()))
			continue
		}
		logger.Info("external tool found", slog.String("tool", tool), slog.String("path", path))
	}
}

func gracefulShutdown(srv *http.Server, monitor *status.Monitor, conf *config.Config, logger *slog.Logger) error {
	logger.Info("shutdown signal received")

	// closes websocket streams, which Shutdown does not wait for
	if err := monitor.Stop(); err != nil {
		logger.Warn("failed to stop status monitor", slog.String("err", err.Error()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
	defer cancel()

	return srv.Shutdown(ctx)
}
