package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"
	"translator/internal/api"
	"translator/internal/config"
	"translator/internal/logger"
	"translator/internal/models"
	"translator/internal/notify"
	"translator/internal/observability"
	"translator/internal/quota"
	"translator/internal/session"
	"translator/internal/storage"
	"translator/internal/translate"
	"translator/internal/version"

	"golang.org/x/sync/errgroup"
)

var (
	configFile    = flag.String("config", "", "Path to configuration file")
	exampleConfig = flag.String("example-config", "", "Write an example configuration file to this path and exit")
	showVersion   = flag.Bool("version", false, "Print version information and exit")
)

func main() {
	flag.Parse()
	ver := version.GetInfo()

	if *showVersion {
		fmt.Println(ver.String())
		return
	}

	if *exampleConfig != "" {
		if err := config.SaveExample(*exampleConfig); err != nil {
			slog.Error("Failed to write example configuration", "error", err)
			os.Exit(1)
		}
		fmt.Printf("Example configuration written to %s\n", *exampleConfig)
		return
	}

	if err := run(ver); err != nil {
		slog.Error("Agent stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(ver version.Info) error {
	// Load configuration
	cfg, err := config.Load(*configFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Initialize structured logging
	log, closer, err := logger.Setup(cfg.Logging, ver)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	if closer != nil {
		defer closer.Close()
	}
	slog.SetDefault(log)

	// Initialize observability (OpenTelemetry)
	otelProvider, err := observability.Setup(cfg.Metrics, cfg.Observability, ver)
	if err != nil {
		return fmt.Errorf("failed to initialize observability: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := otelProvider.Shutdown(shutdownCtx); err != nil {
			slog.Error("Failed to shutdown observability", "error", err)
		}
	}()

	// Initialize the quota state store
	store, err := initializeStorage(cfg, otelProvider)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer store.Close()

	// Initialize the signed-in session
	sessions, err := session.New(cfg.Session)
	if err != nil {
		return fmt.Errorf("failed to initialize session: %w", err)
	}

	backendClient := &http.Client{Timeout: cfg.Backend.Timeout}
	dispatcher := initializeNotifications(cfg, backendClient, sessions, ver)

	recorder, err := observability.NewQuotaMetrics(otelProvider.MeterProvider())
	if err != nil {
		return fmt.Errorf("failed to create quota metrics: %w", err)
	}

	controller, err := quota.NewController(
		quota.Config{
			Limit:    cfg.Quota.Limit,
			Window:   cfg.Quota.Window,
			StateKey: cfg.Quota.StateKey,
		},
		store, sessions, dispatcher,
		quota.WithLogger(slog.Default()),
		quota.WithRecorder(recorder),
		quota.WithDispatchTimeout(cfg.Notifications.DispatchTimeout),
		quota.WithRestoredNotification(cfg.Notifications.RestoredTitle, cfg.Notifications.RestoredBody),
	)
	if err != nil {
		return fmt.Errorf("failed to create quota controller: %w", err)
	}
	defer controller.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	controller.Load(ctx)

	service := translate.NewService(sessions, controller,
		translate.NewClient(cfg.Backend.BaseURL, backendClient, ver.UserAgent()))
	handlers := api.NewHandlers(service, store, ver)

	var routeOpts []api.RouteOption
	if cfg.Observability.Tracing.Enabled {
		routeOpts = append(routeOpts, api.WithOTelMiddleware(cfg.Observability.ServiceName, otelProvider.TracerProvider()))
	}
	router := api.SetupRoutes(handlers, routeOpts...)

	server := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port)),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("Starting server", "addr", server.Addr, "version", ver.Version)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})

	var metricsServer *observability.MetricsServer
	if cfg.Metrics.Enabled {
		metricsServer = observability.NewMetricsServer(cfg.Server.Host, cfg.Metrics.Port, cfg.Metrics.Path, otelProvider)
		g.Go(func() error {
			if err := metricsServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server failed: %w", err)
			}
			return nil
		})
	}

	if fileSession, ok := sessions.(*session.FileSession); ok && cfg.Session.Watch {
		g.Go(func() error {
			// Without the watcher the session file is read on every call.
			if err := fileSession.Watch(gctx); err != nil {
				slog.Warn("Session watcher stopped", "error", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("Shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if metricsServer != nil {
			if err := metricsServer.Shutdown(shutdownCtx); err != nil {
				slog.Error("Metrics server forced to shutdown", "error", err)
			}
		}
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server forced to shutdown", "error", err)
		}
		return nil
	})

	err = g.Wait()
	slog.Info("Server shutdown complete")
	return err
}

// initializeStorage creates the configured store, instrumented when tracing
// or metrics are on.
func initializeStorage(cfg *models.Config, otelProvider *observability.Provider) (storage.Store, error) {
	store, err := storage.NewFactory().Create(cfg.Storage)
	if err != nil {
		return nil, err
	}

	if !cfg.Metrics.Enabled && !cfg.Observability.Tracing.Enabled {
		return store, nil
	}

	instrumented, err := observability.NewInstrumentedStore(store, cfg.Storage.Type,
		otelProvider.TracerProvider(), otelProvider.MeterProvider())
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to create instrumented storage: %w", err)
	}
	return instrumented, nil
}

// initializeNotifications builds the dispatcher. Remote escalation is left
// out entirely when disabled.
func initializeNotifications(cfg *models.Config, client *http.Client, sessions session.Provider, ver version.Info) *notify.Dispatcher {
	local := notify.NewInboxNotifier(cfg.Notifications.InboxPath)
	if !cfg.Notifications.RemoteEnabled {
		return notify.NewDispatcher(local, nil)
	}

	remote := notify.NewRemoteNotifier(cfg.Backend.BaseURL, client, sessions,
		cfg.Notifications.RemotePerMinute, ver.UserAgent())
	return notify.NewDispatcher(local, remote)
}
