// Package app wires Kukur's components into one running process: load
// configuration, build the source registry, open the api-key store, start
// the Flight RPC server and the metrics server, and tear everything down
// in reverse order on shutdown. It follows the teacher's internal/app
// package: a New/Start/Stop/Run lifecycle with ordered, nil-checked
// component startup and best-effort, logged-not-returned shutdown.
package app

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"

	"github.com/apache/arrow-go/v18/arrow/flight"

	"github.com/timeseer-ai/kukur-go/internal/apikey"
	"github.com/timeseer-ai/kukur-go/internal/config"
	"github.com/timeseer-ai/kukur-go/internal/facade"
	"github.com/timeseer-ai/kukur-go/internal/metrics"
	"github.com/timeseer-ai/kukur-go/internal/registry"
	"github.com/timeseer-ai/kukur-go/internal/rpc"
)

const component = "app"

// App is the assembled Kukur process: one Flight RPC server, its source
// registry, its api-key store, and a metrics server, plus an optional
// watcher over the api-key database directory's permissions.
type App struct {
	config *config.Config
	logger *logrus.Logger

	registry *registry.Registry
	apiKeys  *apikey.Store
	facade   *facade.Facade

	rpcServer  *rpc.Server
	grpcServer *grpc.Server
	listener   net.Listener
	metricsSrv *metrics.Server
	watcher    *config.Watcher

	configFile string
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
}

// New loads configFile, validates it, opens the api-key store and builds
// the source registry. The returned App is fully wired but not yet
// serving; call Start or Run.
func New(configFile string) (*App, error) {
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return nil, fmt.Errorf("app: load config: %w", err)
	}

	logger := logrus.New()
	level, err := logrus.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	if cfg.Logging.Format == "text" {
		logger.SetFormatter(&logrus.TextFormatter{})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	if cfg.Logging.Path != "" {
		f, err := os.OpenFile(cfg.Logging.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("app: open log file: %w", err)
		}
		logger.SetOutput(f)
	}

	ctx, cancel := context.WithCancel(context.Background())
	a := &App{
		config:     cfg,
		logger:     logger,
		configFile: configFile,
		ctx:        ctx,
		cancel:     cancel,
	}

	if err := a.initializeComponents(); err != nil {
		cancel()
		return nil, fmt.Errorf("app: initialize components: %w", err)
	}

	return a, nil
}

// initializeComponents builds, in order: the data directory, the api-key
// store, the source registry, the facade, the Flight RPC server and its gRPC
// server (the listener is opened later, by Start), the metrics server when
// enabled, and the permission watcher. A failure in any step up to the
// registry aborts the rest; a watcher that cannot start is only logged.
func (a *App) initializeComponents() error {
	if err := os.MkdirAll(a.config.DataDir, 0o700); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	apiKeys, err := apikey.Open(a.config.ApiKeyDatabasePath())
	if err != nil {
		return fmt.Errorf("open api key store: %w", err)
	}
	a.apiKeys = apiKeys

	reg, err := registry.New(a.config.Registry, registry.DefaultFactories(), a.logger)
	if err != nil {
		return fmt.Errorf("build registry: %w", err)
	}
	a.registry = reg
	metrics.SetRegisteredSources(len(reg.Names()))

	a.facade = facade.New(reg, apiKeys)

	var rpcAuthKeys *apikey.Store
	if a.config.Flight.Authentication == "basic" {
		rpcAuthKeys = apiKeys
	}
	a.rpcServer = rpc.NewServer(a.facade, rpcAuthKeys, a.logger)
	a.grpcServer = grpc.NewServer()
	flight.RegisterFlightServiceServer(a.grpcServer, a.rpcServer)

	if a.config.Metrics.Enabled {
		a.metricsSrv = metrics.NewServer(fmt.Sprintf("%s:%d", a.config.Metrics.Host, a.config.Metrics.Port), a.logger)
	}

	watcher, err := config.NewWatcher(a.config.DataDir, a.logger)
	if err != nil {
		a.logger.WithFields(logrus.Fields{"component": component}).WithError(err).Warn("could not start config watcher")
	} else {
		a.watcher = watcher
	}

	return nil
}

// Start opens the flight listener and brings up the metrics server and the
// Flight RPC server. The RPC server runs its accept loop in a goroutine
// tracked by the App's WaitGroup, the way the teacher's own App runs its
// HTTP server. The listener is opened here rather than in
// initializeComponents so that the CLI's non-serve subcommands, which
// build an App but never call Start, never bind the flight port.
func (a *App) Start() error {
	addr := fmt.Sprintf("%s:%d", a.config.Flight.Host, a.config.Flight.Port)
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("app: listen on %s: %w", addr, err)
	}
	a.listener = lis

	if a.metricsSrv != nil {
		a.metricsSrv.Start()
	}

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.logger.WithFields(logrus.Fields{"component": component, "address": a.listener.Addr().String()}).Info("flight server listening")
		if err := a.grpcServer.Serve(a.listener); err != nil {
			a.logger.WithFields(logrus.Fields{"component": component}).WithError(err).Warn("flight server stopped")
		}
	}()

	return nil
}

// Stop shuts every component down in the reverse of Start/initialization
// order. Each step's error is logged, not returned, so one slow or failing
// component never blocks the rest from shutting down.
func (a *App) Stop() error {
	a.cancel()

	a.grpcServer.GracefulStop()

	if a.watcher != nil {
		a.watcher.Stop()
	}

	if a.metricsSrv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := a.metricsSrv.Stop(ctx); err != nil {
			a.logger.WithFields(logrus.Fields{"component": component}).WithError(err).Warn("metrics server shutdown error")
		}
	}

	if a.apiKeys != nil {
		if err := a.apiKeys.Close(); err != nil {
			a.logger.WithFields(logrus.Fields{"component": component}).WithError(err).Warn("api key store close error")
		}
	}

	a.wg.Wait()
	return nil
}

// Run starts the app and blocks until SIGINT or SIGTERM, then stops it.
func (a *App) Run() error {
	if err := a.Start(); err != nil {
		return err
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	a.logger.WithFields(logrus.Fields{"component": component}).Info("shutting down")
	return a.Stop()
}

// Facade exposes the assembled facade, for the CLI's non-serve subcommands
// that want to call into a running set of sources without starting the RPC
// server.
func (a *App) Facade() *facade.Facade {
	return a.facade
}

// ApiKeys exposes the api-key store, for the CLI's api-key subcommands.
func (a *App) ApiKeys() *apikey.Store {
	return a.apiKeys
}

// Close releases the components New opened without calling Start
// (used by the CLI's non-serve subcommands, which never listen).
func (a *App) Close() error {
	a.cancel()
	if a.watcher != nil {
		a.watcher.Stop()
	}
	if a.listener != nil {
		a.listener.Close()
	}
	if a.apiKeys != nil {
		return a.apiKeys.Close()
	}
	return nil
}
