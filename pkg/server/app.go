package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"LoanServe/internal/handler/api"
	"LoanServe/internal/handler/ws"
	pkgcache "LoanServe/pkg/cache"
	pkgch "LoanServe/pkg/clickhouse"
	"LoanServe/pkg/config"
	xhttp "LoanServe/pkg/http"
	pkgkafka "LoanServe/pkg/kafka"
	applogger "LoanServe/pkg/logger"
)

// App encapsulates the service lifecycle: the HTTP server, the live feed hub
// and the infrastructure clients that need orderly shutdown.
type App struct {
	cfg        *config.Config
	logger     *applogger.Logger
	handler    *api.PredictEchoHandler
	feed       *ws.Feed
	chClient   *pkgch.Client
	producer   *pkgkafka.Producer
	cache      pkgcache.Service
	httpServer *xhttp.Server
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	logger *applogger.Logger,
	handler *api.PredictEchoHandler,
	feed *ws.Feed,
	chClient *pkgch.Client,
	producer *pkgkafka.Producer,
	cache pkgcache.Service,
) *App {
	return &App{
		cfg:      cfg,
		logger:   logger,
		handler:  handler,
		feed:     feed,
		chClient: chClient,
		producer: producer,
		cache:    cache,
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if a.feed != nil {
		go a.feed.Run()
		a.logger.Info("prediction feed started")
	}

	a.httpServer = xhttp.NewServer(a.handler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
	)
	if err := a.httpServer.Start(); err != nil {
		a.logger.Error("http server start error", applogger.Error(err))
		return err
	}
	a.logger.Info("http server started", applogger.Int("port", a.cfg.Server.Port))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.logger.Info("shutdown signal received")
	return a.shutdown(ctx)
}

// shutdown gracefully stops the server and closes infrastructure clients.
func (a *App) shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.logger.Error("http shutdown error", applogger.Error(err))
	}

	if a.feed != nil {
		a.feed.Stop()
	}

	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Warn("kafka producer close error", applogger.Error(err))
		}
	}

	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			a.logger.Warn("clickhouse close error", applogger.Error(err))
		}
	}

	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.logger.Warn("cache close error", applogger.Error(err))
		}
	}

	a.logger.Info("shutdown complete")
	return nil
}
