package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"PriceCast/internal/domain/repository"
	"PriceCast/internal/usecase"
	"PriceCast/pkg/config"
	xhttp "PriceCast/pkg/http"
	applogger "PriceCast/pkg/logger"
	"PriceCast/pkg/objstore"
)

// Run modes.
const (
	ModeServe    = "serve"    // HTTP API plus live tick ingest
	ModeIngest   = "ingest"   // live tick ingest only
	ModeForecast = "forecast" // one rolling forecast run, then exit
)

// App owns the application lifecycle for every run mode.
type App struct {
	cfg       *config.Config
	logger    *applogger.Logger
	collector *usecase.Collector
	pipeline  *usecase.Pipeline
	handler   xhttp.Handler
	ticks     repository.TickStore
	publisher repository.Publisher
	store     objstore.Store

	httpServer *xhttp.Server
}

// New creates an App with all dependencies injected.
func New(
	cfg *config.Config,
	log *applogger.Logger,
	collector *usecase.Collector,
	pipeline *usecase.Pipeline,
	handler xhttp.Handler,
	ticks repository.TickStore,
	publisher repository.Publisher,
	store objstore.Store,
) *App {
	return &App{
		cfg:       cfg,
		logger:    log,
		collector: collector,
		pipeline:  pipeline,
		handler:   handler,
		ticks:     ticks,
		publisher: publisher,
		store:     store,
	}
}

// Run executes the requested mode and blocks until it finishes.
func (a *App) Run(mode string) error {
	switch mode {
	case ModeServe:
		return a.runServe()
	case ModeIngest:
		return a.runIngest()
	case ModeForecast:
		return a.runForecast()
	default:
		return fmt.Errorf("unknown run mode %q", mode)
	}
}

func (a *App) runServe() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a.httpServer = xhttp.NewServer(a.handler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
	)

	go a.collect(ctx)

	if err := a.httpServer.Start(); err != nil {
		return fmt.Errorf("http server start: %w", err)
	}
	a.logger.Info("serving",
		applogger.Int("port", a.cfg.Server.Port),
		applogger.Strings("symbols", a.cfg.Exchange.Symbols))

	a.waitForSignal()
	cancel()
	return a.shutdown()
}

func (a *App) runIngest() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go a.collect(ctx)
	a.logger.Info("ingesting", applogger.Strings("symbols", a.cfg.Exchange.Symbols))

	a.waitForSignal()
	cancel()
	return a.shutdown()
}

func (a *App) runForecast() error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	defer a.closeResources()

	report, err := a.pipeline.Run(ctx)
	if err != nil {
		return fmt.Errorf("forecast run: %w", err)
	}

	for _, outcome := range report.Outcomes {
		if outcome.Err != nil {
			a.logger.Warn("window failed",
				applogger.Int("window", outcome.Index),
				applogger.Error(outcome.Err))
			continue
		}
		a.logger.Info("window forecast",
			applogger.Int("window", outcome.Index),
			applogger.Time("start", outcome.Result.Start),
			applogger.Int("steps", outcome.Result.Length))
	}
	a.logger.Info("forecast run complete",
		applogger.String("report", report.ReportPath),
		applogger.Int("rows", len(report.Table.Rows)))
	return nil
}

func (a *App) collect(ctx context.Context) {
	if a.collector == nil {
		return
	}
	if err := a.collector.Run(ctx); err != nil && ctx.Err() == nil {
		a.logger.Error("collector stopped", applogger.Error(err))
	}
}

func (a *App) waitForSignal() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh
	a.logger.Info("shutdown signal received")
}

func (a *App) shutdown() error {
	if a.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := a.httpServer.Stop(ctx); err != nil {
			a.logger.Error("http shutdown error", applogger.Error(err))
		}
	}
	a.closeResources()
	a.logger.Info("shutdown complete")
	return nil
}

func (a *App) closeResources() {
	if a.ticks != nil {
		if err := a.ticks.Close(); err != nil {
			a.logger.Warn("tick store close error", applogger.Error(err))
		}
	}
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.logger.Warn("publisher close error", applogger.Error(err))
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Warn("object store close error", applogger.Error(err))
		}
	}
}
