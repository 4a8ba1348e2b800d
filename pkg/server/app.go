package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"Noesis/internal/usecase"
	pkgch "Noesis/pkg/clickhouse"
	"Noesis/pkg/config"
	xhttp "Noesis/pkg/http"
	pkgkafka "Noesis/pkg/kafka"
	applogger "Noesis/pkg/logger"
	"Noesis/pkg/queue"
)

const defaultCollectionInterval = 5 * time.Minute

// App encapsulates the entire application lifecycle.
type App struct {
	cfg         *config.Config
	log         *applogger.Logger
	cycle       *usecase.Cycle
	stream      *usecase.StreamCollector
	consumer    *pkgkafka.Consumer
	kh          *usecase.KafkaSignalsHandler
	jobQueue    *queue.RedisQueue
	chClient    *pkgch.Client
	httpServer  *xhttp.Server
	httpHandler xhttp.Handler
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	log *applogger.Logger,
	cycle *usecase.Cycle,
	stream *usecase.StreamCollector,
	consumer *pkgkafka.Consumer,
	kh *usecase.KafkaSignalsHandler,
	jobQueue *queue.RedisQueue,
	chClient *pkgch.Client,
) *App {
	return &App{
		cfg:      cfg,
		log:      log,
		cycle:    cycle,
		stream:   stream,
		consumer: consumer,
		kh:       kh,
		jobQueue: jobQueue,
		chClient: chClient,
	}
}

// SetHTTPHandler allows DI to inject an HTTP handler.
func (a *App) SetHTTPHandler(h xhttp.Handler) { a.httpHandler = h }

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a.httpServer = xhttp.NewServer(a.httpHandler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
	)

	// Periodic collection. The first cycle runs immediately so a fresh
	// deployment has data before the first tick.
	interval := a.cfg.Collection.Interval
	if interval <= 0 {
		interval = defaultCollectionInterval
	}
	go a.collectLoop(ctx, interval)
	a.log.Info("collection loop started", applogger.Duration("interval", interval))

	// Start live sensor stream if configured
	if a.stream != nil {
		if err := a.stream.Start(ctx); err != nil {
			a.log.Error("sensor stream start error", applogger.Error(err))
		} else {
			a.log.Info("sensor stream started", applogger.Strings("regions", a.cfg.SensorGrid.Regions))
		}
	}

	// Start consumer if configured
	if a.consumer != nil && a.kh != nil {
		a.consumer.RegisterHandler(a.kh)
		go func() {
			if err := a.consumer.Start(); err != nil {
				a.log.Error("kafka consumer error", applogger.Error(err))
			}
		}()
		a.log.Info("kafka consumer started", applogger.String("topic", a.kh.Topic()))
	}

	// Start job queue if configured
	if a.jobQueue != nil {
		if err := a.jobQueue.Start(); err != nil {
			a.log.Error("job queue start error", applogger.Error(err))
		} else {
			a.log.Info("job queue started")
		}
	}

	// Start HTTP server
	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start error", applogger.Error(err))
		return err
	}

	// Wait for interrupt
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.log.Info("shutdown signal received")
	return a.shutdown(ctx)
}

func (a *App) collectLoop(ctx context.Context, interval time.Duration) {
	run := func() {
		result, err := a.cycle.Run(ctx)
		if err != nil {
			a.log.Error("collection cycle error", applogger.Error(err))
			return
		}
		a.log.Info("pipeline cycle finished",
			applogger.Int("signals", result.Tally.Total),
			applogger.Int("incidents", len(result.Incidents)),
			applogger.Int("alerted", result.Alerted))
	}

	run()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			run()
		}
	}
}

// shutdown gracefully stops all services.
func (a *App) shutdown(ctx context.Context) error {
	a.log.Info("shutting down...")

	// Stop live stream (pipeline + websocket)
	if a.stream != nil {
		if err := a.stream.Shutdown(ctx); err != nil {
			a.log.Warn("sensor stream stop error", applogger.Error(err))
		}
	}

	// Shutdown HTTP server
	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
	}

	// Stop job queue
	if a.jobQueue != nil {
		if err := a.jobQueue.Stop(ctx); err != nil {
			a.log.Warn("job queue stop error", applogger.Error(err))
		}
	}

	// Stop consumer before flushing so no new batches arrive mid-flush
	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			a.log.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}
	if a.kh != nil {
		if err := a.kh.Flush(shutdownCtx); err != nil {
			a.log.Warn("signal buffer flush error", applogger.Error(err))
		}
	}

	// Close infrastructure clients
	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			a.log.Warn("clickhouse close error", applogger.Error(err))
		}
	}

	a.log.Info("shutdown complete")
	return nil
}
