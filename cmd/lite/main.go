// Command lite serves the read-only API directly from ClickHouse without the
// collection pipeline, Kafka, or the Echo stack. Intended for replicas that
// only answer incident and prediction queries.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"Noesis/internal/di"
	"Noesis/internal/handler/api"
	icache "Noesis/internal/service/cache"
	"Noesis/pkg/config"
	applogger "Noesis/pkg/logger"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "config file path")
	flag.Parse()

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	l, err := di.ProvideLogger(cfg)
	if err != nil {
		log.Fatalf("logger init failed: %v", err)
	}

	chClient, err := di.ProvideClickHouseClient(cfg)
	if err != nil {
		log.Fatalf("clickhouse init failed: %v", err)
	}
	defer chClient.Close()

	store := di.ProvideIncidentStore(chClient, cfg)
	risk := di.ProvideRiskPrediction(cfg)

	h := api.NewIncidentsHandler(store, risk)
	h.SetLogger(l)
	if cfg.Geocoding.Redis.Enabled {
		h.SetCache(icache.NewRedisCache(icache.RedisConfig{
			Addr:     fmt.Sprintf("%s:%d", cfg.Geocoding.Redis.Host, cfg.Geocoding.Redis.Port),
			Password: cfg.Geocoding.Redis.Password,
			DB:       cfg.Geocoding.Redis.DB,
		}))
	} else {
		h.SetCache(icache.NewTTLCache())
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/incidents", h.Incidents())
	mux.HandleFunc("/api/predictions", h.Predictions())
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      mux,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		l.Info("lite api listening", applogger.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			l.Error("lite api error", applogger.Error(err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		l.Warn("lite api shutdown error", applogger.Error(err))
	}
}
