package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/adwski/watchparty/backend/config"
	"github.com/adwski/watchparty/backend/metrics"
	httpServer "github.com/adwski/watchparty/backend/server/http"
	websocketServer "github.com/adwski/watchparty/backend/server/websocket"
	"github.com/adwski/watchparty/backend/service"
	store "github.com/adwski/watchparty/backend/storage/memory"
	sw "github.com/adwski/watchparty/backend/switch"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	lvl, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to parse loglevel")
	}
	logger = logger.Level(lvl)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	registry := store.NewMemStore()
	hub := service.NewHub(service.Config{
		Registry: registry,
		Switch: sw.NewSwitch(sw.Config{
			Logger:        &logger,
			DeadEndpoints: m.DeadEndpoints,
		}),
		Metrics:   m,
		Logger:    &logger,
		InboxSize: cfg.InboxSize,
	})
	httpSrv := httpServer.NewServer(httpServer.Config{
		Logger:          &logger,
		PresenceService: registry,
		Gatherer:        reg,
		ListenAddr:      cfg.APIListenAddr,
	})
	wsSrv := websocketServer.NewServer(websocketServer.Config{
		Logger:         &logger,
		SessionService: hub,
		ListenAddr:     cfg.WSListenAddr,
		OutboxSize:     cfg.OutboxSize,
	})

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var (
		wg   = &sync.WaitGroup{}
		errc = make(chan error, 2)
	)
	wg.Add(3)
	go hub.Run(ctx, wg)
	go httpSrv.Run(ctx, wg, errc)
	go wsSrv.Run(ctx, wg, errc)

	select {
	case err = <-errc:
		logger.Error().Err(err).Msg("unexpected server error, shutting down")
	case <-ctx.Done():
		logger.Warn().Msg("interrupted")
	}
	cancel()
	wg.Wait()
}
