package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"

	"gungnir/internal/api"
	"gungnir/internal/config"
	"gungnir/internal/engine"
	"gungnir/internal/stop"
	"gungnir/internal/store"
	"gungnir/internal/trades"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to the config file")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(
		context.Background(),
		syscall.SIGTERM,
		syscall.SIGINT,
	)
	defer cancel()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("unable to load config")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}
	setupLogging(cfg.Logging)

	recorder, err := trades.Open(cfg.Trades.LogPath, cfg.Fees.MakerRate, cfg.Fees.TakerRate, cfg.Trades.RecentCapacity)
	if err != nil {
		log.Fatal().Err(err).Msg("unable to open trade log")
	}

	eng := engine.New(recorder, cfg.Book.PricePrecision, cfg.Book.DepthLevels)
	watcher := stop.NewWatcher(eng, cfg.Stop.MonitorInterval)
	srv := api.New(cfg.Server.ListenAddr, eng, watcher, recorder)

	st, err := store.Open(cfg.Store.DataDir)
	if err != nil {
		log.Fatal().Err(err).Msg("unable to open order book store")
	}
	// Restore before the reporter is wired so replayed orders do not
	// broadcast as live market data.
	st.LoadBooks(eng)
	eng.SetReporter(srv)

	t, ctx := tomb.WithContext(ctx)
	t.Go(func() error {
		return watcher.Run(t)
	})
	t.Go(func() error {
		return srv.Run(t)
	})

	<-ctx.Done()
	log.Info().Msg("shutting down")
	t.Kill(nil)
	if err := t.Wait(); err != nil {
		log.Error().Err(err).Msg("error during shutdown")
	}

	st.SaveBooks(eng)
	if err := recorder.Close(); err != nil {
		log.Error().Err(err).Msg("unable to close trade log")
	}
}

func setupLogging(cfg config.LoggingConfig) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if cfg.Format == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}
