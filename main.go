package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	appconfig "canonflow/config"
	"canonflow/internal/canonical"
	"canonflow/internal/channel"
	"canonflow/internal/dashboard"
	"canonflow/internal/feed"
	"canonflow/internal/fetch"
	"canonflow/internal/normalizer"
	"canonflow/internal/orderbook"
	"canonflow/internal/pipeline"
	"canonflow/internal/publish"
	"canonflow/logger"
)

func main() {
	log := logger.GetLogger()

	// Load environment variables from .env if present
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warn("Error loading .env file")
	}

	configPath := flag.String("config", "config/config.yml", "Path to configuration file")
	flag.Parse()

	cfg, err := appconfig.LoadConfig(*configPath)
	if err != nil {
		log.WithError(err).Error("Failed to load configuration")
		os.Exit(1)
	}

	if err := log.Configure(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output, cfg.Logging.MaxAge); err != nil {
		log.WithError(err).Error("Failed to configure logger")
		os.Exit(1)
	}

	log.WithFields(logger.Fields{
		"service": cfg.Canonflow.Name,
		"version": cfg.Canonflow.Version,
	}).Info("starting canonflow")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if strings.ToLower(cfg.Logging.Level) == "report" {
		logger.StartReport(ctx, log, 30*time.Second)
	}

	channels := channel.NewChannels(cfg.Channels.RawBuffer, cfg.Channels.RecordBuffer)
	defer channels.Close()

	var publisher publish.Publisher
	if cfg.Kafka.Enabled {
		publisher, err = publish.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			log.WithError(err).Error("failed to create kafka publisher")
			os.Exit(1)
		}
	} else {
		log.WithComponent("main").Info("kafka disabled; records stay in memory")
		publisher = publish.NewMemoryPublisher()
	}

	// One snapshot source per venue, routed through a single fetcher so the
	// book manager stays exchange-agnostic.
	fetchers := fetch.NewMultiFetcher()
	for name, src := range cfg.Exchanges() {
		f, err := fetch.NewFetcher(name, src.RestURL, src.SnapshotLimit)
		if err != nil {
			log.WithComponent("main").WithFields(logger.Fields{"exchange": name}).Debug(err.Error())
			continue
		}
		fetchers.Register(name, f)
	}

	books := orderbook.NewManager(ctx, orderbook.Options{
		PublishDepth:   cfg.Orderbook.PublishDepth,
		ChecksumLevels: cfg.Orderbook.ChecksumLevels,
		BufferLimit:    cfg.Orderbook.BufferLimit,
		Resync: orderbook.ResyncPolicy{
			MinDelay:    cfg.Orderbook.Resync.MinDelay,
			MaxDelay:    cfg.Orderbook.Resync.MaxDelay,
			MaxFailures: cfg.Orderbook.Resync.MaxFailures,
		},
	}, fetchers, func(rec canonical.Record) {
		channels.SendRecord(ctx, rec)
	})
	defer books.CloseAll()

	registry := normalizer.NewRegistry()
	proc := pipeline.NewProcessor(cfg, channels, registry, books, publisher)
	if err := proc.Start(ctx); err != nil {
		log.WithError(err).Error("failed to start processor")
		os.Exit(1)
	}

	feeds := buildFeeds(cfg, channels)
	for _, f := range feeds {
		if err := f.Start(ctx); err != nil {
			log.WithError(err).Warn("feed failed to start")
		}
	}

	dash := dashboard.NewServer(cfg.Dashboard, books, channels)
	if err := dash.Start(ctx); err != nil {
		log.WithError(err).Warn("dashboard failed to start")
	}

	log.Info("all components started successfully")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	log.WithFields(logger.Fields{"signal": sig.String()}).Info("shutdown signal received")

	log.Info("starting graceful shutdown")
	cancel()

	for _, f := range feeds {
		f.Stop()
	}
	proc.Stop()
	dash.Stop()
	books.CloseAll()
	if err := publisher.Close(); err != nil {
		log.WithError(err).Warn("failed to close publisher")
	}

	log.Info("canonflow stopped")
}

// buildFeeds wires one websocket feed per enabled venue.
func buildFeeds(cfg *appconfig.Config, channels *channel.Channels) []*feed.Feed {
	adapters := map[string]feed.Adapter{
		"binance": feed.NewBinanceAdapter(),
		"okx":     feed.NewOkxAdapter(),
		"bybit":   feed.NewBybitAdapter(),
		"kucoin":  feed.NewKucoinAdapter(),
		"deribit": feed.NewDeribitAdapter(),
	}

	feeds := make([]*feed.Feed, 0, len(adapters))
	for name, src := range cfg.Exchanges() {
		adapter, ok := adapters[name]
		if !ok {
			continue
		}
		feeds = append(feeds, feed.NewFeed(
			adapter,
			src.WsURL,
			src.MarketType,
			src.Symbols,
			src.Channels,
			channels,
			src.ReconnectDelay,
		))
	}
	return feeds
}
