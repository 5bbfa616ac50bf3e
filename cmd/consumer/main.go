package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	model "ewallet/Model"
	"ewallet/config"
	"ewallet/metrics"
	pubsub2 "ewallet/pubsub"
	"ewallet/storage"
	subscriber "ewallet/subscriber"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics.Register()
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server exited", zap.Error(err))
		}
	}()

	// ----------------------------------------------------
	// 1) CATALOG (badger + optional redis)
	// ----------------------------------------------------
	sealKey, err := cfg.Catalog.SealKey()
	if err != nil {
		logger.Fatal("invalid catalog config", zap.Error(err))
	}

	db, err := storage.OpenBadger(cfg.Catalog.BadgerPath)
	if err != nil {
		logger.Fatal("open badger failed", zap.String("path", cfg.Catalog.BadgerPath), zap.Error(err))
	}
	defer db.Close()

	store, err := model.NewBadgerTokenStore(db, sealKey)
	if err != nil {
		logger.Fatal("token store", zap.Error(err))
	}

	var cache model.TokenProvider
	if cfg.Redis.Addr != "" {
		rc, err := model.NewRedisTokenCache(cfg.Redis.Addr, cfg.Redis.TTL, sealKey)
		if err != nil {
			logger.Fatal("token cache", zap.Error(err))
		}
		defer rc.Close()
		if err := rc.Ping(ctx); err != nil {
			logger.Fatal("redis unreachable", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		}
		cache = rc
	}

	catalog := model.NewTokenCatalog(store, cache, logger)

	tokens, err := catalog.List(ctx)
	if err != nil {
		logger.Fatal("load catalog failed", zap.Error(err))
	}
	logger.Info("catalog loaded", zap.Int("tokens", len(tokens)))

	// ----------------------------------------------------
	// 2) SUBSCRIBE
	// ----------------------------------------------------
	ps, err := pubsub2.NewPubSubClient(ctx, cfg.PubSub.ProjectID, cfg.PubSub.EmulatorHost, logger)
	if err != nil {
		logger.Fatal("failed creating pubsub client", zap.Error(err))
	}
	defer ps.Close()

	sub, err := ps.EnsureSubscription(ctx, pubsub2.TopicMintedTokenUpdated, cfg.PubSub.Subscription)
	if err != nil {
		logger.Fatal("subscription setup failed", zap.Error(err))
	}
	logger.Info("consuming minted token updates",
		zap.String("topic", pubsub2.TopicMintedTokenUpdated),
		zap.String("subscription", cfg.PubSub.Subscription))

	if err := subscriber.SubscribeMintedTokens(ctx, sub, catalog, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("subscription ended", zap.Error(err))
	}
}
