package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	model "ewallet/Model"
	"ewallet/config"
	"ewallet/events"
	"ewallet/metrics"
	"ewallet/outbox"
	pubsub2 "ewallet/pubsub"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func main() {
	var (
		typ         = flag.String("type", "receive", "send or receive")
		tokenID     = flag.String("token", "", "minted token id")
		amount      = flag.String("amount", "", "amount in subunits (empty = consumer decides)")
		display     = flag.String("display-amount", "", "amount in display units, converted with the token's subunit_to_unit")
		address     = flag.String("address", "", "address (empty = primary address)")
		correlation = flag.String("correlation-id", "", "provider order id")
		confirm     = flag.Bool("require-confirmation", false, "requester must confirm each consumption")
		maxUses     = flag.Int("max-consumptions", 0, "max consumptions (0 = unlimited)")
		lifetime    = flag.Int("consumption-lifetime", 0, "consumption lifetime in ms (0 = unset)")
		expires     = flag.Duration("expires-in", 0, "request expiry from now (0 = never)")
		override    = flag.Bool("allow-amount-override", false, "consumer may set the amount")
		getID       = flag.String("get", "", "publish a lookup for this transaction request id instead of creating one")
	)
	flag.Parse()

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// -------------------------------
	// 1) METRICS
	// -------------------------------
	metrics.Register()
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server exited", zap.Error(err))
		}
	}()

	// -------------------------------
	// 2) PUBSUB
	// -------------------------------
	ps, err := pubsub2.NewPubSubClient(ctx, cfg.PubSub.ProjectID, cfg.PubSub.EmulatorHost, logger)
	if err != nil {
		logger.Fatal("failed creating pubsub client", zap.Error(err))
	}
	defer ps.Close()

	if *getID != "" {
		msg := events.TransactionRequestGet{
			RequestID: uuid.NewString(),
			Params:    model.TransactionRequestGetParams{ID: *getID},
		}
		if err := ps.PublishTransactionRequestGet(ctx, msg); err != nil {
			logger.Fatal("publish lookup failed", zap.String("id", *getID), zap.Error(err))
		}
		logger.Info("transaction request lookup published",
			zap.String("request_id", msg.RequestID),
			zap.String("id", *getID))
		return
	}

	// -------------------------------
	// 3) BUILD PARAMS
	// -------------------------------
	if err := checkAmountFlags(*amount, *display); err != nil {
		logger.Fatal("invalid amount flags", zap.Error(err))
	}

	reqType, err := model.ParseTransactionRequestType(*typ)
	if err != nil {
		logger.Fatal("invalid -type", zap.String("type", *typ), zap.Error(err))
	}

	opts := model.TransactionRequestOptions{
		Type:                reqType,
		MintedTokenID:       *tokenID,
		RequireConfirmation: *confirm,
		AllowAmountOverride: *override,
	}
	if *amount != "" {
		v, err := strconv.ParseFloat(*amount, 64)
		if err != nil {
			logger.Fatal("invalid -amount", zap.Error(err))
		}
		opts.Amount = &v
	}
	if *display != "" {
		v, err := displayToSubunits(ctx, cfg, *tokenID, *display)
		if err != nil {
			logger.Fatal("cannot convert -display-amount", zap.Error(err))
		}
		opts.Amount = &v
	}
	if *address != "" {
		opts.Address = address
	}
	if *correlation != "" {
		opts.CorrelationID = correlation
	}
	if *maxUses > 0 {
		opts.MaxConsumptions = maxUses
	}
	if *lifetime > 0 {
		opts.ConsumptionLifetime = lifetime
	}
	if *expires > 0 {
		at := time.Now().UTC().Add(*expires)
		opts.ExpirationDate = &at
	}

	params, err := model.NewTransactionRequestCreateParams(opts)
	if errors.Is(err, model.ErrAmountRequired) {
		logger.Fatal("set -amount or -display-amount, or pass -allow-amount-override")
	}
	if err != nil {
		logger.Fatal("invalid transaction request", zap.Error(err))
	}

	// -------------------------------
	// 4) OUTBOX
	// -------------------------------
	ob := outbox.New()
	requestID, err := ob.Enqueue(params)
	if err != nil {
		logger.Fatal("enqueue failed", zap.Error(err))
	}
	logger.Info("transaction request queued", zap.String("request_id", requestID))

	dispatcher := outbox.NewDispatcher(ob, ps, logger)
	dispatcher.Interval = cfg.Dispatch.Interval
	dispatcher.MaxBatchBytes = cfg.Dispatch.MaxBatchBytes
	dispatcher.Start(ctx)
	defer dispatcher.Stop()

	// -------------------------------
	// 5) WAIT UNTIL SENT
	// -------------------------------
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()
	for ob.Len() > 0 {
		select {
		case <-ctx.Done():
			logger.Warn("interrupted before publish", zap.Int("pending", ob.Len()))
			return
		case <-ticker.C:
		}
	}
	logger.Info("transaction request published", zap.String("request_id", requestID))
}

var errAmountFlagsConflict = errors.New("-amount and -display-amount are mutually exclusive")

func checkAmountFlags(amount, display string) error {
	if amount != "" && display != "" {
		return errAmountFlagsConflict
	}
	return nil
}

// displayToSubunits looks the token up in the shared cache filled by the consumer.
func displayToSubunits(ctx context.Context, cfg *config.Config, tokenID, display string) (float64, error) {
	v, err := strconv.ParseFloat(display, 64)
	if err != nil {
		return 0, err
	}
	if cfg.Redis.Addr == "" {
		return 0, errors.New("REDIS_ADDR is required to look up the token")
	}
	key, err := cfg.Catalog.SealKey()
	if err != nil {
		return 0, err
	}
	cache, err := model.NewRedisTokenCache(cfg.Redis.Addr, cfg.Redis.TTL, key)
	if err != nil {
		return 0, err
	}
	defer cache.Close()

	token, err := cache.Get(ctx, tokenID)
	if err != nil {
		return 0, err
	}
	return token.ToSubunits(v), nil
}
