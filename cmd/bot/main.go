// Package main provides the drop bot entry point.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/big"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/97woo/tgbot/internal/api"
	"github.com/97woo/tgbot/internal/bot"
	"github.com/97woo/tgbot/internal/chain"
	"github.com/97woo/tgbot/internal/config"
	"github.com/97woo/tgbot/internal/drop"
	"github.com/97woo/tgbot/internal/engine"
	"github.com/97woo/tgbot/internal/history"
	"github.com/97woo/tgbot/internal/logging"
	"github.com/97woo/tgbot/internal/state"
	"github.com/97woo/tgbot/internal/store"
	"github.com/97woo/tgbot/internal/telegram"
	"github.com/97woo/tgbot/internal/wallet"
)

func main() {
	fmt.Println("RBTC Drop Bot")

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logLevel := logging.ParseLogLevel(cfg.Logging.Level)
	logFormat := logging.ParseLogFormat(cfg.Logging.Format)
	logging.InitGlobalLogger(logLevel, logFormat)

	logger := logging.GetGlobalLogger()
	logger.WithFields(map[string]interface{}{
		"level":  cfg.Logging.Level,
		"format": cfg.Logging.Format,
	}).Info("Structured logging initialized")

	if cfg.Chain.PrivateKey == "" {
		logger.Fatal("PRIVATE_KEY is required")
	}
	key, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.Chain.PrivateKey, "0x"))
	if err != nil {
		logger.WithError(err).Fatal("Invalid funding wallet private key")
	}
	fundingAddr := crypto.PubkeyToAddress(key.PublicKey)
	logger.WithField("address", fundingAddr.Hex()).Info("Funding wallet loaded")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Persistence backend
	var st store.Store
	switch cfg.Storage.Backend {
	case "redis":
		st, err = store.NewRedisStore(&cfg.Storage.Redis)
	default:
		st, err = store.NewFileStore(cfg.Storage.FilePath)
	}
	if err != nil {
		logger.WithError(err).Fatal("Failed to open document store")
	}
	defer st.Close()
	logger.WithField("backend", cfg.Storage.Backend).Info("Document store opened")

	// Tracker state, hydrated from the store
	directory, err := wallet.NewDirectory(ctx, st)
	if err != nil {
		logger.WithError(err).Fatal("Failed to load wallet directory")
	}
	blacklist, err := state.NewBlacklist(ctx, st, cfg.Drop.BlacklistedIDs)
	if err != nil {
		logger.WithError(err).Fatal("Failed to load blacklist")
	}
	cooldown, err := state.NewCooldownClock(ctx, st)
	if err != nil {
		logger.WithError(err).Fatal("Failed to load cooldown state")
	}
	roundRobin, err := state.NewRoundRobinTracker(ctx, st)
	if err != nil {
		logger.WithError(err).Fatal("Failed to load round-robin state")
	}
	ledger, err := state.NewSpendLedger(ctx, st)
	if err != nil {
		logger.WithError(err).Fatal("Failed to load spend ledger")
	}
	dropHistory, err := state.NewDropHistory(ctx, st)
	if err != nil {
		logger.WithError(err).Fatal("Failed to load drop history")
	}
	notices, err := state.NewNoticeLog(ctx, st)
	if err != nil {
		logger.WithError(err).Fatal("Failed to load notice log")
	}

	// Chain client and dispatcher
	ethClient, err := chain.Dial(ctx, cfg.Chain.RPCURL)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to RPC node")
	}
	defer ethClient.Close()
	logger.WithFields(map[string]interface{}{
		"rpc":     cfg.Chain.RPCURL,
		"chainId": cfg.Chain.ChainID,
	}).Info("Chain client connected")

	estimator := chain.NewFeeEstimator(
		ethClient,
		fundingAddr,
		cfg.Dispatch.GasFloor,
		cfg.Dispatch.GasMarginPercent,
		cfg.Dispatch.GasCeiling,
		cfg.Chain.RPCTimeout,
	)
	dispatcher, err := chain.NewDispatcher(ethClient, estimator, cfg.Chain.PrivateKey, chain.Config{
		ChainID:           cfg.Chain.ChainID,
		InnerAttempts:     cfg.Dispatch.InnerAttempts,
		InnerDelay:        cfg.Dispatch.InnerDelay,
		OverMinPercent:    cfg.Dispatch.OverMinPercent,
		PriceIncrementWei: cfg.Dispatch.PriceIncrementWei,
		RPCTimeout:        cfg.Chain.RPCTimeout,
	})
	if err != nil {
		logger.WithError(err).Fatal("Failed to create dispatcher")
	}

	// Telegram transport
	tgClient := telegram.NewClient(cfg.Telegram.BotToken)
	notifier := telegram.NewNotifier(tgClient)
	population := telegram.NewPopulationCounter(tgClient)

	eng := engine.New(engine.Config{
		Probability:   cfg.Drop.Probability,
		AmountWei:     cfg.Drop.AmountWei,
		DailyCapWei:   cfg.Drop.DailyCapWei,
		DustWei:       cfg.Drop.DustWei,
		Cooldown:      cfg.Drop.Cooldown,
		MinMessageLen: cfg.Drop.MinMessageLen,
		MinPopulation: cfg.Drop.MinPopulation,
		RolloverHour:  cfg.Drop.RolloverHour,
	}, directory, blacklist, cooldown, roundRobin, ledger, notices, population, notifier)

	// Optional Postgres reporting sink
	var sink drop.HistorySink
	var counter bot.DropCounter
	if cfg.Storage.Postgres.Host != "" {
		pgSink, err := history.NewPostgresSink(&cfg.Storage.Postgres)
		if err != nil {
			logger.WithError(err).Fatal("Failed to connect to Postgres")
		}
		defer pgSink.Close()
		sink = pgSink
		counter = pgSink
		logger.Info("Postgres history sink enabled")
	}

	coordinator := drop.NewCoordinator(
		eng,
		dispatcher,
		ledger,
		cooldown,
		roundRobin,
		dropHistory,
		sink,
		notifier,
		drop.Config{
			OuterAttempts: cfg.Dispatch.OuterAttempts,
			OuterDelay:    cfg.Dispatch.OuterDelay,
			ExplorerURL:   cfg.Chain.ExplorerURL,
			DailyCapWei:   cfg.Drop.DailyCapWei,
			DustWei:       cfg.Drop.DustWei,
		},
	)

	balanceReader := func(ctx context.Context) (*big.Int, error) {
		callCtx, cancel := context.WithTimeout(ctx, cfg.Chain.RPCTimeout)
		defer cancel()
		return ethClient.BalanceAt(callCtx, fundingAddr, nil)
	}

	b := bot.New(tgClient, coordinator, directory, ledger, dropHistory, blacklist, balanceReader, counter, bot.Config{
		Cooldown:     cfg.Drop.Cooldown,
		DailyCapWei:  cfg.Drop.DailyCapWei,
		AmountWei:    cfg.Drop.AmountWei,
		RolloverHour: cfg.Drop.RolloverHour,
		PollTimeout:  cfg.Telegram.PollTimeout,
		AdminUserID:  cfg.Telegram.AdminUserID,
	})

	server := api.NewServer(&api.ServerConfig{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		RolloverHour: cfg.Drop.RolloverHour,
		DailyCapWei:  cfg.Drop.DailyCapWei,
	}, directory, ledger, dropHistory)

	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Error("Operational server stopped")
		}
	}()

	logger.Info("Bot starting")
	if err := b.Run(ctx); err != nil && ctx.Err() == nil {
		logger.WithError(err).Error("Bot stopped with error")
	}

	logger.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Operational server forced to shut down")
	}
	logger.Info("Bot exited")
}
