package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/custodia-labs/solana-wallet-middleware/pkg/bot"
	"github.com/custodia-labs/solana-wallet-middleware/pkg/config"
	"github.com/custodia-labs/solana-wallet-middleware/pkg/custody"
	"github.com/custodia-labs/solana-wallet-middleware/pkg/keys"
	"github.com/custodia-labs/solana-wallet-middleware/pkg/solana"
	"github.com/custodia-labs/solana-wallet-middleware/pkg/wallet/service"
	"github.com/custodia-labs/solana-wallet-middleware/pkg/walletstore"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := config.NewLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to setup logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting wallet bot",
		zap.String("config", *configPath),
		zap.String("storage", cfg.Storage.Backend))

	token := os.Getenv(cfg.Telegram.TokenEnv)
	if token == "" {
		logger.Fatal("Bot token is not set", zap.String("env", cfg.Telegram.TokenEnv))
	}

	apiKey := os.Getenv(cfg.Custody.APIKeyEnv)
	if apiKey == "" {
		logger.Fatal("Custody provider API key is not set",
			zap.String("env", cfg.Custody.APIKeyEnv))
	}

	masterKeyB64 := os.Getenv(cfg.KeyManagement.MasterKeyEnv)
	if masterKeyB64 == "" {
		logger.Fatal("Share master key is not set; generate one with `openssl rand -base64 32`",
			zap.String("env", cfg.KeyManagement.MasterKeyEnv))
	}
	masterKey, err := keys.MasterKeyFromBase64(masterKeyB64)
	if err != nil {
		logger.Fatal("Invalid share master key", zap.Error(err))
	}
	cipher, err := keys.NewMasterKeyCipher(masterKey)
	if err != nil {
		logger.Fatal("Failed to initialize share cipher", zap.Error(err))
	}

	store, closeStore, err := walletstore.NewFromConfig(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize registry store", zap.Error(err))
	}
	defer func() { _ = closeStore() }()

	provider, err := custody.NewHTTPClient(cfg.Custody.BaseURL, apiKey,
		custody.WithTimeout(cfg.Custody.RequestTimeout),
		custody.WithLogger(logger))
	if err != nil {
		logger.Fatal("Failed to initialize custody client", zap.Error(err))
	}

	pipeline := solana.NewPipeline(cfg.Solana.RPCURL, provider,
		solana.WithLogger(logger),
		solana.WithConfirmation(cfg.Solana.ConfirmationTimeout, cfg.Solana.ConfirmationPoll))

	svc := service.NewLog(
		service.NewService(store, provider, pipeline, cipher, logger),
		logger)

	dispatcher := bot.NewDispatcher(svc, cfg.Solana.Cluster, logger)
	b, err := bot.New(token, dispatcher, logger,
		bot.WithPollTimeout(cfg.Telegram.PollTimeout),
		bot.WithDebug(cfg.Telegram.Debug))
	if err != nil {
		logger.Fatal("Failed to start bot", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := b.Run(ctx); err != nil {
		logger.Fatal("Bot stopped with error", zap.Error(err))
	}
}
