package main

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/NEAR-DevHub/near-treasury-sub001/internal/bulkimport"
	"github.com/NEAR-DevHub/near-treasury-sub001/internal/credits"
	"github.com/NEAR-DevHub/near-treasury-sub001/internal/graceful"
	"github.com/NEAR-DevHub/near-treasury-sub001/internal/kvstore"
	"github.com/NEAR-DevHub/near-treasury-sub001/internal/logging"
	"github.com/NEAR-DevHub/near-treasury-sub001/internal/metrics"
	"github.com/NEAR-DevHub/near-treasury-sub001/internal/nearrpc"
	"github.com/NEAR-DevHub/near-treasury-sub001/internal/server"
	"github.com/NEAR-DevHub/near-treasury-sub001/internal/token"
	"github.com/NEAR-DevHub/near-treasury-sub001/internal/wallet"
)

func main() {
	cfg, err := newConfig()
	if err != nil {
		logrus.Fatalf("failed to load config: %v", err)
	}

	logger := logging.NewLogger(cfg.LogFormat)

	ctx, cancel := graceful.Context(context.Background(), logger)
	defer cancel()

	metricsServer := metrics.StartMetricsServer(cfg.Metrics, []string{metrics.ServiceHTTP, metrics.ServiceImport}, logger)
	defer func() {
		if metricsServer != nil {
			if err := metricsServer.Stop(ctx); err != nil {
				logger.Errorf("failed to stop metrics server: %v", err)
			}
		}
	}()

	prefs, err := newPreferenceStore(cfg, logger)
	if err != nil {
		logger.Fatalf("failed to initialize preference store: %v", err)
	}

	rpc := nearrpc.NewClient(cfg.RPCURL)
	signer := wallet.NewBridge(cfg.WalletBridgeURL)

	coordinator := bulkimport.NewCoordinator(logger, rpc, signer).
		WithPolling(cfg.PollInterval, cfg.PollMaxAttempts)
	manager := bulkimport.NewManager(
		logger,
		rpc,
		token.NewService(logger, rpc, nil),
		credits.NewClient(cfg.CreditsURL),
		bulkimport.NewChecker(logger, rpc),
		coordinator,
	)

	srv := server.NewServer(
		logger,
		manager,
		prefs,
		metrics.NewImportMetrics(),
		metrics.HTTPMiddleware(),
	)

	if err := srv.Start(ctx, cfg.ListenAddr); err != nil {
		logger.Fatalf("failed to start server: %v", err)
	}
}

func newPreferenceStore(cfg config, logger *logrus.Logger) (kvstore.Store, error) {
	if cfg.RedisURL == "" {
		logger.Info("no redis configured, using in-memory preference store")
		return kvstore.NewMemory(), nil
	}
	return kvstore.NewRedis(cfg.RedisURL, cfg.RedisPrefix)
}
