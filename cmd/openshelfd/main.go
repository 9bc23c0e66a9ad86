package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"openshelf/config"
	"openshelf/core"
	"openshelf/nft"
	"openshelf/observability/logging"
	"openshelf/rpc"
	"openshelf/storage"
)

const envKey = "OPENSHELF_ENV"

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	flag.Parse()

	env := strings.TrimSpace(os.Getenv(envKey))
	logger := logging.Setup("openshelfd", env)

	cfg, err := config.Load(*configFile)
	if err != nil {
		logger.Error("failed to load config", "path", *configFile, "err", err)
		os.Exit(1)
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		logger.Error("failed to create data dir", "path", cfg.DataDir, "err", err)
		os.Exit(1)
	}

	db, err := storage.NewLevelDB(filepath.Join(cfg.DataDir, "ledger"))
	if err != nil {
		logger.Error("failed to open ledger database", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	platform, ok := cfg.Platform()
	if !ok {
		// Purchases need a treasury; without one the daemon can still serve
		// catalog reads, so derive a deterministic dev treasury and say so.
		digest := ethcrypto.Keccak256([]byte("openshelf/dev-platform"))
		copy(platform[:], digest[12:])
		logger.Warn("no PlatformAddress configured, using derived dev treasury", "address", fmt.Sprintf("0x%x", platform))
	}

	node := core.NewNode(db, cfg.Marketplace.Params(), platform)

	registry, err := nft.NewRegistry(filepath.Join(cfg.DataDir, "collectibles.db"))
	if err != nil {
		logger.Error("failed to open collectible registry", "err", err)
		os.Exit(1)
	}
	defer func() { _ = registry.Close() }()
	node.SetSynchronizer(registry)

	server := rpc.NewServer(node, registry, logger)
	if cfg.EnableFaucet {
		logger.Warn("development faucet enabled")
		server.EnableFaucet()
	}

	httpServer := &http.Server{
		Addr:              cfg.ListenAddress,
		Handler:           server.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("rpc server listening", "address", cfg.ListenAddress)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("rpc server failed", "err", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("shutdown failed", "err", err)
	}
}
