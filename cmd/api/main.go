package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gofiber/fiber/v2"
	"github.com/waveportal/backend/internal/config"
	"github.com/waveportal/backend/internal/db"
	"github.com/waveportal/backend/internal/eth"
	"github.com/waveportal/backend/internal/events"
	apphttp "github.com/waveportal/backend/internal/http"
	"github.com/waveportal/backend/internal/http/handlers"
	"github.com/waveportal/backend/internal/models"
	"github.com/waveportal/backend/internal/repositories"
	"github.com/waveportal/backend/internal/services"
	"github.com/waveportal/backend/internal/waveboard"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	cfg := config.Load()

	log := newLogger(cfg.LogLevel)
	defer log.Sync()

	cfg.Validate(log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Database
	pool, err := db.NewPostgresPool(ctx, cfg.PostgresDSN, 10, log)
	if err != nil {
		log.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer pool.Close()

	// Run migrations
	if err := db.RunMigrations(ctx, pool, db.Migrations(), log); err != nil {
		log.Fatal("failed to run migrations", zap.Error(err))
	}

	// Redis
	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL, log)
	if err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer rdb.Close()

	// Repositories
	auditRepo := repositories.NewAuditRepo(pool)
	walletRepo := repositories.NewWalletRepo(pool)
	waveRepo := repositories.NewWaveRepo(pool)

	// Events
	publisher := events.NewRedisPublisher(rdb, log)
	subscriber := events.NewRedisSubscriber(rdb, log)

	// Wallet provider (optional)
	var provider waveboard.Provider
	if cfg.ProviderConfigured() {
		p, err := newProvider(ctx, cfg, log)
		if err != nil {
			log.Fatal("failed to set up wallet provider", zap.Error(err))
		}
		if cfg.WalletAutoUnlock {
			if _, err := p.RequestAccounts(ctx); err != nil {
				log.Warn("wallet auto-unlock failed", zap.Error(err))
			}
		}
		provider = p
	}

	board := waveboard.New(provider, waveboard.Options{
		GasLimit:                cfg.WaveGasLimit,
		KeepSubmittingOnFailure: cfg.KeepSubmittingOnFailure,
		OnWave: func(w models.Wave) {
			if err := publisher.Publish(ctx, events.StreamWaves, events.WaveEvent(w)); err != nil {
				log.Warn("publish new wave", zap.Error(err))
			}
		},
	}, log)

	// Mount keeps ctx for the live subscription.
	board.Mount(ctx)
	defer board.Unmount()

	// Services
	walletService := services.NewWalletService(walletRepo, walletRepo, auditRepo, cfg, log)

	// Handlers
	wsHub := handlers.NewWSHub(subscriber, log)
	if err := wsHub.Start(ctx); err != nil {
		log.Error("failed to start ws hub", zap.Error(err))
	}

	// Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{"error": err.Error()})
		},
	})

	apphttp.SetupRouter(app, cfg, log, rdb, apphttp.Handlers{
		Board:   handlers.NewBoardHandler(board, publisher, log),
		Page:    handlers.NewPageHandler(board, log),
		Wallet:  handlers.NewWalletHandler(walletService, log),
		History: handlers.NewHistoryHandler(waveRepo, log),
		Me:      handlers.NewMeHandler(walletRepo, auditRepo, log),
		WSHub:   wsHub,
	})

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")
		cancel()
		_ = app.Shutdown()
	}()

	addr := fmt.Sprintf(":%s", cfg.APIPort)
	log.Info("starting API server", zap.String("addr", addr))
	if err := app.Listen(addr); err != nil {
		log.Fatal("server error", zap.Error(err))
	}
}

func newProvider(ctx context.Context, cfg *config.Config, log *zap.Logger) (*eth.KeystoreProvider, error) {
	parsed, err := eth.LoadABI(cfg.ContractABIPath)
	if err != nil {
		return nil, err
	}
	if !common.IsHexAddress(cfg.ContractAddress) {
		return nil, fmt.Errorf("invalid CONTRACT_ADDRESS %q", cfg.ContractAddress)
	}

	dialCtx, cancel := context.WithTimeout(ctx, cfg.RPCTimeout)
	defer cancel()
	client, err := eth.Dial(dialCtx, cfg.EthRPCURL, log)
	if err != nil {
		return nil, err
	}

	ks := eth.OpenKeystore(cfg.KeystoreDir)
	return eth.NewKeystoreProvider(client, ks, cfg.KeystorePassphrase, common.HexToAddress(cfg.ContractAddress), parsed, log), nil
}

func newLogger(level string) *zap.Logger {
	zcfg := zap.NewProductionConfig()
	if lvl, err := zapcore.ParseLevel(level); err == nil {
		zcfg.Level = zap.NewAtomicLevelAt(lvl)
	}
	log, err := zcfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return log
}
