package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/waveportal/backend/internal/config"
	"github.com/waveportal/backend/internal/db"
	"github.com/waveportal/backend/internal/eth"
	"github.com/waveportal/backend/internal/events"
	"github.com/waveportal/backend/internal/indexer"
	"github.com/waveportal/backend/internal/repositories"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// chainSource pairs the node head with the contract log filter.
type chainSource struct {
	*ethclient.Client
	portal *eth.WavePortal
}

func (s chainSource) FilterNewWave(ctx context.Context, from, to uint64) ([]*eth.NewWave, error) {
	return s.portal.FilterNewWave(ctx, from, to)
}

func main() {
	cfg := config.Load()

	zcfg := zap.NewProductionConfig()
	if lvl, err := zapcore.ParseLevel(cfg.LogLevel); err == nil {
		zcfg.Level = zap.NewAtomicLevelAt(lvl)
	}
	log, err := zcfg.Build()
	if err != nil {
		log = zap.NewNop()
	}
	defer log.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.EthRPCURL == "" {
		log.Fatal("ETH_RPC_URL is required")
	}
	if !common.IsHexAddress(cfg.ContractAddress) {
		log.Fatal("invalid CONTRACT_ADDRESS", zap.String("addr", cfg.ContractAddress))
	}

	pool, err := db.NewPostgresPool(ctx, cfg.PostgresDSN, 4, log)
	if err != nil {
		log.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer pool.Close()

	if err := db.RunMigrations(ctx, pool, db.Migrations(), log); err != nil {
		log.Fatal("failed to run migrations", zap.Error(err))
	}

	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL, log)
	if err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer rdb.Close()

	parsed, err := eth.LoadABI(cfg.ContractABIPath)
	if err != nil {
		log.Fatal("failed to load contract ABI", zap.Error(err))
	}

	client, err := eth.Dial(ctx, cfg.EthRPCURL, log)
	if err != nil {
		log.Fatal("failed to connect to ethereum node", zap.Error(err))
	}
	defer client.Close()

	contract := common.HexToAddress(cfg.ContractAddress)
	portal := eth.NewWavePortal(contract, parsed, client, client, nil)

	ix := indexer.New(
		chainSource{Client: client, portal: portal},
		repositories.NewWaveRepo(pool),
		indexer.NewRedisCursor(rdb),
		cfg.IndexerStartBlock,
		cfg.IndexerBatchBlocks,
		log,
	)

	if len(cfg.KafkaBrokers) > 0 {
		kafkaPub := events.NewKafkaPublisher(events.NewKafkaWriter(cfg.KafkaBrokers), log)
		defer kafkaPub.Close()
		ix.WithPublisher(kafkaPub)
		log.Info("announcing indexed waves to kafka",
			zap.Strings("brokers", cfg.KafkaBrokers),
			zap.String("topic", events.TopicName(events.StreamWaves)),
		)
	}

	log.Info("wave indexer started",
		zap.String("contract", contract.Hex()),
		zap.Uint64("start_block", cfg.IndexerStartBlock),
		zap.Uint64("batch_blocks", cfg.IndexerBatchBlocks),
	)

	ticker := time.NewTicker(cfg.IndexerPollInterval)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case <-ticker.C:
			pollCtx, pollCancel := context.WithTimeout(ctx, 10*cfg.RPCTimeout)
			n, err := ix.Poll(pollCtx)
			pollCancel()
			if err != nil {
				log.Error("poll cycle failed", zap.Error(err))
			}
			if n > 0 {
				log.Info("poll cycle stored waves", zap.Int("count", n))
			}
		case <-sigCh:
			log.Info("shutting down wave indexer")
			cancel()
			return
		case <-ctx.Done():
			return
		}
	}
}
