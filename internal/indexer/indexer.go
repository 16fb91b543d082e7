// Package indexer mirrors WavePortal NewWave logs into Postgres.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
	"github.com/waveportal/backend/internal/eth"
	"github.com/waveportal/backend/internal/events"
	"github.com/waveportal/backend/internal/models"
	"go.uber.org/zap"
)

const CursorKey = "wave-indexer:cursor:block"

type LogSource interface {
	BlockNumber(ctx context.Context) (uint64, error)
	FilterNewWave(ctx context.Context, from, to uint64) ([]*eth.NewWave, error)
}

type WaveStore interface {
	Insert(ctx context.Context, w *models.IndexedWave) (bool, error)
}

// Cursor stores the next block to scan.
type Cursor interface {
	Load(ctx context.Context) (block uint64, ok bool, err error)
	Save(ctx context.Context, block uint64) error
}

type Indexer struct {
	source     LogSource
	store      WaveStore
	cursor     Cursor
	startBlock uint64
	batch      uint64
	publisher  events.Publisher
	log        *zap.Logger
}

func New(source LogSource, store WaveStore, cursor Cursor, startBlock, batch uint64, log *zap.Logger) *Indexer {
	if batch == 0 {
		batch = 2000
	}
	return &Indexer{
		source:     source,
		store:      store,
		cursor:     cursor,
		startBlock: startBlock,
		batch:      batch,
		log:        log,
	}
}

// WithPublisher announces each newly stored wave on events.StreamWaves.
func (ix *Indexer) WithPublisher(p events.Publisher) *Indexer {
	ix.publisher = p
	return ix
}

// Poll scans from the cursor up to the current head in batches and returns
// the number of new rows. The cursor advances after each stored batch, so a
// failed batch is retried on the next poll.
func (ix *Indexer) Poll(ctx context.Context) (int, error) {
	next, ok, err := ix.cursor.Load(ctx)
	if err != nil {
		return 0, fmt.Errorf("load cursor: %w", err)
	}
	if !ok {
		next = ix.startBlock
	}

	head, err := ix.source.BlockNumber(ctx)
	if err != nil {
		return 0, fmt.Errorf("get head block: %w", err)
	}

	stored := 0
	for next <= head {
		to := next + ix.batch - 1
		if to > head {
			to = head
		}

		logs, err := ix.source.FilterNewWave(ctx, next, to)
		if err != nil {
			return stored, fmt.Errorf("filter blocks %d-%d: %w", next, to, err)
		}
		for _, ev := range logs {
			w := toIndexed(ev)
			inserted, err := ix.store.Insert(ctx, w)
			if err != nil {
				return stored, fmt.Errorf("store wave %s: %w", w.TxHash, err)
			}
			if inserted {
				stored++
				ix.announce(ctx, w)
			}
		}

		if err := ix.cursor.Save(ctx, to+1); err != nil {
			return stored, fmt.Errorf("save cursor: %w", err)
		}
		if len(logs) > 0 {
			ix.log.Info("indexed waves",
				zap.Uint64("from", next),
				zap.Uint64("to", to),
				zap.Int("logs", len(logs)),
			)
		}
		next = to + 1
	}
	return stored, nil
}

func (ix *Indexer) announce(ctx context.Context, w *models.IndexedWave) {
	if ix.publisher == nil {
		return
	}
	ev := events.WaveEvent(w.Wave)
	ev.Type = events.EventWaveIndexed
	ev.Payload["tx_hash"] = w.TxHash
	ev.Payload["log_index"] = w.LogIndex
	ev.Payload["block_number"] = w.BlockNumber
	if err := ix.publisher.Publish(ctx, events.StreamWaves, ev); err != nil {
		ix.log.Warn("publish indexed wave", zap.String("tx", w.TxHash), zap.Error(err))
	}
}

func toIndexed(ev *eth.NewWave) *models.IndexedWave {
	return &models.IndexedWave{
		Wave: models.Wave{
			Sender:    ev.From.Hex(),
			CreatedAt: models.WaveTime(ev.Timestamp),
			Message:   ev.Message,
		},
		TxHash:      ev.Raw.TxHash.Hex(),
		LogIndex:    ev.Raw.Index,
		BlockNumber: ev.Raw.BlockNumber,
	}
}

// RedisCursor keeps the cursor under CursorKey.
type RedisCursor struct {
	rdb *redis.Client
	key string
}

func NewRedisCursor(rdb *redis.Client) *RedisCursor {
	return &RedisCursor{rdb: rdb, key: CursorKey}
}

func (c *RedisCursor) Load(ctx context.Context) (uint64, bool, error) {
	val, err := c.rdb.Get(ctx, c.key).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	block, err := strconv.ParseUint(val, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("corrupt cursor %q: %w", val, err)
	}
	return block, true, nil
}

func (c *RedisCursor) Save(ctx context.Context, block uint64) error {
	return c.rdb.Set(ctx, c.key, strconv.FormatUint(block, 10), 0).Err()
}
