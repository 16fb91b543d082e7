package waveboard

import (
	"context"

	"github.com/waveportal/backend/internal/eth"
	"github.com/waveportal/backend/internal/models"
	"go.uber.org/zap"
)

// FetchAllWaves replaces the wave list with the contract's list. On failure
// the previous list is kept.
func (b *Board) FetchAllWaves(ctx context.Context) {
	if b.provider == nil {
		b.log.Debug("fetch skipped, wallet provider not installed")
		return
	}

	b.beginFetch()
	defer b.endFetch()

	contract, err := b.provider.Contract(ctx)
	if err != nil {
		b.log.Warn("open contract session", zap.Error(err))
		return
	}

	raw, err := contract.GetAllWaves(ctx)
	if err != nil {
		b.log.Warn("fetch waves failed", zap.Error(err))
		return
	}

	waves := make([]models.Wave, 0, len(raw))
	for _, r := range raw {
		waves = append(waves, fromRecord(r))
	}

	b.mu.Lock()
	b.waves = waves
	b.mu.Unlock()

	b.log.Debug("waves fetched", zap.Int("count", len(waves)))
}

func (b *Board) beginFetch() {
	b.mu.Lock()
	b.fetches++
	b.mu.Unlock()
}

func (b *Board) endFetch() {
	b.mu.Lock()
	b.fetches--
	b.mu.Unlock()
}

func fromRecord(r eth.RawWave) models.Wave {
	return models.Wave{
		Sender:    r.WavedBy.Hex(),
		CreatedAt: models.WaveTime(r.CreatedAt),
		Message:   r.Message,
	}
}

func fromEvent(ev *eth.NewWave) models.Wave {
	return models.Wave{
		Sender:    ev.From.Hex(),
		CreatedAt: models.WaveTime(ev.Timestamp),
		Message:   ev.Message,
	}
}
