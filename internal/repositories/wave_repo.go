package repositories

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/waveportal/backend/internal/models"
)

type WaveRepo struct {
	pool *pgxpool.Pool
}

func NewWaveRepo(pool *pgxpool.Pool) *WaveRepo {
	return &WaveRepo{pool: pool}
}

// Insert stores an indexed wave. A log seen before is ignored; the return
// value reports whether a row was written.
func (r *WaveRepo) Insert(ctx context.Context, w *models.IndexedWave) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		INSERT INTO waves (sender, message, created_at, tx_hash, log_index, block_number)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (tx_hash, log_index) DO NOTHING
	`, w.Sender, w.Message, w.CreatedAt, w.TxHash, int64(w.LogIndex), int64(w.BlockNumber))
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// List returns indexed waves newest first. An empty sender lists everyone.
func (r *WaveRepo) List(ctx context.Context, sender string, limit, offset int) ([]models.IndexedWave, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT sender, message, created_at, tx_hash, log_index, block_number, indexed_at
		FROM waves
		WHERE $1 = '' OR lower(sender) = lower($1)
		ORDER BY block_number DESC, log_index DESC
		LIMIT $2 OFFSET $3
	`, sender, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	waves := make([]models.IndexedWave, 0)
	for rows.Next() {
		var (
			w        models.IndexedWave
			logIndex int64
			block    int64
		)
		if err := rows.Scan(&w.Sender, &w.Message, &w.CreatedAt, &w.TxHash, &logIndex, &block, &w.IndexedAt); err != nil {
			return nil, err
		}
		w.LogIndex = uint(logIndex)
		w.BlockNumber = uint64(block)
		waves = append(waves, w)
	}
	return waves, rows.Err()
}
