package waveboard

import (
	"context"

	"github.com/waveportal/backend/internal/eth"
	"go.uber.org/zap"
)

type SubmitStatus string

const (
	SubmitConfirmed  SubmitStatus = "confirmed"
	SubmitRejected   SubmitStatus = "rejected"
	SubmitFailed     SubmitStatus = "failed"
	SubmitBusy       SubmitStatus = "busy"
	SubmitNoProvider SubmitStatus = "no_provider"
)

// Submission reports how SubmitWave ended. It is informational: the board
// state already reflects the outcome.
type Submission struct {
	Status SubmitStatus `json:"status"`
	TxHash string       `json:"tx_hash,omitempty"`
}

// SubmitWave sends the pending message as a wave and waits for it to be
// mined. The list is read before and after; the pending message is cleared
// only after confirmation.
func (b *Board) SubmitWave(ctx context.Context) Submission {
	return b.SubmitMessage(ctx, nil)
}

// SubmitMessage is SubmitWave with the pending message replaced by message
// first, when it is not nil. A busy board leaves the pending message as is.
func (b *Board) SubmitMessage(ctx context.Context, message *string) Submission {
	if b.provider == nil {
		if message != nil {
			b.SetPendingMessage(*message)
		}
		b.log.Info("wave skipped, wallet provider not installed")
		return Submission{Status: SubmitNoProvider}
	}

	if !b.submitMu.TryLock() {
		return Submission{Status: SubmitBusy}
	}
	defer b.submitMu.Unlock()

	if b.Snapshot().Submitting {
		return Submission{Status: SubmitBusy}
	}
	if message != nil {
		b.SetPendingMessage(*message)
	}

	contract, err := b.provider.Contract(ctx)
	if err != nil {
		b.log.Warn("open contract session", zap.Error(err))
		return b.failSubmit(err, "", false)
	}

	b.FetchAllWaves(ctx)

	b.mu.Lock()
	pending := b.pending
	b.submitting = true
	b.mu.Unlock()

	tx, err := contract.Wave(ctx, pending, b.opts.GasLimit)
	if err != nil {
		return b.failSubmit(err, "", true)
	}
	hash := tx.Hash().Hex()
	b.log.Info("mining wave", zap.String("tx", hash))

	if err := tx.Wait(ctx); err != nil {
		return b.failSubmit(err, hash, true)
	}
	b.log.Info("wave mined", zap.String("tx", hash))

	b.setSubmitting(false)
	b.FetchAllWaves(ctx)

	b.mu.Lock()
	b.pending = ""
	b.mu.Unlock()

	return Submission{Status: SubmitConfirmed, TxHash: hash}
}

func (b *Board) failSubmit(err error, hash string, started bool) Submission {
	if eth.IsUserRejected(err) {
		b.log.Info("wave rejected by wallet owner", zap.Error(err))
		b.setSubmitting(false)
		return Submission{Status: SubmitRejected, TxHash: hash}
	}

	b.log.Error("wave failed", zap.String("tx", hash), zap.Error(err))
	if !started || !b.opts.KeepSubmittingOnFailure {
		b.setSubmitting(false)
	}
	return Submission{Status: SubmitFailed, TxHash: hash}
}

func (b *Board) setSubmitting(v bool) {
	b.mu.Lock()
	b.submitting = v
	b.mu.Unlock()
}
