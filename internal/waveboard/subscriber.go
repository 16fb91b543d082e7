package waveboard

import (
	"context"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/event"
	"github.com/waveportal/backend/internal/eth"
	"github.com/waveportal/backend/internal/models"
	"go.uber.org/zap"
)

const resubscribeBackoff = 30 * time.Second

// Subscription is the handle of a live NewWave feed.
type Subscription struct {
	once   sync.Once
	cancel context.CancelFunc
	done   chan struct{}
}

// Unsubscribe stops the feed and waits for the event pump to exit. Safe to
// call more than once.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		s.cancel()
		<-s.done
	})
}

// Done is closed once the event pump has exited.
func (s *Subscription) Done() <-chan struct{} { return s.done }

// Subscribe follows NewWave events and appends each one to the wave list.
// The log subscription is re-established with backoff when it drops or when
// no account is authorized yet.
func (b *Board) Subscribe(ctx context.Context) (*Subscription, error) {
	if b.provider == nil {
		return nil, ErrProviderMissing
	}

	ctx, cancel := context.WithCancel(ctx)
	sink := make(chan *eth.NewWave, 16)

	watch := event.ResubscribeErr(resubscribeBackoff, func(ctx context.Context, lastErr error) (event.Subscription, error) {
		if lastErr != nil {
			b.log.Warn("NewWave subscription lost, resubscribing", zap.Error(lastErr))
		}
		contract, err := b.provider.Contract(ctx)
		if err != nil {
			b.log.Debug("NewWave subscription deferred", zap.Error(err))
			return nil, err
		}
		return contract.WatchNewWave(ctx, sink)
	})

	s := &Subscription{cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(s.done)
		defer watch.Unsubscribe()
		for {
			select {
			case ev := <-sink:
				b.appendWave(fromEvent(ev))
			case <-ctx.Done():
				return
			}
		}
	}()

	return s, nil
}

func (b *Board) appendWave(w models.Wave) {
	b.mu.Lock()
	b.waves = append(b.waves, w)
	b.mu.Unlock()

	b.log.Info("new wave", zap.String("from", w.Sender), zap.Time("created_at", w.CreatedAt))
	if b.opts.OnWave != nil {
		b.opts.OnWave(w)
	}
}
