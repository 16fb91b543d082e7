// Package waveboard holds the state of the wave board and the transitions
// that move it: wallet authorization, reading waves, sending a wave and
// following NewWave events.
package waveboard

import (
	"context"
	"errors"
	"sync"

	"github.com/waveportal/backend/internal/eth"
	"github.com/waveportal/backend/internal/models"
	"go.uber.org/zap"
)

// DefaultGasLimit is the gas ceiling for a wave transaction.
const DefaultGasLimit uint64 = 300000

var ErrProviderMissing = errors.New("wallet provider not installed")

// Provider is a wallet provider: eth_accounts, eth_requestAccounts and a
// signing contract session.
type Provider interface {
	Accounts(ctx context.Context) ([]string, error)
	RequestAccounts(ctx context.Context) ([]string, error)
	Contract(ctx context.Context) (eth.Contract, error)
}

type Options struct {
	GasLimit uint64

	// KeepSubmittingOnFailure leaves Submitting set after a failed,
	// non-rejected transaction. Only for reproducing the legacy front-end.
	KeepSubmittingOnFailure bool

	// OnWave is called after a live NewWave event is appended.
	OnWave func(models.Wave)
}

// State is a copy of the board at one instant.
type State struct {
	ProviderInstalled bool          `json:"provider_installed"`
	Account           string        `json:"account"`
	Waves             []models.Wave `json:"waves"`
	Fetching          bool          `json:"fetching"`
	Submitting        bool          `json:"submitting"`
	PendingMessage    string        `json:"pending_message"`
}

type Board struct {
	provider Provider
	opts     Options
	log      *zap.Logger

	mu         sync.RWMutex
	installed  bool
	account    string
	waves      []models.Wave
	fetches    int
	submitting bool
	pending    string

	submitMu sync.Mutex

	subMu sync.Mutex
	sub   *Subscription
}

// New creates a board. A nil provider means no wallet is installed.
func New(provider Provider, opts Options, log *zap.Logger) *Board {
	if opts.GasLimit == 0 {
		opts.GasLimit = DefaultGasLimit
	}
	return &Board{
		provider: provider,
		opts:     opts,
		log:      log,
		waves:    make([]models.Wave, 0),
	}
}

// Mount runs the start-up sequence: existing authorization, an initial read
// when an account is connected, and the live subscription.
func (b *Board) Mount(ctx context.Context) {
	b.CheckExistingAuthorization(ctx)
	if b.Account() != "" {
		b.FetchAllWaves(ctx)
	}

	if b.provider == nil {
		return
	}

	b.subMu.Lock()
	defer b.subMu.Unlock()
	if b.sub != nil {
		return
	}
	sub, err := b.Subscribe(ctx)
	if err != nil {
		b.log.Warn("live updates not attached", zap.Error(err))
		return
	}
	b.sub = sub
}

// Unmount releases the live subscription. No OnWave callback runs after it
// returns.
func (b *Board) Unmount() {
	b.subMu.Lock()
	sub := b.sub
	b.sub = nil
	b.subMu.Unlock()

	if sub != nil {
		sub.Unsubscribe()
	}
}

func (b *Board) Snapshot() State {
	b.mu.RLock()
	defer b.mu.RUnlock()

	waves := make([]models.Wave, len(b.waves))
	copy(waves, b.waves)
	return State{
		ProviderInstalled: b.installed,
		Account:           b.account,
		Waves:             waves,
		Fetching:          b.fetches > 0,
		Submitting:        b.submitting,
		PendingMessage:    b.pending,
	}
}

func (b *Board) Account() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.account
}

// MyWaves returns the waves sent by the connected account.
func (b *Board) MyWaves() []models.Wave {
	s := b.Snapshot()
	return models.FilterBySender(s.Waves, s.Account)
}

func (b *Board) SetPendingMessage(message string) {
	b.mu.Lock()
	b.pending = message
	b.mu.Unlock()
}
