package waveboard

import (
	"context"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/event"
	"github.com/waveportal/backend/internal/eth"
)

type fakeProvider struct {
	mu          sync.Mutex
	accounts    []string
	accountsErr error
	granted     []string
	grantErr    error
	contract    *fakeContract
	contractErr error
}

func (p *fakeProvider) Accounts(ctx context.Context) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.accounts, p.accountsErr
}

func (p *fakeProvider) RequestAccounts(ctx context.Context) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.grantErr != nil {
		return nil, p.grantErr
	}
	p.accounts = p.granted
	return p.granted, nil
}

func (p *fakeProvider) Contract(ctx context.Context) (eth.Contract, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.contractErr != nil {
		return nil, p.contractErr
	}
	return p.contract, nil
}

type fakeContract struct {
	mu       sync.Mutex
	waves    []eth.RawWave
	getErr   error
	getCalls int

	waveErr  error
	waitErr  error
	waitGate chan struct{} // Wait blocks until closed, when set
	sent     chan string   // receives the message of each sent wave, when set

	sink       chan<- *eth.NewWave
	watching   chan struct{}
	unwatched  chan struct{}
	watchCalls int
}

func newFakeContract(waves ...eth.RawWave) *fakeContract {
	return &fakeContract{
		waves:     waves,
		watching:  make(chan struct{}),
		unwatched: make(chan struct{}),
	}
}

func (c *fakeContract) GetAllWaves(ctx context.Context) ([]eth.RawWave, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.getCalls++
	if c.getErr != nil {
		return nil, c.getErr
	}
	out := make([]eth.RawWave, len(c.waves))
	copy(out, c.waves)
	return out, nil
}

func (c *fakeContract) Wave(ctx context.Context, message string, gasLimit uint64) (eth.PendingTx, error) {
	if c.sent != nil {
		c.sent <- message
	}
	if c.waveErr != nil {
		return nil, c.waveErr
	}
	return &fakeTx{c: c}, nil
}

func (c *fakeContract) WatchNewWave(ctx context.Context, sink chan<- *eth.NewWave) (event.Subscription, error) {
	c.mu.Lock()
	c.sink = sink
	c.watchCalls++
	first := c.watchCalls == 1
	c.mu.Unlock()

	if first {
		close(c.watching)
	}
	return event.NewSubscription(func(quit <-chan struct{}) error {
		<-quit
		if first {
			close(c.unwatched)
		}
		return nil
	}), nil
}

func (c *fakeContract) GetCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.getCalls
}

func (c *fakeContract) emit(ev *eth.NewWave) {
	c.mu.Lock()
	sink := c.sink
	c.mu.Unlock()
	sink <- ev
}

type fakeTx struct {
	c *fakeContract
}

func (t *fakeTx) Hash() common.Hash { return common.HexToHash("0xabc") }

func (t *fakeTx) Wait(ctx context.Context) error {
	if t.c.waitGate != nil {
		<-t.c.waitGate
	}
	return t.c.waitErr
}
