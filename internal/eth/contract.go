package eth

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/event"
)

const (
	methodGetAllWaves = "getAllWaves"
	methodWave        = "wave"
	eventNewWave      = "NewWave"
)

// RawWave mirrors the contract's Wave struct. Field names follow the ABI
// component names so abi.ConvertType can fill it.
type RawWave struct {
	WavedBy   common.Address
	Message   string
	CreatedAt *big.Int
}

// NewWave is a decoded NewWave(from, timestamp, message) log.
type NewWave struct {
	From      common.Address
	Timestamp *big.Int
	Message   string
	Raw       types.Log
}

// Contract is the call surface of WavePortal used by the board.
type Contract interface {
	GetAllWaves(ctx context.Context) ([]RawWave, error)
	Wave(ctx context.Context, message string, gasLimit uint64) (PendingTx, error)
	WatchNewWave(ctx context.Context, sink chan<- *NewWave) (event.Subscription, error)
}

// PendingTx is a sent transaction whose confirmation can be awaited.
type PendingTx interface {
	Hash() common.Hash
	Wait(ctx context.Context) error
}

type WavePortal struct {
	address  common.Address
	contract *bind.BoundContract
	receipts bind.DeployBackend
	signer   *bind.TransactOpts
}

// NewWavePortal binds the contract at address. A nil signer gives a
// read-only session: Wave returns ErrNoSigner.
func NewWavePortal(address common.Address, parsed abi.ABI, backend bind.ContractBackend, receipts bind.DeployBackend, signer *bind.TransactOpts) *WavePortal {
	return &WavePortal{
		address:  address,
		contract: bind.NewBoundContract(address, parsed, backend, backend, backend),
		receipts: receipts,
		signer:   signer,
	}
}

func (w *WavePortal) Address() common.Address { return w.address }

func (w *WavePortal) GetAllWaves(ctx context.Context) ([]RawWave, error) {
	var out []interface{}
	if err := w.contract.Call(&bind.CallOpts{Context: ctx}, &out, methodGetAllWaves); err != nil {
		return nil, fmt.Errorf("call %s: %w", methodGetAllWaves, err)
	}
	if len(out) == 0 {
		return nil, nil
	}
	waves := *abi.ConvertType(out[0], new([]RawWave)).(*[]RawWave)
	return waves, nil
}

func (w *WavePortal) Wave(ctx context.Context, message string, gasLimit uint64) (PendingTx, error) {
	if w.signer == nil {
		return nil, ErrNoSigner
	}
	opts := *w.signer
	opts.Context = ctx
	opts.GasLimit = gasLimit

	tx, err := w.contract.Transact(&opts, methodWave, message)
	if err != nil {
		return nil, fmt.Errorf("send %s: %w", methodWave, err)
	}
	return &pendingTx{tx: tx, receipts: w.receipts}, nil
}

// WatchNewWave streams NewWave logs into sink until the subscription is
// cancelled or the underlying log subscription fails.
func (w *WavePortal) WatchNewWave(ctx context.Context, sink chan<- *NewWave) (event.Subscription, error) {
	logs, sub, err := w.contract.WatchLogs(&bind.WatchOpts{Context: ctx}, eventNewWave)
	if err != nil {
		return nil, fmt.Errorf("watch %s: %w", eventNewWave, err)
	}

	return event.NewSubscription(func(quit <-chan struct{}) error {
		defer sub.Unsubscribe()
		for {
			select {
			case lg := <-logs:
				ev, err := w.UnpackNewWave(lg)
				if err != nil {
					return err
				}
				select {
				case sink <- ev:
				case err := <-sub.Err():
					return err
				case <-quit:
					return nil
				}
			case err := <-sub.Err():
				return err
			case <-quit:
				return nil
			}
		}
	}), nil
}

// FilterNewWave returns NewWave logs in [from, to], oldest first.
func (w *WavePortal) FilterNewWave(ctx context.Context, from, to uint64) ([]*NewWave, error) {
	logs, sub, err := w.contract.FilterLogs(&bind.FilterOpts{Start: from, End: &to, Context: ctx}, eventNewWave)
	if err != nil {
		return nil, fmt.Errorf("filter %s [%d,%d]: %w", eventNewWave, from, to, err)
	}
	defer sub.Unsubscribe()

	var out []*NewWave
	collect := func(lg types.Log) error {
		ev, err := w.UnpackNewWave(lg)
		if err != nil {
			return err
		}
		out = append(out, ev)
		return nil
	}

	for {
		select {
		case lg := <-logs:
			if err := collect(lg); err != nil {
				return nil, err
			}
		case err := <-sub.Err():
			if err != nil {
				return nil, err
			}
			// feeder finished; drain what is buffered
			for {
				select {
				case lg := <-logs:
					if err := collect(lg); err != nil {
						return nil, err
					}
				default:
					return out, nil
				}
			}
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func (w *WavePortal) UnpackNewWave(lg types.Log) (*NewWave, error) {
	ev := new(NewWave)
	if err := w.contract.UnpackLog(ev, eventNewWave, lg); err != nil {
		return nil, fmt.Errorf("unpack %s: %w", eventNewWave, err)
	}
	ev.Raw = lg
	return ev, nil
}

type pendingTx struct {
	tx       *types.Transaction
	receipts bind.DeployBackend
}

func (p *pendingTx) Hash() common.Hash { return p.tx.Hash() }

func (p *pendingTx) Wait(ctx context.Context) error {
	receipt, err := bind.WaitMined(ctx, p.receipts, p.tx)
	if err != nil {
		return fmt.Errorf("wait %s: %w", p.tx.Hash().Hex(), err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return fmt.Errorf("transaction %s reverted in block %s", p.tx.Hash().Hex(), receipt.BlockNumber)
	}
	return nil
}
