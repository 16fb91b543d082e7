package eth

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"
)

// Backend is what a contract session needs from the node connection.
// *ethclient.Client satisfies it.
type Backend interface {
	bind.ContractBackend
	bind.DeployBackend
	ChainID(ctx context.Context) (*big.Int, error)
}

// Dial connects to an EVM JSON-RPC endpoint. Live NewWave updates need a
// websocket URL.
func Dial(ctx context.Context, rawURL string, log *zap.Logger) (*ethclient.Client, error) {
	client, err := ethclient.DialContext(ctx, rawURL)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", rawURL, err)
	}
	chainID, err := client.ChainID(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("chain id: %w", err)
	}
	log.Info("ethereum node connected", zap.String("chain_id", chainID.String()))
	return client, nil
}

// KeystoreProvider is a wallet provider backed by a local go-ethereum
// keystore. An unlocked account counts as authorized (eth_accounts);
// unlocking with the configured passphrase is the authorization request
// (eth_requestAccounts).
type KeystoreProvider struct {
	backend    Backend
	ks         *keystore.KeyStore
	passphrase string
	contract   common.Address
	abi        abi.ABI
	log        *zap.Logger

	mu      sync.Mutex
	chainID *big.Int
}

func NewKeystoreProvider(backend Backend, ks *keystore.KeyStore, passphrase string, contract common.Address, parsed abi.ABI, log *zap.Logger) *KeystoreProvider {
	return &KeystoreProvider{
		backend:    backend,
		ks:         ks,
		passphrase: passphrase,
		contract:   contract,
		abi:        parsed,
		log:        log,
	}
}

// OpenKeystore opens dir with the standard scrypt parameters.
func OpenKeystore(dir string) *keystore.KeyStore {
	return keystore.NewKeyStore(dir, keystore.StandardScryptN, keystore.StandardScryptP)
}

// Accounts returns the unlocked accounts, in keystore order.
func (p *KeystoreProvider) Accounts(ctx context.Context) ([]string, error) {
	authorized := make([]string, 0)
	for _, acc := range p.unlocked() {
		authorized = append(authorized, acc.Address.Hex())
	}
	return authorized, nil
}

// RequestAccounts unlocks the primary keystore account. A missing or wrong
// passphrase is reported as a user rejection.
func (p *KeystoreProvider) RequestAccounts(ctx context.Context) ([]string, error) {
	all := p.ks.Accounts()
	if len(all) == 0 {
		return nil, &ProviderError{Code: CodeUnauthorized, Message: "keystore has no accounts"}
	}
	primary := all[0]

	if p.passphrase == "" {
		return nil, ErrUserRejected
	}
	if err := p.ks.Unlock(primary, p.passphrase); err != nil {
		if errors.Is(err, keystore.ErrDecrypt) {
			return nil, ErrUserRejected
		}
		return nil, fmt.Errorf("unlock %s: %w", primary.Address.Hex(), err)
	}

	p.log.Info("wallet account authorized", zap.String("address", primary.Address.Hex()))
	return []string{primary.Address.Hex()}, nil
}

// Contract opens a signing session for the first authorized account.
func (p *KeystoreProvider) Contract(ctx context.Context) (Contract, error) {
	unlocked := p.unlocked()
	if len(unlocked) == 0 {
		return nil, ErrUnauthorized
	}

	chainID, err := p.getChainID(ctx)
	if err != nil {
		return nil, err
	}

	signer, err := bind.NewKeyStoreTransactorWithChainID(p.ks, unlocked[0], chainID)
	if err != nil {
		return nil, fmt.Errorf("keystore transactor: %w", err)
	}

	return NewWavePortal(p.contract, p.abi, p.backend, p.backend, signer), nil
}

func (p *KeystoreProvider) unlocked() []accounts.Account {
	var out []accounts.Account
	probe := make([]byte, 32)
	for _, acc := range p.ks.Accounts() {
		if _, err := p.ks.SignHash(acc, probe); err == nil {
			out = append(out, acc)
		}
	}
	return out
}

func (p *KeystoreProvider) getChainID(ctx context.Context) (*big.Int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.chainID != nil {
		return p.chainID, nil
	}
	id, err := p.backend.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("chain id: %w", err)
	}
	p.chainID = id
	return id, nil
}
