package waveboard

import (
	"context"

	"github.com/waveportal/backend/internal/eth"
	"go.uber.org/zap"
)

// CheckExistingAuthorization looks for an already authorized account.
// Failures are logged; the account simply stays empty.
func (b *Board) CheckExistingAuthorization(ctx context.Context) {
	if b.provider == nil {
		b.log.Info("wallet provider not installed")
		return
	}

	b.mu.Lock()
	b.installed = true
	b.mu.Unlock()

	accounts, err := b.provider.Accounts(ctx)
	if err != nil {
		b.log.Warn("eth_accounts failed", zap.Error(err))
		return
	}
	if len(accounts) == 0 {
		b.log.Info("no authorized account found")
		return
	}

	b.log.Info("found an authorized account", zap.String("account", accounts[0]))
	b.setAccount(accounts[0])
}

// RequestAuthorization asks the provider for account access. Only a missing
// provider is reported; a declined or failed request is logged and leaves
// the account as it was. A newly connected account triggers a read.
func (b *Board) RequestAuthorization(ctx context.Context) error {
	if b.provider == nil {
		return ErrProviderMissing
	}

	accounts, err := b.provider.RequestAccounts(ctx)
	if err != nil {
		if eth.IsUserRejected(err) {
			b.log.Info("wallet authorization declined", zap.Error(err))
		} else {
			b.log.Warn("eth_requestAccounts failed", zap.Error(err))
		}
		return nil
	}
	if len(accounts) == 0 {
		b.log.Warn("eth_requestAccounts returned no accounts")
		return nil
	}

	b.log.Info("wallet connected", zap.String("account", accounts[0]))
	if b.setAccount(accounts[0]) {
		b.FetchAllWaves(ctx)
	}
	return nil
}

func (b *Board) setAccount(account string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	changed := b.account != account
	b.account = account
	return changed
}
