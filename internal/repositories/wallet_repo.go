package repositories

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/waveportal/backend/internal/models"
)

type WalletRepo struct {
	pool *pgxpool.Pool
}

func NewWalletRepo(pool *pgxpool.Pool) *WalletRepo {
	return &WalletRepo{pool: pool}
}

// --- Proof Payloads (nonce) ---

func (r *WalletRepo) CreateProofPayload(ctx context.Context, ttl time.Duration) (*models.ProofPayload, error) {
	p := &models.ProofPayload{Payload: generateNonce(32)}

	err := r.pool.QueryRow(ctx, `
		INSERT INTO proof_payloads (payload, expires_at)
		VALUES ($1, now() + make_interval(secs => $2))
		RETURNING id, created_at, expires_at
	`, p.Payload, ttl.Seconds()).Scan(&p.ID, &p.CreatedAt, &p.ExpiresAt)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// ConsumeProofPayload marks a live nonce as used. Unknown, expired and
// already used nonces return pgx.ErrNoRows.
func (r *WalletRepo) ConsumeProofPayload(ctx context.Context, payload string) (*models.ProofPayload, error) {
	var p models.ProofPayload
	err := r.pool.QueryRow(ctx, `
		UPDATE proof_payloads
		SET used = true
		WHERE payload = $1 AND used = false AND expires_at > now()
		RETURNING id, payload, created_at, expires_at, used
	`, payload).Scan(&p.ID, &p.Payload, &p.CreatedAt, &p.ExpiresAt, &p.Used)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// --- Verified wallets ---

func (r *WalletRepo) SaveVerified(ctx context.Context, w *models.VerifiedWallet) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO verified_wallets (address, domain)
		VALUES ($1, $2)
		ON CONFLICT (address) DO UPDATE SET
			domain = EXCLUDED.domain,
			verified_at = now()
		RETURNING verified_at
	`, w.Address, w.Domain).Scan(&w.VerifiedAt)
}

func (r *WalletRepo) GetVerified(ctx context.Context, address string) (*models.VerifiedWallet, error) {
	var w models.VerifiedWallet
	err := r.pool.QueryRow(ctx, `
		SELECT address, domain, verified_at FROM verified_wallets WHERE lower(address) = lower($1)
	`, address).Scan(&w.Address, &w.Domain, &w.VerifiedAt)
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func generateNonce(bytes int) string {
	b := make([]byte, bytes)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
