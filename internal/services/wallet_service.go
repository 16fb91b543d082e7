package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/waveportal/backend/internal/auth"
	"github.com/waveportal/backend/internal/config"
	"github.com/waveportal/backend/internal/eth"
	"github.com/waveportal/backend/internal/models"
	"go.uber.org/zap"
)

var (
	ErrInvalidPayload = errors.New("invalid or expired proof payload")
	ErrInvalidProof   = errors.New("wallet proof verification failed")
)

type PayloadStore interface {
	CreateProofPayload(ctx context.Context, ttl time.Duration) (*models.ProofPayload, error)
	ConsumeProofPayload(ctx context.Context, payload string) (*models.ProofPayload, error)
}

type WalletStore interface {
	SaveVerified(ctx context.Context, w *models.VerifiedWallet) error
}

type AuditLogger interface {
	Log(ctx context.Context, entry models.AuditLog) error
}

type WalletService struct {
	payloads PayloadStore
	wallets  WalletStore
	audit    AuditLogger
	cfg      *config.Config
	log      *zap.Logger
}

func NewWalletService(payloads PayloadStore, wallets WalletStore, audit AuditLogger, cfg *config.Config, log *zap.Logger) *WalletService {
	return &WalletService{
		payloads: payloads,
		wallets:  wallets,
		audit:    audit,
		cfg:      cfg,
		log:      log,
	}
}

// GeneratePayload создаёт nonce, который кошелёк подписывает через personal_sign.
func (s *WalletService) GeneratePayload(ctx context.Context) (*models.ProofPayload, error) {
	p, err := s.payloads.CreateProofPayload(ctx, s.cfg.ProofPayloadTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to create proof payload: %w", err)
	}
	return p, nil
}

type VerifyResult struct {
	Wallet *models.VerifiedWallet `json:"wallet"`
	Token  string                 `json:"token"`
}

// VerifyWallet проверяет подпись и выдаёт JWT, привязанный к адресу.
func (s *WalletService) VerifyWallet(ctx context.Context, proof eth.Proof) (*VerifyResult, error) {
	// 1. Consume payload (nonce), защита от replay
	if _, err := s.payloads.ConsumeProofPayload(ctx, proof.Payload); err != nil {
		s.log.Debug("proof payload rejected", zap.Error(err))
		return nil, ErrInvalidPayload
	}

	// 2. Подпись, домен, свежесть
	if err := eth.VerifyProof(proof, s.cfg.ProofAllowedDomains); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidProof, err)
	}

	address := common.HexToAddress(proof.Address).Hex()
	wallet := &models.VerifiedWallet{Address: address, Domain: proof.Domain}
	if err := s.wallets.SaveVerified(ctx, wallet); err != nil {
		return nil, fmt.Errorf("failed to save wallet: %w", err)
	}

	token, err := auth.GenerateJWT(s.cfg.JWTSecret, address, s.cfg.JWTExpiration)
	if err != nil {
		return nil, fmt.Errorf("failed to generate jwt: %w", err)
	}

	_ = s.audit.Log(ctx, models.AuditLog{
		ActorAddress: address,
		ActorType:    "wallet",
		Action:       "wallet_verified",
		EntityType:   "verified_wallet",
		EntityID:     address,
		Meta:         map[string]any{"domain": proof.Domain},
	})

	s.log.Info("wallet verified", zap.String("address", address))
	return &VerifyResult{Wallet: wallet, Token: token}, nil
}
