package models

import (
	"time"

	"github.com/google/uuid"
)

// ProofPayload — одноразовый nonce для подписи кошельком (EIP-191).
type ProofPayload struct {
	ID        uuid.UUID `json:"id"`
	Payload   string    `json:"payload"`
	CreatedAt time.Time `json:"-"`
	ExpiresAt time.Time `json:"expires_at"`
	Used      bool      `json:"-"`
}

// VerifiedWallet is an address that proved control of its key.
type VerifiedWallet struct {
	Address    string    `json:"address"`
	Domain     string    `json:"domain"`
	VerifiedAt time.Time `json:"verified_at"`
}
