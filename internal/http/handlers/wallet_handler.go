package handlers

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/waveportal/backend/internal/eth"
	"github.com/waveportal/backend/internal/http/dto"
	"github.com/waveportal/backend/internal/models"
	"github.com/waveportal/backend/internal/services"
	"go.uber.org/zap"
)

type WalletVerifier interface {
	GeneratePayload(ctx context.Context) (*models.ProofPayload, error)
	VerifyWallet(ctx context.Context, proof eth.Proof) (*services.VerifyResult, error)
}

type WalletHandler struct {
	walletService WalletVerifier
	log           *zap.Logger
}

func NewWalletHandler(walletService WalletVerifier, log *zap.Logger) *WalletHandler {
	return &WalletHandler{walletService: walletService, log: log}
}

// GeneratePayload создаёт nonce для подписи кошельком.
// POST /wallet/proof-payload
func (h *WalletHandler) GeneratePayload(c *fiber.Ctx) error {
	p, err := h.walletService.GeneratePayload(c.UserContext())
	if err != nil {
		h.log.Error("failed to generate proof payload", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal error"})
	}
	return c.JSON(dto.PayloadResponse{Payload: p.Payload, ExpiresAt: p.ExpiresAt.UTC().Format(time.RFC3339)})
}

// Verify проверяет подпись и возвращает JWT.
// POST /wallet/verify
func (h *WalletHandler) Verify(c *fiber.Ctx) error {
	var proof eth.Proof
	if err := c.BodyParser(&proof); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request body"})
	}
	if proof.Address == "" || proof.Payload == "" || proof.Signature == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "address, payload, and signature are required"})
	}

	res, err := h.walletService.VerifyWallet(c.UserContext(), proof)
	switch {
	case err == nil:
		return c.JSON(dto.SuccessResponse{OK: true, Data: res})
	case errors.Is(err, services.ErrInvalidPayload), errors.Is(err, services.ErrInvalidProof):
		h.log.Debug("wallet verify failed", zap.Error(err))
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Error: err.Error()})
	default:
		h.log.Error("wallet verify", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal error"})
	}
}
