package handlers

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/waveportal/backend/internal/http/dto"
	"github.com/waveportal/backend/internal/middleware"
	"github.com/waveportal/backend/internal/models"
	"go.uber.org/zap"
)

type VerifiedWallets interface {
	GetVerified(ctx context.Context, address string) (*models.VerifiedWallet, error)
}

type ActivityLog interface {
	ListByActor(ctx context.Context, address string, limit int) ([]models.AuditLog, error)
}

// MeHandler serves data about the address proven by the bearer token.
type MeHandler struct {
	wallets  VerifiedWallets
	activity ActivityLog
	log      *zap.Logger
}

func NewMeHandler(wallets VerifiedWallets, activity ActivityLog, log *zap.Logger) *MeHandler {
	return &MeHandler{wallets: wallets, activity: activity, log: log}
}

// GET /me
func (h *MeHandler) GetMe(c *fiber.Ctx) error {
	w, err := h.wallets.GetVerified(c.UserContext(), middleware.GetWalletAddress(c))
	if errors.Is(err, pgx.ErrNoRows) {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Error: "wallet not verified"})
	}
	if err != nil {
		h.log.Error("get verified wallet", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal error"})
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: w})
}

// GET /me/activity?limit=
func (h *MeHandler) Activity(c *fiber.Ctx) error {
	entries, err := h.activity.ListByActor(c.UserContext(), middleware.GetWalletAddress(c), c.QueryInt("limit", 20))
	if err != nil {
		h.log.Error("list activity", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal error"})
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: entries})
}
