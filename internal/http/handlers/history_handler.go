package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/waveportal/backend/internal/http/dto"
	"github.com/waveportal/backend/internal/models"
	"go.uber.org/zap"
)

type WaveHistory interface {
	List(ctx context.Context, sender string, limit, offset int) ([]models.IndexedWave, error)
}

// HistoryHandler serves waves mirrored by the indexer.
type HistoryHandler struct {
	waves WaveHistory
	log   *zap.Logger
}

func NewHistoryHandler(waves WaveHistory, log *zap.Logger) *HistoryHandler {
	return &HistoryHandler{waves: waves, log: log}
}

// GET /history?sender=&limit=&offset=
func (h *HistoryHandler) List(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 50)
	offset := c.QueryInt("offset", 0)
	if offset < 0 {
		offset = 0
	}

	waves, err := h.waves.List(c.UserContext(), c.Query("sender"), limit, offset)
	if err != nil {
		h.log.Error("list indexed waves", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal error"})
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: waves})
}
