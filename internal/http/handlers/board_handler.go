package handlers

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/waveportal/backend/internal/events"
	"github.com/waveportal/backend/internal/http/dto"
	"github.com/waveportal/backend/internal/middleware"
	"github.com/waveportal/backend/internal/models"
	"github.com/waveportal/backend/internal/view"
	"github.com/waveportal/backend/internal/waveboard"
	"go.uber.org/zap"
)

// Board is the part of *waveboard.Board the HTTP layer drives.
type Board interface {
	Snapshot() waveboard.State
	MyWaves() []models.Wave
	SetPendingMessage(message string)
	SubmitMessage(ctx context.Context, message *string) waveboard.Submission
	RequestAuthorization(ctx context.Context) error
}

type BoardHandler struct {
	board     Board
	publisher events.Publisher
	log       *zap.Logger
}

func NewBoardHandler(board Board, publisher events.Publisher, log *zap.Logger) *BoardHandler {
	return &BoardHandler{board: board, publisher: publisher, log: log}
}

// GetBoard returns the page view model.
// GET /board
func (h *BoardHandler) GetBoard(c *fiber.Ctx) error {
	return c.JSON(view.Build(h.board.Snapshot(), time.Now()))
}

// GET /waves
func (h *BoardHandler) GetWaves(c *fiber.Ctx) error {
	return c.JSON(dto.SuccessResponse{OK: true, Data: h.board.Snapshot().Waves})
}

// MyWaves filters by ?address=, falling back to the connected account.
// GET /waves/mine
func (h *BoardHandler) MyWaves(c *fiber.Ctx) error {
	address := c.Query("address")
	if address == "" {
		return c.JSON(dto.SuccessResponse{OK: true, Data: h.board.MyWaves()})
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: models.FilterBySender(h.board.Snapshot().Waves, address)})
}

// MeWaves returns the waves of the address proven by the bearer token.
// GET /me/waves
func (h *BoardHandler) MeWaves(c *fiber.Ctx) error {
	address := middleware.GetWalletAddress(c)
	return c.JSON(dto.SuccessResponse{OK: true, Data: models.FilterBySender(h.board.Snapshot().Waves, address)})
}

// PUT /waves/pending
func (h *BoardHandler) SetPending(c *fiber.Ctx) error {
	var req dto.WaveMessageRequest
	if err := c.BodyParser(&req); err != nil || req.Message == nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "message is required"})
	}
	h.board.SetPendingMessage(*req.Message)
	return c.JSON(dto.SuccessResponse{OK: true})
}

// SubmitWave sends the pending message (optionally replaced by the body)
// and blocks until the transaction is mined.
// POST /waves
func (h *BoardHandler) SubmitWave(c *fiber.Ctx) error {
	var req dto.WaveMessageRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request body"})
		}
	}
	res := h.board.SubmitMessage(c.UserContext(), req.Message)
	switch res.Status {
	case waveboard.SubmitConfirmed:
		h.publishSubmitted(c.UserContext(), res)
		return c.JSON(dto.SuccessResponse{OK: true, Data: res})
	case waveboard.SubmitNoProvider:
		return c.Status(fiber.StatusPreconditionFailed).JSON(dto.ErrorResponse{
			Error: view.InstallWalletMessage, RequestID: middleware.GetRequestID(c),
		})
	case waveboard.SubmitBusy:
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{
			Error: "a wave is already being mined", RequestID: middleware.GetRequestID(c),
		})
	case waveboard.SubmitRejected:
		return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{
			Error: "wave rejected by wallet owner", RequestID: middleware.GetRequestID(c),
		})
	default:
		return c.Status(fiber.StatusBadGateway).JSON(dto.ErrorResponse{
			Error: "wave failed", RequestID: middleware.GetRequestID(c),
		})
	}
}

// Connect asks the wallet to authorize an account.
// POST /wallet/connect
func (h *BoardHandler) Connect(c *fiber.Ctx) error {
	if err := h.board.RequestAuthorization(c.UserContext()); err != nil {
		if errors.Is(err, waveboard.ErrProviderMissing) {
			return c.Status(fiber.StatusPreconditionFailed).JSON(dto.ErrorResponse{
				Error: view.InstallWalletMessage, RequestID: middleware.GetRequestID(c),
			})
		}
		h.log.Error("request authorization", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal error"})
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: dto.AccountResponse{Account: h.board.Snapshot().Account}})
}

func (h *BoardHandler) publishSubmitted(ctx context.Context, res waveboard.Submission) {
	if h.publisher == nil {
		return
	}
	err := h.publisher.Publish(ctx, events.StreamWaves, events.Event{
		Type:    events.EventWaveSubmitted,
		Payload: map[string]any{"tx_hash": res.TxHash},
	})
	if err != nil {
		h.log.Warn("publish wave_submitted", zap.Error(err))
	}
}
