package handlers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/waveportal/backend/internal/view"
	"github.com/waveportal/backend/internal/waveboard"
	"go.uber.org/zap"
)

// PageHandler serves the HTML board and its two forms.
type PageHandler struct {
	board Board
	log   *zap.Logger
}

func NewPageHandler(board Board, log *zap.Logger) *PageHandler {
	return &PageHandler{board: board, log: log}
}

// GET /
func (h *PageHandler) Index(c *fiber.Ctx) error {
	c.Type("html", "utf-8")
	if err := view.Render(c.Response().BodyWriter(), view.Build(h.board.Snapshot(), time.Now())); err != nil {
		h.log.Error("render page", zap.Error(err))
		return fiber.ErrInternalServerError
	}
	return nil
}

// POST /waves (form)
func (h *PageHandler) SubmitForm(c *fiber.Ctx) error {
	message := c.FormValue("message")
	res := h.board.SubmitMessage(c.UserContext(), &message)
	h.log.Debug("form wave", zap.String("status", string(res.Status)))
	return c.Redirect("/", fiber.StatusSeeOther)
}

// POST /connect (form)
func (h *PageHandler) ConnectForm(c *fiber.Ctx) error {
	if err := h.board.RequestAuthorization(c.UserContext()); err != nil && !errors.Is(err, waveboard.ErrProviderMissing) {
		h.log.Error("request authorization", zap.Error(err))
	}
	return c.Redirect("/", fiber.StatusSeeOther)
}
