package handlers

import (
	"context"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/waveportal/backend/internal/middleware"
	"github.com/waveportal/backend/internal/models"
	"go.uber.org/zap"
)

type fakeMeStore struct {
	wallets map[string]*models.VerifiedWallet
	limit   int
}

func (f *fakeMeStore) GetVerified(ctx context.Context, address string) (*models.VerifiedWallet, error) {
	w, ok := f.wallets[address]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return w, nil
}

func (f *fakeMeStore) ListByActor(ctx context.Context, address string, limit int) ([]models.AuditLog, error) {
	f.limit = limit
	return []models.AuditLog{{ActorAddress: address, Action: "wallet_verified"}}, nil
}

func meApp(store *fakeMeStore, address string) *fiber.App {
	h := NewMeHandler(store, store, zap.NewNop())
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals(middleware.CtxWalletAddress, address)
		return c.Next()
	})
	app.Get("/me", h.GetMe)
	app.Get("/me/activity", h.Activity)
	return app
}

func TestMeHandler(t *testing.T) {
	store := &fakeMeStore{wallets: map[string]*models.VerifiedWallet{
		testAccount: {Address: testAccount, Domain: "waveportal.test"},
	}}

	if status, _ := do(t, meApp(store, testAccount), "GET", "/me", ""); status != fiber.StatusOK {
		t.Errorf("verified: status = %d", status)
	}
	if status, _ := do(t, meApp(store, "0xdead"), "GET", "/me", ""); status != fiber.StatusNotFound {
		t.Errorf("unverified: status = %d, want 404", status)
	}

	status, _ := do(t, meApp(store, testAccount), "GET", "/me/activity?limit=5", "")
	if status != fiber.StatusOK || store.limit != 5 {
		t.Errorf("activity: status=%d limit=%d", status, store.limit)
	}
}
