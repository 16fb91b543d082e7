package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/waveportal/backend/internal/auth"
	"github.com/waveportal/backend/internal/http/dto"
	"go.uber.org/zap"
)

const CtxWalletAddress = "wallet_address"

// AuthMiddleware требует Bearer-токен, выданный после проверки подписи кошелька.
func AuthMiddleware(jwtSecret string, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenStr, ok := bearerToken(c.Get(fiber.HeaderAuthorization))
		if !ok {
			return unauthorized(c, "missing or malformed bearer token")
		}

		claims, err := auth.ParseJWT(jwtSecret, tokenStr)
		if err != nil {
			log.Debug("jwt rejected", zap.String("request_id", GetRequestID(c)), zap.Error(err))
			return unauthorized(c, "invalid or expired token")
		}

		c.Locals(CtxWalletAddress, claims.Address)
		return c.Next()
	}
}

func GetWalletAddress(c *fiber.Ctx) string {
	addr, _ := c.Locals(CtxWalletAddress).(string)
	return addr
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func unauthorized(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Error: msg, RequestID: GetRequestID(c)})
}
