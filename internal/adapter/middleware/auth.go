package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/Daniel-W1/vending-machine/internal/adapter/respond"
	"github.com/Daniel-W1/vending-machine/internal/core/domain"
	"github.com/Daniel-W1/vending-machine/internal/core/security"
)

const (
	localAccountID = "account_id"
	localAccount   = "account"
)

// TokenVerifier checks access tokens.
type TokenVerifier interface {
	Verify(ctx context.Context, token string, want security.TokenType) (*security.Claims, error)
}

// Protected rejects requests without a live access token and stores the
// caller's account id for the handlers.
func Protected(tokens TokenVerifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		// 1. Get Token from Header
		authHeader := c.Get("Authorization") // "Bearer eyJhbGciOi..."
		if authHeader == "" {
			return respond.Message(c, http.StatusUnauthorized, "Authentication credentials were not provided")
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
			return respond.Message(c, http.StatusUnauthorized, "Invalid Header Format")
		}
		token := parts[1]

		// 2. Verify signature, expiry and session
		claims, err := tokens.Verify(c.Context(), token, security.AccessToken)
		if err != nil {
			return respond.Error(c, err)
		}

		accountID, err := uuid.Parse(claims.AccountID)
		if err != nil {
			return respond.Error(c, domain.ErrTokenInvalid)
		}

		// 3. Save Account ID to Context (So handler knows who is calling)
		c.Locals(localAccountID, accountID)

		return c.Next()
	}
}

// AccountID returns the caller stored by Protected, or uuid.Nil.
func AccountID(c *fiber.Ctx) uuid.UUID {
	id, _ := c.Locals(localAccountID).(uuid.UUID)
	return id
}

