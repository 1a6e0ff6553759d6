package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/Daniel-W1/vending-machine/internal/adapter/respond"
)

// IdempotencyStore persists the first successful response per key.
type IdempotencyStore interface {
	// Reserve claims key for the calling request. It reports false when
	// another request already holds or has completed the key.
	Reserve(ctx context.Context, key string) (bool, error)
	// Lookup returns the stored response; found is false while the key is
	// only reserved.
	Lookup(ctx context.Context, key string) (status int, body []byte, found bool, err error)
	Save(ctx context.Context, key string, status int, body []byte) error
	// Release drops a reservation that produced no response worth keeping.
	Release(ctx context.Context, key string) error
}

// Idempotency replays the stored response when a caller retries a request
// with the same Idempotency-Key header. The key is reserved before the
// handler runs, so two concurrent requests never both execute. Keys are
// scoped to the caller, so it must run after Protected. Only 2xx responses
// are stored.
func Idempotency(store IdempotencyStore) fiber.Handler {
	return func(c *fiber.Ctx) error {
		// 1. Get Key from Header
		header := c.Get("Idempotency-Key")
		if header == "" {
			return c.Next()
		}
		key := AccountID(c).String() + ":" + c.Path() + ":" + header

		// 2. Claim the key, or replay whoever got there first
		reserved, err := store.Reserve(c.Context(), key)
		if err != nil {
			return respond.Error(c, err)
		}
		if !reserved {
			status, body, found, err := store.Lookup(c.Context(), key)
			if err != nil {
				return respond.Error(c, err)
			}
			if !found {
				slog.Warn("Idempotency key in flight", "key", header)
				return respond.Message(c, http.StatusConflict, "A request with this Idempotency-Key is already in progress")
			}
			slog.Info("🛑 Idempotency Hit! Returning cached response", "key", header)
			c.Set("X-Idempotency-Hit", "true")
			c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
			return c.Status(status).Send(body)
		}

		// 3. Run the Handler
		if err := c.Next(); err != nil {
			release(c.Context(), store, key, header)
			return err
		}

		// 4. Save the Result, or free the key for a retry
		resStatus := c.Response().StatusCode()
		if resStatus < 200 || resStatus >= 300 {
			release(c.Context(), store, key, header)
			return nil
		}
		resBody := append([]byte(nil), c.Response().Body()...)

		if err := store.Save(c.Context(), key, resStatus, resBody); err != nil {
			slog.Error("❌ Failed to save Idempotency Key", "error", err, "key", header)
		} else {
			slog.Debug("💾 Idempotency Key Saved", "key", header)
		}
		return nil
	}
}

func release(ctx context.Context, store IdempotencyStore, key, header string) {
	if err := store.Release(ctx, key); err != nil {
		slog.Error("❌ Failed to release Idempotency Key", "error", err, "key", header)
	}
}
