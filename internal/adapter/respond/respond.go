// Package respond renders errors as {"error": message} bodies.
package respond

import (
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/Daniel-W1/vending-machine/internal/core/domain"
)

// StatusFor maps a domain error code to an HTTP status.
func StatusFor(err error) int {
	switch domain.CodeOf(err) {
	case domain.CodeValidation,
		domain.CodeInvalidDenomination,
		domain.CodeInsufficientStock,
		domain.CodeInsufficientFunds,
		domain.CodeConflict:
		return http.StatusBadRequest
	case domain.CodeUnauthorized,
		domain.CodeInvalidCredentials,
		domain.CodeTokenInvalid:
		return http.StatusUnauthorized
	case domain.CodeForbidden:
		return http.StatusForbidden
	case domain.CodeAccountNotFound,
		domain.CodeProductNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Error writes err to the client. Unexpected errors are logged and hidden
// behind a generic message.
func Error(c *fiber.Ctx, err error) error {
	status := StatusFor(err)
	if status == http.StatusInternalServerError {
		slog.Error("❌ Request failed", "method", c.Method(), "path", c.Path(), "error", err)
		return c.Status(status).JSON(fiber.Map{"error": "Internal server error"})
	}
	return c.Status(status).JSON(fiber.Map{"error": domain.MessageOf(err)})
}

// Message writes a plain error message with the given status.
func Message(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{"error": message})
}
