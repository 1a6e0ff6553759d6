package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/Daniel-W1/vending-machine/internal/adapter/respond"
	"github.com/Daniel-W1/vending-machine/internal/core/domain"
)

// AccountLookup loads the caller's current record.
type AccountLookup interface {
	GetAccountByID(ctx context.Context, id uuid.UUID) (*domain.Account, error)
}

// RequireRole lets the request through only if the caller currently holds
// role. It must run after Protected.
func RequireRole(accounts AccountLookup, role domain.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		acc, err := accounts.GetAccountByID(c.Context(), AccountID(c))
		if errors.Is(err, domain.ErrAccountNotFound) {
			return respond.Error(c, domain.ErrUnauthorized)
		}
		if err != nil {
			return respond.Error(c, err)
		}

		if err := checkRole(acc.Role, role); err != nil {
			slog.Warn("Role check failed", "account_id", acc.ID, "role", acc.Role, "required", role)
			return respond.Error(c, err)
		}

		c.Locals(localAccount, acc)
		return c.Next()
	}
}

func checkRole(have, want domain.Role) error {
	switch have {
	case domain.RoleBuyer, domain.RoleSeller:
	default:
		return domain.ErrForbidden.WithMessage(fmt.Sprintf("Unknown role %q", have))
	}
	if have != want {
		return domain.ErrForbidden.WithMessage(fmt.Sprintf("You need to be a %s to perform this action", want))
	}
	return nil
}

// CurrentAccount returns the record loaded by RequireRole, if any.
func CurrentAccount(c *fiber.Ctx) *domain.Account {
	acc, _ := c.Locals(localAccount).(*domain.Account)
	return acc
}
