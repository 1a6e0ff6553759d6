package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/Daniel-W1/vending-machine/internal/adapter/middleware"
	"github.com/Daniel-W1/vending-machine/internal/adapter/respond"
	"github.com/Daniel-W1/vending-machine/internal/adapter/storage"
	"github.com/Daniel-W1/vending-machine/internal/core/domain"
	"github.com/Daniel-W1/vending-machine/internal/core/security"
	"github.com/Daniel-W1/vending-machine/internal/core/session"
)

// AccountStore is the account persistence used by the user and auth handlers.
type AccountStore interface {
	CreateAccount(ctx context.Context, username, passwordHash string, role domain.Role) (*domain.Account, error)
	GetAccountByID(ctx context.Context, id uuid.UUID) (*domain.Account, error)
	GetAccountByUsername(ctx context.Context, username string) (*domain.Account, error)
	ListAccounts(ctx context.Context) ([]domain.Account, error)
	UpdateAccount(ctx context.Context, id uuid.UUID, upd storage.AccountUpdate) (*domain.Account, error)
	DeleteAccount(ctx context.Context, id uuid.UUID) error
}

// Sessions is the session registry as seen by the HTTP layer.
type Sessions interface {
	Issue(ctx context.Context, accountID uuid.UUID) (*security.TokenPair, error)
	RevokeOne(ctx context.Context, accountID uuid.UUID, refreshToken string) error
	RevokeAll(ctx context.Context, accountID uuid.UUID) (*session.RevokeReport, error)
	Count(ctx context.Context, accountID uuid.UUID) (int, error)
}

type AccountHandler struct {
	Repo     AccountStore
	Sessions Sessions
}

// CreateAccountRequest defines what the user sends us
type CreateAccountRequest struct {
	Username string `json:"username" validate:"required,max=150"`
	Password string `json:"password" validate:"required,max=72"`
	Role     string `json:"role" validate:"omitempty,oneof=buyer seller"`
}

type UpdateAccountRequest struct {
	Password *string `json:"password" validate:"omitempty,min=1,max=72"`
	Role     *string `json:"role" validate:"omitempty,oneof=buyer seller"`
}

var errNotSelf = domain.ErrForbidden.WithMessage("You do not have permission to modify this user")

func (h *AccountHandler) CreateAccount(c *fiber.Ctx) error {
	var req CreateAccountRequest

	// 1. Parse + validate
	if err := parseBody(c, &req); err != nil {
		return respond.Error(c, err)
	}
	role, err := domain.ParseRole(req.Role)
	if err != nil {
		return respond.Error(c, err)
	}

	// 2. Hash
	hash, err := security.HashPassword(req.Password)
	if err != nil {
		return respond.Error(c, err)
	}

	// 3. Call Storage
	account, err := h.Repo.CreateAccount(c.Context(), req.Username, hash, role)
	if err != nil {
		slog.Warn("Failed to create account", "error", err, "username", req.Username)
		return respond.Error(c, err)
	}

	slog.Info("✅ Account Created", "id", account.ID, "username", account.Username, "role", account.Role)

	// 4. Return Success
	return c.Status(http.StatusCreated).JSON(account)
}

func (h *AccountHandler) ListAccounts(c *fiber.Ctx) error {
	accounts, err := h.Repo.ListAccounts(c.Context())
	if err != nil {
		return respond.Error(c, err)
	}
	return c.JSON(accounts)
}

func (h *AccountHandler) GetAccount(c *fiber.Ctx) error {
	id, err := accountParam(c)
	if err != nil {
		return respond.Error(c, err)
	}
	account, err := h.Repo.GetAccountByID(c.Context(), id)
	if err != nil {
		return respond.Error(c, err)
	}
	return c.JSON(account)
}

// UpdateAccount changes the caller's own password or role. Deposit is not
// writable here.
func (h *AccountHandler) UpdateAccount(c *fiber.Ctx) error {
	id, err := h.ownAccount(c)
	if err != nil {
		return respond.Error(c, err)
	}

	var req UpdateAccountRequest
	if err := parseBody(c, &req); err != nil {
		return respond.Error(c, err)
	}

	var upd storage.AccountUpdate
	if req.Password != nil {
		hash, err := security.HashPassword(*req.Password)
		if err != nil {
			return respond.Error(c, err)
		}
		upd.PasswordHash = &hash
	}
	if req.Role != nil {
		role, err := domain.ParseRole(*req.Role)
		if err != nil {
			return respond.Error(c, err)
		}
		upd.Role = &role
	}

	account, err := h.Repo.UpdateAccount(c.Context(), id, upd)
	if err != nil {
		return respond.Error(c, err)
	}

	slog.Info("Account updated", "id", id, "password_changed", upd.PasswordHash != nil, "role", account.Role)
	return c.JSON(account)
}

// DeleteAccount removes the caller's account and ends all of its sessions.
func (h *AccountHandler) DeleteAccount(c *fiber.Ctx) error {
	id, err := h.ownAccount(c)
	if err != nil {
		return respond.Error(c, err)
	}

	if err := h.Repo.DeleteAccount(c.Context(), id); err != nil {
		return respond.Error(c, err)
	}

	// The account is already gone; revocation failures are only logged.
	if _, err := h.Sessions.RevokeAll(c.Context(), id); err != nil {
		slog.Error("❌ Failed to revoke sessions of deleted account", "id", id, "error", err)
	}

	slog.Info("🗑️ Account deleted", "id", id)
	return c.SendStatus(http.StatusNoContent)
}

// ownAccount parses the :id param and insists it is the caller.
func (h *AccountHandler) ownAccount(c *fiber.Ctx) (uuid.UUID, error) {
	id, err := accountParam(c)
	if err != nil {
		return uuid.Nil, err
	}
	if _, err := h.Repo.GetAccountByID(c.Context(), id); err != nil {
		return uuid.Nil, err
	}
	if id != middleware.AccountID(c) {
		return uuid.Nil, errNotSelf
	}
	return id, nil
}

func accountParam(c *fiber.Ctx) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return uuid.Nil, domain.ErrAccountNotFound
	}
	return id, nil
}
