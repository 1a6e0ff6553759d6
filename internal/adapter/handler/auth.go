package handler

import (
	"context"
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/Daniel-W1/vending-machine/internal/adapter/middleware"
	"github.com/Daniel-W1/vending-machine/internal/adapter/respond"
	"github.com/Daniel-W1/vending-machine/internal/core/domain"
	"github.com/Daniel-W1/vending-machine/internal/core/security"
)

// Refresher mints access tokens from refresh tokens.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (string, error)
}

type AuthHandler struct {
	Accounts AccountStore
	Sessions Sessions
	Tokens   Refresher
}

type SignInRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type RefreshRequest struct {
	Refresh string `json:"refresh" validate:"required"`
}

type LogoutRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

func (h *AuthHandler) SignIn(c *fiber.Ctx) error {
	var req SignInRequest
	if err := parseBody(c, &req); err != nil {
		return respond.Error(c, err)
	}
	if req.Username == "" || req.Password == "" {
		return respond.Error(c, domain.ErrValidation.WithMessage("Username and password are required"))
	}

	account, err := h.Accounts.GetAccountByUsername(c.Context(), req.Username)
	if err != nil {
		return respond.Error(c, err)
	}
	if !security.CheckPassword(account.PasswordHash, req.Password) {
		slog.Warn("⚠️ Sign-in rejected", "username", req.Username)
		return respond.Error(c, domain.ErrInvalidCredentials)
	}

	pair, err := h.Sessions.Issue(c.Context(), account.ID)
	if err != nil {
		return respond.Error(c, err)
	}

	return c.JSON(fiber.Map{
		"refresh": pair.Refresh,
		"access":  pair.Access,
		"user":    account,
	})
}

func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	var req RefreshRequest
	if err := parseBody(c, &req); err != nil {
		return respond.Error(c, err)
	}

	access, err := h.Tokens.Refresh(c.Context(), req.Refresh)
	if errors.Is(err, domain.ErrTokenInvalid) {
		return respond.Error(c, domain.ErrTokenInvalid.WithMessage("Invalid or expired refresh token"))
	}
	if err != nil {
		return respond.Error(c, err)
	}
	return c.JSON(fiber.Map{"access": access})
}

func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	var req LogoutRequest
	if err := parseBody(c, &req); err != nil {
		return respond.Error(c, err)
	}

	if err := h.Sessions.RevokeOne(c.Context(), middleware.AccountID(c), req.RefreshToken); err != nil {
		return respond.Error(c, err)
	}
	return c.JSON(fiber.Map{"message": "Logged out successfully"})
}

func (h *AuthHandler) LogoutAll(c *fiber.Ctx) error {
	report, err := h.Sessions.RevokeAll(c.Context(), middleware.AccountID(c))
	if err != nil {
		return respond.Error(c, err)
	}
	return c.JSON(fiber.Map{
		"message": "All sessions logged out successfully",
		"revoked": report.Revoked,
		"failed":  report.Failed,
	})
}

func (h *AuthHandler) ActiveSessions(c *fiber.Ctx) error {
	n, err := h.Sessions.Count(c.Context(), middleware.AccountID(c))
	if err != nil {
		return respond.Error(c, err)
	}
	return c.JSON(fiber.Map{"active_sessions": n})
}
