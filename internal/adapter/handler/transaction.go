package handler

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/Daniel-W1/vending-machine/internal/adapter/middleware"
	"github.com/Daniel-W1/vending-machine/internal/adapter/respond"
	"github.com/Daniel-W1/vending-machine/internal/core/domain"
)

// Ledger is the money flow of the machine.
type Ledger interface {
	Deposit(ctx context.Context, accountID uuid.UUID, amount domain.Amount) (domain.Amount, error)
	Purchase(ctx context.Context, accountID, productID uuid.UUID, quantity int) (*domain.Receipt, error)
	ResetDeposit(ctx context.Context, accountID uuid.UUID) error
	History(ctx context.Context, accountID uuid.UUID) ([]domain.LedgerEntry, error)
}

type TransactionHandler struct {
	Ledger Ledger
}

// Request Models
type DepositRequest struct {
	Amount domain.Amount `json:"amount"` // 0.05, 0.10, 0.20, 0.50 or 1.00
}

type BuyRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// Deposit API
func (h *TransactionHandler) Deposit(c *fiber.Ctx) error {
	var req DepositRequest
	if err := parseBody(c, &req); err != nil {
		return respond.Error(c, err)
	}

	buyer, err := caller(c)
	if err != nil {
		return respond.Error(c, err)
	}

	balance, err := h.Ledger.Deposit(c.Context(), buyer.ID, req.Amount)
	if err != nil {
		return respond.Error(c, err)
	}

	return c.JSON(fiber.Map{"message": "Deposit successful", "deposit": balance})
}

// Buy API
func (h *TransactionHandler) Buy(c *fiber.Ctx) error {
	var req BuyRequest
	if err := parseBody(c, &req); err != nil {
		return respond.Error(c, err)
	}
	if req.ProductID == "" || req.Quantity == 0 {
		return respond.Error(c, domain.ErrValidation.WithMessage("Product ID and quantity are required"))
	}

	productID, err := uuid.Parse(req.ProductID)
	if err != nil {
		return respond.Error(c, domain.ErrProductNotFound)
	}

	buyer, err := caller(c)
	if err != nil {
		return respond.Error(c, err)
	}

	receipt, err := h.Ledger.Purchase(c.Context(), buyer.ID, productID, req.Quantity)
	if err != nil {
		return respond.Error(c, err)
	}

	return c.JSON(receipt)
}

func (h *TransactionHandler) Reset(c *fiber.Ctx) error {
	buyer, err := caller(c)
	if err != nil {
		return respond.Error(c, err)
	}
	if err := h.Ledger.ResetDeposit(c.Context(), buyer.ID); err != nil {
		return respond.Error(c, err)
	}
	return c.JSON(fiber.Map{"message": "Deposit reset successfully"})
}

// GetHistory returns the caller's most recent ledger entries.
func (h *TransactionHandler) GetHistory(c *fiber.Ctx) error {
	history, err := h.Ledger.History(c.Context(), middleware.AccountID(c))
	if err != nil {
		return respond.Error(c, err)
	}

	return c.JSON(fiber.Map{
		"transactions": history,
	})
}

// caller returns the account loaded by the role check in front of the route.
func caller(c *fiber.Ctx) (*domain.Account, error) {
	acc := middleware.CurrentAccount(c)
	if acc == nil {
		return nil, domain.ErrUnauthorized
	}
	return acc, nil
}
