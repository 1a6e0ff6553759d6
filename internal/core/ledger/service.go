// Package ledger owns the money and inventory flow of the machine:
// coin deposits, purchases and deposit resets.
package ledger

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/Daniel-W1/vending-machine/internal/core/domain"
)

// HistoryLimit is the number of journal rows returned by History.
const HistoryLimit = 10

// Store persists deposits and stock. Every method must apply its writes in a
// single transaction that serializes against concurrent calls for the same
// account or product.
type Store interface {
	// Credit adds amount to the account's deposit and returns the new balance.
	Credit(ctx context.Context, accountID uuid.UUID, amount domain.Amount) (domain.Amount, error)

	// Purchase locks the account and product, settles the sale with
	// domain.Settle and writes both rows, or nothing.
	Purchase(ctx context.Context, accountID, productID uuid.UUID, quantity int) (*domain.Receipt, error)

	// Reset sets the account's deposit to zero.
	Reset(ctx context.Context, accountID uuid.UUID) error

	// History returns the most recent journal rows of the account.
	History(ctx context.Context, accountID uuid.UUID, limit int) ([]domain.LedgerEntry, error)
}

type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

// Deposit credits one coin to the account and returns the new balance.
func (s *Service) Deposit(ctx context.Context, accountID uuid.UUID, amount domain.Amount) (domain.Amount, error) {
	if !amount.IsCoin() {
		return 0, domain.ErrInvalidDenomination
	}

	balance, err := s.store.Credit(ctx, accountID, amount)
	if err != nil {
		return 0, err
	}

	slog.Info("💰 Deposit accepted",
		"account_id", accountID,
		"amount", amount.String(),
		"deposit", balance.String(),
	)
	return balance, nil
}

// Purchase buys quantity units of a product with the account's deposit.
func (s *Service) Purchase(ctx context.Context, accountID, productID uuid.UUID, quantity int) (*domain.Receipt, error) {
	if productID == uuid.Nil {
		return nil, domain.ErrValidation.WithMessage("Product ID and quantity are required")
	}
	if quantity <= 0 {
		return nil, domain.ErrValidation.WithMessage("Quantity must be a positive integer")
	}

	receipt, err := s.store.Purchase(ctx, accountID, productID, quantity)
	if err != nil {
		return nil, err
	}

	slog.Info("🛒 Purchase completed",
		"account_id", accountID,
		"product_id", productID,
		"quantity", quantity,
		"total_price", receipt.TotalPrice.String(),
	)
	return receipt, nil
}

// ResetDeposit sets the account's deposit to zero.
func (s *Service) ResetDeposit(ctx context.Context, accountID uuid.UUID) error {
	if err := s.store.Reset(ctx, accountID); err != nil {
		return err
	}
	slog.Info("Deposit reset", "account_id", accountID)
	return nil
}

// History returns the latest journal rows for the account.
func (s *Service) History(ctx context.Context, accountID uuid.UUID) ([]domain.LedgerEntry, error) {
	return s.store.History(ctx, accountID, HistoryLimit)
}
