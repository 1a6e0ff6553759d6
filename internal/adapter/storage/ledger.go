package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/Daniel-W1/vending-machine/internal/core/domain"
)

// LedgerRepository moves deposit and stock. Every method runs in one
// transaction and locks the rows it changes with SELECT ... FOR UPDATE,
// always account first, then product.
type LedgerRepository struct {
	db DB
}

func NewLedgerRepository(db DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

func lockDeposit(ctx context.Context, tx pgx.Tx, accountID uuid.UUID) (domain.Amount, error) {
	var deposit int64
	err := tx.QueryRow(ctx, `SELECT deposit FROM accounts WHERE id = $1 FOR UPDATE`, accountID).Scan(&deposit)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, domain.ErrAccountNotFound
	}
	if err != nil {
		return 0, err
	}
	return domain.Amount(deposit), nil
}

func journal(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, kind domain.EntryKind, amount domain.Amount, productID *uuid.UUID, quantity int) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO ledger_entries (account_id, kind, amount, product_id, quantity)
		VALUES ($1, $2, $3, $4, $5)`, accountID, string(kind), int64(amount), productID, quantity)
	if err != nil {
		return fmt.Errorf("failed to write ledger entry: %w", err)
	}
	return nil
}

// Credit adds amount to an account's deposit
func (r *LedgerRepository) Credit(ctx context.Context, accountID uuid.UUID, amount domain.Amount) (domain.Amount, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	balance, err := lockDeposit(ctx, tx, accountID)
	if err != nil {
		return 0, err
	}
	balance, err = balance.Add(amount)
	if err != nil {
		return 0, err
	}

	if _, err := tx.Exec(ctx, `UPDATE accounts SET deposit = $1 WHERE id = $2`, int64(balance), accountID); err != nil {
		return 0, err
	}
	if err := journal(ctx, tx, accountID, domain.EntryDeposit, amount, nil, 0); err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return balance, nil
}

// Purchase debits the buyer and the product's stock together
func (r *LedgerRepository) Purchase(ctx context.Context, accountID, productID uuid.UUID, quantity int) (*domain.Receipt, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	balance, err := lockDeposit(ctx, tx, accountID)
	if err != nil {
		return nil, err
	}

	product, err := scanProduct(tx.QueryRow(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = $1 FOR UPDATE`, productID))
	if err != nil {
		return nil, err
	}

	receipt, err := domain.Settle(balance, *product, quantity)
	if err != nil {
		return nil, err
	}

	if _, err := tx.Exec(ctx, `UPDATE accounts SET deposit = $1 WHERE id = $2`, int64(receipt.RemainingDeposit), accountID); err != nil {
		return nil, err
	}
	if _, err := tx.Exec(ctx, `UPDATE products SET amount_available = $1 WHERE id = $2`, receipt.RemainingStock, productID); err != nil {
		return nil, err
	}
	if err := journal(ctx, tx, accountID, domain.EntryPurchase, receipt.TotalPrice, &productID, quantity); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return receipt, nil
}

// Reset empties an account's deposit. The journal records what was cleared.
func (r *LedgerRepository) Reset(ctx context.Context, accountID uuid.UUID) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	balance, err := lockDeposit(ctx, tx, accountID)
	if err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, `UPDATE accounts SET deposit = 0 WHERE id = $1`, accountID); err != nil {
		return err
	}
	if err := journal(ctx, tx, accountID, domain.EntryReset, balance, nil, 0); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// History fetches the latest journal rows of an account
func (r *LedgerRepository) History(ctx context.Context, accountID uuid.UUID, limit int) ([]domain.LedgerEntry, error) {
	query := `
		SELECT id, account_id, kind, amount, product_id, quantity, created_at
		FROM ledger_entries
		WHERE account_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.db.Query(ctx, query, accountID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	history := []domain.LedgerEntry{}
	for rows.Next() {
		var e domain.LedgerEntry
		var kind string
		var amount int64
		if err := rows.Scan(&e.ID, &e.AccountID, &kind, &amount, &e.ProductID, &e.Quantity, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		e.Kind = domain.EntryKind(kind)
		e.Amount = domain.Amount(amount)
		history = append(history, e)
	}

	return history, rows.Err()
}
