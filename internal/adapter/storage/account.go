package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/Daniel-W1/vending-machine/internal/core/domain"
)

type AccountRepository struct {
	db DB
}

func NewAccountRepository(db DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// AccountUpdate lists the fields a user may change on their own account.
// Deposit is absent: only the ledger moves money.
type AccountUpdate struct {
	PasswordHash *string
	Role         *domain.Role
}

const accountColumns = `id, username, password_hash, role, deposit, created_at`

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var acc domain.Account
	var role string
	var deposit int64
	err := row.Scan(&acc.ID, &acc.Username, &acc.PasswordHash, &role, &deposit, &acc.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}
	acc.Role = domain.Role(role)
	acc.Deposit = domain.Amount(deposit)
	return &acc, nil
}

// CreateAccount inserts a new account with a zero deposit.
func (r *AccountRepository) CreateAccount(ctx context.Context, username, passwordHash string, role domain.Role) (*domain.Account, error) {
	query := `
		INSERT INTO accounts (username, password_hash, role, deposit)
		VALUES ($1, $2, $3, 0)
		RETURNING ` + accountColumns

	acc, err := scanAccount(r.db.QueryRow(ctx, query, username, passwordHash, string(role)))
	if isUniqueViolation(err) {
		return nil, domain.ErrUsernameTaken
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}
	return acc, nil
}

// GetAccountByID
func (r *AccountRepository) GetAccountByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	return scanAccount(r.db.QueryRow(ctx, query, id))
}

// GetAccountByUsername
func (r *AccountRepository) GetAccountByUsername(ctx context.Context, username string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE username = $1`
	return scanAccount(r.db.QueryRow(ctx, query, username))
}

// ListAccounts returns every account ordered by creation time.
func (r *AccountRepository) ListAccounts(ctx context.Context) ([]domain.Account, error) {
	rows, err := r.db.Query(ctx, `SELECT `+accountColumns+` FROM accounts ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	accounts := []domain.Account{}
	for rows.Next() {
		acc, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, *acc)
	}
	return accounts, rows.Err()
}

// UpdateAccount applies the non-nil fields of upd.
func (r *AccountRepository) UpdateAccount(ctx context.Context, id uuid.UUID, upd AccountUpdate) (*domain.Account, error) {
	var role *string
	if upd.Role != nil {
		s := string(*upd.Role)
		role = &s
	}

	query := `
		UPDATE accounts
		SET password_hash = COALESCE($2, password_hash),
		    role = COALESCE($3, role)
		WHERE id = $1
		RETURNING ` + accountColumns

	acc, err := scanAccount(r.db.QueryRow(ctx, query, id, upd.PasswordHash, role))
	if err != nil && !errors.Is(err, domain.ErrAccountNotFound) {
		return nil, fmt.Errorf("failed to update account: %w", err)
	}
	return acc, err
}

// DeleteAccount removes the account; its products and journal go with it.
func (r *AccountRepository) DeleteAccount(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM accounts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}
