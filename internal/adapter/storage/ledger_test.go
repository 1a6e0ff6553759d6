package storage

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Daniel-W1/vending-machine/internal/core/domain"
)

var (
	sqlLockDeposit   = regexp.QuoteMeta(`SELECT deposit FROM accounts WHERE id = $1 FOR UPDATE`)
	sqlLockProduct   = regexp.QuoteMeta(`SELECT ` + productColumns + ` FROM products WHERE id = $1 FOR UPDATE`)
	sqlSetDeposit    = regexp.QuoteMeta(`UPDATE accounts SET deposit = $1 WHERE id = $2`)
	sqlClearDeposit  = regexp.QuoteMeta(`UPDATE accounts SET deposit = 0 WHERE id = $1`)
	sqlSetStock      = regexp.QuoteMeta(`UPDATE products SET amount_available = $1 WHERE id = $2`)
	sqlJournal       = regexp.QuoteMeta(`INSERT INTO ledger_entries`)
	productRowFields = []string{"id", "product_name", "seller_id", "amount_available", "cost"}
)

func newMockPool(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock
}

func expectLockDeposit(mock pgxmock.PgxPoolIface, accountID uuid.UUID, deposit int64) {
	mock.ExpectQuery(sqlLockDeposit).
		WithArgs(accountID).
		WillReturnRows(mock.NewRows([]string{"deposit"}).AddRow(deposit))
}

func expectLockProduct(mock pgxmock.PgxPoolIface, p domain.Product) {
	mock.ExpectQuery(sqlLockProduct).
		WithArgs(p.ID).
		WillReturnRows(mock.NewRows(productRowFields).
			AddRow(p.ID, p.Name, p.SellerID, p.AmountAvailable, int64(p.Cost)))
}

func TestCreditJournalsAndCommits(t *testing.T) {
	mock := newMockPool(t)
	repo := NewLedgerRepository(mock)
	account := uuid.New()

	mock.ExpectBegin()
	expectLockDeposit(mock, account, 40)
	mock.ExpectExec(sqlSetDeposit).
		WithArgs(int64(140), account).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(sqlJournal).
		WithArgs(account, string(domain.EntryDeposit), int64(100), pgxmock.AnyArg(), 0).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	balance, err := repo.Credit(context.Background(), account, 100)
	require.NoError(t, err)
	assert.Equal(t, domain.Amount(140), balance)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreditUnknownAccountRollsBack(t *testing.T) {
	mock := newMockPool(t)
	repo := NewLedgerRepository(mock)
	account := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(sqlLockDeposit).WithArgs(account).WillReturnError(pgx.ErrNoRows)
	mock.ExpectRollback()

	_, err := repo.Credit(context.Background(), account, 5)
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPurchaseCommitsAllWrites(t *testing.T) {
	mock := newMockPool(t)
	repo := NewLedgerRepository(mock)
	account := uuid.New()
	product := domain.Product{ID: uuid.New(), Name: "Cola", SellerID: uuid.New(), AmountAvailable: 5, Cost: 65}

	mock.ExpectBegin()
	expectLockDeposit(mock, account, 200)
	expectLockProduct(mock, product)
	mock.ExpectExec(sqlSetDeposit).
		WithArgs(int64(70), account).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(sqlSetStock).
		WithArgs(3, product.ID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(sqlJournal).
		WithArgs(account, string(domain.EntryPurchase), int64(130), pgxmock.AnyArg(), 2).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	receipt, err := repo.Purchase(context.Background(), account, product.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, domain.Amount(130), receipt.TotalPrice)
	assert.Equal(t, domain.Amount(70), receipt.RemainingDeposit)
	assert.Equal(t, 3, receipt.RemainingStock)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPurchaseFailedStockWriteRollsBack(t *testing.T) {
	mock := newMockPool(t)
	repo := NewLedgerRepository(mock)
	account := uuid.New()
	product := domain.Product{ID: uuid.New(), Name: "Cola", SellerID: uuid.New(), AmountAvailable: 5, Cost: 65}

	mock.ExpectBegin()
	expectLockDeposit(mock, account, 200)
	expectLockProduct(mock, product)
	mock.ExpectExec(sqlSetDeposit).
		WithArgs(int64(135), account).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(sqlSetStock).
		WithArgs(4, product.ID).
		WillReturnError(errors.New("connection reset"))
	// No journal row and no commit: the deposit write above is undone.
	mock.ExpectRollback()

	_, err := repo.Purchase(context.Background(), account, product.ID, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPurchaseRejectedBeforeAnyWrite(t *testing.T) {
	product := domain.Product{ID: uuid.New(), Name: "Cola", SellerID: uuid.New(), AmountAvailable: 1, Cost: 65}

	tests := []struct {
		name     string
		deposit  int64
		quantity int
		want     error
	}{
		{"not enough deposit", 50, 1, domain.ErrInsufficientFunds},
		{"not enough stock", 500, 2, domain.ErrInsufficientStock},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := newMockPool(t)
			repo := NewLedgerRepository(mock)
			account := uuid.New()

			mock.ExpectBegin()
			expectLockDeposit(mock, account, tt.deposit)
			expectLockProduct(mock, product)
			mock.ExpectRollback()

			_, err := repo.Purchase(context.Background(), account, product.ID, tt.quantity)
			assert.ErrorIs(t, err, tt.want)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestPurchaseUnknownProduct(t *testing.T) {
	mock := newMockPool(t)
	repo := NewLedgerRepository(mock)
	account := uuid.New()
	productID := uuid.New()

	mock.ExpectBegin()
	expectLockDeposit(mock, account, 100)
	mock.ExpectQuery(sqlLockProduct).WithArgs(productID).WillReturnError(pgx.ErrNoRows)
	mock.ExpectRollback()

	_, err := repo.Purchase(context.Background(), account, productID, 1)
	assert.ErrorIs(t, err, domain.ErrProductNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResetJournalsClearedAmount(t *testing.T) {
	mock := newMockPool(t)
	repo := NewLedgerRepository(mock)
	account := uuid.New()

	mock.ExpectBegin()
	expectLockDeposit(mock, account, 155)
	mock.ExpectExec(sqlClearDeposit).
		WithArgs(account).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(sqlJournal).
		WithArgs(account, string(domain.EntryReset), int64(155), pgxmock.AnyArg(), 0).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Reset(context.Background(), account))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResetFailedJournalRollsBack(t *testing.T) {
	mock := newMockPool(t)
	repo := NewLedgerRepository(mock)
	account := uuid.New()

	mock.ExpectBegin()
	expectLockDeposit(mock, account, 155)
	mock.ExpectExec(sqlClearDeposit).
		WithArgs(account).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(sqlJournal).WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err := repo.Reset(context.Background(), account)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to write ledger entry")
	assert.NoError(t, mock.ExpectationsWereMet())
}
