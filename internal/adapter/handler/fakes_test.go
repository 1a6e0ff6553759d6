package handler

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Daniel-W1/vending-machine/internal/adapter/storage"
	"github.com/Daniel-W1/vending-machine/internal/core/domain"
	"github.com/Daniel-W1/vending-machine/internal/core/security"
	"github.com/Daniel-W1/vending-machine/internal/core/session"
)

// memAccounts backs accounts, products and deposits with maps so the
// handlers and the ledger service see one consistent state.
type memAccounts struct {
	mu       sync.Mutex
	accounts map[uuid.UUID]*domain.Account
	products map[uuid.UUID]*domain.Product
	entries  []domain.LedgerEntry
}

func newMemAccounts() *memAccounts {
	return &memAccounts{
		accounts: make(map[uuid.UUID]*domain.Account),
		products: make(map[uuid.UUID]*domain.Product),
	}
}

func (m *memAccounts) CreateAccount(ctx context.Context, username, passwordHash string, role domain.Role) (*domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.accounts {
		if a.Username == username {
			return nil, domain.ErrUsernameTaken
		}
	}
	acc := &domain.Account{ID: uuid.New(), Username: username, PasswordHash: passwordHash, Role: role, CreatedAt: time.Now()}
	m.accounts[acc.ID] = acc
	cp := *acc
	return &cp, nil
}

func (m *memAccounts) GetAccountByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	acc, ok := m.accounts[id]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	cp := *acc
	return &cp, nil
}

func (m *memAccounts) GetAccountByUsername(ctx context.Context, username string) (*domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.accounts {
		if a.Username == username {
			cp := *a
			return &cp, nil
		}
	}
	return nil, domain.ErrAccountNotFound
}

func (m *memAccounts) ListAccounts(ctx context.Context) ([]domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.Account{}
	for _, a := range m.accounts {
		out = append(out, *a)
	}
	return out, nil
}

func (m *memAccounts) UpdateAccount(ctx context.Context, id uuid.UUID, upd storage.AccountUpdate) (*domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	acc, ok := m.accounts[id]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	if upd.PasswordHash != nil {
		acc.PasswordHash = *upd.PasswordHash
	}
	if upd.Role != nil {
		acc.Role = *upd.Role
	}
	cp := *acc
	return &cp, nil
}

func (m *memAccounts) DeleteAccount(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.accounts[id]; !ok {
		return domain.ErrAccountNotFound
	}
	delete(m.accounts, id)
	return nil
}

func (m *memAccounts) CreateProduct(ctx context.Context, p domain.Product) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.ID = uuid.New()
	m.products[p.ID] = &p
	cp := p
	return &cp, nil
}

func (m *memAccounts) GetProductByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return nil, domain.ErrProductNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memAccounts) ListProducts(ctx context.Context) ([]domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.Product{}
	for _, p := range m.products {
		out = append(out, *p)
	}
	return out, nil
}

func (m *memAccounts) UpdateProduct(ctx context.Context, id, sellerID uuid.UUID, upd storage.ProductUpdate) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return nil, domain.ErrProductNotFound
	}
	if p.SellerID != sellerID {
		return nil, domain.ErrForbidden.WithMessage("You do not have permission to modify this product")
	}
	next := *p
	upd.Apply(&next)
	if err := domain.ValidateProduct(next); err != nil {
		return nil, err
	}
	*p = next
	return &next, nil
}

func (m *memAccounts) DeleteProduct(ctx context.Context, id, sellerID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return domain.ErrProductNotFound
	}
	if p.SellerID != sellerID {
		return domain.ErrForbidden.WithMessage("You do not have permission to delete this product")
	}
	delete(m.products, id)
	return nil
}

// ledger.Store

func (m *memAccounts) Credit(ctx context.Context, accountID uuid.UUID, amount domain.Amount) (domain.Amount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	acc, ok := m.accounts[accountID]
	if !ok {
		return 0, domain.ErrAccountNotFound
	}
	next, err := acc.Deposit.Add(amount)
	if err != nil {
		return 0, err
	}
	acc.Deposit = next
	m.entries = append(m.entries, domain.LedgerEntry{ID: uuid.New(), AccountID: accountID, Kind: domain.EntryDeposit, Amount: amount, CreatedAt: time.Now()})
	return next, nil
}

func (m *memAccounts) Purchase(ctx context.Context, accountID, productID uuid.UUID, quantity int) (*domain.Receipt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	acc, ok := m.accounts[accountID]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	p, ok := m.products[productID]
	if !ok {
		return nil, domain.ErrProductNotFound
	}
	receipt, err := domain.Settle(acc.Deposit, *p, quantity)
	if err != nil {
		return nil, err
	}
	acc.Deposit = receipt.RemainingDeposit
	p.AmountAvailable = receipt.RemainingStock
	pid := productID
	m.entries = append(m.entries, domain.LedgerEntry{ID: uuid.New(), AccountID: accountID, Kind: domain.EntryPurchase, Amount: receipt.TotalPrice, ProductID: &pid, Quantity: quantity, CreatedAt: time.Now()})
	return receipt, nil
}

func (m *memAccounts) Reset(ctx context.Context, accountID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	acc, ok := m.accounts[accountID]
	if !ok {
		return domain.ErrAccountNotFound
	}
	m.entries = append(m.entries, domain.LedgerEntry{ID: uuid.New(), AccountID: accountID, Kind: domain.EntryReset, Amount: acc.Deposit, CreatedAt: time.Now()})
	acc.Deposit = 0
	return nil
}

func (m *memAccounts) History(ctx context.Context, accountID uuid.UUID, limit int) ([]domain.LedgerEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.LedgerEntry{}
	for i := len(m.entries) - 1; i >= 0 && len(out) < limit; i-- {
		if m.entries[i].AccountID == accountID {
			out = append(out, m.entries[i])
		}
	}
	return out, nil
}

// fakeSessions records registry calls and hands out predictable tokens.
type fakeSessions struct {
	mu      sync.Mutex
	issued  map[uuid.UUID][]string
	revoked []string
	allFor  []uuid.UUID
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{issued: make(map[uuid.UUID][]string)}
}

func (f *fakeSessions) Issue(ctx context.Context, accountID uuid.UUID) (*security.TokenPair, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	refresh := "refresh-" + uuid.NewString()
	f.issued[accountID] = append(f.issued[accountID], refresh)
	return &security.TokenPair{Access: "access-" + accountID.String(), Refresh: refresh}, nil
}

func (f *fakeSessions) RevokeOne(ctx context.Context, accountID uuid.UUID, refreshToken string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.revoked = append(f.revoked, refreshToken)
	tokens := f.issued[accountID]
	for i, t := range tokens {
		if t == refreshToken {
			f.issued[accountID] = append(tokens[:i], tokens[i+1:]...)
			break
		}
	}
	return nil
}

func (f *fakeSessions) RevokeAll(ctx context.Context, accountID uuid.UUID) (*session.RevokeReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.allFor = append(f.allFor, accountID)
	n := len(f.issued[accountID])
	delete(f.issued, accountID)
	return &session.RevokeReport{Revoked: n}, nil
}

func (f *fakeSessions) Count(ctx context.Context, accountID uuid.UUID) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.issued[accountID]), nil
}

type fakeRefresher struct {
	valid map[string]bool
}

func (f *fakeRefresher) Refresh(ctx context.Context, refreshToken string) (string, error) {
	if !f.valid[refreshToken] {
		return "", domain.ErrTokenInvalid
	}
	return "access-from-" + refreshToken, nil
}

// fakeVerifier accepts "access-<uuid>" tokens minted by fakeSessions.
type fakeVerifier struct{}

func (fakeVerifier) Verify(ctx context.Context, token string, want security.TokenType) (*security.Claims, error) {
	const prefix = "access-"
	if want != security.AccessToken || len(token) <= len(prefix) || token[:len(prefix)] != prefix {
		return nil, domain.ErrTokenInvalid
	}
	id, err := uuid.Parse(token[len(prefix):])
	if err != nil {
		return nil, domain.ErrTokenInvalid
	}
	return &security.Claims{AccountID: id.String(), Type: security.AccessToken}, nil
}
