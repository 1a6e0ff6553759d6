package domain

import (
	"time"

	"github.com/google/uuid"
)

// Role is the closed set of account roles.
type Role string

const (
	RoleBuyer  Role = "buyer"
	RoleSeller Role = "seller"
)

// ParseRole validates a role string. An empty string yields the default role.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case "":
		return RoleBuyer, nil
	case RoleBuyer:
		return RoleBuyer, nil
	case RoleSeller:
		return RoleSeller, nil
	default:
		return "", ErrValidation.WithMessage(`Role must be "buyer" or "seller"`)
	}
}

// Account is a registered user of the machine.
type Account struct {
	ID           uuid.UUID `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	Deposit      Amount    `json:"deposit"`
	CreatedAt    time.Time `json:"created_at"`
}

// MaxProductNameLen bounds Product.Name, in characters.
const MaxProductNameLen = 30

// Product is a listing owned by a seller.
type Product struct {
	ID              uuid.UUID `json:"id"`
	Name            string    `json:"product_name"`
	SellerID        uuid.UUID `json:"seller_id"`
	AmountAvailable int       `json:"amount_available"`
	Cost            Amount    `json:"cost"`
}

// Receipt is the outcome of a successful purchase.
type Receipt struct {
	ProductID        uuid.UUID `json:"product_id"`
	ProductName      string    `json:"product_name"`
	Quantity         int       `json:"quantity"`
	TotalPrice       Amount    `json:"total_price"`
	RemainingDeposit Amount    `json:"change"`
	RemainingStock   int       `json:"-"`
}

// EntryKind tags a row of the ledger journal.
type EntryKind string

const (
	EntryDeposit  EntryKind = "deposit"
	EntryPurchase EntryKind = "purchase"
	EntryReset    EntryKind = "reset"
)

// LedgerEntry records one mutation of an account's deposit.
type LedgerEntry struct {
	ID        uuid.UUID  `json:"id"`
	AccountID uuid.UUID  `json:"account_id"`
	Kind      EntryKind  `json:"kind"`
	Amount    Amount     `json:"amount"`
	ProductID *uuid.UUID `json:"product_id,omitempty"`
	Quantity  int        `json:"quantity,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}
