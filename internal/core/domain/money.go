package domain

import (
	"math"

	"github.com/shopspring/decimal"
)

// Amount holds money in minor units (cents).
// Example: 1.05 is stored as 105.
type Amount int64

// Coins lists the denominations accepted by Deposit, in cents.
var Coins = []Amount{5, 10, 20, 50, 100}

// MinCoin is the smallest coin; product prices must be a multiple of it.
const MinCoin Amount = 5

// AmountFromDecimal converts a decimal currency value into cents.
// Values with more than two decimal places or a negative sign are rejected.
func AmountFromDecimal(d decimal.Decimal) (Amount, error) {
	if d.IsNegative() {
		return 0, ErrValidation.WithMessage("Amount must not be negative")
	}
	cents := d.Shift(2)
	if !cents.IsInteger() {
		return 0, ErrValidation.WithMessage("Amount must have at most two decimal places")
	}
	if cents.GreaterThan(decimal.NewFromInt(math.MaxInt64)) {
		return 0, ErrValidation.WithMessage("Amount is too large")
	}
	return Amount(cents.IntPart()), nil
}

// Decimal renders the amount in major units.
func (a Amount) Decimal() decimal.Decimal {
	return decimal.New(int64(a), -2)
}

func (a Amount) String() string {
	return a.Decimal().StringFixed(2)
}

// MarshalJSON writes the amount as a JSON number with two decimals.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalJSON accepts either a JSON number or a numeric string.
func (a *Amount) UnmarshalJSON(b []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(b); err != nil {
		return ErrValidation.WithMessage("Amount must be a number").Wrap(err)
	}
	v, err := AmountFromDecimal(d)
	if err != nil {
		return err
	}
	*a = v
	return nil
}

// IsCoin reports whether a is exactly one of the accepted denominations.
func (a Amount) IsCoin() bool {
	for _, c := range Coins {
		if a == c {
			return true
		}
	}
	return false
}

// IsCoinMultiple reports whether a can be paid with the smallest coin.
func (a Amount) IsCoinMultiple() bool {
	return a%MinCoin == 0
}

// Add adds two amounts, refusing to overflow.
func (a Amount) Add(other Amount) (Amount, error) {
	if other > 0 && a > math.MaxInt64-other {
		return 0, ErrValidation.WithMessage("Amount is too large")
	}
	return a + other, nil
}

// Subtract takes other away from a. It never goes below zero.
func (a Amount) Subtract(other Amount) (Amount, error) {
	if a < other {
		return 0, ErrInsufficientFunds
	}
	return a - other, nil
}

// Times multiplies a unit price by a quantity.
func (a Amount) Times(quantity int) (Amount, error) {
	if quantity < 0 {
		return 0, ErrValidation.WithMessage("Quantity must not be negative")
	}
	if quantity != 0 && a > Amount(math.MaxInt64/int64(quantity)) {
		return 0, ErrValidation.WithMessage("Amount is too large")
	}
	return a * Amount(quantity), nil
}
