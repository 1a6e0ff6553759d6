package domain

import "strings"

// Settle computes the result of buying quantity units of p from an account
// holding balance. Stock is checked before funds.
func Settle(balance Amount, p Product, quantity int) (*Receipt, error) {
	if quantity <= 0 {
		return nil, ErrValidation.WithMessage("Quantity must be a positive integer")
	}
	if quantity > p.AmountAvailable {
		return nil, ErrInsufficientStock
	}

	total, err := p.Cost.Times(quantity)
	if err != nil {
		return nil, err
	}
	remaining, err := balance.Subtract(total)
	if err != nil {
		return nil, err
	}

	return &Receipt{
		ProductID:        p.ID,
		ProductName:      p.Name,
		Quantity:         quantity,
		TotalPrice:       total,
		RemainingDeposit: remaining,
		RemainingStock:   p.AmountAvailable - quantity,
	}, nil
}

// ValidateProduct checks the invariants of a listing before it is stored.
func ValidateProduct(p Product) error {
	name := strings.TrimSpace(p.Name)
	if name == "" {
		return ErrValidation.WithMessage("Product name is required")
	}
	if len([]rune(name)) > MaxProductNameLen {
		return ErrValidation.WithMessage("Product name must be at most 30 characters")
	}
	if p.AmountAvailable < 0 {
		return ErrValidation.WithMessage("Amount available must not be negative")
	}
	if p.Cost < 0 {
		return ErrValidation.WithMessage("Cost must not be negative")
	}
	if !p.Cost.IsCoinMultiple() {
		return ErrValidation.WithMessage("Cost must be in multiples of 5 cents.")
	}
	return nil
}
