package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/Daniel-W1/vending-machine/internal/core/domain"
)

type ProductRepository struct {
	db DB
}

func NewProductRepository(db DB) *ProductRepository {
	return &ProductRepository{db: db}
}

// ProductUpdate lists the fields a seller may change on a listing.
type ProductUpdate struct {
	Name            *string
	Cost            *domain.Amount
	AmountAvailable *int
}

// Apply merges the non-nil fields into p.
func (u ProductUpdate) Apply(p *domain.Product) {
	if u.Name != nil {
		p.Name = *u.Name
	}
	if u.Cost != nil {
		p.Cost = *u.Cost
	}
	if u.AmountAvailable != nil {
		p.AmountAvailable = *u.AmountAvailable
	}
}

var errNotOwner = domain.ErrForbidden.WithMessage("You do not have permission to modify this product")

const productColumns = `id, product_name, seller_id, amount_available, cost`

func scanProduct(row pgx.Row) (*domain.Product, error) {
	var p domain.Product
	var cost int64
	err := row.Scan(&p.ID, &p.Name, &p.SellerID, &p.AmountAvailable, &cost)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrProductNotFound
	}
	if err != nil {
		return nil, err
	}
	p.Cost = domain.Amount(cost)
	return &p, nil
}

// CreateProduct stores a new listing owned by p.SellerID.
func (r *ProductRepository) CreateProduct(ctx context.Context, p domain.Product) (*domain.Product, error) {
	if err := domain.ValidateProduct(p); err != nil {
		return nil, err
	}

	query := `
		INSERT INTO products (product_name, seller_id, amount_available, cost)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + productColumns

	created, err := scanProduct(r.db.QueryRow(ctx, query, p.Name, p.SellerID, p.AmountAvailable, int64(p.Cost)))
	if err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}
	return created, nil
}

// GetProductByID
func (r *ProductRepository) GetProductByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	return scanProduct(r.db.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id))
}

// ListProducts returns every listing ordered by creation time.
func (r *ProductRepository) ListProducts(ctx context.Context) ([]domain.Product, error) {
	rows, err := r.db.Query(ctx, `SELECT `+productColumns+` FROM products ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	products := []domain.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, *p)
	}
	return products, rows.Err()
}

// UpdateProduct applies upd to a listing owned by sellerID.
// The row is locked so a concurrent purchase cannot interleave.
func (r *ProductRepository) UpdateProduct(ctx context.Context, id, sellerID uuid.UUID, upd ProductUpdate) (*domain.Product, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	p, err := scanProduct(tx.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, err
	}
	if p.SellerID != sellerID {
		return nil, errNotOwner
	}

	upd.Apply(p)
	if err := domain.ValidateProduct(*p); err != nil {
		return nil, err
	}

	_, err = tx.Exec(ctx, `
		UPDATE products SET product_name = $2, amount_available = $3, cost = $4
		WHERE id = $1`, id, p.Name, p.AmountAvailable, int64(p.Cost))
	if err != nil {
		return nil, fmt.Errorf("failed to update product: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return p, nil
}

// DeleteProduct removes a listing owned by sellerID.
func (r *ProductRepository) DeleteProduct(ctx context.Context, id, sellerID uuid.UUID) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	p, err := scanProduct(tx.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return err
	}
	if p.SellerID != sellerID {
		return domain.ErrForbidden.WithMessage("You do not have permission to delete this product")
	}

	if _, err := tx.Exec(ctx, `DELETE FROM products WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	return tx.Commit(ctx)
}
