package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/Daniel-W1/vending-machine/internal/adapter/respond"
	"github.com/Daniel-W1/vending-machine/internal/adapter/storage"
	"github.com/Daniel-W1/vending-machine/internal/core/domain"
)

type ProductStore interface {
	CreateProduct(ctx context.Context, p domain.Product) (*domain.Product, error)
	GetProductByID(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	ListProducts(ctx context.Context) ([]domain.Product, error)
	UpdateProduct(ctx context.Context, id, sellerID uuid.UUID, upd storage.ProductUpdate) (*domain.Product, error)
	DeleteProduct(ctx context.Context, id, sellerID uuid.UUID) error
}

type ProductHandler struct {
	Repo ProductStore
}

type CreateProductRequest struct {
	Name            string        `json:"product_name" validate:"required,max=30"`
	AmountAvailable int           `json:"amount_available" validate:"gte=0"`
	Cost            domain.Amount `json:"cost" validate:"gte=0"`
}

type UpdateProductRequest struct {
	Name            *string        `json:"product_name" validate:"omitempty,max=30"`
	AmountAvailable *int           `json:"amount_available" validate:"omitempty,gte=0"`
	Cost            *domain.Amount `json:"cost" validate:"omitempty,gte=0"`
}

// CreateProduct lists a new product owned by the calling seller.
func (h *ProductHandler) CreateProduct(c *fiber.Ctx) error {
	var req CreateProductRequest
	if err := parseBody(c, &req); err != nil {
		return respond.Error(c, err)
	}

	seller, err := caller(c)
	if err != nil {
		return respond.Error(c, err)
	}

	p := domain.Product{
		Name:            req.Name,
		SellerID:        seller.ID,
		AmountAvailable: req.AmountAvailable,
		Cost:            req.Cost,
	}
	if err := domain.ValidateProduct(p); err != nil {
		return respond.Error(c, err)
	}

	created, err := h.Repo.CreateProduct(c.Context(), p)
	if err != nil {
		return respond.Error(c, err)
	}

	slog.Info("📦 Product created", "id", created.ID, "seller_id", created.SellerID, "cost", created.Cost.String())
	return c.Status(http.StatusCreated).JSON(created)
}

func (h *ProductHandler) ListProducts(c *fiber.Ctx) error {
	products, err := h.Repo.ListProducts(c.Context())
	if err != nil {
		return respond.Error(c, err)
	}
	return c.JSON(products)
}

func (h *ProductHandler) GetProduct(c *fiber.Ctx) error {
	id, err := productParam(c)
	if err != nil {
		return respond.Error(c, err)
	}
	p, err := h.Repo.GetProductByID(c.Context(), id)
	if err != nil {
		return respond.Error(c, err)
	}
	return c.JSON(p)
}

func (h *ProductHandler) UpdateProduct(c *fiber.Ctx) error {
	id, err := productParam(c)
	if err != nil {
		return respond.Error(c, err)
	}

	var req UpdateProductRequest
	if err := parseBody(c, &req); err != nil {
		return respond.Error(c, err)
	}

	seller, err := caller(c)
	if err != nil {
		return respond.Error(c, err)
	}

	p, err := h.Repo.UpdateProduct(c.Context(), id, seller.ID, storage.ProductUpdate{
		Name:            req.Name,
		Cost:            req.Cost,
		AmountAvailable: req.AmountAvailable,
	})
	if err != nil {
		return respond.Error(c, err)
	}

	slog.Info("Product updated", "id", id, "seller", seller.Username)
	return c.JSON(p)
}

func (h *ProductHandler) DeleteProduct(c *fiber.Ctx) error {
	id, err := productParam(c)
	if err != nil {
		return respond.Error(c, err)
	}

	seller, err := caller(c)
	if err != nil {
		return respond.Error(c, err)
	}

	if err := h.Repo.DeleteProduct(c.Context(), id, seller.ID); err != nil {
		return respond.Error(c, err)
	}

	slog.Info("🗑️ Product deleted", "id", id, "seller", seller.Username)
	return c.SendStatus(http.StatusNoContent)
}

func productParam(c *fiber.Ctx) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return uuid.Nil, domain.ErrProductNotFound
	}
	return id, nil
}
