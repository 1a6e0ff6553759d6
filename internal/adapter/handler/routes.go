package handler

import (
	"github.com/gofiber/fiber/v2"

	"github.com/Daniel-W1/vending-machine/internal/adapter/middleware"
	"github.com/Daniel-W1/vending-machine/internal/core/domain"
)

// Routes binds the handlers to their paths.
type Routes struct {
	Accounts     *AccountHandler
	Auth         *AuthHandler
	Products     *ProductHandler
	Transactions *TransactionHandler

	Tokens      middleware.TokenVerifier
	Roles       middleware.AccountLookup
	Idempotency middleware.IdempotencyStore
}

func (r Routes) Register(app fiber.Router) {
	protected := middleware.Protected(r.Tokens)
	buyer := middleware.RequireRole(r.Roles, domain.RoleBuyer)
	seller := middleware.RequireRole(r.Roles, domain.RoleSeller)
	idempotent := middleware.Idempotency(r.Idempotency)

	// Public
	app.Post("/user", r.Accounts.CreateAccount)
	app.Get("/user", r.Accounts.ListAccounts)
	app.Post("/signin", r.Auth.SignIn)
	app.Post("/refresh", r.Auth.Refresh)
	app.Get("/product/get", r.Products.ListProducts)
	app.Get("/product/:id", r.Products.GetProduct)

	// Protected
	app.Get("/user/:id", protected, r.Accounts.GetAccount)
	app.Put("/user/:id", protected, r.Accounts.UpdateAccount)
	app.Delete("/user/:id", protected, r.Accounts.DeleteAccount)

	app.Post("/logout", protected, r.Auth.Logout)
	app.Post("/logout/all", protected, r.Auth.LogoutAll)
	app.Get("/active-sessions", protected, r.Auth.ActiveSessions)

	app.Post("/product", protected, seller, r.Products.CreateProduct)
	app.Put("/product/:id", protected, seller, r.Products.UpdateProduct)
	app.Delete("/product/:id", protected, seller, r.Products.DeleteProduct)

	app.Post("/deposit", protected, buyer, idempotent, r.Transactions.Deposit)
	app.Post("/buy", protected, buyer, idempotent, r.Transactions.Buy)
	app.Post("/reset", protected, buyer, r.Transactions.Reset)
	app.Get("/transactions", protected, r.Transactions.GetHistory)
}
