package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"

	"github.com/Daniel-W1/vending-machine/internal/adapter/handler"
	"github.com/Daniel-W1/vending-machine/internal/adapter/storage"
	"github.com/Daniel-W1/vending-machine/internal/core/config"
	"github.com/Daniel-W1/vending-machine/internal/core/ledger"
	"github.com/Daniel-W1/vending-machine/internal/core/security"
	"github.com/Daniel-W1/vending-machine/internal/core/session"
)

func main() {
	// 1. Load Config
	cfg := config.LoadConfig()

	// 2. Setup Logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		slog.Error("❌ Invalid configuration", "error", err)
		os.Exit(1)
	}
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = uuid.NewString()
		slog.Warn("⚠️ JWT_SECRET not set, using a random secret; tokens will not survive a restart")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// 3. Connect to Postgres and Redis
	dbPool, err := storage.ConnectDB(ctx, cfg.DatabaseURL, cfg.DBMaxConns)
	if err != nil {
		slog.Error("❌ Database connection failed", "error", err)
		os.Exit(1)
	}

	rdb, err := storage.ConnectRedis(ctx, cfg.RedisURL)
	if err != nil {
		slog.Error("❌ Redis connection failed", "error", err)
		dbPool.Close()
		os.Exit(1)
	}

	if err := storage.Migrate(ctx, dbPool); err != nil {
		slog.Error("❌ Schema migration failed", "error", err)
		dbPool.Close()
		rdb.Close()
		os.Exit(1)
	}

	// 4. Setup Repos, Services & Handlers
	accountRepo := storage.NewAccountRepository(dbPool)
	productRepo := storage.NewProductRepository(dbPool)
	ledgerRepo := storage.NewLedgerRepository(dbPool)
	idempotencyRepo := storage.NewIdempotencyRepository(dbPool)

	tokens := security.NewTokenIssuer(cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL, storage.NewBlacklist(rdb))
	sessions := session.NewRegistry(storage.NewSessionStore(rdb), tokens)
	ledgerService := ledger.NewService(ledgerRepo)

	routes := handler.Routes{
		Accounts:     &handler.AccountHandler{Repo: accountRepo, Sessions: sessions},
		Auth:         &handler.AuthHandler{Accounts: accountRepo, Sessions: sessions, Tokens: tokens},
		Products:     &handler.ProductHandler{Repo: productRepo},
		Transactions: &handler.TransactionHandler{Ledger: ledgerService},
		Tokens:       tokens,
		Roles:        accountRepo,
		Idempotency:  idempotencyRepo,
	}

	// 5. Setup Fiber
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	app.Use(requestid.New())
	app.Use(recover.New())
	app.Use(cors.New())

	// 6. Routes
	routes.Register(app)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("🚀 Server starting", "env", cfg.Env, "port", cfg.Port)
		serverErr <- app.Listen(":" + cfg.Port)
	}()

	exitCode := 0
	if err := waitForShutdown(stop, serverErr); err != nil {
		slog.Error("❌ Server failed", "error", err)
		exitCode = 1
	}
	slog.Info("🛑 Shutting down server...")

	// Stop accepting requests and drain in-flight ones before closing stores.
	if err := app.Shutdown(); err != nil {
		slog.Error("Server shutdown failed", "error", err)
	}

	dbPool.Close()
	slog.Info("✅ Database connection closed")

	if err := rdb.Close(); err != nil {
		slog.Error("Redis close failed", "error", err)
	} else {
		slog.Info("✅ Redis connection closed")
	}

	if exitCode != 0 {
		os.Exit(exitCode)
	}
	slog.Info("👋 Server exited successfully")
}

// waitForShutdown blocks until a signal arrives or the listener stops on its
// own. Listen only returns early when it could not bind or serve.
func waitForShutdown(stop <-chan os.Signal, serverErr <-chan error) error {
	select {
	case <-stop:
		return nil
	case err := <-serverErr:
		if err == nil {
			err = errors.New("server stopped unexpectedly")
		}
		return err
	}
}
