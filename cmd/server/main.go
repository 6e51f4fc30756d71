package main

import (
	"database/sql"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-router"
	userservice "github.com/goliatone/user-service"
	"github.com/goliatone/user-service/middleware/gatewayware"
	"github.com/joho/godotenv"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

func main() {
	_ = godotenv.Load()

	cfg := userservice.NewConfigFromEnv()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	logger := userservice.DefaultLogger("SERVER")

	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.DatabaseDSN)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	repo := userservice.NewRepositoryManager(db, logger)
	repo.MustValidate()

	verifier := userservice.NewSignatureVerifier(
		cfg.GatewayHMACSecret,
		userservice.WithSignatureTolerance(cfg.SignatureTolerance),
	)

	tokenService := userservice.NewTokenService(
		[]byte(cfg.JWTSigningKey),
		cfg.TokenExpiration,
		cfg.JWTIssuer,
		audience(cfg.JWTAudience),
		logger,
	)

	resolver := userservice.NewPrincipalResolver(repo.Users(), verifier, logger)

	srv := router.NewFiberAdapter(func(a *fiber.App) *fiber.App {
		return router.DefaultFiberOptions(fiber.New(fiber.Config{
			AppName:      "user-service",
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		}))
	})

	srv.Router().Use(gatewayware.New(gatewayware.Config{
		Resolver:       resolver,
		TokenValidator: tokenService,
		Logger:         logger,
	}))

	srv.Router().Get("/health", func(ctx router.Context) error {
		return ctx.JSON(router.StatusOK, map[string]string{"status": "ok"})
	})

	// Bootstrap endpoint the gateway polls to seed its blocklist. No
	// authentication required.
	srv.Router().Get("/api/v1/internal/blocked-users", func(ctx router.Context) error {
		ids, err := repo.Users().BlockedUserIDs(ctx.Context())
		if err != nil {
			logger.Error("blocked users lookup failed: %v", err)
			return ctx.JSON(router.StatusInternalServerError, map[string]any{
				"success": false,
				"message": "could not load blocked users",
			})
		}

		return ctx.JSON(router.StatusOK, map[string]any{
			"success": true,
			"message": "Blocked user IDs retrieved successfully",
			"data":    ids,
		})
	})

	srv.Router().Get("/api/v1/users/me", func(ctx router.Context) error {
		principal, ok := userservice.PrincipalFromRouterContext(ctx, "principal")
		if !ok {
			return ctx.JSON(router.StatusUnauthorized, map[string]string{
				"error":   "Unauthorized",
				"message": "authentication required",
			})
		}

		return ctx.JSON(router.StatusOK, map[string]any{
			"success": true,
			"data":    principal,
		})
	})

	logger.Info("user-service listening on %s", cfg.ServerAddr)
	if err := srv.Serve(cfg.ServerAddr); err != nil {
		log.Fatalf("server stopped: %v", err)
	}
}

func audience(aud string) []string {
	if aud == "" {
		return nil
	}
	return []string{aud}
}
