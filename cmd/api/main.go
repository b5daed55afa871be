package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"

	"github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"
	"github.com/rs/cors"

	"github.com/sbsimple/backend/internal/account"
	"github.com/sbsimple/backend/internal/audit"
	"github.com/sbsimple/backend/internal/config"
	"github.com/sbsimple/backend/internal/lookup"
	"github.com/sbsimple/backend/internal/migrations"
	"github.com/sbsimple/backend/internal/redemption"
	"github.com/sbsimple/backend/internal/router"
	"github.com/sbsimple/backend/internal/search"
	"github.com/sbsimple/backend/internal/session"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("Unable to create database pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		slog.Error("Cannot reach PostgreSQL. Ensure Postgres is running, e.g. docker-compose up -d", "error", err)
		os.Exit(1)
	}
	slog.Info("Connected to PostgreSQL")

	if err := migrations.Run(ctx, pool); err != nil {
		slog.Error("Schema migrations failed", "error", err)
		os.Exit(1)
	}

	// River migrations (job queue tables)
	migrator, err := rivermigrate.New(riverpgxv5.New(pool), nil)
	if err != nil {
		slog.Error("Failed to create River migrator", "error", err)
		os.Exit(1)
	}
	if _, err := migrator.Migrate(ctx, rivermigrate.DirectionUp, nil); err != nil {
		slog.Error("River migrate up failed", "error", err)
		os.Exit(1)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		slog.Error("Cannot reach Redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()
	slog.Info("Connected to Redis")

	// Stores
	accountRepo := account.NewRepository(pool)
	redemptionRepo := redemption.NewRepository(pool)
	auditRepo := audit.NewRepository(pool)
	sessionStore := session.NewRedisStore(redisClient)

	// Audit worker
	workers := river.NewWorkers()
	river.AddWorker(workers, audit.NewRecordFailedSearchWorker(auditRepo))

	riverClient, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
		Queues: map[string]river.QueueConfig{
			river.QueueDefault: {MaxWorkers: 10},
		},
		Workers: workers,
	})
	if err != nil {
		slog.Error("Failed to create River client", "error", err)
		os.Exit(1)
	}

	auditor := audit.NewRecorder(func(ctx context.Context, args audit.RecordFailedSearchArgs) error {
		_, err := riverClient.Insert(ctx, args, nil)
		return err
	})

	// Services
	accountSvc := account.NewService(accountRepo)
	redemptionSvc := redemption.NewService(redemptionRepo, cfg.UnlimitedCoupon, cfg.DepositAmounts)
	sessionSvc := session.NewService(sessionStore, accountRepo, redemptionSvc, cfg.SessionSecret, cfg.SessionTTL)
	oracle := lookup.NewClient(cfg.LookupURL)
	searchSvc := search.NewService(accountRepo, oracle, auditor, cfg.UnitCost, cfg.AuditUnlimited, logger)

	seedDepositCodes(ctx, cfg, redemptionSvc)

	// Handlers
	accountHandler := account.NewHandler(accountSvc, logger)
	sessionHandler := session.NewHandler(sessionSvc, logger)
	redemptionHandler := redemption.NewHandler(redemptionSvc, logger)
	searchHandler := search.NewHandler(searchSvc, logger)

	apiRouter := router.New(accountHandler, sessionHandler, redemptionHandler, searchHandler, sessionSvc)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}).Handler(apiRouter)

	// Start River client (processes audit jobs)
	riverCtx, stopRiver := context.WithCancel(ctx)
	defer stopRiver()
	go func() {
		if err := riverClient.Start(riverCtx); err != nil && riverCtx.Err() == nil {
			slog.Error("River client stopped", "error", err)
		}
	}()

	serverAddr := "0.0.0.0:" + cfg.Port
	slog.Info("Starting HTTP server", "addr", serverAddr)
	if err := http.ListenAndServe(serverAddr, corsHandler); err != nil {
		slog.Error("HTTP server failed", "error", err)
		os.Exit(1)
	}
}

// seedDepositCodes provisions one deposit code per configured value and
// logs the plaintext. Development convenience only; production codes are
// provisioned out-of-band.
func seedDepositCodes(ctx context.Context, cfg *config.Config, svc *redemption.Service) {
	for _, value := range cfg.SeedDepositCodes {
		code, err := svc.Provision(ctx, value)
		if err != nil {
			slog.Error("Seed deposit code failed", "value", value, "error", err)
			continue
		}
		slog.Info("Seeded deposit code", "value", value, "code", code)
	}
}
