package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"teomarket/internal/config"
	"teomarket/internal/database"
	"teomarket/internal/jobs"
	"teomarket/internal/logger"
	"teomarket/internal/repository"
	"teomarket/internal/server"
	"teomarket/internal/service"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const migrationsDir = "migrations"

func gracefulShutdown(apiServer *server.Server, scheduler *jobs.Scheduler, stopJobs context.CancelFunc, logger *zap.Logger, done chan bool) {
	// Create context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	logger.Info("Shutting down gracefully, press Ctrl+C again to force")
	stop()

	// In-flight requests get 30 seconds to finish.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := apiServer.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	stopJobs()
	scheduler.Wait()

	if err := apiServer.Close(); err != nil {
		logger.Error("Error closing server resources", zap.Error(err))
	}

	logger.Info("Server exiting")
	done <- true
}

// connectRedis returns nil when redis is unreachable; rate limiting is then
// disabled and jobs fall back to in-process locks.
func connectRedis(ctx context.Context, cfg config.RedisConfig, logger *zap.Logger) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn("Redis unavailable, continuing without it",
			zap.String("addr", cfg.Addr()),
			zap.Error(err),
		)
		_ = client.Close()
		return nil
	}
	return client
}

func pricingConfig(ctx context.Context, cfg config.StoreConfig, store repository.Store) (service.PricingConfig, error) {
	group, err := store.Repositories().CustomerGroups.FindByCode(ctx, cfg.DefaultCustomerGroup)
	if err != nil {
		return service.PricingConfig{}, fmt.Errorf("failed to load default customer group %q: %w", cfg.DefaultCustomerGroup, err)
	}
	return service.PricingConfig{
		BaseCurrency:    cfg.BaseCurrency,
		DefaultCurrency: cfg.DefaultCurrency,
		DefaultGroupID:  group.ID,
		Precision:       cfg.PricePrecision,
	}, nil
}

func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.Server.Env)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer log.Sync()

	ctx := context.Background()

	dbService, err := database.New(ctx, cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	log.Info("Database health check", zap.Any("health", dbService.Health()))

	if len(os.Args) > 1 && os.Args[1] == "migrate-status" {
		if err := database.GetMigrationStatus(dbService.DB(), migrationsDir); err != nil {
			log.Fatal("Failed to read migration status", zap.Error(err))
		}
		return
	}

	if err := database.RunMigrations(dbService.DB(), migrationsDir, log); err != nil {
		log.Fatal("Failed to run migrations", zap.Error(err))
	}

	store := repository.NewStore(dbService.DB())
	pricingCfg, err := pricingConfig(ctx, cfg.Store, store)
	if err != nil {
		log.Fatal("Failed to load pricing configuration", zap.Error(err))
	}

	redisClient := connectRedis(ctx, cfg.Redis, log)

	log.Info("Starting teomarket API",
		zap.String("env", cfg.Server.Env),
		zap.String("port", cfg.Server.Port),
		zap.String("base_currency", pricingCfg.BaseCurrency),
		zap.Bool("redis", redisClient != nil),
	)

	jobsCtx, stopJobs := context.WithCancel(ctx)
	repos := store.Repositories()
	scheduler := jobs.NewScheduler(jobs.NewLocker(jobsCtx, redisClient, log), cfg.Jobs.LockTTL, log)
	scheduler.Register(jobs.NewCartCleanup(repos.Carts, cfg.Jobs.CartRetentionDays, log), cfg.Jobs.CartCleanupInterval)
	scheduler.Register(jobs.NewRefreshTokenCleanup(repos.RefreshTokens, log), cfg.Jobs.CartCleanupInterval)
	scheduler.Start(jobsCtx)

	srv := server.NewServer(cfg, log, dbService, store, redisClient, pricingCfg)

	done := make(chan bool, 1)
	go gracefulShutdown(srv, scheduler, stopJobs, log, done)

	log.Info("Server listening", zap.String("addr", srv.Addr))

	err = srv.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("HTTP server error", zap.Error(err))
	}

	<-done
	log.Info("Graceful shutdown complete")
}
