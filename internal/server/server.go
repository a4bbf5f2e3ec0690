package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"teomarket/internal/config"
	"teomarket/internal/database"
	custommiddleware "teomarket/internal/middleware"
	"teomarket/internal/repository"
	"teomarket/internal/service"
	"teomarket/internal/transport"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Server struct {
	*http.Server
	config *config.Config
	logger *zap.Logger
	db     database.Service
	redis  *redis.Client
}

// NewServer wires services and handlers over store. redisClient may be nil,
// in which case rate limiting is disabled.
func NewServer(
	cfg *config.Config,
	logger *zap.Logger,
	db database.Service,
	store repository.Store,
	redisClient *redis.Client,
	pricingCfg service.PricingConfig,
) *Server {
	router := chi.NewRouter()

	for _, mw := range custommiddleware.DefaultMiddlewareStack() {
		router.Use(mw)
	}
	router.Use(custommiddleware.CORSMiddleware(cfg.Server.AllowedOrigins, cfg.Server.IsDevelopment()))
	router.Use(custommiddleware.LoggingMiddleware(logger))
	router.Use(custommiddleware.ErrorHandlingMiddleware(logger))

	s := &Server{
		config: cfg,
		logger: logger,
		db:     db,
		redis:  redisClient,
	}
	router.Get("/health", s.health)

	repos := store.Repositories()
	cartService := service.NewCartService(store, pricingCfg, logger)
	userService := service.NewUserService(repos.Users, repos.RefreshTokens, cfg.JWT, cartService)
	catalogService := service.NewCatalogService(store, pricingCfg)
	checkoutService := service.NewCheckoutService(store, pricingCfg, logger)
	orderService := service.NewOrderService(store, logger)
	returnService := service.NewReturnService(store, logger)

	authMiddleware := custommiddleware.AuthMiddleware(cfg.JWT.Secret, logger)
	optionalAuth := custommiddleware.OptionalAuth(cfg.JWT.Secret, logger)
	limit := custommiddleware.RateLimitMiddleware(redisClient, custommiddleware.RateLimitConfig{
		RequestsPerWindow: cfg.RateLimit.RequestsPerWindow,
		Window:            cfg.RateLimit.Window,
		KeyPrefix:         "teomarket:ratelimit",
	}, logger)

	transport.NewUserHandler(userService, logger).RegisterRoutes(router, authMiddleware, limit)
	transport.NewCatalogHandler(catalogService, logger).RegisterRoutes(router, optionalAuth)
	transport.NewCartHandler(cartService, logger).RegisterRoutes(router, optionalAuth)
	transport.NewOrderHandler(cartService, checkoutService, orderService, returnService, logger).
		RegisterRoutes(router, authMiddleware, optionalAuth, limit)
	transport.NewReturnHandler(returnService, logger).RegisterRoutes(router, authMiddleware)
	transport.NewAdminHandler(orderService, returnService, logger).RegisterRoutes(router, authMiddleware)

	s.Server = &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      router,
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	return s
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	dbHealth := s.db.Health()
	if dbHealth["status"] != "up" {
		status = http.StatusServiceUnavailable
	}

	redisStatus := "disabled"
	if s.redis != nil {
		ctx, cancel := context.WithTimeout(r.Context(), time.Second)
		defer cancel()
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "down"
		} else {
			redisStatus = "up"
		}
	}

	custommiddleware.RespondWithJSON(w, status, map[string]interface{}{
		"database": dbHealth,
		"redis":    redisStatus,
	})
}

func (s *Server) Close() error {
	s.logger.Info("Closing server resources")

	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.logger.Error("Failed to close redis client", zap.Error(err))
		}
	}
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Error("Failed to close database connection", zap.Error(err))
		}
	}

	_ = s.logger.Sync()
	return nil
}
