package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/mivine/essentials-backend-go/cache"
	"github.com/mivine/essentials-backend-go/config"
	"github.com/mivine/essentials-backend-go/database"
	"github.com/mivine/essentials-backend-go/handlers"
	"github.com/mivine/essentials-backend-go/metrics"
	customMiddleware "github.com/mivine/essentials-backend-go/middleware"
	"github.com/mivine/essentials-backend-go/payment"
	"github.com/mivine/essentials-backend-go/repository"
	"github.com/mivine/essentials-backend-go/routes"
	"github.com/mivine/essentials-backend-go/services"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	// Initialize Echo
	e := echo.New()
	e.HideBanner = true
	e.Logger.SetLevel(log.INFO)

	cfg, err := config.Load()
	if err != nil {
		e.Logger.Fatal("Invalid configuration: ", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Connect to MongoDB
	connectCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	db, err := database.ConnectMongoDB(connectCtx, cfg.MongoURI, cfg.MongoDatabase)
	if err != nil {
		e.Logger.Fatal("Failed to connect to database: ", err)
	}
	defer db.Client().Disconnect(context.Background())
	if err := database.EnsureIndexes(connectCtx, db); err != nil {
		e.Logger.Fatal("Failed to create indexes: ", err)
	}

	redisClient, err := database.ConnectRedis(connectCtx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		e.Logger.Fatal("Failed to connect to redis: ", err)
	}
	defer redisClient.Close()

	verifier, err := newVerifier(cfg, e.Logger)
	if err != nil {
		e.Logger.Fatal("Failed to set up payment verification: ", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(prometheus.NewGoCollector(), prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	users := repository.NewUserRepository(db)
	products := repository.NewProductRepository(db)
	orders := repository.NewOrderRepository(db)

	cartService := services.NewCartService(repository.NewCartRepository(db), products, cache.NewRedisCache(redisClient, cfg.CartCacheTTL), e.Logger)
	h := handlers.New(
		services.NewCheckoutService(repository.NewCheckoutRepository(db), orders, cartService, verifier, m, e.Logger, cfg.FinalizeClaimTTL),
		services.NewOrderService(orders, users, e.Logger),
		cartService,
		services.NewProductService(products, e.Logger),
		services.NewUserService(users, e.Logger, cfg.JWTSecret, cfg.JWTTTL),
	)

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: cfg.AllowedOrigins,
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))
	e.Use(m.Middleware())
	e.Use(middleware.ContextTimeout(cfg.RequestTimeout))

	// Setup routes
	routes.SetupRoutes(e, h, routes.Auth{
		Required: customMiddleware.Auth(cfg.JWTSecret, users),
		Optional: customMiddleware.OptionalAuth(cfg.JWTSecret, users),
	}, registry)

	go func() {
		e.Logger.Infof("Server starting on port %s", cfg.Port)
		if err := e.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
			e.Logger.Fatal("Server stopped: ", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := e.Shutdown(shutdownCtx); err != nil {
		e.Logger.Error("Graceful shutdown failed: ", err)
	}
}

func newVerifier(cfg *config.Config, logger echo.Logger) (payment.Verifier, error) {
	if cfg.PaymentVerifier == "manual" {
		logger.Warn("PAYMENT_VERIFIER=manual: payments are accepted on the client's word, do not use in production")
		return payment.ManualVerifier{}, nil
	}
	verifier, err := payment.NewEthereumVerifier(cfg.EthRPCURL, cfg.EthMerchantAddress, cfg.EthWeiPerUnit, cfg.EthMinConfirmations, logger)
	if err != nil {
		return nil, err
	}
	return verifier, nil
}
