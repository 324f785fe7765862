package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"recircle-service/internal/auth"
	"recircle-service/internal/cache"
	"recircle-service/internal/config"
	"recircle-service/internal/events"
	"recircle-service/internal/handlers"
	"recircle-service/internal/kafka"
	"recircle-service/internal/repository"
	"recircle-service/internal/service"
	"recircle-service/pkg/logger"
	"recircle-service/pkg/middleware"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "recircle-service/docs" // Import docs for Swagger
)

// @title           ReCircle API
// @version         1.0
// @description     Item listing and exchange API for the ReCircle platform. Listings are cached with a TTL and invalidated on every write.

// @host      localhost:5000
// @BasePath  /api

// @schemes   http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

// Request ID Header
// @description Write endpoints accept an X-Request-ID header. Retrying a successful write with the same ID within 5 minutes replays the stored response.
func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	appLogger := logger.New(cfg.Environment)
	defer appLogger.Sync()

	appLogger.Info("🚀 Starting ReCircle service",
		zap.String("environment", cfg.Environment),
		zap.String("port", cfg.Port),
	)

	appLogger.Info("💾 Store Configuration",
		zap.String("driver", cfg.StoreDriver),
		zap.Duration("timeout", cfg.StoreTimeout),
	)

	appLogger.Info("🔐 JWT Configuration",
		zap.Int("secret_length", len(cfg.JWTSecret)),
		zap.Duration("token_ttl", cfg.JWTTTL),
	)

	if cfg.UseKafka {
		appLogger.Info("📡 Kafka Configuration (cross-instance cache invalidation)",
			zap.Strings("brokers", cfg.KafkaBrokers),
			zap.String("topic_items", cfg.KafkaTopicItems),
			zap.String("group_id", cfg.KafkaGroupID),
			zap.String("acks", cfg.KafkaAcks),
		)
	} else {
		appLogger.Info("📡 Kafka Configuration",
			zap.Bool("enabled", false),
			zap.String("note", "Kafka is disabled (USE_KAFKA=false)"),
		)
	}

	// Initialize store
	appLogger.Info("🔧 Initializing store...")
	startCtx, startCancel := context.WithTimeout(context.Background(), 15*time.Second)
	store, err := repository.NewStore(startCtx, cfg, appLogger)
	startCancel()
	if err != nil {
		appLogger.Fatal("Failed to initialize store", zap.Error(err))
	}
	defer store.Close()
	appLogger.Info("✅ Store initialized successfully")

	// Initialize cache (Redis when enabled and reachable, memory otherwise)
	appLogger.Info("🔧 Initializing cache...")
	cacheClient := cache.NewCache(cfg, appLogger)
	defer cacheClient.Close()
	appLogger.Info("✅ Cache initialized successfully", zap.Int("cache_ttl", cfg.CacheTTL))

	// Initialize event publisher
	var publisher events.EventPublisher
	if cfg.UseKafka {
		appLogger.Info("🔧 Initializing Kafka event publisher...")
		kafkaPublisher, err := events.NewKafkaEventPublisher(cfg, appLogger)
		if err != nil {
			appLogger.Warn("Failed to initialize Kafka publisher, using in-memory publisher", zap.Error(err))
			publisher = events.NewInMemoryEventPublisher(appLogger)
		} else {
			defer kafkaPublisher.Close()
			publisher = kafkaPublisher
			appLogger.Info("✅ Kafka event publisher initialized successfully")
		}
	} else {
		publisher = events.NewInMemoryEventPublisher(appLogger)
	}

	itemService := service.NewItemService(store, cacheClient, publisher, cfg, appLogger)

	// Initialize Kafka consumer for cache invalidation (optional)
	if cfg.UseKafka {
		appLogger.Info("🔧 Initializing Kafka consumer for cache invalidation...")
		kafkaConsumer, err := kafka.NewConsumer(cfg, itemService, appLogger)
		if err != nil {
			appLogger.Warn("Failed to initialize Kafka consumer, continuing without cross-instance invalidation", zap.Error(err))
		} else {
			ctx, cancel := context.WithCancel(context.Background())
			defer func() {
				cancel()
				kafkaConsumer.Close()
			}()
			kafkaConsumer.Start(ctx)
			appLogger.Info("✅ Kafka consumer started for cache invalidation")
		}
	} else {
		appLogger.Info("⏭️  Skipping Kafka consumer (USE_KAFKA=false)")
	}

	// Initialize JWT manager and handlers
	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTTTL, appLogger)
	authHandler := auth.NewAuthHandler(store, jwtManager, appLogger)
	itemHandler := handlers.NewItemHandler(itemService, appLogger)
	ngoHandler := handlers.NewNGOHandler()
	healthHandler := handlers.NewHealthHandler(store, cacheClient, appLogger)

	// Set Gin mode
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	router.Use(middleware.RecoveryHandler(appLogger))

	// Request ID middleware (must be early in the chain)
	router.Use(middleware.RequestIDMiddleware(appLogger))
	router.Use(logger.GinMiddleware(appLogger))

	// CORS middleware (answers preflight requests before routing)
	router.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))

	// Error handler wraps idempotency so failures are never stored
	router.Use(middleware.ErrorHandler(appLogger, cfg.IsProduction()))
	router.NoRoute(handlers.NotFound)

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	router.GET("/health", healthHandler.Health)

	requireAuth := middleware.AuthMiddleware(jwtManager, appLogger)
	// idempotency is keyed by the caller, so it runs after authentication
	idempotent := middleware.IdempotencyMiddleware(middleware.NewCacheRequestIDStore(cacheClient), appLogger, 5*time.Minute)

	api := router.Group("/api")
	{
		api.GET("/health", healthHandler.Health)

		authRoutes := api.Group("/auth")
		{
			authRoutes.POST("/register", authHandler.Register)
			authRoutes.POST("/login", authHandler.Login)
		}

		api.GET("/users/profile", requireAuth, authHandler.Profile)

		items := api.Group("/items")
		{
			items.GET("", itemHandler.ListItems)
			items.GET("/myitems", requireAuth, itemHandler.MyItems)
			items.GET("/:id", itemHandler.GetItem)
			items.POST("", requireAuth, idempotent, itemHandler.CreateItem)
			items.PUT("/:id", requireAuth, idempotent, itemHandler.UpdateItem)
			items.DELETE("/:id", requireAuth, idempotent, itemHandler.DeleteItem)
		}

		ngo := api.Group("/ngo")
		{
			ngo.GET("", ngoHandler.ListNGOs)
			ngo.GET("/:id", ngoHandler.GetNGO)
		}
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	// Start server in a goroutine
	go func() {
		appLogger.Info("🌐 Starting HTTP server",
			zap.String("address", ":"+cfg.Port),
			zap.String("swagger_url", "http://localhost:"+cfg.Port+"/swagger/index.html"),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Error("Server forced to shutdown", zap.Error(err))
	}

	appLogger.Info("Server exited")
}
