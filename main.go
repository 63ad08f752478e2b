package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"medicine-marketplace/controllers"
	"medicine-marketplace/database"
	"medicine-marketplace/kafka"
	"medicine-marketplace/locks"
	"medicine-marketplace/repository"
	"medicine-marketplace/routes"
	"medicine-marketplace/services"
	"medicine-marketplace/storage"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	defer logger.Sync()

	cfg, err := LoadConfig()
	if err != nil {
		logger.Fatal("Config load failed", zap.Error(err))
	}

	// --- MongoDB setup ---
	client, db, err := database.Connect(context.Background(), cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		logger.Fatal("MongoDB connect failed", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := database.Close(ctx, client); err != nil {
			logger.Warn("MongoDB disconnect failed", zap.Error(err))
		}
	}()
	if err := database.EnsureIndexes(context.Background(), db); err != nil {
		logger.Fatal("Index creation failed", zap.Error(err))
	}

	// --- Order locking ---
	var locker locks.OrderLocker
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			logger.Fatal("Redis connect failed", zap.Error(err))
		}
		locker = locks.NewRedisLocker(rdb, 15*time.Second, 5*time.Second)
	} else {
		logger.Warn("REDIS_ADDR not set, using in-process order locks")
		locker = locks.NewMemoryLocker()
	}

	// --- Event publishing (optional) ---
	var publisher services.EventPublisher
	if len(cfg.KafkaBrokers) > 0 {
		producer := kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
		defer producer.Close()
		publisher = producer
	} else {
		logger.Warn("KAFKA_BROKERS not set, order events will not be published")
	}

	// --- Receipt storage ---
	var receipts storage.ReceiptStore
	if cfg.S3Bucket != "" {
		s3Store, err := storage.NewS3ReceiptStore(context.Background(), cfg.AWSRegion, cfg.S3Bucket)
		if err != nil {
			logger.Fatal("S3 receipt store init failed", zap.Error(err))
		}
		receipts = s3Store
	} else {
		receipts = storage.NewDiskReceiptStore(cfg.StaticDir)
	}

	// --- Service wiring ---
	medicineRepo := repository.NewMongoMedicineRepository(db)
	orderRepo := repository.NewMongoOrderRepository(db)
	notificationRepo := repository.NewMongoNotificationRepository(db)
	pharmacyRepo := repository.NewMongoPharmacyRepository(db)

	stockService := services.NewStockService(medicineRepo, logger)
	notificationService := services.NewNotificationService(notificationRepo, publisher, logger)
	voucherService := services.NewVoucherService(receipts)
	cartService := services.NewCartService(orderRepo, medicineRepo, pharmacyRepo, stockService, locker, logger)
	orderService := services.NewOrderService(orderRepo, stockService, receipts, voucherService, notificationService, locker, logger)
	medicineService := services.NewMedicineService(medicineRepo, pharmacyRepo, logger)

	ctrl := routes.Controllers{
		Cart:          controllers.NewCartController(cartService),
		Orders:        controllers.NewOrderController(orderService),
		Pharmacy:      controllers.NewPharmacyController(orderService),
		Medicines:     controllers.NewMedicineController(medicineService),
		Notifications: controllers.NewNotificationController(notificationService),
		Admin:         controllers.NewAdminController(orderService),
	}

	// --- HTTP router ---
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())

	corsCfg := cors.DefaultConfig()
	corsCfg.AllowAllOrigins = true
	corsCfg.AllowHeaders = append(corsCfg.AllowHeaders, "Authorization")
	r.Use(cors.New(corsCfg))

	// Structured HTTP request logging
	r.Use(func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method
		c.Next()
		latency := time.Since(start)
		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", status),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
		}
		switch {
		case status >= 500:
			logger.Error("http_request", fields...)
		case status >= 400:
			logger.Warn("http_request", fields...)
		default:
			logger.Info("http_request", fields...)
		}
	})

	r.Use(func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	})

	r.Static("/static", cfg.StaticDir)
	routes.RegisterRoutes(r, []byte(cfg.JWTSecret), ctrl)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK"})
	})

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r}

	go func() {
		logger.Info("Marketplace service starting", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down marketplace service...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Marketplace service stopped gracefully")
}
