package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	auditentity "github.com/petersonmatiss/mpm/internal/audit/entity"
	audithandler "github.com/petersonmatiss/mpm/internal/audit/handler"
	auditservice "github.com/petersonmatiss/mpm/internal/audit/service"
	"github.com/petersonmatiss/mpm/internal/config"
	"github.com/petersonmatiss/mpm/internal/middleware"
	procentity "github.com/petersonmatiss/mpm/internal/procurement/entity"
	prochandler "github.com/petersonmatiss/mpm/internal/procurement/handler"
	procservice "github.com/petersonmatiss/mpm/internal/procurement/service"
	stockentity "github.com/petersonmatiss/mpm/internal/stock/entity"
	stockhandler "github.com/petersonmatiss/mpm/internal/stock/handler"
	stockrepo "github.com/petersonmatiss/mpm/internal/stock/repository"
	stockservice "github.com/petersonmatiss/mpm/internal/stock/service"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zapLogger, err := initLogger(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer zapLogger.Sync()

	zapLogger.Info("Starting mpm service",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
	)

	db, err := initDatabase(cfg.Database)
	if err != nil {
		zapLogger.Fatal("Failed to connect to database", zap.Error(err))
	}

	if err := stockentity.AutoMigrate(db); err != nil {
		zapLogger.Fatal("Failed to migrate stock tables", zap.Error(err))
	}
	if err := procentity.AutoMigrate(db); err != nil {
		zapLogger.Fatal("Failed to migrate procurement tables", zap.Error(err))
	}
	if err := auditentity.AutoMigrate(db); err != nil {
		zapLogger.Fatal("Failed to migrate audit tables", zap.Error(err))
	}
	zapLogger.Info("Database migration completed")

	rdb := initRedis(cfg.Redis, zapLogger)

	stockRepos := stockrepo.NewRepositories(db)
	stockServices := stockservice.NewServices(stockRepos, db, rdb, cfg.Redis.CacheTTL, zapLogger)
	stockHandlers := stockhandler.NewHandlers(stockServices)

	procServices := procservice.NewServices(db, zapLogger)
	procHandlers := prochandler.NewHandlers(procServices)

	auditHandler := audithandler.NewAuditHandler(auditservice.NewAuditService(db))

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(zapLogger))
	router.Use(middleware.CORS())
	router.Use(middleware.RequestID())
	router.Use(middleware.Metrics())
	if cfg.RateLimit.Enabled {
		router.Use(middleware.RateLimit(cfg.RateLimit.Rate))
	}

	router.GET("/health/live", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "mpm"})
	})
	router.GET("/health/ready", func(c *gin.Context) {
		sqlDB, err := db.DB()
		if err != nil || sqlDB.Ping() != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "service": "mpm"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "mpm"})
	})
	router.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"service":    "mpm",
			"version":    Version,
			"build_time": BuildTime,
		})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	v1.Use(middleware.JWTAuth(cfg.JWT.Secret))
	{
		stock := v1.Group("/stock")
		{
			profiles := stock.Group("/profiles")
			{
				profiles.GET("", stockHandlers.Stock.ListProfiles)
				profiles.POST("", stockHandlers.Stock.ReceiveProfile)
				profiles.GET("/:lot_id", stockHandlers.Stock.GetProfile)
				profiles.DELETE("/:lot_id", middleware.RequireRole("stock_manager"), stockHandlers.Stock.DeleteProfile)
				profiles.GET("/:lot_id/usage", stockHandlers.Stock.GetProfileUsage)
				profiles.POST("/:lot_id/consume", stockHandlers.Consumption.Consume)
				profiles.POST("/:lot_id/reserve", stockHandlers.Reservation.Reserve)
				profiles.POST("/:lot_id/unreserve", stockHandlers.Reservation.Unreserve)
				profiles.GET("/:lot_id/reservations", stockHandlers.Reservation.ListReservations)
			}

			remnants := stock.Group("/remnants")
			{
				remnants.GET("", stockHandlers.Stock.ListRemnants)
				remnants.POST("/:id/consume", stockHandlers.Consumption.ConsumeRemnant)
			}

			sheets := stock.Group("/sheets")
			{
				sheets.GET("", stockHandlers.Stock.ListSheets)
				sheets.POST("", stockHandlers.Stock.ReceiveSheet)
				sheets.POST("/:sheet_id/consume", stockHandlers.Consumption.ConsumeSheet)
				sheets.GET("/:sheet_id/usage", stockHandlers.Stock.GetSheetUsage)
			}

			stock.GET("/usage", stockHandlers.Stock.GetProjectUsage)
			stock.GET("/export", stockHandlers.Stock.ExportInventory)
		}

		prs := v1.Group("/procurement/purchase-requests")
		{
			prs.GET("", procHandlers.PR.ListPRs)
			prs.POST("", procHandlers.PR.CreatePR)
			prs.GET("/:id", procHandlers.PR.GetPR)
			prs.POST("/:id/transition", procHandlers.PR.Transition)
			prs.POST("/:id/cancel", procHandlers.PR.Cancel)
			prs.POST("/:id/winner", procHandlers.PR.SelectWinner)
			prs.POST("/:id/lines", procHandlers.PR.AddLine)
			prs.PUT("/:id/lines/:line_id", procHandlers.PR.UpdateLine)
			prs.DELETE("/:id/lines/:line_id", procHandlers.PR.RemoveLine)
			prs.POST("/:id/quotes", procHandlers.PR.AddQuote)
			prs.DELETE("/:id/quotes/:quote_id", procHandlers.PR.RemoveQuote)
		}

		audit := v1.Group("/audit")
		{
			audit.GET("/actors/:actor_id", auditHandler.ListByActor)
			audit.GET("/:entity_type/:entity_id", auditHandler.ListByEntity)
		}
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		zapLogger.Info("Server starting", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Error("Server forced to shutdown", zap.Error(err))
	}
	if rdb != nil {
		rdb.Close()
	}

	zapLogger.Info("Server exited")
}

func initLogger(cfg config.LogConfig) (*zap.Logger, error) {
	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}
	switch cfg.Level {
	case "debug":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	}
	return zapCfg.Build()
}

func initDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode,
	)
	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	}
	db, err := gorm.Open(postgres.Open(dsn), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	return db, nil
}

// initRedis connects the listing cache. Redis is optional: when it is
// unreachable the service runs without the cache.
func initRedis(cfg config.RedisConfig, zapLogger *zap.Logger) *redis.Client {
	rdb := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		zapLogger.Warn("Redis unavailable, listing cache disabled", zap.Error(err))
		rdb.Close()
		return nil
	}
	return rdb
}
