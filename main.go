package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apperrors "github.com/gonzalo-olmedo/comicstore/common/errors"
	"github.com/gonzalo-olmedo/comicstore/common/logger"
	commonmw "github.com/gonzalo-olmedo/comicstore/common/middleware"
	"github.com/gonzalo-olmedo/comicstore/controllers"
	"github.com/gonzalo-olmedo/comicstore/database"
	aws_pkg "github.com/gonzalo-olmedo/comicstore/pkg/aws"
	"github.com/gonzalo-olmedo/comicstore/repository"
	"github.com/gonzalo-olmedo/comicstore/routes"
	"github.com/gonzalo-olmedo/comicstore/services"
)

const serviceName = "comicstore"

func main() {
	log := logger.Initialize(os.Getenv("APP_ENV"))

	cfg, err := LoadConfig(log)
	if err != nil {
		log.Fatal("Failed to load config", zap.Error(err))
	}

	// AWS clients
	var (
		snsClient     aws_pkg.SNSPublisher
		uploader      services.ImageUploader
		metricsClient *aws_pkg.MetricsClient
	)
	awsCfg, awsErr := aws_pkg.LoadAWSConfig(context.Background())
	if awsErr != nil {
		log.Warn("AWS config unavailable, S3/SNS/CloudWatch disabled", zap.Error(awsErr))
	} else {
		if cfg.CloudWatch {
			cwLogs, err := aws_pkg.NewCloudWatchLogsClient(context.Background(), awsCfg, cfg.LogGroup, serviceName)
			if err != nil {
				log.Warn("CloudWatch Logs unavailable", zap.Error(err))
			} else {
				log = logger.InitializeWithWriter(cfg.AppEnv, cwLogs)
			}
		}
		metricsClient = aws_pkg.NewMetricsClient(awsCfg, cfg.MetricsNS, cfg.CloudWatch)
		if cfg.OrderTopic != "" {
			snsClient = aws_pkg.NewSNSClient(awsCfg, log)
		}
		if cfg.S3Bucket != "" {
			s3Client := aws_pkg.NewS3Client(awsCfg, cfg.S3Endpoint != "")
			uploader = aws_pkg.NewS3Uploader(s3Client, cfg.S3Bucket, cfg.S3Prefix, cfg.S3Endpoint, cfg.CDNDomain)
		} else {
			log.Warn("S3_BUCKET not set, image uploads disabled")
		}
	}
	defer log.Sync() //nolint:errcheck

	db, err := database.ConnectPostgres(database.PostgresConfig{
		Host:     cfg.PostgresHost,
		Port:     cfg.PostgresPort,
		User:     cfg.PostgresUser,
		Password: cfg.PostgresPassword,
		DBName:   cfg.PostgresDB,
		SSLMode:  cfg.PostgresSSLMode,
		TimeZone: cfg.PostgresTimeZone,
	}, log)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.Close(db) //nolint:errcheck

	redisClient, err := database.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, 0)
	if err != nil {
		log.Warn("Redis unavailable, catalog cache disabled", zap.Error(err))
	}
	if redisClient != nil {
		defer redisClient.Close() //nolint:errcheck
	}
	cache := controllers.NewCacheManager(redisClient, cfg.CacheTTL, metricsClient, log)

	// Repositories and DI chain
	userRepo := repository.NewUserRepository(db)
	roleRepo := repository.NewRoleRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)
	productRepo := repository.NewProductRepository(db)
	orderRepo := repository.NewOrderRepository(db)

	tokenService := services.NewTokenService(cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	authService := services.NewAuthService(userRepo, roleRepo, tokenService, cfg.DefaultRole, log)
	userService := services.NewUserService(userRepo, uploader, log)
	roleService := services.NewRoleService(roleRepo, log)
	categoryService := services.NewCategoryService(categoryRepo, cache, log)
	productService := services.NewProductService(productRepo, categoryRepo, uploader, cache, metricsClient, log)
	orderService := services.NewOrderService(orderRepo, snsClient, cfg.OrderTopic, metricsClient, cache, log)

	seedCtx, cancelSeed := context.WithTimeout(context.Background(), 30*time.Second)
	if err := roleService.SeedDefaults(seedCtx); err != nil {
		log.Error("Failed to seed default roles", zap.Error(err))
	}
	if err := authService.EnsureAdmin(seedCtx, cfg.AdminEmail, cfg.AdminPassword); err != nil {
		log.Error("Failed to bootstrap admin account", zap.Error(err))
	}
	cancelSeed()

	validator := controllers.NewRequestValidator()

	if cfg.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(
		gin.Recovery(),
		logger.RequestID(),
		commonmw.RequestLogger(log),
		commonmw.SecurityHeaders(),
		commonmw.CORSMiddleware(cfg.CORSOrigins),
		commonmw.MetricsMiddleware(metricsClient, serviceName),
		commonmw.Timeout(30*time.Second),
		apperrors.ErrorMiddleware(),
	)

	r.GET("/health", func(c *gin.Context) {
		sqlDB, err := db.DB()
		if err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "service": serviceName})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": serviceName})
	})

	routes.RegisterRoutes(r, routes.Controllers{
		Auth:     controllers.NewAuthController(authService),
		User:     controllers.NewUserController(userService),
		Role:     controllers.NewRoleController(roleService),
		Category: controllers.NewCategoryController(categoryService, cache),
		Product:  controllers.NewProductController(productService, cache, validator, log),
		Order:    controllers.NewOrderController(orderService, validator),
	}, tokenService, routes.Options{})

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server failed", zap.Error(err))
		}
	}()

	log.Info("Comic store API started", zap.String("port", cfg.Port))
	<-quit
	log.Info("Shutting down comic store API...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}
	log.Info("Server exited cleanly")
}
