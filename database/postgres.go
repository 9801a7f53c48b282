package database

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/gonzalo-olmedo/comicstore/models"
)

// PostgresConfig describes how to reach the store database.
type PostgresConfig struct {
	Host       string
	Port       string
	User       string
	Password   string
	DBName     string
	SSLMode    string
	TimeZone   string
	MaxRetries int
	RetryDelay time.Duration
}

func (c PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=%s",
		c.Host, c.User, c.Password, c.DBName, c.Port, c.SSLMode, c.TimeZone,
	)
}

// ConnectPostgres opens the database, retrying while it comes up, sizes the
// pool and migrates the schema.
func ConnectPostgres(cfg PostgresConfig, logger *zap.Logger) (*gorm.DB, error) {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 10
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 2 * time.Second
	}

	var (
		db  *gorm.DB
		err error
	)
	for attempt := 1; attempt <= cfg.MaxRetries; attempt++ {
		db, err = open(cfg)
		if err == nil {
			break
		}
		logger.Warn("PostgreSQL not ready, retrying",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", cfg.MaxRetries),
			zap.Error(err),
		)
		time.Sleep(cfg.RetryDelay)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL after %d attempts: %w", cfg.MaxRetries, err)
	}
	logger.Info("Connected to PostgreSQL", zap.String("host", cfg.Host), zap.String("db", cfg.DBName))

	if err := models.Migrate(db); err != nil {
		return nil, fmt.Errorf("AutoMigrate failed: %w", err)
	}
	return db, nil
}

func open(cfg PostgresConfig) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return db, nil
}

// Close releases the connection pool.
func Close(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
