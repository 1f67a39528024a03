package database

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"whiteboard-backend/internal/model"
)

// DB global database instance
var DB *gorm.DB

// Config database settings
type Config struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
	TimeZone string
}

// LoadConfig DB settings from environment
func LoadConfig() *Config {
	return &Config{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     getEnv("DB_PORT", "5432"),
		User:     getEnv("DB_USER", "postgres"),
		Password: getEnv("DB_PASSWORD", ""),
		DBName:   getEnv("DB_NAME", "postgres"),
		SSLMode:  getEnv("DB_SSLMODE", "require"),
		TimeZone: getEnv("DB_TIMEZONE", "UTC"),
	}
}

// ConnectDB establish the database connection
func ConnectDB() (*gorm.DB, error) {
	cfg := LoadConfig()

	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s TimeZone=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode, cfg.TimeZone,
	)

	gormLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  true,
		},
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)
	sqlDB.SetConnMaxIdleTime(10 * time.Minute)

	DB = db

	if err := db.AutoMigrate(
		&model.User{},
		&model.Course{},
		&model.CourseUser{},
		&model.Whiteboard{},
		&model.WhiteboardElement{},
		&model.WhiteboardSession{},
		&model.Asset{},
		&model.AssetUser{},
		&model.Category{},
		&model.AssetCategory{},
		&model.AssetWhiteboardElement{},
		&model.Activity{},
	); err != nil {
		log.Printf("⚠️ AutoMigrate warning: %v", err)
	}

	// The composite uuid index is load-bearing (create-vs-update routing),
	// so create it explicitly in case AutoMigrate was skipped.
	sql := `CREATE UNIQUE INDEX IF NOT EXISTS idx_whiteboard_uuid
		ON whiteboard_elements (whiteboard_id, uuid);
	CREATE INDEX IF NOT EXISTS idx_whiteboard_elements_z
		ON whiteboard_elements (whiteboard_id, z_index);`

	if err := db.Exec(sql).Error; err != nil {
		log.Printf("⚠️ Manual index creation warning: %v", err)
	}

	return db, nil
}

// AdvisoryLock cross-process mutual exclusion mediated by Postgres.
// Advisory locks are session scoped: the acquire, the guarded work, and
// the release must all happen on one backend session, so WithLock pins
// a single pooled connection for the whole critical section. Separate
// lock/unlock calls through the pool would land on different sessions
// and leave the lock stranded.
type AdvisoryLock struct {
	db     *gorm.DB
	lockID int64
}

// NewAdvisoryLock returns a lock bound to a fixed application lock id.
func NewAdvisoryLock(db *gorm.DB, lockID int64) *AdvisoryLock {
	return &AdvisoryLock{db: db, lockID: lockID}
}

// WithLock tries to take the lock without blocking and, when granted,
// runs fn while holding it. Returns false without calling fn when
// another session holds the lock. The error is fn's error or a lock
// acquisition failure; release failures are logged, not returned, since
// the connection going back to the pool drops the session lock anyway.
func (l *AdvisoryLock) WithLock(ctx context.Context, fn func() error) (bool, error) {
	acquired := false
	err := l.db.WithContext(ctx).Connection(func(conn *gorm.DB) error {
		var got bool
		if err := conn.Raw("SELECT pg_try_advisory_lock(?)", l.lockID).Scan(&got).Error; err != nil {
			return fmt.Errorf("advisory lock acquire: %w", err)
		}
		if !got {
			return nil
		}
		acquired = true

		defer func() {
			var released bool
			if err := conn.Raw("SELECT pg_advisory_unlock(?)", l.lockID).Scan(&released).Error; err != nil {
				log.Printf("⚠️ Advisory lock %d release failed: %v", l.lockID, err)
			} else if !released {
				log.Printf("⚠️ Advisory lock %d was not held at release", l.lockID)
			}
		}()

		return fn()
	})
	return acquired, err
}

// Ping connectivity check
func Ping() error {
	sqlDB, err := DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	if err := sqlDB.Ping(); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}

// Close shut the connection pool down
func Close() error {
	if DB == nil {
		return nil
	}

	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}

	return sqlDB.Close()
}

// getEnv env lookup with default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
