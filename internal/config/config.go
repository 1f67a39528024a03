package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config application-wide settings
type Config struct {
	Server      ServerConfig
	WebSocket   WebSocketConfig
	CORS        CORSConfig
	Auth        AuthConfig
	S3          S3Config
	Redis       RedisConfig
	Renderer    RendererConfig
	Housekeeper HousekeeperConfig
	Session     SessionConfig
}

// ServerConfig HTTP server settings
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// WebSocketConfig socket buffer settings
type WebSocketConfig struct {
	ReadBufferSize  int
	WriteBufferSize int
}

// CORSConfig CORS settings
type CORSConfig struct {
	AllowOrigins string
	AllowHeaders string
}

// AuthConfig launch-session token settings. Tokens are issued by the
// host courseware during LTI launch; we only verify them.
type AuthConfig struct {
	JWTSecret string
}

// S3Config object storage for preview rasters
type S3Config struct {
	Region          string
	BucketName      string
	AccessKeyID     string
	SecretAccessKey string
	PublicBaseURL   string
}

// RedisConfig presence mirror / heartbeat
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// RendererConfig external raster renderer process
type RendererConfig struct {
	Binary         string
	Timeout        time.Duration
	ThumbnailWidth int
}

// HousekeeperConfig preview regeneration cycle
type HousekeeperConfig struct {
	Interval time.Duration
	LockID   int64
}

// SessionConfig liveness record decay
type SessionConfig struct {
	StaleAfter   time.Duration
	ReapInterval time.Duration
}

// Load settings from environment variables
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("ℹ️ No .env file found, using environment variables")
	}

	jwtSecret := getRequiredEnv("JWT_SECRET")
	if jwtSecret == "change-this-secret-in-production" {
		log.Fatal("🚨 CRITICAL: JWT_SECRET must be changed from default value in production!")
	}

	return &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", ":8080"),
			ReadTimeout:  getDuration("READ_TIMEOUT", 10*time.Second),
			WriteTimeout: getDuration("WRITE_TIMEOUT", 10*time.Second),
			IdleTimeout:  getDuration("IDLE_TIMEOUT", 120*time.Second),
		},
		WebSocket: WebSocketConfig{
			ReadBufferSize:  getInt("WS_READ_BUFFER_SIZE", 16*1024),
			WriteBufferSize: getInt("WS_WRITE_BUFFER_SIZE", 16*1024),
		},
		CORS: CORSConfig{
			AllowOrigins: getEnv("CORS_ALLOW_ORIGINS", "*"),
			AllowHeaders: getEnv("CORS_ALLOW_HEADERS", "Origin, Content-Type, Accept, Authorization"),
		},
		Auth: AuthConfig{
			JWTSecret: jwtSecret,
		},
		S3: S3Config{
			Region:          getEnv("AWS_REGION", "us-east-1"),
			BucketName:      getEnv("AWS_S3_BUCKET", ""),
			AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
			PublicBaseURL:   getEnv("AWS_S3_PUBLIC_BASE_URL", ""),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getInt("REDIS_DB", 0),
		},
		Renderer: RendererConfig{
			Binary:         getEnv("RENDERER_BINARY", "whiteboard-render"),
			Timeout:        getDuration("RENDERER_TIMEOUT", 60*time.Second),
			ThumbnailWidth: getInt("RENDERER_THUMBNAIL_WIDTH", 320),
		},
		Housekeeper: HousekeeperConfig{
			Interval: getDuration("PREVIEW_INTERVAL", 15*time.Second),
			LockID:   int64(getInt("PREVIEW_LOCK_ID", 427001)),
		},
		Session: SessionConfig{
			StaleAfter:   getDuration("SESSION_STALE_AFTER", 5*time.Minute),
			ReapInterval: getDuration("SESSION_REAP_INTERVAL", 1*time.Minute),
		},
	}
}

// getRequiredEnv fetch a required variable (Fatal when missing)
func getRequiredEnv(key string) string {
	value := os.Getenv(key)
	if value == "" {
		log.Fatalf("🚨 CRITICAL: Required environment variable %s is not set!", key)
	}
	return value
}

// getEnv fetch with default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getInt integer variable
func getInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getDuration duration variable; bare numbers are seconds
func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if !strings.ContainsAny(value, "smh") {
			if secs, err := strconv.Atoi(value); err == nil {
				return time.Duration(secs) * time.Second
			}
		}
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
