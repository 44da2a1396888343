// Package config loads runtime settings for the alert server and the dashboard
package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// ServerConfig holds alert server settings
type ServerConfig struct {
	Port           string
	Production     bool
	AlertDir       string
	AlertCacheSize int
	CameraCacheTTL time.Duration
	ScanInterval   time.Duration
	ClassesFile    string

	// Embedded NATS server port (0 disables the broker)
	NATSPort int

	// Optional postgres index; empty disables it
	DatabaseURL string

	// Ingest auth; disabled when JWTSecret is empty
	JWTSecret        string
	AuthUsername     string
	AuthPasswordHash string
	TokenTTL         time.Duration
}

// DashboardConfig holds terminal dashboard settings
type DashboardConfig struct {
	ServerURL      string
	PageSize       int
	RefreshEvery   time.Duration
	RevertAfter    time.Duration
	CameraCacheTTL time.Duration
	RequestTimeout time.Duration
}

// LoadEnvFile loads a .env file if present. Missing files are not an error.
func LoadEnvFile(paths ...string) {
	if err := godotenv.Load(paths...); err != nil {
		log.Println("No .env file found, using environment variables")
	}
}

// ServerFromEnv reads the alert server configuration
func ServerFromEnv() ServerConfig {
	return ServerConfig{
		Port:             getEnv("PORT", "8080"),
		Production:       getEnv("ENV", "") == "production",
		AlertDir:         getEnv("ALERT_DIR", "alerts"),
		AlertCacheSize:   getEnvInt("ALERT_CACHE_SIZE", 1000),
		CameraCacheTTL:   time.Duration(getEnvInt("CAMERA_CACHE_TTL_SEC", 300)) * time.Second,
		ScanInterval:     time.Duration(getEnvInt("SCAN_INTERVAL_SEC", 5)) * time.Second,
		ClassesFile:      getEnv("CLASSES_FILE", "./models/blade/classes.json"),
		NATSPort:         getEnvInt("NATS_PORT", 4233),
		DatabaseURL:      getEnv("DATABASE_URL", ""),
		JWTSecret:        getEnv("JWT_SECRET", ""),
		AuthUsername:     getEnv("AUTH_USERNAME", "admin"),
		AuthPasswordHash: getEnv("AUTH_PASSWORD_HASH", ""),
		TokenTTL:         time.Duration(getEnvInt("AUTH_TOKEN_TTL_HOURS", 24)) * time.Hour,
	}
}

// DashboardFromEnv reads the dashboard configuration
func DashboardFromEnv() DashboardConfig {
	return DashboardConfig{
		ServerURL:      getEnv("DASHBOARD_SERVER_URL", "http://localhost:8080"),
		PageSize:       getEnvInt("DASHBOARD_PAGE_SIZE", 9),
		RefreshEvery:   time.Duration(getEnvInt("DASHBOARD_REFRESH_SEC", 30)) * time.Second,
		RevertAfter:    time.Duration(getEnvInt("DASHBOARD_REVERT_SEC", 300)) * time.Second,
		CameraCacheTTL: time.Duration(getEnvInt("DASHBOARD_CAMERA_CACHE_SEC", 300)) * time.Second,
		RequestTimeout: time.Duration(getEnvInt("DASHBOARD_REQUEST_TIMEOUT_SEC", 30)) * time.Second,
	}
}

// AuthEnabled reports whether ingest requests must carry a token
func (c ServerConfig) AuthEnabled() bool {
	return c.JWTSecret != ""
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	val := os.Getenv(key)
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		log.Printf("⚠️ Invalid %s=%q, using default %d", key, val, def)
		return def
	}
	return parsed
}
