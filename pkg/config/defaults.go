// Package config provides centralized default values for the engagement collector
package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

var envLoaded sync.Once

func loadEnvFile() {
	envLoaded.Do(func() {
		if _, err := os.Stat(".env"); err != nil {
			return
		}
		log.Println("Loading configuration overrides from .env file...")
		// Load never overrides variables already present in the environment.
		if err := godotenv.Load(); err != nil {
			log.Printf("Config: failed to load .env: %v", err)
		}
	})
}

func getEnvInt(key string, defaultValue int) int {
	if valStr := os.Getenv(key); valStr != "" {
		if val, err := strconv.Atoi(valStr); err == nil {
			if val != defaultValue {
				log.Printf("Config override: %s=%d (default: %d)", key, val, defaultValue)
			}
			return val
		}
	}
	return defaultValue
}

func getEnvString(key string, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		if val != defaultValue {
			log.Printf("Config override: %s=%s (default: %s)", key, val, defaultValue)
		}
		return val
	}
	return defaultValue
}

func getEnvSecret(key string) string {
	if val := os.Getenv(key); val != "" {
		log.Printf("Config override: %s=<redacted>", key)
		return val
	}
	return ""
}

func getEnvBool(key string, defaultValue bool) bool {
	if valStr := os.Getenv(key); valStr != "" {
		if val, err := strconv.ParseBool(valStr); err == nil {
			if val != defaultValue {
				log.Printf("Config override: %s=%t (default: %t)", key, val, defaultValue)
			}
			return val
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if valStr := os.Getenv(key); valStr != "" {
		if val, err := time.ParseDuration(valStr); err == nil {
			if val != defaultValue {
				log.Printf("Config override: %s=%s (default: %s)", key, val, defaultValue)
			}
			return val
		}
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	valStr := os.Getenv(key)
	if valStr == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	log.Printf("Config override: %s=%s", key, strings.Join(out, ","))
	return out
}

var (
	// Server Configuration
	Port               string
	ServerReadTimeout  time.Duration
	ServerWriteTimeout time.Duration
	ServerIdleTimeout  time.Duration
	AllowedOrigins     []string

	// Tracker Timing
	TrackingInterval     time.Duration
	PulseInterval        time.Duration
	InactivityTimeout    time.Duration
	ScrollDebounce       time.Duration
	ReadingCheckInterval time.Duration
	OnlyPulseWhenActive  bool
	TrackingProfilePath  string

	// Page View Lifecycle
	PageViewTTL     time.Duration
	CleanupInterval time.Duration
	CleanupVerbose  bool
	ShutdownTimeout time.Duration

	// Flag Store
	FlagStore      string
	FlagStoreDSN   string
	FlagStoreToken string
	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	FlagTTL        time.Duration

	// Security
	JWTSecret  string
	AdminToken string

	// Logging
	LogLevel     string
	LogJSON      bool
	LogDirectory string
	LogToFile    bool
)

func init() {
	loadEnvFile()

	// Server Configuration
	Port = getEnvString("PORT", "8080")
	ServerReadTimeout = getEnvDuration("SERVER_READ_TIMEOUT", 15*time.Second)
	ServerWriteTimeout = getEnvDuration("SERVER_WRITE_TIMEOUT", 15*time.Second)
	ServerIdleTimeout = getEnvDuration("SERVER_IDLE_TIMEOUT", 60*time.Second)
	AllowedOrigins = getEnvList("ALLOWED_ORIGINS", []string{"*"})

	// Tracker Timing
	TrackingInterval = getEnvDuration("TRACKING_INTERVAL", 30*time.Second)
	PulseInterval = getEnvDuration("PULSE_INTERVAL", 15*time.Second)
	InactivityTimeout = getEnvDuration("INACTIVITY_TIMEOUT", 60*time.Second)
	ScrollDebounce = getEnvDuration("SCROLL_DEBOUNCE", 100*time.Millisecond)
	ReadingCheckInterval = getEnvDuration("READING_CHECK_INTERVAL", 5*time.Second)
	OnlyPulseWhenActive = getEnvBool("ONLY_PULSE_WHEN_ACTIVE", false)
	TrackingProfilePath = getEnvString("TRACKING_PROFILE", "")

	// Page View Lifecycle
	PageViewTTL = getEnvDuration("PAGEVIEW_TTL", 30*time.Minute)
	CleanupInterval = getEnvDuration("CLEANUP_INTERVAL", time.Minute)
	CleanupVerbose = getEnvBool("CLEANUP_VERBOSE", false)
	ShutdownTimeout = getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second)

	// Flag Store
	FlagStore = getEnvString("FLAG_STORE", "memory")
	FlagStoreDSN = getEnvString("FLAG_STORE_DSN", "engagement.db")
	FlagStoreToken = getEnvSecret("FLAG_STORE_TOKEN")
	RedisAddr = getEnvString("REDIS_ADDR", "localhost:6379")
	RedisPassword = getEnvSecret("REDIS_PASSWORD")
	RedisDB = getEnvInt("REDIS_DB", 0)
	FlagTTL = getEnvDuration("FLAG_TTL", 24*time.Hour)

	// Security
	JWTSecret = getEnvSecret("JWT_SECRET")
	AdminToken = getEnvSecret("ADMIN_TOKEN")

	// Logging
	LogLevel = getEnvString("LOG_LEVEL", "info")
	LogJSON = getEnvBool("LOG_JSON", true)
	LogDirectory = getEnvString("LOG_DIR", "logs")
	LogToFile = getEnvBool("LOG_TO_FILE", false)
}
