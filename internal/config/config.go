package config

import (
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// DefaultAppSecret signs trainee cookies when APP_SECRET is unset. It is
// only fit for local development.
const DefaultAppSecret = "change-me-in-production"

// Config holds application configuration
type Config struct {
	ServerPort      string
	StaticFilesPath string
	TemplatesPath   string
	MigrationsPath  string
	Debug           bool

	// Database settings (attempt history and the database snapshot backend)
	DatabaseType string
	DatabasePath string
	DatabaseURL  string

	// Exercise data sources, one per part
	DataPath           string
	MultipleChoiceFile string
	OpenClozeFile      string
	WordFormationFile  string

	// Reload a part as soon as its data file changes
	WatchData bool

	// Snapshot backend: "file", "database" or "redis"
	SnapshotBackend string
	SnapshotPath    string

	// Redis settings for the redis snapshot backend
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Time limit applied when a Part 1/2 session is rehydrated from a snapshot
	RecoveredTimeLimit time.Duration

	AppSecret      string
	CookieDuration time.Duration

	// Exercise starts allowed per client IP each minute; 0 disables the limit
	StartRateLimit int
}

// Load reads configuration from environment variables with sensible defaults.
// A .env file in the working directory is applied first when present.
func Load() *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: failed to read .env file: %v", err)
	}

	dataPath := getEnv("DATA_PATH", "./data")

	return &Config{
		ServerPort:      getEnv("PORT", "8080"),
		StaticFilesPath: getEnv("STATIC_PATH", "./static"),
		TemplatesPath:   getEnv("TEMPLATES_PATH", "./internal/templates"),
		MigrationsPath:  getEnv("MIGRATIONS_PATH", "./migrations"),
		Debug:           getEnvBool("DEBUG", false),

		DatabaseType: getEnv("DB_TYPE", "sqlite"),
		DatabasePath: getEnv("DB_PATH", "./fcetrainer.db"),
		DatabaseURL:  getEnv("DATABASE_URL", ""),

		DataPath:           dataPath,
		MultipleChoiceFile: getEnv("PART1_SOURCE", filepath.Join(dataPath, "fce_part1.csv")),
		OpenClozeFile:      getEnv("PART2_SOURCE", filepath.Join(dataPath, "fce_open_cloze.csv")),
		WordFormationFile:  getEnv("PART3_SOURCE", filepath.Join(dataPath, "fce_data.csv")),
		WatchData:          getEnvBool("WATCH_DATA", true),

		SnapshotBackend: getEnv("SNAPSHOT_BACKEND", "file"),
		SnapshotPath:    getEnv("SNAPSHOT_PATH", filepath.Join(dataPath, "snapshots")),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		RecoveredTimeLimit: getEnvDuration("RECOVERED_TIME_LIMIT", 300*time.Second),

		AppSecret:      getEnv("APP_SECRET", DefaultAppSecret),
		CookieDuration: getEnvDuration("COOKIE_DURATION", 30*24*time.Hour),

		StartRateLimit: getEnvInt("START_RATE_LIMIT", 30),
	}
}

// getEnv reads an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		log.Printf("Warning: invalid boolean for %s=%q, using %v", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("Warning: invalid integer for %s=%q, using %d", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

// getEnvDuration accepts Go duration strings ("90s", "5m") or a bare number of seconds
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		log.Printf("Warning: invalid duration for %s=%q, using %s", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}
