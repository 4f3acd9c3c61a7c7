package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Application
	AppName string
	AppEnv  string
	AppPort string
	AppURL  string

	// Database
	DBHost            string
	DBPort            string
	DBDatabase        string
	DBUsername        string
	DBPassword        string
	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxLifetime time.Duration

	// Redis
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	// Upload
	UploadMaxSizeMB int
	UploadPath      string
	ExportPath      string

	// Import
	ImportDelimiter        string
	ImportPageSize         int
	ImportLimitOfLines     int
	ExportLimitOfLines     int
	StrongRegionValidation bool

	// Accounts
	AccountTypes        []string
	AccountStatuses     []string
	LoginAllowedSymbols string
	PasswordMinLength   int

	// Worker
	WorkerConcurrency int

	// Asynq
	AsynqRedisAddr     string
	AsynqRedisPassword string
	AsynqRedisDB       int
}

func Load() (*Config, error) {
	// Load .env file if exists
	// Try to load from current dir first, then parent dirs
	_ = godotenv.Load()
	_ = godotenv.Load("../../.env") // For when running from cmd/web or cmd/worker

	cfg := &Config{
		AppName: getEnv("APP_NAME", "Customer Web"),
		AppEnv:  getEnv("APP_ENV", "development"),
		AppPort: getEnv("APP_PORT", "8080"),
		AppURL:  getEnv("APP_URL", "http://localhost:8080"),

		DBHost:            getEnv("DB_HOST", "127.0.0.1"),
		DBPort:            getEnv("DB_PORT", "3306"),
		DBDatabase:        getEnv("DB_DATABASE", "customer"),
		DBUsername:        getEnv("DB_USERNAME", "customer"),
		DBPassword:        getEnv("DB_PASSWORD", ""),
		DBMaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
		DBMaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 25),
		DBConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),

		RedisHost:     getEnv("REDIS_HOST", "127.0.0.1"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),

		UploadMaxSizeMB: getEnvAsInt("IMPORT_MAX_FILE_SIZE_MB", 1),
		UploadPath:      getEnv("UPLOAD_PATH", "./storage/uploads"),
		ExportPath:      getEnv("EXPORT_PATH", "./storage/exports"),

		ImportDelimiter:        getEnv("IMPORT_DELIMITER", ";"),
		ImportPageSize:         getEnvAsInt("IMPORT_PAGE_SIZE", 50),
		ImportLimitOfLines:     getEnvAsInt("IMPORT_MAX_LINE_COUNT", 10000),
		ExportLimitOfLines:     getEnvAsInt("EXPORT_MAX_LINE_COUNT", 10000),
		StrongRegionValidation: getEnvAsBool("STRONG_REGION_VALIDATION", false),

		AccountTypes:        getEnvAsList("ACCOUNT_TYPES", "Customer,Manager,Administrator"),
		AccountStatuses:     getEnvAsList("ACCOUNT_STATUSES", "New,Approved,Rejected"),
		LoginAllowedSymbols: getEnv("LOGIN_ALLOWED_SYMBOLS", "@.-_"),
		PasswordMinLength:   getEnvAsInt("PASSWORD_MIN_LENGTH", 8),

		WorkerConcurrency: getEnvAsInt("WORKER_CONCURRENCY", 4),

		AsynqRedisAddr:     getEnv("ASYNQ_REDIS_ADDR", "127.0.0.1:6379"),
		AsynqRedisPassword: getEnv("ASYNQ_REDIS_PASSWORD", ""),
		AsynqRedisDB:       getEnvAsInt("ASYNQ_REDIS_DB", 0),
	}

	return cfg, nil
}

func (c *Config) GetDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true&loc=Local",
		c.DBUsername,
		c.DBPassword,
		c.DBHost,
		c.DBPort,
		c.DBDatabase,
	)
}

func (c *Config) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", c.RedisHost, c.RedisPort)
}

// UploadMaxSizeBytes converts the configured megabyte limit to bytes.
func (c *Config) UploadMaxSizeBytes() int64 {
	return int64(c.UploadMaxSizeMB) * 1024 * 1024
}

// DelimiterRune returns the first rune of the configured delimiter,
// falling back to the semicolon default.
func (c *Config) DelimiterRune() rune {
	for _, r := range c.ImportDelimiter {
		return r
	}
	return ';'
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsList(key, defaultValue string) []string {
	raw := getEnv(key, defaultValue)
	var values []string
	for _, v := range strings.Split(raw, ",") {
		if v = strings.TrimSpace(v); v != "" {
			values = append(values, v)
		}
	}
	return values
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
