package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Import    ImportConfig
	Redis     RedisConfig
	S3        S3Config
	Scheduler SchedulerConfig
	CORS      CORSConfig
}

type ServerConfig struct {
	Port        string
	GinMode     string
	Environment string
	StaticDir   string
}

type DatabaseConfig struct {
	Driver     string // sqlite or postgres
	SQLitePath string
	Host       string
	Port       string
	User       string
	Password   string
	DBName     string
	SSLMode    string
}

// ImportConfig tunes the batch ingestion pipeline.
type ImportConfig struct {
	ChunkSize      int
	ChunkPacing    time.Duration
	MaxUploadBytes int64
	ErrorSampleCap int
}

// RedisConfig is optional; an empty Host disables the import progress store.
type RedisConfig struct {
	Host        string
	Port        string
	Password    string
	DB          int
	ProgressTTL time.Duration
}

// S3Config is optional; an empty Bucket disables upload archiving.
type S3Config struct {
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	Prefix          string
}

type SchedulerConfig struct {
	IntegrityScanSpec string // empty disables the scan
}

type CORSConfig struct {
	AllowedOrigins []string
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:        getEnv("SERVER_PORT", "3001"),
			GinMode:     getEnv("GIN_MODE", "debug"),
			Environment: getEnv("ENVIRONMENT", "development"),
			StaticDir:   getEnv("STATIC_DIR", "./public"),
		},
		Database: DatabaseConfig{
			Driver:     getEnv("DB_DRIVER", "sqlite"),
			SQLitePath: getEnv("DB_SQLITE_PATH", "products.db"),
			Host:       getEnv("DB_HOST", "localhost"),
			Port:       getEnv("DB_PORT", "5432"),
			User:       getEnv("DB_USER", "trace"),
			Password:   getEnv("DB_PASSWORD", ""),
			DBName:     getEnv("DB_NAME", "traceability"),
			SSLMode:    getEnv("DB_SSLMODE", "disable"),
		},
		Import: ImportConfig{
			ChunkSize:      parseInt(getEnv("IMPORT_CHUNK_SIZE", "100"), 100),
			ChunkPacing:    parseDuration(getEnv("IMPORT_CHUNK_PACING", "100ms"), 100*time.Millisecond),
			MaxUploadBytes: int64(parseInt(getEnv("IMPORT_MAX_UPLOAD_MB", "32"), 32)) << 20,
			ErrorSampleCap: parseInt(getEnv("IMPORT_ERROR_SAMPLE", "10"), 10),
		},
		Redis: RedisConfig{
			Host:        getEnv("REDIS_HOST", ""),
			Port:        getEnv("REDIS_PORT", "6379"),
			Password:    getEnv("REDIS_PASSWORD", ""),
			DB:          parseInt(getEnv("REDIS_DB", "0"), 0),
			ProgressTTL: parseDuration(getEnv("IMPORT_PROGRESS_TTL", "24h"), 24*time.Hour),
		},
		S3: S3Config{
			Region:          getEnv("AWS_REGION", "ap-east-1"),
			Bucket:          getEnv("AWS_S3_BUCKET", ""),
			AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
			Prefix:          getEnv("AWS_S3_IMPORT_PREFIX", "imports"),
		},
		Scheduler: SchedulerConfig{
			IntegrityScanSpec: getEnv("INTEGRITY_SCAN_CRON", "0 3 * * *"),
		},
		CORS: CORSConfig{
			AllowedOrigins: parseSlice(getEnv("ALLOWED_ORIGINS", "*")),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q (want sqlite or postgres)", c.Database.Driver)
	}
	if c.Import.ChunkSize <= 0 {
		return fmt.Errorf("IMPORT_CHUNK_SIZE must be positive, got %d", c.Import.ChunkSize)
	}
	return nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

func (c *RedisConfig) Enabled() bool {
	return c.Host != ""
}

func (c *S3Config) Enabled() bool {
	return c.Bucket != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	duration, err := time.ParseDuration(s)
	if err != nil {
		log.Printf("Invalid duration %s, using default %s", s, fallback)
		return fallback
	}
	return duration
}

func parseInt(s string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		log.Printf("Invalid integer %s, using default %d", s, fallback)
		return fallback
	}
	return n
}

func parseSlice(s string) []string {
	var result []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			result = append(result, part)
		}
	}
	return result
}
