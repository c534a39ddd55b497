package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Port    string
	DevMode bool

	// Database configuration
	DBType            string // mysql, postgres, sqlite, sqlite3, sqlserver, jsonfile
	DBHost            string
	DBPort            string
	DBDatabase        string
	DBUser            string
	DBPassword        string
	DBConnectionLimit int
	DBDebug           bool

	// Session configuration
	JWTSecret  []byte
	SessionTTL time.Duration

	// Reaction feed configuration
	ReactionWindow time.Duration
	ReactionBuffer int

	// Rate limits
	LoginRateLimit  int
	ExportRateLimit int
}

// LoadEnvFile loads variables from path, or from ENV_FILE / ./.env when path is empty.
// A missing default .env is not an error.
func LoadEnvFile(path string) error {
	explicit := path != ""
	if !explicit {
		path = os.Getenv("ENV_FILE")
		explicit = path != ""
	}
	if !explicit {
		path = ".env"
		if _, err := os.Stat(path); err != nil {
			return nil
		}
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	log.Printf("Loaded environment variables from %s", path)
	return nil
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	if err := LoadEnvFile(""); err != nil {
		return nil, err
	}

	dbType := getEnv("DB_TYPE", "sqlite")
	cfg := &Config{
		Port:              getEnv("PORT", "3000"),
		DevMode:           getEnvAsBool("DEV_MODE", false),
		DBType:            dbType,
		DBHost:            getEnv("DB_HOST", "localhost"),
		DBPort:            getEnv("DB_PORT", defaultDBPort(dbType)),
		DBDatabase:        getEnv("DB_DATABASE", defaultDatabase(dbType)),
		DBUser:            getEnv("DB_USER", ""),
		DBPassword:        getEnv("DB_PASSWORD", ""),
		DBConnectionLimit: getEnvAsInt("DB_CONNECTION_LIMIT", 5),
		DBDebug:           getEnvAsBool("DB_DEBUG", false),
		JWTSecret:         []byte(getEnv("JWT_SECRET", "")),
		SessionTTL:        getEnvAsDuration("SESSION_TTL", 24*time.Hour),
		ReactionWindow:    getEnvAsDuration("REACTION_WINDOW", 60*time.Second),
		ReactionBuffer:    getEnvAsInt("REACTION_BUFFER", 256),
		LoginRateLimit:    getEnvAsInt("LOGIN_RATE_LIMIT", 10),
		ExportRateLimit:   getEnvAsInt("EXPORT_RATE_LIMIT", 3),
	}

	// Validate required fields
	if cfg.DBDatabase == "" {
		return nil, fmt.Errorf("DB_DATABASE is required")
	}
	if cfg.IsServerDatabase() && cfg.DBUser == "" {
		return nil, fmt.Errorf("DB_USER is required for DB_TYPE %s", cfg.DBType)
	}
	if len(cfg.JWTSecret) == 0 {
		if !cfg.DevMode {
			return nil, fmt.Errorf("JWT_SECRET is required")
		}
		secret, err := randomSecret()
		if err != nil {
			return nil, err
		}
		cfg.JWTSecret = secret
		log.Printf("DEV_MODE: using a generated JWT secret, sessions will not survive a restart")
	}
	if cfg.ReactionBuffer <= 0 {
		return nil, fmt.Errorf("REACTION_BUFFER must be positive")
	}

	return cfg, nil
}

// IsServerDatabase reports whether DBType needs a network connection
func (c *Config) IsServerDatabase() bool {
	switch c.DBType {
	case "sqlite", "sqlite3", "jsonfile":
		return false
	}
	return true
}

func defaultDBPort(dbType string) string {
	switch dbType {
	case "postgres", "postgresql":
		return "5432"
	case "sqlserver", "mssql":
		return "1433"
	case "mysql", "mariadb":
		return "3306"
	}
	return ""
}

func defaultDatabase(dbType string) string {
	switch dbType {
	case "sqlite", "sqlite3":
		return "retroboard.db"
	case "jsonfile":
		return "retroboard.json"
	}
	return ""
}

func randomSecret() ([]byte, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("generate secret: %w", err)
	}
	return []byte(hex.EncodeToString(b)), nil
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	value, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value, err := time.ParseDuration(os.Getenv(key))
	if err != nil || value <= 0 {
		return defaultValue
	}
	return value
}
