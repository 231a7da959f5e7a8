// Package config provides application configuration management using environment variables.
package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Supported store drivers
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// CallbackPath is appended to BASE_DOMAIN_NAME to build the OAuth redirect URI
const CallbackPath = "/loggedin"

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig
	Discord  DiscordConfig
	Database DatabaseConfig
	Security SecurityConfig
	API      APIConfig
	Logging  LoggingConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	HTTPPort   string
	Host       string
	Env        string
	BaseDomain string
}

// DiscordConfig holds Discord OAuth configuration
type DiscordConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	Scopes       []string
}

// DatabaseConfig holds database connection configuration
type DatabaseConfig struct {
	Driver         string
	SQLitePath     string
	Host           string
	Port           string
	User           string
	Password       string
	Name           string
	SSLMode        string
	MaxOpenConns   int
	MaxIdleConns   int
	MigrationsPath string
}

// SecurityConfig holds session and token protection settings
type SecurityConfig struct {
	SessionSecret      []byte
	TokenEncryptionKey []byte
	SessionExpiryHours int
	SecureCookies      bool
}

// APIConfig holds settings for the token-authenticated award API
type APIConfig struct {
	RateLimitPerMinute int
	// TrustProxyHeaders takes the client address from X-Forwarded-For and friends.
	// Only enable it behind a reverse proxy that overwrites those headers.
	TrustProxyHeaders bool
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// Load loads configuration from environment variables
// It optionally loads from a .env file if it exists
func Load() (*Config, error) {
	// Try to load .env file (optional, ignore error if not found)
	_ = godotenv.Load()

	cfg := &Config{}

	baseDomain := strings.TrimRight(getEnv("BASE_DOMAIN_NAME", ""), "/")
	cfg.Server = ServerConfig{
		HTTPPort:   getEnv("HTTP_PORT", "8080"),
		Host:       getEnv("SERVER_HOST", "localhost"),
		Env:        getEnv("ENVIRONMENT", "development"),
		BaseDomain: baseDomain,
	}

	redirectURI := ""
	if baseDomain != "" {
		redirectURI = baseDomain + CallbackPath
	}
	cfg.Discord = DiscordConfig{
		ClientID:     getEnv("DISCORD_OAUTH_CLIENT_ID", ""),
		ClientSecret: getEnv("DISCORD_OAUTH_CLIENT_SECRET", ""),
		RedirectURI:  redirectURI,
		Scopes:       strings.Fields(getEnv("DISCORD_OAUTH_SCOPES", "identify guilds")),
	}

	maxOpenConns, _ := strconv.Atoi(getEnv("DB_MAX_OPEN_CONNS", "10"))
	maxIdleConns, _ := strconv.Atoi(getEnv("DB_MAX_IDLE_CONNS", "2"))

	cfg.Database = DatabaseConfig{
		Driver:         getEnv("DB_DRIVER", DriverSQLite),
		SQLitePath:     getEnv("SQLITE_PATH", "database.sqlite"),
		Host:           getEnv("DB_HOST", "localhost"),
		Port:           getEnv("DB_PORT", "5432"),
		User:           getEnv("DB_USER", "discordmedals"),
		Password:       getEnv("DB_PASSWORD", ""),
		Name:           getEnv("DB_NAME", "discordmedals"),
		SSLMode:        getEnv("DB_SSLMODE", "disable"),
		MaxOpenConns:   maxOpenConns,
		MaxIdleConns:   maxIdleConns,
		MigrationsPath: getEnv("DB_MIGRATIONS_PATH", "internal/database/migrations"),
	}

	sessionExpiryHours, _ := strconv.Atoi(getEnv("SESSION_EXPIRY_HOURS", "168"))
	secureCookies, _ := strconv.ParseBool(getEnv("SECURE_COOKIES", "false"))

	encryptionKey, err := hex.DecodeString(getEnv("TOKEN_ENCRYPTION_KEY", ""))
	if err != nil {
		return nil, fmt.Errorf("invalid TOKEN_ENCRYPTION_KEY: must be a hex-encoded string: %w", err)
	}

	cfg.Security = SecurityConfig{
		SessionSecret:      []byte(getEnv("SESSION_SECRET_KEY", "")),
		TokenEncryptionKey: encryptionKey,
		SessionExpiryHours: sessionExpiryHours,
		SecureCookies:      secureCookies,
	}

	rateLimit, _ := strconv.Atoi(getEnv("API_RATE_LIMIT_PER_MINUTE", "60"))
	trustProxy, _ := strconv.ParseBool(getEnv("TRUST_PROXY_HEADERS", "false"))
	cfg.API = APIConfig{RateLimitPerMinute: rateLimit, TrustProxyHeaders: trustProxy}

	cfg.Logging = LoggingConfig{
		Level:  getEnv("LOG_LEVEL", "info"),
		Format: getEnv("LOG_FORMAT", "json"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.BaseDomain == "" {
		return fmt.Errorf("BASE_DOMAIN_NAME is required")
	}
	if !strings.HasPrefix(c.Server.BaseDomain, "http://") && !strings.HasPrefix(c.Server.BaseDomain, "https://") {
		return fmt.Errorf("BASE_DOMAIN_NAME must start with http:// or https://")
	}

	if c.Discord.ClientID == "" {
		return fmt.Errorf("DISCORD_OAUTH_CLIENT_ID is required")
	}
	if c.Discord.ClientSecret == "" {
		return fmt.Errorf("DISCORD_OAUTH_CLIENT_SECRET is required")
	}
	if len(c.Discord.Scopes) == 0 {
		return fmt.Errorf("DISCORD_OAUTH_SCOPES must not be empty")
	}

	switch c.Database.Driver {
	case DriverSQLite:
		if c.Database.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required when DB_DRIVER=sqlite")
		}
	case DriverPostgres:
		if c.Database.User == "" {
			return fmt.Errorf("DB_USER is required")
		}
		if c.Database.Password == "" {
			return fmt.Errorf("DB_PASSWORD is required")
		}
		if c.Database.Name == "" {
			return fmt.Errorf("DB_NAME is required")
		}
	default:
		return fmt.Errorf("DB_DRIVER must be one of: sqlite, postgres")
	}

	if len(c.Security.SessionSecret) < 16 {
		return fmt.Errorf("SESSION_SECRET_KEY must be at least 16 bytes")
	}
	if len(c.Security.TokenEncryptionKey) != 32 {
		return fmt.Errorf("TOKEN_ENCRYPTION_KEY must be exactly 32 bytes (64 hex characters) for AES-256")
	}
	if c.Security.SessionExpiryHours <= 0 {
		return fmt.Errorf("SESSION_EXPIRY_HOURS must be positive")
	}
	if c.API.RateLimitPerMinute <= 0 {
		return fmt.Errorf("API_RATE_LIMIT_PER_MINUTE must be positive")
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("LOG_LEVEL must be one of: debug, info, warn, error")
	}
	validLogFormats := map[string]bool{"json": true, "console": true}
	if !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("LOG_FORMAT must be one of: json, console")
	}

	return nil
}

// GetDSN returns the postgres connection string
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// getEnv retrieves an environment variable with a fallback default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}
