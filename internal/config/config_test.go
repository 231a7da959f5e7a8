package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validEncryptionKey = "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"

// setupTestEnv sets up environment variables for testing and returns a cleanup function.
// Empty values unset the variable so Load falls back to its default.
func setupTestEnv(t *testing.T, envVars map[string]string) func() {
	original := make(map[string]string)
	for key := range envVars {
		original[key] = os.Getenv(key)
	}

	for key, value := range envVars {
		var err error
		if value == "" {
			err = os.Unsetenv(key)
		} else {
			err = os.Setenv(key, value)
		}
		if err != nil {
			t.Error(err)
		}
	}

	return func() {
		for key, value := range original {
			var err error
			if value == "" {
				err = os.Unsetenv(key)
			} else {
				err = os.Setenv(key, value)
			}
			if err != nil {
				t.Error(err)
			}
		}
	}
}

// baseEnv returns a complete valid environment, with overrides applied on top
func baseEnv(overrides map[string]string) map[string]string {
	env := map[string]string{
		"BASE_DOMAIN_NAME":            "http://localhost:8080",
		"DISCORD_OAUTH_CLIENT_ID":     "client_id",
		"DISCORD_OAUTH_CLIENT_SECRET": "secret",
		"DISCORD_OAUTH_SCOPES":        "",
		"DB_DRIVER":                   "",
		"SQLITE_PATH":                 "",
		"DB_PASSWORD":                 "",
		"SESSION_SECRET_KEY":          "a-very-long-session-secret",
		"TOKEN_ENCRYPTION_KEY":        validEncryptionKey,
		"SESSION_EXPIRY_HOURS":        "",
		"API_RATE_LIMIT_PER_MINUTE":   "",
		"TRUST_PROXY_HEADERS":         "",
		"LOG_LEVEL":                   "",
		"LOG_FORMAT":                  "",
		"HTTP_PORT":                   "",
	}
	for k, v := range overrides {
		env[k] = v
	}
	return env
}

func TestLoadConfigSuccess(t *testing.T) {
	cleanup := setupTestEnv(t, baseEnv(map[string]string{
		"BASE_DOMAIN_NAME": "https://medals.example.com/",
		"HTTP_PORT":        "9090",
		"LOG_LEVEL":        "debug",
		"LOG_FORMAT":       "console",
	}))
	defer cleanup()

	cfg, err := Load()

	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "client_id", cfg.Discord.ClientID)
	assert.Equal(t, "secret", cfg.Discord.ClientSecret)
	assert.Equal(t, "https://medals.example.com/loggedin", cfg.Discord.RedirectURI)
	assert.Equal(t, []string{"identify", "guilds"}, cfg.Discord.Scopes)

	assert.Equal(t, "9090", cfg.Server.HTTPPort)
	assert.Equal(t, "https://medals.example.com", cfg.Server.BaseDomain)

	assert.Equal(t, DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, "database.sqlite", cfg.Database.SQLitePath)

	assert.Equal(t, 32, len(cfg.Security.TokenEncryptionKey))
	assert.Equal(t, 168, cfg.Security.SessionExpiryHours)
	assert.False(t, cfg.Security.SecureCookies)
	assert.Equal(t, 60, cfg.API.RateLimitPerMinute)
	assert.False(t, cfg.API.TrustProxyHeaders)

	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)
}

func TestLoadConfigMissingRequired(t *testing.T) {
	tests := []struct {
		name        string
		overrides   map[string]string
		expectedErr string
	}{
		{"missing BASE_DOMAIN_NAME", map[string]string{"BASE_DOMAIN_NAME": ""}, "BASE_DOMAIN_NAME is required"},
		{"scheme-less BASE_DOMAIN_NAME", map[string]string{"BASE_DOMAIN_NAME": "medals.example.com"}, "must start with http"},
		{"missing client id", map[string]string{"DISCORD_OAUTH_CLIENT_ID": ""}, "DISCORD_OAUTH_CLIENT_ID is required"},
		{"missing client secret", map[string]string{"DISCORD_OAUTH_CLIENT_SECRET": ""}, "DISCORD_OAUTH_CLIENT_SECRET is required"},
		{"missing session secret", map[string]string{"SESSION_SECRET_KEY": ""}, "SESSION_SECRET_KEY must be at least 16 bytes"},
		{"short session secret", map[string]string{"SESSION_SECRET_KEY": "short"}, "SESSION_SECRET_KEY must be at least 16 bytes"},
		{"postgres without password", map[string]string{"DB_DRIVER": "postgres"}, "DB_PASSWORD is required"},
		{"unknown driver", map[string]string{"DB_DRIVER": "mysql"}, "DB_DRIVER must be one of"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cleanup := setupTestEnv(t, baseEnv(tt.overrides))
			defer cleanup()

			cfg, err := Load()

			assert.Error(t, err)
			assert.Nil(t, cfg)
			assert.Contains(t, err.Error(), tt.expectedErr)
		})
	}
}

func TestLoadConfigTrustProxyHeaders(t *testing.T) {
	cleanup := setupTestEnv(t, baseEnv(map[string]string{"TRUST_PROXY_HEADERS": "true"}))
	defer cleanup()

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.API.TrustProxyHeaders)
}

func TestLoadConfigPostgres(t *testing.T) {
	cleanup := setupTestEnv(t, baseEnv(map[string]string{
		"DB_DRIVER":   "postgres",
		"DB_PASSWORD": "pw",
	}))
	defer cleanup()

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, DriverPostgres, cfg.Database.Driver)
	assert.Equal(t, "host=localhost port=5432 user=discordmedals password=pw dbname=discordmedals sslmode=disable", cfg.Database.GetDSN())
}

func TestLoadConfigInvalidEncryptionKey(t *testing.T) {
	tests := []struct {
		name           string
		encryptionKey  string
		expectedErrMsg string
	}{
		{"non-hex characters", "zzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzz", "invalid TOKEN_ENCRYPTION_KEY: must be a hex-encoded string"},
		{"too short - 16 bytes", "0123456789abcdef0123456789abcdef", "TOKEN_ENCRYPTION_KEY must be exactly 32 bytes"},
		{"empty encryption key", "", "TOKEN_ENCRYPTION_KEY must be exactly 32 bytes"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cleanup := setupTestEnv(t, baseEnv(map[string]string{"TOKEN_ENCRYPTION_KEY": tt.encryptionKey}))
			defer cleanup()

			cfg, err := Load()

			assert.Error(t, err)
			assert.Nil(t, cfg)
			assert.Contains(t, err.Error(), tt.expectedErrMsg)
		})
	}
}

func TestValidatePositiveIntegers(t *testing.T) {
	tests := []struct {
		key         string
		value       string
		expectedErr string
	}{
		{"SESSION_EXPIRY_HOURS", "0", "SESSION_EXPIRY_HOURS must be positive"},
		{"SESSION_EXPIRY_HOURS", "-1", "SESSION_EXPIRY_HOURS must be positive"},
		{"API_RATE_LIMIT_PER_MINUTE", "0", "API_RATE_LIMIT_PER_MINUTE must be positive"},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			cleanup := setupTestEnv(t, baseEnv(map[string]string{tt.key: tt.value}))
			defer cleanup()

			cfg, err := Load()
			assert.Error(t, err)
			assert.Nil(t, cfg)
			assert.Contains(t, err.Error(), tt.expectedErr)
		})
	}
}

func TestValidateLogLevel(t *testing.T) {
	tests := []struct {
		level       string
		shouldError bool
	}{
		{"debug", false},
		{"info", false},
		{"warn", false},
		{"error", false},
		{"trace", true},
		{"DEBUG", true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			cleanup := setupTestEnv(t, baseEnv(map[string]string{"LOG_LEVEL": tt.level}))
			defer cleanup()

			cfg, err := Load()

			if tt.shouldError {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), "LOG_LEVEL must be one of")
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.level, cfg.Logging.Level)
			}
		})
	}
}

func TestValidateLogFormat(t *testing.T) {
	for _, format := range []string{"xml", "JSON"} {
		t.Run(format, func(t *testing.T) {
			cleanup := setupTestEnv(t, baseEnv(map[string]string{"LOG_FORMAT": format}))
			defer cleanup()

			_, err := Load()
			assert.Error(t, err)
			assert.Contains(t, err.Error(), "LOG_FORMAT must be one of")
		})
	}
}
