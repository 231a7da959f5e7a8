package testutil

import (
	"crypto/rand"
	"database/sql"
	"fmt"
	"time"

	"github.com/brianvoe/gofakeit/v7"

	"github.com/parsascontentcorner/discordmedals/internal/config"
	"github.com/parsascontentcorner/discordmedals/internal/models"
)

// Generator produces deterministic test data for a given seed.
type Generator struct {
	faker *gofakeit.Faker
}

// NewGenerator creates a generator. A zero seed uses the current time.
func NewGenerator(seed int64) *Generator {
	s := seed
	if s == 0 {
		s = time.Now().UnixNano()
	}
	return &Generator{faker: gofakeit.New(uint64(s))}
}

// Snowflake returns a random 18 digit Discord id.
func (g *Generator) Snowflake() string {
	return g.faker.Numerify("1#################")
}

// User creates a test user with a random id, name and avatar.
func (g *Generator) User() *models.User {
	return &models.User{
		ID:            g.Snowflake(),
		Username:      g.faker.Username(),
		Discriminator: g.faker.Number(1, 9999),
		Avatar:        sql.NullString{String: g.faker.Numerify("a_##########"), Valid: true},
	}
}

// Guild creates a test guild. An empty ownerID leaves the owner unknown.
func (g *Generator) Guild(ownerID string) *models.Guild {
	guild := &models.Guild{
		ID:   g.Snowflake(),
		Name: g.faker.Company(),
		Icon: sql.NullString{String: g.faker.Numerify("icon_########"), Valid: true},
	}
	if ownerID != "" {
		guild.OwnerID = sql.NullString{String: ownerID, Valid: true}
	}
	return guild
}

// Membership links a user to a guild with random permission bits.
func (g *Generator) Membership(guildID, userID string) *models.Membership {
	return &models.Membership{
		GuildID:     guildID,
		UserID:      userID,
		Permissions: int64(g.faker.Number(0, 1<<30)),
	}
}

// MedalInput creates a valid set of medal fields.
func (g *Generator) MedalInput() models.MedalInput {
	return models.MedalInput{
		Name:        g.faker.Adjective() + " " + g.faker.Noun(),
		Description: g.faker.HackerPhrase(),
		Icon:        "https://example.com/medals/" + g.faker.Numerify("####") + ".png",
		Tier:        models.Tiers[g.faker.Number(0, len(models.Tiers)-1)],
	}
}

// Medal creates an unsaved medal for the guild with a random token.
func (g *Generator) Medal(guildID string) *models.Medal {
	m := &models.Medal{
		GuildID: guildID,
		Token:   g.faker.LetterN(32),
	}
	g.MedalInput().Apply(m)
	return m
}

// GenerateEncryptionKey generates a 32-byte encryption key for testing.
func GenerateEncryptionKey() []byte {
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		panic(fmt.Sprintf("failed to generate encryption key: %v", err))
	}
	return key
}

// GenerateTestConfig creates a test configuration with valid values.
// Uses generated keys and an in-memory sqlite database.
func GenerateTestConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			HTTPPort:   "8080",
			Host:       "localhost",
			Env:        "test",
			BaseDomain: "http://localhost:8080",
		},
		Discord: config.DiscordConfig{
			ClientID:     "test_client_id",
			ClientSecret: "test_client_secret",
			RedirectURI:  "http://localhost:8080" + config.CallbackPath,
			Scopes:       []string{"identify", "guilds"},
		},
		Database: config.DatabaseConfig{
			Driver:       config.DriverSQLite,
			SQLitePath:   ":memory:",
			MaxOpenConns: 5,
			MaxIdleConns: 2,
		},
		Security: config.SecurityConfig{
			SessionSecret:      GenerateEncryptionKey(),
			TokenEncryptionKey: GenerateEncryptionKey(),
			SessionExpiryHours: 24,
		},
		API: config.APIConfig{
			RateLimitPerMinute: 60,
		},
		Logging: config.LoggingConfig{
			Level:  "debug",
			Format: "console",
		},
	}
}
