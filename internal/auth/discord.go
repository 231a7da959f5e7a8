// Package auth provides Discord OAuth2 authentication: authorization urls, code exchange,
// identity lookups and turning a completed login into stored users and guilds.
package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/parsascontentcorner/discordmedals/internal/config"
	"github.com/parsascontentcorner/discordmedals/internal/ratelimit"
)

const (
	discordAPIEndpoint = "https://discord.com/api/v10"
	discordAuthURL     = "https://discord.com/oauth2/authorize"
	discordTokenURL    = "https://discord.com/api/oauth2/token" //nolint:gosec // Not a hardcoded credential, just an API endpoint URL
)

// DiscordUser represents a Discord user from the API
type DiscordUser struct {
	ID            string `json:"id"`
	Username      string `json:"username"`
	Discriminator string `json:"discriminator"`
	Avatar        string `json:"avatar"`
}

// DiscordGuild represents a Discord guild (server) from the API
type DiscordGuild struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Icon        string `json:"icon"`
	Owner       bool   `json:"owner"`
	Permissions string `json:"permissions"`
}

// DiscordClient handles Discord OAuth operations
type DiscordClient struct {
	config      *oauth2.Config
	logger      *zap.Logger
	baseURL     string // Discord API base URL (configurable for testing)
	httpClient  *http.Client
	rateLimiter *ratelimit.RateLimiter
}

// NewDiscordClient creates a new Discord OAuth client
func NewDiscordClient(cfg *config.Config, logger *zap.Logger) *DiscordClient {
	oauthConfig := &oauth2.Config{
		ClientID:     cfg.Discord.ClientID,
		ClientSecret: cfg.Discord.ClientSecret,
		RedirectURL:  cfg.Discord.RedirectURI,
		Scopes:       cfg.Discord.Scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:   discordAuthURL,
			TokenURL:  discordTokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}

	return &DiscordClient{
		config:     oauthConfig,
		logger:     logger,
		baseURL:    discordAPIEndpoint,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// GetAuthURL constructs the Discord OAuth authorization URL
func (dc *DiscordClient) GetAuthURL(state string) string {
	return dc.config.AuthCodeURL(state)
}

// ExchangeCode exchanges an authorization code for an access token
func (dc *DiscordClient) ExchangeCode(ctx context.Context, code string) (*oauth2.Token, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, dc.httpClient)
	token, err := dc.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange code for token: %w", err)
	}

	dc.logger.Debug("successfully exchanged code for token",
		zap.String("token_type", token.TokenType),
		zap.Time("expiry", token.Expiry),
	)

	return token, nil
}

// GetUserInfo fetches the authenticated user from Discord API
func (dc *DiscordClient) GetUserInfo(ctx context.Context, accessToken string) (*DiscordUser, error) {
	var user DiscordUser
	if err := dc.getJSON(ctx, "/users/@me", accessToken, &user); err != nil {
		return nil, err
	}

	dc.logger.Debug("fetched user info from Discord",
		zap.String("discord_id", user.ID),
		zap.String("username", user.Username),
	)

	return &user, nil
}

// GetUserGuilds fetches the user's guilds from Discord API
func (dc *DiscordClient) GetUserGuilds(ctx context.Context, accessToken string) ([]*DiscordGuild, error) {
	var guilds []*DiscordGuild
	if err := dc.getJSON(ctx, "/users/@me/guilds", accessToken, &guilds); err != nil {
		return nil, err
	}

	dc.logger.Debug("fetched user guilds from Discord",
		zap.Int("guild_count", len(guilds)),
	)

	return guilds, nil
}

// SetRateLimiter sets the rate limiter for the Discord client
func (dc *DiscordClient) SetRateLimiter(rl *ratelimit.RateLimiter) {
	dc.rateLimiter = rl
}

// SetBaseURL points the client at another API root, including the token endpoint (used for testing)
func (dc *DiscordClient) SetBaseURL(url string) {
	dc.baseURL = url
	dc.config.Endpoint.TokenURL = url + "/oauth2/token"
}

func (dc *DiscordClient) getJSON(ctx context.Context, endpoint, accessToken string, out any) error {
	resp, err := dc.makeAPIRequest(ctx, http.MethodGet, endpoint, accessToken)
	if err != nil {
		return err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			dc.logger.Warn("failed to close response body", zap.Error(err))
		}
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("discord API returned status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", endpoint, err)
	}
	return nil
}

// makeAPIRequest makes a rate-limited HTTP request to Discord API
func (dc *DiscordClient) makeAPIRequest(ctx context.Context, method, endpoint, accessToken string) (*http.Response, error) {
	if dc.rateLimiter != nil {
		if err := dc.rateLimiter.Wait(ctx, endpoint); err != nil {
			return nil, fmt.Errorf("rate limit wait failed: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, dc.baseURL+endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := dc.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}

	if dc.rateLimiter != nil {
		dc.rateLimiter.UpdateFromHeaders(endpoint, resp.Header)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		defer func() { _ = resp.Body.Close() }()
		if dc.rateLimiter != nil {
			_ = dc.rateLimiter.HandleRateLimitResponse(endpoint, resp.Header)
		}
		return nil, fmt.Errorf("rate limited by Discord API")
	}

	return resp, nil
}
