package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/parsascontentcorner/discordmedals/internal/ratelimit"
	"github.com/parsascontentcorner/discordmedals/internal/testutil"
)

func newMockedClient(t *testing.T) (*DiscordClient, *testutil.MockDiscordServer) {
	t.Helper()

	mockServer := testutil.NewMockDiscordServer()
	t.Cleanup(mockServer.Close)

	client := NewDiscordClient(testutil.GenerateTestConfig(), zap.NewNop())
	client.SetBaseURL(mockServer.APIURL())
	return client, mockServer
}

func TestNewDiscordClient(t *testing.T) {
	cfg := testutil.GenerateTestConfig()

	client := NewDiscordClient(cfg, zap.NewNop())

	require.NotNil(t, client)
	assert.Equal(t, cfg.Discord.ClientID, client.config.ClientID)
	assert.Equal(t, cfg.Discord.ClientSecret, client.config.ClientSecret)
	assert.Equal(t, cfg.Discord.RedirectURI, client.config.RedirectURL)
	assert.Equal(t, []string{"identify", "guilds"}, client.config.Scopes)
	assert.Equal(t, discordAPIEndpoint, client.baseURL)
}

func TestGetAuthURL(t *testing.T) {
	cfg := testutil.GenerateTestConfig()
	client := NewDiscordClient(cfg, zap.NewNop())

	authURL := client.GetAuthURL("test_state_123")

	assert.Contains(t, authURL, "discord.com/oauth2/authorize")
	assert.Contains(t, authURL, "client_id="+cfg.Discord.ClientID)
	assert.Contains(t, authURL, "redirect_uri=http%3A%2F%2Flocalhost%3A8080%2Floggedin")
	assert.Contains(t, authURL, "response_type=code")
	assert.Contains(t, authURL, "state=test_state_123")
	assert.Contains(t, authURL, "scope=identify+guilds")
}

func TestGetAuthURL_MultipleStates(t *testing.T) {
	client := NewDiscordClient(testutil.GenerateTestConfig(), zap.NewNop())

	url1 := client.GetAuthURL("state_1")
	url2 := client.GetAuthURL("state_2")

	assert.Contains(t, url1, "state=state_1")
	assert.Contains(t, url2, "state=state_2")
	assert.NotEqual(t, url1, url2)
}

func TestExchangeCode_Success(t *testing.T) {
	client, mockServer := newMockedClient(t)

	token, err := client.ExchangeCode(context.Background(), testutil.MockValidCode)

	require.NoError(t, err)
	assert.Equal(t, testutil.MockAccessToken, token.AccessToken)
	assert.Equal(t, "mock_refresh_token_456", token.RefreshToken)
	assert.False(t, token.Expiry.IsZero())

	tokenCalls, _, _ := mockServer.CallCounts()
	assert.Equal(t, 1, tokenCalls)
}

func TestExchangeCode_InvalidCode(t *testing.T) {
	client, _ := newMockedClient(t)

	token, err := client.ExchangeCode(context.Background(), "error_code")

	assert.Error(t, err)
	assert.Nil(t, token)
	assert.Contains(t, err.Error(), "failed to exchange code for token")
}

func TestExchangeCode_ServerError(t *testing.T) {
	client, _ := newMockedClient(t)

	token, err := client.ExchangeCode(context.Background(), "server_error")

	assert.Error(t, err)
	assert.Nil(t, token)
}

func TestGetUserInfo_Success(t *testing.T) {
	client, _ := newMockedClient(t)

	user, err := client.GetUserInfo(context.Background(), testutil.MockAccessToken)

	require.NoError(t, err)
	assert.Equal(t, testutil.MockUserID, user.ID)
	assert.Equal(t, "TestUser", user.Username)
	assert.Equal(t, "1234", user.Discriminator)
	assert.Equal(t, "avatar_hash_123", user.Avatar)
}

func TestGetUserInfo_InvalidToken(t *testing.T) {
	client, _ := newMockedClient(t)

	user, err := client.GetUserInfo(context.Background(), "invalid_token")

	assert.Error(t, err)
	assert.Nil(t, user)
	assert.Contains(t, err.Error(), "discord API returned status 401")
}

func TestGetUserGuilds_Success(t *testing.T) {
	client, _ := newMockedClient(t)

	guilds, err := client.GetUserGuilds(context.Background(), testutil.MockAccessToken)

	require.NoError(t, err)
	require.Len(t, guilds, 2)
	assert.Equal(t, "Owned Guild", guilds[0].Name)
	assert.True(t, guilds[0].Owner)
	assert.Equal(t, "2147483647", guilds[0].Permissions)
	assert.False(t, guilds[1].Owner)
	assert.Empty(t, guilds[1].Icon)
}

func TestGetUserGuilds_ServerError(t *testing.T) {
	client, mockServer := newMockedClient(t)
	mockServer.FailGuilds(true)

	guilds, err := client.GetUserGuilds(context.Background(), testutil.MockAccessToken)

	assert.Error(t, err)
	assert.Nil(t, guilds)
	assert.Contains(t, err.Error(), "status 500")
}

func TestGetUserGuilds_RateLimited(t *testing.T) {
	client, mockServer := newMockedClient(t)
	limiter := ratelimit.NewRateLimiter(zap.NewNop())
	client.SetRateLimiter(limiter)
	mockServer.RateLimitGuilds(true)

	guilds, err := client.GetUserGuilds(context.Background(), testutil.MockAccessToken)

	assert.Error(t, err)
	assert.Nil(t, guilds)
	assert.Contains(t, err.Error(), "rate limited")

	remaining, _, _ := limiter.GetStatus("/users/@me/guilds")
	assert.Equal(t, 0, remaining)
}

func TestGetUserGuilds_UpdatesRateLimiter(t *testing.T) {
	client, _ := newMockedClient(t)
	limiter := ratelimit.NewRateLimiter(zap.NewNop())
	client.SetRateLimiter(limiter)

	_, err := client.GetUserGuilds(context.Background(), testutil.MockAccessToken)
	require.NoError(t, err)

	remaining, limit, _ := limiter.GetStatus("/users/@me/guilds")
	assert.Equal(t, 4, remaining)
	assert.Equal(t, 5, limit)
}
