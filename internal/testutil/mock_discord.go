package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
)

// Values served by MockDiscordServer
const (
	MockValidCode   = "valid_code"
	MockAccessToken = "mock_access_token_123"
	MockUserID      = "123456789012345678"
)

// MockDiscordServer represents a mock Discord API server for testing.
// It serves the token exchange, current user and current user guilds endpoints under /api/v10.
type MockDiscordServer struct {
	Server *httptest.Server

	mu             sync.Mutex
	user           DiscordUserResponse
	guilds         []DiscordGuildResponse
	failGuilds     bool
	rateLimitGuild bool
	tokenCalls     int
	userInfoCalls  int
	guildCalls     int
}

// DiscordTokenResponse represents the OAuth token response from Discord.
type DiscordTokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
	Scope        string `json:"scope"`
}

// DiscordUserResponse represents the user info response from Discord.
type DiscordUserResponse struct {
	ID            string `json:"id"`
	Username      string `json:"username"`
	Discriminator string `json:"discriminator"`
	Avatar        string `json:"avatar"`
}

// DiscordGuildResponse represents one entry of the current user's guild list.
type DiscordGuildResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Icon        string `json:"icon"`
	Owner       bool   `json:"owner"`
	Permissions string `json:"permissions"`
}

// DiscordErrorResponse represents an error response from Discord.
type DiscordErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// NewMockDiscordServer creates a new mock Discord API server with one user in two guilds.
// The user owns the first guild.
func NewMockDiscordServer() *MockDiscordServer {
	mds := &MockDiscordServer{
		user: DiscordUserResponse{
			ID:            MockUserID,
			Username:      "TestUser",
			Discriminator: "1234",
			Avatar:        "avatar_hash_123",
		},
		guilds: []DiscordGuildResponse{
			{ID: "223456789012345678", Name: "Owned Guild", Icon: "guild_icon_1", Owner: true, Permissions: "2147483647"},
			{ID: "323456789012345678", Name: "Member Guild", Permissions: "104324673"},
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v10/oauth2/token", mds.handleToken)
	mux.HandleFunc("/api/v10/users/@me", mds.handleUser)
	mux.HandleFunc("/api/v10/users/@me/guilds", mds.handleGuilds)

	mds.Server = httptest.NewServer(mux)
	return mds
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (mds *MockDiscordServer) handleToken(w http.ResponseWriter, r *http.Request) {
	mds.mu.Lock()
	mds.tokenCalls++
	mds.mu.Unlock()

	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	if err := r.ParseForm(); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	switch r.FormValue("code") {
	case MockValidCode:
		writeJSON(w, http.StatusOK, DiscordTokenResponse{
			AccessToken:  MockAccessToken,
			TokenType:    "Bearer",
			ExpiresIn:    604800,
			RefreshToken: "mock_refresh_token_456",
			Scope:        "identify guilds",
		})
	case "server_error":
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("Internal Server Error"))
	default:
		writeJSON(w, http.StatusBadRequest, DiscordErrorResponse{
			Error:            "invalid_grant",
			ErrorDescription: "Invalid authorization code",
		})
	}
}

func (mds *MockDiscordServer) authorized(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return false
	}
	if strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ") != MockAccessToken {
		writeJSON(w, http.StatusUnauthorized, DiscordErrorResponse{
			Error:            "unauthorized",
			ErrorDescription: "Invalid token",
		})
		return false
	}
	return true
}

func (mds *MockDiscordServer) handleUser(w http.ResponseWriter, r *http.Request) {
	mds.mu.Lock()
	mds.userInfoCalls++
	user := mds.user
	mds.mu.Unlock()

	if !mds.authorized(w, r) {
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (mds *MockDiscordServer) handleGuilds(w http.ResponseWriter, r *http.Request) {
	mds.mu.Lock()
	mds.guildCalls++
	guilds := append([]DiscordGuildResponse(nil), mds.guilds...)
	fail, limited := mds.failGuilds, mds.rateLimitGuild
	mds.mu.Unlock()

	if !mds.authorized(w, r) {
		return
	}

	w.Header().Set("X-RateLimit-Limit", "5")
	w.Header().Set("X-RateLimit-Remaining", "4")

	switch {
	case limited:
		w.Header().Set("Retry-After", "1")
		writeJSON(w, http.StatusTooManyRequests, DiscordErrorResponse{Error: "rate_limited"})
	case fail:
		w.WriteHeader(http.StatusInternalServerError)
	default:
		writeJSON(w, http.StatusOK, guilds)
	}
}

// Close closes the mock server.
func (mds *MockDiscordServer) Close() {
	if mds.Server != nil {
		mds.Server.Close()
	}
}

// APIURL returns the API base URL to pass to the Discord client.
func (mds *MockDiscordServer) APIURL() string {
	return mds.Server.URL + "/api/v10"
}

// User returns the user the server reports.
func (mds *MockDiscordServer) User() DiscordUserResponse {
	mds.mu.Lock()
	defer mds.mu.Unlock()
	return mds.user
}

// Guilds returns the guild list the server reports.
func (mds *MockDiscordServer) Guilds() []DiscordGuildResponse {
	mds.mu.Lock()
	defer mds.mu.Unlock()
	return append([]DiscordGuildResponse(nil), mds.guilds...)
}

// SetUser replaces the reported user.
func (mds *MockDiscordServer) SetUser(u DiscordUserResponse) {
	mds.mu.Lock()
	defer mds.mu.Unlock()
	mds.user = u
}

// SetGuilds replaces the reported guild list.
func (mds *MockDiscordServer) SetGuilds(g []DiscordGuildResponse) {
	mds.mu.Lock()
	defer mds.mu.Unlock()
	mds.guilds = g
}

// FailGuilds makes the guild list endpoint return 500.
func (mds *MockDiscordServer) FailGuilds(fail bool) {
	mds.mu.Lock()
	defer mds.mu.Unlock()
	mds.failGuilds = fail
}

// RateLimitGuilds makes the guild list endpoint return 429.
func (mds *MockDiscordServer) RateLimitGuilds(limited bool) {
	mds.mu.Lock()
	defer mds.mu.Unlock()
	mds.rateLimitGuild = limited
}

// CallCounts returns how often each endpoint was hit.
func (mds *MockDiscordServer) CallCounts() (token, userInfo, guilds int) {
	mds.mu.Lock()
	defer mds.mu.Unlock()
	return mds.tokenCalls, mds.userInfoCalls, mds.guildCalls
}
