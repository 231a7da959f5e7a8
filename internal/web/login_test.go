package web

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parsascontentcorner/discordmedals/internal/session"
	"github.com/parsascontentcorner/discordmedals/internal/testutil"
)

func sessionCookie(t *testing.T, rr *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rr.Result().Cookies() {
		if c.Name == session.CookieName {
			return c
		}
	}
	t.Fatalf("response sets no %s cookie", session.CookieName)
	return nil
}

// beginLogin runs /login and returns the session cookie and the issued state
func (e *testEnv) beginLogin(t *testing.T) (*http.Cookie, string) {
	t.Helper()
	rr := e.get(t, "/login")
	require.Equal(t, http.StatusSeeOther, rr.Code)

	location, err := url.Parse(rr.Header().Get("Location"))
	require.NoError(t, err)
	state := location.Query().Get("state")
	require.NotEmpty(t, state)

	return sessionCookie(t, rr), state
}

func TestLogin_RedirectsToDiscord(t *testing.T) {
	env := newTestEnv(t)

	cookie, state := env.beginLogin(t)

	data, err := env.sessions.Decode(cookie.Value)
	require.NoError(t, err)
	assert.Equal(t, state, data.OAuthState)
	assert.Empty(t, data.UserID)

	rr := env.get(t, "/login")
	location, err := url.Parse(rr.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "discord.com", location.Host)
	assert.Equal(t, "test_client_id", location.Query().Get("client_id"))
	assert.Equal(t, "identify guilds", location.Query().Get("scope"))
	assert.Equal(t, "http://localhost:8080/loggedin", location.Query().Get("redirect_uri"))
}

func TestLoggedIn_Success(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	cookie, state := env.beginLogin(t)

	rr := env.get(t, "/loggedin?code="+testutil.MockValidCode+"&state="+state, cookie)

	require.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/", rr.Header().Get("Location"))

	data, err := env.sessions.Decode(sessionCookie(t, rr).Value)
	require.NoError(t, err)
	assert.Equal(t, testutil.MockUserID, data.UserID)
	assert.Empty(t, data.OAuthState, "pending state is consumed")
	require.NotNil(t, data.OAuthToken)
	assert.Equal(t, testutil.MockAccessToken, data.OAuthToken.AccessToken)

	user, err := env.store.GetUser(ctx, testutil.MockUserID)
	require.NoError(t, err)
	assert.Equal(t, "TestUser", user.Username)

	owned, err := env.store.GetGuild(ctx, "223456789012345678")
	require.NoError(t, err)
	assert.True(t, owned.IsOwnedBy(testutil.MockUserID))

	member, err := env.store.GetGuild(ctx, "323456789012345678")
	require.NoError(t, err)
	assert.False(t, member.OwnerID.Valid)

	rr = env.get(t, "/", sessionCookie(t, rr))
	assert.Equal(t, "/user/"+testutil.MockUserID, rr.Header().Get("Location"))
}

func TestLoggedIn_RejectedCallbacks(t *testing.T) {
	env := newTestEnv(t)
	cookie, state := env.beginLogin(t)

	tests := []struct {
		name    string
		target  string
		cookies []*http.Cookie
	}{
		{"no pending login", "/loggedin?code=" + testutil.MockValidCode + "&state=" + state, nil},
		{"provider error", "/loggedin?error=access_denied&state=" + state, []*http.Cookie{cookie}},
		{"state mismatch", "/loggedin?code=" + testutil.MockValidCode + "&state=forged", []*http.Cookie{cookie}},
		{"missing code", "/loggedin?state=" + state, []*http.Cookie{cookie}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := env.get(t, tt.target, tt.cookies...)
			assert.Equal(t, http.StatusSeeOther, rr.Code)
			assert.Equal(t, "/", rr.Header().Get("Location"))
		})
	}

	tokenCalls, _, _ := env.discord.CallCounts()
	assert.Zero(t, tokenCalls, "rejected callbacks never reach Discord")

	_, err := env.store.GetUser(context.Background(), testutil.MockUserID)
	assert.Error(t, err)
}

func TestLoggedIn_ProviderFailure(t *testing.T) {
	env := newTestEnv(t)
	cookie, state := env.beginLogin(t)

	rr := env.get(t, "/loggedin?code=invalid_code&state="+state, cookie)

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Contains(t, rr.Body.String(), "Failed to complete authentication")
}

func TestLogout(t *testing.T) {
	env := newTestEnv(t)

	for _, cookies := range [][]*http.Cookie{{env.cookieFor(t, env.member.ID)}, nil} {
		rr := env.get(t, "/logout", cookies...)

		assert.Equal(t, http.StatusSeeOther, rr.Code)
		assert.Equal(t, "/", rr.Header().Get("Location"))
		assert.Equal(t, -1, sessionCookie(t, rr).MaxAge)
	}
}
