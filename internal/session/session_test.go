package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/parsascontentcorner/discordmedals/internal/auth"
	"github.com/parsascontentcorner/discordmedals/internal/testutil"
)

func newManager(t *testing.T) *Manager {
	t.Helper()

	sealer, err := auth.NewTokenCipher(testutil.GenerateEncryptionKey())
	require.NoError(t, err)
	return NewManager([]byte("0123456789abcdef0123456789abcdef"), sealer, time.Hour, true, zap.NewNop())
}

func requestWithCookie(c *http.Cookie) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	if c != nil {
		r.AddCookie(c)
	}
	return r
}

func savedCookie(t *testing.T, m *Manager, d *Data) *http.Cookie {
	t.Helper()

	w := httptest.NewRecorder()
	require.NoError(t, m.Save(w, d))
	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	return cookies[0]
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	m := newManager(t)
	expiry := time.Now().Add(time.Hour).Truncate(time.Second)

	in := &Data{
		UserID:     "123456789012345678",
		OAuthState: "state",
		OAuthToken: &oauth2.Token{AccessToken: "secret-access", TokenType: "Bearer", RefreshToken: "secret-refresh", Expiry: expiry},
	}

	cookie := savedCookie(t, m, in)
	assert.Equal(t, CookieName, cookie.Name)
	assert.True(t, cookie.HttpOnly)
	assert.True(t, cookie.Secure)
	assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)
	assert.NotContains(t, cookie.Value, "secret-access")

	out := m.Load(requestWithCookie(cookie))

	assert.Equal(t, in.UserID, out.UserID)
	assert.Equal(t, in.OAuthState, out.OAuthState)
	require.NotNil(t, out.OAuthToken)
	assert.Equal(t, "secret-access", out.OAuthToken.AccessToken)
	assert.Equal(t, "secret-refresh", out.OAuthToken.RefreshToken)
	assert.True(t, expiry.Equal(out.OAuthToken.Expiry))
	assert.True(t, out.LoggedIn())
}

func TestLoad_NoCookie(t *testing.T) {
	m := newManager(t)

	d := m.Load(requestWithCookie(nil))

	assert.False(t, d.LoggedIn())
	assert.Empty(t, d.OAuthState)
	assert.Nil(t, d.OAuthToken)
}

func TestLoad_TamperedCookie(t *testing.T) {
	m := newManager(t)
	cookie := savedCookie(t, m, &Data{UserID: "123"})

	parts := strings.Split(cookie.Value, ".")
	require.Len(t, parts, 3)
	forged := savedCookie(t, m, &Data{UserID: "999"})
	forgedParts := strings.Split(forged.Value, ".")
	// payload of one session with the signature of another
	cookie.Value = parts[0] + "." + forgedParts[1] + "." + parts[2]

	d := m.Load(requestWithCookie(cookie))
	assert.False(t, d.LoggedIn())

	_, err := m.Decode(cookie.Value)
	assert.ErrorIs(t, err, ErrInvalidSession)
}

func TestDecode_WrongSecret(t *testing.T) {
	m := newManager(t)
	other := newManager(t)
	other.secret = []byte("another-secret-another-secret-00")

	value, err := other.Encode(&Data{UserID: "123"})
	require.NoError(t, err)

	_, err = m.Decode(value)
	assert.ErrorIs(t, err, ErrInvalidSession)
}

func TestDecode_Expired(t *testing.T) {
	m := newManager(t)
	past := time.Now().Add(-2 * time.Hour)
	m.now = func() time.Time { return past }

	value, err := m.Encode(&Data{UserID: "123"})
	require.NoError(t, err)

	m.now = time.Now
	_, err = m.Decode(value)
	assert.ErrorIs(t, err, ErrExpiredSession)
}

func TestDecode_Garbage(t *testing.T) {
	m := newManager(t)

	_, err := m.Decode("not-a-jwt")
	assert.ErrorIs(t, err, ErrInvalidSession)
}

func TestClear(t *testing.T) {
	m := newManager(t)
	w := httptest.NewRecorder()

	m.Clear(w)

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, CookieName, cookies[0].Name)
	assert.Empty(t, cookies[0].Value)
	assert.Equal(t, -1, cookies[0].MaxAge)
}

func TestContext(t *testing.T) {
	assert.False(t, FromContext(context.Background()).LoggedIn())

	ctx := WithData(context.Background(), &Data{UserID: "42"})
	assert.Equal(t, "42", FromContext(ctx).UserID)
}
