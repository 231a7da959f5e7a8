// Package session keeps the browser session in an HS256-signed cookie.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// CookieName is the name of the session cookie
const CookieName = "medals_session"

var (
	// ErrInvalidSession is returned for cookies that fail signature or shape checks
	ErrInvalidSession = errors.New("invalid session")
	// ErrExpiredSession is returned for cookies past their expiry
	ErrExpiredSession = errors.New("session expired")
)

// Data is what a session remembers between requests
type Data struct {
	UserID     string
	OAuthState string
	OAuthToken *oauth2.Token
}

// LoggedIn reports whether the session belongs to a signed-in user
func (d *Data) LoggedIn() bool {
	return d != nil && d.UserID != ""
}

// Sealer encrypts values that must not be readable by the browser
type Sealer interface {
	EncryptToken(plaintext string) (string, error)
	DecryptToken(ciphertext string) (string, error)
}

type sessionClaims struct {
	jwt.RegisteredClaims
	UserID     string `json:"user_id,omitempty"`
	OAuthState string `json:"oauth2_state,omitempty"`
	OAuthToken string `json:"oauth2_token,omitempty"`
}

// Manager reads and writes session cookies
type Manager struct {
	secret []byte
	sealer Sealer
	ttl    time.Duration
	secure bool
	logger *zap.Logger
	now    func() time.Time
}

// NewManager creates a session manager signing with secret
func NewManager(secret []byte, sealer Sealer, ttl time.Duration, secure bool, logger *zap.Logger) *Manager {
	return &Manager{
		secret: secret,
		sealer: sealer,
		ttl:    ttl,
		secure: secure,
		logger: logger,
		now:    time.Now,
	}
}

// Load returns the session carried by r. Missing or invalid cookies yield an empty session.
func (m *Manager) Load(r *http.Request) *Data {
	cookie, err := r.Cookie(CookieName)
	if err != nil || cookie.Value == "" {
		return &Data{}
	}

	data, err := m.Decode(cookie.Value)
	if err != nil {
		m.logger.Debug("discarding session cookie", zap.Error(err))
		return &Data{}
	}
	return data
}

// Save writes d to the response as a fresh cookie
func (m *Manager) Save(w http.ResponseWriter, d *Data) error {
	value, err := m.Encode(d)
	if err != nil {
		return err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     "/",
		Expires:  m.now().Add(m.ttl),
		MaxAge:   int(m.ttl.Seconds()),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Clear removes the session cookie
func (m *Manager) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Encode signs d into a cookie value
func (m *Manager) Encode(d *Data) (string, error) {
	now := m.now()
	claims := &sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   d.UserID,
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		UserID:     d.UserID,
		OAuthState: d.OAuthState,
	}

	if d.OAuthToken != nil {
		raw, err := json.Marshal(d.OAuthToken)
		if err != nil {
			return "", fmt.Errorf("failed to marshal oauth token: %w", err)
		}
		sealed, err := m.sealer.EncryptToken(string(raw))
		if err != nil {
			return "", fmt.Errorf("failed to seal oauth token: %w", err)
		}
		claims.OAuthToken = sealed
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session: %w", err)
	}
	return signed, nil
}

// Decode verifies a cookie value and returns its session
func (m *Manager) Decode(value string) (*Data, error) {
	token, err := jwt.ParseWithClaims(value, &sessionClaims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidSession
		}
		return m.secret, nil
	}, jwt.WithTimeFunc(m.now), jwt.WithExpirationRequired())
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredSession
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}

	claims, ok := token.Claims.(*sessionClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidSession
	}

	data := &Data{
		UserID:     claims.UserID,
		OAuthState: claims.OAuthState,
	}

	if claims.OAuthToken != "" {
		raw, err := m.sealer.DecryptToken(claims.OAuthToken)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidSession, err)
		}
		var oauthToken oauth2.Token
		if err := json.Unmarshal([]byte(raw), &oauthToken); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidSession, err)
		}
		data.OAuthToken = &oauthToken
	}

	return data, nil
}

type ctxKey struct{}

// WithData attaches a session to ctx
func WithData(ctx context.Context, d *Data) context.Context {
	return context.WithValue(ctx, ctxKey{}, d)
}

// FromContext returns the session attached to ctx, or an empty one
func FromContext(ctx context.Context) *Data {
	if d, ok := ctx.Value(ctxKey{}).(*Data); ok && d != nil {
		return d
	}
	return &Data{}
}
