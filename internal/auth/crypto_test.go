package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parsascontentcorner/discordmedals/internal/testutil"
)

func TestNewTokenCipher_InvalidKey(t *testing.T) {
	tc, err := NewTokenCipher([]byte("short"))

	assert.Error(t, err)
	assert.Nil(t, tc)
	assert.Contains(t, err.Error(), "failed to create cipher")
}

func TestEncryptDecryptToken(t *testing.T) {
	tc, err := NewTokenCipher(testutil.GenerateEncryptionKey())
	require.NoError(t, err)

	plaintext := `{"access_token":"abc","token_type":"Bearer"}`
	encrypted, err := tc.EncryptToken(plaintext)
	require.NoError(t, err)

	assert.NotEqual(t, plaintext, encrypted)
	assert.NotContains(t, encrypted, "access_token")

	decrypted, err := tc.DecryptToken(encrypted)
	require.NoError(t, err)
	assert.Equal(t, plaintext, decrypted)
}

func TestEncryptToken_DifferentNonces(t *testing.T) {
	tc, err := NewTokenCipher(testutil.GenerateEncryptionKey())
	require.NoError(t, err)

	a, err := tc.EncryptToken("same")
	require.NoError(t, err)
	b, err := tc.EncryptToken("same")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestDecryptToken_WrongKey(t *testing.T) {
	tc1, err := NewTokenCipher(testutil.GenerateEncryptionKey())
	require.NoError(t, err)
	tc2, err := NewTokenCipher(testutil.GenerateEncryptionKey())
	require.NoError(t, err)

	encrypted, err := tc1.EncryptToken("secret")
	require.NoError(t, err)

	_, err = tc2.DecryptToken(encrypted)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to decrypt")
}

func TestDecryptToken_Malformed(t *testing.T) {
	tc, err := NewTokenCipher(testutil.GenerateEncryptionKey())
	require.NoError(t, err)

	tests := []struct {
		name       string
		ciphertext string
		wantErr    string
	}{
		{"not base64", "!!!not-base64!!!", "failed to decode ciphertext"},
		{"too short", "YWJj", "ciphertext too short"},
		{"tampered", strings.Repeat("A", 40), "failed to decrypt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tc.DecryptToken(tt.ciphertext)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
