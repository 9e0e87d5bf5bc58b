package tokenizer

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"testing"
	"time"

	"github.com/garvazsof/MVC/core"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newKey(t *testing.T) *ecdsa.PrivateKey {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	return key
}

func newSession() *core.Session {
	now := time.Now().Truncate(time.Second)
	return &core.Session{
		ID:            "shell-1",
		Address:       "0xD8532152a3F66bD590F29ce711C8ecCa5542325b",
		IssuedAt:      now,
		AccessExpiry:  now.Add(5 * time.Minute),
		RefreshExpiry: now.Add(24 * time.Hour),
		RefreshID:     "refresh-1",
	}
}

func TestAccessToken(t *testing.T) {
	tk := NewJWTTokenizer(newKey(t))
	session := newSession()

	token, err := tk.SessionToAccessToken(session)
	require.NoError(t, err)

	parsed, err := tk.AccessTokenToSession(token)
	require.NoError(t, err)

	assert.Equal(t, session.ID, parsed.ID)
	assert.Equal(t, session.Address, parsed.Address)
	assert.Equal(t, session.RefreshID, parsed.RefreshID)
	assert.True(t, session.AccessExpiry.Equal(parsed.AccessExpiry))
	assert.True(t, parsed.RefreshExpiry.IsZero())
}

func TestRefreshToken(t *testing.T) {
	tk := NewJWTTokenizer(newKey(t))
	session := newSession()

	token, err := tk.SessionToRefreshToken(session)
	require.NoError(t, err)

	parsed, err := tk.RefreshTokenToSession(token)
	require.NoError(t, err)

	assert.Equal(t, session.ID, parsed.ID)
	assert.Equal(t, session.RefreshID, parsed.RefreshID)
	assert.True(t, session.RefreshExpiry.Equal(parsed.RefreshExpiry))
	assert.True(t, parsed.AccessExpiry.IsZero())
}

func TestAudienceSeparation(t *testing.T) {
	tk := NewJWTTokenizer(newKey(t))
	session := newSession()

	access, err := tk.SessionToAccessToken(session)
	require.NoError(t, err)
	refresh, err := tk.SessionToRefreshToken(session)
	require.NoError(t, err)

	_, err = tk.RefreshTokenToSession(access)
	assert.ErrorIs(t, err, core.ErrInvalidToken)

	_, err = tk.AccessTokenToSession(refresh)
	assert.ErrorIs(t, err, core.ErrInvalidToken)
}

func TestExpiredToken(t *testing.T) {
	tk := NewJWTTokenizer(newKey(t))
	session := newSession()
	session.IssuedAt = session.IssuedAt.Add(-time.Hour)
	session.AccessExpiry = session.IssuedAt.Add(time.Minute)

	token, err := tk.SessionToAccessToken(session)
	require.NoError(t, err)

	_, err = tk.AccessTokenToSession(token)
	assert.ErrorIs(t, err, core.ErrTokenExpired)
}

func TestForeignKey(t *testing.T) {
	token, err := NewJWTTokenizer(newKey(t)).SessionToAccessToken(newSession())
	require.NoError(t, err)

	_, err = NewJWTTokenizer(newKey(t)).AccessTokenToSession(token)
	assert.ErrorIs(t, err, core.ErrInvalidToken)
}

func TestUnexpectedSigningMethod(t *testing.T) {
	session := newSession()
	claims := AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			ID:        session.ID,
			ExpiresAt: jwt.NewNumericDate(session.AccessExpiry),
			Audience:  jwt.ClaimStrings{AudienceAccess},
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = NewJWTTokenizer(newKey(t)).AccessTokenToSession(token)
	assert.ErrorIs(t, err, core.ErrInvalidToken)
}

func TestMalformedToken(t *testing.T) {
	_, err := NewJWTTokenizer(newKey(t)).AccessTokenToSession("not.a.jwt")
	assert.ErrorIs(t, err, core.ErrInvalidToken)
}
