package services

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func jwksServer(t *testing.T, kid string, key *rsa.PublicKey) *httptest.Server {
	t.Helper()
	body, err := json.Marshal(map[string]any{
		"keys": []map[string]string{{
			"kty": "RSA",
			"kid": kid,
			"use": "sig",
			"alg": "RS256",
			"n":   base64.RawURLEncoding.EncodeToString(key.N.Bytes()),
			"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(key.E)).Bytes()),
		}},
	})
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func providerToken(t *testing.T, kid string, key *rsa.PrivateKey, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = kid
	signed, err := token.SignedString(key)
	require.NoError(t, err)
	return signed
}

func TestKeySet_ProviderTokens(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	srv := jwksServer(t, "provider-1", &key.PublicKey)

	svc := NewAuthService(authConfig(t))
	require.NoError(t, svc.Keys().FetchJWKS(srv.URL))
	t.Cleanup(svc.Keys().Close)

	token := providerToken(t, "provider-1", key, jwt.MapClaims{
		"sub":   "b1946ac9-2d0c-4c7f-8a4e-2f0d1f9e6c11",
		"email": "moderator@example.org",
		"exp":   time.Now().Add(time.Hour).Unix(),
	})
	principal, err := svc.VerifyToken(token)
	require.NoError(t, err)
	assert.Equal(t, "b1946ac9-2d0c-4c7f-8a4e-2f0d1f9e6c11", principal.ID)
	assert.Equal(t, "moderator@example.org", principal.Email)

	// Locally issued tokens keep working next to the provider keys.
	local, _, err := svc.IssueToken("admin-1", "admin@example.org")
	require.NoError(t, err)
	_, err = svc.VerifyToken(local)
	assert.NoError(t, err)
}

func TestKeySet_RejectsForeignProviderKey(t *testing.T) {
	published, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	attacker, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	srv := jwksServer(t, "provider-1", &published.PublicKey)

	svc := NewAuthService(authConfig(t))
	require.NoError(t, svc.Keys().FetchJWKS(srv.URL))
	t.Cleanup(svc.Keys().Close)

	token := providerToken(t, "provider-1", attacker, jwt.MapClaims{
		"sub": "admin-1",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	_, err = svc.VerifyToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestKeySet_RSAWithoutProvider(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	svc := NewAuthService(authConfig(t))
	assert.Equal(t, []string{"HS256"}, svc.Keys().Methods())

	token := providerToken(t, "provider-1", key, jwt.MapClaims{
		"sub": "admin-1",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	_, err = svc.VerifyToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	svc.Keys().Close()
}

func TestKeySet_MissingSecret(t *testing.T) {
	keys := NewKeySet("")
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "x"})
	_, err := keys.Keyfunc(token)
	assert.Error(t, err)
}
