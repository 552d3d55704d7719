package services

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
)

var errUnknownSigningMethod = errors.New("unexpected signing method")

// KeySet resolves the key that verifies a token. Tokens issued by this
// service are HS256 with the shared secret. When a JWKS is attached, RS256
// and ES256 tokens from the external identity provider are checked against
// its published keys.
type KeySet struct {
	secret []byte
	jwks   *keyfunc.JWKS
}

func NewKeySet(secret string) *KeySet {
	return &KeySet{secret: []byte(secret)}
}

// FetchJWKS downloads the provider key set and keeps it refreshed in the
// background until Close is called.
func (k *KeySet) FetchJWKS(url string) error {
	jwks, err := keyfunc.Get(url, keyfunc.Options{
		RefreshErrorHandler: func(err error) {
			slog.Warn("jwks refresh failed", "url", url, "error", err)
		},
		RefreshInterval:   time.Hour,
		RefreshRateLimit:  5 * time.Minute,
		RefreshTimeout:    10 * time.Second,
		RefreshUnknownKID: true,
	})
	if err != nil {
		return fmt.Errorf("failed to fetch JWKS: %w", err)
	}
	k.jwks = jwks
	return nil
}

func (k *KeySet) Keyfunc(t *jwt.Token) (interface{}, error) {
	switch t.Method.(type) {
	case *jwt.SigningMethodHMAC:
		if len(k.secret) == 0 {
			return nil, errors.New("jwt secret is not configured")
		}
		return k.secret, nil
	case *jwt.SigningMethodRSA, *jwt.SigningMethodECDSA:
		if k.jwks == nil {
			return nil, fmt.Errorf("%w: %s", errUnknownSigningMethod, t.Method.Alg())
		}
		return k.jwks.Keyfunc(t)
	}
	return nil, fmt.Errorf("%w: %s", errUnknownSigningMethod, t.Method.Alg())
}

// Methods lists the accepted alg header values.
func (k *KeySet) Methods() []string {
	methods := []string{jwt.SigningMethodHS256.Alg()}
	if k.jwks != nil {
		methods = append(methods, jwt.SigningMethodRS256.Alg(), jwt.SigningMethodES256.Alg())
	}
	return methods
}

func (k *KeySet) Close() {
	if k.jwks != nil {
		k.jwks.EndBackground()
	}
}
