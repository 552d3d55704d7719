package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ahmetcoskunkizilkaya/water-reports/internal/config"
	"github.com/ahmetcoskunkizilkaya/water-reports/internal/dto"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrNotAdmin           = errors.New("principal is not an administrator")
)

// Principal is the authenticated caller behind a token.
type Principal struct {
	ID    string
	Email string
}

// TokenVerifier resolves a bearer token to a principal.
type TokenVerifier interface {
	VerifyToken(token string) (*Principal, error)
}

// AuthService issues and verifies the access tokens used by the admin
// surface. Login checks the single configured admin credential.
type AuthService struct {
	cfg          *config.Config
	keys         *KeySet
	adminEmails  []string
	adminUserIDs []string
	now          func() time.Time
}

func NewAuthService(cfg *config.Config) *AuthService {
	return &AuthService{
		cfg:          cfg,
		keys:         NewKeySet(cfg.JWTSecret),
		adminEmails:  parseCSV(cfg.AdminEmails),
		adminUserIDs: parseCSV(cfg.AdminUserIDs),
		now:          time.Now,
	}
}

func (s *AuthService) Login(req *dto.LoginRequest) (*dto.LoginResponse, error) {
	if s.cfg.AdminEmail == "" || s.cfg.AdminPasswordHash == "" {
		return nil, ErrInvalidCredentials
	}
	if !strings.EqualFold(strings.TrimSpace(req.Email), s.cfg.AdminEmail) {
		// Keep timing comparable to a wrong password.
		_ = bcrypt.CompareHashAndPassword([]byte(s.cfg.AdminPasswordHash), []byte(req.Password))
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(s.cfg.AdminPasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	email := strings.ToLower(s.cfg.AdminEmail)
	token, expiresAt, err := s.IssueToken(PrincipalID(email), email)
	if err != nil {
		return nil, err
	}
	return &dto.LoginResponse{AccessToken: token, TokenType: "Bearer", ExpiresAt: expiresAt}, nil
}

// Keys returns the key set shared with the JWT middleware.
func (s *AuthService) Keys() *KeySet {
	return s.keys
}

// PrincipalID derives a stable id for an email-identified admin.
func PrincipalID(email string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("mailto:"+strings.ToLower(email))).String()
}

func (s *AuthService) IssueToken(subject, email string) (string, time.Time, error) {
	if s.cfg.JWTSecret == "" {
		return "", time.Time{}, errors.New("jwt secret is not configured")
	}

	now := s.now()
	expiresAt := now.Add(s.cfg.JWTAccessExpiry)
	claims := jwt.MapClaims{
		"sub":   subject,
		"email": email,
		"iat":   now.Unix(),
		"exp":   expiresAt.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, expiresAt.UTC(), nil
}

// VerifyToken checks signature and expiry, then the admin allowlist.
func (s *AuthService) VerifyToken(tokenString string) (*Principal, error) {
	if tokenString == "" {
		return nil, ErrInvalidToken
	}

	token, err := jwt.Parse(tokenString, s.keys.Keyfunc,
		jwt.WithValidMethods(s.keys.Methods()),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}
	principal := PrincipalFromClaims(claims)
	if principal == nil {
		return nil, ErrInvalidToken
	}
	if !s.IsAdmin(principal) {
		return nil, ErrNotAdmin
	}
	return principal, nil
}

// PrincipalFromClaims returns nil when the subject claim is missing.
func PrincipalFromClaims(claims jwt.MapClaims) *Principal {
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return nil
	}
	email, _ := claims["email"].(string)
	return &Principal{ID: sub, Email: email}
}

// IsAdmin applies the ADMIN_EMAILS / ADMIN_USER_IDS allowlists. With both
// empty, any principal holding a valid token is an administrator.
func (s *AuthService) IsAdmin(p *Principal) bool {
	if len(s.adminEmails) == 0 && len(s.adminUserIDs) == 0 {
		return true
	}
	for _, e := range s.adminEmails {
		if strings.EqualFold(e, p.Email) {
			return true
		}
	}
	return contains(s.adminUserIDs, p.ID)
}

// HashPassword produces the value expected in ADMIN_PASSWORD_HASH.
func HashPassword(password string) (string, error) {
	if len(password) < 8 {
		return "", errors.New("password must be at least 8 characters")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

func parseCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func contains(list []string, val string) bool {
	for _, item := range list {
		if item == val {
			return true
		}
	}
	return false
}
