package auth

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/andvari/socialcore/internal/httperr"
	"github.com/andvari/socialcore/internal/identity/entity"
)

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// Claims is the signed payload of both token kinds. Refresh tokens
// additionally carry a jti so they can be blacklisted individually.
type Claims struct {
	AccountID int64  `json:"uid"`
	IsStaff   bool   `json:"is_staff"`
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

type TokenConfig struct {
	Secret     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

func TokenConfigFromEnv() TokenConfig {
	cfg := TokenConfig{
		Secret:     os.Getenv("JWT_SECRET_KEY"),
		AccessTTL:  30 * time.Minute,
		RefreshTTL: 7 * 24 * time.Hour,
	}
	if v := os.Getenv("JWT_ACCESS_TTL_MINUTES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.AccessTTL = time.Duration(n) * time.Minute
		}
	}
	if v := os.Getenv("JWT_REFRESH_TTL_HOURS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.RefreshTTL = time.Duration(n) * time.Hour
		}
	}
	return cfg
}

// TokenService issues and verifies HS256-signed access and refresh
// tokens.
type TokenService struct {
	cfg TokenConfig
	now func() time.Time
}

func NewTokenService(cfg TokenConfig) (*TokenService, error) {
	if cfg.Secret == "" {
		return nil, fmt.Errorf("auth: JWT_SECRET_KEY is not set")
	}
	return &TokenService{cfg: cfg, now: time.Now}, nil
}

func (t *TokenService) issue(a *entity.Account, tokenType string, ttl time.Duration) (string, error) {
	now := t.now()
	claims := Claims{
		AccountID: a.ID,
		IsStaff:   a.IsStaff,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(a.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	if tokenType == TokenTypeRefresh {
		claims.ID = uuid.NewString()
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(t.cfg.Secret))
}

// IssuePair mints a fresh access/refresh token pair for the account.
func (t *TokenService) IssuePair(a *entity.Account) (access, refresh string, err error) {
	if access, err = t.issue(a, TokenTypeAccess, t.cfg.AccessTTL); err != nil {
		return "", "", err
	}
	if refresh, err = t.issue(a, TokenTypeRefresh, t.cfg.RefreshTTL); err != nil {
		return "", "", err
	}
	return access, refresh, nil
}

func (t *TokenService) parse(raw, wantType string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(tok *jwt.Token) (any, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", tok.Header["alg"])
		}
		return []byte(t.cfg.Secret), nil
	}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithTimeFunc(t.now))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", httperr.ErrInvalidToken, err)
	}
	if claims.TokenType != wantType {
		return nil, fmt.Errorf("%w: token is not a %s token", httperr.ErrInvalidToken, wantType)
	}
	return claims, nil
}

// ParseAccess verifies an access token and returns its claims.
func (t *TokenService) ParseAccess(raw string) (*Claims, error) {
	return t.parse(raw, TokenTypeAccess)
}

// ParseRefresh verifies a refresh token and returns its claims.
func (t *TokenService) ParseRefresh(raw string) (*Claims, error) {
	return t.parse(raw, TokenTypeRefresh)
}
