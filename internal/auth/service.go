package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/andvari/socialcore/internal/activity"
	actentity "github.com/andvari/socialcore/internal/activity/entity"
	authrepo "github.com/andvari/socialcore/internal/auth/repo"
	"github.com/andvari/socialcore/internal/httperr"
	"github.com/andvari/socialcore/internal/identity"
	identityentity "github.com/andvari/socialcore/internal/identity/entity"
	identityrepo "github.com/andvari/socialcore/internal/identity/repo"
	"github.com/andvari/socialcore/internal/session"
	"github.com/andvari/socialcore/pkg/mail"
)

const resetTokenTTL = time.Hour

// Service orchestrates the credential flows: login, token refresh,
// logout and password reset.
type Service struct {
	db        *sqlx.DB
	tokens    *TokenService
	repo      *authrepo.TokenRepo
	accounts  *identity.Service
	sessions  *session.Service
	activity  *activity.Service
	mailer    mail.Sender
	resetBase string
	logger    *zap.SugaredLogger
}

func NewService(db *sqlx.DB, tokens *TokenService, repo *authrepo.TokenRepo, accounts *identity.Service, sessions *session.Service, act *activity.Service, mailer mail.Sender, logger *zap.SugaredLogger) *Service {
	base := os.Getenv("PASSWORD_RESET_BASE_URL")
	if base == "" {
		base = "http://localhost:3000/reset-password"
	}
	return &Service{
		db:        db,
		tokens:    tokens,
		repo:      repo,
		accounts:  accounts,
		sessions:  sessions,
		activity:  act,
		mailer:    mailer,
		resetBase: base,
		logger:    logger,
	}
}

func (s *Service) Tokens() *TokenService { return s.tokens }

// LoginResult carries everything a successful login hands back.
type LoginResult struct {
	Account      *identityentity.Account
	Access       string
	Refresh      string
	SessionToken string
}

// Login checks the credentials and, on success, issues a token pair
// and opens a session. Unknown email and wrong password both come back
// as ErrBadCredentials.
func (s *Service) Login(ctx context.Context, email, password, ip, userAgent string) (*LoginResult, error) {
	acct, err := s.accounts.Repo().GetByEmail(ctx, identityentity.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, httperr.ErrBadCredentials
		}
		return nil, fmt.Errorf("auth: load account: %w", err)
	}
	if !acct.IsActive {
		return nil, httperr.ErrBadCredentials
	}
	if !s.accounts.Hasher().Verify(acct.PasswordHash, password) {
		return nil, httperr.ErrBadCredentials
	}

	access, refresh, err := s.tokens.IssuePair(acct)
	if err != nil {
		return nil, fmt.Errorf("auth: issue tokens: %w", err)
	}

	sessionToken, err := NewOpaqueToken()
	if err != nil {
		return nil, fmt.Errorf("auth: session token: %w", err)
	}
	if _, err := s.sessions.Open(ctx, sessionToken, acct.ID, ip, userAgent); err != nil {
		return nil, fmt.Errorf("auth: open session: %w", err)
	}

	if err := s.accounts.Repo().TouchLastLogin(ctx, acct.ID); err != nil {
		s.logger.Warnw("touch last_login failed", "account_id", acct.ID, "err", err)
	}
	if err := s.activity.Record(ctx, acct.ID, actentity.TypeLogin, nil, map[string]any{"method": "email_password"}, ip, userAgent); err != nil {
		s.logger.Warnw("record login activity failed", "account_id", acct.ID, "err", err)
	}
	return &LoginResult{Account: acct, Access: access, Refresh: refresh, SessionToken: sessionToken}, nil
}

// Refresh exchanges a valid refresh token for a fresh pair. Tokens on
// the blacklist and tokens of deactivated accounts are rejected.
func (s *Service) Refresh(ctx context.Context, raw string) (access, refresh string, err error) {
	claims, err := s.tokens.ParseRefresh(raw)
	if err != nil {
		return "", "", err
	}
	revoked, err := s.repo.IsRevoked(ctx, claims.ID)
	if err != nil {
		return "", "", fmt.Errorf("auth: blacklist check: %w", err)
	}
	if revoked {
		return "", "", fmt.Errorf("%w: token has been revoked", httperr.ErrInvalidToken)
	}
	acct, err := s.accounts.Repo().GetByID(ctx, claims.AccountID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", "", httperr.ErrInvalidToken
		}
		return "", "", fmt.Errorf("auth: load account: %w", err)
	}
	if !acct.IsActive {
		return "", "", fmt.Errorf("%w: account is deactivated", httperr.ErrInvalidToken)
	}
	return s.tokens.IssuePair(acct)
}

// Logout blacklists the presented refresh token, ends the session and
// records the event. A malformed refresh token is reported but does
// not keep the session from ending.
func (s *Service) Logout(ctx context.Context, accountID int64, refreshToken, sessionToken, ip, userAgent string) error {
	var parseErr error
	if refreshToken != "" {
		claims, err := s.tokens.ParseRefresh(refreshToken)
		switch {
		case err != nil:
			parseErr = err
		case claims.AccountID != accountID:
			parseErr = fmt.Errorf("%w: token belongs to another account", httperr.ErrInvalidToken)
		default:
			if err := s.repo.Revoke(ctx, claims.ID, accountID, claims.ExpiresAt.Time); err != nil {
				return fmt.Errorf("auth: revoke token: %w", err)
			}
		}
	}

	if sessionToken != "" {
		if err := s.sessions.End(ctx, accountID, sessionToken); err != nil && !errors.Is(err, httperr.ErrNotFound) {
			s.logger.Warnw("end session on logout failed", "account_id", accountID, "err", err)
		}
	}
	if err := s.activity.Record(ctx, accountID, actentity.TypeLogout, nil, nil, ip, userAgent); err != nil {
		s.logger.Warnw("record logout activity failed", "account_id", accountID, "err", err)
	}
	return parseErr
}

// RequestReset starts the password reset flow. The response to the
// caller is identical whether or not the email matches an account.
func (s *Service) RequestReset(ctx context.Context, email string) error {
	acct, err := s.accounts.Repo().GetByEmail(ctx, identityentity.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return fmt.Errorf("auth: load account: %w", err)
	}

	secret, err := NewOpaqueToken()
	if err != nil {
		return fmt.Errorf("auth: reset secret: %w", err)
	}
	id := uuid.NewString()
	if err := s.repo.CreateReset(ctx, id, acct.ID, hashSecret(secret), time.Now().Add(resetTokenTTL)); err != nil {
		return fmt.Errorf("auth: store reset token: %w", err)
	}

	uid := base64.RawURLEncoding.EncodeToString([]byte(strconv.FormatInt(acct.ID, 10)))
	link := fmt.Sprintf("%s?uid=%s&token=%s.%s", s.resetBase, uid, id, secret)
	body := fmt.Sprintf("Hello %s,\n\nUse the link below to reset your password. It expires in one hour.\n\n%s\n\nIf you did not request this, you can ignore this message.\n", acct.FullName(), link)
	if err := s.mailer.Send(acct.Email, "Password reset", body); err != nil {
		s.logger.Errorw("send reset mail failed", "account_id", acct.ID, "err", err)
	}
	return nil
}

// ConfirmReset redeems a reset link and sets the new password. The
// link is checked in full before the token is touched, so a rejected
// request never burns it, and the consume and the password overwrite
// commit together: the token stays usable unless the password actually
// changed.
func (s *Service) ConfirmReset(ctx context.Context, uid, token, password, confirmation string) error {
	rawID, err := base64.RawURLEncoding.DecodeString(uid)
	if err != nil {
		return fmt.Errorf("%w: bad uid", httperr.ErrInvalidLink)
	}
	accountID, err := strconv.ParseInt(string(rawID), 10, 64)
	if err != nil {
		return fmt.Errorf("%w: bad uid", httperr.ErrInvalidLink)
	}
	id, secret, ok := splitResetToken(token)
	if !ok {
		return fmt.Errorf("%w: bad token", httperr.ErrInvalidLink)
	}
	hash, err := s.accounts.HashNewPassword(password, confirmation)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("auth: begin reset: %w", err)
	}
	defer tx.Rollback()

	tokenAccount, err := authrepo.ConsumeReset(ctx, tx, id, hashSecret(secret))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: token is invalid or expired", httperr.ErrInvalidLink)
		}
		return fmt.Errorf("auth: consume reset token: %w", err)
	}
	if tokenAccount != accountID {
		return fmt.Errorf("%w: token does not match user", httperr.ErrInvalidLink)
	}
	if err := identityrepo.SetPassword(ctx, tx, accountID, hash); err != nil {
		return fmt.Errorf("auth: set password: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("auth: commit reset: %w", err)
	}

	if err := s.activity.Record(ctx, accountID, actentity.TypePasswordChange, nil, map[string]any{"via": "reset_link"}, "", ""); err != nil {
		s.logger.Warnw("record password_change activity failed", "account_id", accountID, "err", err)
	}
	return nil
}

// NewOpaqueToken returns a 32-byte random token in hex.
func NewOpaqueToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func hashSecret(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}

// splitResetToken takes apart the "<id>.<secret>" form used in links.
func splitResetToken(token string) (id, secret string, ok bool) {
	id, secret, ok = strings.Cut(token, ".")
	if !ok || id == "" || secret == "" {
		return "", "", false
	}
	return id, secret, true
}
