package session

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/andvari/socialcore/internal/httperr"
	"github.com/andvari/socialcore/internal/session/entity"
	sessionrepo "github.com/andvari/socialcore/internal/session/repo"
)

// ErrHijacked marks a session token presented by an account other than
// the one it is bound to. The session has already been force-ended by
// the time this surfaces.
var ErrHijacked = errors.New("session bound to another account")

// Service owns session lifecycle and the per-request liveness touch.
type Service struct {
	repo   *sessionrepo.SessionRepo
	logger *zap.SugaredLogger
}

func NewService(db *sqlx.DB, r *sessionrepo.SessionRepo, logger *zap.SugaredLogger) *Service {
	if r == nil {
		r = sessionrepo.NewSessionRepo(db)
	}
	return &Service{repo: r, logger: logger}
}

// Repo exposes the underlying repository for schema setup and the
// CountActive collaborator interface.
func (s *Service) Repo() *sessionrepo.SessionRepo { return s.repo }

// Open upserts the session row for a fresh login.
func (s *Service) Open(ctx context.Context, token string, accountID int64, ip, userAgent string) (*entity.Session, error) {
	sess := &entity.Session{Token: token, AccountID: accountID, UserAgent: userAgent, IsActive: true}
	if ip != "" {
		sess.IPAddress = &ip
	}
	if err := s.repo.Upsert(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// Guard validates an inbound session token against the authenticated
// principal and touches liveness.
//
// A token bound to a different account is treated as hijacked: the
// session is force-ended server side and ErrHijacked is returned. The
// liveness touch itself is best-effort; its failure is logged and never
// surfaced.
func (s *Service) Guard(ctx context.Context, token string, accountID int64) error {
	sess, err := s.repo.Get(ctx, token)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		s.logger.Warnw("session lookup failed", "err", err)
		return nil
	}
	if sess.AccountID != accountID {
		s.logger.Warnw("potential session hijacking detected",
			"session_account", sess.AccountID, "principal", accountID)
		if err := s.repo.End(ctx, token); err != nil {
			s.logger.Errorw("force-ending hijacked session failed", "err", err)
		}
		return ErrHijacked
	}
	if err := s.repo.Touch(ctx, token); err != nil {
		s.logger.Warnw("session liveness touch failed", "err", err)
	}
	return nil
}

// List returns the caller's sessions, most recently active first.
func (s *Service) List(ctx context.Context, accountID int64) ([]entity.Session, error) {
	return s.repo.ListByAccount(ctx, accountID)
}

// Get fetches one of the caller's sessions. Unknown tokens and tokens
// belonging to other accounts both behave as absent.
func (s *Service) Get(ctx context.Context, accountID int64, token string) (*entity.Session, error) {
	sess, err := s.repo.Get(ctx, token)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, httperr.ErrNotFound
		}
		return nil, err
	}
	if sess.AccountID != accountID {
		return nil, httperr.ErrNotFound
	}
	return sess, nil
}

// End terminates one of the caller's sessions. Tokens belonging to
// other accounts behave as absent; ending twice is idempotent success.
func (s *Service) End(ctx context.Context, accountID int64, token string) error {
	if _, err := s.Get(ctx, accountID, token); err != nil {
		return err
	}
	return s.repo.End(ctx, token)
}

// EndAllExcept ends every other active session of the account and
// reports the count affected.
func (s *Service) EndAllExcept(ctx context.Context, accountID int64, currentToken string) (int64, error) {
	return s.repo.EndAllExcept(ctx, accountID, currentToken)
}

// CountActive reports how many sessions of the account are still open.
func (s *Service) CountActive(ctx context.Context, accountID int64) (int64, error) {
	return s.repo.CountActive(ctx, accountID)
}
