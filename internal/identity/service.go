package identity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"

	"github.com/andvari/socialcore/internal/httperr"
	"github.com/andvari/socialcore/internal/identity/entity"
	identityrepo "github.com/andvari/socialcore/internal/identity/repo"
)

// PasswordHasher defines the minimal hashing interface (abstract so we
// can swap the algorithm without touching callers).
type PasswordHasher interface {
	Hash(pw string) (string, error)
	Verify(hash, pw string) bool
}

// BcryptHasher implementation.
type BcryptHasher struct{ Cost int }

func (b BcryptHasher) Hash(pw string) (string, error) {
	cost := b.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	h, err := bcrypt.GenerateFromPassword([]byte(pw), cost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

func (b BcryptHasher) Verify(hash, pw string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw)) == nil
}

// Service orchestrates account lifecycle flows.
type Service struct {
	repo   *identityrepo.AccountRepo
	hasher PasswordHasher
}

func NewService(db *sqlx.DB, r *identityrepo.AccountRepo, hasher PasswordHasher) *Service {
	if r == nil {
		r = identityrepo.NewAccountRepo(db)
	}
	if hasher == nil {
		hasher = BcryptHasher{Cost: 12}
	}
	return &Service{repo: r, hasher: hasher}
}

// Repo exposes the underlying account repository for collaborators
// that share it (auth gateway, admin).
func (s *Service) Repo() *identityrepo.AccountRepo { return s.repo }

// Hasher exposes the configured password hasher.
func (s *Service) Hasher() PasswordHasher { return s.hasher }

// RegisterInput is the validated signup payload.
type RegisterInput struct {
	Email                string
	Password             string
	PasswordConfirmation string
	FirstName            string
	LastName             string
	Bio                  *string
	DateOfBirth          *time.Time
}

// Register creates the account together with its profile row and the
// registration event, all in one transaction.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*entity.Account, error) {
	if in.Email == "" {
		return nil, fmt.Errorf("%w: email is required", httperr.ErrValidation)
	}
	if in.Password == "" {
		return nil, fmt.Errorf("%w: password is required", httperr.ErrValidation)
	}
	if in.Password != in.PasswordConfirmation {
		return nil, fmt.Errorf("%w: passwords do not match", httperr.ErrValidation)
	}
	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}
	a := &entity.Account{
		Email:        entity.NormalizeEmail(in.Email),
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Bio:          in.Bio,
		DateOfBirth:  in.DateOfBirth,
		PasswordHash: hash,
		IsActive:     true,
	}
	if err := s.repo.CreateCascade(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// Get fetches one account, mapping absence to the taxonomy.
func (s *Service) Get(ctx context.Context, id int64) (*entity.Account, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, httperr.ErrNotFound
		}
		return nil, err
	}
	return a, nil
}

// Update applies a partial account update and returns the fresh row.
func (s *Service) Update(ctx context.Context, id int64, u identityrepo.AccountUpdate) (*entity.Account, error) {
	if err := s.repo.Update(ctx, id, u); err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// ChangePassword validates the confirmation pair and overwrites the hash.
func (s *Service) ChangePassword(ctx context.Context, id int64, password, confirmation string) error {
	hash, err := s.HashNewPassword(password, confirmation)
	if err != nil {
		return err
	}
	return s.repo.SetPassword(ctx, id, hash)
}

// HashNewPassword checks the password pair and returns the hash to
// store. Callers that write the hash themselves use this to keep the
// validation rule in one place.
func (s *Service) HashNewPassword(password, confirmation string) (string, error) {
	if password == "" || password != confirmation {
		return "", fmt.Errorf("%w: passwords do not match", httperr.ErrValidation)
	}
	return s.hasher.Hash(password)
}
