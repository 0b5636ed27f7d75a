package admin

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/andvari/socialcore/internal/httperr"
	"github.com/andvari/socialcore/internal/identity/entity"
	identityrepo "github.com/andvari/socialcore/internal/identity/repo"
	"github.com/andvari/socialcore/internal/principal"
	profileentity "github.com/andvari/socialcore/internal/profile/entity"
	profilerepo "github.com/andvari/socialcore/internal/profile/repo"
)

// Service implements the staff-only management operations. Gating is
// graded: listings degrade to an empty page for non-staff, detail
// reads come back NotFound, and mutations are Forbidden outright.
type Service struct {
	accounts *identityrepo.AccountRepo
	profiles *profilerepo.ProfileRepo
}

func NewService(accounts *identityrepo.AccountRepo, profiles *profilerepo.ProfileRepo) *Service {
	return &Service{accounts: accounts, profiles: profiles}
}

// Page is one page of the account listing.
type Page struct {
	Count    int64            `json:"count"`
	Page     int              `json:"page"`
	PageSize int              `json:"page_size"`
	Results  []entity.Account `json:"results"`
}

// ListUsers returns a page of accounts. A non-staff caller gets an
// empty page rather than an error.
func (s *Service) ListUsers(ctx context.Context, p principal.Principal, opts identityrepo.ListOptions) (*Page, error) {
	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.PageSize < 1 || opts.PageSize > 100 {
		opts.PageSize = 20
	}
	if !p.IsStaff {
		return &Page{Count: 0, Page: opts.Page, PageSize: opts.PageSize, Results: []entity.Account{}}, nil
	}
	rows, total, err := s.accounts.List(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("admin: list users: %w", err)
	}
	if rows == nil {
		rows = []entity.Account{}
	}
	return &Page{Count: total, Page: opts.Page, PageSize: opts.PageSize, Results: rows}, nil
}

// GetUser fetches one account; non-staff callers see NotFound.
func (s *Service) GetUser(ctx context.Context, p principal.Principal, id int64) (*entity.Account, error) {
	if !p.IsStaff {
		return nil, httperr.ErrNotFound
	}
	a, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, httperr.ErrNotFound
		}
		return nil, fmt.Errorf("admin: get user: %w", err)
	}
	return a, nil
}

func (s *Service) requireStaff(p principal.Principal) error {
	if !p.IsStaff {
		return fmt.Errorf("%w: staff access required", httperr.ErrForbidden)
	}
	return nil
}

// UpdateUser applies a partial update to an account.
func (s *Service) UpdateUser(ctx context.Context, p principal.Principal, id int64, u identityrepo.AccountUpdate) (*entity.Account, error) {
	if err := s.requireStaff(p); err != nil {
		return nil, err
	}
	if err := s.accounts.Update(ctx, id, u); err != nil {
		return nil, fmt.Errorf("admin: update user: %w", err)
	}
	a, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, httperr.ErrNotFound
		}
		return nil, err
	}
	return a, nil
}

// DeleteUser removes an account and its dependent rows.
func (s *Service) DeleteUser(ctx context.Context, p principal.Principal, id int64) error {
	if err := s.requireStaff(p); err != nil {
		return err
	}
	if err := s.accounts.Delete(ctx, id); err != nil {
		if errors.Is(err, identityrepo.ErrNoSuchAccount) {
			return httperr.ErrNotFound
		}
		return fmt.Errorf("admin: delete user: %w", err)
	}
	return nil
}

// SetActive forces an account's active flag and reports the new value.
func (s *Service) SetActive(ctx context.Context, p principal.Principal, id int64, active bool) (bool, error) {
	if err := s.requireStaff(p); err != nil {
		return false, err
	}
	state, err := s.accounts.SetActive(ctx, id, active)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, httperr.ErrNotFound
		}
		return false, fmt.Errorf("admin: set active: %w", err)
	}
	return state, nil
}

// ToggleActive flips an account's active flag and reports the new value.
func (s *Service) ToggleActive(ctx context.Context, p principal.Principal, id int64) (bool, error) {
	if err := s.requireStaff(p); err != nil {
		return false, err
	}
	state, err := s.accounts.ToggleActive(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, httperr.ErrNotFound
		}
		return false, fmt.Errorf("admin: toggle active: %w", err)
	}
	return state, nil
}

// Stats exposes the dashboard counters.
func (s *Service) Stats(ctx context.Context, p principal.Principal) (*identityrepo.Stats, error) {
	if err := s.requireStaff(p); err != nil {
		return nil, err
	}
	return s.accounts.GetStats(ctx)
}

// Export returns every matching account, oldest first.
func (s *Service) Export(ctx context.Context, p principal.Principal, isActive, isStaff *bool) ([]entity.Account, error) {
	if err := s.requireStaff(p); err != nil {
		return nil, err
	}
	rows, err := s.accounts.Export(ctx, isActive, isStaff)
	if err != nil {
		return nil, fmt.Errorf("admin: export: %w", err)
	}
	if rows == nil {
		rows = []entity.Account{}
	}
	return rows, nil
}

// GetProfile fetches any account's profile row.
func (s *Service) GetProfile(ctx context.Context, p principal.Principal, accountID int64) (*profileentity.Profile, error) {
	if !p.IsStaff {
		return nil, httperr.ErrNotFound
	}
	pr, err := s.profiles.Get(ctx, accountID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, httperr.ErrNotFound
		}
		return nil, fmt.Errorf("admin: get profile: %w", err)
	}
	return pr, nil
}

// UpdateProfile applies a partial update to any account's profile.
func (s *Service) UpdateProfile(ctx context.Context, p principal.Principal, accountID int64, u profilerepo.ProfileUpdate) (*profileentity.Profile, error) {
	if err := s.requireStaff(p); err != nil {
		return nil, err
	}
	if err := s.profiles.Update(ctx, accountID, u); err != nil {
		return nil, fmt.Errorf("admin: update profile: %w", err)
	}
	pr, err := s.profiles.Get(ctx, accountID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, httperr.ErrNotFound
		}
		return nil, err
	}
	return pr, nil
}
