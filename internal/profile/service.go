package profile

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/andvari/socialcore/internal/activity"
	actentity "github.com/andvari/socialcore/internal/activity/entity"
	"github.com/andvari/socialcore/internal/httperr"
	identityrepo "github.com/andvari/socialcore/internal/identity/repo"
	"github.com/andvari/socialcore/internal/profile/entity"
	profilerepo "github.com/andvari/socialcore/internal/profile/repo"
)

// Service orchestrates profile visibility and the social graph.
type Service struct {
	profiles *profilerepo.ProfileRepo
	social   *profilerepo.SocialRepo
	accounts *identityrepo.AccountRepo
	activity *activity.Service
}

func NewService(db *sqlx.DB, accounts *identityrepo.AccountRepo, act *activity.Service) *Service {
	return &Service{
		profiles: profilerepo.NewProfileRepo(db),
		social:   profilerepo.NewSocialRepo(db),
		accounts: accounts,
		activity: act,
	}
}

// Profiles exposes the profile repository for schema setup.
func (s *Service) Profiles() *profilerepo.ProfileRepo { return s.profiles }

// Social exposes the edge repository for schema setup.
func (s *Service) Social() *profilerepo.SocialRepo { return s.social }

// View fetches ownerID's profile as seen by viewerID, applying the
// privacy policy. Denied profiles surface as Forbidden, absent ones as
// NotFound.
func (s *Service) View(ctx context.Context, viewerID, ownerID int64) (*entity.View, error) {
	p, err := s.profiles.Get(ctx, ownerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, httperr.ErrNotFound
		}
		return nil, err
	}

	ownerFollowsViewer := false
	if viewerID != ownerID && p.PrivacySetting == entity.PrivacyFriends {
		ownerFollowsViewer, err = s.social.IsFollowing(ctx, ownerID, viewerID)
		if err != nil {
			return nil, err
		}
	}
	if !CanView(viewerID, ownerID, p.PrivacySetting, ownerFollowsViewer) {
		return nil, fmt.Errorf("%w: this profile is private", httperr.ErrForbidden)
	}

	return s.assembleView(ctx, p)
}

func (s *Service) assembleView(ctx context.Context, p *entity.Profile) (*entity.View, error) {
	a, err := s.accounts.GetByID(ctx, p.AccountID)
	if err != nil {
		return nil, err
	}
	followers, err := s.social.FollowerCount(ctx, p.AccountID)
	if err != nil {
		return nil, err
	}
	following, err := s.social.FollowingCount(ctx, p.AccountID)
	if err != nil {
		return nil, err
	}
	return &entity.View{
		Profile:        *p,
		Email:          a.Email,
		FirstName:      a.FirstName,
		LastName:       a.LastName,
		Bio:            a.Bio,
		FollowersCount: followers,
		FollowingCount: following,
	}, nil
}

// Update applies a partial profile update for the owner, records the
// profile_update event, and returns the fresh view.
func (s *Service) Update(ctx context.Context, ownerID int64, u profilerepo.ProfileUpdate, ip, userAgent string) (*entity.View, error) {
	if u.PrivacySetting != nil && !u.PrivacySetting.Valid() {
		return nil, fmt.Errorf("%w: unknown privacy setting %q", httperr.ErrValidation, *u.PrivacySetting)
	}
	if err := s.profiles.Update(ctx, ownerID, u); err != nil {
		return nil, err
	}
	if err := s.activity.Record(ctx, ownerID, actentity.TypeProfileUpdate, nil,
		map[string]any{"fields_changed": "profile_update"}, ip, userAgent); err != nil {
		return nil, err
	}
	p, err := s.profiles.Get(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return s.assembleView(ctx, p)
}

// ToggleFollow flips the viewer->target follow edge. Self-follow is
// rejected; absent targets are NotFound. Returns true when the edge now
// exists.
func (s *Service) ToggleFollow(ctx context.Context, viewerID, targetID int64, ip, userAgent string) (bool, error) {
	if err := s.checkTarget(ctx, viewerID, targetID, "follow"); err != nil {
		return false, err
	}
	following, err := s.social.ToggleFollow(ctx, viewerID, targetID)
	if err != nil {
		return false, err
	}
	typ := actentity.TypeUnfollow
	if following {
		typ = actentity.TypeFollow
	}
	subject := &actentity.SubjectRef{Kind: actentity.KindUser, ID: targetID}
	if err := s.activity.Record(ctx, viewerID, typ, subject, nil, ip, userAgent); err != nil {
		return following, err
	}
	return following, nil
}

// ToggleBlock flips the viewer->target block edge, independent of the
// follow edge. Returns true when the edge now exists.
func (s *Service) ToggleBlock(ctx context.Context, viewerID, targetID int64, ip, userAgent string) (bool, error) {
	if err := s.checkTarget(ctx, viewerID, targetID, "block"); err != nil {
		return false, err
	}
	blocking, err := s.social.ToggleBlock(ctx, viewerID, targetID)
	if err != nil {
		return false, err
	}
	typ := actentity.TypeUnblock
	if blocking {
		typ = actentity.TypeBlock
	}
	subject := &actentity.SubjectRef{Kind: actentity.KindUser, ID: targetID}
	if err := s.activity.Record(ctx, viewerID, typ, subject, nil, ip, userAgent); err != nil {
		return blocking, err
	}
	return blocking, nil
}

func (s *Service) checkTarget(ctx context.Context, viewerID, targetID int64, action string) error {
	if viewerID == targetID {
		return fmt.Errorf("%w: you cannot %s yourself", httperr.ErrValidation, action)
	}
	if _, err := s.accounts.GetByID(ctx, targetID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return httperr.ErrNotFound
		}
		return err
	}
	return nil
}

// TargetEmail resolves the target's email for toggle response bodies.
// An account deleted between the toggle and this lookup comes back as
// not found rather than an internal error.
func (s *Service) TargetEmail(ctx context.Context, targetID int64) (string, error) {
	a, err := s.accounts.GetByID(ctx, targetID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("%w: user does not exist", httperr.ErrNotFound)
		}
		return "", err
	}
	return a.Email, nil
}

// Search lists accounts matching q as seen by the viewer.
func (s *Service) Search(ctx context.Context, viewerID int64, q string, limit int) ([]entity.SearchResult, error) {
	if q == "" {
		return []entity.SearchResult{}, nil
	}
	return s.social.Search(ctx, viewerID, q, limit)
}
