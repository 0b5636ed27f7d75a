package admin

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andvari/socialcore/internal/httperr"
	identityrepo "github.com/andvari/socialcore/internal/identity/repo"
	"github.com/andvari/socialcore/internal/principal"
)

// Non-staff gating never reaches the repositories, so a service with
// nil repos exercises it directly.
func TestNonStaffListGetsEmptyPage(t *testing.T) {
	svc := NewService(nil, nil)
	p := principal.Principal{ID: 1, IsStaff: false}

	page, err := svc.ListUsers(context.Background(), p, identityrepo.ListOptions{Page: 2, PageSize: 10})
	require.NoError(t, err)
	assert.Zero(t, page.Count)
	assert.Empty(t, page.Results)
	assert.Equal(t, 2, page.Page)
	assert.Equal(t, 10, page.PageSize)
}

func TestNonStaffDetailIsNotFound(t *testing.T) {
	svc := NewService(nil, nil)
	p := principal.Principal{ID: 1}

	_, err := svc.GetUser(context.Background(), p, 99)
	assert.ErrorIs(t, err, httperr.ErrNotFound)

	_, err = svc.GetProfile(context.Background(), p, 99)
	assert.ErrorIs(t, err, httperr.ErrNotFound)
}

func TestNonStaffActionsAreForbidden(t *testing.T) {
	svc := NewService(nil, nil)
	p := principal.Principal{ID: 1}
	ctx := context.Background()

	_, err := svc.UpdateUser(ctx, p, 99, identityrepo.AccountUpdate{})
	assert.ErrorIs(t, err, httperr.ErrForbidden)

	err = svc.DeleteUser(ctx, p, 99)
	assert.ErrorIs(t, err, httperr.ErrForbidden)

	_, err = svc.SetActive(ctx, p, 99, true)
	assert.ErrorIs(t, err, httperr.ErrForbidden)

	_, err = svc.ToggleActive(ctx, p, 99)
	assert.ErrorIs(t, err, httperr.ErrForbidden)

	_, err = svc.Stats(ctx, p)
	assert.ErrorIs(t, err, httperr.ErrForbidden)

	_, err = svc.Export(ctx, p, nil, nil)
	assert.ErrorIs(t, err, httperr.ErrForbidden)
}
