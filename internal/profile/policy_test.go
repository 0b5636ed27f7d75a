package profile

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/andvari/socialcore/internal/profile/entity"
)

func TestCanView(t *testing.T) {
	cases := []struct {
		name               string
		viewerID, ownerID  int64
		privacy            entity.PrivacySetting
		ownerFollowsViewer bool
		want               bool
	}{
		{"owner sees own private profile", 7, 7, entity.PrivacyPrivate, false, true},
		{"owner sees own friends profile", 7, 7, entity.PrivacyFriends, false, true},
		{"public visible to stranger", 1, 2, entity.PrivacyPublic, false, true},
		{"friends visible when owner follows viewer", 1, 2, entity.PrivacyFriends, true, true},
		{"friends hidden when owner does not follow", 1, 2, entity.PrivacyFriends, false, false},
		{"private hidden from stranger", 1, 2, entity.PrivacyPrivate, false, false},
		{"private hidden even from follower", 1, 2, entity.PrivacyPrivate, true, false},
		{"unknown setting treated as private", 1, 2, entity.PrivacySetting("weird"), true, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := CanView(tc.viewerID, tc.ownerID, tc.privacy, tc.ownerFollowsViewer)
			assert.Equal(t, tc.want, got)
		})
	}
}
