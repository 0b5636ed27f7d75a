package profile

import "github.com/andvari/socialcore/internal/profile/entity"

// CanView decides profile visibility. Precedence, in order: the owner
// always sees their own profile; public profiles are visible to anyone;
// friends-only profiles are visible when the profile owner follows the
// viewer (an asymmetric check, not mutual follow); everything else is
// private.
func CanView(viewerID, ownerID int64, privacy entity.PrivacySetting, ownerFollowsViewer bool) bool {
	if viewerID == ownerID {
		return true
	}
	switch privacy {
	case entity.PrivacyPublic:
		return true
	case entity.PrivacyFriends:
		return ownerFollowsViewer
	default:
		return false
	}
}
