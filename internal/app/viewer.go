package app

import "booru/api/internal/store"

// Viewer is the identity and display preferences a request runs under. It is
// passed explicitly; nothing in the service reads ambient user state.
type Viewer struct {
	ID          int64
	IsModerator bool
	IsAdmin     bool
	SafeMode    bool
	HideDeleted bool
}

func (v Viewer) Anonymous() bool {
	return v.ID == 0
}

// canSee applies post visibility: deleted posts are shown only to moderators
// and the uploader, banned posts are hidden from anonymous viewers.
func (v Viewer) canSee(p store.Post) bool {
	if p.IsDeleted && !v.IsModerator && v.ID != p.UploaderID {
		return false
	}
	if p.IsBanned && v.Anonymous() {
		return false
	}
	if v.SafeMode && p.Rating != "s" {
		return false
	}
	return true
}
