package app

import (
	"context"
	"net/http"
	"strings"

	"booru/api/internal/store"
)

var tagCategories = map[string]store.TagCategory{
	"general":   store.CategoryGeneral,
	"artist":    store.CategoryArtist,
	"copyright": store.CategoryCopyright,
	"character": store.CategoryCharacter,
	"meta":      store.CategoryMeta,
}

// SetTagCategory reclassifies a tag. Counters are per-post derived state and
// get recomputed on each post's next save, so no backfill happens here.
func (s *Service) SetTagCategory(ctx context.Context, viewer Viewer, name, category string) error {
	if !viewer.IsModerator {
		return domainError(http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
	}
	cat, ok := tagCategories[strings.ToLower(category)]
	if !ok {
		return domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "unknown tag category", nil)
	}
	return s.store.SetTagCategory(ctx, strings.ToLower(name), cat)
}

// CreateTagAlias maps an antecedent tag name onto a consequent. Future edits
// using the antecedent resolve to the consequent during normalization.
func (s *Service) CreateTagAlias(ctx context.Context, viewer Viewer, antecedent, consequent string) (store.TagAlias, error) {
	if !viewer.IsModerator {
		return store.TagAlias{}, domainError(http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
	}
	antecedent = strings.ToLower(strings.TrimSpace(antecedent))
	consequent = strings.ToLower(strings.TrimSpace(consequent))
	if antecedent == "" || consequent == "" || antecedent == consequent {
		return store.TagAlias{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "alias needs two distinct tag names", nil)
	}
	return s.store.CreateTagAlias(ctx, store.TagAlias{AntecedentName: antecedent, ConsequentName: consequent})
}

// CreateTagImplication records that the antecedent tag implies the
// consequent.
func (s *Service) CreateTagImplication(ctx context.Context, viewer Viewer, antecedent, consequent string) (store.TagImplication, error) {
	if !viewer.IsModerator {
		return store.TagImplication{}, domainError(http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
	}
	antecedent = strings.ToLower(strings.TrimSpace(antecedent))
	consequent = strings.ToLower(strings.TrimSpace(consequent))
	if antecedent == "" || consequent == "" || antecedent == consequent {
		return store.TagImplication{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "implication needs two distinct tag names", nil)
	}
	return s.store.CreateTagImplication(ctx, store.TagImplication{AntecedentName: antecedent, ConsequentName: consequent})
}
