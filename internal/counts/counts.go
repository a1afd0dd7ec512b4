// Package counts derives the per-category tag counters stored on a post and
// the add/remove diffs between two tag lists.
package counts

import "booru/api/internal/store"

type Totals struct {
	Total     int
	General   int
	Artist    int
	Copyright int
	Character int
}

// Tally counts tags per category. Names missing from categories count as
// general. Meta tags count toward the total only.
func Tally(names []string, categories map[string]store.TagCategory) Totals {
	var t Totals
	for _, name := range names {
		t.Total++
		switch categories[name] {
		case store.CategoryArtist:
			t.Artist++
		case store.CategoryCopyright:
			t.Copyright++
		case store.CategoryCharacter:
			t.Character++
		case store.CategoryMeta:
		default:
			t.General++
		}
	}
	return t
}

// Diff returns the names present only in next (added) and only in prev
// (removed). Order follows the input lists.
func Diff(prev, next []string) (added, removed []string) {
	prevSet := toSet(prev)
	nextSet := toSet(next)

	for _, name := range next {
		if !prevSet[name] {
			added = append(added, name)
			prevSet[name] = true // dedupe within next
		}
	}
	for _, name := range prev {
		if !nextSet[name] {
			removed = append(removed, name)
			nextSet[name] = true
		}
	}
	return added, removed
}

func toSet(names []string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, name := range names {
		set[name] = true
	}
	return set
}
