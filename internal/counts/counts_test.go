package counts

import (
	"reflect"
	"testing"

	"booru/api/internal/store"
)

func TestTallyCategories(t *testing.T) {
	categories := map[string]store.TagCategory{
		"some_artist": store.CategoryArtist,
		"some_series": store.CategoryCopyright,
		"some_girl":   store.CategoryCharacter,
		"highres":     store.CategoryMeta,
		"long_hair":   store.CategoryGeneral,
	}

	totals := Tally([]string{"some_artist", "some_series", "some_girl", "highres", "long_hair", "unknown_tag"}, categories)

	if totals.Total != 6 {
		t.Fatalf("total = %d, want 6", totals.Total)
	}
	if totals.Artist != 1 || totals.Copyright != 1 || totals.Character != 1 {
		t.Fatalf("typed counts = %+v", totals)
	}
	// meta counts toward the total but no category bucket
	if totals.General != 2 {
		t.Fatalf("general = %d, want 2 (long_hair + unknown_tag)", totals.General)
	}
}

func TestDiff(t *testing.T) {
	added, removed := Diff([]string{"aaa", "bbb", "ccc"}, []string{"bbb", "ccc", "ddd"})
	if !reflect.DeepEqual(added, []string{"ddd"}) {
		t.Fatalf("added = %v", added)
	}
	if !reflect.DeepEqual(removed, []string{"aaa"}) {
		t.Fatalf("removed = %v", removed)
	}
}

func TestDiffNoChange(t *testing.T) {
	added, removed := Diff([]string{"aaa"}, []string{"aaa"})
	if len(added) != 0 || len(removed) != 0 {
		t.Fatalf("added=%v removed=%v, want empty", added, removed)
	}
}
