package tags

import (
	"reflect"
	"sort"
	"testing"
)

func TestMergeTagListsKeepsConcurrentAdditions(t *testing.T) {
	// editor A added "dog" while editor B, who saw the old list, adds "bird"
	current := []string{"cat", "dog"}
	old := []string{"cat"}
	next := []string{"cat", "bird"}

	merged := MergeTagLists(current, old, next)
	sort.Strings(merged)
	want := []string{"bird", "cat", "dog"}
	if !reflect.DeepEqual(merged, want) {
		t.Fatalf("merged = %v, want %v", merged, want)
	}
}

func TestMergeTagListsHonorsDeliberateRemoval(t *testing.T) {
	current := []string{"cat", "dog"}
	old := []string{"cat", "dog"}
	next := []string{"cat"}

	merged := MergeTagLists(current, old, next)
	if !reflect.DeepEqual(merged, []string{"cat"}) {
		t.Fatalf("merged = %v, want [cat]", merged)
	}
}

func TestMergeTagListsAddOnlyEditsCommute(t *testing.T) {
	base := []string{"cat"}
	editA := []string{"cat", "dog"}
	editB := []string{"cat", "bird"}

	aThenB := MergeTagLists(MergeTagLists(base, base, editA), base, editB)
	bThenA := MergeTagLists(MergeTagLists(base, base, editB), base, editA)

	sort.Strings(aThenB)
	sort.Strings(bThenA)
	if !reflect.DeepEqual(aThenB, bThenA) {
		t.Fatalf("order matters: %v vs %v", aThenB, bThenA)
	}
	want := []string{"bird", "cat", "dog"}
	if !reflect.DeepEqual(aThenB, want) {
		t.Fatalf("merged = %v, want %v", aThenB, want)
	}
}

func TestMergeScalar(t *testing.T) {
	// the edit was based on the stored value, so the new value wins
	if got := MergeScalar("q", "q", "e"); got != "e" {
		t.Fatalf("got %q, want e", got)
	}
	// someone changed the field since; the stored value is kept
	if got := MergeScalar("s", "q", "e"); got != "s" {
		t.Fatalf("got %q, want s", got)
	}
}

func TestMergeParent(t *testing.T) {
	one, two, three := int64(1), int64(2), int64(3)

	if got := MergeParent(&one, &one, &two); got == nil || *got != 2 {
		t.Fatalf("got %v, want 2", got)
	}
	if got := MergeParent(&three, &one, &two); got == nil || *got != 3 {
		t.Fatalf("got %v, want 3", got)
	}
	if got := MergeParent(nil, nil, &two); got == nil || *got != 2 {
		t.Fatalf("got %v, want 2", got)
	}
	if got := MergeParent(&three, nil, &two); got == nil || *got != 3 {
		t.Fatalf("got %v, want 3", got)
	}
}
