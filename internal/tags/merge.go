package tags

// MergeTagLists three-way merges a tag edit against the stored list. old is
// the list the editor saw, next is what they submitted, current is what is
// stored now. The result keeps concurrent additions from both sides and only
// drops a tag when the editor deliberately removed it:
//
//	((current + next) - old) + (current & next)
//
// Two editors who each only add tags can never undo each other.
func MergeTagLists(current, old, next []string) []string {
	oldSet := toSet(old)
	currentSet := toSet(current)
	nextSet := toSet(next)

	merged := make([]string, 0, len(current)+len(next))
	seen := make(map[string]bool, len(current)+len(next))
	add := func(name string) {
		if !seen[name] {
			seen[name] = true
			merged = append(merged, name)
		}
	}

	for _, name := range current {
		if !oldSet[name] || nextSet[name] {
			add(name)
		}
	}
	for _, name := range next {
		if !oldSet[name] || currentSet[name] {
			add(name)
		}
	}
	return merged
}

// MergeScalar resolves a concurrent edit of a single-valued field. The
// editor's submitted value wins only when the value they based the edit on
// still matches what is stored; otherwise the stored value is kept.
func MergeScalar(stored, basedOn, submitted string) string {
	if basedOn == stored {
		return submitted
	}
	return stored
}

// MergeParent applies the same rule to the nullable parent reference.
func MergeParent(stored, basedOn, submitted *int64) *int64 {
	if int64PtrEqual(basedOn, stored) {
		return submitted
	}
	return stored
}

func int64PtrEqual(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func toSet(names []string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, name := range names {
		set[name] = true
	}
	return set
}
