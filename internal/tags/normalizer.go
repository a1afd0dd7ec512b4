// Package tags implements the tag string pipeline: directive extraction,
// normalization, alias and implication resolution, dimension-derived tags,
// and the three-way merge used for concurrent edits.
package tags

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"booru/api/internal/store"
)

// Dictionary is the tag metadata the normalizer needs from storage.
type Dictionary interface {
	EnsureTag(ctx context.Context, name string) (store.Tag, error)
	ResolveAliases(ctx context.Context, names []string) (map[string]string, error)
	ImplicationsFor(ctx context.Context, names []string) (map[string][]string, error)
}

type Normalizer struct {
	dict             Dictionary
	dimensionTagging bool
}

func NewNormalizer(dict Dictionary, dimensionTagging bool) *Normalizer {
	return &Normalizer{dict: dict, dimensionTagging: dimensionTagging}
}

// Result is a normalized tag edit: the final sorted tag list plus the
// directives stripped from the input.
type Result struct {
	Tags       []string
	Directives Directives
}

// Normalize runs the full pipeline over a submitted tag string. The stages
// run in a fixed order: split, directive extraction, downcasing, negation,
// tag creation, aliasing, implication closure, the tagme fallback, and the
// dimension tags. The output is sorted and duplicate free, which makes the
// pipeline idempotent: feeding the result back in yields the same result.
func (n *Normalizer) Normalize(ctx context.Context, tagString string, meta FileMeta) (Result, error) {
	words := strings.Fields(tagString)

	rest, directives := ParseDirectives(words)

	names := make([]string, 0, len(rest))
	for _, word := range rest {
		names = append(names, strings.ToLower(word))
	}

	names = applyNegations(names)
	if n.dimensionTagging {
		names = StripAutoTags(names)
	}

	ensured := make(map[string]bool, len(names))
	for _, name := range names {
		if err := n.ensure(ctx, name, ensured); err != nil {
			return Result{}, err
		}
	}

	aliases, err := n.dict.ResolveAliases(ctx, names)
	if err != nil {
		return Result{}, fmt.Errorf("resolve aliases: %w", err)
	}
	for i, name := range names {
		if consequent, ok := aliases[name]; ok {
			names[i] = consequent
		}
	}

	names, err = n.withImplications(ctx, names)
	if err != nil {
		return Result{}, err
	}

	if len(names) == 0 {
		names = []string{"tagme"}
	}

	if n.dimensionTagging {
		names = append(names, AutoTags(meta)...)
	}

	for _, name := range names {
		if err := n.ensure(ctx, name, ensured); err != nil {
			return Result{}, err
		}
	}

	sort.Strings(names)
	names = dedupeSorted(names)

	return Result{Tags: names, Directives: directives}, nil
}

func (n *Normalizer) ensure(ctx context.Context, name string, done map[string]bool) error {
	if done[name] {
		return nil
	}
	if _, err := n.dict.EnsureTag(ctx, name); err != nil {
		return fmt.Errorf("ensure tag %q: %w", name, err)
	}
	done[name] = true
	return nil
}

// applyNegations removes every "-x" word together with any plain "x" words.
// A negation with no matching tag is simply discarded.
func applyNegations(names []string) []string {
	negated := make(map[string]bool)
	for _, name := range names {
		if strings.HasPrefix(name, "-") && len(name) > 1 {
			negated[name[1:]] = true
		}
	}
	if len(negated) == 0 {
		return names
	}

	kept := names[:0]
	for _, name := range names {
		if strings.HasPrefix(name, "-") {
			continue
		}
		if negated[name] {
			continue
		}
		kept = append(kept, name)
	}
	return kept
}

// withImplications adds the transitive closure of implications. Cycles are
// harmless: a name already present is never expanded twice.
func (n *Normalizer) withImplications(ctx context.Context, names []string) ([]string, error) {
	present := make(map[string]bool, len(names))
	for _, name := range names {
		present[name] = true
	}

	frontier := names
	for len(frontier) > 0 {
		implied, err := n.dict.ImplicationsFor(ctx, frontier)
		if err != nil {
			return nil, fmt.Errorf("resolve implications: %w", err)
		}

		var next []string
		for _, consequents := range implied {
			for _, consequent := range consequents {
				if !present[consequent] {
					present[consequent] = true
					names = append(names, consequent)
					next = append(next, consequent)
				}
			}
		}
		frontier = next
	}
	return names, nil
}

func dedupeSorted(names []string) []string {
	kept := names[:0]
	for i, name := range names {
		if i == 0 || name != names[i-1] {
			kept = append(kept, name)
		}
	}
	return kept
}
