package tags

import (
	"context"
	"reflect"
	"testing"

	"booru/api/internal/store"
)

type fakeDictionary struct {
	aliases      map[string]string
	implications map[string][]string
	created      []string
}

func (f *fakeDictionary) EnsureTag(ctx context.Context, name string) (store.Tag, error) {
	f.created = append(f.created, name)
	return store.Tag{Name: name}, nil
}

func (f *fakeDictionary) ResolveAliases(ctx context.Context, names []string) (map[string]string, error) {
	result := make(map[string]string)
	for _, name := range names {
		if consequent, ok := f.aliases[name]; ok {
			result[name] = consequent
		}
	}
	return result, nil
}

func (f *fakeDictionary) ImplicationsFor(ctx context.Context, names []string) (map[string][]string, error) {
	result := make(map[string][]string)
	for _, name := range names {
		if consequents, ok := f.implications[name]; ok {
			result[name] = consequents
		}
	}
	return result, nil
}

func normalize(t *testing.T, dict *fakeDictionary, tagString string) Result {
	t.Helper()
	n := NewNormalizer(dict, true)
	result, err := n.Normalize(context.Background(), tagString, FileMeta{Width: 800, Height: 600})
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	return result
}

func TestNormalizeSortsAndDedupes(t *testing.T) {
	result := normalize(t, &fakeDictionary{}, "zebra apple Apple MANGO")
	want := []string{"apple", "mango", "zebra"}
	if !reflect.DeepEqual(result.Tags, want) {
		t.Fatalf("tags = %v, want %v", result.Tags, want)
	}
}

func TestNormalizeNegationAndRating(t *testing.T) {
	result := normalize(t, &fakeDictionary{}, "cat dog -cat rating:e pool:5")
	want := []string{"dog"}
	if !reflect.DeepEqual(result.Tags, want) {
		t.Fatalf("tags = %v, want %v", result.Tags, want)
	}
	if result.Directives.Rating != "e" {
		t.Fatalf("rating = %q, want e", result.Directives.Rating)
	}
	if len(result.Directives.AddPools) != 1 || result.Directives.AddPools[0].ID != 5 {
		t.Fatalf("add pools = %+v", result.Directives.AddPools)
	}
}

func TestNormalizeEmptyGetsTagme(t *testing.T) {
	result := normalize(t, &fakeDictionary{}, "")
	if !reflect.DeepEqual(result.Tags, []string{"tagme"}) {
		t.Fatalf("tags = %v, want [tagme]", result.Tags)
	}
}

func TestNormalizeNegatingEverythingGetsTagme(t *testing.T) {
	result := normalize(t, &fakeDictionary{}, "cat -cat")
	if !reflect.DeepEqual(result.Tags, []string{"tagme"}) {
		t.Fatalf("tags = %v, want [tagme]", result.Tags)
	}
}

func TestNormalizeAliases(t *testing.T) {
	dict := &fakeDictionary{aliases: map[string]string{"kitty": "cat"}}
	result := normalize(t, dict, "kitty dog")
	want := []string{"cat", "dog"}
	if !reflect.DeepEqual(result.Tags, want) {
		t.Fatalf("tags = %v, want %v", result.Tags, want)
	}
}

func TestNormalizeImplicationClosure(t *testing.T) {
	dict := &fakeDictionary{implications: map[string][]string{
		"siamese": {"cat"},
		"cat":     {"animal"},
	}}
	result := normalize(t, dict, "siamese")
	want := []string{"animal", "cat", "siamese"}
	if !reflect.DeepEqual(result.Tags, want) {
		t.Fatalf("tags = %v, want %v", result.Tags, want)
	}
}

func TestNormalizeImplicationCycleTerminates(t *testing.T) {
	dict := &fakeDictionary{implications: map[string][]string{
		"aaa": {"bbb"},
		"bbb": {"aaa"},
	}}
	result := normalize(t, dict, "aaa")
	want := []string{"aaa", "bbb"}
	if !reflect.DeepEqual(result.Tags, want) {
		t.Fatalf("tags = %v, want %v", result.Tags, want)
	}
}

func TestNormalizeIsIdempotent(t *testing.T) {
	dict := &fakeDictionary{
		aliases:      map[string]string{"kitty": "cat"},
		implications: map[string][]string{"cat": {"animal"}},
	}
	n := NewNormalizer(dict, true)
	meta := FileMeta{Width: 2000, Height: 1500}

	first, err := n.Normalize(context.Background(), "Kitty dog -dog rating:s", meta)
	if err != nil {
		t.Fatalf("first pass: %v", err)
	}
	second, err := n.Normalize(context.Background(), joinTags(first.Tags), meta)
	if err != nil {
		t.Fatalf("second pass: %v", err)
	}
	if !reflect.DeepEqual(first.Tags, second.Tags) {
		t.Fatalf("not idempotent: %v then %v", first.Tags, second.Tags)
	}
}

func TestNormalizeDimensionTags(t *testing.T) {
	n := NewNormalizer(&fakeDictionary{}, true)
	result, err := n.Normalize(context.Background(), "highres cat", FileMeta{Width: 400, Height: 300})
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	// stale highres is stripped, lowres derived from the real dimensions
	want := []string{"cat", "lowres"}
	if !reflect.DeepEqual(result.Tags, want) {
		t.Fatalf("tags = %v, want %v", result.Tags, want)
	}
}

func TestNormalizeDimensionTaggingDisabled(t *testing.T) {
	n := NewNormalizer(&fakeDictionary{}, false)
	result, err := n.Normalize(context.Background(), "cat", FileMeta{Width: 400, Height: 300})
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if !reflect.DeepEqual(result.Tags, []string{"cat"}) {
		t.Fatalf("tags = %v, want [cat]", result.Tags)
	}
}

func joinTags(names []string) string {
	joined := ""
	for i, name := range names {
		if i > 0 {
			joined += " "
		}
		joined += name
	}
	return joined
}
