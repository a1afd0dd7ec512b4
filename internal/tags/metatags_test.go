package tags

import (
	"reflect"
	"testing"
)

func TestParseDirectives(t *testing.T) {
	words := []string{"cat", "rating:explicit", "parent:42", "pool:series_name", "-pool:7", "newpool:fresh", "fav:me", "child:9", "dog"}
	rest, d := ParseDirectives(words)

	if !reflect.DeepEqual(rest, []string{"cat", "dog"}) {
		t.Fatalf("rest = %v", rest)
	}
	if d.Rating != "e" {
		t.Fatalf("rating = %q", d.Rating)
	}
	if d.SetParent == nil || *d.SetParent != 42 {
		t.Fatalf("parent = %v", d.SetParent)
	}
	if len(d.AddPools) != 1 || d.AddPools[0].Name != "series_name" {
		t.Fatalf("add pools = %+v", d.AddPools)
	}
	if len(d.RemovePools) != 1 || d.RemovePools[0].ID != 7 {
		t.Fatalf("remove pools = %+v", d.RemovePools)
	}
	if !reflect.DeepEqual(d.NewPools, []string{"fresh"}) {
		t.Fatalf("new pools = %v", d.NewPools)
	}
	if !d.Favorite {
		t.Fatal("favorite not set")
	}
	if !reflect.DeepEqual(d.Children, []int64{9}) {
		t.Fatalf("children = %v", d.Children)
	}
}

func TestParseDirectivesClearParentWinsOverStale(t *testing.T) {
	_, d := ParseDirectives([]string{"parent:5", "parent:none"})
	if d.SetParent != nil {
		t.Fatalf("set parent = %v, want nil", d.SetParent)
	}
	if !d.ClearParent {
		t.Fatal("clear parent not set")
	}
}

func TestParseDirectivesUnsetParentNonNumericIgnored(t *testing.T) {
	for _, word := range []string{"-parent:none", "-parent:abc", "-parent:0"} {
		_, d := ParseDirectives([]string{word})
		if d.ClearParent || d.SetParent != nil || d.UnsetParent != nil {
			t.Fatalf("%s: directives = %+v", word, d)
		}
	}
}

func TestParseDirectivesParentNoneAndZeroClear(t *testing.T) {
	for _, word := range []string{"parent:none", "parent:0"} {
		_, d := ParseDirectives([]string{word})
		if !d.ClearParent || d.SetParent != nil {
			t.Fatalf("%s: directives = %+v", word, d)
		}
	}
}

func TestParseDirectivesConditionalUnsetParent(t *testing.T) {
	_, d := ParseDirectives([]string{"-parent:7"})
	if d.ClearParent {
		t.Fatal("clear parent should not be unconditional")
	}
	if d.UnsetParent == nil || *d.UnsetParent != 7 {
		t.Fatalf("unset parent = %v", d.UnsetParent)
	}
}

func TestParseDirectivesInvalidValuesDropped(t *testing.T) {
	rest, d := ParseDirectives([]string{"rating:x", "parent:abc", "child:xyz", "cat"})
	if !reflect.DeepEqual(rest, []string{"cat"}) {
		t.Fatalf("rest = %v", rest)
	}
	if d.Rating != "" || d.SetParent != nil || len(d.Children) != 0 {
		t.Fatalf("directives = %+v", d)
	}
}

func TestParseDirectivesColonTagsSurvive(t *testing.T) {
	rest, _ := ParseDirectives([]string{"re:zero", "year:2020"})
	if !reflect.DeepEqual(rest, []string{"re:zero", "year:2020"}) {
		t.Fatalf("rest = %v", rest)
	}
}

func TestAutoTags(t *testing.T) {
	cases := []struct {
		name string
		meta FileMeta
		want []string
	}{
		{"plain", FileMeta{Width: 800, Height: 600}, nil},
		{"lowres", FileMeta{Width: 500, Height: 400}, []string{"lowres"}},
		{"highres", FileMeta{Width: 1600, Height: 900}, []string{"highres"}},
		{"absurdres", FileMeta{Width: 3200, Height: 1000}, []string{"absurdres", "highres"}},
		{"incredibly", FileMeta{Width: 10000, Height: 500}, []string{"incredibly_absurdres", "absurdres", "highres"}},
		{"huge_file", FileMeta{Width: 800, Height: 600, FileSize: 10 * 1024 * 1024}, []string{"huge_filesize"}},
		{"wide", FileMeta{Width: 4096, Height: 1000}, []string{"absurdres", "highres", "wide_image", "long_image"}},
		{"tall", FileMeta{Width: 300, Height: 1300}, []string{"highres", "tall_image", "long_image"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := AutoTags(tc.meta)
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("AutoTags(%+v) = %v, want %v", tc.meta, got, tc.want)
			}
		})
	}
}
