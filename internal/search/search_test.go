package search

import (
	"reflect"
	"testing"

	"booru/api/internal/store"
)

func TestParseQuery(t *testing.T) {
	terms := ParseQuery("cat -dog rating:s -status:deleted parent:42 re:zero")
	want := []Term{
		{Kind: TermTag, Value: "cat"},
		{Kind: TermTag, Value: "dog", Negated: true},
		{Kind: TermRating, Value: "s"},
		{Kind: TermStatus, Value: "deleted", Negated: true},
		{Kind: TermParent, Value: "42"},
		{Kind: TermTag, Value: "re:zero"},
	}
	if !reflect.DeepEqual(terms, want) {
		t.Fatalf("terms = %+v", terms)
	}
}

func TestStatusOfPrecedence(t *testing.T) {
	p := store.Post{IsDeleted: true, IsFlagged: true, IsPending: true, IsBanned: true}
	if got := StatusOf(p); got != "deleted" {
		t.Fatalf("status = %q, want deleted", got)
	}
	p.IsDeleted = false
	if got := StatusOf(p); got != "flagged" {
		t.Fatalf("status = %q, want flagged", got)
	}
	p.IsFlagged = false
	if got := StatusOf(p); got != "pending" {
		t.Fatalf("status = %q, want pending", got)
	}
	p.IsPending = false
	if got := StatusOf(p); got != "banned" {
		t.Fatalf("status = %q, want banned", got)
	}
	p.IsBanned = false
	if got := StatusOf(p); got != "active" {
		t.Fatalf("status = %q, want active", got)
	}
}

func TestCompileFilters(t *testing.T) {
	filters := compileFilters(ParseQuery("cat -dog rating:e status:active parent:7"))
	want := []string{
		`tags = "cat"`,
		`NOT tags = "dog"`,
		`rating = "e"`,
		`status = "active"`,
		`parentId = 7`,
	}
	if !reflect.DeepEqual(filters, want) {
		t.Fatalf("filters = %v", filters)
	}
}

func TestCompileSQL(t *testing.T) {
	where, args := compileSQL(ParseQuery("cat -status:deleted rating:s"))
	wantWhere := []string{
		"string_to_array(tag_string, ' ') @> ARRAY[$1]",
		"NOT (is_deleted = TRUE)",
		"rating = $2",
	}
	if !reflect.DeepEqual(where, wantWhere) {
		t.Fatalf("where = %v", where)
	}
	wantArgs := []any{"cat", "s"}
	if !reflect.DeepEqual(args, wantArgs) {
		t.Fatalf("args = %v", args)
	}
}

func TestRecordFor(t *testing.T) {
	parent := int64(9)
	p := store.Post{
		ID:        3,
		TagString: "cat dog",
		Rating:    "q",
		ParentID:  &parent,
		IsPending: true,
	}
	record := RecordFor(p)
	if record.Status != "pending" {
		t.Fatalf("status = %q", record.Status)
	}
	if !reflect.DeepEqual(record.Tags, []string{"cat", "dog"}) {
		t.Fatalf("tags = %v", record.Tags)
	}
	if record.ParentID != 9 {
		t.Fatalf("parent = %d", record.ParentID)
	}
}
