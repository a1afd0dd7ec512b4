// Package search answers tag queries against Meilisearch when it is healthy
// and falls back to PostgreSQL otherwise.
package search

import (
	"strings"

	"booru/api/internal/store"
)

// PostRecord is the indexed shape of a post.
type PostRecord struct {
	ID       int64    `json:"id"`
	Tags     []string `json:"tags"`
	Rating   string   `json:"rating"`
	Status   string   `json:"status"`
	ParentID int64    `json:"parentId"`
	Uploader int64    `json:"uploaderId"`
	Score    int      `json:"score"`
	FavCount int      `json:"favCount"`
}

// RecordFor flattens a post into its indexable form.
func RecordFor(p store.Post) PostRecord {
	r := PostRecord{
		ID:       p.ID,
		Tags:     strings.Fields(p.TagString),
		Rating:   p.Rating,
		Status:   StatusOf(p),
		Uploader: p.UploaderID,
		Score:    p.Score,
		FavCount: p.FavCount,
	}
	if p.ParentID != nil {
		r.ParentID = *p.ParentID
	}
	return r
}

// StatusOf derives the single status word from the post flags. Deleted wins
// over flagged, flagged over pending, pending over banned.
func StatusOf(p store.Post) string {
	switch {
	case p.IsDeleted:
		return "deleted"
	case p.IsFlagged:
		return "flagged"
	case p.IsPending:
		return "pending"
	case p.IsBanned:
		return "banned"
	default:
		return "active"
	}
}

type TermKind int

const (
	TermTag TermKind = iota
	TermRating
	TermStatus
	TermParent
)

// Term is one word of a count query after parsing.
type Term struct {
	Kind    TermKind
	Value   string
	Negated bool
}

// ParseQuery splits a count query into terms. Plain words are tag terms, a
// leading dash negates, and rating:/status:/parent: select the typed kinds.
func ParseQuery(query string) []Term {
	words := strings.Fields(strings.ToLower(query))
	terms := make([]Term, 0, len(words))

	for _, word := range words {
		negated := false
		if strings.HasPrefix(word, "-") && len(word) > 1 {
			negated = true
			word = word[1:]
		}

		key, value, found := strings.Cut(word, ":")
		if !found || value == "" {
			terms = append(terms, Term{Kind: TermTag, Value: word, Negated: negated})
			continue
		}
		switch key {
		case "rating":
			terms = append(terms, Term{Kind: TermRating, Value: value[:1], Negated: negated})
		case "status":
			terms = append(terms, Term{Kind: TermStatus, Value: value, Negated: negated})
		case "parent":
			terms = append(terms, Term{Kind: TermParent, Value: value, Negated: negated})
		default:
			// tags may themselves contain colons
			terms = append(terms, Term{Kind: TermTag, Value: word, Negated: negated})
		}
	}
	return terms
}
