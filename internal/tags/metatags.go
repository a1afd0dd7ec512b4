package tags

import (
	"strconv"
	"strings"
)

// PoolRef names a pool either by id or by name, depending on what the editor
// typed after the colon.
type PoolRef struct {
	ID   int64
	Name string
}

// Directives holds everything stripped out of a submitted tag string that is
// not a tag. Pre directives change the post row itself and apply before the
// row is saved; post directives touch other records and apply after.
type Directives struct {
	// pre
	Rating      string
	SetParent   *int64
	ClearParent bool
	// UnsetParent clears the parent only when it still equals this id, so a
	// stale -parent:N does not detach a newer relationship.
	UnsetParent *int64

	// post
	AddPools    []PoolRef
	RemovePools []PoolRef
	NewPools    []string
	Favorite    bool
	Children    []int64
}

// ParseDirectives splits the submitted words into plain tag words and typed
// directives. Directive words are matched case-insensitively and never reach
// the tag pipeline.
func ParseDirectives(words []string) ([]string, Directives) {
	rest := make([]string, 0, len(words))
	var d Directives

	for _, word := range words {
		lower := strings.ToLower(word)
		key, value, found := strings.Cut(lower, ":")
		if !found || value == "" {
			rest = append(rest, word)
			continue
		}

		switch key {
		case "rating":
			// first letter decides; anything else is discarded with the word
			switch value[:1] {
			case "s", "q", "e":
				d.Rating = value[:1]
			}
		case "parent":
			if value == "none" {
				d.ClearParent = true
				d.SetParent = nil
			} else if id, err := strconv.ParseInt(value, 10, 64); err == nil {
				if id == 0 {
					d.ClearParent = true
					d.SetParent = nil
				} else {
					d.SetParent = &id
					d.ClearParent = false
				}
			}
		case "-parent":
			// non-numeric values are discarded with the word
			if id, err := strconv.ParseInt(value, 10, 64); err == nil && id != 0 {
				d.UnsetParent = &id
			}
		case "pool":
			d.AddPools = append(d.AddPools, poolRef(value))
		case "-pool":
			d.RemovePools = append(d.RemovePools, poolRef(value))
		case "newpool":
			d.NewPools = append(d.NewPools, value)
		case "fav":
			d.Favorite = true
		case "child":
			if id, err := strconv.ParseInt(value, 10, 64); err == nil {
				d.Children = append(d.Children, id)
			}
		default:
			rest = append(rest, word)
		}
	}
	return rest, d
}

func poolRef(value string) PoolRef {
	if id, err := strconv.ParseInt(value, 10, 64); err == nil {
		return PoolRef{ID: id}
	}
	return PoolRef{Name: value}
}
