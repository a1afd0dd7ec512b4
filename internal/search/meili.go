package search

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"sync/atomic"
	"time"

	meili "github.com/meilisearch/meilisearch-go"
)

const idxPosts = "booru_posts"

// Meili indexes and counts posts via Meilisearch.
type Meili struct {
	client  meili.ServiceManager
	healthy atomic.Bool
	done    chan struct{}
}

// NewMeili creates a Meilisearch client and configures the posts index. The
// caller should proceed without it when the initial connection fails; the
// health loop will pick it up later.
func NewMeili(url, apiKey string) *Meili {
	client := meili.New(url, meili.WithAPIKey(apiKey))

	m := &Meili{
		client: client,
		done:   make(chan struct{}),
	}

	if _, err := client.Health(); err != nil {
		log.Printf("search: meilisearch unavailable at %s: %v", url, err)
		m.healthy.Store(false)
	} else {
		m.healthy.Store(true)
		m.configureIndex()
	}

	go m.healthLoop()
	return m
}

func (m *Meili) configureIndex() {
	if _, err := m.client.CreateIndex(&meili.IndexConfig{
		Uid:        idxPosts,
		PrimaryKey: "id",
	}); err != nil {
		log.Printf("search: create index %s (may already exist): %v", idxPosts, err)
	}

	index := m.client.Index(idxPosts)
	filterable := []interface{}{"tags", "rating", "status", "parentId", "uploaderId"}
	if _, err := index.UpdateFilterableAttributes(&filterable); err != nil {
		log.Printf("search: update filterable attrs for %s: %v", idxPosts, err)
	}
	searchable := []string{"tags"}
	if _, err := index.UpdateSearchableAttributes(&searchable); err != nil {
		log.Printf("search: update searchable attrs for %s: %v", idxPosts, err)
	}
}

func (m *Meili) healthLoop() {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			_, err := m.client.Health()
			wasHealthy := m.healthy.Load()
			m.healthy.Store(err == nil)
			if err == nil && !wasHealthy {
				log.Println("search: meilisearch recovered, reconfiguring index")
				m.configureIndex()
			}
		}
	}
}

// Close stops the background health monitor.
func (m *Meili) Close() {
	close(m.done)
}

// Healthy reports whether Meilisearch is reachable.
func (m *Meili) Healthy() bool {
	return m.healthy.Load()
}

// Count runs the query as a zero-hit search and reads the estimated total.
func (m *Meili) Count(ctx context.Context, query string) (int64, error) {
	if !m.healthy.Load() {
		return 0, fmt.Errorf("meilisearch unhealthy")
	}

	filters := compileFilters(ParseQuery(query))
	resp, err := m.client.Index(idxPosts).SearchWithContext(ctx, "", &meili.SearchRequest{
		Limit:  0,
		Filter: filters,
	})
	if err != nil {
		return 0, fmt.Errorf("meilisearch count: %w", err)
	}
	return resp.EstimatedTotalHits, nil
}

// compileFilters turns parsed terms into Meilisearch filter expressions.
// Each expression in the slice is ANDed by Meilisearch.
func compileFilters(terms []Term) []string {
	filters := make([]string, 0, len(terms))
	for _, term := range terms {
		var expr string
		switch term.Kind {
		case TermRating:
			expr = fmt.Sprintf("rating = %q", term.Value)
		case TermStatus:
			expr = fmt.Sprintf("status = %q", term.Value)
		case TermParent:
			if _, err := strconv.ParseInt(term.Value, 10, 64); err != nil {
				continue
			}
			expr = fmt.Sprintf("parentId = %s", term.Value)
		default:
			expr = fmt.Sprintf("tags = %q", term.Value)
		}
		if term.Negated {
			expr = "NOT " + expr
		}
		filters = append(filters, expr)
	}
	return filters
}

// IndexPost adds or updates a post in the search index.
func (m *Meili) IndexPost(record PostRecord) error {
	_, err := m.client.Index(idxPosts).AddDocuments([]PostRecord{record}, nil)
	return err
}

// DeletePost removes a post from the search index.
func (m *Meili) DeletePost(postID int64) error {
	_, err := m.client.Index(idxPosts).DeleteDocument(strconv.FormatInt(postID, 10), nil)
	return err
}
