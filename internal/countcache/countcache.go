// Package countcache serves approximate post counts for tag queries. Counts
// are cached in Redis with a popularity-scaled TTL and invalidated across
// nodes through a pub/sub channel.
package countcache

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrSearchTimeout reports that the precise count could not be produced
// within the search budget. It is distinct from a genuine zero count.
var ErrSearchTimeout = errors.New("count query exceeded search budget")

const keyPrefix = "pfc:"

// Matcher produces a precise count for a tag query.
type Matcher interface {
	Count(ctx context.Context, query string) (int64, error)
}

// TagCounter reads the maintained per-tag usage counter.
type TagCounter interface {
	TagPostCount(ctx context.Context, name string) (int64, error)
}

// QueryOptions is the viewer context a count is computed under. Each
// combination caches under its own key.
type QueryOptions struct {
	SafeMode    bool
	HideDeleted bool
}

type Cache struct {
	rdb        *redis.Client
	channel    string
	blankCount int64
	counter    TagCounter
	matcher    Matcher
	budget     time.Duration
}

func New(rdb *redis.Client, channel string, blankCount int64, counter TagCounter, matcher Matcher, budget time.Duration) *Cache {
	return &Cache{
		rdb:        rdb,
		channel:    channel,
		blankCount: blankCount,
		counter:    counter,
		matcher:    matcher,
		budget:     budget,
	}
}

// FastCount returns a count for the query, preferring cheap sources: the
// blank-query estimate, the cache, the per-tag counter, and only then the
// matcher under the search budget.
func (c *Cache) FastCount(ctx context.Context, query string, opts QueryOptions) (int64, error) {
	base := strings.Join(strings.Fields(query), " ")
	effective := applyOptions(base, opts)

	if effective == "" || effective == "rating:s" {
		return c.blankCount, nil
	}

	if count, ok, err := c.get(ctx, effective); err != nil {
		return 0, err
	} else if ok {
		return count, nil
	}

	if isPlainTag(base) && !opts.SafeMode && !opts.HideDeleted {
		count, err := c.counter.TagPostCount(ctx, base)
		if err != nil {
			return 0, fmt.Errorf("counter lookup: %w", err)
		}
		if count > 0 {
			if err := c.put(ctx, effective, count); err != nil {
				return 0, err
			}
			return count, nil
		}
		// zero from the counter may be drift, fall through to the matcher
	}

	budgeted, cancel := context.WithTimeout(ctx, c.budget)
	defer cancel()

	count, err := c.matcher.Count(budgeted, effective)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(budgeted.Err(), context.DeadlineExceeded) {
			return 0, ErrSearchTimeout
		}
		return 0, fmt.Errorf("matcher count: %w", err)
	}

	if err := c.put(ctx, effective, count); err != nil {
		return 0, err
	}
	return count, nil
}

// ExpireForPost broadcasts invalidation for every tag a changed post carries.
// Old posts sit in nearly every large result set, so changes to them also
// invalidate the blank-query count.
func (c *Cache) ExpireForPost(ctx context.Context, postID int64, tagNames []string) error {
	for _, name := range tagNames {
		if err := c.rdb.Publish(ctx, c.channel, name).Err(); err != nil {
			return fmt.Errorf("publish invalidation: %w", err)
		}
	}
	if postID <= 100_000 {
		if err := c.ExpireBlank(ctx); err != nil {
			return err
		}
	}
	return nil
}

// ExpireBlank invalidates the full-corpus count. New posts change it no
// matter their id.
func (c *Cache) ExpireBlank(ctx context.Context) error {
	if err := c.rdb.Publish(ctx, c.channel, "").Err(); err != nil {
		return fmt.Errorf("publish blank invalidation: %w", err)
	}
	return nil
}

// SubscribeInvalidations consumes the invalidation channel until ctx is done,
// deleting every viewer-context variant of each announced query.
func (c *Cache) SubscribeInvalidations(ctx context.Context) {
	sub := c.rdb.Subscribe(ctx, c.channel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if err := c.deleteVariants(ctx, msg.Payload); err != nil {
				log.Printf("count cache invalidation: %v", err)
			}
		}
	}
}

func (c *Cache) deleteVariants(ctx context.Context, base string) error {
	keys := make([]string, 0, 4)
	for _, opts := range []QueryOptions{
		{},
		{SafeMode: true},
		{HideDeleted: true},
		{SafeMode: true, HideDeleted: true},
	} {
		keys = append(keys, Key(applyOptions(base, opts)))
	}
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("delete count keys: %w", err)
	}
	return nil
}

func (c *Cache) get(ctx context.Context, query string) (int64, bool, error) {
	count, err := c.rdb.Get(ctx, Key(query)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("get count key: %w", err)
	}
	return count, true, nil
}

func (c *Cache) put(ctx context.Context, query string, count int64) error {
	if err := c.rdb.Set(ctx, Key(query), count, ttlFor(count)).Err(); err != nil {
		return fmt.Errorf("set count key: %w", err)
	}
	return nil
}

// ttlFor scales the TTL with popularity: rare queries stay fresh, popular
// ones tolerate staleness proportional to their size.
func ttlFor(count int64) time.Duration {
	if count < 100 {
		return time.Minute
	}
	return time.Duration(count) * 4 * time.Minute
}

// Key maps a query to its cache key. Spaces are folded so keys stay flat.
func Key(query string) string {
	return keyPrefix + strings.ReplaceAll(query, " ", "_")
}

func applyOptions(query string, opts QueryOptions) string {
	if opts.SafeMode {
		query = strings.TrimSpace(query + " rating:s")
	}
	if opts.HideDeleted && !hasStatusTerm(query) {
		query = strings.TrimSpace(query + " -status:deleted")
	}
	return query
}

// hasStatusTerm reports whether the query already constrains status, in which
// case the hide-deleted default must not override it.
func hasStatusTerm(query string) bool {
	for _, word := range strings.Fields(query) {
		if strings.HasPrefix(word, "status:") || strings.HasPrefix(word, "-status:") {
			return true
		}
	}
	return false
}

func isPlainTag(query string) bool {
	if query == "" {
		return false
	}
	return !strings.ContainsAny(query, " :*")
}
