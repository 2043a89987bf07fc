package blogapi

import (
	"context"
	"sync"
	"time"

	"github.com/eringen/blogapi/internal/store"
)

// FeedCache is an in-memory cache of published posts with TTL, backing the
// RSS feed and the sitemap. Post mutations invalidate it.
type FeedCache struct {
	mu      sync.RWMutex
	posts   []store.Post
	fetched time.Time
	ttl     time.Duration
	store   *store.Store
}

// NewFeedCache creates a FeedCache backed by the given Store.
func NewFeedCache(s *store.Store, ttl time.Duration) *FeedCache {
	return &FeedCache{store: s, ttl: ttl}
}

func (c *FeedCache) valid() bool {
	return c.posts != nil && time.Since(c.fetched) < c.ttl
}

// Invalidate clears the cache so the next read triggers a fresh load.
func (c *FeedCache) Invalidate() {
	c.mu.Lock()
	c.posts = nil
	c.mu.Unlock()
}

func (c *FeedCache) load(ctx context.Context) error {
	if c.valid() {
		return nil
	}
	var posts []store.Post
	err := c.store.View(ctx, func(ctx context.Context, tx *store.Tx) (err error) {
		posts, err = tx.Posts().List(ctx, store.PostFilter{Status: store.PostPublished})
		return err
	})
	if err != nil {
		return err
	}
	c.posts = posts
	c.fetched = time.Now()
	return nil
}

// Published returns published posts, newest first. It tries a read lock
// first and only takes the write lock when a reload is needed.
func (c *FeedCache) Published(ctx context.Context) ([]store.Post, error) {
	c.mu.RLock()
	if c.valid() {
		posts := c.posts
		c.mu.RUnlock()
		return posts, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.load(ctx); err != nil {
		return nil, err
	}
	return c.posts, nil
}
