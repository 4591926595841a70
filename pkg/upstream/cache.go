package upstream

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// cacheKey identifies a per-route client by the two knobs that change its
// shape: the forward proxy and TLS verification policy.
type cacheKey struct {
	proxyURL  string
	verifySSL bool
}

type cacheEntry struct {
	client     *http.Client
	lastUsedAt time.Time
}

// Cache amortizes per-route client construction, keyed by (proxy_url,
// verify_ssl), per the spec's optional optimization (Open Question #4).
// A cron job periodically evicts entries idle past idleTTL.
type Cache struct {
	factory        *Factory
	connectTimeout time.Duration
	followRedirect bool
	idleTTL        time.Duration

	mu      sync.Mutex
	entries map[cacheKey]*cacheEntry

	cron   *cron.Cron
	logger *slog.Logger
}

// NewCache builds a client cache sharing connectTimeout/followRedirect
// across all cached clients; only proxy/TLS policy varies per key.
func NewCache(factory *Factory, connectTimeout time.Duration, followRedirect bool, idleTTL time.Duration, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{
		factory:        factory,
		connectTimeout: connectTimeout,
		followRedirect: followRedirect,
		idleTTL:        idleTTL,
		entries:        make(map[cacheKey]*cacheEntry),
		logger:         logger.With("component", "upstream.cache"),
	}
}

// Get returns a cached client for (proxyURL, verifySSL), building and
// storing one on first use.
func (c *Cache) Get(proxyURL string, verifySSL bool) (*http.Client, error) {
	key := cacheKey{proxyURL: proxyURL, verifySSL: verifySSL}

	c.mu.Lock()
	if entry, ok := c.entries[key]; ok {
		entry.lastUsedAt = time.Now()
		client := entry.client
		c.mu.Unlock()
		return client, nil
	}
	c.mu.Unlock()

	client, err := c.factory.Build(Options{
		ConnectTimeout:  c.connectTimeout,
		FollowRedirects: c.followRedirect,
		ProxyURL:        proxyURL,
		VerifySSL:       verifySSL,
	})
	if err != nil {
		return nil, fmt.Errorf("upstream: cache build: %w", err)
	}

	c.mu.Lock()
	c.entries[key] = &cacheEntry{client: client, lastUsedAt: time.Now()}
	c.mu.Unlock()

	return client, nil
}

// StartEviction schedules periodic eviction of entries idle past idleTTL
// using schedule (standard cron syntax, e.g. "*/5 * * * *"). It is a
// no-op if schedule is empty.
func (c *Cache) StartEviction(ctx context.Context, schedule string) error {
	if schedule == "" {
		return nil
	}

	c.cron = cron.New()
	if _, err := c.cron.AddFunc(schedule, c.evictIdle); err != nil {
		return fmt.Errorf("upstream: invalid eviction schedule %q: %w", schedule, err)
	}
	c.cron.Start()

	go func() {
		<-ctx.Done()
		c.cron.Stop()
	}()

	return nil
}

func (c *Cache) evictIdle() {
	if c.idleTTL <= 0 {
		return
	}
	cutoff := time.Now().Add(-c.idleTTL)

	c.mu.Lock()
	defer c.mu.Unlock()
	for key, entry := range c.entries {
		if entry.lastUsedAt.Before(cutoff) {
			delete(c.entries, key)
			c.logger.Debug("evicted idle upstream client", "proxy_url", key.proxyURL, "verify_ssl", key.verifySSL)
		}
	}
}

// Len returns the number of cached clients, for tests and diagnostics.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
