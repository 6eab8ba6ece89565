// Package logocache fetches, stores and serves channel logo images with a
// bounded footprint, freshness guarantees and single-flight fetch coalescing.
package logocache

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/gzapi/GZPlayer/internal/metrics"
	"github.com/gzapi/GZPlayer/internal/sanitize"
)

var (
	// ErrUnsupportedURL is returned for logo URLs that are not http or https.
	ErrUnsupportedURL = errors.New("logo URL must be http or https")
	// ErrUnsupportedType is returned when the fetched content type is not an allowed image type.
	ErrUnsupportedType = errors.New("unsupported logo content type")
	// ErrTooLarge is returned when a fetched logo exceeds the per-entry size ceiling.
	ErrTooLarge = errors.New("logo exceeds per-entry size limit")
	// ErrUpstreamStatus is returned when the upstream responds with a non-success status.
	ErrUpstreamStatus = errors.New("upstream returned non-success status")
)

// Config holds the logo cache limits. Zero fields fall back to the defaults.
type Config struct {
	MaxBytes           int64
	MaxItems           int
	MaxEntryBytes      int64
	TTL                time.Duration
	FetchTimeout       time.Duration
	AllowedTypes       []string
	PreloadConcurrency int
	SweepInterval      time.Duration
}

// DefaultConfig returns the production cache limits.
func DefaultConfig() Config {
	return Config{
		MaxBytes:           50 * 1024 * 1024,
		MaxItems:           1000,
		MaxEntryBytes:      5 * 1024 * 1024,
		TTL:                7 * 24 * time.Hour,
		FetchTimeout:       15 * time.Second,
		AllowedTypes:       []string{"image/jpeg", "image/png", "image/webp", "image/gif"},
		PreloadConcurrency: 5,
		SweepInterval:      time.Hour,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()

	if c.MaxBytes <= 0 {
		c.MaxBytes = def.MaxBytes
	}

	if c.MaxItems <= 0 {
		c.MaxItems = def.MaxItems
	}

	if c.MaxEntryBytes <= 0 {
		c.MaxEntryBytes = def.MaxEntryBytes
	}

	if c.TTL <= 0 {
		c.TTL = def.TTL
	}

	if c.FetchTimeout <= 0 {
		c.FetchTimeout = def.FetchTimeout
	}

	if len(c.AllowedTypes) == 0 {
		c.AllowedTypes = def.AllowedTypes
	}

	if c.PreloadConcurrency <= 0 {
		c.PreloadConcurrency = def.PreloadConcurrency
	}

	if c.SweepInterval <= 0 {
		c.SweepInterval = def.SweepInterval
	}

	return c
}

// entry is one resident cached logo.
type entry struct {
	data         []byte
	contentType  string
	createdAt    time.Time
	lastAccessed time.Time
}

type fetched struct {
	data        []byte
	contentType string
}

// Stats reports the cache's resident footprint and hit rate.
type Stats struct {
	Items   int     `json:"items"`
	Bytes   int64   `json:"bytes"`
	Hits    uint64  `json:"hits"`
	Misses  uint64  `json:"misses"`
	HitRate float64 `json:"hitRate"`
}

// Cache is the logo cache engine. Admissions, evictions and sweeps are
// sequenced under one mutex so an eviction triggered by one admission cannot
// race another admission's space check. Fetches for the same URL are
// coalesced through a single-flight group; a failed fetch is never cached.
type Cache struct {
	log    logrus.FieldLogger
	cfg    Config
	client *http.Client
	store  *Storage

	mu         sync.Mutex
	entries    map[string]*entry
	totalBytes int64
	hits       uint64
	misses     uint64

	flight singleflight.Group
	now    func() time.Time
}

// New creates a logo cache with the given limits. A non-nil store is loaded
// immediately: persisted entries past their TTL, and records that fail to
// decode, are discarded.
func New(log logrus.FieldLogger, cfg Config, store *Storage) *Cache {
	cache := &Cache{
		log:     log.WithField("component", "logocache"),
		cfg:     cfg.withDefaults(),
		client:  &http.Client{},
		store:   store,
		entries: make(map[string]*entry),
		now:     time.Now,
	}

	cache.loadPersisted()

	return cache
}

func (c *Cache) loadPersisted() {
	if c.store == nil {
		return
	}

	var expired []string

	c.mu.Lock()

	corrupt, err := c.store.Load(func(url string, rec record) {
		if c.now().Sub(rec.CreatedAt) > c.cfg.TTL {
			expired = append(expired, url)

			return
		}

		c.entries[url] = &entry{
			data:         rec.Content,
			contentType:  rec.ContentType,
			createdAt:    rec.CreatedAt,
			lastAccessed: rec.LastAccessed,
		}
		c.totalBytes += int64(len(rec.Content))
	})

	// Loaded entries must still respect the configured ceilings.
	c.ensureSpaceLocked(0, 0)
	items, bytes := len(c.entries), c.totalBytes

	c.mu.Unlock()

	if err != nil {
		c.log.WithError(err).Warn("Failed to load persisted logo cache")
	}

	for _, url := range append(expired, corrupt...) {
		if err := c.store.Delete(url); err != nil {
			c.log.WithError(err).WithField("url", url).Warn("Failed to drop stale persisted logo")
		}
	}

	metrics.LogoCacheItems.Set(float64(items))
	metrics.LogoCacheBytes.Set(float64(bytes))

	c.log.WithFields(logrus.Fields{
		"items":   items,
		"bytes":   bytes,
		"expired": len(expired),
		"corrupt": len(corrupt),
	}).Info("Logo cache initialized")
}

// Get returns the logo bytes and content type for url, fetching and
// admitting it on a miss. Concurrent calls for the same URL share one
// underlying fetch. Entries past their TTL are treated as absent and
// trigger a fresh fetch. Fetch failures are returned to the caller and are
// not cached; a later Get retries the network.
func (c *Cache) Get(ctx context.Context, rawURL string) ([]byte, string, error) {
	if !sanitize.IsHTTPURL(rawURL) {
		return nil, "", ErrUnsupportedURL
	}

	if data, contentType, ok := c.lookup(rawURL); ok {
		return data, contentType, nil
	}

	c.countMiss()

	result, err, _ := c.flight.Do(rawURL, func() (interface{}, error) {
		// A previous flight may have admitted the entry after our miss.
		if data, contentType, ok := c.lookup(rawURL); ok {
			return fetched{data: data, contentType: contentType}, nil
		}

		data, contentType, err := c.download(ctx, rawURL)
		if err != nil {
			return nil, err
		}

		c.admit(rawURL, data, contentType)

		return fetched{data: data, contentType: contentType}, nil
	})
	if err != nil {
		return nil, "", err
	}

	res := result.(fetched)

	return res.data, res.contentType, nil
}

// DataURL returns the logo for url encoded as a data: URL, the form the
// rendering layer embeds directly.
func (c *Cache) DataURL(ctx context.Context, rawURL string) (string, error) {
	data, contentType, err := c.Get(ctx, rawURL)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("data:%s;base64,%s", contentType, base64.StdEncoding.EncodeToString(data)), nil
}

// lookup returns the resident entry for url, refreshing its last access
// time and counting a hit. Expired entries are removed and reported as
// absent; the miss is counted once by Get, not here, so the re-check inside
// a coalesced fetch does not double-count.
func (c *Cache) lookup(rawURL string) ([]byte, string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ent, ok := c.entries[rawURL]
	if !ok {
		return nil, "", false
	}

	if c.now().Sub(ent.createdAt) > c.cfg.TTL {
		c.removeLocked(rawURL)
		metrics.LogoCacheExpired.Inc()

		return nil, "", false
	}

	ent.lastAccessed = c.now()
	c.hits++
	metrics.LogoCacheHits.Inc()

	return ent.data, ent.contentType, true
}

func (c *Cache) countMiss() {
	c.mu.Lock()
	c.misses++
	c.mu.Unlock()

	metrics.LogoCacheMisses.Inc()
}

func (c *Cache) download(ctx context.Context, rawURL string) ([]byte, string, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.cfg.FetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "image/*")

	resp, err := c.client.Do(req)
	if err != nil {
		metrics.LogoFetchErrors.WithLabelValues("network").Inc()

		return nil, "", fmt.Errorf("logo request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		metrics.LogoFetchErrors.WithLabelValues("status").Inc()

		return nil, "", fmt.Errorf("%w: %d", ErrUpstreamStatus, resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if base, _, found := strings.Cut(contentType, ";"); found {
		contentType = base
	}

	contentType = strings.ToLower(strings.TrimSpace(contentType))

	if !c.typeAllowed(contentType) {
		metrics.LogoFetchErrors.WithLabelValues("content_type").Inc()

		return nil, "", fmt.Errorf("%w: %s", ErrUnsupportedType, contentType)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, c.cfg.MaxEntryBytes+1))
	if err != nil {
		metrics.LogoFetchErrors.WithLabelValues("network").Inc()

		return nil, "", fmt.Errorf("failed to read logo body: %w", err)
	}

	if int64(len(data)) > c.cfg.MaxEntryBytes {
		metrics.LogoFetchErrors.WithLabelValues("too_large").Inc()

		return nil, "", fmt.Errorf("%w: %d bytes", ErrTooLarge, len(data))
	}

	return data, contentType, nil
}

func (c *Cache) typeAllowed(contentType string) bool {
	for _, allowed := range c.cfg.AllowedTypes {
		if contentType == allowed {
			return true
		}
	}

	return false
}

// admit reclaims space if needed, then stores the entry and mirrors it to
// the persistent store.
func (c *Cache) admit(rawURL string, data []byte, contentType string) {
	now := c.now()

	c.mu.Lock()

	c.ensureSpaceLocked(int64(len(data)), 1)

	c.entries[rawURL] = &entry{
		data:         data,
		contentType:  contentType,
		createdAt:    now,
		lastAccessed: now,
	}
	c.totalBytes += int64(len(data))

	items, bytes := len(c.entries), c.totalBytes

	c.mu.Unlock()

	metrics.LogoCacheItems.Set(float64(items))
	metrics.LogoCacheBytes.Set(float64(bytes))

	err := c.store.Put(rawURL, record{
		Content:      data,
		ContentType:  contentType,
		CreatedAt:    now,
		LastAccessed: now,
	})
	if err != nil {
		c.log.WithError(err).WithField("url", rawURL).Warn("Failed to persist logo")
	}
}

// ensureSpaceLocked evicts entries, oldest last access first, until both
// aggregate ceilings hold with room for pending admissions. Caller holds
// c.mu.
func (c *Cache) ensureSpaceLocked(incoming int64, pending int) {
	for len(c.entries) > 0 &&
		(c.totalBytes+incoming > c.cfg.MaxBytes || len(c.entries)+pending > c.cfg.MaxItems) {
		oldestURL := ""
		oldestTime := c.now()

		for url, ent := range c.entries {
			if oldestURL == "" || ent.lastAccessed.Before(oldestTime) {
				oldestTime = ent.lastAccessed
				oldestURL = url
			}
		}

		c.removeLocked(oldestURL)
		metrics.LogoCacheEvictions.Inc()
	}
}

// removeLocked drops an entry from memory and the persistent store. Caller
// holds c.mu.
func (c *Cache) removeLocked(rawURL string) {
	ent, ok := c.entries[rawURL]
	if !ok {
		return
	}

	delete(c.entries, rawURL)
	c.totalBytes -= int64(len(ent.data))

	if err := c.store.Delete(rawURL); err != nil {
		c.log.WithError(err).WithField("url", rawURL).Warn("Failed to remove persisted logo")
	}
}

// Preload warms the cache for a list of URLs in bounded concurrent batches.
// URLs already resident are skipped; concurrent fetches for the same URL are
// coalesced by the single-flight group. Individual failures are counted and
// logged, never aborting the batch.
func (c *Cache) Preload(ctx context.Context, urls []string) (loaded, failed int) {
	var loadedN, failedN atomic.Int64

	start := c.now()

	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(c.cfg.PreloadConcurrency)

	for _, rawURL := range urls {
		if !sanitize.IsHTTPURL(rawURL) || c.resident(rawURL) {
			continue
		}

		group.Go(func() error {
			if _, _, err := c.Get(ctx, rawURL); err != nil {
				failedN.Add(1)
				c.log.WithError(err).WithField("url", rawURL).Debug("Failed to preload logo")
			} else {
				loadedN.Add(1)
			}

			return nil
		})
	}

	// Workers never return errors; Wait only joins them.
	_ = group.Wait()

	loaded, failed = int(loadedN.Load()), int(failedN.Load())

	c.log.WithFields(logrus.Fields{
		"requested": len(urls),
		"loaded":    loaded,
		"failed":    failed,
		"duration":  c.now().Sub(start).String(),
	}).Info("Logo preload finished")

	return loaded, failed
}

// resident reports whether url is cached, without refreshing its access time.
func (c *Cache) resident(rawURL string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, ok := c.entries[rawURL]

	return ok
}

// SweepExpired purges every entry past its TTL and returns the count.
func (c *Cache) SweepExpired() int {
	c.mu.Lock()

	var stale []string

	for url, ent := range c.entries {
		if c.now().Sub(ent.createdAt) > c.cfg.TTL {
			stale = append(stale, url)
		}
	}

	for _, url := range stale {
		c.removeLocked(url)
	}

	items, bytes := len(c.entries), c.totalBytes

	c.mu.Unlock()

	if len(stale) > 0 {
		metrics.LogoCacheItems.Set(float64(items))
		metrics.LogoCacheBytes.Set(float64(bytes))
		metrics.LogoCacheExpired.Add(float64(len(stale)))

		c.log.WithField("expired", len(stale)).Info("Purged expired logos")
	}

	return len(stale)
}

// RunSweeper purges expired entries periodically until ctx is cancelled.
func (c *Cache) RunSweeper(ctx context.Context) {
	ticker := time.NewTicker(c.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.SweepExpired()
		}
	}
}

// Clear drops every entry from memory and the persistent store.
func (c *Cache) Clear() {
	c.mu.Lock()

	c.entries = make(map[string]*entry)
	c.totalBytes = 0
	c.hits = 0
	c.misses = 0

	c.mu.Unlock()

	metrics.LogoCacheItems.Set(0)
	metrics.LogoCacheBytes.Set(0)

	if err := c.store.Clear(); err != nil {
		c.log.WithError(err).Warn("Failed to clear persisted logo cache")
	}

	c.log.Info("Logo cache cleared")
}

// Stats returns the cache's current footprint and hit rate.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := Stats{
		Items:  len(c.entries),
		Bytes:  c.totalBytes,
		Hits:   c.hits,
		Misses: c.misses,
	}

	if total := stats.Hits + stats.Misses; total > 0 {
		stats.HitRate = float64(stats.Hits) / float64(total) * 100
	}

	return stats
}
