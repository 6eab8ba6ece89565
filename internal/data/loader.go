// Package data drives playlist ingestion: fetching M3U content, running it
// through the parse and classification pipeline, and committing the result
// to the catalog store.
package data

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/gzapi/GZPlayer/internal/catalog"
	"github.com/gzapi/GZPlayer/internal/m3u"
	"github.com/gzapi/GZPlayer/internal/metrics"
)

const (
	fetchTimeout = 5 * time.Minute
	maxBodySize  = 100 * 1024 * 1024
)

// ErrSuperseded is returned when a load run was cancelled because a newer
// run started. It is distinct from parse and fetch failures so callers can
// ignore it instead of surfacing an error for intentional cancellation.
var ErrSuperseded = errors.New("load superseded by a newer load")

// Loader runs playlist load pipelines. At most one run is in flight:
// starting a new run cancels the previous one, and only a run that finishes
// uncancelled commits its catalog.
type Loader struct {
	log    logrus.FieldLogger
	client *http.Client
	store  *catalog.Store

	mu     sync.Mutex
	cancel context.CancelFunc
	runCtx context.Context
}

// NewLoader creates a playlist loader committing into store.
func NewLoader(log logrus.FieldLogger, store *catalog.Store) *Loader {
	return &Loader{
		log: log.WithField("component", "loader"),
		client: &http.Client{
			Timeout: fetchTimeout,
		},
		store: store,
	}
}

// LoadURL fetches a playlist over HTTP and loads it.
func (l *Loader) LoadURL(ctx context.Context, url string) (*catalog.Catalog, error) {
	l.log.WithField("url", url).Info("Fetching M3U playlist")

	content, err := l.fetch(ctx, url)
	if err != nil {
		metrics.PlaylistLoads.WithLabelValues("error").Inc()

		return nil, fmt.Errorf("failed to fetch M3U: %w", err)
	}

	return l.LoadContent(ctx, content)
}

// LoadContent parses, classifies and groups raw playlist content, then
// commits the resulting catalog wholesale. A run interrupted by a newer one
// returns ErrSuperseded and leaves the previous catalog untouched.
func (l *Loader) LoadContent(ctx context.Context, content string) (*catalog.Catalog, error) {
	runCtx, cancel := l.begin(ctx)
	defer cancel()

	start := time.Now()

	entries, err := m3u.Parse(content)
	if err != nil {
		metrics.PlaylistLoads.WithLabelValues("error").Inc()

		return nil, fmt.Errorf("failed to parse M3U: %w", err)
	}

	items, err := catalog.ClassifyAll(runCtx, entries)
	if err != nil {
		return nil, l.runError(err)
	}

	built, err := catalog.Build(runCtx, items)
	if err != nil {
		return nil, l.runError(err)
	}

	// A newer run may have started between the last batch and here; it owns
	// the store now.
	if !l.commit(runCtx, built) {
		return nil, l.runError(context.Canceled)
	}

	metrics.PlaylistLoads.WithLabelValues("success").Inc()
	metrics.CatalogItems.WithLabelValues(string(catalog.KindChannel)).Set(float64(len(built.Channels)))
	metrics.CatalogItems.WithLabelValues(string(catalog.KindMovie)).Set(float64(len(built.Movies)))
	metrics.CatalogItems.WithLabelValues(string(catalog.KindSeries)).Set(float64(len(built.Series)))

	l.log.WithFields(logrus.Fields{
		"channels": len(built.Channels),
		"movies":   len(built.Movies),
		"series":   len(built.Series),
		"duration": time.Since(start).String(),
	}).Info("Playlist loaded")

	return built, nil
}

// begin registers a new run, cancelling whichever run was in flight.
func (l *Loader) begin(ctx context.Context) (context.Context, context.CancelFunc) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.cancel != nil {
		l.cancel()
	}

	runCtx, cancel := context.WithCancel(ctx)
	l.cancel = cancel
	l.runCtx = runCtx

	return runCtx, cancel
}

// commit installs built only when runCtx still belongs to the current run.
// begin swaps runs under the same mutex, so a stale run can never overwrite
// a newer run's catalog between its final context check and the store swap.
func (l *Loader) commit(runCtx context.Context, built *catalog.Catalog) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.runCtx != runCtx || runCtx.Err() != nil {
		return false
	}

	l.store.Commit(built)

	return true
}

func (l *Loader) runError(err error) error {
	if errors.Is(err, context.Canceled) {
		metrics.PlaylistLoads.WithLabelValues("cancelled").Inc()
		l.log.Info("Playlist load superseded")

		return ErrSuperseded
	}

	metrics.PlaylistLoads.WithLabelValues("error").Inc()

	return err
}

func (l *Loader) fetch(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept-Encoding", "gzip")

	resp, err := l.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var reader io.Reader = resp.Body

	if strings.EqualFold(resp.Header.Get("Content-Encoding"), "gzip") {
		gzReader, gzErr := gzip.NewReader(resp.Body)
		if gzErr != nil {
			return "", fmt.Errorf("failed to create gzip reader: %w", gzErr)
		}
		defer gzReader.Close()

		reader = gzReader
	}

	data, err := io.ReadAll(io.LimitReader(reader, maxBodySize))
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}

	l.log.WithField("size", len(data)).Debug("Fetched playlist")

	return string(data), nil
}
