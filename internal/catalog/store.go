package catalog

import (
	"context"
	"sync"
	"time"
)

// Catalog is the committed result of one successful load run: the three
// typed collections plus their ordered group listings.
type Catalog struct {
	Channels []Item `json:"channels"`
	Movies   []Item `json:"movies"`
	Series   []Item `json:"series"`

	ChannelGroups []Bucket `json:"channelGroups"`
	MovieGroups   []Bucket `json:"movieGroups"`
	SeriesGroups  []Bucket `json:"seriesGroups"`

	LoadedAt time.Time `json:"loadedAt"`
}

// Build partitions classified items by kind and groups each partition. The
// partition pass runs in cancellable batches; grouping happens once at the
// end so a cancelled run produces nothing.
func Build(ctx context.Context, items []Item) (*Catalog, error) {
	var channels, movies, series []Item

	err := runChunked(ctx, len(items), func(start, end int) {
		for _, item := range items[start:end] {
			switch item.Kind {
			case KindMovie:
				movies = append(movies, item)
			case KindSeries:
				series = append(series, item)
			default:
				channels = append(channels, item)
			}
		}
	})
	if err != nil {
		return nil, err
	}

	return &Catalog{
		Channels:      channels,
		Movies:        movies,
		Series:        series,
		ChannelGroups: GroupItems(channels),
		MovieGroups:   GroupItems(movies),
		SeriesGroups:  GroupItems(series),
		LoadedAt:      time.Now(),
	}, nil
}

// LogoURLs returns the distinct logo URLs across all catalog items, in
// catalog order.
func (c *Catalog) LogoURLs() []string {
	seen := make(map[string]bool)
	urls := make([]string, 0, 128)

	for _, items := range [][]Item{c.Channels, c.Movies, c.Series} {
		for _, item := range items {
			if item.LogoURL == "" || seen[item.LogoURL] {
				continue
			}

			seen[item.LogoURL] = true
			urls = append(urls, item.LogoURL)
		}
	}

	return urls
}

// Store provides thread-safe access to the current catalog. The catalog is
// replaced wholesale by the load pipeline's final commit; readers never
// observe a partially classified or partially grouped state.
type Store struct {
	mu      sync.RWMutex
	catalog *Catalog
}

// NewStore creates an empty catalog store.
func NewStore() *Store {
	return &Store{}
}

// Commit replaces the current catalog in one assignment.
func (s *Store) Commit(catalog *Catalog) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.catalog = catalog
}

// Current returns the committed catalog, or false when nothing has been
// loaded yet.
func (s *Store) Current() (*Catalog, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.catalog == nil {
		return nil, false
	}

	return s.catalog, true
}

// HasData returns true once a catalog has been committed.
func (s *Store) HasData() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.catalog != nil
}

// LastSync returns the commit time of the current catalog.
func (s *Store) LastSync() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.catalog == nil {
		return time.Time{}
	}

	return s.catalog.LoadedAt
}
