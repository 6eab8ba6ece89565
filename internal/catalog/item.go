// Package catalog classifies parsed playlist entries into typed items and
// partitions them into ordered display buckets.
package catalog

// Kind discriminates the three item types. It is assigned exactly once at
// classification time and never inferred from the item's shape downstream.
type Kind string

// Item kinds.
const (
	KindChannel Kind = "channel"
	KindMovie   Kind = "movie"
	KindSeries  Kind = "series"
)

// Item is a playlist entry promoted into a typed catalog record.
// Year and Duration are populated for movies, Seasons for series.
// Favorite is externally managed and defaults to false.
type Item struct {
	ID         string `json:"id"`
	Kind       Kind   `json:"item_type"`
	Title      string `json:"title"`
	URL        string `json:"url"`
	LogoURL    string `json:"tvg_logo,omitempty"`
	TVGID      string `json:"tvg_id,omitempty"`
	TVGName    string `json:"tvg_name,omitempty"`
	Group      string `json:"group_title,omitempty"`
	Subtype    string `json:"item_subtype,omitempty"`
	SubtypeKey string `json:"item_subtype_key,omitempty"`
	Year       int    `json:"year,omitempty"`
	Duration   string `json:"duration,omitempty"`
	Seasons    int    `json:"seasons,omitempty"`
	Favorite   bool   `json:"favorite"`
}

// Bucket is a named group of catalog items. Key is the sanitized form of
// DisplayName, safe for routing segments; DisplayName keeps the original
// text.
type Bucket struct {
	Key         string `json:"key"`
	DisplayName string `json:"name"`
	Items       []Item `json:"items"`
}
