package catalog

import (
	"sort"
	"strings"

	"github.com/gzapi/GZPlayer/internal/sanitize"
)

// Fallback bucket names for items without a usable grouping signal.
const (
	FallbackGroup  = "Outros"
	FallbackSeries = "Série Desconhecida"
)

// GroupItems partitions items into display buckets. Channels and movies
// bucket by trimmed subtype; series bucket by trimmed raw title, so each
// bucket represents one series entry as written in the playlist.
//
// Buckets are ordered by descending item count, ties broken by ascending
// comparison of the original display name. Membership is computed fresh on
// every call; the result is idempotent for an unchanged input.
func GroupItems(items []Item) []Bucket {
	byName := make(map[string][]Item)
	order := make([]string, 0, 32)

	for _, item := range items {
		name := bucketName(item)

		if _, seen := byName[name]; !seen {
			order = append(order, name)
		}

		byName[name] = append(byName[name], item)
	}

	buckets := make([]Bucket, 0, len(order))

	for _, name := range order {
		buckets = append(buckets, Bucket{
			Key:         sanitize.Key(name),
			DisplayName: name,
			Items:       byName[name],
		})
	}

	sort.SliceStable(buckets, func(i, j int) bool {
		if len(buckets[i].Items) != len(buckets[j].Items) {
			return len(buckets[i].Items) > len(buckets[j].Items)
		}

		return buckets[i].DisplayName < buckets[j].DisplayName
	})

	return buckets
}

func bucketName(item Item) string {
	if item.Kind == KindSeries {
		if title := strings.TrimSpace(item.Title); title != "" {
			return title
		}

		return FallbackSeries
	}

	if subtype := strings.TrimSpace(item.Subtype); subtype != "" {
		return subtype
	}

	return FallbackGroup
}
