package catalog

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/gzapi/GZPlayer/internal/m3u"
	"github.com/gzapi/GZPlayer/internal/sanitize"
)

var (
	yearRe   = regexp.MustCompile(`\((\d{4})\)|\[(\d{4})\]|(\d{4})`)
	seasonRe = regexp.MustCompile(`(?i)temporada\s*(\d+)|season\s*(\d+)|s(\d+)`)
)

// Classify promotes a parsed entry into a typed catalog item. It is pure and
// total: every entry receives exactly one kind, defaulting to channel when no
// signal is present.
//
// The primary signal is a structured "prefix|subtype" group-title: the first
// segment, lower-cased and trimmed, selects the kind ("series" or
// "movie"/"filmes"). When the prefix matches nothing, a substring check over
// the whole group-title is used as a secondary signal. The structured form
// always takes precedence; evaluation is a single deterministic pass.
func Classify(entry m3u.Entry) Item {
	group := entry.Attrs["group-title"]

	kind := KindChannel
	subtype := ""

	segments := strings.Split(group, "|")
	prefix := strings.ToLower(strings.TrimSpace(segments[0]))

	if len(segments) > 1 {
		subtype = strings.TrimSpace(segments[1])
	}

	switch {
	case prefix == "series":
		kind = KindSeries
	case prefix == "movie" || prefix == "filmes":
		kind = KindMovie
	default:
		lower := strings.ToLower(group)

		switch {
		case strings.Contains(lower, "series"):
			kind = KindSeries
		case strings.Contains(lower, "filmes"), strings.Contains(lower, "movies"):
			kind = KindMovie
		}
	}

	item := Item{
		ID:         uuid.NewString(),
		Kind:       kind,
		Title:      entry.Title,
		URL:        entry.URL,
		LogoURL:    entry.Attrs["tvg-logo"],
		TVGID:      entry.Attrs["tvg-id"],
		TVGName:    entry.Attrs["tvg-name"],
		Group:      group,
		Subtype:    subtype,
		SubtypeKey: sanitize.Key(subtype),
	}

	switch kind {
	case KindMovie:
		item.Year = extractYear(entry.Title)
		item.Duration = movieDuration(entry.Duration)
	case KindSeries:
		item.Seasons = extractSeasons(entry.Title)
	}

	return item
}

// extractYear pulls a plausible release year out of a title, accepting
// "(1999)", "[1999]" or a bare 4-digit run. Years outside 1900..now+5 are
// discarded.
func extractYear(title string) int {
	match := yearRe.FindStringSubmatch(title)
	if match == nil {
		return 0
	}

	raw := match[1]
	if raw == "" {
		raw = match[2]
	}

	if raw == "" {
		raw = match[3]
	}

	year, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}

	if year < 1900 || year > time.Now().Year()+5 {
		return 0
	}

	return year
}

// extractSeasons pulls a season number out of a title, accepting
// "Temporada 2", "Season 2" or "S02" forms.
func extractSeasons(title string) int {
	match := seasonRe.FindStringSubmatch(title)
	if match == nil {
		return 0
	}

	raw := match[1]
	if raw == "" {
		raw = match[2]
	}

	if raw == "" {
		raw = match[3]
	}

	seasons, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}

	return seasons
}

// movieDuration keeps the #EXTINF duration token only when it carries a real
// length; "-1" and "0" mean unknown in practice.
func movieDuration(token string) string {
	seconds, err := strconv.Atoi(token)
	if err != nil || seconds <= 0 {
		return ""
	}

	return token
}
