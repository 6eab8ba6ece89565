// Package m3u provides tokenizing and validation for M3U playlist files.
package m3u

import (
	"bufio"
	"errors"
	"iter"
	"regexp"
	"strings"
)

var (
	// ErrEmptyContent is returned when the playlist text is empty or whitespace.
	ErrEmptyContent = errors.New("empty M3U content")
	// ErrInvalidFormat is returned when the text fails the loose format sanity check.
	ErrInvalidFormat = errors.New("invalid M3U format: expected #EXTM3U header, #EXTINF entries or stream URLs")
	// ErrNoEntries is returned when a full scan yields zero completed entries.
	ErrNoEntries = errors.New("no valid entries found in M3U content")
)

var (
	extinfRe = regexp.MustCompile(`^#EXTINF:(-?\d*)\s*(.*?),(.*)$`)
	attrRe   = regexp.MustCompile(`([\w-]+)="([^"]*)"`)
)

// Entry represents a single #EXTINF / URL line pair from a playlist.
type Entry struct {
	Title    string
	Duration string
	Attrs    map[string]string
	URL      string
}

// Entries returns a lazy sequence of completed playlist entries. The sequence
// is finite and restartable; each iteration re-scans the text.
//
// An #EXTINF line opens a pending entry, overwriting any prior pending one
// (last one wins). The next non-comment, non-blank line completes it. A
// pending entry left dangling at end of input is dropped. Malformed #EXTINF
// lines and stray comments are skipped silently: real-world playlists contain
// noise and the tokenizer is lenient by design.
func Entries(content string) iter.Seq[Entry] {
	return func(yield func(Entry) bool) {
		scanner := bufio.NewScanner(strings.NewReader(content))
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

		var pending *Entry

		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())

			if line == "" {
				continue
			}

			if strings.HasPrefix(line, "#EXTINF") {
				if entry, ok := parseExtinf(line); ok {
					pending = &entry
				}

				continue
			}

			if strings.HasPrefix(line, "#") {
				continue
			}

			if pending == nil {
				continue
			}

			pending.URL = line
			entry := *pending
			pending = nil

			if !yield(entry) {
				return
			}
		}
	}
}

// Validate performs a loose sanity check on playlist text. Valid content
// starts with #EXTM3U, or at least contains #EXTINF metadata or an http URL.
func Validate(content string) error {
	trimmed := strings.TrimSpace(content)

	if trimmed == "" {
		return ErrEmptyContent
	}

	if !strings.HasPrefix(trimmed, "#EXTM3U") &&
		!strings.Contains(trimmed, "#EXTINF:") &&
		!strings.Contains(trimmed, "http") {
		return ErrInvalidFormat
	}

	return nil
}

// Parse validates playlist text and materializes all completed entries.
// A scan that completes zero entries is a reportable condition, not an empty
// success.
func Parse(content string) ([]Entry, error) {
	if err := Validate(content); err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, 256)
	for entry := range Entries(content) {
		entries = append(entries, entry)
	}

	if len(entries) == 0 {
		return nil, ErrNoEntries
	}

	return entries, nil
}

// parseExtinf extracts the duration token, key="value" attributes and the
// trailing free-text title from an #EXTINF line. The title is everything
// after the last comma outside quoted attribute values.
func parseExtinf(line string) (Entry, bool) {
	match := extinfRe.FindStringSubmatch(line)
	if match == nil {
		return Entry{}, false
	}

	attrs := make(map[string]string)

	for _, m := range attrRe.FindAllStringSubmatch(line, -1) {
		attrs[m[1]] = m[2]
	}

	title := ""
	if idx := lastTopLevelComma(line); idx >= 0 {
		title = strings.TrimSpace(line[idx+1:])
	}

	return Entry{
		Title:    title,
		Duration: match[1],
		Attrs:    attrs,
	}, true
}

// lastTopLevelComma returns the index of the last comma outside double-quoted
// attribute values, or -1 if none exists.
func lastTopLevelComma(line string) int {
	last := -1
	inQuotes := false

	for i, r := range line {
		switch r {
		case '"':
			inQuotes = !inQuotes
		case ',':
			if !inQuotes {
				last = i
			}
		}
	}

	return last
}
