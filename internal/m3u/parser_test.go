package m3u

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParse_ValidPlaylist(t *testing.T) {
	input := `#EXTM3U
#EXTINF:-1 tvg-id="espn.us" tvg-name="ESPN" tvg-logo="http://logo.example.com/espn.png" group-title="US Sports",ESPN
http://stream.example.com/12345

#EXTINF:-1 tvg-id="hbo.us" tvg-name="HBO" tvg-logo="http://logo.example.com/hbo.png" group-title="US Movies",HBO
http://stream.example.com/12346
`
	entries, err := Parse(input)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	require.Equal(t, "ESPN", entries[0].Title)
	require.Equal(t, "http://stream.example.com/12345", entries[0].URL)
	require.Equal(t, "espn.us", entries[0].Attrs["tvg-id"])
	require.Equal(t, "ESPN", entries[0].Attrs["tvg-name"])
	require.Equal(t, "http://logo.example.com/espn.png", entries[0].Attrs["tvg-logo"])
	require.Equal(t, "US Sports", entries[0].Attrs["group-title"])
	require.Equal(t, "-1", entries[0].Duration)

	require.Equal(t, "HBO", entries[1].Title)
	require.Equal(t, "http://stream.example.com/12346", entries[1].URL)
	require.Equal(t, "US Movies", entries[1].Attrs["group-title"])
}

func TestParse_CRLFLineEndings(t *testing.T) {
	input := "#EXTM3U\r\n#EXTINF:-1 group-title=\"News\",CNN\r\nhttp://stream.example.com/cnn\r\n"

	entries, err := Parse(input)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "CNN", entries[0].Title)
	require.Equal(t, "http://stream.example.com/cnn", entries[0].URL)
}

func TestParse_TitleAfterLastTopLevelComma(t *testing.T) {
	input := `#EXTM3U
#EXTINF:-1 group-title="Movies, Classics",Die Hard
http://stream.example.com/diehard
`
	entries, err := Parse(input)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	// The comma inside the quoted attribute value must not split the title.
	require.Equal(t, "Die Hard", entries[0].Title)
	require.Equal(t, "Movies, Classics", entries[0].Attrs["group-title"])
}

func TestParse_ConsecutiveExtinfLastWins(t *testing.T) {
	input := `#EXTM3U
#EXTINF:-1 group-title="News",Discarded
#EXTINF:-1 group-title="Sports",Kept
http://stream.example.com/kept
`
	entries, err := Parse(input)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "Kept", entries[0].Title)
	require.Equal(t, "Sports", entries[0].Attrs["group-title"])
}

func TestParse_DanglingExtinfDropped(t *testing.T) {
	input := `#EXTM3U
#EXTINF:-1 group-title="News",Complete
http://stream.example.com/complete
#EXTINF:-1 group-title="News",Dangling
`
	entries, err := Parse(input)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "Complete", entries[0].Title)
}

func TestParse_MalformedExtinfSkipped(t *testing.T) {
	// No comma means no title section; the line does not open an entry.
	input := `#EXTM3U
#EXTINF:garbage without comma
#EXTINF:-1,Valid
http://stream.example.com/valid
`
	entries, err := Parse(input)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "Valid", entries[0].Title)
}

func TestParse_CommentsAndURLsWithoutPendingSkipped(t *testing.T) {
	input := `#EXTM3U
#EXTVLCOPT:network-caching=1000
http://stream.example.com/orphan
#EXTINF:-1,Valid
http://stream.example.com/valid
`
	entries, err := Parse(input)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "http://stream.example.com/valid", entries[0].URL)
}

func TestParse_EmptyContent(t *testing.T) {
	_, err := Parse("")
	require.ErrorIs(t, err, ErrEmptyContent)

	_, err = Parse("   \n\t  ")
	require.ErrorIs(t, err, ErrEmptyContent)
}

func TestParse_InvalidFormat(t *testing.T) {
	_, err := Parse("this is not a playlist at all")
	require.ErrorIs(t, err, ErrInvalidFormat)
}

func TestParse_NoCompletedEntries(t *testing.T) {
	_, err := Parse("#EXTM3U\n#EXTINF:-1,Dangling without URL\n")
	require.ErrorIs(t, err, ErrNoEntries)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{name: "extm3u header", input: "#EXTM3U\n", wantErr: nil},
		{name: "extinf only", input: "#EXTINF:-1,Name\n", wantErr: nil},
		{name: "bare http url", input: "http://stream.example.com/1\n", wantErr: nil},
		{name: "empty", input: "", wantErr: ErrEmptyContent},
		{name: "unrecognized", input: "hello world", wantErr: ErrInvalidFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.input)
			if tt.wantErr == nil {
				require.NoError(t, err)
			} else {
				require.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestEntries_Restartable(t *testing.T) {
	input := `#EXTM3U
#EXTINF:-1,One
http://stream.example.com/1
#EXTINF:-1,Two
http://stream.example.com/2
`
	seq := Entries(input)

	var first []string
	for entry := range seq {
		first = append(first, entry.Title)
	}

	var second []string
	for entry := range seq {
		second = append(second, entry.Title)
	}

	require.Equal(t, []string{"One", "Two"}, first)
	require.Equal(t, first, second)
}

func TestEntries_EarlyBreak(t *testing.T) {
	input := `#EXTM3U
#EXTINF:-1,One
http://stream.example.com/1
#EXTINF:-1,Two
http://stream.example.com/2
`
	count := 0

	for range Entries(input) {
		count++

		break
	}

	require.Equal(t, 1, count)
}

func TestParse_HyphenatedAttributeNames(t *testing.T) {
	input := `#EXTM3U
#EXTINF:-1 tvg-id="a.b" custom-long-attr="value",Name
http://stream.example.com/1
`
	entries, err := Parse(input)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "a.b", entries[0].Attrs["tvg-id"])
	require.Equal(t, "value", entries[0].Attrs["custom-long-attr"])
}
