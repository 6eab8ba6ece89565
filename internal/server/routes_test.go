package server

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/gzapi/GZPlayer/internal/catalog"
	"github.com/gzapi/GZPlayer/internal/data"
	"github.com/gzapi/GZPlayer/internal/logocache"
)

const samplePlaylist = `#EXTM3U
#EXTINF:-1 tvg-id="one" tvg-logo="http://logo.example/1.png" group-title="News",Channel One
http://stream.example/1
#EXTINF:-1 group-title="Filmes|Ação",Die Hard (1988)
http://stream.example/2
#EXTINF:-1 group-title="Series|Drama",Breaking Bad S01E01
http://stream.example/3
`

func testHandler(t *testing.T) (http.Handler, *catalog.Store) {
	t.Helper()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	store := catalog.NewStore()
	loader := data.NewLoader(logger, store)
	logos := logocache.New(logger, logocache.Config{}, nil)

	return NewRoutes(logger, store, loader, logos).Handler(), store
}

func TestUploadRawBody(t *testing.T) {
	handler, store := testHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/api/upload", strings.NewReader(samplePlaylist))
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var summary struct {
		Channels int `json:"channels"`
		Movies   int `json:"movies"`
		Series   int `json:"series"`
	}

	require.NoError(t, json.NewDecoder(rec.Body).Decode(&summary))
	require.Equal(t, 1, summary.Channels)
	require.Equal(t, 1, summary.Movies)
	require.Equal(t, 1, summary.Series)
	require.True(t, store.HasData())
}

func TestUploadMultipart(t *testing.T) {
	handler, store := testHandler(t)

	var body bytes.Buffer

	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("playlist", "playlist.m3u")
	require.NoError(t, err)

	_, err = io.WriteString(part, samplePlaylist)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/upload", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, store.HasData())
}

func TestUploadInvalidPlaylist(t *testing.T) {
	handler, store := testHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/api/upload", strings.NewReader("not a playlist"))
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.False(t, store.HasData())
}

func TestListingsRequireData(t *testing.T) {
	handler, _ := testHandler(t)

	for _, path := range []string{"/api/channels", "/api/movies", "/api/series", "/api/groups/channels"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		require.Equal(t, http.StatusServiceUnavailable, rec.Code, "path %s", path)
	}
}

func TestListingsAfterUpload(t *testing.T) {
	handler, _ := testHandler(t)

	upload := httptest.NewRequest(http.MethodPost, "/api/upload", strings.NewReader(samplePlaylist))
	handler.ServeHTTP(httptest.NewRecorder(), upload)

	req := httptest.NewRequest(http.MethodGet, "/api/channels", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var channels []catalog.Item

	require.NoError(t, json.NewDecoder(rec.Body).Decode(&channels))
	require.Len(t, channels, 1)
	require.Equal(t, "Channel One", channels[0].Title)
	require.Equal(t, "http://logo.example/1.png", channels[0].LogoURL)

	req = httptest.NewRequest(http.MethodGet, "/api/groups/movies", nil)
	rec = httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var buckets []catalog.Bucket

	require.NoError(t, json.NewDecoder(rec.Body).Decode(&buckets))
	require.Len(t, buckets, 1)
	require.Equal(t, "Ação", buckets[0].DisplayName)
}

func TestGroupsUnknownKind(t *testing.T) {
	handler, _ := testHandler(t)

	upload := httptest.NewRequest(http.MethodPost, "/api/upload", strings.NewReader(samplePlaylist))
	handler.ServeHTTP(httptest.NewRecorder(), upload)

	req := httptest.NewRequest(http.MethodGet, "/api/groups/podcasts", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLogoEndpoint(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte("png-bytes"))
	}))
	defer upstream.Close()

	handler, _ := testHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/logo?url="+upstream.URL+"/logo.png", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	require.Equal(t, "png-bytes", rec.Body.String())
}

func TestLogoEndpointRejectsBadURL(t *testing.T) {
	handler, _ := testHandler(t)

	for _, target := range []string{"/logo", "/logo?url=ftp://host/x.png"} {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		require.Equal(t, http.StatusBadRequest, rec.Code, "target %s", target)
	}
}

func TestLogoEndpointUpstreamFailure(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	}))
	defer upstream.Close()

	handler, _ := testHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/logo?url="+upstream.URL+"/logo.png", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestCacheStatsAndClear(t *testing.T) {
	handler, _ := testHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/cache/stats", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var stats logocache.Stats

	require.NoError(t, json.NewDecoder(rec.Body).Decode(&stats))
	require.Equal(t, 0, stats.Items)

	req = httptest.NewRequest(http.MethodDelete, "/api/cache", nil)
	rec = httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
}

func TestHealth(t *testing.T) {
	handler, _ := testHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var status struct {
		Status  string `json:"status"`
		HasData bool   `json:"hasData"`
	}

	require.NoError(t, json.NewDecoder(rec.Body).Decode(&status))
	require.Equal(t, "ok", status.Status)
	require.False(t, status.HasData)
}

func TestMetrics(t *testing.T) {
	handler, _ := testHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "gzplayer_")
}
