// Package server provides the HTTP server and routing.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/gzapi/GZPlayer/internal/catalog"
	"github.com/gzapi/GZPlayer/internal/data"
	"github.com/gzapi/GZPlayer/internal/logocache"
)

const maxUploadSize = 100 * 1024 * 1024

// Routes sets up all HTTP routes.
type Routes struct {
	log    logrus.FieldLogger
	store  *catalog.Store
	loader *data.Loader
	logos  *logocache.Cache
}

// NewRoutes creates a new routes instance.
func NewRoutes(
	log logrus.FieldLogger,
	store *catalog.Store,
	loader *data.Loader,
	logos *logocache.Cache,
) *Routes {
	return &Routes{
		log:    log.WithField("component", "routes"),
		store:  store,
		loader: loader,
		logos:  logos,
	}
}

// Handler returns the main HTTP handler with all routes.
func (r *Routes) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/upload", r.handleUpload)
	mux.HandleFunc("GET /api/channels", r.handleChannels)
	mux.HandleFunc("GET /api/movies", r.handleMovies)
	mux.HandleFunc("GET /api/series", r.handleSeries)
	mux.HandleFunc("GET /api/groups/{kind}", r.handleGroups)

	mux.HandleFunc("GET /logo", r.handleLogo)
	mux.HandleFunc("GET /api/cache/stats", r.handleCacheStats)
	mux.HandleFunc("DELETE /api/cache", r.handleCacheClear)

	mux.HandleFunc("GET /health", r.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())

	return r.loggingMiddleware(mux)
}

// handleUpload ingests a playlist from the request body, either raw M3U
// content or a multipart form with a "playlist" file field.
func (r *Routes) handleUpload(w http.ResponseWriter, req *http.Request) {
	content, err := readPlaylistBody(req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)

		return
	}

	built, err := r.loader.LoadContent(req.Context(), content)
	if err != nil {
		switch {
		case errors.Is(err, data.ErrSuperseded):
			http.Error(w, "Upload superseded by a newer upload", http.StatusConflict)
		default:
			http.Error(w, err.Error(), http.StatusBadRequest)
		}

		return
	}

	go r.logos.Preload(context.Background(), built.LogoURLs())

	summary := struct {
		Channels int       `json:"channels"`
		Movies   int       `json:"movies"`
		Series   int       `json:"series"`
		LoadedAt time.Time `json:"loadedAt"`
	}{
		Channels: len(built.Channels),
		Movies:   len(built.Movies),
		Series:   len(built.Series),
		LoadedAt: built.LoadedAt,
	}

	r.writeJSON(w, summary)
}

func readPlaylistBody(req *http.Request) (string, error) {
	contentType := req.Header.Get("Content-Type")

	mediaType, _, _ := mime.ParseMediaType(contentType)
	if mediaType == "multipart/form-data" {
		file, _, err := req.FormFile("playlist")
		if err != nil {
			return "", fmt.Errorf("missing playlist file field: %w", err)
		}
		defer file.Close()

		content, err := io.ReadAll(io.LimitReader(file, maxUploadSize))
		if err != nil {
			return "", fmt.Errorf("failed to read playlist file: %w", err)
		}

		return string(content), nil
	}

	content, err := io.ReadAll(io.LimitReader(req.Body, maxUploadSize))
	if err != nil {
		return "", fmt.Errorf("failed to read request body: %w", err)
	}

	return string(content), nil
}

func (r *Routes) handleChannels(w http.ResponseWriter, _ *http.Request) {
	current, ok := r.store.Current()
	if !ok {
		http.Error(w, "No playlist loaded", http.StatusServiceUnavailable)

		return
	}

	r.writeJSON(w, current.Channels)
}

func (r *Routes) handleMovies(w http.ResponseWriter, _ *http.Request) {
	current, ok := r.store.Current()
	if !ok {
		http.Error(w, "No playlist loaded", http.StatusServiceUnavailable)

		return
	}

	r.writeJSON(w, current.Movies)
}

func (r *Routes) handleSeries(w http.ResponseWriter, _ *http.Request) {
	current, ok := r.store.Current()
	if !ok {
		http.Error(w, "No playlist loaded", http.StatusServiceUnavailable)

		return
	}

	r.writeJSON(w, current.Series)
}

func (r *Routes) handleGroups(w http.ResponseWriter, req *http.Request) {
	current, ok := r.store.Current()
	if !ok {
		http.Error(w, "No playlist loaded", http.StatusServiceUnavailable)

		return
	}

	switch req.PathValue("kind") {
	case "channels":
		r.writeJSON(w, current.ChannelGroups)
	case "movies":
		r.writeJSON(w, current.MovieGroups)
	case "series":
		r.writeJSON(w, current.SeriesGroups)
	default:
		http.Error(w, "Unknown group kind", http.StatusNotFound)
	}
}

// handleLogo serves a cached logo image, fetching it on a miss.
func (r *Routes) handleLogo(w http.ResponseWriter, req *http.Request) {
	url := req.URL.Query().Get("url")

	logo, contentType, err := r.logos.Get(req.Context(), url)
	if err != nil {
		switch {
		case errors.Is(err, logocache.ErrUnsupportedURL):
			http.Error(w, "Logo URL must be http or https", http.StatusBadRequest)
		default:
			http.Error(w, "Failed to fetch logo", http.StatusBadGateway)
		}

		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.WriteHeader(http.StatusOK)

	if _, err := w.Write(logo); err != nil {
		r.log.WithError(err).Error("Failed to write logo response")
	}
}

func (r *Routes) handleCacheStats(w http.ResponseWriter, _ *http.Request) {
	r.writeJSON(w, r.logos.Stats())
}

func (r *Routes) handleCacheClear(w http.ResponseWriter, _ *http.Request) {
	r.logos.Clear()
	w.WriteHeader(http.StatusNoContent)
}

func (r *Routes) handleHealth(w http.ResponseWriter, _ *http.Request) {
	status := struct {
		Status   string `json:"status"`
		HasData  bool   `json:"hasData"`
		LastSync string `json:"lastSync"`
	}{
		Status:   "ok",
		HasData:  r.store.HasData(),
		LastSync: r.store.LastSync().Format(time.RFC3339),
	}

	r.writeJSON(w, status)
}

func (r *Routes) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		r.log.WithError(err).Error("Failed to write JSON response")
	}
}

func (r *Routes) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		r.log.WithFields(logrus.Fields{
			"method": req.Method,
			"path":   req.URL.Path,
			"remote": req.RemoteAddr,
		}).Info("HTTP request")

		next.ServeHTTP(w, req)
	})
}
