// Package main is the entry point for the playlist browser service.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/gzapi/GZPlayer/internal/config"
	"github.com/gzapi/GZPlayer/internal/server"
)

var (
	cfg = config.DefaultConfig()
	log = logrus.New()
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "gzplayer",
		Short: "IPTV playlist browser with a cached media catalog",
		Long: `A playlist browser service that ingests M3U playlists, classifies entries
into channels, movies and series, and serves the grouped catalog plus a
persistent logo cache over HTTP.`,
		RunE: run,
	}

	// Playlist flags
	rootCmd.Flags().StringVar(&cfg.M3UURL, "m3u", "", "M3U playlist URL (optional, uploads work without it)")
	rootCmd.Flags().DurationVar(&cfg.RefreshInterval, "refresh", cfg.RefreshInterval, "Playlist refresh interval")

	// Server flags
	rootCmd.Flags().StringVar(&cfg.BindAddr, "bind", cfg.BindAddr, "Bind address")
	rootCmd.Flags().IntVar(&cfg.Port, "port", cfg.Port, "Port number")
	rootCmd.Flags().StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")

	// Logo cache flags
	rootCmd.Flags().StringVar(&cfg.CacheDir, "cache-dir", cfg.CacheDir, "Directory for the persistent logo cache")
	rootCmd.Flags().Int64Var(&cfg.LogoCacheMaxBytes, "logo-cache-size", cfg.LogoCacheMaxBytes, "Logo cache size ceiling in bytes")
	rootCmd.Flags().IntVar(&cfg.LogoCacheMaxItems, "logo-cache-items", cfg.LogoCacheMaxItems, "Logo cache item ceiling")
	rootCmd.Flags().DurationVar(&cfg.LogoCacheTTL, "logo-ttl", cfg.LogoCacheTTL, "Logo cache entry lifetime")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(_ *cobra.Command, _ []string) error {
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}

	log.SetLevel(level)
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
	})

	if err := cfg.Validate(); err != nil {
		return err
	}

	log.WithFields(logrus.Fields{
		"m3u":  cfg.M3UURL,
		"addr": cfg.ListenAddr(),
	}).Info("Starting playlist browser")

	srv := server.NewServer(log, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := srv.Start(ctx); err != nil {
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("Received shutdown signal")

	return srv.Stop()
}
