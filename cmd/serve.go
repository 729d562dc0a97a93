package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"imagepick/internal/catalog"
	"imagepick/internal/logging"
	"imagepick/internal/mediastore"
	"imagepick/internal/memory"
	"imagepick/internal/picker"
	"imagepick/internal/server"
	"imagepick/internal/thumbs"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the demo host",
	Long: `Start the JSON demo host over the media index: paged image and
folder listings, thumbnails, picker sessions and Prometheus metrics.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 8080, "Port to listen on")
	serveCmd.Flags().Int("max-selection", 0, "Selection cap for picker sessions (0 = unlimited)")
	serveCmd.Flags().Int64("cache-bytes", 0, "Thumbnail cache budget in bytes (0 = derived from memory limit)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	port, _ := cmd.Flags().GetInt("port")
	maxSelection, _ := cmd.Flags().GetInt("max-selection")
	cacheBytes, _ := cmd.Flags().GetInt64("cache-bytes")

	memory.ConfigureFromEnv()

	store, err := mediastore.Open(cmd.Context(), dbPath)
	if err != nil {
		return fmt.Errorf("opening media index: %w", err)
	}
	defer store.Close()

	thumbs.InitSoftwareDecoder()
	defer thumbs.ShutdownSoftwareDecoder()

	cfg := picker.DefaultConfig()
	cfg.MaxSelection = maxSelection

	images := catalog.NewImages(store, cfg.MimeTypes)
	folders := catalog.NewFolders(images)
	cache := thumbs.NewCache(cacheBytes)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      server.New(images, folders, cache, cfg).Router(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go handleShutdown(srv)

	logging.Info("demo host listening on %s", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

func handleShutdown(srv *http.Server) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	logging.Info("received %s, shutting down", sig)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logging.Error("shutdown error: %v", err)
	}
}
