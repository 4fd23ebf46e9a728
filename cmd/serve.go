package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/kozaktomas/face-recognizer/internal/config"
	"github.com/kozaktomas/face-recognizer/internal/constants"
	"github.com/kozaktomas/face-recognizer/internal/extractor"
	"github.com/kozaktomas/face-recognizer/internal/gallery"
	"github.com/kozaktomas/face-recognizer/internal/web"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the recognition server",
	Long: `Start the Face Recognizer HTTP server.
POST /recognize accepts a multipart upload (field "image") or a JSON body
{"image": "<base64>"} and reports the best known person.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 0, "Port to listen on (overrides PYTHON_SERVICE_PORT)")
	serveCmd.Flags().String("host", "", "Host to bind to (overrides SERVICE_HOST)")
}

// resolveServeHostPort applies command line overrides on top of the loaded config.
func resolveServeHostPort(cmd *cobra.Command, cfg *config.Config) {
	if port := mustGetInt(cmd, "port"); port > 0 {
		cfg.Server.Port = port
	}
	if host := mustGetString(cmd, "host"); host != "" {
		cfg.Server.Host = host
	}
}

// newGalleryProvider builds the loader chain and wraps it in a cache when a TTL is configured.
func newGalleryProvider(cfg *config.Config, log logrus.FieldLogger) gallery.Provider {
	loader := gallery.NewLoaderFromConfig(cfg, log)
	if cfg.Gallery.CacheTTL <= 0 {
		return loader
	}
	log.WithField("ttl", cfg.Gallery.CacheTTL.String()).Info("gallery cache enabled")
	return gallery.NewCachedLoader(loader, cfg.Gallery.CacheTTL)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	resolveServeHostPort(cmd, cfg)

	log.WithFields(logrus.Fields{
		"database":  cfg.Database.Enabled,
		"driver":    cfg.Database.Driver,
		"file":      cfg.Gallery.FilePath,
		"tolerance": cfg.Match.Tolerance,
		"strategy":  cfg.Match.Strategy,
		"extractor": cfg.Extractor.URL,
	}).Info("configuration loaded")

	ext := extractor.NewHTTPClient(cfg.Extractor.URL, cfg.Extractor.Timeout, cfg.Extractor.MaxImageSize)
	server, err := web.NewServer(cfg, ext, newGalleryProvider(cfg, log), log)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Infof("Face Recognizer listening on http://%s", cfg.Server.Addr())
	return serveUntil(ctx, server, log)
}

type lifecycle interface {
	Start() error
	Shutdown(ctx context.Context) error
}

// serveUntil runs srv until it fails or ctx is done, then shuts it down and
// waits for in-flight requests to finish.
func serveUntil(ctx context.Context, srv lifecycle, log logrus.FieldLogger) error {
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("starting server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	log.Info("shutdown signal received")

	// ctx is already done; the drain gets its own deadline.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
	defer cancel()

	shutdownErr := srv.Shutdown(shutdownCtx)
	if err := <-errCh; err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	if shutdownErr != nil {
		log.WithError(shutdownErr).Error("error during shutdown")
		return shutdownErr
	}
	log.Info("server stopped")
	return nil
}
