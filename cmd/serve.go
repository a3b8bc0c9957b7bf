package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/darmiel/localhub/internal/api"
	"github.com/darmiel/localhub/internal/calendar"
	"github.com/darmiel/localhub/internal/config"
	"github.com/darmiel/localhub/internal/ident"
	"github.com/darmiel/localhub/internal/providers"
	"github.com/darmiel/localhub/internal/providers/google"
	"github.com/darmiel/localhub/internal/providers/strava"
	"github.com/darmiel/localhub/internal/registry"
	"github.com/darmiel/localhub/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the LocalHub server",
	Long: `Starts the HTTP API. Documents are stored below the data directory,
OAuth providers are enabled when their client credentials are set.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadServerConfig()
		if err != nil {
			return err
		}

		log.Info().Str("data_dir", cfg.DataDir).Msg("Initializing document store...")
		if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
			return fmt.Errorf("creating data directory: %w", err)
		}
		docs := store.NewFileStore(cfg.DataDir, ident.NewSanitizer(cfg.PluginIDs))
		reg := registry.New(docs)

		log.Info().Msg("Initializing providers...")
		provRegistry := providers.BuildRegistry(cfg, docs, reg)
		googleManager := provRegistry.Get(google.AppID)
		stravaManager := provRegistry.Get(strava.AppID)

		srv := api.NewServer(api.Deps{
			Docs:     docs,
			Registry: reg,
			Google:   googleManager,
			Strava:   stravaManager,
			Calendar: calendar.New(googleManager, docs, googleManager.HTTPClient(),
				calendar.WithConcurrency(cfg.Calendar.Concurrency)),
			Activities: strava.NewClient(stravaManager, stravaManager.HTTPClient(), ""),
			CORSOrigin:  cfg.CORSOrigin,
			PublicDir:   cfg.PublicDir,
		})

		server := &http.Server{
			Addr:    cfg.Addr(),
			Handler: srv.Routes(),
		}

		go func() {
			log.Info().Msgf("Starting server on %s (public URL %s)...", cfg.Addr(), cfg.BaseURL)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Fatal().Err(err).Msg("Server crashed")
			}
		}()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		<-ctx.Done()
		log.Info().Msg("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}

		log.Info().Msg("Server exited")
		return nil
	},
}

// loadServerConfig decodes the server configuration from flags, environment and config file.
func loadServerConfig() (*config.Config, error) {
	v := viper.GetViper()
	config.SetDefaults(v)
	cfg, err := config.Load(v)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 3000, "Port to listen on (env PORT)")
	bindFlag(serveCmd.Flags(), "port", "port")

	serveCmd.Flags().String("host", "", "Interface to listen on (env LOCALHUB_HOST)")
	bindFlag(serveCmd.Flags(), "host", "host")

	serveCmd.Flags().String("data", "", "Data directory (env LOCALHUB_DATA, default ./data)")
	bindFlag(serveCmd.Flags(), "data", "data_dir")

	serveCmd.Flags().String("public", "", "Serve a built frontend from this directory (env PUBLIC_DIR)")
	bindFlag(serveCmd.Flags(), "public", "public_dir")
}
