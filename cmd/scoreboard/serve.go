package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/spf13/cobra"

	"github.com/intermernet/scoreboard/internal/accounts"
	"github.com/intermernet/scoreboard/internal/api"
	"github.com/intermernet/scoreboard/internal/audit"
	"github.com/intermernet/scoreboard/internal/database"
	"github.com/intermernet/scoreboard/internal/log"
	"github.com/intermernet/scoreboard/internal/scoring"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	Long: `Run the HTTP server.

On start the schema is created if missing and an empty database is seeded
with the configured clusters, the default admin account and, unless
SEED_SAMPLE_EVENT=false, a sample event.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if err := cfg.RequireServerSecrets(); err != nil {
			return err
		}
		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			cfg.ServerAddr = addr
		}
		logger := log.WithComponent("server")

		db, err := openDatabase(cfg)
		if err != nil {
			return err
		}
		defer db.Close()

		seeds, err := database.LoadClusterSeeds(cfg.ClustersFile)
		if err != nil {
			return err
		}
		if _, err := db.Seed(database.SeedOptions{
			Clusters:      seeds,
			AdminUsername: cfg.AdminUsername,
			AdminPassword: cfg.AdminPassword,
			SampleEvent:   cfg.SeedSampleEvent,
		}); err != nil {
			return fmt.Errorf("seed database: %w", err)
		}

		auditWriter := audit.NewWriter(db, nil)
		serverAPI := api.NewServer(cfg, db,
			scoring.NewService(db, auditWriter, nil),
			accounts.NewService(db, auditWriter, nil),
			auditWriter,
		)

		router := chi.NewRouter()
		serverAPI.RegisterRoutes(router)

		srv := &http.Server{
			Addr:              cfg.ServerAddr,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			logger.Info().Str("addr", cfg.ServerAddr).Str("version", Version).Msg("scoreboard server starting")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

		select {
		case <-sigCh:
			logger.Info().Msg("shutting down")
		case err := <-errCh:
			return fmt.Errorf("http server: %w", err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		logger.Info().Msg("shutdown complete")
		return nil
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "Listen address (overrides SERVER_ADDR)")
}
