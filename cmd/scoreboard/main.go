package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/intermernet/scoreboard/internal/config"
	"github.com/intermernet/scoreboard/internal/database"
	"github.com/intermernet/scoreboard/internal/log"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "scoreboard",
	Short: "Scoreboard - cluster points leaderboard",
	Long: `Scoreboard tracks competition events between clusters and publishes
a leaderboard of each cluster's total points. Event managers record events
and their participants; admins manage manager accounts and read the
activity log.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"Scoreboard version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(backupCmd)
}

// loadConfig reads .env when present, builds the Config and configures
// logging from it.
func loadConfig() (*config.Config, error) {
	envErr := godotenv.Load()

	cfg, err := config.New()
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	log.Init(log.Config{Level: cfg.LogLevel, JSONOutput: cfg.LogJSON})

	if envErr != nil {
		log.Logger.Debug().Msg("no .env file found, using environment variables")
	}
	return cfg, nil
}

// openDatabase opens the database file and makes sure its schema exists.
func openDatabase(cfg *config.Config) (*database.Service, error) {
	if err := os.MkdirAll(cfg.DbPath, 0o755); err != nil {
		return nil, fmt.Errorf("create database directory %s: %w", cfg.DbPath, err)
	}

	db, err := database.NewService(cfg.DbFile)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.InitSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return db, nil
}
