package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"cpcaisse/internal/platform/config"
	"cpcaisse/internal/platform/database"
	"cpcaisse/internal/platform/logger"
	"cpcaisse/migrations"
)

var (
	cfgFile string
	rootCmd = &cobra.Command{
		Use:           "cpcaisse",
		Short:         "Cash discrepancy declarations for the permanent control desk",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "YAML config file (default: $CONFIG_FILE)")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	if cfgFile != "" {
		return config.Load(cfgFile)
	}
	return config.FromEnv()
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the side-effect workers",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			log := logger.New(cfg.Log.Level)
			slog.SetDefault(log)
			return serve(cmd.Context(), cfg, log)
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			log := logger.New(cfg.Log.Level)
			if cfg.Database.URL == "" {
				return fmt.Errorf("DATABASE_URL is required to migrate")
			}

			pool, err := database.New(cfg.Database)
			if err != nil {
				return err
			}
			defer pool.Close()

			applied, err := migrations.Apply(cmd.Context(), pool.DB())
			if err != nil {
				return err
			}
			log.InfoContext(cmd.Context(), "migrations applied", "count", len(applied), "files", applied)
			return nil
		},
	}
}
