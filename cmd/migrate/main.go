package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kaizen-ngo/backend/internal/bootstrap"
	"github.com/kaizen-ngo/backend/internal/config"
	"github.com/kaizen-ngo/backend/internal/logging"
	"github.com/kaizen-ngo/backend/internal/migration"
	"github.com/kaizen-ngo/backend/internal/repository"
)

var (
	cfg       *config.Config
	dataDir   string
	backupDir string
	target    string
)

var rootCmd = &cobra.Command{
	Use:           "migrate",
	Short:         "Content migration tools",
	Long:          `Backup JSON content, migrate it into a document store, and relocate image assets to object storage.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(".env", "../.env")
		if err != nil {
			return err
		}
		logging.Setup(cfg.LogLevel)
		if dataDir != "" {
			cfg.DataDir = dataDir
		}
		if backupDir != "" {
			cfg.BackupDir = backupDir
		}
		return nil
	},
}

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Copy the JSON content files into a timestamped backup directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := migration.Backup(cfg.DataDir, cfg.BackupDir, time.Now())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "backup created: %s (%d files)\n", res.Dir, len(res.Files))
		return nil
	},
}

var migrateCmd = &cobra.Command{
	Use:     "migrate",
	Aliases: []string{"run"},
	Short:   "Back up and migrate JSON content into the target document store",
	RunE: func(cmd *cobra.Command, args []string) error {
		connect, err := bootstrap.ConnectTarget(cfg, target)
		if err != nil {
			return err
		}
		m := migration.NewMigrator(cfg.DataDir, cfg.BackupDir, connect)
		rep, err := m.Run(cmd.Context())
		if err != nil {
			if rep != nil && rep.BackupDir != "" {
				fmt.Fprintf(cmd.ErrOrStderr(), "migration failed in %s; backup is safe at %s\n", rep.Phase, rep.BackupDir)
			}
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "migrated %d projects and %d posts to %s (backup: %s)\n",
			rep.Projects, rep.Posts, target, rep.BackupDir)
		return nil
	},
}

var relocateCmd = &cobra.Command{
	Use:   "relocate-assets",
	Short: "Upload locally referenced images to object storage and rewrite references",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		stores, err := bootstrap.OpenStores(ctx, cfg)
		if err != nil {
			return err
		}
		defer stores.Close(context.WithoutCancel(ctx))

		assets, err := bootstrap.OpenStorage(ctx, cfg)
		if err != nil {
			return err
		}
		rep, err := migration.NewRelocator(stores.Projects, stores.Posts, assets, cfg.PublicDir).Run(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(),
			"references: %d, uploaded: %d, skipped: %d, missing: %d, failed: %d, updated projects: %d, updated posts: %d\n",
			rep.References, rep.Uploaded, rep.Skipped, rep.Missing, rep.Failed, rep.UpdatedProjects, rep.UpdatedPosts)
		return nil
	},
}

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Apply pending PostgreSQL content schema migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is not set")
		}
		ctx := cmd.Context()
		pool, err := repository.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer pool.Close()

		applied, err := repository.EnsureSchema(ctx, pool)
		if err != nil {
			return err
		}
		if applied == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "all migrations already applied")
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "migrations completed: %d\n", applied)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "directory holding the JSON content files (default DATA_DIR)")
	rootCmd.PersistentFlags().StringVar(&backupDir, "backup-dir", "", "root directory for backups (default BACKUP_DIR)")
	migrateCmd.Flags().StringVar(&target, "target", config.BackendMongo, "target backend: mongo or postgres")

	rootCmd.AddCommand(backupCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(relocateCmd)
	rootCmd.AddCommand(schemaCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
