package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/intermernet/scoreboard/internal/backup"
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Manage database backups",
}

var backupCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Write a consistent copy of the database to the backup directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		db, err := openDatabase(cfg)
		if err != nil {
			return err
		}
		defer db.Close()

		info, err := backup.NewManager(cfg.DbFile, cfg.BackupPath, nil).Create(db)
		if err != nil {
			return err
		}
		fmt.Printf("✓ Backup created: %s (%d bytes)\n", info.Path, info.Size)
		return nil
	},
}

var backupListCmd = &cobra.Command{
	Use:   "list",
	Short: "List backups",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		backups, err := backup.NewManager(cfg.DbFile, cfg.BackupPath, nil).List()
		if err != nil {
			return err
		}
		if len(backups) == 0 {
			fmt.Println("No backups found")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tSIZE\tMODIFIED")
		for _, b := range backups {
			fmt.Fprintf(w, "%s\t%d\t%s\n", b.Name, b.Size, b.ModTime.Format("2006-01-02 15:04:05"))
		}
		return w.Flush()
	},
}

var backupRestoreCmd = &cobra.Command{
	Use:   "restore <name>",
	Short: "Replace the database with a backup",
	Long: `Replace the database with a backup from the backup directory.

The current database is first copied next to itself as
scoreboard_before_restore_<timestamp>.db. Stop the server before restoring.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		saved, err := backup.NewManager(cfg.DbFile, cfg.BackupPath, nil).Restore(args[0])
		if err != nil {
			return err
		}
		fmt.Printf("✓ Restored %s\n", args[0])
		if saved != "" {
			fmt.Printf("  Previous database saved to %s\n", saved)
		}
		return nil
	},
}

func init() {
	backupCmd.AddCommand(backupCreateCmd)
	backupCmd.AddCommand(backupListCmd)
	backupCmd.AddCommand(backupRestoreCmd)
}
