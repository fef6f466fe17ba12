package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/templui/formdesk/internal/backup"
	"github.com/templui/formdesk/internal/db"
)

func BackupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Create, list and restore SQLite backups",
	}

	cmd.AddCommand(backupCreateCmd())
	cmd.AddCommand(backupListCmd())
	cmd.AddCommand(backupRestoreCmd())
	return cmd
}

func newManager() (*backup.Manager, func(), error) {
	cfg, database, err := setup()
	if err != nil {
		return nil, nil, err
	}
	if cfg.DBDriver != "sqlite" {
		_ = database.Close()
		return nil, nil, fmt.Errorf("backups require DB_DRIVER=sqlite, got %q", cfg.DBDriver)
	}

	m := backup.NewManager(database, db.SQLitePath(cfg.DBConnection), cfg.BackupDir, cfg.MaxBackups)
	return m, func() { _ = database.Close() }, nil
}

func backupCreateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create",
		Short: "Snapshot the database and prune old backups",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, done, err := newManager()
			if err != nil {
				return err
			}
			defer done()

			info, err := m.Create(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Backup created: %s (%s)\n", info.Name, formatMB(info.Size))
			return nil
		},
	}
}

func backupListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List backups, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, done, err := newManager()
			if err != nil {
				return err
			}
			defer done()

			backups, err := m.List()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(backups) == 0 {
				fmt.Fprintln(out, "No backups found")
				return nil
			}
			for i, b := range backups {
				fmt.Fprintf(out, "%d. %s  %s  %s\n", i+1, b.Name, formatMB(b.Size), b.ModTime.UTC().Format("2006-01-02 15:04:05Z"))
			}
			return nil
		},
	}
}

func backupRestoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "restore <name>",
		Short: "Replace the database with a backup (stop the server first)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, done, err := newManager()
			if err != nil {
				return err
			}
			defer done()

			pre, err := m.Restore(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Current database saved as %s\nRestored from %s\n", pre.Name, args[0])
			return nil
		},
	}
}

func formatMB(n int64) string {
	return fmt.Sprintf("%.2f MB", float64(n)/(1<<20))
}
