package main

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/templui/formdesk/cmd/formctl/cmd"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "formctl",
		Short:         "Operator tools for formdesk",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(cmd.BackupCmd())
	rootCmd.AddCommand(cmd.AdminCmd())
	rootCmd.AddCommand(cmd.MigrateCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
