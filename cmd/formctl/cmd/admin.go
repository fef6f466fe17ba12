package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/templui/formdesk/internal/db"
	"github.com/templui/formdesk/internal/repository"
	"github.com/templui/formdesk/internal/service"
)

func AdminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Manage the stored admin credential",
	}

	cmd.AddCommand(adminSetPasswordCmd())
	return cmd
}

func adminSetPasswordCmd() *cobra.Command {
	var username string

	cmd := &cobra.Command{
		Use:   "set-password",
		Short: "Set the admin password (read from stdin)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := readPassword(cmd.InOrStdin())
			if err != nil {
				return err
			}

			cfg, database, err := setup()
			if err != nil {
				return err
			}
			defer func() { _ = database.Close() }()

			err = db.RunMigrations(database.DB, cfg.DBDriver)
			if err != nil {
				return err
			}

			if username == "" {
				username = cfg.AdminUsername
			}

			cred, err := service.NewHashedStoreCredential(repository.NewAdminRepository(database), username)
			if err != nil {
				return err
			}
			err = cred.SetPassword(cmd.Context(), username, password)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Password updated for %s\n", username)
			return nil
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "admin username (default ADMIN_USERNAME)")
	return cmd
}

// readPassword reads the first line of r.
func readPassword(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	password := strings.TrimRight(line, "\r\n")
	if password == "" {
		return "", errors.New("password is empty, pipe it on stdin")
	}
	return password, nil
}
