package main

import (
	"fmt"
	"time"

	"github.com/jrsteele09/reminder-bff/sessions"
	"github.com/spf13/cobra"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Maintain the session store",
}

var purgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete expired sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := loadConfig()
		if err != nil {
			return err
		}
		repo, err := sessions.NewRepoFromConfig(cmd.Context(), c)
		if err != nil {
			return fmt.Errorf("failed to open session store: %w", err)
		}
		defer repo.Close()

		n, err := repo.DeleteExpired(cmd.Context(), time.Now())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "deleted %d expired sessions\n", n)
		return nil
	},
}

func init() {
	sessionsCmd.AddCommand(purgeCmd)
	rootCmd.AddCommand(sessionsCmd)
}
