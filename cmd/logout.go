package cmd

import (
	"github.com/spf13/cobra"

	"github.com/teemow/zoomfetch/internal/tokenstore"
)

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Delete the stored user credential",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := tokenstore.DefaultPath()
			if err != nil {
				return err
			}
			if !tokenstore.Exists(path) {
				cmd.Println("Not logged in.")
				return nil
			}
			if err := tokenstore.Clear(path); err != nil {
				return err
			}
			cmd.Println("Logged out. Stored tokens deleted.")
			return nil
		},
	}
}
