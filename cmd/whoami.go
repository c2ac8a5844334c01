package cmd

import (
	"encoding/json"
	"strings"

	"github.com/spf13/cobra"
)

func newWhoamiCmd() *cobra.Command {
	var jsonMode bool

	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the authenticated Zoom user",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger := newLogger(cfg)

			client, err := newAPIClient(cfg, logger)
			if err != nil {
				return err
			}

			user, err := client.GetCurrentUser(cmd.Context())
			if err != nil {
				return err
			}

			if jsonMode {
				out, err := json.MarshalIndent(map[string]any{
					"status": "success",
					"user":   user,
				}, "", "  ")
				if err != nil {
					return err
				}
				cmd.Println(string(out))
				return nil
			}

			name := strings.TrimSpace(user.FirstName + " " + user.LastName)
			if name == "" {
				name = "N/A"
			}
			cmd.Printf("Credential: %s\n", client.Auth().Type())
			cmd.Printf("Name:       %s\n", name)
			cmd.Printf("Email:      %s\n", user.Email)
			cmd.Printf("User ID:    %s\n", user.ID)
			cmd.Printf("Account ID: %s\n", user.AccountID)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonMode, "json", false, "Machine-readable JSON output")

	return cmd
}
