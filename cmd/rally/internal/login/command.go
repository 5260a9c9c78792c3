package login

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/courtline/rally/cmd/rally/internal"
	"github.com/courtline/rally/pkg/auth"
	"github.com/courtline/rally/pkg/config"
)

func NewLoginCommand() *cobra.Command {
	var token string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store a Courtline access token",
		Args:  cobra.NoArgs,
		Example: `  rally login
  rally login --token eyJhbGciOi...`,
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := internal.LoadConfig()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			var cred *auth.Credential
			if token != "" {
				cred = auth.FromToken(token)
				if cred.Expired() {
					return fmt.Errorf("token is already expired")
				}
			} else {
				cred, err = auth.LoginPasteToken(os.Stdin)
				if err != nil {
					return err
				}
			}

			if err := auth.Save(cfg.CredentialPath(), cred); err != nil {
				return err
			}
			// Persist defaults on first login so the config file exists to edit.
			if _, statErr := os.Stat(config.DefaultConfigPath()); os.IsNotExist(statErr) {
				if err := config.SaveConfig(config.DefaultConfigPath(), cfg); err != nil {
					return err
				}
			}

			if cred.Nickname != "" {
				fmt.Printf("Logged in as %s (%s)\n", cred.Nickname, cred.UserID)
			} else if cred.UserID != "" {
				fmt.Printf("Logged in as %s\n", cred.UserID)
			} else {
				fmt.Println("Token stored")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&token, "token", "", "Access token (prompts when omitted)")

	return cmd
}
