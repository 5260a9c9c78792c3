package status

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/courtline/rally/cmd/rally/internal"
	"github.com/courtline/rally/pkg/api"
	"github.com/courtline/rally/pkg/auth"
)

func NewStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show config, login and backend reachability",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := internal.LoadConfig()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			fmt.Printf("api:      %s\n", cfg.API.BaseURL)
			fmt.Printf("realtime: %s\n", cfg.Realtime.URL)

			cred, err := internal.LoadCredential(cfg)
			switch {
			case errors.Is(err, auth.ErrNoCredential):
				fmt.Println("login:    none (run `rally login`)")
				return nil
			case err != nil:
				fmt.Printf("login:    invalid (%v)\n", err)
				return nil
			}
			fmt.Printf("login:    %s\n", cred.UserID)

			client := api.NewClient(cfg.API.BaseURL, cred.AccessToken, cfg.APITimeout())
			profile, err := client.Profile(context.Background())
			if err != nil {
				fmt.Printf("backend:  unreachable (%v)\n", err)
				return nil
			}
			fmt.Printf("backend:  ok (profile: %s)\n", profile.Nickname)
			return nil
		},
	}
}
