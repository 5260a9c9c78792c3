package rooms

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/courtline/rally/cmd/rally/internal"
	"github.com/courtline/rally/pkg/api"
)

func NewRoomsCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "rooms",
		Aliases: []string{"ls"},
		Short:   "List your chat rooms",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := internal.LoadConfig()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			cred, err := internal.LoadCredential(cfg)
			if err != nil {
				return err
			}

			client := api.NewClient(cfg.API.BaseURL, cred.AccessToken, cfg.APITimeout())
			rooms, err := client.Rooms(context.Background())
			if err != nil {
				return err
			}
			if len(rooms) == 0 {
				fmt.Println("No rooms yet. Join a match to start chatting.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTITLE\tUNREAD\tHOST")
			for _, r := range rooms {
				host := ""
				if r.HostID == cred.UserID {
					host = "you"
				}
				fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", r.ID, r.Title, r.UnreadCount, host)
			}
			return w.Flush()
		},
	}
}
