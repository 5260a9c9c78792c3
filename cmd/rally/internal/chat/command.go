package chat

import (
	"github.com/spf13/cobra"
)

func NewChatCommand() *cobra.Command {
	var debug bool

	cmd := &cobra.Command{
		Use:     "chat <room-id>",
		Aliases: []string{"c"},
		Short:   "Open a chat room",
		Args:    cobra.ExactArgs(1),
		Example: `  rally chat 7f3a
  rally chat 7f3a --debug`,
		RunE: func(_ *cobra.Command, args []string) error {
			return chatCmd(args[0], debug)
		},
	}

	cmd.Flags().BoolVarP(&debug, "debug", "d", false, "Enable debug logging")

	return cmd
}
