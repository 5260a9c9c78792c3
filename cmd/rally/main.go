package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/courtline/rally/cmd/rally/internal"
	"github.com/courtline/rally/cmd/rally/internal/chat"
	"github.com/courtline/rally/cmd/rally/internal/login"
	"github.com/courtline/rally/cmd/rally/internal/rooms"
	"github.com/courtline/rally/cmd/rally/internal/status"
	"github.com/courtline/rally/cmd/rally/internal/version"
)

func NewRallyCommand() *cobra.Command {
	short := fmt.Sprintf("%s rally - Courtline match chat v%s\n\n", internal.Logo, internal.GetVersion())

	cmd := &cobra.Command{
		Use:     "rally",
		Short:   short,
		Example: "rally rooms",
	}

	cmd.AddCommand(
		login.NewLoginCommand(),
		rooms.NewRoomsCommand(),
		chat.NewChatCommand(),
		status.NewStatusCommand(),
		version.NewVersionCommand(),
	)

	return cmd
}

func main() {
	cmd := NewRallyCommand()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
