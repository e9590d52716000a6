package main

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/iyunix/go-chatsync/internal/syncclient"
)

func newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <chat-id>",
		Short: "Print a stored chat",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseUint(args[0], 10, 32)
			if err != nil {
				return err
			}

			transport := syncclient.NewHTTPTransport(rootOpts.Server, rootOpts.Token, nil)
			chat, err := transport.GetChat(cmd.Context(), uint(id))
			if err != nil {
				return err
			}

			title("%s (chat %d)", chat.Name, chat.ID)
			for _, m := range chat.Messages {
				printMessage(m)
			}
			return nil
		},
	}
}
