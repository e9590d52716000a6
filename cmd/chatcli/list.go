package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/iyunix/go-chatsync/internal/syncclient"
)

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List your chats, most recent first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			transport := syncclient.NewHTTPTransport(rootOpts.Server, rootOpts.Token, nil)
			chats, err := transport.ListChats(cmd.Context())
			if err != nil {
				return err
			}

			title("CHATS")
			for _, c := range chats {
				mutedColor.Printf("%6d  ", c.ID)
				fmt.Println(c.Label)
			}
			return nil
		},
	}
}
