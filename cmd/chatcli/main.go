package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootOpts struct {
	Server string
	Token  string
}

var rootCmd = &cobra.Command{
	Use:   "chatcli",
	Short: "Terminal client for the chat sync server",
}

func main() {
	rootCmd.PersistentFlags().StringVarP(&rootOpts.Server, "server", "s", envOr("CHATSYNC_SERVER", "http://localhost:8080"), "Server base URL")
	rootCmd.PersistentFlags().StringVarP(&rootOpts.Token, "token", "t", os.Getenv("CHATSYNC_TOKEN"), "Session token (see the token command)")

	rootCmd.AddCommand(newChatCmd(), newListCmd(), newShowCmd(), newTokenCmd())
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
