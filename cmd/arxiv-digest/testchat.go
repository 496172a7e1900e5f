package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/arxiv-digest/internal/config"
	"github.com/pdiddy/arxiv-digest/internal/deliver"
	"github.com/pdiddy/arxiv-digest/internal/httputil"
)

var testChatCmd = &cobra.Command{
	Use:   "test-chat",
	Short: "Check the chat bridge and optionally send a file",
	Long: `Test-chat pings the chat bridge configured in chat.bridge_url. With --send it
also sends the given image to chat.recipient (or --to).`,
	RunE: runTestChat,
}

func init() {
	testChatCmd.Flags().String("send", "", "image file to send")
	testChatCmd.Flags().String("to", "", "recipient (overrides chat.recipient)")

	rootCmd.AddCommand(testChatCmd)
}

func runTestChat(cmd *cobra.Command, args []string) error {
	s := config.Decode(viper.GetViper())
	w := cmd.OutOrStdout()

	client := httputil.New(s.Chat.Timeout, s.Search.UserAgent, 0)
	session := deliver.NewBridgeSession(s.Chat.BridgeURL, client)
	if err := session.Ping(cmd.Context()); err != nil {
		return fmt.Errorf("chat bridge at %s: %w", s.Chat.BridgeURL, err)
	}
	fmt.Fprintf(w, "Chat bridge at %s is up\n", s.Chat.BridgeURL)

	file, _ := cmd.Flags().GetString("send")
	if file == "" {
		return nil
	}
	to, _ := cmd.Flags().GetString("to")
	if to == "" {
		to = s.Chat.Recipient
	}
	if to == "" {
		return fmt.Errorf("no recipient: set chat.recipient or pass --to")
	}
	if err := session.SendFile(cmd.Context(), to, file); err != nil {
		return fmt.Errorf("sending %s to %s: %w", file, to, err)
	}
	fmt.Fprintf(w, "Sent %s to %s\n", file, to)
	return nil
}
