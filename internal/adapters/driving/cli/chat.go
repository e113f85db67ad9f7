package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/notelm/notelm/internal/adapters/driving/tui"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive chat session",
	Long: `Opens a terminal chat over the document library. Follow-up questions
see the conversation so far.

Controls:
  Enter       - Send question
  Esc, Ctrl+C - Quit`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func runChat(_ *cobra.Command, _ []string) error {
	if chatService == nil {
		return errors.New("chat service not configured")
	}
	if err := tui.Run(chatService); err != nil {
		return fmt.Errorf("chat session failed: %w", err)
	}
	return nil
}
