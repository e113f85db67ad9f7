package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/notelm/notelm/internal/core/domain"
	"github.com/notelm/notelm/internal/core/ports/driven"
	"github.com/notelm/notelm/internal/core/ports/driving"
)

var (
	askTopK    int
	askFileIDs []string
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a question about your documents",
	Long: `Retrieves the most relevant passages from the library and streams an
answer with numbered citations. Use --file to restrict retrieval to
specific files.`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().IntVarP(&askTopK, "top-k", "k", 0, "number of passages to retrieve (0 = default)")
	askCmd.Flags().StringSliceVar(&askFileIDs, "file", nil, "restrict retrieval to these file IDs")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	if chatService == nil {
		return errors.New("chat service not configured")
	}

	opts := driving.RetrieveOptions{TopK: askTopK, FileIDs: askFileIDs}
	events, sources, err := chatService.Ask(context.Background(), args[0], nil, opts)
	if err != nil {
		return fmt.Errorf("ask failed: %w", err)
	}

	for event := range events {
		switch event.Type {
		case driven.StreamToken:
			cmd.Print(event.Content)
		case driven.StreamError:
			cmd.Println()
			return fmt.Errorf("answer failed: %s", event.Content)
		}
	}
	cmd.Println()

	if len(sources) > 0 {
		cmd.Println()
		cmd.Println("Sources:")
		for _, src := range sources {
			line := fmt.Sprintf("  [%d] %s", src.Citation, src.Filename)
			if label := domain.PageLabel(src.PageStart, src.PageEnd); label != "" {
				line += " - " + label
			}
			cmd.Println(line)
		}
	}
	return nil
}
