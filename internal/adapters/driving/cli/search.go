package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/notelm/notelm/internal/core/ports/driving"
)

var (
	searchTopK    int
	searchFileIDs []string
	searchJSON    bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Find relevant passages without asking the model",
	Long: `Embeds the query and prints the most relevant passages from the
library, ranked by similarity. No answer is generated.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchTopK, "top-k", "k", 0, "number of passages to retrieve (0 = default)")
	searchCmd.Flags().StringSliceVar(&searchFileIDs, "file", nil, "restrict retrieval to these file IDs")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	if retrievalService == nil {
		return errors.New("retrieval service not configured")
	}

	opts := driving.RetrieveOptions{TopK: searchTopK, FileIDs: searchFileIDs}
	contexts, _, err := retrievalService.Retrieve(context.Background(), args[0], opts)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		data, err := json.MarshalIndent(contexts, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal results: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	if len(contexts) == 0 {
		cmd.Println("No results found.")
		return nil
	}

	for i := range contexts {
		rc := &contexts[i]
		cmd.Printf("%s (score %.3f)\n", rc.CitationLine(), rc.Score)
		cmd.Printf("    %s\n\n", snippet(rc.Content, 200))
	}
	return nil
}

// snippet truncates s to at most n runes for display.
func snippet(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
