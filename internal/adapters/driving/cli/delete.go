package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/notelm/notelm/internal/core/domain"
)

var deleteCmd = &cobra.Command{
	Use:   "delete [file-id]",
	Short: "Remove a file from the library",
	Long: `Deletes a file's metadata and chunks immediately. Its vectors are
queued for background removal and stop appearing in answers right away.`,
	Args: cobra.ExactArgs(1),
	RunE: runDelete,
}

func init() {
	rootCmd.AddCommand(deleteCmd)
}

func runDelete(cmd *cobra.Command, args []string) error {
	if libraryService == nil {
		return errors.New("library service not configured")
	}

	chunks, err := libraryService.DeleteFile(context.Background(), args[0])
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("file not found: %s", args[0])
		}
		return fmt.Errorf("delete failed: %w", err)
	}

	cmd.Printf("Deleted %s (%d chunks).\n", args[0], chunks)
	return nil
}
