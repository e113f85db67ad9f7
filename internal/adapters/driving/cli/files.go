package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/notelm/notelm/internal/core/domain"
)

var filesCmd = &cobra.Command{
	Use:   "files",
	Short: "List files in the library",
	Long: `Lists every file in the library with its ingestion status,
newest first.`,
	Args: cobra.NoArgs,
	RunE: runFiles,
}

var statusCmd = &cobra.Command{
	Use:   "status [file-id]",
	Short: "Show the ingestion status of one file",
	Args:  cobra.ExactArgs(1),
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(filesCmd)
	rootCmd.AddCommand(statusCmd)
}

func runFiles(cmd *cobra.Command, _ []string) error {
	if libraryService == nil {
		return errors.New("library service not configured")
	}

	files, err := libraryService.ListFiles(context.Background())
	if err != nil {
		return fmt.Errorf("failed to list files: %w", err)
	}

	if len(files) == 0 {
		cmd.Println("No files in the library. Add some with `notelm ingest`.")
		return nil
	}

	cmd.Printf("%-36s  %-10s  %6s  %6s  %s\n", "ID", "STATUS", "PAGES", "CHUNKS", "FILENAME")
	for i := range files {
		f := &files[i]
		cmd.Printf("%-36s  %-10s  %6d  %6d  %s\n",
			f.ID, f.Status, f.TotalPages, f.ChunkCount, f.Filename)
	}
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	if libraryService == nil {
		return errors.New("library service not configured")
	}

	file, err := libraryService.GetFile(context.Background(), args[0])
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("file not found: %s", args[0])
		}
		return fmt.Errorf("failed to get file: %w", err)
	}

	cmd.Printf("ID:       %s\n", file.ID)
	cmd.Printf("Filename: %s\n", file.Filename)
	cmd.Printf("Type:     %s\n", file.Type)
	cmd.Printf("Size:     %d bytes\n", file.Size)
	cmd.Printf("Status:   %s\n", file.Status)
	if file.TotalPages > 0 {
		cmd.Printf("Pages:    %d\n", file.TotalPages)
	}
	if file.ChunkCount > 0 {
		cmd.Printf("Chunks:   %d\n", file.ChunkCount)
	}
	if file.Error != "" {
		cmd.Printf("Error:    %s\n", file.Error)
	}
	cmd.Printf("Uploaded: %s\n", file.CreatedAt.Format("2006-01-02 15:04:05"))
	return nil
}
