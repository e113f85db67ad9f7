package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/notelm/notelm/internal/core/ports/driving"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [file]...",
	Short: "Add files to the library",
	Long: `Ingests one or more files: extracts their text, chunks it, embeds
the chunks and adds them to the vector index. Files are processed
concurrently and one file's failure never affects the others.

Supported formats: pdf, txt, md, docx, doc, png, jpg, jpeg, tiff.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	if ingestService == nil {
		return errors.New("ingest service not configured")
	}

	// The pipeline removes its input when it finishes, so each file is
	// staged as a copy and the caller's original is left alone.
	reqs := make([]driving.IngestRequest, 0, len(args))
	for _, path := range args {
		req, err := stageCopy(path)
		if err != nil {
			return err
		}
		reqs = append(reqs, req)
	}

	cmd.Printf("Ingesting %d file(s)...\n", len(reqs))
	results := ingestService.IngestBatch(context.Background(), reqs)

	failed := 0
	for i, res := range results {
		switch {
		case res.Err != nil && res.File != nil:
			failed++
			cmd.Printf("  %s: FAILED (%s)\n", res.File.Filename, res.File.Error)
		case res.Err != nil:
			failed++
			cmd.Printf("  %s: FAILED (%v)\n", reqs[i].Filename, res.Err)
		default:
			cmd.Printf("  %s: indexed (%d chunks, %d pages) id=%s\n",
				res.File.Filename, res.File.ChunkCount, res.File.TotalPages, res.File.ID)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d file(s) failed", failed, len(results))
	}
	return nil
}

// stageCopy copies path into the staging directory and describes the
// copy as an ingest request.
func stageCopy(path string) (driving.IngestRequest, error) {
	src, err := os.Open(path)
	if err != nil {
		return driving.IngestRequest{}, fmt.Errorf("cannot open %s: %w", path, err)
	}
	defer src.Close()

	info, err := src.Stat()
	if err != nil {
		return driving.IngestRequest{}, fmt.Errorf("cannot stat %s: %w", path, err)
	}

	if err := os.MkdirAll(stagingDir, 0o755); err != nil {
		return driving.IngestRequest{}, fmt.Errorf("cannot create staging dir: %w", err)
	}

	staged := filepath.Join(stagingDir, uuid.NewString()+filepath.Ext(path))
	dst, err := os.Create(staged)
	if err != nil {
		return driving.IngestRequest{}, fmt.Errorf("cannot stage %s: %w", path, err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		os.Remove(staged)
		return driving.IngestRequest{}, fmt.Errorf("cannot stage %s: %w", path, err)
	}

	return driving.IngestRequest{
		LocalPath: staged,
		Filename:  filepath.Base(path),
		Size:      info.Size(),
	}, nil
}
