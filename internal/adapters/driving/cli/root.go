// Package cli implements the cobra command tree for the notelm binary.
// Commands depend on driving ports only; the main package builds the
// adapters and installs them through SetServices before Execute.
package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/notelm/notelm/internal/core/ports/driving"
	"github.com/notelm/notelm/internal/logger"
)

// version is overridden at build time via -ldflags.
var version = "dev"

// Services carries everything the commands need.
type Services struct {
	Ingest    driving.IngestService
	Library   driving.LibraryService
	Retrieval driving.RetrievalService
	Chat      driving.ChatService

	// StagingDir receives copies of files handed to the ingest command.
	StagingDir string

	// Serve runs the long-lived surfaces (HTTP API, janitor, directory
	// watcher) until the context is cancelled.
	Serve func(ctx context.Context) error
}

var (
	ingestService    driving.IngestService
	libraryService   driving.LibraryService
	retrievalService driving.RetrievalService
	chatService      driving.ChatService
	stagingDir       string
	serveFunc        func(ctx context.Context) error

	verboseFlag bool
)

var rootCmd = &cobra.Command{
	Use:   "notelm",
	Short: "Ask questions about your own documents",
	Long: `notelm ingests PDF, TXT, DOCX and image files into a local library
and answers questions about them with cited sources.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verboseFlag)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "enable debug logging")
}

// SetServices installs the wired services before Execute runs.
func SetServices(s Services) {
	ingestService = s.Ingest
	libraryService = s.Library
	retrievalService = s.Retrieval
	chatService = s.Chat
	stagingDir = s.StagingDir
	serveFunc = s.Serve
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
