// Command notelm is a local document question-answering tool. It
// ingests documents into a searchable library and answers questions
// about them with cited sources, via a CLI, an interactive chat TUI
// and an HTTP API.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/notelm/notelm/internal/adapters/driven/blob/minio"
	openaiembed "github.com/notelm/notelm/internal/adapters/driven/embedding/openai"
	openaillm "github.com/notelm/notelm/internal/adapters/driven/llm/openai"
	"github.com/notelm/notelm/internal/adapters/driven/storage/sqlite"
	"github.com/notelm/notelm/internal/adapters/driven/vector/flat"
	"github.com/notelm/notelm/internal/adapters/driving/cli"
	"github.com/notelm/notelm/internal/adapters/driving/httpapi"
	"github.com/notelm/notelm/internal/chunker"
	"github.com/notelm/notelm/internal/config"
	"github.com/notelm/notelm/internal/core/ports/driven"
	"github.com/notelm/notelm/internal/core/services"
	"github.com/notelm/notelm/internal/extract"
	"github.com/notelm/notelm/internal/logger"
	"github.com/notelm/notelm/internal/watch"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(os.Getenv("NOTELM_DATA_DIR"))
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	store, err := sqlite.NewStore(filepath.Join(cfg.DataDir, "data"))
	if err != nil {
		return fmt.Errorf("opening metadata store: %w", err)
	}
	defer store.Close()

	index, err := flat.Open(filepath.Join(cfg.DataDir, "data", "index.db"), cfg.OpenAI.Dimensions)
	if err != nil {
		return fmt.Errorf("opening vector index: %w", err)
	}
	defer index.Close()

	var blobs driven.BlobStore
	if cfg.Blob.Endpoint != "" {
		blobs, err = minio.NewBlobStore(context.Background(), minio.Config{
			Endpoint:  cfg.Blob.Endpoint,
			AccessKey: cfg.Blob.AccessKey,
			SecretKey: cfg.Blob.SecretKey,
			Bucket:    cfg.Blob.Bucket,
			UseSSL:    cfg.Blob.UseSSL,
		})
		if err != nil {
			return fmt.Errorf("connecting to blob store: %w", err)
		}
	}

	stagingDir := filepath.Join(cfg.DataDir, "staging")
	svcs := cli.Services{
		Library:    services.NewLibraryService(store.FileStore(), store, blobs),
		StagingDir: stagingDir,
	}

	// Everything touching the models needs an API key; without one the
	// library commands still work and the rest report unconfigured.
	if cfg.OpenAI.APIKey != "" {
		embedder, err := openaiembed.NewEmbeddingService(openaiembed.Config{
			APIKey:     cfg.OpenAI.APIKey,
			BaseURL:    cfg.OpenAI.BaseURL,
			Model:      cfg.OpenAI.EmbeddingModel,
			Dimensions: cfg.OpenAI.Dimensions,
		})
		if err != nil {
			return fmt.Errorf("creating embedding service: %w", err)
		}
		defer embedder.Close()

		answerer, err := openaillm.NewAnswerService(openaillm.Config{
			APIKey:  cfg.OpenAI.APIKey,
			BaseURL: cfg.OpenAI.BaseURL,
			Model:   cfg.OpenAI.ChatModel,
		})
		if err != nil {
			return fmt.Errorf("creating answer service: %w", err)
		}

		splitter := chunker.New(
			chunker.WithChunkSize(cfg.Chunking.ChunkSize),
			chunker.WithOverlap(cfg.Chunking.Overlap),
		)
		svcs.Ingest = services.NewIngestService(
			store.FileStore(), store.ChunkStore(), index, embedder, blobs,
			store.RemovalQueue(), extract.New(),
			services.WithChunker(splitter),
		)
		retrieval := services.NewRetrievalService(
			store.FileStore(), store.ChunkStore(), index, embedder,
			services.WithDefaultTopK(cfg.Retrieval.TopK),
		)
		svcs.Retrieval = retrieval
		svcs.Chat = services.NewChatService(retrieval, answerer)
	}

	svcs.Serve = func(ctx context.Context) error {
		return serve(ctx, cfg, svcs, store, index, stagingDir)
	}

	cli.SetServices(svcs)
	return cli.Execute()
}

// serve runs the HTTP API, the vector janitor and, when configured, the
// drop-folder watcher until ctx is cancelled.
func serve(ctx context.Context, cfg *config.Config, svcs cli.Services, store *sqlite.Store, index driven.VectorStore, stagingDir string) error {
	if svcs.Ingest == nil {
		return fmt.Errorf("OPENAI_API_KEY is required to serve")
	}

	janitor := services.NewJanitor(store.RemovalQueue(), index)
	janitor.Start(ctx)
	defer janitor.Stop()

	group, ctx := errgroup.WithContext(ctx)

	server := httpapi.NewServer(
		svcs.Ingest, svcs.Library, svcs.Chat, svcs.Retrieval, stagingDir,
		httpapi.WithMaxUploadMB(cfg.HTTP.MaxUploadMB),
	)
	group.Go(func() error {
		return server.Start(ctx, cfg.HTTP.Addr)
	})

	if cfg.Watch.Dir != "" {
		watcher := watch.NewWatcher(cfg.Watch.Dir, stagingDir, svcs.Ingest)
		group.Go(func() error {
			logger.Info("watching %s for new files", cfg.Watch.Dir)
			return watcher.Run(ctx)
		})
	}

	err := group.Wait()

	// Let in-flight ingestions finish before the stores close.
	svcs.Ingest.Wait()
	return err
}
