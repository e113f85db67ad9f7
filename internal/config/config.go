// Package config loads the application configuration: a TOML file under
// the app directory with environment variable overrides for secrets and
// deploy-time settings. A missing config file yields pure defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

// Default values mirror the tuning the pipeline was built around.
const (
	DefaultChunkSize   = 300
	DefaultOverlap     = 50
	DefaultTopK        = 5
	DefaultDimensions  = 1536
	DefaultHTTPAddr    = ":8000"
	DefaultMaxUploadMB = 50
)

// Config is the full application configuration.
type Config struct {
	// DataDir holds the metadata database, the vector index and staged
	// uploads. Empty means ~/.notelm.
	DataDir string `toml:"data_dir"`

	Chunking  ChunkingConfig  `toml:"chunking"`
	Retrieval RetrievalConfig `toml:"retrieval"`
	OpenAI    OpenAIConfig    `toml:"openai"`
	Blob      BlobConfig      `toml:"blob"`
	HTTP      HTTPConfig      `toml:"http"`
	Watch     WatchConfig     `toml:"watch"`
}

// ChunkingConfig tunes the text splitter.
type ChunkingConfig struct {
	// ChunkSize and Overlap are in tokens.
	ChunkSize int `toml:"chunk_size"`
	Overlap   int `toml:"overlap"`
}

// RetrievalConfig tunes search defaults.
type RetrievalConfig struct {
	TopK int `toml:"top_k"`
}

// OpenAIConfig covers both the embedding and answer models.
type OpenAIConfig struct {
	// APIKey is normally supplied via OPENAI_API_KEY, not the file.
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	EmbeddingModel string `toml:"embedding_model"`
	ChatModel      string `toml:"chat_model"`
	Dimensions     int    `toml:"dimensions"`
}

// BlobConfig points at the object store for original uploads. An empty
// endpoint disables retention of originals.
type BlobConfig struct {
	Endpoint  string `toml:"endpoint"`
	AccessKey string `toml:"access_key"`
	SecretKey string `toml:"secret_key"`
	Bucket    string `toml:"bucket"`
	UseSSL    bool   `toml:"use_ssl"`
}

// HTTPConfig covers the API server.
type HTTPConfig struct {
	Addr        string `toml:"addr"`
	MaxUploadMB int64  `toml:"max_upload_mb"`
}

// WatchConfig enables the drop-folder watcher.
type WatchConfig struct {
	// Dir, when set, is watched for new files to ingest.
	Dir string `toml:"dir"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Chunking:  ChunkingConfig{ChunkSize: DefaultChunkSize, Overlap: DefaultOverlap},
		Retrieval: RetrievalConfig{TopK: DefaultTopK},
		OpenAI:    OpenAIConfig{Dimensions: DefaultDimensions},
		HTTP:      HTTPConfig{Addr: DefaultHTTPAddr, MaxUploadMB: DefaultMaxUploadMB},
	}
}

// Load reads the config file at dir/config.toml (dir empty means
// ~/.notelm), overlays environment variables and fills defaults.
// A .env file in the working directory is loaded first if present.
func Load(dir string) (*Config, error) {
	_ = godotenv.Load()

	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dir = filepath.Join(home, ".notelm")
	}

	cfg := Default()
	cfg.DataDir = dir

	path := filepath.Join(dir, "config.toml")
	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// Defaults only.
	case err != nil:
		return nil, fmt.Errorf("reading config: %w", err)
	default:
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
		if cfg.DataDir == "" {
			cfg.DataDir = dir
		}
	}

	cfg.applyEnv()
	cfg.fillDefaults()
	return cfg, nil
}

// applyEnv overlays environment variables onto file values. Secrets are
// expected here rather than in the file.
func (c *Config) applyEnv() {
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		c.OpenAI.APIKey = v
	}
	if v := os.Getenv("OPENAI_BASE_URL"); v != "" {
		c.OpenAI.BaseURL = v
	}
	if v := os.Getenv("NOTELM_EMBEDDING_MODEL"); v != "" {
		c.OpenAI.EmbeddingModel = v
	}
	if v := os.Getenv("NOTELM_CHAT_MODEL"); v != "" {
		c.OpenAI.ChatModel = v
	}
	if v := os.Getenv("NOTELM_HTTP_ADDR"); v != "" {
		c.HTTP.Addr = v
	}
	if v := os.Getenv("NOTELM_WATCH_DIR"); v != "" {
		c.Watch.Dir = v
	}
	if v := os.Getenv("MINIO_ENDPOINT"); v != "" {
		c.Blob.Endpoint = v
	}
	if v := os.Getenv("MINIO_ACCESS_KEY"); v != "" {
		c.Blob.AccessKey = v
	}
	if v := os.Getenv("MINIO_SECRET_KEY"); v != "" {
		c.Blob.SecretKey = v
	}
	if v := os.Getenv("NOTELM_TOP_K"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Retrieval.TopK = n
		}
	}
}

// fillDefaults replaces zero values left by a sparse config file.
func (c *Config) fillDefaults() {
	if c.Chunking.ChunkSize <= 0 {
		c.Chunking.ChunkSize = DefaultChunkSize
	}
	if c.Chunking.Overlap < 0 {
		c.Chunking.Overlap = DefaultOverlap
	}
	if c.Retrieval.TopK <= 0 {
		c.Retrieval.TopK = DefaultTopK
	}
	if c.OpenAI.Dimensions <= 0 {
		c.OpenAI.Dimensions = DefaultDimensions
	}
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = DefaultHTTPAddr
	}
	if c.HTTP.MaxUploadMB <= 0 {
		c.HTTP.MaxUploadMB = DefaultMaxUploadMB
	}
}

// Save writes the config file, creating the directory if needed.
// Secrets that arrived via the environment are not written back.
func (c *Config) Save() error {
	if c.DataDir == "" {
		return fmt.Errorf("config has no data directory")
	}
	if err := os.MkdirAll(c.DataDir, 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	out := *c
	out.OpenAI.APIKey = ""
	out.Blob.SecretKey = ""

	data, err := toml.Marshal(out)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	path := filepath.Join(c.DataDir, "config.toml")
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}
