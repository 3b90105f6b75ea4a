package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"docqa/internal/chunker"
)

// OpenAIConfig holds the endpoint of an OpenAI-compatible API.
type OpenAIConfig struct {
	BaseURL     string `yaml:"base_url" validate:"omitempty,url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Model       string `yaml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs" validate:"gte=0"`
	MaxRetries  int    `yaml:"max_retries" validate:"gte=0,lte=10"`
}

// EmbedderConfig selects and configures the text embedder implementation.
type EmbedderConfig struct {
	Type       string        `yaml:"type" validate:"oneof=openai tfidf hashing"`
	Dimensions int           `yaml:"dimensions,omitempty" validate:"gte=0"`
	OpenAI     *OpenAIConfig `yaml:"openai,omitempty"`
}

// CompleterConfig configures the answer-generating model.
type CompleterConfig struct {
	OpenAIConfig `yaml:",inline"`
	Temperature  float32 `yaml:"temperature" validate:"gte=0,lte=2"`
	MaxTokens    int     `yaml:"max_tokens" validate:"gte=0"`
}

// ChunkerConfig configures how documents are split into chunks.
type ChunkerConfig struct {
	Type              string `yaml:"type" validate:"oneof=window sentence"`
	Size              int    `yaml:"size"`
	Overlap           int    `yaml:"overlap"`
	SentencesPerChunk int    `yaml:"sentences_per_chunk,omitempty"`
	OverlapSentences  int    `yaml:"overlap_sentences,omitempty"`
}

// RetrieverConfig configures question-time retrieval.
type RetrieverConfig struct {
	TopK int `yaml:"top_k" validate:"gte=1,lte=100"`
}

// VectorStoreConfig selects and configures the vector store implementation.
type VectorStoreConfig struct {
	Type       string        `yaml:"type" validate:"oneof=memory qdrant milvus sqlite"`
	Collection string        `yaml:"collection" validate:"required"`
	Qdrant     *QdrantConfig `yaml:"qdrant,omitempty"`
	Milvus     *MilvusConfig `yaml:"milvus,omitempty"`
	SQLite     *SQLiteConfig `yaml:"sqlite,omitempty"`
}

// QdrantConfig contains connection details for a Qdrant vector store.
type QdrantConfig struct {
	URL         string `yaml:"url" validate:"required,url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Distance    string `yaml:"distance" validate:"omitempty,oneof=Cosine Dot Euclid"`
	TimeoutSecs int    `yaml:"timeout_secs" validate:"gte=0"`
}

// MilvusConfig contains connection details for a Milvus vector store.
type MilvusConfig struct {
	Address     string `yaml:"address" validate:"required"`
	Database    string `yaml:"database"`
	Username    string `yaml:"username"`
	PasswordEnv string `yaml:"password_env"`
	Metric      string `yaml:"metric" validate:"omitempty,oneof=COSINE IP L2"`
}

// SQLiteConfig points at the database file backing the sqlite vector store.
type SQLiteConfig struct {
	Path string `yaml:"path" validate:"required"`
}

// WikipediaConfig configures the encyclopedia fetcher.
type WikipediaConfig struct {
	BaseURL          string `yaml:"base_url" validate:"required,url"`
	UserAgent        string `yaml:"user_agent"`
	SummarySentences int    `yaml:"summary_sentences" validate:"gte=1,lte=10"`
	TimeoutSecs      int    `yaml:"timeout_secs" validate:"gte=0"`
}

// NotionConfig configures the Notion fetcher.
type NotionConfig struct {
	APIKeyEnv string `yaml:"api_key_env"`
}

// PDFConfig configures PDF text extraction.
type PDFConfig struct {
	LicenseKeyEnv string `yaml:"license_key_env"`
}

// SourcesConfig groups the document fetchers.
type SourcesConfig struct {
	Wikipedia WikipediaConfig `yaml:"wikipedia"`
	Notion    NotionConfig    `yaml:"notion"`
	PDF       PDFConfig       `yaml:"pdf"`
}

// StandaloneConfig configures the build-index / query-index pair.
type StandaloneConfig struct {
	Embedder   EmbedderConfig `yaml:"embedder"`
	ChunkSize  int            `yaml:"chunk_size"`
	Overlap    int            `yaml:"overlap"`
	TopK       int            `yaml:"top_k" validate:"gte=1,lte=100"`
	PreviewLen int            `yaml:"preview_len" validate:"gte=1"`
	ChunksFile string         `yaml:"chunks_file" validate:"required"`
	IndexFile  string         `yaml:"index_file" validate:"required"`
}

// ServerConfig configures the HTTP front-end.
type ServerConfig struct {
	Addr            string `yaml:"addr" validate:"required"`
	MaxUploadMB     int    `yaml:"max_upload_mb" validate:"gte=1"`
	SessionIdleMins int    `yaml:"session_idle_mins" validate:"gte=0"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level       string `yaml:"level" validate:"oneof=debug info warn error"`
	Development bool   `yaml:"development"`
	File        string `yaml:"file"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Embedder    EmbedderConfig    `yaml:"embedder"`
	Completer   CompleterConfig   `yaml:"completer"`
	Chunker     ChunkerConfig     `yaml:"chunker"`
	Retriever   RetrieverConfig   `yaml:"retriever"`
	VectorStore VectorStoreConfig `yaml:"vector_store"`
	Sources     SourcesConfig     `yaml:"sources"`
	Standalone  StandaloneConfig  `yaml:"standalone"`
	Server      ServerConfig      `yaml:"server"`
	Log         LogConfig         `yaml:"log"`
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, err
	}
	return Parse(data)
}

// Parse decodes YAML, fills unset fields with defaults and validates the result.
func Parse(data []byte) (*AppConfig, error) {
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	applyConfigDefaults(&cfg)
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/docqa/config.yaml.
// If neither exists, it writes defaults to ~/.config/docqa/config.yaml and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := Default()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	return cfg, userPath, nil
}

// Resolve loads path when given, LoadDefault otherwise.
func Resolve(path string) (*AppConfig, string, error) {
	if path == "" {
		return LoadDefault()
	}
	cfg, err := Load(path)
	return cfg, path, err
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks struct constraints and the chunk window geometry.
func Validate(cfg *AppConfig) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if cfg.Chunker.Type == "window" {
		if err := chunker.ValidateWindow(cfg.Chunker.Size, cfg.Chunker.Overlap); err != nil {
			return fmt.Errorf("invalid config: chunker: %w", err)
		}
	}
	if err := chunker.ValidateWindow(cfg.Standalone.ChunkSize, cfg.Standalone.Overlap); err != nil {
		return fmt.Errorf("invalid config: standalone: %w", err)
	}
	if cfg.Embedder.Type == "openai" && cfg.Embedder.OpenAI == nil {
		return errors.New("invalid config: openai embedder config missing")
	}
	switch cfg.VectorStore.Type {
	case "qdrant":
		if cfg.VectorStore.Qdrant == nil {
			return errors.New("invalid config: qdrant config missing")
		}
	case "milvus":
		if cfg.VectorStore.Milvus == nil {
			return errors.New("invalid config: milvus config missing")
		}
	case "sqlite":
		if cfg.VectorStore.SQLite == nil {
			return errors.New("invalid config: sqlite config missing")
		}
	}
	return nil
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "docqa", "config.yaml"), nil
}

// Default returns the configuration used when no file is present.
func Default() *AppConfig {
	cfg := &AppConfig{
		Embedder: EmbedderConfig{Type: "openai", OpenAI: &OpenAIConfig{}},
		Chunker:  ChunkerConfig{Type: "window", Size: 1000, Overlap: 200},
		VectorStore: VectorStoreConfig{
			Type:       "memory",
			Collection: "pdf_docs",
		},
		Standalone: StandaloneConfig{
			Embedder:  EmbedderConfig{Type: "tfidf"},
			ChunkSize: 500,
		},
	}
	applyConfigDefaults(cfg)
	return cfg
}

func applyConfigDefaults(cfg *AppConfig) {
	if cfg.Embedder.Type == "" {
		cfg.Embedder.Type = "openai"
	}
	if cfg.Embedder.Type == "openai" && cfg.Embedder.OpenAI == nil {
		cfg.Embedder.OpenAI = &OpenAIConfig{}
	}
	applyOpenAIDefaults(cfg.Embedder.OpenAI, "gemini-embedding-001")
	applyOpenAIDefaults(&cfg.Completer.OpenAIConfig, "gemini-2.5-flash")

	if cfg.Chunker.Type == "" {
		cfg.Chunker.Type = "window"
	}
	if cfg.Chunker.Size == 0 {
		cfg.Chunker.Size = 1000
		if cfg.Chunker.Overlap == 0 {
			cfg.Chunker.Overlap = 200
		}
	}
	if cfg.Chunker.SentencesPerChunk == 0 {
		cfg.Chunker.SentencesPerChunk = 5
	}
	if cfg.Retriever.TopK == 0 {
		cfg.Retriever.TopK = 5
	}

	if cfg.VectorStore.Type == "" {
		cfg.VectorStore.Type = "memory"
	}
	if cfg.VectorStore.Collection == "" {
		cfg.VectorStore.Collection = "pdf_docs"
	}
	if q := cfg.VectorStore.Qdrant; q != nil {
		if q.Distance == "" {
			q.Distance = "Cosine"
		}
		if q.TimeoutSecs == 0 {
			q.TimeoutSecs = 15
		}
	}
	if m := cfg.VectorStore.Milvus; m != nil {
		if m.Database == "" {
			m.Database = "default"
		}
		if m.Metric == "" {
			m.Metric = "COSINE"
		}
	}

	w := &cfg.Sources.Wikipedia
	if w.BaseURL == "" {
		w.BaseURL = "https://en.wikipedia.org"
	}
	if w.UserAgent == "" {
		w.UserAgent = "docqa/1.0 (document question answering)"
	}
	if w.SummarySentences == 0 {
		w.SummarySentences = 6
	}
	if w.TimeoutSecs == 0 {
		w.TimeoutSecs = 20
	}
	if cfg.Sources.Notion.APIKeyEnv == "" {
		cfg.Sources.Notion.APIKeyEnv = "NOTION_API_KEY"
	}
	if cfg.Sources.PDF.LicenseKeyEnv == "" {
		cfg.Sources.PDF.LicenseKeyEnv = "UNIDOC_LICENSE_API_KEY"
	}

	s := &cfg.Standalone
	if s.Embedder.Type == "" {
		s.Embedder.Type = "tfidf"
	}
	if s.Embedder.Type == "openai" {
		if s.Embedder.OpenAI == nil {
			s.Embedder.OpenAI = &OpenAIConfig{}
		}
		applyOpenAIDefaults(s.Embedder.OpenAI, "gemini-embedding-001")
	}
	if s.ChunkSize == 0 {
		s.ChunkSize = 500
	}
	if s.TopK == 0 {
		s.TopK = 3
	}
	if s.PreviewLen == 0 {
		s.PreviewLen = 500
	}
	if s.ChunksFile == "" {
		s.ChunksFile = "doc_mapping.gob"
	}
	if s.IndexFile == "" {
		s.IndexFile = "vector_index.gob"
	}

	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Server.MaxUploadMB == 0 {
		cfg.Server.MaxUploadMB = 32
	}
	if cfg.Server.SessionIdleMins == 0 {
		cfg.Server.SessionIdleMins = 60
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
}

func applyOpenAIDefaults(c *OpenAIConfig, model string) {
	if c == nil {
		return
	}
	if c.BaseURL == "" {
		c.BaseURL = "https://generativelanguage.googleapis.com/v1beta/openai/"
	}
	if c.APIKeyEnv == "" {
		c.APIKeyEnv = "GOOGLE_API_KEY"
	}
	if c.Model == "" {
		c.Model = model
	}
	if c.TimeoutSecs == 0 {
		c.TimeoutSecs = 60
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
}
