// Package config loads the server configuration from, in increasing
// precedence order, built-in defaults, a YAML file, environment
// variables and command-line flags.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/kelseyhightower/envconfig"
	flag "github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

const envPrefix = "CODESEARCH"

// Config holds all configuration for the code search server.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Chunking   ChunkingConfig   `yaml:"chunking"`
	Indexing   IndexingConfig   `yaml:"indexing"`
	Search     SearchConfig     `yaml:"search"`
	Embeddings EmbeddingsConfig `yaml:"embeddings"`
	VectorDB   VectorDBConfig   `yaml:"vectordb"`
	Lexical    LexicalConfig    `yaml:"lexical"`
	LLM        LLMConfig        `yaml:"llm"`
	Agent      AgentConfig      `yaml:"agent"`
	Cache      CacheConfig      `yaml:"cache"`
	Logging    LoggingConfig    `yaml:"logging"`
	Ignore     IgnoreConfig     `yaml:"ignore_patterns"`
	Languages  LanguagesConfig  `yaml:"supported_languages"`
}

type ServerConfig struct {
	Name    string `yaml:"name" envconfig:"SERVER_NAME"`
	Version string `yaml:"version" envconfig:"SERVER_VERSION"`
	Addr    string `yaml:"addr" envconfig:"SERVER_ADDR"`
}

type ChunkingConfig struct {
	TargetTokens      int  `yaml:"target_tokens" envconfig:"CHUNK_TARGET_TOKENS"`
	MaxTokens         int  `yaml:"max_tokens" envconfig:"CHUNK_MAX_TOKENS"`
	OverlapLines      int  `yaml:"overlap_lines" envconfig:"CHUNK_OVERLAP_LINES"`
	MaxLines          int  `yaml:"max_lines" envconfig:"CHUNK_MAX_LINES"`
	RespectBoundaries bool `yaml:"respect_boundaries" envconfig:"CHUNK_RESPECT_BOUNDARIES"`
}

type IndexingConfig struct {
	BatchSize       int  `yaml:"batch_size" envconfig:"INDEX_BATCH_SIZE"`
	MaxFileSizeMB   int  `yaml:"max_file_size_mb" envconfig:"INDEX_MAX_FILE_SIZE_MB"`
	ParallelWorkers int  `yaml:"parallel_workers" envconfig:"INDEX_PARALLEL_WORKERS"`
	Incremental     bool `yaml:"incremental" envconfig:"INDEX_INCREMENTAL"`
	Background      bool `yaml:"background" envconfig:"INDEX_BACKGROUND"`
}

type SearchConfig struct {
	MaxResults        int     `yaml:"max_results" envconfig:"SEARCH_MAX_RESULTS"`
	SemanticWeight    float64 `yaml:"semantic_weight" envconfig:"SEARCH_SEMANTIC_WEIGHT"`
	ExactMatchBoost   float64 `yaml:"exact_match_boost" envconfig:"SEARCH_EXACT_MATCH_BOOST"`
	MinScoreThreshold float64 `yaml:"min_score_threshold" envconfig:"SEARCH_MIN_SCORE"`
}

type EmbeddingsConfig struct {
	Model         string `yaml:"model" envconfig:"EMBEDDING_MODEL"`
	OllamaURL     string `yaml:"ollama_url" envconfig:"OLLAMA_URL"`
	BatchSize     int    `yaml:"batch_size" envconfig:"EMBEDDING_BATCH_SIZE"`
	Dimensions    int    `yaml:"dimensions" envconfig:"EMBEDDING_DIMENSIONS"`
	FullDimension int    `yaml:"full_dimension" envconfig:"EMBEDDING_FULL_DIMENSION"`
	ContextLength int    `yaml:"context_length" envconfig:"EMBEDDING_CONTEXT_LENGTH"`
	Normalize     bool   `yaml:"normalize" envconfig:"EMBEDDING_NORMALIZE"`
	UseMRL        bool   `yaml:"use_mrl" envconfig:"EMBEDDING_USE_MRL"`
}

type VectorDBConfig struct {
	Addr           string `yaml:"addr" envconfig:"QDRANT_ADDR"`
	CollectionName string `yaml:"collection_name" envconfig:"QDRANT_COLLECTION"`
	DistanceMetric string `yaml:"distance_metric" envconfig:"QDRANT_DISTANCE"`
	VectorSize     int    `yaml:"vector_size" envconfig:"QDRANT_VECTOR_SIZE"`
	OnDiskPayload  bool   `yaml:"on_disk_payload" envconfig:"QDRANT_ON_DISK_PAYLOAD"`
}

// LexicalConfig tunes the in-process trigram index.
type LexicalConfig struct {
	MaxFuzzyDistance  int `yaml:"max_fuzzy_distance" envconfig:"LEXICAL_MAX_FUZZY_DISTANCE"`
	MaxListingResults int `yaml:"max_listing_results" envconfig:"LEXICAL_MAX_LISTING_RESULTS"`
}

// LLMConfig configures the provider-agnostic chat completion gateway.
type LLMConfig struct {
	Provider    string  `yaml:"provider" envconfig:"LLM_PROVIDER"`
	BaseURL     string  `yaml:"base_url" envconfig:"LLM_BASE_URL"`
	APIKey      string  `yaml:"api_key" envconfig:"LLM_API_KEY"`
	Model       string  `yaml:"model" envconfig:"LLM_MODEL"`
	MaxTokens   int     `yaml:"max_tokens" envconfig:"LLM_MAX_TOKENS"`
	Temperature float64 `yaml:"temperature" envconfig:"LLM_TEMPERATURE"`
	MaxRetries  int     `yaml:"max_retries" envconfig:"LLM_MAX_RETRIES"`
}

// AgentConfig bounds the agent loop's tool-calling budget.
type AgentConfig struct {
	MaxIterations  int `yaml:"max_iterations" envconfig:"AGENT_MAX_ITERATIONS"`
	MaxCodeResults int `yaml:"max_code_results" envconfig:"AGENT_MAX_CODE_RESULTS"`
}

type CacheConfig struct {
	Enabled        bool   `yaml:"enabled" envconfig:"CACHE_ENABLED"`
	Directory      string `yaml:"directory" envconfig:"CACHE_DIR"`
	EmbeddingsFile string `yaml:"embeddings_file" envconfig:"CACHE_EMBEDDINGS_FILE"`
	HashesFile     string `yaml:"hashes_file" envconfig:"CACHE_HASHES_FILE"`
}

type LoggingConfig struct {
	Level  string `yaml:"level" envconfig:"LOG_LEVEL"`
	Pretty bool   `yaml:"pretty" envconfig:"LOG_PRETTY"`
}

type IgnoreConfig struct {
	Patterns []string `yaml:"patterns"`
}

type LanguagesConfig struct {
	Java       LanguageConfig `yaml:"java"`
	TypeScript LanguageConfig `yaml:"typescript"`
	JavaScript LanguageConfig `yaml:"javascript"`
	Go         LanguageConfig `yaml:"go"`
	Python     LanguageConfig `yaml:"python"`
	Rust       LanguageConfig `yaml:"rust"`
	C          LanguageConfig `yaml:"c"`
	Cpp        LanguageConfig `yaml:"cpp"`
}

type LanguageConfig struct {
	Extensions []string `yaml:"extensions"`
	Parser     string   `yaml:"parser"`
}

// Load builds a Config from defaults, an optional YAML file, environment
// variables prefixed CODESEARCH_ and flags already registered on fs (or
// flag.CommandLine when fs is nil).
func Load(configPath string, fs *flag.FlagSet) (*Config, error) {
	cfg := DefaultConfig()

	path := configPath
	if path == "" {
		path = getConfigPath()
	}
	if path != "" {
		if err := loadFromFile(cfg, path); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := envconfig.Process(envPrefix, cfg); err != nil {
		return nil, fmt.Errorf("apply env overrides: %w", err)
	}

	if fs == nil {
		fs = flag.CommandLine
	}
	bindFlags(cfg, fs)

	cfg.Cache.Directory = expandPath(cfg.Cache.Directory)

	return cfg, nil
}

func bindFlags(cfg *Config, fs *flag.FlagSet) {
	if f := fs.Lookup("ollama-url"); f != nil && f.Changed {
		cfg.Embeddings.OllamaURL = f.Value.String()
	}
	if f := fs.Lookup("qdrant-addr"); f != nil && f.Changed {
		cfg.VectorDB.Addr = f.Value.String()
	}
	if f := fs.Lookup("log-level"); f != nil && f.Changed {
		cfg.Logging.Level = f.Value.String()
	}
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Name:    "codesearch",
			Version: "0.1.0",
			Addr:    ":8080",
		},
		Chunking: ChunkingConfig{
			TargetTokens:      50,
			MaxTokens:         300,
			OverlapLines:      5,
			MaxLines:          15,
			RespectBoundaries: true,
		},
		Indexing: IndexingConfig{
			BatchSize:       100,
			MaxFileSizeMB:   1,
			ParallelWorkers: runtime.NumCPU(),
			Incremental:     true,
		},
		Search: SearchConfig{
			MaxResults:        10,
			SemanticWeight:    0.7,
			ExactMatchBoost:   1.5,
			MinScoreThreshold: 0.5,
		},
		Embeddings: EmbeddingsConfig{
			Model:         "nomic-embed-text",
			OllamaURL:     "http://localhost:11434",
			BatchSize:     16,
			Dimensions:    256,
			FullDimension: 768,
			ContextLength: 8192,
			Normalize:     true,
			UseMRL:        true,
		},
		VectorDB: VectorDBConfig{
			Addr:           "localhost:6334",
			CollectionName: "code_chunks",
			DistanceMetric: "cosine",
			VectorSize:     256,
			OnDiskPayload:  true,
		},
		Lexical: LexicalConfig{
			MaxFuzzyDistance:  2,
			MaxListingResults: 100,
		},
		LLM: LLMConfig{
			Provider:    "openai",
			BaseURL:     "https://api.openai.com/v1",
			Model:       "gpt-4o-mini",
			MaxTokens:   4096,
			Temperature: 0.0,
			MaxRetries:  3,
		},
		Agent: AgentConfig{
			MaxIterations:  15,
			MaxCodeResults: 8,
		},
		Cache: CacheConfig{
			Enabled:        true,
			Directory:      "~/.codesearch/cache",
			EmbeddingsFile: "embeddings.db",
			HashesFile:     "file-hashes.json",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Pretty: true,
		},
		Ignore: IgnoreConfig{
			Patterns: []string{
				"target/**",
				"build/**",
				"dist/**",
				"out/**",
				"node_modules/**",
				".pnp/**",
				"**/*.min.js",
				"**/*.bundle.js",
				".git/**",
				".idea/**",
				".vscode/**",
				"*.iml",
			},
		},
		Languages: LanguagesConfig{
			Java:       LanguageConfig{Extensions: []string{".java"}, Parser: "tree-sitter-java"},
			TypeScript: LanguageConfig{Extensions: []string{".ts", ".tsx"}, Parser: "tree-sitter-typescript"},
			JavaScript: LanguageConfig{Extensions: []string{".js", ".jsx", ".mjs", ".cjs"}, Parser: "tree-sitter-javascript"},
			Go:         LanguageConfig{Extensions: []string{".go"}, Parser: "tree-sitter-go"},
			Python:     LanguageConfig{Extensions: []string{".py"}, Parser: "tree-sitter-python"},
			Rust:       LanguageConfig{Extensions: []string{".rs"}, Parser: "tree-sitter-rust"},
			C:          LanguageConfig{Extensions: []string{".c", ".h"}, Parser: "tree-sitter-c"},
			Cpp:        LanguageConfig{Extensions: []string{".cpp", ".cc", ".hpp"}, Parser: "tree-sitter-cpp"},
		},
	}
}

func getConfigPath() string {
	if path := os.Getenv("CODESEARCH_CONFIG"); path != "" {
		return path
	}
	if _, err := os.Stat("config.yaml"); err == nil {
		return "config.yaml"
	}
	home, err := os.UserHomeDir()
	if err == nil {
		path := filepath.Join(home, ".codesearch", "config.yaml")
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

func expandPath(path string) string {
	if len(path) > 0 && path[0] == '~' {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}
