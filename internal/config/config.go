package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

type Specification struct {
	Provider            string  `yaml:"provider"`
	APIKey              string  `yaml:"providerApiKey" envconfig:"PROVIDER_API_KEY"`
	EmbedModel          string  `yaml:"embedModel" envconfig:"EMBED_MODEL"`
	ChatModel           string  `yaml:"chatModel" envconfig:"CHAT_MODEL"`
	ProjectID           string  `yaml:"providerProjectID" envconfig:"PROVIDER_PROJECT_ID"`
	Location            string  `yaml:"providerLocation" envconfig:"PROVIDER_LOCATION"`
	Host                string  `yaml:"providerHost" envconfig:"PROVIDER_HOST"`
	Dim                 int     `yaml:"embedDim" envconfig:"EMBED_DIM"`
	Backend             string  `yaml:"backend"`
	Database            string  `yaml:"database" envconfig:"DB_URL"`
	DataDir             string  `yaml:"dataDir" split_words:"true"`
	Collection          string  `yaml:"collection"`
	ChunkSize           int     `yaml:"chunkSize" split_words:"true"`
	ChunkOverlap        int     `yaml:"chunkOverlap" split_words:"true"`
	TopK                int     `yaml:"topK" envconfig:"TOP_K"`
	SimilarityThreshold float64 `yaml:"similarityThreshold" split_words:"true"`
	MaxContextTokens    int     `yaml:"maxContextTokens" split_words:"true"`
	MaxHistoryTurns     int     `yaml:"maxHistoryTurns" split_words:"true"`
	PromptStyle         string  `yaml:"promptStyle" split_words:"true"`
	LogLevel            string  `yaml:"logLevel" split_words:"true"`
	Port                int     `yaml:"port" split_words:"true"`
	Auth                AuthSpecification `yaml:"auth"`

	flags *pflag.FlagSet `ignored:"true"`
}

type AuthSpecification struct {
	Enabled   bool   `yaml:"enabled"`
	JwtSecret string `yaml:"jwtSecret" split_words:"true"`
}

const envPrefix = "WEBRAG"

// Vector backends understood by the retrieval database.
const (
	BackendChromem  = "chromem"
	BackendFlat     = "flat"
	BackendPostgres = "postgres"
)

func (s *Specification) Usage() {
	fmt.Fprint(os.Stderr, s.flags.FlagUsages())
}

// ScrapedDir is where crawl session files live.
func (s *Specification) ScrapedDir() string { return filepath.Join(s.DataDir, "scraped") }

// EmbeddingsDir is where vector store persistence lives.
func (s *Specification) EmbeddingsDir() string { return filepath.Join(s.DataDir, "embeddings") }

// Load => defaults < .env < YAML < env < flags.
// configPath may be ""; if so we auto-discover.
func Load(configPath string, fs *pflag.FlagSet) (Specification, error) {
	var cfg Specification

	// .env is loaded first so envconfig sees its values; a missing file is fine
	_ = godotenv.Load()

	setDefaults(&cfg)
	bindFlags(fs, &cfg)

	path := configPath
	if path == "" {
		if v := os.Getenv(envPrefix + "_CONFIG"); v != "" {
			path = v
		} else {
			for _, cand := range []string{
				"config/webrag.yaml",
				"config/config.yaml",
				"./webrag.yaml",
				"./config.yaml",
			} {
				if fileExists(cand) {
					path = cand
					break
				}
			}
		}
	}

	if path != "" {
		if !fileExists(path) {
			return Specification{}, fmt.Errorf("config file not found: %s", path)
		}
		if err := loadYAML(path, &cfg); err != nil {
			return Specification{}, fmt.Errorf("load yaml %s: %w", path, err)
		}
	}

	// env overrides config file
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return Specification{}, fmt.Errorf("env override: %w", err)
	}

	// flags override everything
	if err := fs.Parse(os.Args[1:]); err != nil {
		return Specification{}, err
	}
	applyChangedFlags(fs, &cfg)

	if err := validate(&cfg); err != nil {
		return Specification{}, err
	}
	return cfg, nil
}

func validate(c *Specification) error {
	switch c.Backend {
	case BackendChromem, BackendFlat:
	case BackendPostgres:
		if strings.TrimSpace(c.Database) == "" {
			return fmt.Errorf("WEBRAG_DB_URL is required for the postgres backend")
		}
	default:
		return fmt.Errorf("unsupported backend: %s", c.Backend)
	}
	if c.ChunkSize <= 0 {
		return fmt.Errorf("chunk size must be positive, got %d", c.ChunkSize)
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("chunk overlap must be in [0, chunk size), got %d", c.ChunkOverlap)
	}
	if c.SimilarityThreshold < 0 || c.SimilarityThreshold > 1 {
		return fmt.Errorf("similarity threshold must be in [0, 1], got %v", c.SimilarityThreshold)
	}
	if strings.TrimSpace(c.LogLevel) == "" {
		c.LogLevel = "info"
	}
	return nil
}

// ---------- helpers ----------

func loadYAML(path string, into any) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(b, into)
}

func fileExists(p string) bool {
	fi, err := os.Stat(p)
	return err == nil && !fi.IsDir()
}

func bindFlags(fs *pflag.FlagSet, c *Specification) {
	fs.String("config", "", "Path to config file")

	// If --config is provided on the command line, capture it now so
	// config discovery (which runs before flags.Parse) can use it.
	for i, a := range os.Args {
		if a == "--config" {
			if i+1 < len(os.Args) && !strings.HasPrefix(os.Args[i+1], "-") {
				_ = os.Setenv(envPrefix+"_CONFIG", os.Args[i+1])
			}
		} else if strings.HasPrefix(a, "--config=") {
			parts := strings.SplitN(a, "=", 2)
			if len(parts) == 2 {
				_ = os.Setenv(envPrefix+"_CONFIG", parts[1])
			}
		}
	}

	fs.String("provider", c.Provider, "Model provider (auto, gemini, openai, ollama, tfidf, hash)")
	fs.String("provider-api-key", c.APIKey, "Provider API key")
	fs.String("embed-model", c.EmbedModel, "Embedding model name")
	fs.String("chat-model", c.ChatModel, "Chat completion model name")
	fs.String("provider-project-id", c.ProjectID, "Provider project ID")
	fs.String("provider-location", c.Location, "Provider location/region")
	fs.String("provider-host", c.Host, "Local provider address (ollama)")
	fs.Int("embed-dim", c.Dim, "Embedding dimensionality")

	fs.String("backend", c.Backend, "Vector backend (chromem, flat, postgres)")
	fs.String("db-url", c.Database, "Postgres DSN (postgres backend only)")
	fs.String("data-dir", c.DataDir, "Directory for scraped pages and vector persistence")
	fs.String("collection", c.Collection, "Vector collection name")

	fs.Int("chunk-size", c.ChunkSize, "Chunk size in characters")
	fs.Int("chunk-overlap", c.ChunkOverlap, "Overlap between consecutive chunks")
	fs.Int("top-k", c.TopK, "Number of search results to retrieve")
	fs.Float64("similarity-threshold", c.SimilarityThreshold, "Minimum similarity for search results (0 disables)")

	fs.Int("max-context-tokens", c.MaxContextTokens, "Token budget for retrieved context")
	fs.Int("max-history-turns", c.MaxHistoryTurns, "Conversation turns retained in memory")
	fs.String("prompt-style", c.PromptStyle, "System prompt style (default, expert, casual)")

	fs.String("log-level", c.LogLevel, "Log level (debug|info|warn|error)")
	fs.Int("port", c.Port, "API server port")

	fs.Bool("auth-enabled", c.Auth.Enabled, "Require bearer tokens on the API")
	fs.String("auth-jwt-secret", c.Auth.JwtSecret, "JWT secret for signing tokens")

	// Used later for usage/help
	copied := pflag.NewFlagSet("temp", pflag.ContinueOnError)
	*copied = *fs
	c.flags = copied
}

func applyChangedFlags(fs *pflag.FlagSet, c *Specification) {
	setStr := func(name string, dst *string) {
		if fs.Changed(name) {
			v, _ := fs.GetString(name)
			*dst = v
		}
	}
	setInt := func(name string, dst *int) {
		if fs.Changed(name) {
			v, _ := fs.GetInt(name)
			*dst = v
		}
	}
	setFloat := func(name string, dst *float64) {
		if fs.Changed(name) {
			v, _ := fs.GetFloat64(name)
			*dst = v
		}
	}
	setBool := func(name string, dst *bool) {
		if fs.Changed(name) {
			v, _ := fs.GetBool(name)
			*dst = v
		}
	}

	setStr("provider", &c.Provider)
	setStr("provider-api-key", &c.APIKey)
	setStr("embed-model", &c.EmbedModel)
	setStr("chat-model", &c.ChatModel)
	setStr("provider-project-id", &c.ProjectID)
	setStr("provider-location", &c.Location)
	setStr("provider-host", &c.Host)
	setInt("embed-dim", &c.Dim)

	setStr("backend", &c.Backend)
	setStr("db-url", &c.Database)
	setStr("data-dir", &c.DataDir)
	setStr("collection", &c.Collection)

	setInt("chunk-size", &c.ChunkSize)
	setInt("chunk-overlap", &c.ChunkOverlap)
	setInt("top-k", &c.TopK)
	setFloat("similarity-threshold", &c.SimilarityThreshold)

	setInt("max-context-tokens", &c.MaxContextTokens)
	setInt("max-history-turns", &c.MaxHistoryTurns)
	setStr("prompt-style", &c.PromptStyle)

	setStr("log-level", &c.LogLevel)
	setInt("port", &c.Port)

	setBool("auth-enabled", &c.Auth.Enabled)
	setStr("auth-jwt-secret", &c.Auth.JwtSecret)
}

func setDefaults(c *Specification) {
	c.Provider = "auto"
	c.Location = "us-central1"
	c.Backend = BackendChromem
	c.DataDir = "data"
	c.Collection = "documents"
	c.ChunkSize = 1000
	c.ChunkOverlap = 200
	c.TopK = 5
	c.SimilarityThreshold = 0
	c.MaxContextTokens = 3000
	c.MaxHistoryTurns = 20
	c.PromptStyle = "default"
	c.LogLevel = "info"
	c.Port = 8080
}
