package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
)

// Load parses os.Args through pflag, so tests pin the argument list to keep
// the test binary's own flags out of the way.
func withArgs(t *testing.T, args ...string) {
	t.Helper()
	old := os.Args
	os.Args = append([]string{"webrag-test"}, args...)
	t.Cleanup(func() { os.Args = old })
}

func TestLoadDefaults(t *testing.T) {
	withArgs(t)
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)

	cfg, err := Load("", fs)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Provider != "auto" {
		t.Errorf("Provider = %q, want auto", cfg.Provider)
	}
	if cfg.Backend != BackendChromem {
		t.Errorf("Backend = %q, want %q", cfg.Backend, BackendChromem)
	}
	if cfg.ChunkSize != 1000 || cfg.ChunkOverlap != 200 {
		t.Errorf("chunking defaults = %d/%d, want 1000/200", cfg.ChunkSize, cfg.ChunkOverlap)
	}
	if cfg.TopK != 5 {
		t.Errorf("TopK = %d, want 5", cfg.TopK)
	}
	if cfg.SimilarityThreshold != 0 {
		t.Errorf("SimilarityThreshold = %v, want 0 (disabled)", cfg.SimilarityThreshold)
	}
	if cfg.MaxContextTokens != 3000 || cfg.MaxHistoryTurns != 20 {
		t.Errorf("chat defaults = %d/%d, want 3000/20", cfg.MaxContextTokens, cfg.MaxHistoryTurns)
	}
	if cfg.PromptStyle != "default" || cfg.LogLevel != "info" || cfg.Port != 8080 {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	withArgs(t)
	t.Setenv("WEBRAG_BACKEND", "flat")
	t.Setenv("WEBRAG_CHUNK_SIZE", "500")
	t.Setenv("WEBRAG_TOP_K", "7")
	t.Setenv("WEBRAG_PROVIDER_API_KEY", "secret")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	cfg, err := Load("", fs)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Backend != BackendFlat {
		t.Errorf("Backend = %q, want flat", cfg.Backend)
	}
	if cfg.ChunkSize != 500 {
		t.Errorf("ChunkSize = %d, want 500", cfg.ChunkSize)
	}
	if cfg.TopK != 7 {
		t.Errorf("TopK = %d, want 7", cfg.TopK)
	}
	if cfg.APIKey != "secret" {
		t.Errorf("APIKey = %q", cfg.APIKey)
	}
}

func TestLoadFlagsOverrideEnv(t *testing.T) {
	withArgs(t, "--backend=flat", "--top-k=9")
	t.Setenv("WEBRAG_TOP_K", "7")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	cfg, err := Load("", fs)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Backend != BackendFlat {
		t.Errorf("Backend = %q, want flat", cfg.Backend)
	}
	if cfg.TopK != 9 {
		t.Errorf("TopK = %d, want 9 (flag wins over env)", cfg.TopK)
	}
}

func TestLoadYAML(t *testing.T) {
	withArgs(t)

	path := filepath.Join(t.TempDir(), "webrag.yaml")
	yaml := `backend: flat
chunkSize: 600
chunkOverlap: 60
promptStyle: expert
auth:
  enabled: true
  jwtSecret: yamlsecret
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatalf("write yaml: %v", err)
	}

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	cfg, err := Load(path, fs)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Backend != BackendFlat || cfg.ChunkSize != 600 || cfg.ChunkOverlap != 60 {
		t.Errorf("yaml values not applied: %+v", cfg)
	}
	if cfg.PromptStyle != "expert" {
		t.Errorf("PromptStyle = %q, want expert", cfg.PromptStyle)
	}
	if !cfg.Auth.Enabled || cfg.Auth.JwtSecret != "yamlsecret" {
		t.Errorf("auth section not applied: %+v", cfg.Auth)
	}
	// Untouched fields keep their defaults.
	if cfg.TopK != 5 {
		t.Errorf("TopK = %d, want default 5", cfg.TopK)
	}
}

func TestLoadMissingConfigFile(t *testing.T) {
	withArgs(t)
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	if _, err := Load("does/not/exist.yaml", fs); err == nil {
		t.Fatal("expected error for a missing config file")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Specification)
		wantErr bool
	}{
		{"defaults pass", func(c *Specification) {}, false},
		{"unknown backend", func(c *Specification) { c.Backend = "faiss" }, true},
		{"postgres needs dsn", func(c *Specification) { c.Backend = BackendPostgres }, true},
		{"postgres with dsn", func(c *Specification) {
			c.Backend = BackendPostgres
			c.Database = "postgres://localhost/webrag"
		}, false},
		{"zero chunk size", func(c *Specification) { c.ChunkSize = 0 }, true},
		{"overlap equals size", func(c *Specification) { c.ChunkOverlap = c.ChunkSize }, true},
		{"negative overlap", func(c *Specification) { c.ChunkOverlap = -1 }, true},
		{"threshold above one", func(c *Specification) { c.SimilarityThreshold = 1.5 }, true},
		{"threshold at one", func(c *Specification) { c.SimilarityThreshold = 1 }, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var cfg Specification
			setDefaults(&cfg)
			tc.mutate(&cfg)

			err := validate(&cfg)
			if tc.wantErr && err == nil {
				t.Fatal("expected a validation error")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestDataDirLayout(t *testing.T) {
	cfg := Specification{DataDir: "data"}
	if got := cfg.ScrapedDir(); got != filepath.Join("data", "scraped") {
		t.Errorf("ScrapedDir = %q", got)
	}
	if got := cfg.EmbeddingsDir(); got != filepath.Join("data", "embeddings") {
		t.Errorf("EmbeddingsDir = %q", got)
	}
}
