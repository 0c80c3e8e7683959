package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
	zlog "github.com/rs/zerolog/log"
	"github.com/spf13/pflag"

	"github.com/nlebrun/webrag/internal/ai"
	"github.com/nlebrun/webrag/internal/auth"
	"github.com/nlebrun/webrag/internal/chat"
	"github.com/nlebrun/webrag/internal/config"
	"github.com/nlebrun/webrag/internal/retrieval"
)

type queryRequest struct {
	Question string `json:"question"`
	K        int    `json:"k,omitempty"`
}

func main() {
	fs := pflag.NewFlagSet("webrag-api", pflag.ExitOnError)

	cfg, err := config.Load("", fs)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	fs.Usage = cfg.Usage

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Invalid log level '%s': %v", cfg.LogLevel, err)
	}
	logger := zerolog.New(os.Stdout).Level(level).With().Timestamp().Logger()
	zlog.Logger = logger
	logger.Info().Str("backend", cfg.Backend).Str("provider", cfg.Provider).
		Bool("auth_enabled", cfg.Auth.Enabled).Msg("starting webrag api")

	auth.Initialize(cfg.Auth.JwtSecret, cfg.Auth.Enabled)

	ctx := context.Background()
	db, err := retrieval.Open(ctx, &cfg)
	if err != nil {
		log.Fatalf("Failed to open retrieval database: %v", err)
	}
	defer db.Close()

	client, err := newCompletionClient(ctx, &cfg)
	if err != nil {
		log.Fatalf("Failed to create completion client: %v", err)
	}

	manager := chat.New(client,
		chat.WithStyle(cfg.PromptStyle),
		chat.WithMaxHistoryTurns(cfg.MaxHistoryTurns),
		chat.WithContextBudget(cfg.MaxContextTokens),
	)

	// One conversation per process; the manager itself is single-session,
	// so requests are serialized here.
	var mu sync.Mutex

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })

	mux.HandleFunc("/info", auth.Middleware(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(db.Info(ctx)); err != nil {
			http.Error(w, "Failed to encode info", 500)
		}
	}))

	mux.HandleFunc("/query", auth.Middleware(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var req queryRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		question := strings.TrimSpace(req.Question)
		if question == "" {
			http.Error(w, "missing question", http.StatusBadRequest)
			return
		}
		k := req.K
		if k <= 0 {
			k = cfg.TopK
		}

		start := time.Now()
		ctx, cancel := context.WithTimeout(r.Context(), 90*time.Second)
		defer cancel()

		mu.Lock()
		results, err := db.Search(ctx, question, k)
		if err != nil {
			mu.Unlock()
			http.Error(w, err.Error(), 500)
			return
		}
		answer := manager.Respond(ctx, question, results)
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(answer); err != nil {
			http.Error(w, "Failed to encode answer", 500)
			return
		}

		hlog.FromRequest(r).Info().Str("path", "/query").Int("k", k).
			Int("sources", answer.SourcesUsed).Bool("error", answer.Error).
			Dur("dur", time.Since(start)).Msg("served")
	}))

	mux.HandleFunc("/clear", auth.Middleware(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		mu.Lock()
		manager.ClearHistory()
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))

	handler := hlog.NewHandler(logger)(
		hlog.AccessHandler(func(r *http.Request, status, size int, dur time.Duration) {
			logger.Info().Str("method", r.Method).Str("path", r.URL.Path).
				Int("status", status).Int("size", size).Dur("dur", dur).Msg("http")
		})(mux),
	)

	address := fmt.Sprintf(":%d", cfg.Port)
	s := &http.Server{Addr: address, Handler: handler}
	logger.Info().Str("addr", s.Addr).Msg("api server listening")
	log.Fatal(s.ListenAndServe())
}

func newCompletionClient(ctx context.Context, cfg *config.Specification) (ai.Client, error) {
	clientConfig := &ai.ClientConfig{
		APIKey:    cfg.APIKey,
		Model:     cfg.ChatModel,
		ProjectID: cfg.ProjectID,
		Location:  cfg.Location,
		Host:      cfg.Host,
	}

	switch strings.ToLower(cfg.Provider) {
	case "openai":
		clientConfig.Provider = ai.ProviderOpenAI
	case "ollama":
		clientConfig.Provider = ai.ProviderOllama
	case "gemini", "vertexai", "google", "auto":
		if cfg.APIKey == "" && cfg.ProjectID == "" {
			clientConfig.Provider = ai.ProviderStub
		} else {
			clientConfig.Provider = ai.ProviderGemini
		}
	default:
		clientConfig.Provider = ai.ProviderStub
	}

	return ai.NewClient(ctx, clientConfig)
}
