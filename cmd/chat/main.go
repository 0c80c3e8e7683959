package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"github.com/spf13/pflag"

	"github.com/nlebrun/webrag/internal/ai"
	"github.com/nlebrun/webrag/internal/chat"
	"github.com/nlebrun/webrag/internal/config"
	"github.com/nlebrun/webrag/internal/retrieval"
)

func main() {
	fs := pflag.NewFlagSet("webrag-chat", pflag.ExitOnError)

	cfg, err := config.Load("", fs)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	fs.Usage = cfg.Usage

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Invalid log level '%s': %v", cfg.LogLevel, err)
	}
	zlog.Logger = zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()

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

	info := db.Info(ctx)
	fmt.Printf("webrag chat — backend=%s embedding=%s model=%s\n", info.Backend, info.Embedding, client.Model())
	fmt.Println("Type a question, /clear to reset history, /style <name> to switch persona, /quit to exit.")

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		switch {
		case line == "/quit" || line == "/exit":
			return
		case line == "/clear":
			manager.ClearHistory()
			fmt.Println("history cleared")
			continue
		case strings.HasPrefix(line, "/style "):
			style := strings.TrimSpace(strings.TrimPrefix(line, "/style "))
			if err := manager.SetStyle(style); err != nil {
				fmt.Printf("%v (available: %s)\n", err, strings.Join(chat.Styles(), ", "))
			} else {
				fmt.Printf("style set to %s\n", style)
			}
			continue
		}

		results, err := db.Search(ctx, line, cfg.TopK)
		if err != nil {
			fmt.Printf("search failed: %v\n", err)
			continue
		}

		answer := manager.Respond(ctx, line, results)
		fmt.Println(answer.Response)
		if !answer.Error && answer.SourcesUsed > 0 {
			fmt.Printf("(sources: %d)\n", answer.SourcesUsed)
		}
	}
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
		// auto: prefer Gemini when credentials exist, otherwise the stub.
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
