package main

import (
	"context"
	"log"
	"os"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"github.com/spf13/pflag"

	"github.com/nlebrun/webrag/internal/config"
	"github.com/nlebrun/webrag/internal/retrieval"
	"github.com/nlebrun/webrag/internal/scrape"
)

func main() {
	fs := pflag.NewFlagSet("webrag-ingest", pflag.ExitOnError)

	cfg, err := config.Load("", fs)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	fs.Usage = cfg.Usage

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Invalid log level '%s': %v", cfg.LogLevel, err)
	}
	zlog.Logger = zerolog.New(os.Stdout).Level(level).With().Timestamp().Logger()

	ctx := context.Background()

	pages, err := scrape.LoadSessions(cfg.ScrapedDir())
	if err != nil {
		log.Fatalf("Failed to load scraped sessions: %v", err)
	}
	if len(pages) == 0 {
		log.Fatalf("No scraped pages found under %s", cfg.ScrapedDir())
	}

	db, err := retrieval.Open(ctx, &cfg)
	if err != nil {
		log.Fatalf("Failed to open retrieval database: %v", err)
	}
	defer db.Close()

	count, err := db.AddPages(ctx, pages)
	if err != nil {
		log.Fatalf("Ingestion failed: %v", err)
	}

	info := db.Info(ctx)
	zlog.Info().
		Int("chunks", count).
		Int("pages", len(pages)).
		Str("backend", info.Backend).
		Str("embedding", info.Embedding).
		Msg("ingestion complete")
}
