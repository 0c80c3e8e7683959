// Package scrape handles the on-disk crawl session records. The crawl
// transport itself lives outside this module; what arrives here is the
// stream of page records it produced, one JSON array per session file.
package scrape

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/karrick/godirwalk"
	"github.com/rs/zerolog/log"

	"github.com/nlebrun/webrag/pkg/models"
)

// SaveSession writes one crawl session as a JSON array of page records.
// Returns the path of the written file.
func SaveSession(dir string, pages []models.ScrapedPage) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create session dir: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("session_%d.json", time.Now().Unix()))
	b, err := json.MarshalIndent(pages, "", "  ")
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return "", fmt.Errorf("write session: %w", err)
	}

	log.Info().Str("path", path).Int("pages", len(pages)).Msg("session saved")
	return path, nil
}

// LoadSessions walks dir and decodes every *.json session file found.
// Corrupt files are skipped with a warning; a missing directory yields no
// pages rather than an error.
func LoadSessions(dir string) ([]models.ScrapedPage, error) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil, nil
	}

	var pages []models.ScrapedPage
	err := godirwalk.Walk(dir, &godirwalk.Options{
		Unsorted: false,
		Callback: func(path string, de *godirwalk.Dirent) error {
			if de.IsDir() || !strings.HasSuffix(strings.ToLower(path), ".json") {
				return nil
			}

			b, err := os.ReadFile(path)
			if err != nil {
				log.Warn().Err(err).Str("path", path).Msg("session file unreadable, skipping")
				return nil
			}
			var session []models.ScrapedPage
			if err := json.Unmarshal(b, &session); err != nil {
				log.Warn().Err(err).Str("path", path).Msg("session file corrupt, skipping")
				return nil
			}

			pages = append(pages, session...)
			return nil
		},
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", dir, err)
	}

	log.Info().Int("pages", len(pages)).Str("dir", dir).Msg("sessions loaded")
	return pages, nil
}
