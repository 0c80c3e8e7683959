// Package chunker splits page text into overlapping fixed-size segments
// at near-word boundaries. Chunking is deterministic: the same text and
// parameters always produce the same boundaries.
package chunker

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/nlebrun/webrag/pkg/models"
)

// Characters we are willing to break on when backing off from a hard cut.
const breakChars = " \n\t.!?;"

type Chunker struct {
	ChunkSize    int
	ChunkOverlap int
}

func New(chunkSize, chunkOverlap int) *Chunker {
	if chunkSize <= 0 {
		chunkSize = 1000
	}
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		chunkOverlap = chunkSize / 5
	}
	return &Chunker{ChunkSize: chunkSize, ChunkOverlap: chunkOverlap}
}

// chunkID derives a stable chunk identifier from the source URL and the
// chunk's position within the document.
func chunkID(sourceURL string, index int) string {
	h := sha1.Sum([]byte(sourceURL))
	return fmt.Sprintf("%s_%d", hex.EncodeToString(h[:]), index)
}

// Chunk splits text into ordered DocumentChunks. Texts no longer than the
// chunk size become a single chunk; otherwise a window of ChunkSize slides
// forward keeping ChunkOverlap characters between consecutive chunks.
// When a window would split a word, the cut scans backward up to 20% of
// ChunkSize for whitespace or sentence punctuation before giving up and
// cutting hard. Chunks that are empty after trimming are dropped.
func (c *Chunker) Chunk(text, sourceURL, title string) []models.DocumentChunk {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	now := time.Now()

	if len(text) <= c.ChunkSize {
		return []models.DocumentChunk{{
			ID:         chunkID(sourceURL, 0),
			Content:    text,
			SourceURL:  sourceURL,
			Title:      title,
			ChunkIndex: 0,
			CreatedAt:  now,
		}}
	}

	var chunks []models.DocumentChunk
	start := 0
	index := 0
	// 20% of the window is the furthest we scan back for a soft boundary.
	minEnd := func(s int) int { return s + c.ChunkSize*4/5 }

	for start < len(text) {
		end := start + c.ChunkSize

		if end < len(text) {
			soft := end
			for soft > minEnd(start) && !strings.ContainsRune(breakChars, rune(text[soft])) {
				soft--
			}
			if soft > minEnd(start) {
				end = soft
			} else if adj := runeFloor(text, end, start); adj > start {
				// Hard cut: back off so a multibyte character is never split.
				end = adj
			}
		} else {
			end = len(text)
		}

		content := strings.TrimSpace(text[start:end])
		if content != "" {
			chunks = append(chunks, models.DocumentChunk{
				ID:         chunkID(sourceURL, index),
				Content:    content,
				SourceURL:  sourceURL,
				Title:      title,
				ChunkIndex: index,
				CreatedAt:  now,
			})
			index++
		}

		next := end - c.ChunkOverlap
		if next <= start {
			// An overlap wider than the realized window would move the
			// cursor backward or stall it; step to the cut instead.
			next = end
		}
		for next < len(text) && !utf8.RuneStart(text[next]) {
			next++
		}
		start = next
		if start >= len(text) || end == len(text) {
			break
		}
	}

	return chunks
}

// runeFloor walks cut down to the nearest rune boundary, not below floor.
func runeFloor(text string, cut, floor int) int {
	for cut > floor && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return cut
}
