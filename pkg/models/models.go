package models

import "time"

// DocumentChunk is a contiguous slice of one source page's text. It is the
// unit of embedding and storage; once persisted it is never mutated.
type DocumentChunk struct {
	ID         string    `json:"id"`
	Content    string    `json:"content"`
	SourceURL  string    `json:"source_url"`
	Title      string    `json:"title"`
	ChunkIndex int       `json:"chunk_index"`
	Embedding  []float32 `json:"-"`
	CreatedAt  time.Time `json:"created_at"`
}

// ChunkMetadata is the persisted metadata carried alongside a chunk's text
// in search results.
type ChunkMetadata struct {
	SourceURL  string    `json:"source_url"`
	Title      string    `json:"title"`
	ChunkIndex int       `json:"chunk_index"`
	CreatedAt  time.Time `json:"created_at"`
}

// SearchResult is an ephemeral record returned by a similarity query.
// Distance is lower-is-better; the exact metric depends on the backend
// (cosine distance, or 1 - inner product on unit vectors).
type SearchResult struct {
	Content  string        `json:"content"`
	Metadata ChunkMetadata `json:"metadata"`
	Distance float64       `json:"distance"`
}

// ScrapedPage is one crawled page record. Crawl sessions are persisted as
// one JSON array of these per session file.
type ScrapedPage struct {
	URL       string    `json:"url"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Language  string    `json:"language,omitempty"`
	ScrapedAt time.Time `json:"scraped_at"`
	Links     []string  `json:"links"`
}

// Turn is a single conversation message.
type Turn struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// TokenUsage mirrors the completion API's token accounting when available.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Answer is the envelope returned for one chat query. When Error is set,
// Response carries a human-readable message and history was not touched.
type Answer struct {
	Response    string      `json:"response"`
	Model       string      `json:"model"`
	Timestamp   time.Time   `json:"timestamp"`
	TokenUsage  *TokenUsage `json:"token_usage,omitempty"`
	SourcesUsed int         `json:"sources_used"`
	Error       bool        `json:"error,omitempty"`
}

// DatabaseInfo describes a retrieval database for observability.
type DatabaseInfo struct {
	Backend      string `json:"backend"`
	Embedding    string `json:"embedding"`
	ChunkSize    int    `json:"chunk_size"`
	ChunkOverlap int    `json:"chunk_overlap"`
	TotalVectors int    `json:"total_vectors,omitempty"`
}
