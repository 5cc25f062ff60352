// Package store provides the retrieval and persistence layer: the in-memory
// lexical index, the dense index adapter (HNSW), the sqlite durable
// interpretation store, and the redis shared interpretation cache.
package store

import (
	"context"
	"time"
)

// Document is a reference document held by the corpus. Immutable once
// indexed except for deletion.
type Document struct {
	ID        string            `json:"id"`
	Title     string            `json:"title"`
	Content   string            `json:"content"`
	Type      string            `json:"type"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	VectorID  string            `json:"vector_id,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// LexicalResult is a single lexical search hit.
type LexicalResult struct {
	DocID string
	Score float64
}

// LexicalStats describes the lexical index state.
type LexicalStats struct {
	DocumentCount int
	AvgDocLength  float64
	TotalTerms    int
	UniqueTerms   int
	K1            float64
	B             float64
}

// LexicalConfig configures the lexical index.
type LexicalConfig struct {
	// K1 is the term frequency saturation parameter (default: 1.2).
	K1 float64

	// B is the length normalization parameter (default: 0.75).
	B float64

	// StopWords is the combined stopword list. Defaults to
	// DefaultStopWords when empty.
	StopWords []string
}

// DefaultLexicalConfig returns default lexical index configuration.
func DefaultLexicalConfig() LexicalConfig {
	return LexicalConfig{
		K1:        1.2,
		B:         0.75,
		StopWords: DefaultStopWords,
	}
}

// VectorResult is a single dense search hit.
type VectorResult struct {
	ID      string
	Score   float32
	Payload map[string]string
}

// Filter restricts dense search to documents whose payload matches.
// Exactly one of Equals or AnyOf should be set per clause; a document must
// match every clause to be ranked.
type Filter struct {
	Field  string
	Equals string
	AnyOf  []string
}

// CollectionInfo describes the dense collection state.
type CollectionInfo struct {
	Name       string
	Dimensions int
	Metric     string
	Count      int
}

// Interpretation is a durable generated interpretation, unique per
// (chart, kind, subject, language). Superseded records are kept and flagged
// outdated by the caller, never deleted on version bump.
type Interpretation struct {
	ChartID        string    `json:"chart_id"`
	Kind           string    `json:"kind"`
	Subject        string    `json:"subject"`
	Content        string    `json:"content"`
	Model          string    `json:"model"`
	ContentVersion string    `json:"content_version"`
	Language       string    `json:"language"`
	CreatedAt      time.Time `json:"created_at"`
}

// InterpretationStore persists interpretations durably. Lookup errors are
// treated as cache misses by the orchestrator.
type InterpretationStore interface {
	// Get returns the unique record for (chartID, kind, subject, language),
	// or nil if absent.
	Get(ctx context.Context, chartID, kind, subject, language string) (*Interpretation, error)

	// GetAll returns records for a chart, optionally filtered by kind
	// (empty kind means all).
	GetAll(ctx context.Context, chartID, kind, language string) ([]*Interpretation, error)

	// Save upserts a record, replacing any previous record for its tuple.
	Save(ctx context.Context, rec *Interpretation) error

	// Delete removes records for a chart, optionally filtered by kind,
	// returning the number removed.
	Delete(ctx context.Context, chartID, kind, language string) (int, error)

	// Close releases the underlying database.
	Close() error
}

// CacheEntry is a shared, cross-chart interpretation cache entry. It is
// content-addressed: reachable only through its key, never by chart id.
type CacheEntry struct {
	Kind           string    `json:"kind"`
	Subject        string    `json:"subject"`
	Content        string    `json:"content"`
	Model          string    `json:"model"`
	ContentVersion string    `json:"content_version"`
	Language       string    `json:"language"`
	HitCount       int64     `json:"hit_count"`
	LastAccessedAt time.Time `json:"last_accessed_at"`
}

// SharedCache is the shared interpretation cache. Key derivation is owned
// by the caller, not the store. A miss returns (nil, nil); transport errors
// are returned and absorbed as misses by the orchestrator.
type SharedCache interface {
	// Get returns the entry for key or nil on miss. A hit also bumps the
	// entry's hit count and last-accessed time, best effort.
	Get(ctx context.Context, key string) (*CacheEntry, error)

	// Set stores the entry under key.
	Set(ctx context.Context, key string, entry *CacheEntry) error

	// Close releases the underlying client.
	Close() error
}
