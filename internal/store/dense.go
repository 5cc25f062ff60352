package store

import (
	"bufio"
	"context"
	"encoding/gob"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sync"

	"github.com/coder/hnsw"

	ferrors "github.com/siderealab/ephemeris/internal/errors"
)

// DenseConfig configures the dense index adapter.
type DenseConfig struct {
	// Path is the collection file location. Empty means in-memory only.
	Path string

	// Collection is the logical collection name.
	Collection string

	// Dimensions is the vector dimension.
	Dimensions int

	// Metric is the distance metric: "cos" (cosine) or "l2" (euclidean).
	Metric string

	// M is HNSW max connections per layer.
	M int

	// EfSearch is HNSW query-time search width.
	EfSearch int
}

// DefaultDenseConfig returns sensible defaults for the dense index.
func DefaultDenseConfig(dimensions int) DenseConfig {
	return DenseConfig{
		Collection: "reference_docs",
		Dimensions: dimensions,
		Metric:     "cos",
		M:          16,
		EfSearch:   32,
	}
}

// DenseIndex is the boundary to the vector store, backed by an HNSW graph.
// If the collection cannot be opened or created at construction time the
// index is disabled: every call becomes a no-op returning empty results,
// so the rest of the system runs in lexical-only mode.
type DenseIndex struct {
	mu      sync.RWMutex
	graph   *hnsw.Graph[uint64]
	config  DenseConfig
	enabled bool

	// ID mapping (string <-> uint64) plus per-id payloads.
	idMap    map[string]uint64
	keyMap   map[uint64]string
	payloads map[string]map[string]string
	nextKey  uint64
}

// denseMetadata stores ID mappings and payloads for persistence.
type denseMetadata struct {
	IDMap    map[string]uint64
	Payloads map[string]map[string]string
	NextKey  uint64
	Config   DenseConfig
}

// NewDenseIndex opens or creates the configured collection. Construction
// never returns an error: on failure the index comes up disabled and the
// failure is logged.
func NewDenseIndex(cfg DenseConfig) *DenseIndex {
	if cfg.Metric == "" {
		cfg.Metric = "cos"
	}
	if cfg.M == 0 {
		cfg.M = 16
	}
	if cfg.EfSearch == 0 {
		cfg.EfSearch = 32
	}

	d := &DenseIndex{
		config:   cfg,
		idMap:    make(map[string]uint64),
		keyMap:   make(map[uint64]string),
		payloads: make(map[string]map[string]string),
	}

	if cfg.Dimensions <= 0 {
		slog.Warn("dense_index_disabled",
			slog.String("collection", cfg.Collection),
			slog.String("reason", "non-positive dimensions"))
		return d
	}

	d.graph = newGraph(cfg)
	d.enabled = true

	if cfg.Path != "" {
		if _, err := os.Stat(cfg.Path); err == nil {
			if err := d.load(cfg.Path); err != nil {
				slog.Warn("dense_index_disabled",
					slog.String("collection", cfg.Collection),
					slog.String("path", cfg.Path),
					slog.String("error", err.Error()))
				d.enabled = false
				return d
			}
		} else if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
			slog.Warn("dense_index_disabled",
				slog.String("collection", cfg.Collection),
				slog.String("path", cfg.Path),
				slog.String("error", err.Error()))
			d.enabled = false
			return d
		}
	}

	return d
}

func newGraph(cfg DenseConfig) *hnsw.Graph[uint64] {
	graph := hnsw.NewGraph[uint64]()
	switch cfg.Metric {
	case "l2":
		graph.Distance = hnsw.EuclideanDistance
	default:
		graph.Distance = hnsw.CosineDistance
	}
	graph.M = cfg.M
	graph.EfSearch = cfg.EfSearch
	graph.Ml = 0.25
	return graph
}

// Enabled reports whether the index is serving calls.
func (d *DenseIndex) Enabled() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.enabled
}

// Health reports nil when the index is serving calls.
func (d *DenseIndex) Health() error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if !d.enabled {
		return ferrors.New(ferrors.ErrCodeIndexUnavailable,
			fmt.Sprintf("collection %s is unavailable", d.config.Collection), nil)
	}
	return nil
}

// Upsert inserts vectors with their IDs and payloads. Existing IDs are
// replaced. vectors, payloads and ids are parallel; payloads may be nil.
func (d *DenseIndex) Upsert(ctx context.Context, ids []string, vectors [][]float32, payloads []map[string]string) error {
	if len(ids) == 0 {
		return nil
	}
	if len(ids) != len(vectors) {
		return ferrors.DimensionMismatch(len(ids), len(vectors))
	}
	if payloads != nil && len(payloads) != len(ids) {
		return ferrors.DimensionMismatch(len(ids), len(payloads))
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.enabled {
		return nil
	}

	for _, v := range vectors {
		if len(v) != d.config.Dimensions {
			return ferrors.DimensionMismatch(d.config.Dimensions, len(v))
		}
	}

	for i, id := range ids {
		// Lazy deletion on replace: orphan the old graph node rather than
		// deleting it, which coder/hnsw handles badly for the last node.
		if existingKey, exists := d.idMap[id]; exists {
			delete(d.keyMap, existingKey)
			delete(d.idMap, id)
		}

		key := d.nextKey
		d.nextKey++

		vec := make([]float32, len(vectors[i]))
		copy(vec, vectors[i])
		if d.config.Metric == "cos" {
			normalizeVectorInPlace(vec)
		}

		d.graph.Add(hnsw.MakeNode(key, vec))

		d.idMap[id] = key
		d.keyMap[key] = id
		if payloads != nil && payloads[i] != nil {
			d.payloads[id] = payloads[i]
		} else {
			delete(d.payloads, id)
		}
	}

	return nil
}

// Search finds up to limit nearest neighbors of query, excluding results
// below minScore and results whose payload does not match every filter
// clause. Returns empty when the index is disabled.
func (d *DenseIndex) Search(ctx context.Context, query []float32, limit int, minScore float32, filters []Filter) ([]*VectorResult, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if !d.enabled || limit <= 0 {
		return []*VectorResult{}, nil
	}
	if len(query) != d.config.Dimensions {
		return nil, ferrors.DimensionMismatch(d.config.Dimensions, len(query))
	}
	if d.graph.Len() == 0 {
		return []*VectorResult{}, nil
	}

	normalized := make([]float32, len(query))
	copy(normalized, query)
	if d.config.Metric == "cos" {
		normalizeVectorInPlace(normalized)
	}

	// Over-fetch when filtering so post-filter results can still fill limit.
	k := limit
	if len(filters) > 0 {
		k = limit * 4
	}
	if graphLen := d.graph.Len(); k > graphLen {
		k = graphLen
	}

	nodes := d.graph.Search(normalized, k)

	results := make([]*VectorResult, 0, limit)
	for _, node := range nodes {
		id, exists := d.keyMap[node.Key]
		if !exists {
			// Lazy-deleted node, skip.
			continue
		}

		payload := d.payloads[id]
		if !matchesFilters(payload, filters) {
			continue
		}

		distance := d.graph.Distance(normalized, node.Value)
		score := distanceToScore(distance, d.config.Metric)
		if score < minScore {
			continue
		}

		results = append(results, &VectorResult{
			ID:      id,
			Score:   score,
			Payload: payload,
		})
		if len(results) == limit {
			break
		}
	}

	return results, nil
}

// matchesFilters reports whether payload satisfies every filter clause.
func matchesFilters(payload map[string]string, filters []Filter) bool {
	for _, f := range filters {
		value, ok := payload[f.Field]
		if !ok {
			return false
		}
		if f.Equals != "" && value != f.Equals {
			return false
		}
		if len(f.AnyOf) > 0 {
			matched := false
			for _, candidate := range f.AnyOf {
				if value == candidate {
					matched = true
					break
				}
			}
			if !matched {
				return false
			}
		}
	}
	return true
}

// Delete removes vectors by ID using lazy deletion.
func (d *DenseIndex) Delete(ctx context.Context, ids []string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.enabled {
		return nil
	}

	for _, id := range ids {
		if key, exists := d.idMap[id]; exists {
			delete(d.keyMap, key)
			delete(d.idMap, id)
			delete(d.payloads, id)
		}
	}
	return nil
}

// CollectionInfo returns collection statistics, or nil when disabled.
func (d *DenseIndex) CollectionInfo() *CollectionInfo {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if !d.enabled {
		return nil
	}
	return &CollectionInfo{
		Name:       d.config.Collection,
		Dimensions: d.config.Dimensions,
		Metric:     d.config.Metric,
		Count:      len(d.idMap),
	}
}

// Save persists the collection to its configured path using a temp file
// plus rename. A no-op for in-memory or disabled collections.
func (d *DenseIndex) Save() error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if !d.enabled || d.config.Path == "" {
		return nil
	}

	path := d.config.Path
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmpPath := path + ".tmp"
	file, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("failed to create collection file: %w", err)
	}

	if err := d.graph.Export(file); err != nil {
		_ = file.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to export graph: %w", err)
	}
	if err := file.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to close collection file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to rename collection file: %w", err)
	}

	return d.saveMetadata(path + ".meta")
}

// saveMetadata saves ID mappings and payloads to a gob file.
func (d *DenseIndex) saveMetadata(path string) error {
	tmpPath := path + ".tmp"
	file, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create temp metadata file: %w", err)
	}

	meta := denseMetadata{
		IDMap:    d.idMap,
		Payloads: d.payloads,
		NextKey:  d.nextKey,
		Config:   d.config,
	}

	if err := gob.NewEncoder(file).Encode(meta); err != nil {
		_ = file.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("encode metadata: %w", err)
	}
	if err := file.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close metadata file: %w", err)
	}
	return os.Rename(tmpPath, path)
}

// load restores the collection from disk.
func (d *DenseIndex) load(path string) error {
	metaFile, err := os.Open(path + ".meta")
	if err != nil {
		return fmt.Errorf("open metadata file: %w", err)
	}
	defer metaFile.Close()

	var meta denseMetadata
	if err := gob.NewDecoder(metaFile).Decode(&meta); err != nil {
		return fmt.Errorf("decode metadata: %w", err)
	}

	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open collection file: %w", err)
	}
	defer file.Close()

	// coder/hnsw Import requires an io.ByteReader.
	if err := d.graph.Import(bufio.NewReader(file)); err != nil {
		return fmt.Errorf("import graph: %w", err)
	}

	d.idMap = meta.IDMap
	d.nextKey = meta.NextKey
	d.payloads = meta.Payloads
	if d.payloads == nil {
		d.payloads = make(map[string]map[string]string)
	}
	d.keyMap = make(map[uint64]string, len(d.idMap))
	for id, key := range d.idMap {
		d.keyMap[key] = id
	}

	return nil
}

// normalizeVectorInPlace normalizes a vector to unit length in place.
func normalizeVectorInPlace(v []float32) {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}
	if sumSquares == 0 {
		return
	}
	invMagnitude := float32(1.0 / math.Sqrt(sumSquares))
	for i := range v {
		v[i] *= invMagnitude
	}
}

// distanceToScore converts a distance value to a similarity score.
// For cosine distance: score = 1 - distance/2 (distance ranges 0-2).
// For L2 distance: score = 1 / (1 + distance).
func distanceToScore(distance float32, metric string) float32 {
	switch metric {
	case "l2":
		return 1.0 / (1.0 + distance)
	default:
		return 1.0 - distance/2.0
	}
}
