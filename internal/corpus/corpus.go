// Package corpus loads reference documents and keeps the lexical and dense
// indexes in sync with them.
package corpus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/siderealab/ephemeris/internal/embed"
	"github.com/siderealab/ephemeris/internal/store"
)

// Manager owns the in-memory document set and writes through to both
// indexes. Dense indexing is best effort: documents whose embedding is
// unavailable are still searchable lexically.
type Manager struct {
	lexical  *store.LexicalIndex
	dense    *store.DenseIndex
	embedder embed.Embedder

	mu   sync.RWMutex
	docs map[string]*store.Document
}

// NewManager creates a corpus manager.
func NewManager(lexical *store.LexicalIndex, dense *store.DenseIndex, embedder embed.Embedder) *Manager {
	return &Manager{
		lexical:  lexical,
		dense:    dense,
		embedder: embedder,
		docs:     make(map[string]*store.Document),
	}
}

// LoadDir ingests every *.json file under dir. Each file holds either one
// document object or an array of them. The full set replaces the current
// corpus.
func (m *Manager) LoadDir(ctx context.Context, dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("failed to read corpus dir %s: %w", dir, err)
	}

	var docs []*store.Document
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		fileDocs, err := readDocumentFile(path)
		if err != nil {
			slog.Warn("corpus_file_skipped",
				slog.String("path", path),
				slog.String("error", err.Error()))
			continue
		}
		docs = append(docs, fileDocs...)
	}

	if err := m.Replace(ctx, docs); err != nil {
		return 0, err
	}
	return len(docs), nil
}

// readDocumentFile parses one JSON document file.
func readDocumentFile(path string) ([]*store.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") {
		var docs []*store.Document
		if err := json.Unmarshal(data, &docs); err != nil {
			return nil, err
		}
		return docs, nil
	}

	var doc store.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return []*store.Document{&doc}, nil
}

// Replace swaps the whole corpus for docs and rebuilds both indexes.
func (m *Manager) Replace(ctx context.Context, docs []*store.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()
	m.docs = make(map[string]*store.Document, len(docs))

	ids := make([]string, 0, len(docs))
	contents := make([]string, 0, len(docs))
	for _, doc := range docs {
		if doc.ID == "" {
			doc.ID = uuid.NewString()
		}
		if doc.CreatedAt.IsZero() {
			doc.CreatedAt = now
		}
		m.docs[doc.ID] = doc
		ids = append(ids, doc.ID)
		contents = append(contents, doc.Title+"\n"+doc.Content)
	}

	if err := m.lexical.BuildIndex(contents, ids); err != nil {
		return err
	}

	return m.indexDense(ctx, docs, contents)
}

// Add ingests a batch of documents into the existing corpus.
func (m *Manager) Add(ctx context.Context, docs []*store.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()
	ids := make([]string, 0, len(docs))
	contents := make([]string, 0, len(docs))
	for _, doc := range docs {
		if doc.ID == "" {
			doc.ID = uuid.NewString()
		}
		if doc.CreatedAt.IsZero() {
			doc.CreatedAt = now
		}
		m.docs[doc.ID] = doc
		ids = append(ids, doc.ID)
		contents = append(contents, doc.Title+"\n"+doc.Content)
	}

	if err := m.lexical.AddDocuments(contents, ids); err != nil {
		return err
	}

	return m.indexDense(ctx, docs, contents)
}

// indexDense embeds contents and upserts them with payloads. Caller holds
// the lock. A nil embedding batch leaves the documents lexical-only.
func (m *Manager) indexDense(ctx context.Context, docs []*store.Document, contents []string) error {
	if m.embedder == nil || !m.dense.Enabled() || len(docs) == 0 {
		return nil
	}

	vectors, err := m.embedder.EmbedBatch(ctx, contents)
	if err != nil {
		if ctx.Err() != nil {
			return err
		}
		slog.Warn("corpus_embedding_failed", slog.String("error", err.Error()))
		return nil
	}
	if vectors == nil {
		slog.Warn("corpus_embedding_unavailable",
			slog.Int("documents", len(docs)),
			slog.String("mode", "lexical_only"))
		return nil
	}

	ids := make([]string, 0, len(docs))
	vecs := make([][]float32, 0, len(docs))
	payloads := make([]map[string]string, 0, len(docs))
	for i, doc := range docs {
		if vectors[i] == nil {
			continue
		}
		ids = append(ids, doc.ID)
		vecs = append(vecs, vectors[i])
		payloads = append(payloads, map[string]string{
			"type":  doc.Type,
			"title": doc.Title,
		})
		doc.VectorID = doc.ID
	}
	if len(ids) == 0 {
		return nil
	}

	if err := m.dense.Upsert(ctx, ids, vecs, payloads); err != nil {
		slog.Warn("corpus_dense_upsert_failed", slog.String("error", err.Error()))
	}
	return nil
}

// Remove deletes a document from the corpus and both indexes.
func (m *Manager) Remove(ctx context.Context, id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.docs[id]; !ok {
		return false
	}
	delete(m.docs, id)

	removed := m.lexical.RemoveDocument(id)
	if err := m.dense.Delete(ctx, []string{id}); err != nil {
		slog.Warn("corpus_dense_delete_failed",
			slog.String("id", id),
			slog.String("error", err.Error()))
	}
	return removed
}

// Get returns the document with the given id, or nil.
func (m *Manager) Get(id string) *store.Document {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.docs[id]
}

// Documents returns all documents sorted by id.
func (m *Manager) Documents() []*store.Document {
	m.mu.RLock()
	defer m.mu.RUnlock()

	docs := make([]*store.Document, 0, len(m.docs))
	for _, doc := range m.docs {
		docs = append(docs, doc)
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	return docs
}

// Count returns the number of documents.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.docs)
}
