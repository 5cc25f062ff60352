package store

import (
	"math"
	"sort"
	"sync"

	ferrors "github.com/siderealab/ephemeris/internal/errors"
)

// LexicalIndex scores free-text queries against a bounded in-memory corpus
// using BM25. The scoring model needs corpus-global statistics (document
// frequency, average length), so every mutation rebuilds the whole index
// under the write lock. Mutation is O(corpus) and rare; reads block only
// for the rebuild duration.
type LexicalIndex struct {
	mu        sync.RWMutex
	config    LexicalConfig
	stopWords map[string]struct{}

	// Raw corpus, kept so mutations can rebuild.
	contents []string
	ids      []string

	// Derived state, recomputed on every rebuild.
	tokenized  [][]string
	termFreqs  []map[string]int
	docLens    []int
	docFreq    map[string]int
	avgDocLen  float64
	totalTerms int
}

// NewLexicalIndex creates an empty lexical index.
func NewLexicalIndex(config LexicalConfig) *LexicalIndex {
	if config.K1 <= 0 {
		config.K1 = 1.2
	}
	if config.B < 0 || config.B > 1 {
		config.B = 0.75
	}
	stopWords := config.StopWords
	if len(stopWords) == 0 {
		stopWords = DefaultStopWords
	}
	return &LexicalIndex{
		config:    config,
		stopWords: BuildStopWordMap(stopWords),
		docFreq:   make(map[string]int),
	}
}

// BuildIndex replaces the corpus with the given documents and recomputes
// all term statistics. contents and ids are parallel; a length skew is a
// caller bug and fails fast.
func (x *LexicalIndex) BuildIndex(contents []string, ids []string) error {
	if len(contents) != len(ids) {
		return ferrors.DimensionMismatch(len(contents), len(ids))
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	x.contents = append([]string(nil), contents...)
	x.ids = append([]string(nil), ids...)
	x.rebuild()
	return nil
}

// rebuild recomputes tokenized corpus and term statistics.
// Caller must hold the write lock.
func (x *LexicalIndex) rebuild() {
	n := len(x.contents)
	x.tokenized = make([][]string, n)
	x.termFreqs = make([]map[string]int, n)
	x.docLens = make([]int, n)
	x.docFreq = make(map[string]int, len(x.docFreq))
	x.totalTerms = 0

	for i, content := range x.contents {
		tokens := Tokenize(content, x.stopWords)
		x.tokenized[i] = tokens
		x.docLens[i] = len(tokens)
		x.totalTerms += len(tokens)

		tf := make(map[string]int, len(tokens))
		for _, t := range tokens {
			tf[t]++
		}
		x.termFreqs[i] = tf

		for t := range tf {
			x.docFreq[t]++
		}
	}

	if n > 0 {
		x.avgDocLen = float64(x.totalTerms) / float64(n)
	} else {
		x.avgDocLen = 0
	}
}

// Search tokenizes the query and scores every corpus document with BM25.
// Results are sorted descending by score with ties broken by corpus
// insertion order, filtered below minScore, and truncated to limit.
// A query that tokenizes to nothing returns empty.
func (x *LexicalIndex) Search(query string, limit int, minScore float64) []LexicalResult {
	x.mu.RLock()
	defer x.mu.RUnlock()

	queryTokens := Tokenize(query, x.stopWords)
	if len(queryTokens) == 0 || len(x.ids) == 0 {
		return []LexicalResult{}
	}

	n := float64(len(x.ids))
	results := make([]LexicalResult, 0, len(x.ids))

	for i := range x.ids {
		score := 0.0
		docLen := float64(x.docLens[i])
		for _, term := range queryTokens {
			tf := float64(x.termFreqs[i][term])
			if tf == 0 {
				continue
			}
			df := float64(x.docFreq[term])
			idf := math.Log((n-df+0.5)/(df+0.5) + 1)
			norm := x.config.K1 * (1 - x.config.B + x.config.B*docLen/x.avgDocLen)
			score += idf * (tf * (x.config.K1 + 1)) / (tf + norm)
		}
		if score > 0 && score >= minScore {
			results = append(results, LexicalResult{DocID: x.ids[i], Score: score})
		}
	}

	// Stable keeps insertion order for equal scores.
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results
}

// AddDocument appends one document and rebuilds the index.
// Prefer AddDocuments for batches to avoid rebuilding once per document.
func (x *LexicalIndex) AddDocument(content, id string) {
	x.mu.Lock()
	defer x.mu.Unlock()

	x.contents = append(x.contents, content)
	x.ids = append(x.ids, id)
	x.rebuild()
}

// AddDocuments appends a batch of documents and rebuilds the index once.
func (x *LexicalIndex) AddDocuments(contents []string, ids []string) error {
	if len(contents) != len(ids) {
		return ferrors.DimensionMismatch(len(contents), len(ids))
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	x.contents = append(x.contents, contents...)
	x.ids = append(x.ids, ids...)
	x.rebuild()
	return nil
}

// RemoveDocument removes the document with the given id and rebuilds.
// Returns false if the id was not present.
func (x *LexicalIndex) RemoveDocument(id string) bool {
	x.mu.Lock()
	defer x.mu.Unlock()

	idx := -1
	for i, existing := range x.ids {
		if existing == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false
	}

	x.contents = append(x.contents[:idx], x.contents[idx+1:]...)
	x.ids = append(x.ids[:idx], x.ids[idx+1:]...)
	x.rebuild()
	return true
}

// Stats returns corpus statistics.
func (x *LexicalIndex) Stats() LexicalStats {
	x.mu.RLock()
	defer x.mu.RUnlock()

	return LexicalStats{
		DocumentCount: len(x.ids),
		AvgDocLength:  x.avgDocLen,
		TotalTerms:    x.totalTerms,
		UniqueTerms:   len(x.docFreq),
		K1:            x.config.K1,
		B:             x.config.B,
	}
}
