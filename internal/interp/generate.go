package interp

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/siderealab/ephemeris/internal/corpus"
	ferrors "github.com/siderealab/ephemeris/internal/errors"
	"github.com/siderealab/ephemeris/internal/search"
	"github.com/siderealab/ephemeris/internal/store"
)

// Completer is the text-generation collaborator behind the retrieval-
// augmented generator. Implementations wrap an LLM endpoint.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// RetrievalGenerator is a Generator that grounds each interpretation in
// reference documents: it retrieves context through the hybrid engine and
// hands a context-stuffed prompt to the Completer.
type RetrievalGenerator struct {
	engine       *search.Engine
	corpus       *corpus.Manager
	completer    Completer
	model        string
	contextLimit int
}

// Verify interface implementation at compile time.
var _ Generator = (*RetrievalGenerator)(nil)

// NewRetrievalGenerator wires a retrieval-augmented generator.
func NewRetrievalGenerator(engine *search.Engine, corpusMgr *corpus.Manager, completer Completer, model string, contextLimit int) *RetrievalGenerator {
	if contextLimit <= 0 {
		contextLimit = 5
	}
	return &RetrievalGenerator{
		engine:       engine,
		corpus:       corpusMgr,
		completer:    completer,
		model:        model,
		contextLimit: contextLimit,
	}
}

// Generate retrieves reference context for the subject and generates the
// interpretation text. Retrieval failures degrade to an uncontexted
// prompt; only the completion itself can fail the call.
func (g *RetrievalGenerator) Generate(ctx context.Context, req GenerateRequest) (*Generated, error) {
	query := buildQuery(req)

	var refs []*store.Document
	results, err := g.engine.SearchText(ctx, query, search.Options{Limit: g.contextLimit})
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		// Retrieval outage: generate without context.
		results = nil
	}
	for _, r := range results {
		if doc := g.corpus.Get(r.DocID); doc != nil {
			refs = append(refs, doc)
		}
	}

	prompt := buildPrompt(req, refs)
	content, err := g.completer.Complete(ctx, prompt)
	if err != nil {
		return nil, ferrors.Wrap(ferrors.ErrCodeGenerationFailed, err)
	}

	return &Generated{
		Content:       content,
		ReferenceDocs: refs,
		Model:         g.model,
	}, nil
}

// buildQuery turns the subject parameters into retrieval query text.
func buildQuery(req GenerateRequest) string {
	parts := []string{req.Subject}

	keys := make([]string, 0, len(req.Params))
	for k := range req.Params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		parts = append(parts, req.Params[k])
	}

	return strings.Join(parts, " ")
}

// buildPrompt assembles the generation prompt with retrieved context.
func buildPrompt(req GenerateRequest, refs []*store.Document) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Write the %s interpretation for %s (language: %s).\n",
		req.Kind, req.Subject, req.Language)

	keys := make([]string, 0, len(req.Params))
	for k := range req.Params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "%s: %s\n", k, req.Params[k])
	}

	if len(refs) > 0 {
		b.WriteString("\nReference material:\n")
		for _, doc := range refs {
			fmt.Fprintf(&b, "- %s: %s\n", doc.Title, doc.Content)
		}
	}

	return b.String()
}
