// Package interp implements the tiered interpretation engine: a per-subject
// orchestrator that resolves content through durable store, shared cache,
// and generation, and a facade that fans the orchestrator out across every
// subject of a request.
package interp

import (
	"context"
	"time"

	"github.com/siderealab/ephemeris/internal/store"
)

// Source identifies the tier that produced a result.
type Source string

const (
	// SourceDurable means the durable store had a record for the tuple.
	SourceDurable Source = "durable"
	// SourceShared means the shared cache had an entry for the derived key.
	SourceShared Source = "shared"
	// SourceGenerated means the content was generated for this request.
	SourceGenerated Source = "generated"
)

// FetchResult is the per-subject outcome of one orchestrator run.
type FetchResult struct {
	Kind           string `json:"kind"`
	Subject        string `json:"subject"`
	Content        string `json:"content"`
	Source         Source `json:"source"`
	Outdated       bool   `json:"outdated"`
	ReferenceDocs  int    `json:"reference_docs"`
	ContentVersion string `json:"content_version"`
	Model          string `json:"model"`
}

// RunMetadata aggregates one facade call.
type RunMetadata struct {
	TotalItems     int           `json:"total_items"`
	DurableHits    int           `json:"durable_hits"`
	SharedHits     int           `json:"shared_hits"`
	Generations    int           `json:"generations"`
	OutdatedCount  int           `json:"outdated_count"`
	DocumentsUsed  int           `json:"documents_used"`
	ContentVersion string        `json:"content_version"`
	Elapsed        time.Duration `json:"elapsed"`
}

// GenerateRequest is the input to the generation collaborator. Params are
// the subject's normalized parameters extracted from live chart data.
type GenerateRequest struct {
	ChartID  string
	Kind     string
	Subject  string
	Params   map[string]string
	Language string
}

// Generated is the output of the generation collaborator.
type Generated struct {
	Content       string
	ReferenceDocs []*store.Document
	Model         string
}

// Generator produces interpretation text for one subject. Implementations
// are external collaborators; failures surface as per-subject errors, never
// failing the batch.
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (*Generated, error)
}

// Subject is one unit of work: a named subject with its normalized
// parameters extracted from the chart's current data.
type Subject struct {
	Name   string
	Params map[string]string
}

// TypeSpec declares one subject category of a request. The facade is
// type-agnostic: the concrete categories and their subject extraction are
// supplied by the caller. A singular type yields one object instead of a
// map.
type TypeSpec struct {
	Kind     string
	Singular bool
	Subjects []Subject
}

// Request is one facade call.
type Request struct {
	ChartID  string
	Language string
	Types    []TypeSpec

	// Regenerate lists kinds whose cache tiers are skipped.
	Regenerate []string
}

// SubjectError marks one failed subject in an otherwise successful batch.
type SubjectError struct {
	Kind    string `json:"kind"`
	Subject string `json:"subject"`
	Err     error  `json:"-"`
	Message string `json:"error"`
}

// Response is the facade's aggregate: successful results grouped by kind
// (subject-keyed maps, or a single object for singular kinds), per-subject
// errors, and run statistics.
type Response struct {
	Groups   map[string]map[string]*FetchResult `json:"groups"`
	Singles  map[string]*FetchResult            `json:"singles,omitempty"`
	Errors   []SubjectError                     `json:"errors,omitempty"`
	Metadata RunMetadata                        `json:"metadata"`
}
