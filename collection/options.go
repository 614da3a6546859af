// Package collection implements the agent collection pipeline on top of a
// vector.Service: schema management, the embed and insert path with its
// index rebuild policy, and the embed and search query path.
package collection

import (
	"log/slog"

	"github.com/viant/agentvec/vector"
)

// DefaultDescription describes the agent collection schema.
const DefaultDescription = "Database collection where context of agents will be stored."

type options struct {
	logger       *slog.Logger
	description  string
	dim          int
	indexParams  vector.IndexParams
	searchParams vector.SearchParams
	policy       RebuildPolicy
	autoLoad     bool
	strictModel  bool
}

func newOptions(opts []Option) *options {
	o := &options{
		description:  DefaultDescription,
		dim:          vector.Dimension,
		indexParams:  vector.DefaultIndexParams(),
		searchParams: vector.DefaultSearchParams(),
		autoLoad:     true,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.policy == nil {
		o.policy = Immediate()
	}
	return o
}

// Option configures the components of this package. Components ignore
// options that do not apply to them.
type Option func(*options)

// WithLogger sets the logger; slog.Default() is used otherwise.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithDescription sets the description of created collections.
func WithDescription(d string) Option {
	return func(o *options) { o.description = d }
}

// WithDimension sets the embedding dimension of created collections.
func WithDimension(dim int) Option {
	return func(o *options) { o.dim = dim }
}

// WithIndexParams sets the index built by the Inserter.
func WithIndexParams(p vector.IndexParams) Option {
	return func(o *options) { o.indexParams = p }
}

// WithSearchParams sets the query parameters of the Searcher.
func WithSearchParams(p vector.SearchParams) Option {
	return func(o *options) { o.searchParams = p }
}

// WithPolicy sets the rebuild policy of the Inserter; Immediate by default.
func WithPolicy(p RebuildPolicy) Option {
	return func(o *options) { o.policy = p }
}

// WithAutoLoad controls whether the Searcher loads the collection before
// every query (default true). With auto load disabled the caller must call
// Searcher.Load first.
func WithAutoLoad(enabled bool) Option {
	return func(o *options) { o.autoLoad = enabled }
}

// WithStrictModel makes the Searcher fail with vector.ErrEmbeddingDrift when
// a hit was embedded by a different model than the query. Drift is only
// logged by default.
func WithStrictModel(strict bool) Option {
	return func(o *options) { o.strictModel = strict }
}
