package collection

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/viant/agentvec/encoder"
	"github.com/viant/agentvec/vector"
)

// Searcher answers keyword queries with the nearest agents.
type Searcher struct {
	svc        vector.Service
	enc        encoder.Encoder
	collection string
	params     vector.SearchParams
	autoLoad   bool
	strict     bool
	logger     *slog.Logger
}

// NewSearcher returns a Searcher over collection. enc must be the encoder
// (or an encoder of the same model) the records were inserted with.
func NewSearcher(svc vector.Service, enc encoder.Encoder, collection string, opts ...Option) *Searcher {
	o := newOptions(opts)
	return &Searcher{
		svc:        svc,
		enc:        enc,
		collection: collection,
		params:     o.searchParams,
		autoLoad:   o.autoLoad,
		strict:     o.strictModel,
		logger:     o.logger,
	}
}

// Load brings the collection index into a queryable state.
func (s *Searcher) Load(ctx context.Context) error {
	return s.svc.Load(ctx, s.collection)
}

// Search returns at most k matches ordered by ascending distance; k <= 0
// means vector.DefaultK.
func (s *Searcher) Search(ctx context.Context, keywords []string, k int) ([]vector.Match, error) {
	if k <= 0 {
		k = vector.DefaultK
	}
	if s.autoLoad {
		if err := s.Load(ctx); err != nil {
			return nil, err
		}
	}
	query, err := s.enc.Encode(ctx, encoder.Join(keywords))
	if err != nil {
		if vector.KindOf(err) == vector.KindUnknown {
			err = vector.NewError(vector.KindEmbedding, "search", s.collection, err)
		}
		return nil, err
	}
	matches, err := s.svc.Search(ctx, s.collection, query, k, s.params)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(matches, func(a, b int) bool { return matches[a].Distance < matches[b].Distance })
	if len(matches) > k {
		matches = matches[:k]
	}
	if err := s.checkDrift(matches); err != nil {
		return nil, err
	}
	return matches, nil
}

// checkDrift compares the model stamp of each hit with the query encoder.
// Backends that do not persist stamps report an empty model, which is
// never treated as drift.
func (s *Searcher) checkDrift(matches []vector.Match) error {
	model := s.enc.Model()
	for _, m := range matches {
		if m.EmbeddingModel == "" || m.EmbeddingModel == model {
			continue
		}
		if s.strict {
			return vector.NewError(vector.KindEmbeddingDrift, "search", s.collection,
				fmt.Errorf("record %s embedded with %q, query with %q", m.ID, m.EmbeddingModel, model))
		}
		s.logger.Warn("embedding model drift", "collection", s.collection, "id", m.ID, "stored", m.EmbeddingModel, "query", model)
		return nil
	}
	return nil
}
