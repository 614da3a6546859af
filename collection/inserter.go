package collection

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/viant/agentvec/encoder"
	"github.com/viant/agentvec/vector"
)

// Inserter embeds and writes agent records, then lets its RebuildPolicy
// decide when the index is rebuilt. Rebuilds of one Inserter never overlap.
type Inserter struct {
	svc        vector.Service
	enc        encoder.Encoder
	collection string
	params     vector.IndexParams
	policy     RebuildPolicy
	logger     *slog.Logger

	mu       sync.Mutex // serializes BuildIndex calls
	group    singleflight.Group
	inserted atomic.Int64
	indexed  atomic.Int64
}

// NewInserter returns an Inserter writing to collection.
func NewInserter(svc vector.Service, enc encoder.Encoder, collection string, opts ...Option) *Inserter {
	o := newOptions(opts)
	return &Inserter{
		svc:        svc,
		enc:        enc,
		collection: collection,
		params:     o.indexParams,
		policy:     o.policy,
		logger:     o.logger,
	}
}

// Insert validates keywords, embeds their joined form, writes the record and
// hands off to the rebuild policy. It returns the generated primary key.
//
// An index failure is returned together with the id: the record is durably
// written and Rebuild retries only the index construction.
func (i *Inserter) Insert(ctx context.Context, name string, keywords []string) (string, error) {
	if err := vector.ValidateName(name); err != nil {
		return "", err
	}
	if err := vector.ValidateKeywords(keywords); err != nil {
		return "", err
	}
	emb, err := i.enc.Encode(ctx, encoder.Join(keywords))
	if err != nil {
		if vector.KindOf(err) == vector.KindUnknown {
			err = vector.NewError(vector.KindEmbedding, "insert", i.collection, err)
		}
		return "", err
	}
	ids, err := i.svc.Insert(ctx, i.collection, []vector.Record{{
		Name:           name,
		Keywords:       keywords,
		Embedding:      emb,
		EmbeddingModel: i.enc.Model(),
	}})
	if err != nil {
		return "", err
	}
	if len(ids) != 1 {
		return "", vector.NewError(vector.KindWrite, "insert", i.collection, fmt.Errorf("expected 1 id, got %d", len(ids)))
	}
	i.inserted.Add(1)
	i.logger.Debug("record inserted", "collection", i.collection, "id", ids[0], "name", name)
	if err := i.policy.Inserted(ctx, i.rebuild); err != nil {
		return ids[0], err
	}
	return ids[0], nil
}

// Rebuild rebuilds the whole index now, regardless of pending inserts.
func (i *Inserter) Rebuild(ctx context.Context) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.build(ctx)
}

// Flush makes every insert so far searchable.
func (i *Inserter) Flush(ctx context.Context) error {
	return i.policy.Flush(ctx, i.rebuild)
}

// Pending returns the number of inserts not yet covered by a rebuild.
func (i *Inserter) Pending() int64 {
	return i.inserted.Load() - i.indexed.Load()
}

// Close stops the rebuild policy.
func (i *Inserter) Close() error {
	return i.policy.Close()
}

// rebuild brings the index up to date. Concurrent callers share one
// BuildIndex call; a caller whose inserts arrived after the shared build
// started waits for the next one.
func (i *Inserter) rebuild(ctx context.Context) error {
	target := i.inserted.Load()
	for i.indexed.Load() < target {
		_, err, _ := i.group.Do("rebuild", func() (interface{}, error) {
			i.mu.Lock()
			defer i.mu.Unlock()
			return nil, i.build(ctx)
		})
		if err != nil {
			i.logger.Warn("index rebuild failed", "collection", i.collection, "error", err)
			return err
		}
	}
	return nil
}

// build runs BuildIndex; i.mu must be held.
func (i *Inserter) build(ctx context.Context) error {
	covered := i.inserted.Load()
	if err := i.svc.BuildIndex(ctx, i.collection, i.params); err != nil {
		return err
	}
	if covered > i.indexed.Load() {
		i.indexed.Store(covered)
	}
	return nil
}
