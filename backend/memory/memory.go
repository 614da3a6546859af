// Package memory provides an in-process vector.Service. It keeps records,
// built indexes and load state in maps guarded by a mutex and is intended
// for tests and demos.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/viant/agentvec/index"
	"github.com/viant/agentvec/vector"
)

type collection struct {
	schema  *vector.Schema
	records []vector.Record
	byID    map[string]int
	params  vector.IndexParams
	built   index.Index
	loaded  index.Index
}

// Service is an in-memory vector.Service.
type Service struct {
	mu          sync.RWMutex
	collections map[string]*collection
	newID       func() string
}

// Option customizes a Service.
type Option func(*Service)

// WithIDGenerator overrides the primary key generator (uuid v4 by default).
func WithIDGenerator(fn func() string) Option {
	return func(s *Service) { s.newID = fn }
}

// New returns an empty Service.
func New(opts ...Option) *Service {
	s := &Service{collections: map[string]*collection{}, newID: uuid.NewString}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Exists(ctx context.Context, name string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, vector.NewError(vector.KindConnection, "exists", name, err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.collections[name]
	return ok, nil
}

func (s *Service) Create(ctx context.Context, schema *vector.Schema) error {
	if err := schema.Validate(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return vector.NewError(vector.KindConnection, "create", schema.Name, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.collections[schema.Name]; ok {
		return vector.NewError(vector.KindSchemaAlreadyExists, "create", schema.Name, nil)
	}
	s.collections[schema.Name] = &collection{schema: schema, byID: map[string]int{}}
	return nil
}

func (s *Service) Insert(ctx context.Context, name string, records []vector.Record) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, vector.NewError(vector.KindConnection, "insert", name, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.collection("insert", name)
	if err != nil {
		return nil, err
	}
	dim := c.schema.Dim()
	for _, r := range records {
		if err := vector.ValidateRecord(&r, dim); err != nil {
			return nil, err
		}
	}
	ids := make([]string, len(records))
	for i, r := range records {
		r.ID = s.newID()
		if _, dup := c.byID[r.ID]; dup {
			return ids[:i], vector.NewError(vector.KindWrite, "insert", name, fmt.Errorf("duplicate primary key %q", r.ID))
		}
		r.Keywords = append([]string(nil), r.Keywords...)
		r.Embedding = append([]float32(nil), r.Embedding...)
		c.byID[r.ID] = len(c.records)
		c.records = append(c.records, r)
		ids[i] = r.ID
	}
	return ids, nil
}

func (s *Service) BuildIndex(ctx context.Context, name string, params vector.IndexParams) error {
	if err := ctx.Err(); err != nil {
		return vector.NewError(vector.KindConnection, "build index", name, err)
	}
	if err := params.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.collection("build index", name)
	if err != nil {
		return err
	}
	ids := make([]string, len(c.records))
	vecs := make([][]float32, len(c.records))
	for i, r := range c.records {
		ids[i] = r.ID
		vecs[i] = r.Embedding
	}
	idx, err := index.Build(params, ids, vecs)
	if err != nil {
		return vector.NewError(vector.KindIndex, "build index", name, err)
	}
	c.params, c.built = params, idx
	if c.loaded != nil {
		c.loaded = idx
	}
	return nil
}

func (s *Service) Load(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return vector.NewError(vector.KindConnection, "load", name, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.collection("load", name)
	if err != nil {
		return err
	}
	if c.built == nil {
		return vector.NewError(vector.KindIndex, "load", name, vector.ErrNoIndex)
	}
	c.loaded = c.built
	return nil
}

func (s *Service) Search(ctx context.Context, name string, query []float32, k int, params vector.SearchParams) ([]vector.Match, error) {
	if err := ctx.Err(); err != nil {
		return nil, vector.NewError(vector.KindConnection, "search", name, err)
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, err := s.collection("search", name)
	if err != nil {
		return nil, err
	}
	if c.loaded == nil {
		return nil, vector.NewError(vector.KindNotLoaded, "search", name, nil)
	}
	if params.Metric != c.params.Metric {
		return nil, vector.NewError(vector.KindQuery, "search", name, fmt.Errorf("metric %s does not match index metric %s", params.Metric, c.params.Metric))
	}
	ids, dists, err := c.loaded.Query(query, k, params.NProbe)
	if err != nil {
		return nil, vector.NewError(vector.KindQuery, "search", name, err)
	}
	matches := make([]vector.Match, len(ids))
	for i, id := range ids {
		r := c.records[c.byID[id]]
		matches[i] = vector.Match{ID: id, Name: r.Name, Distance: dists[i], EmbeddingModel: r.EmbeddingModel}
	}
	return matches, nil
}

// Records returns a copy of the stored records in insertion order.
func (s *Service) Records(name string) []vector.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.collections[name]
	if !ok {
		return nil
	}
	return append([]vector.Record(nil), c.records...)
}

func (s *Service) collection(op, name string) (*collection, error) {
	c, ok := s.collections[name]
	if !ok {
		return nil, vector.NewError(vector.KindSchemaMissing, op, name, nil)
	}
	return c, nil
}
