// Package milvus implements vector.Service on a Milvus server through the
// official v2 Go client.
package milvus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/milvus-io/milvus/client/v2/column"
	"github.com/milvus-io/milvus/client/v2/entity"
	"github.com/milvus-io/milvus/client/v2/index"
	"github.com/milvus-io/milvus/client/v2/milvusclient"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/viant/agentvec/vector"
)

// Config holds the connection settings.
type Config struct {
	// URI is the server address, for example http://localhost:19530.
	URI string
	// Token is the API key or "user:password" pair; empty when the server
	// has no authentication.
	Token string
}

// Service is a Milvus backed vector.Service.
type Service struct {
	client *milvusclient.Client
	logger *slog.Logger

	mu     sync.RWMutex
	params map[string]vector.IndexParams
	dims   map[string]int
}

// Option customizes a Service.
type Option func(*Service)

// WithLogger sets the logger; slog.Default() is used otherwise.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// Open connects to the server.
func Open(ctx context.Context, cfg Config, opts ...Option) (*Service, error) {
	if cfg.URI == "" {
		return nil, vector.NewError(vector.KindConnection, "open", "", fmt.Errorf("milvus URI is empty"))
	}
	client, err := milvusclient.New(ctx, &milvusclient.ClientConfig{Address: cfg.URI, APIKey: cfg.Token})
	if err != nil {
		return nil, vector.NewError(vector.KindConnection, "open", "", err)
	}
	s := &Service{client: client, params: map[string]vector.IndexParams{}, dims: map[string]int{}}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s, nil
}

// Close closes the client connection.
func (s *Service) Close(ctx context.Context) error {
	return s.client.Close(ctx)
}

func (s *Service) Exists(ctx context.Context, name string) (bool, error) {
	ok, err := s.client.HasCollection(ctx, milvusclient.NewHasCollectionOption(name))
	if err != nil {
		return false, translateError(vector.KindConnection, "exists", name, err)
	}
	return ok, nil
}

func (s *Service) Create(ctx context.Context, schema *vector.Schema) error {
	if err := schema.Validate(); err != nil {
		return err
	}
	ok, err := s.Exists(ctx, schema.Name)
	if err != nil {
		return err
	}
	if ok {
		return vector.NewError(vector.KindSchemaAlreadyExists, "create", schema.Name, nil)
	}
	ms, err := toMilvusSchema(schema)
	if err != nil {
		return vector.NewError(vector.KindValidation, "create", schema.Name, err)
	}
	if err := s.client.CreateCollection(ctx, milvusclient.NewCreateCollectionOption(schema.Name, ms)); err != nil {
		return translateError(vector.KindConnection, "create", schema.Name, err)
	}
	s.mu.Lock()
	s.dims[schema.Name] = schema.Dim()
	s.mu.Unlock()
	s.logger.Debug("collection created", "collection", schema.Name, "dim", schema.Dim())
	return nil
}

// dim returns the embedding dimension of a collection, describing it on
// first use.
func (s *Service) dim(ctx context.Context, op, name string) (int, error) {
	s.mu.RLock()
	d, ok := s.dims[name]
	s.mu.RUnlock()
	if ok {
		return d, nil
	}
	coll, err := s.client.DescribeCollection(ctx, milvusclient.NewDescribeCollectionOption(name))
	if err != nil {
		return 0, translateError(vector.KindConnection, op, name, err)
	}
	for _, f := range coll.Schema.Fields {
		if f.Name != vector.FieldEmbedding {
			continue
		}
		if d, err = strconv.Atoi(f.TypeParams[entity.TypeParamDim]); err != nil {
			return 0, vector.NewError(vector.KindSchemaMissing, op, name, err)
		}
		s.mu.Lock()
		s.dims[name] = d
		s.mu.Unlock()
		return d, nil
	}
	return 0, vector.NewError(vector.KindSchemaMissing, op, name, fmt.Errorf("no %s field", vector.FieldEmbedding))
}

// Insert writes records column-wise and flushes them; the flush is the
// durability barrier. Milvus generates the primary keys.
func (s *Service) Insert(ctx context.Context, name string, records []vector.Record) ([]string, error) {
	dim, err := s.dim(ctx, "insert", name)
	if err != nil {
		return nil, err
	}
	for i := range records {
		if err := vector.ValidateRecord(&records[i], dim); err != nil {
			return nil, err
		}
	}
	names := make([]string, len(records))
	keywords := make([][]string, len(records))
	embeddings := make([][]float32, len(records))
	for i, r := range records {
		names[i] = r.Name
		keywords[i] = r.Keywords
		if keywords[i] == nil {
			keywords[i] = []string{}
		}
		embeddings[i] = r.Embedding
	}
	opt := milvusclient.NewColumnBasedInsertOption(name).
		WithVarcharColumn(vector.FieldName, names).
		WithColumns(column.NewColumnVarCharArray(vector.FieldKeywords, keywords)).
		WithFloatVectorColumn(vector.FieldEmbedding, dim, embeddings)
	result, err := s.client.Insert(ctx, opt)
	if err != nil {
		return nil, translateError(vector.KindWrite, "insert", name, err)
	}
	task, err := s.client.Flush(ctx, milvusclient.NewFlushOption(name))
	if err != nil {
		return nil, translateError(vector.KindWrite, "insert", name, err)
	}
	if err := task.Await(ctx); err != nil {
		return nil, translateError(vector.KindWrite, "insert", name, err)
	}
	ids := make([]string, 0, result.InsertCount)
	if result.IDs != nil {
		for i := 0; i < result.IDs.Len(); i++ {
			id, err := result.IDs.GetAsString(i)
			if err != nil {
				return ids, vector.NewError(vector.KindWrite, "insert", name, err)
			}
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// indexName names the single embedding index of a collection.
const indexName = vector.FieldEmbedding

// BuildIndex creates the embedding index. Milvus keeps one index per field
// and extends it to newly flushed segments, so an existing index with the
// same definition is not an error. An existing index with a different
// definition is: it has to be dropped before the collection can be
// reindexed with other parameters.
func (s *Service) BuildIndex(ctx context.Context, name string, params vector.IndexParams) error {
	if err := params.Validate(); err != nil {
		return err
	}
	idx, err := toMilvusIndex(params)
	if err != nil {
		return vector.NewError(vector.KindValidation, "build index", name, err)
	}
	task, err := s.client.CreateIndex(ctx, milvusclient.NewCreateIndexOption(name, vector.FieldEmbedding, idx).WithIndexName(indexName))
	if err != nil {
		if !isIndexConflict(err) {
			return translateError(vector.KindIndex, "build index", name, err)
		}
		desc, derr := s.client.DescribeIndex(ctx, milvusclient.NewDescribeIndexOption(name, indexName))
		if derr != nil {
			return translateError(vector.KindIndex, "build index", name, derr)
		}
		if desc.Index == nil {
			return vector.NewError(vector.KindIndex, "build index", name, fmt.Errorf("conflicting index is not named %s: %w", indexName, err))
		}
		if err := sameIndex(desc.Params(), params); err != nil {
			return vector.NewError(vector.KindIndex, "build index", name, err)
		}
		s.logger.Debug("index already exists", "collection", name)
	} else if err := task.Await(ctx); err != nil {
		return translateError(vector.KindIndex, "build index", name, err)
	}
	s.mu.Lock()
	s.params[name] = params
	s.mu.Unlock()
	return nil
}

func (s *Service) Load(ctx context.Context, name string) error {
	task, err := s.client.LoadCollection(ctx, milvusclient.NewLoadCollectionOption(name))
	if err != nil {
		return translateError(vector.KindIndex, "load", name, err)
	}
	if err := task.Await(ctx); err != nil {
		return translateError(vector.KindIndex, "load", name, err)
	}
	return nil
}

func (s *Service) Search(ctx context.Context, name string, query []float32, k int, params vector.SearchParams) ([]vector.Match, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	built, ok := s.params[name]
	s.mu.RUnlock()
	if ok && built.Metric != params.Metric {
		return nil, vector.NewError(vector.KindQuery, "search", name, fmt.Errorf("metric %s does not match index metric %s", params.Metric, built.Metric))
	}
	if k <= 0 {
		k = vector.DefaultK
	}
	opt := milvusclient.NewSearchOption(name, k, []entity.Vector{entity.FloatVector(query)}).
		WithANNSField(vector.FieldEmbedding).
		WithOutputFields(vector.FieldName).
		WithAnnParam(index.NewIvfAnnParam(params.NProbe))
	results, err := s.client.Search(ctx, opt)
	if err != nil {
		return nil, translateError(vector.KindQuery, "search", name, err)
	}
	if len(results) == 0 {
		return nil, nil
	}
	rs := results[0]
	if rs.Err != nil {
		return nil, translateError(vector.KindQuery, "search", name, rs.Err)
	}
	nameColumn := rs.GetColumn(vector.FieldName)
	matches := make([]vector.Match, 0, rs.ResultCount)
	for i := 0; i < rs.ResultCount; i++ {
		var m vector.Match
		if rs.IDs != nil {
			m.ID, _ = rs.IDs.GetAsString(i)
		}
		if nameColumn != nil {
			m.Name, _ = nameColumn.GetAsString(i)
		}
		m.Distance = params.Metric.ToDistance(float64(rs.Scores[i]))
		matches = append(matches, m)
	}
	return matches, nil
}

func toMilvusSchema(s *vector.Schema) (*entity.Schema, error) {
	out := entity.NewSchema().WithName(s.Name).WithDescription(s.Description)
	for _, f := range s.Fields {
		field := entity.NewField().WithName(f.Name)
		switch f.Type {
		case vector.VarChar:
			field = field.WithDataType(entity.FieldTypeVarChar).WithMaxLength(int64(f.MaxLength))
		case vector.Array:
			field = field.WithDataType(entity.FieldTypeArray).
				WithElementType(entity.FieldTypeVarChar).
				WithMaxCapacity(int64(f.MaxCapacity)).
				WithMaxLength(int64(f.MaxLength))
		case vector.FloatVector:
			field = field.WithDataType(entity.FieldTypeFloatVector).WithDim(int64(f.Dim))
		default:
			return nil, fmt.Errorf("unsupported field type %q", f.Type)
		}
		if f.Primary {
			field = field.WithIsPrimaryKey(true)
		}
		if f.AutoID {
			field = field.WithIsAutoID(true)
			out = out.WithAutoID(true)
		}
		out = out.WithField(field)
	}
	return out, nil
}

func toMilvusMetric(m vector.Metric) (entity.MetricType, error) {
	switch m {
	case vector.L2:
		return entity.L2, nil
	case vector.IP:
		return entity.IP, nil
	case vector.Cosine:
		return entity.COSINE, nil
	}
	return "", fmt.Errorf("unsupported metric %q", m)
}

func toMilvusIndex(p vector.IndexParams) (index.Index, error) {
	metric, err := toMilvusMetric(p.Metric)
	if err != nil {
		return nil, err
	}
	switch p.Type {
	case vector.Flat:
		return index.NewFlatIndex(metric), nil
	case vector.IVFFlat:
		return index.NewIvfFlatIndex(metric, p.NList), nil
	}
	return nil, fmt.Errorf("unsupported index type %q", p.Type)
}

// isIndexConflict reports whether CreateIndex failed because the field is
// already indexed, with the same or with a different definition.
func isIndexConflict(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "index already exist") || strings.Contains(msg, "at most one distinct index")
}

// sameIndex compares the parameters Milvus reports for an existing index
// with the requested ones. nlist may be reported at the top level or inside
// the JSON encoded "params" entry.
func sameIndex(existing map[string]string, want vector.IndexParams) error {
	metric, err := toMilvusMetric(want.Metric)
	if err != nil {
		return err
	}
	gotType, gotMetric := existing[index.IndexTypeKey], existing[index.MetricTypeKey]
	if !strings.EqualFold(gotType, string(want.Type)) || !strings.EqualFold(gotMetric, string(metric)) {
		return fmt.Errorf("existing index is %s/%s, requested %s/%s", gotType, gotMetric, want.Type, want.Metric)
	}
	if want.Type != vector.IVFFlat {
		return nil
	}
	nlist, ok := existing["nlist"]
	if !ok {
		var extra map[string]any
		if raw := existing[index.ParamsKey]; raw != "" {
			if err := json.Unmarshal([]byte(raw), &extra); err != nil {
				return fmt.Errorf("invalid index params %q: %w", raw, err)
			}
		}
		if v, found := extra["nlist"]; found {
			nlist = fmt.Sprint(v)
		}
	}
	if nlist != strconv.Itoa(want.NList) {
		return fmt.Errorf("existing index has nlist %q, requested %d", nlist, want.NList)
	}
	return nil
}

// translateError maps client errors onto the vector error kinds: transport
// failures become connection errors, unloaded and unknown collections get
// their logical kinds, everything else keeps the operation's kind.
func translateError(kind vector.Kind, op, name string, err error) error {
	var verr *vector.Error
	if errors.As(err, &verr) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return vector.NewError(vector.KindConnection, op, name, err)
	}
	if st, ok := status.FromError(err); ok {
		switch st.Code() {
		case codes.Unavailable, codes.DeadlineExceeded, codes.Canceled:
			return vector.NewError(vector.KindConnection, op, name, err)
		}
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "index not found"):
		return vector.NewError(vector.KindIndex, op, name, fmt.Errorf("%w: %w", vector.ErrNoIndex, err))
	case strings.Contains(msg, "not loaded"):
		return vector.NewError(vector.KindNotLoaded, op, name, err)
	case strings.Contains(msg, "collection not found"), strings.Contains(msg, "can't find collection"):
		return vector.NewError(vector.KindSchemaMissing, op, name, err)
	}
	return vector.NewError(kind, op, name, err)
}
