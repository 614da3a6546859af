// Package sqlite implements vector.Service on a local SQLite database using
// the pure-Go modernc.org/sqlite driver.
//
// Every collection lives in its own shadow table (_vec_<name>) registered in
// vec_collections. BuildIndex persists the index in vector_storage through
// vecadmin.Reindex; Load decodes it into memory. FLAT collections are ranked
// in SQL with the vec_l2, vec_cosine and vec_ip scalar functions, limited to
// the rows the last build covered.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/viant/agentvec/engine"
	"github.com/viant/agentvec/index"
	"github.com/viant/agentvec/vecadmin"
	"github.com/viant/agentvec/vector"
)

type loadedIndex struct {
	params vector.IndexParams
	idx    index.Index
	// maxRowID bounds the rows the index was built over
	maxRowID int64
}

// Service is a SQLite backed vector.Service.
type Service struct {
	db     *sql.DB
	owned  bool
	newID  func() string
	logger *slog.Logger

	mu     sync.RWMutex
	loaded map[string]*loadedIndex
}

// Option customizes a Service.
type Option func(*Service)

// WithLogger sets the logger; slog.Default() is used otherwise.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithIDGenerator overrides the primary key generator (uuid v4 by default).
func WithIDGenerator(fn func() string) Option {
	return func(s *Service) { s.newID = fn }
}

// Open opens (or creates) the database at dsn and prepares the registry
// tables. Pass ":memory:" for a throwaway database.
func Open(ctx context.Context, dsn string, opts ...Option) (*Service, error) {
	engine.RegisterVectorFunctions()
	db, err := engine.Open(dsn)
	if err != nil {
		return nil, vector.NewError(vector.KindConnection, "open", "", err)
	}
	s, err := New(ctx, db, opts...)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	s.owned = true
	return s, nil
}

// New wraps an open database. Connections opened before
// engine.RegisterVectorFunctions cannot rank FLAT collections.
func New(ctx context.Context, db *sql.DB, opts ...Option) (*Service, error) {
	s := &Service{db: db, newID: uuid.NewString, loaded: map[string]*loadedIndex{}}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, vector.NewError(vector.KindConnection, "open", "", err)
	}
	if _, err := db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS vec_collections (
    name        TEXT PRIMARY KEY,
    description TEXT,
    schema      TEXT NOT NULL,
    created_at  INTEGER NOT NULL
)`); err != nil {
		return nil, vector.NewError(vector.KindConnection, "open", "", err)
	}
	if err := vecadmin.EnsureStorage(ctx, db); err != nil {
		return nil, vector.NewError(vector.KindConnection, "open", "", err)
	}
	return s, nil
}

// DB returns the underlying database.
func (s *Service) DB() *sql.DB { return s.db }

// Close closes the database when it was opened by Open.
func (s *Service) Close() error {
	if !s.owned {
		return nil
	}
	return s.db.Close()
}

// ShadowTableName returns the table holding the records of a collection.
func ShadowTableName(collection string) string { return "_vec_" + collection }

func (s *Service) Exists(ctx context.Context, name string) (bool, error) {
	_, ok, err := s.schema(ctx, name)
	if err != nil {
		return false, translateError(vector.KindConnection, "exists", name, err)
	}
	return ok, nil
}

func (s *Service) Create(ctx context.Context, schema *vector.Schema) error {
	if err := schema.Validate(); err != nil {
		return err
	}
	name := schema.Name
	meta, err := json.Marshal(schema)
	if err != nil {
		return vector.NewError(vector.KindValidation, "create", name, err)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return translateError(vector.KindConnection, "create", name, err)
	}
	defer func() { _ = tx.Rollback() }()

	var n int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM vec_collections WHERE name = ?`, name).Scan(&n); err != nil {
		return translateError(vector.KindConnection, "create", name, err)
	}
	if n > 0 {
		return vector.NewError(vector.KindSchemaAlreadyExists, "create", name, nil)
	}
	idLen := vector.MaxIDLength
	if f, ok := schema.Field(vector.FieldID); ok && f.MaxLength > 0 {
		idLen = f.MaxLength
	}
	ddl := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
    pk              TEXT PRIMARY KEY CHECK(length(pk) <= %d),
    name            TEXT NOT NULL,
    keywords        TEXT NOT NULL,
    embedding       BLOB NOT NULL,
    embedding_model TEXT NOT NULL DEFAULT ''
)`, ShadowTableName(name), idLen)
	if _, err := tx.ExecContext(ctx, ddl); err != nil {
		return translateError(vector.KindConnection, "create", name, err)
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO vec_collections(name, description, schema, created_at) VALUES(?, ?, ?, ?)`,
		name, schema.Description, string(meta), time.Now().Unix()); err != nil {
		return translateError(vector.KindConnection, "create", name, err)
	}
	if err := tx.Commit(); err != nil {
		return translateError(vector.KindConnection, "create", name, err)
	}
	s.logger.Debug("collection created", "collection", name, "dim", schema.Dim())
	return nil
}

// Insert writes records in one transaction. The commit is the durability
// barrier: once Insert returns, the rows are visible to BuildIndex.
func (s *Service) Insert(ctx context.Context, name string, records []vector.Record) ([]string, error) {
	schema, err := s.mustSchema(ctx, "insert", name)
	if err != nil {
		return nil, err
	}
	dim := schema.Dim()
	for i := range records {
		if err := vector.ValidateRecord(&records[i], dim); err != nil {
			return nil, err
		}
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, translateError(vector.KindWrite, "insert", name, err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(`INSERT INTO %s(pk, name, keywords, embedding, embedding_model) VALUES(?, ?, ?, ?, ?)`, ShadowTableName(name)))
	if err != nil {
		return nil, translateError(vector.KindWrite, "insert", name, err)
	}
	defer stmt.Close()

	ids := make([]string, len(records))
	for i, r := range records {
		keywords := r.Keywords
		if keywords == nil {
			keywords = []string{}
		}
		kw, err := json.Marshal(keywords)
		if err != nil {
			return nil, vector.NewError(vector.KindWrite, "insert", name, err)
		}
		emb, err := vector.EncodeEmbedding(r.Embedding)
		if err != nil {
			return nil, vector.NewError(vector.KindWrite, "insert", name, err)
		}
		ids[i] = s.newID()
		if _, err := stmt.ExecContext(ctx, ids[i], r.Name, string(kw), emb, r.EmbeddingModel); err != nil {
			return nil, translateError(vector.KindWrite, "insert", name, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, translateError(vector.KindWrite, "insert", name, err)
	}
	return ids, nil
}

// BuildIndex rebuilds and persists the collection index. A collection that
// is already loaded switches to the new index.
func (s *Service) BuildIndex(ctx context.Context, name string, params vector.IndexParams) error {
	if err := params.Validate(); err != nil {
		return err
	}
	if _, err := s.mustSchema(ctx, "build index", name); err != nil {
		return err
	}
	started := time.Now()
	n, err := vecadmin.Reindex(ctx, s.db, ShadowTableName(name), params)
	if err != nil {
		return translateError(vector.KindIndex, "build index", name, err)
	}
	s.logger.Debug("index built", "collection", name, "type", params.Type, "metric", params.Metric, "count", n, "elapsed", time.Since(started))

	s.mu.RLock()
	_, isLoaded := s.loaded[name]
	s.mu.RUnlock()
	if isLoaded {
		return s.load(ctx, "build index", name)
	}
	return nil
}

func (s *Service) Load(ctx context.Context, name string) error {
	if _, err := s.mustSchema(ctx, "load", name); err != nil {
		return err
	}
	return s.load(ctx, "load", name)
}

func (s *Service) load(ctx context.Context, op, name string) error {
	stored, err := vecadmin.LoadIndex(ctx, s.db, ShadowTableName(name))
	if err != nil {
		return translateError(vector.KindIndex, op, name, err)
	}
	if stored == nil {
		return vector.NewError(vector.KindIndex, op, name, vector.ErrNoIndex)
	}
	s.mu.Lock()
	s.loaded[name] = &loadedIndex{params: stored.Params, idx: stored.Index, maxRowID: stored.MaxRowID}
	s.mu.Unlock()
	return nil
}

func (s *Service) Search(ctx context.Context, name string, query []float32, k int, params vector.SearchParams) ([]vector.Match, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	li := s.loaded[name]
	s.mu.RUnlock()
	if li == nil {
		if _, err := s.mustSchema(ctx, "search", name); err != nil {
			return nil, err
		}
		return nil, vector.NewError(vector.KindNotLoaded, "search", name, nil)
	}
	if params.Metric != li.params.Metric {
		return nil, vector.NewError(vector.KindQuery, "search", name, fmt.Errorf("metric %s does not match index metric %s", params.Metric, li.params.Metric))
	}
	if k <= 0 {
		k = vector.DefaultK
	}
	if li.params.Type == vector.Flat {
		return s.searchSQL(ctx, name, query, k, params.Metric, li.maxRowID)
	}
	ids, dists, err := li.idx.Query(query, k, params.NProbe)
	if err != nil {
		return nil, vector.NewError(vector.KindQuery, "search", name, err)
	}
	return s.resolve(ctx, name, ids, dists)
}

// searchSQL ranks the rows covered by the loaded index with the metric's SQL
// function; ties keep insertion order. Rows appended after the last build
// stay invisible until the next one.
func (s *Service) searchSQL(ctx context.Context, name string, query []float32, k int, metric vector.Metric, maxRowID int64) ([]vector.Match, error) {
	blob, err := vector.EncodeEmbedding(query)
	if err != nil {
		return nil, vector.NewError(vector.KindQuery, "search", name, err)
	}
	fn, order := engine.FunctionFor(metric)
	q := fmt.Sprintf(`SELECT pk, name, embedding_model, %s(embedding, ?) AS score FROM %s WHERE rowid <= ? ORDER BY score %s, rowid LIMIT ?`, fn, ShadowTableName(name), order)
	rows, err := s.db.QueryContext(ctx, q, blob, maxRowID, k)
	if err != nil {
		return nil, translateError(vector.KindQuery, "search", name, err)
	}
	defer rows.Close()
	var out []vector.Match
	for rows.Next() {
		var m vector.Match
		var score sql.NullFloat64
		if err := rows.Scan(&m.ID, &m.Name, &m.EmbeddingModel, &score); err != nil {
			return nil, translateError(vector.KindQuery, "search", name, err)
		}
		m.Distance = metric.ToDistance(score.Float64)
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, translateError(vector.KindQuery, "search", name, err)
	}
	return out, nil
}

// resolve fetches name and model stamp for index hits, keeping hit order.
func (s *Service) resolve(ctx context.Context, name string, ids []string, dists []float64) ([]vector.Match, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	q := fmt.Sprintf(`SELECT pk, name, embedding_model FROM %s WHERE pk IN (%s)`, ShadowTableName(name), placeholders)
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, translateError(vector.KindQuery, "search", name, err)
	}
	defer rows.Close()
	byID := make(map[string]vector.Match, len(ids))
	for rows.Next() {
		var m vector.Match
		if err := rows.Scan(&m.ID, &m.Name, &m.EmbeddingModel); err != nil {
			return nil, translateError(vector.KindQuery, "search", name, err)
		}
		byID[m.ID] = m
	}
	if err := rows.Err(); err != nil {
		return nil, translateError(vector.KindQuery, "search", name, err)
	}
	out := make([]vector.Match, 0, len(ids))
	for i, id := range ids {
		m, ok := byID[id]
		if !ok {
			// row removed outside the service since the last build
			continue
		}
		m.Distance = dists[i]
		out = append(out, m)
	}
	return out, nil
}

func (s *Service) schema(ctx context.Context, name string) (*vector.Schema, bool, error) {
	var meta string
	err := s.db.QueryRowContext(ctx, `SELECT schema FROM vec_collections WHERE name = ?`, name).Scan(&meta)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	schema := &vector.Schema{}
	if err := json.Unmarshal([]byte(meta), schema); err != nil {
		return nil, false, fmt.Errorf("invalid stored schema: %w", err)
	}
	return schema, true, nil
}

func (s *Service) mustSchema(ctx context.Context, op, name string) (*vector.Schema, error) {
	schema, ok, err := s.schema(ctx, name)
	if err != nil {
		return nil, translateError(vector.KindConnection, op, name, err)
	}
	if !ok {
		return nil, vector.NewError(vector.KindSchemaMissing, op, name, nil)
	}
	return schema, nil
}

// translateError maps driver errors onto the vector error kinds. Lock
// contention and cancelled calls are reported as connection errors.
func translateError(kind vector.Kind, op, name string, err error) error {
	var verr *vector.Error
	if errors.As(err, &verr) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) || errors.Is(err, sql.ErrConnDone) {
		return vector.NewError(vector.KindConnection, op, name, err)
	}
	msg := err.Error()
	if strings.Contains(msg, "database is locked") || strings.Contains(msg, "SQLITE_BUSY") {
		return vector.NewError(vector.KindConnection, op, name, err)
	}
	return vector.NewError(kind, op, name, err)
}
