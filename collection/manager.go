package collection

import (
	"context"
	"log/slog"

	"github.com/viant/agentvec/vector"
)

// Collection is a handle on a provisioned collection.
type Collection struct {
	Name   string
	Schema *vector.Schema
}

// SchemaManager checks for and provisions agent collections.
type SchemaManager struct {
	svc    vector.Service
	opts   *options
	logger *slog.Logger
}

// NewSchemaManager returns a manager for collections hosted by svc.
func NewSchemaManager(svc vector.Service, opts ...Option) *SchemaManager {
	o := newOptions(opts)
	return &SchemaManager{svc: svc, opts: o, logger: o.logger}
}

// Schema returns the schema Create provisions for name.
func (m *SchemaManager) Schema(name string) *vector.Schema {
	schema := vector.AgentSchema(name)
	schema.Description = m.opts.description
	for i := range schema.Fields {
		if schema.Fields[i].Name == vector.FieldEmbedding {
			schema.Fields[i].Dim = m.opts.dim
		}
	}
	return schema
}

// Exists reports whether the collection is present. It has no side effects.
func (m *SchemaManager) Exists(ctx context.Context, name string) (bool, error) {
	return m.svc.Exists(ctx, name)
}

// Create provisions the collection. It is not idempotent: creating an
// existing collection fails with vector.ErrSchemaAlreadyExists.
func (m *SchemaManager) Create(ctx context.Context, name string) (*Collection, error) {
	schema := m.Schema(name)
	if err := m.svc.Create(ctx, schema); err != nil {
		return nil, err
	}
	m.logger.Info("collection created", "collection", name)
	return &Collection{Name: name, Schema: schema}, nil
}

// EnsureCollection creates the collection unless it exists. created reports
// whether this call provisioned it.
func (m *SchemaManager) EnsureCollection(ctx context.Context, name string) (coll *Collection, created bool, err error) {
	ok, err := m.Exists(ctx, name)
	if err != nil {
		return nil, false, err
	}
	if ok {
		return &Collection{Name: name, Schema: m.Schema(name)}, false, nil
	}
	coll, err = m.Create(ctx, name)
	if err != nil {
		return nil, false, err
	}
	return coll, true, nil
}
