package memory

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viant/agentvec/vector"
)

func newCollection(t *testing.T, dim int) (*Service, string) {
	t.Helper()
	seq := 0
	s := New(WithIDGenerator(func() string {
		seq++
		return fmt.Sprintf("id-%d", seq)
	}))
	schema := vector.AgentSchema("agents")
	for i := range schema.Fields {
		if schema.Fields[i].Name == vector.FieldEmbedding {
			schema.Fields[i].Dim = dim
		}
	}
	require.NoError(t, s.Create(context.Background(), schema))
	return s, schema.Name
}

func TestService_CreateTwice(t *testing.T) {
	s, name := newCollection(t, 2)
	ok, err := s.Exists(context.Background(), name)
	require.NoError(t, err)
	assert.True(t, ok)

	err = s.Create(context.Background(), vector.AgentSchema(name))
	assert.ErrorIs(t, err, vector.ErrSchemaAlreadyExists)

	ok, err = s.Exists(context.Background(), "other")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestService_SearchLifecycle(t *testing.T) {
	ctx := context.Background()
	s, name := newCollection(t, 2)

	ids, err := s.Insert(ctx, name, []vector.Record{
		{Name: "a", Keywords: []string{"x"}, Embedding: []float32{0, 0}, EmbeddingModel: "m"},
		{Name: "b", Keywords: []string{"y"}, Embedding: []float32{3, 4}, EmbeddingModel: "m"},
		{Name: "c", Keywords: []string{"z"}, Embedding: []float32{1, 0}, EmbeddingModel: "m"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"id-1", "id-2", "id-3"}, ids)

	_, err = s.Search(ctx, name, []float32{0, 0}, 3, vector.DefaultSearchParams())
	assert.ErrorIs(t, err, vector.ErrNotLoaded)

	err = s.Load(ctx, name)
	assert.ErrorIs(t, err, vector.ErrIndex, "load before any index build")

	require.NoError(t, s.BuildIndex(ctx, name, vector.IndexParams{Type: vector.IVFFlat, Metric: vector.L2, NList: 2}))
	_, err = s.Search(ctx, name, []float32{0, 0}, 3, vector.DefaultSearchParams())
	assert.ErrorIs(t, err, vector.ErrNotLoaded, "build does not load")

	require.NoError(t, s.Load(ctx, name))
	matches, err := s.Search(ctx, name, []float32{0, 0}, 3, vector.SearchParams{Metric: vector.L2, NProbe: 2})
	require.NoError(t, err)
	require.Len(t, matches, 3)
	assert.Equal(t, []string{"a", "c", "b"}, []string{matches[0].Name, matches[1].Name, matches[2].Name})
	assert.InDelta(t, 0, matches[0].Distance, 1e-9)
	assert.InDelta(t, 1, matches[1].Distance, 1e-6)
	assert.InDelta(t, 5, matches[2].Distance, 1e-6)
	assert.Equal(t, "m", matches[0].EmbeddingModel)

	// a rebuild refreshes an already loaded collection
	_, err = s.Insert(ctx, name, []vector.Record{{Name: "d", Embedding: []float32{0, 0.5}}})
	require.NoError(t, err)
	require.NoError(t, s.BuildIndex(ctx, name, vector.IndexParams{Type: vector.Flat, Metric: vector.L2}))
	matches, err = s.Search(ctx, name, []float32{0, 0}, 2, vector.SearchParams{Metric: vector.L2, NProbe: 1})
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "d", matches[1].Name)

	_, err = s.Search(ctx, name, []float32{0, 0}, 2, vector.SearchParams{Metric: vector.IP, NProbe: 1})
	assert.ErrorIs(t, err, vector.ErrQuery)
}

func TestService_InsertValidation(t *testing.T) {
	ctx := context.Background()
	s, name := newCollection(t, 2)

	_, err := s.Insert(ctx, name, []vector.Record{{Name: "a", Embedding: []float32{1}}})
	assert.ErrorIs(t, err, vector.ErrValidation)
	assert.Empty(t, s.Records(name))

	_, err = s.Insert(ctx, "missing", []vector.Record{{Name: "a", Embedding: []float32{1, 1}}})
	assert.ErrorIs(t, err, vector.ErrSchemaMissing)
}

func TestService_DuplicateID(t *testing.T) {
	ctx := context.Background()
	s := New(WithIDGenerator(func() string { return "same" }))
	require.NoError(t, s.Create(ctx, vector.AgentSchema("agents")))
	emb := make([]float32, vector.Dimension)

	_, err := s.Insert(ctx, "agents", []vector.Record{{Name: "a", Embedding: emb}})
	require.NoError(t, err)
	_, err = s.Insert(ctx, "agents", []vector.Record{{Name: "b", Embedding: emb}})
	assert.ErrorIs(t, err, vector.ErrWrite)
}

func TestService_UnindexedRowsHidden(t *testing.T) {
	ctx := context.Background()
	s, name := newCollection(t, 2)
	params := vector.IndexParams{Type: vector.Flat, Metric: vector.L2}

	_, err := s.Insert(ctx, name, []vector.Record{{Name: "indexed", Embedding: []float32{1, 0}}})
	require.NoError(t, err)
	require.NoError(t, s.BuildIndex(ctx, name, params))
	require.NoError(t, s.Load(ctx, name))
	_, err = s.Insert(ctx, name, []vector.Record{{Name: "unindexed", Embedding: []float32{0, 0}}})
	require.NoError(t, err)

	search := vector.SearchParams{Metric: vector.L2, NProbe: 1}
	matches, err := s.Search(ctx, name, []float32{0, 0}, 3, search)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "indexed", matches[0].Name)

	require.NoError(t, s.BuildIndex(ctx, name, params))
	matches, err = s.Search(ctx, name, []float32{0, 0}, 3, search)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "unindexed", matches[0].Name)
}
