package collection

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viant/agentvec/backend/memory"
	"github.com/viant/agentvec/vector"
)

func matchNames(matches []vector.Match) []string {
	out := make([]string, len(matches))
	for i, m := range matches {
		out[i] = m.Name
	}
	return out
}

func TestPipeline_RoundTrip(t *testing.T) {
	ctx := context.Background()
	svc := newCollection(t)
	enc := newHashing(t)
	ins := NewInserter(svc, enc, "agents")

	hotel, err := ins.Insert(ctx, "Hotel Finder", []string{"hotel", "lodging"})
	require.NoError(t, err)
	car, err := ins.Insert(ctx, "Car Rental", []string{"car", "vehicle"})
	require.NoError(t, err)
	assert.NotEqual(t, hotel, car)
	assert.Equal(t, 2, svc.Builds(), "immediate policy rebuilds after every insert")

	s := NewSearcher(svc, enc, "agents")
	matches, err := s.Search(ctx, []string{"hotel", "car"}, 3)
	require.NoError(t, err)
	require.NotEmpty(t, matches)
	assert.LessOrEqual(t, len(matches), 3)
	assert.Subset(t, []string{"Hotel Finder", "Car Rental"}, matchNames(matches))
	for i := 1; i < len(matches); i++ {
		assert.LessOrEqual(t, matches[i-1].Distance, matches[i].Distance)
	}

	again, err := s.Search(ctx, []string{"hotel", "car"}, 3)
	require.NoError(t, err)
	assert.Equal(t, matches, again)

	top, err := s.Search(ctx, []string{"hotel", "lodging"}, 1)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, "Hotel Finder", top[0].Name)
	assert.InDelta(t, 0, top[0].Distance, 1e-6)
}

func TestPipeline_DefaultK(t *testing.T) {
	ctx := context.Background()
	svc := newCollection(t)
	enc := newHashing(t)
	ins := NewInserter(svc, enc, "agents", WithPolicy(Batched(10)))
	for _, name := range []string{"a", "b", "c", "d", "e"} {
		_, err := ins.Insert(ctx, name, []string{name})
		require.NoError(t, err)
	}
	require.NoError(t, ins.Flush(ctx))

	matches, err := NewSearcher(svc, enc, "agents").Search(ctx, []string{"a"}, 0)
	require.NoError(t, err)
	assert.Len(t, matches, vector.DefaultK)
	assert.Equal(t, "a", matches[0].Name)
}

func TestPipeline_LoadRequirement(t *testing.T) {
	ctx := context.Background()
	svc := newCollection(t)
	enc := newHashing(t)
	_, err := NewInserter(svc, enc, "agents").Insert(ctx, "Hotel Finder", []string{"hotel"})
	require.NoError(t, err)

	s := NewSearcher(svc, enc, "agents", WithAutoLoad(false))
	_, err = s.Search(ctx, []string{"hotel"}, 3)
	assert.ErrorIs(t, err, vector.ErrNotLoaded)

	require.NoError(t, s.Load(ctx))
	matches, err := s.Search(ctx, []string{"hotel"}, 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"Hotel Finder"}, matchNames(matches))
}

func TestPipeline_Boundaries(t *testing.T) {
	ctx := context.Background()
	svc := newCollection(t)
	ins := NewInserter(svc, newHashing(t), "agents")

	kw := strings.Repeat("k", vector.MaxKeywordLength)
	keywords := make([]string, vector.MaxKeywords)
	for i := range keywords {
		keywords[i] = kw
	}
	_, err := ins.Insert(ctx, strings.Repeat("n", vector.MaxNameLength), keywords)
	require.NoError(t, err)

	_, err = ins.Insert(ctx, "too many", append(keywords, "x"))
	assert.ErrorIs(t, err, vector.ErrValidation)

	long := append([]string(nil), keywords...)
	long[7] = kw + "k"
	_, err = ins.Insert(ctx, "too long", long)
	assert.ErrorIs(t, err, vector.ErrValidation)

	_, err = ins.Insert(ctx, strings.Repeat("n", vector.MaxNameLength+1), nil)
	assert.ErrorIs(t, err, vector.ErrValidation)

	// multi-byte characters count once
	_, err = ins.Insert(ctx, strings.Repeat("é", vector.MaxNameLength), []string{strings.Repeat("ü", vector.MaxKeywordLength)})
	require.NoError(t, err)

	_, err = ins.Insert(ctx, "empty", []string{})
	require.NoError(t, err)

	assert.Len(t, svc.Records("agents"), 3, "rejected inserts write nothing")
}

func TestPipeline_StoresModelStamp(t *testing.T) {
	ctx := context.Background()
	svc := newCollection(t)
	enc := newHashing(t)
	_, err := NewInserter(svc, enc, "agents").Insert(ctx, "Hotel Finder", []string{"hotel", "lodging"})
	require.NoError(t, err)

	records := svc.Records("agents")
	require.Len(t, records, 1)
	assert.Equal(t, enc.Model(), records[0].EmbeddingModel)
	want, _ := enc.Encode(ctx, "hotel, lodging")
	assert.Equal(t, want, records[0].Embedding)
	assert.Equal(t, []string{"hotel", "lodging"}, records[0].Keywords)
}

func TestSearcher_Drift(t *testing.T) {
	ctx := context.Background()
	svc := newCollection(t)
	enc := newHashing(t)
	_, err := NewInserter(svc, enc, "agents").Insert(ctx, "Hotel Finder", []string{"hotel"})
	require.NoError(t, err)

	other := renamed{Encoder: enc, model: "hashing-v2/384"}
	matches, err := NewSearcher(svc, other, "agents").Search(ctx, []string{"hotel"}, 3)
	require.NoError(t, err, "drift is logged by default")
	assert.Len(t, matches, 1)

	_, err = NewSearcher(svc, other, "agents", WithStrictModel(true)).Search(ctx, []string{"hotel"}, 3)
	assert.ErrorIs(t, err, vector.ErrEmbeddingDrift)

	_, err = NewSearcher(svc, enc, "agents", WithStrictModel(true)).Search(ctx, []string{"hotel"}, 3)
	assert.NoError(t, err)
}

func TestSearcher_Errors(t *testing.T) {
	ctx := context.Background()
	enc := newHashing(t)

	_, err := NewSearcher(memory.New(), enc, "missing").Search(ctx, []string{"x"}, 1)
	assert.ErrorIs(t, err, vector.ErrSchemaMissing)

	svc := newCollection(t)
	_, err = NewSearcher(svc, enc, "agents").Search(ctx, []string{"x"}, 1)
	assert.ErrorIs(t, err, vector.ErrIndex, "nothing was ever indexed")

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = NewSearcher(svc, enc, "agents", WithAutoLoad(false)).Search(canceled, []string{"x"}, 1)
	assert.ErrorIs(t, err, vector.ErrEmbedding)
}
