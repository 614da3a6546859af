package collection

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viant/agentvec/vector"
)

func TestBatched(t *testing.T) {
	ctx := context.Background()
	svc := newCollection(t)
	ins := NewInserter(svc, newHashing(t), "agents", WithPolicy(Batched(3)))

	for i := 0; i < 2; i++ {
		_, err := ins.Insert(ctx, fmt.Sprint(i), []string{"k"})
		require.NoError(t, err)
	}
	assert.Equal(t, 0, svc.Builds())
	assert.EqualValues(t, 2, ins.Pending())

	_, err := ins.Insert(ctx, "2", []string{"k"})
	require.NoError(t, err)
	assert.Equal(t, 1, svc.Builds())
	assert.EqualValues(t, 0, ins.Pending())

	_, err = ins.Insert(ctx, "3", []string{"k"})
	require.NoError(t, err)
	require.NoError(t, ins.Flush(ctx))
	assert.Equal(t, 2, svc.Builds())

	require.NoError(t, ins.Flush(ctx))
	assert.Equal(t, 2, svc.Builds(), "flush without pending inserts does not rebuild")
}

func TestDebounced(t *testing.T) {
	ctx := context.Background()
	svc := newCollection(t)
	ins := NewInserter(svc, newHashing(t), "agents", WithPolicy(Debounced(20*time.Millisecond)))
	defer ins.Close()

	for i := 0; i < 3; i++ {
		_, err := ins.Insert(ctx, fmt.Sprint(i), []string{"k"})
		require.NoError(t, err)
	}
	assert.Eventually(t, func() bool { return ins.Pending() == 0 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, svc.Builds())

	_, err := ins.Insert(ctx, "late", []string{"k"})
	require.NoError(t, err)
	require.NoError(t, ins.Flush(ctx))
	assert.EqualValues(t, 0, ins.Pending())
	assert.Equal(t, 2, svc.Builds())
}

func TestDebounced_NoRebuildAfterClose(t *testing.T) {
	ctx := context.Background()
	var rebuilds atomic.Int32
	rebuild := func(context.Context) error {
		rebuilds.Add(1)
		return nil
	}

	p := Debounced(5 * time.Millisecond)
	require.NoError(t, p.Inserted(ctx, rebuild))
	require.NoError(t, p.Close())
	require.NoError(t, p.Inserted(ctx, rebuild))

	time.Sleep(50 * time.Millisecond)
	assert.EqualValues(t, 0, rebuilds.Load(), "closed policy must not schedule rebuilds")

	require.NoError(t, p.Flush(ctx, rebuild))
	assert.EqualValues(t, 1, rebuilds.Load())
}

func TestImmediate_ConcurrentInsertsSerializeRebuilds(t *testing.T) {
	ctx := context.Background()
	svc := newCollection(t)
	ins := NewInserter(svc, newHashing(t), "agents")

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := ins.Insert(ctx, fmt.Sprint(i), []string{"k", fmt.Sprint(i)})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()
	assert.EqualValues(t, 0, ins.Pending())
	assert.LessOrEqual(t, svc.Builds(), 16)

	matches, err := NewSearcher(svc, newHashing(t), "agents").Search(ctx, []string{"k", "7"}, 1)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "7", matches[0].Name)
}

func TestInserter_IndexFailureKeepsRecord(t *testing.T) {
	ctx := context.Background()
	svc := newCollection(t)
	ins := NewInserter(svc, newHashing(t), "agents")

	svc.setFailBuild(vector.NewError(vector.KindIndex, "build index", "agents", errBoom))
	id, err := ins.Insert(ctx, "Hotel Finder", []string{"hotel"})
	assert.ErrorIs(t, err, vector.ErrIndex)
	assert.NotEmpty(t, id)
	assert.Len(t, svc.Records("agents"), 1)
	assert.EqualValues(t, 1, ins.Pending())

	svc.setFailBuild(nil)
	require.NoError(t, ins.Rebuild(ctx))
	assert.EqualValues(t, 0, ins.Pending())
	assert.Len(t, svc.Records("agents"), 1, "rebuild does not rewrite")
}

func TestInserter_EmbeddingFailureWritesNothing(t *testing.T) {
	svc := newCollection(t)
	ins := NewInserter(svc, newHashing(t), "agents")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := ins.Insert(ctx, "x", []string{"y"})
	assert.ErrorIs(t, err, vector.ErrEmbedding)
	assert.Empty(t, svc.Records("agents"))
	assert.Zero(t, svc.Builds())
}

func TestInserter_MissingCollection(t *testing.T) {
	svc := newCollection(t)
	_, err := NewInserter(svc, newHashing(t), "other").Insert(context.Background(), "x", []string{"y"})
	assert.ErrorIs(t, err, vector.ErrSchemaMissing)
}
