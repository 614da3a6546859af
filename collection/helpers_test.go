package collection

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/viant/agentvec/backend/memory"
	"github.com/viant/agentvec/encoder"
	"github.com/viant/agentvec/vector"
)

// countingService records BuildIndex calls and can fail them on demand.
type countingService struct {
	*memory.Service
	mu        sync.Mutex
	builds    int
	failBuild error
}

func (c *countingService) BuildIndex(ctx context.Context, name string, params vector.IndexParams) error {
	c.mu.Lock()
	c.builds++
	fail := c.failBuild
	c.mu.Unlock()
	if fail != nil {
		return fail
	}
	return c.Service.BuildIndex(ctx, name, params)
}

func (c *countingService) Builds() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.builds
}

func (c *countingService) setFailBuild(err error) {
	c.mu.Lock()
	c.failBuild = err
	c.mu.Unlock()
}

func newHashing(t *testing.T) *encoder.Hashing {
	t.Helper()
	enc, err := encoder.NewHashing(vector.Dimension)
	require.NoError(t, err)
	return enc
}

func newCollection(t *testing.T) *countingService {
	t.Helper()
	svc := &countingService{Service: memory.New()}
	_, err := NewSchemaManager(svc).Create(context.Background(), "agents")
	require.NoError(t, err)
	return svc
}

// renamed reports a different model than the encoder it wraps.
type renamed struct {
	encoder.Encoder
	model string
}

func (r renamed) Model() string { return r.model }

var errBoom = errors.New("boom")
