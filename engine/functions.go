package engine

import (
	"database/sql/driver"
	"fmt"
	"sync"

	"github.com/viant/agentvec/vector"
	sqlite "modernc.org/sqlite"
)

var registerOnce sync.Once

// RegisterVectorFunctions registers vec_cosine, vec_l2 and vec_ip with the
// driver so they are available on connections opened after this call.
// Existing open connections will not see new functions.
func RegisterVectorFunctions() {
	registerOnce.Do(func() {
		// driver rejects duplicates; registration is global and happens once
		_ = sqlite.RegisterDeterministicScalarFunction("vec_cosine", 2, vecCosineImpl)
		_ = sqlite.RegisterDeterministicScalarFunction("vec_l2", 2, vecL2Impl)
		_ = sqlite.RegisterDeterministicScalarFunction("vec_ip", 2, vecIPImpl)
	})
}

// FunctionFor returns the SQL function name scoring embeddings under m and
// the ORDER BY direction that puts the closest rows first.
func FunctionFor(m vector.Metric) (name string, order string) {
	switch m {
	case vector.Cosine:
		return "vec_cosine", "DESC"
	case vector.IP:
		return "vec_ip", "DESC"
	}
	return "vec_l2", "ASC"
}

func asEmbedding(arg driver.Value) ([]float32, error) {
	switch v := arg.(type) {
	case nil:
		return nil, nil
	case []byte:
		return vector.DecodeEmbedding(v)
	default:
		return nil, fmt.Errorf("vec: unsupported argument type %T for embedding; want BLOB", arg)
	}
}

func binary(name string, args []driver.Value, fn func(a, b []float32) (float64, error)) (driver.Value, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("%s: expected 2 arguments, got %d", name, len(args))
	}
	a, err := asEmbedding(args[0])
	if err != nil {
		return nil, err
	}
	b, err := asEmbedding(args[1])
	if err != nil {
		return nil, err
	}
	if a == nil || b == nil {
		return nil, nil
	}
	return fn(a, b)
}

func vecCosineImpl(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	return binary("vec_cosine", args, vector.Cosine.Score)
}

func vecL2Impl(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	return binary("vec_l2", args, vector.L2.Score)
}

func vecIPImpl(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	return binary("vec_ip", args, vector.IP.Score)
}
