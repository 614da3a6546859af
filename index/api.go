package index

import (
	"fmt"

	"github.com/viant/agentvec/index/flat"
	"github.com/viant/agentvec/index/ivf"
	"github.com/viant/agentvec/vector"
)

// Index defines a generic vector index with basic lifecycle methods.
// It enables building from (id, embedding) pairs, kNN queries, and
// binary serialization for persistence.
type Index interface {
	// Build constructs the index from the given ids and vectors, replacing
	// any previous content. ids and vectors must have the same length.
	Build(ids []string, vectors [][]float32) error

	// Query runs a kNN search and returns up to k matches as parallel slices
	// of ids and distances in ascending distance order. nprobe bounds the
	// number of partitions scanned by partitioned indexes; flat indexes
	// ignore it.
	Query(query []float32, k, nprobe int) (ids []string, distances []float64, err error)

	// Len returns the number of indexed vectors.
	Len() int

	// MarshalBinary serializes the index into a byte slice.
	MarshalBinary() ([]byte, error)

	// UnmarshalBinary reconstructs the index from a serialized byte slice.
	UnmarshalBinary(data []byte) error
}

// New returns an empty index for params.
func New(params vector.IndexParams) (Index, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	switch params.Type {
	case vector.Flat:
		return flat.New(params.Metric), nil
	case vector.IVFFlat:
		return ivf.New(params.Metric, params.NList), nil
	}
	return nil, fmt.Errorf("index: unsupported type %q", params.Type)
}

// Build returns an index for params built over ids and vectors.
func Build(params vector.IndexParams, ids []string, vectors [][]float32) (Index, error) {
	idx, err := New(params)
	if err != nil {
		return nil, err
	}
	if err := idx.Build(ids, vectors); err != nil {
		return nil, err
	}
	return idx, nil
}

// Decode restores an index serialized with MarshalBinary under params.
func Decode(params vector.IndexParams, data []byte) (Index, error) {
	idx, err := New(params)
	if err != nil {
		return nil, err
	}
	if err := idx.UnmarshalBinary(data); err != nil {
		return nil, err
	}
	return idx, nil
}
