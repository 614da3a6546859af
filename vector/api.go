package vector

import (
	"context"
)

// Record is a single agent stored in a collection.
type Record struct {
	// ID is the primary key. It is generated by the backend on insert and
	// never changes afterwards.
	ID string

	// Name is the agent name. Duplicate names are legal.
	Name string

	// Keywords describe the agent; their joined form is what gets embedded.
	Keywords []string

	// Embedding is the vector derived from Keywords.
	Embedding []float32

	// EmbeddingModel stamps the encoder that produced Embedding so that
	// drift between insert-time and query-time encoders can be detected.
	EmbeddingModel string
}

// Match is a single nearest-neighbour hit. Lower Distance means closer,
// regardless of the metric the index was built with.
type Match struct {
	ID             string
	Name           string
	Distance       float64
	EmbeddingModel string
}

// Service is the capability set of a vector-database service hosting agent
// collections. Implementations must be safe for concurrent use.
type Service interface {
	// Exists reports whether the named collection has been created.
	Exists(ctx context.Context, collection string) (bool, error)

	// Create provisions the collection with the given schema. It fails with
	// ErrSchemaAlreadyExists when the collection is already present.
	Create(ctx context.Context, schema *Schema) error

	// Insert appends records and returns their generated ids. It returns
	// only once the records are durably visible to subsequent reads.
	Insert(ctx context.Context, collection string, records []Record) ([]string, error)

	// BuildIndex (re)builds the whole index of the embedding field.
	BuildIndex(ctx context.Context, collection string, params IndexParams) error

	// Load brings the latest built index into a queryable state.
	Load(ctx context.Context, collection string) error

	// Search returns up to k matches ordered by ascending distance. It fails
	// with ErrNotLoaded when Load has not been called for the collection.
	Search(ctx context.Context, collection string, query []float32, k int, params SearchParams) ([]Match, error)
}
