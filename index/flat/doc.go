// Package flat provides a vector index that answers kNN queries by scanning
// all vectors and scoring them with the configured metric. It supports a
// compact binary format for persistence in the vector_storage table.
package flat
