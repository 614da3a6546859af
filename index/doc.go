// Package index defines a minimal abstraction for vector indexes that can be
// built from embeddings, queried for kNN, and serialized for persistence.
// Implementations: flat (exact scan) and ivf (IVF_FLAT clustering).
package index
