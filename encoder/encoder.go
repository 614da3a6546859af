// Package encoder turns keyword text into fixed-dimension embeddings.
//
// An Encoder is constructed once and owned by its caller; the insert and the
// query path must share the same instance (or at least the same Model) for
// distances to be meaningful.
package encoder

import (
	"context"
	"strings"
)

// Separator joins keywords into the text that gets embedded.
const Separator = ", "

// Encoder maps text to a vector of Dim() floats. Encode is deterministic for
// a given model.
type Encoder interface {
	Encode(ctx context.Context, text string) ([]float32, error)
	// Model identifies the encoder and its version; it is stamped on stored
	// embeddings.
	Model() string
	Dim() int
}

// Join builds the encoder input from keywords.
func Join(keywords []string) string {
	return strings.Join(keywords, Separator)
}
