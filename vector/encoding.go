package vector

import (
	"encoding/binary"
	"fmt"
	"math"
)

// EmbeddingBlobSize is the size in bytes of an encoded dim-dimensional
// embedding.
func EmbeddingBlobSize(dim int) int { return dim * 4 }

// EncodeEmbedding packs vec into the BLOB layout of the embedding column:
// consecutive little-endian float32 values with no header. NaN and Inf are
// rejected since no metric orders them.
func EncodeEmbedding(vec []float32) ([]byte, error) {
	if len(vec) == 0 {
		return nil, nil
	}
	b := make([]byte, 0, EmbeddingBlobSize(len(vec)))
	for i, v := range vec {
		if f := float64(v); math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, NewError(KindValidation, "encode embedding", "", fmt.Errorf("component %d is %v", i, v))
		}
		b = binary.LittleEndian.AppendUint32(b, math.Float32bits(v))
	}
	return b, nil
}

// DecodeEmbedding unpacks a BLOB written by EncodeEmbedding.
func DecodeEmbedding(b []byte) ([]float32, error) {
	return decodeEmbedding(b, len(b)/4)
}

// DecodeEmbeddingDim is DecodeEmbedding that also requires exactly dim values.
func DecodeEmbeddingDim(b []byte, dim int) ([]float32, error) {
	return decodeEmbedding(b, dim)
}

func decodeEmbedding(b []byte, dim int) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, NewError(KindValidation, "decode embedding", "", fmt.Errorf("blob length %d is not a multiple of 4", len(b)))
	}
	if len(b) != EmbeddingBlobSize(dim) {
		return nil, NewError(KindValidation, "decode embedding", "", fmt.Errorf("blob holds %d values, want %d", len(b)/4, dim))
	}
	if dim == 0 {
		return nil, nil
	}
	vec := make([]float32, dim)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return vec, nil
}
