package vector

import (
	"fmt"
	"strings"
)

// IndexType names an index implementation.
type IndexType string

const (
	// Flat scans every vector; exact results.
	Flat IndexType = "FLAT"
	// IVFFlat partitions vectors into NList clusters and scans NProbe of
	// them at query time.
	IVFFlat IndexType = "IVF_FLAT"
)

const (
	DefaultNList  = 128
	DefaultNProbe = 10
	DefaultK      = 3
)

// IndexParams configures index construction.
type IndexParams struct {
	Type   IndexType `json:"type"`
	Metric Metric    `json:"metric"`
	NList  int       `json:"nlist"`
}

// SearchParams configures a query. Metric must match the metric the index
// was built with.
type SearchParams struct {
	Metric Metric
	NProbe int
}

// DefaultIndexParams returns IVF_FLAT over L2 with 128 clusters.
func DefaultIndexParams() IndexParams {
	return IndexParams{Type: IVFFlat, Metric: L2, NList: DefaultNList}
}

// DefaultSearchParams returns L2 with 10 probed clusters.
func DefaultSearchParams() SearchParams {
	return SearchParams{Metric: L2, NProbe: DefaultNProbe}
}

// Validate checks the index parameters.
func (p IndexParams) Validate() error {
	switch p.Type {
	case Flat, IVFFlat:
	default:
		return NewError(KindValidation, "index params", "", fmt.Errorf("unsupported index type %q", p.Type))
	}
	if !p.Metric.Valid() {
		return NewError(KindValidation, "index params", "", fmt.Errorf("unsupported metric %q", p.Metric))
	}
	if p.Type == IVFFlat && p.NList <= 0 {
		return NewError(KindValidation, "index params", "", fmt.Errorf("nlist must be positive, got %d", p.NList))
	}
	return nil
}

// Validate checks the search parameters.
func (p SearchParams) Validate() error {
	if !p.Metric.Valid() {
		return NewError(KindValidation, "search params", "", fmt.Errorf("unsupported metric %q", p.Metric))
	}
	if p.NProbe <= 0 {
		return NewError(KindValidation, "search params", "", fmt.Errorf("nprobe must be positive, got %d", p.NProbe))
	}
	return nil
}

// ParseIndexType parses a case-insensitive index type name.
func ParseIndexType(s string) (IndexType, error) {
	switch t := IndexType(strings.ToUpper(strings.TrimSpace(s))); t {
	case Flat, IVFFlat:
		return t, nil
	}
	return "", fmt.Errorf("vector: unknown index type %q", s)
}
