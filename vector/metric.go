package vector

import (
	"fmt"
	"strings"

	"github.com/viant/vec/search"
)

// Metric names a distance or similarity function.
type Metric string

const (
	L2     Metric = "L2"
	IP     Metric = "IP"
	Cosine Metric = "COSINE"
)

// ParseMetric parses a case-insensitive metric name. "InnerProduct" is
// accepted as an alias of IP.
func ParseMetric(s string) (Metric, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "L2", "EUCLIDEAN":
		return L2, nil
	case "IP", "INNERPRODUCT", "INNER_PRODUCT":
		return IP, nil
	case "COSINE", "COS":
		return Cosine, nil
	}
	return "", fmt.Errorf("vector: unknown metric %q", s)
}

// Valid reports whether m is a supported metric.
func (m Metric) Valid() bool {
	switch m {
	case L2, IP, Cosine:
		return true
	}
	return false
}

// HigherIsBetter reports whether raw scores of m grow with similarity.
func (m Metric) HigherIsBetter() bool { return m == IP || m == Cosine }

// Distance returns the distance between a and b under m; lower is closer.
// Similarity metrics are inverted: COSINE yields 1-cos, IP yields -dot.
// Vectors must have equal length.
func (m Metric) Distance(a, b []float32) float64 {
	switch m {
	case IP:
		return -dot(a, b)
	case Cosine:
		if search.Float32s(a).Magnitude() == 0 || search.Float32s(b).Magnitude() == 0 {
			return 1
		}
		return float64(search.Float32s(a).CosineDistance(b))
	default:
		return float64(search.Float32s(a).EuclideanDistance(b))
	}
}

// ToDistance converts a raw score reported by a backend under m into a
// distance; scores of similarity metrics are inverted.
func (m Metric) ToDistance(score float64) float64 {
	switch m {
	case IP:
		return -score
	case Cosine:
		return 1 - score
	}
	return score
}

func dot(a, b []float32) float64 {
	var s float64
	for i := range a {
		s += float64(a[i]) * float64(b[i])
	}
	return s
}
