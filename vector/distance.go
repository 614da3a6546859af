package vector

import "fmt"

// Score returns the raw score of a and b under m, in the form the SQL
// functions report it: the Euclidean distance for L2, the cosine similarity
// for COSINE and the dot product for IP. A zero-magnitude vector has cosine
// similarity 0 with anything.
func (m Metric) Score(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, NewError(KindQuery, "score", "", fmt.Errorf("%s dimension mismatch: %d vs %d", m, len(a), len(b)))
	}
	switch m {
	case L2:
		return m.Distance(a, b), nil
	case IP:
		return dot(a, b), nil
	case Cosine:
		return 1 - m.Distance(a, b), nil
	}
	return 0, NewError(KindValidation, "score", "", fmt.Errorf("unknown metric %q", m))
}
