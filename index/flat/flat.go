package flat

import (
	"errors"
	"fmt"
	"sort"

	"github.com/viant/agentvec/internal/codec"
	"github.com/viant/agentvec/vector"
)

// Index is an exact brute-force vector index.
type Index struct {
	metric vector.Metric
	ids    []string
	vecs   [][]float32
	dim    int
}

// New returns an empty index scoring with metric.
func New(metric vector.Metric) *Index { return &Index{metric: metric} }

// Metric returns the metric the index scores with.
func (i *Index) Metric() vector.Metric { return i.metric }

// Len returns the number of indexed vectors.
func (i *Index) Len() int { return len(i.ids) }

// Build loads ids and vectors.
func (i *Index) Build(ids []string, vectors [][]float32) error {
	if len(ids) != len(vectors) {
		return fmt.Errorf("flat: ids and vectors length mismatch: %d != %d", len(ids), len(vectors))
	}
	if len(ids) == 0 {
		i.ids, i.vecs, i.dim = nil, nil, 0
		return nil
	}
	dim := len(vectors[0])
	for j := range vectors {
		if len(vectors[j]) != dim {
			return fmt.Errorf("flat: inconsistent vector dims %d vs %d", len(vectors[j]), dim)
		}
	}
	i.ids = append([]string(nil), ids...)
	i.vecs = append([][]float32(nil), vectors...)
	i.dim = dim
	return nil
}

// Query returns the top-k ids by ascending distance. nprobe is ignored.
func (i *Index) Query(query []float32, k, _ int) ([]string, []float64, error) {
	if i.dim == 0 || len(i.vecs) == 0 {
		return nil, nil, nil
	}
	if len(query) != i.dim {
		return nil, nil, fmt.Errorf("flat: query dim %d != index dim %d", len(query), i.dim)
	}
	candidates := make([]int, len(i.vecs))
	for j := range candidates {
		candidates[j] = j
	}
	return TopK(i.metric, query, i.ids, i.vecs, candidates, k)
}

// TopK scores the candidate positions of vecs against query and returns the k
// closest ids with their distances. Ties keep candidate order.
func TopK(metric vector.Metric, query []float32, ids []string, vecs [][]float32, candidates []int, k int) ([]string, []float64, error) {
	type scored struct {
		idx  int
		dist float64
	}
	scoreds := make([]scored, 0, len(candidates))
	for _, j := range candidates {
		scoreds = append(scoreds, scored{idx: j, dist: metric.Distance(query, vecs[j])})
	}
	sort.SliceStable(scoreds, func(a, b int) bool { return scoreds[a].dist < scoreds[b].dist })
	if k <= 0 || k > len(scoreds) {
		k = len(scoreds)
	}
	outIDs := make([]string, k)
	outDists := make([]float64, k)
	for n := 0; n < k; n++ {
		outIDs[n] = ids[scoreds[n].idx]
		outDists[n] = scoreds[n].dist
	}
	return outIDs, outDists, nil
}

// MarshalBinary stores: metric(string), dim(uint32), n(uint32), then for
// each item: id(string), vec(float32[dim]).
func (i *Index) MarshalBinary() ([]byte, error) {
	size := 12 + len(i.metric)
	for _, id := range i.ids {
		size += 4 + len(id) + 4*i.dim
	}
	w := codec.NewWriter(size)
	w.String(string(i.metric))
	w.U32(uint32(i.dim))
	w.U32(uint32(len(i.ids)))
	for idx, id := range i.ids {
		w.String(id)
		w.Vector(i.vecs[idx])
	}
	return w.Bytes(), nil
}

// UnmarshalBinary restores the index from bytes.
func (i *Index) UnmarshalBinary(data []byte) error {
	if len(data) < 12 {
		return errors.New("flat: invalid data")
	}
	r := codec.NewReader(data)
	metric := vector.Metric(r.String())
	dim := int(r.U32())
	n := int(r.U32())
	if err := r.Err(); err != nil {
		return fmt.Errorf("flat: %w", err)
	}
	if i.metric != "" && metric != i.metric {
		return fmt.Errorf("flat: stored metric %s, want %s", metric, i.metric)
	}
	ids := make([]string, 0, n)
	vecs := make([][]float32, 0, n)
	for idx := 0; idx < n; idx++ {
		ids = append(ids, r.String())
		vecs = append(vecs, r.Vector(dim))
		if err := r.Err(); err != nil {
			return fmt.Errorf("flat: %w", err)
		}
	}
	i.metric = metric
	return i.Build(ids, vecs)
}
