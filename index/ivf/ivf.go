package ivf

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"

	"github.com/viant/agentvec/index/flat"
	"github.com/viant/agentvec/internal/codec"
	"github.com/viant/agentvec/vector"
)

const magic = "IVF1"

// Seed fixes the k-means++ initialization so that identical inputs produce
// identical partitions.
const Seed int64 = 1

// Index is an IVF_FLAT index.
type Index struct {
	metric    vector.Metric
	nlist     int
	dim       int
	ids       []string
	vecs      [][]float32
	centroids [][]float32
	lists     [][]int
}

// New returns an empty index that partitions into at most nlist clusters.
func New(metric vector.Metric, nlist int) *Index {
	return &Index{metric: metric, nlist: nlist}
}

// Len returns the number of indexed vectors.
func (i *Index) Len() int { return len(i.ids) }

// NList returns the number of clusters of the last build, at most the
// configured nlist.
func (i *Index) NList() int { return len(i.centroids) }

// Build partitions vectors into min(nlist, len(vectors)) clusters.
func (i *Index) Build(ids []string, vectors [][]float32) error {
	if len(ids) != len(vectors) {
		return fmt.Errorf("ivf: ids and vectors length mismatch: %d != %d", len(ids), len(vectors))
	}
	if i.nlist <= 0 {
		return fmt.Errorf("ivf: nlist must be positive, got %d", i.nlist)
	}
	if len(ids) == 0 {
		i.ids, i.vecs, i.centroids, i.lists, i.dim = nil, nil, nil, nil, 0
		return nil
	}
	dim := len(vectors[0])
	for j := range vectors {
		if len(vectors[j]) != dim {
			return fmt.Errorf("ivf: inconsistent vector dims %d vs %d", len(vectors[j]), dim)
		}
	}
	centroids := kmeans(vectors, i.nlist, rand.New(rand.NewSource(Seed)))
	lists := make([][]int, len(centroids))
	for j, v := range vectors {
		c, _ := nearest(v, centroids)
		lists[c] = append(lists[c], j)
	}
	i.ids = append([]string(nil), ids...)
	i.vecs = append([][]float32(nil), vectors...)
	i.dim = dim
	i.centroids = centroids
	i.lists = lists
	return nil
}

// Query scans the nprobe clusters nearest to query and returns up to k ids
// by ascending distance. nprobe <= 0 probes a single cluster.
func (i *Index) Query(query []float32, k, nprobe int) ([]string, []float64, error) {
	if i.dim == 0 || len(i.vecs) == 0 {
		return nil, nil, nil
	}
	if len(query) != i.dim {
		return nil, nil, fmt.Errorf("ivf: query dim %d != index dim %d", len(query), i.dim)
	}
	if nprobe <= 0 {
		nprobe = 1
	}
	if nprobe > len(i.centroids) {
		nprobe = len(i.centroids)
	}
	order := make([]int, len(i.centroids))
	dists := make([]float64, len(i.centroids))
	for c := range i.centroids {
		order[c] = c
		dists[c] = squaredL2(query, i.centroids[c])
	}
	sort.SliceStable(order, func(a, b int) bool { return dists[order[a]] < dists[order[b]] })
	var candidates []int
	for _, c := range order[:nprobe] {
		candidates = append(candidates, i.lists[c]...)
	}
	// keep insertion order among equal distances
	sort.Ints(candidates)
	return flat.TopK(i.metric, query, i.ids, i.vecs, candidates, k)
}

// MarshalBinary stores: magic, metric, nlist, dim, n, items (id, vec),
// clusters (centroid, member count, member positions).
func (i *Index) MarshalBinary() ([]byte, error) {
	size := 4 + 4 + len(i.metric) + 12 + len(i.centroids)*(4*i.dim+4) + len(i.ids)*4
	for _, id := range i.ids {
		size += 4 + len(id) + 4*i.dim
	}
	w := codec.NewWriter(size)
	w.String(magic)
	w.String(string(i.metric))
	w.U32(uint32(i.nlist))
	w.U32(uint32(i.dim))
	w.U32(uint32(len(i.ids)))
	for idx, id := range i.ids {
		w.String(id)
		w.Vector(i.vecs[idx])
	}
	w.U32(uint32(len(i.centroids)))
	for c, centroid := range i.centroids {
		w.Vector(centroid)
		w.U32(uint32(len(i.lists[c])))
		for _, member := range i.lists[c] {
			w.U32(uint32(member))
		}
	}
	return w.Bytes(), nil
}

// UnmarshalBinary restores the index from bytes without re-clustering.
func (i *Index) UnmarshalBinary(data []byte) error {
	r := codec.NewReader(data)
	if m := r.String(); m != magic {
		if r.Err() != nil {
			return fmt.Errorf("ivf: %w", r.Err())
		}
		return errors.New("ivf: invalid data")
	}
	metric := vector.Metric(r.String())
	nlist := int(r.U32())
	dim := int(r.U32())
	n := int(r.U32())
	if err := r.Err(); err != nil {
		return fmt.Errorf("ivf: %w", err)
	}
	if i.metric != "" && metric != i.metric {
		return fmt.Errorf("ivf: stored metric %s, want %s", metric, i.metric)
	}
	ids := make([]string, 0, n)
	vecs := make([][]float32, 0, n)
	for idx := 0; idx < n; idx++ {
		ids = append(ids, r.String())
		vecs = append(vecs, r.Vector(dim))
		if err := r.Err(); err != nil {
			return fmt.Errorf("ivf: %w", err)
		}
	}
	count := int(r.U32())
	centroids := make([][]float32, 0, count)
	lists := make([][]int, 0, count)
	for c := 0; c < count; c++ {
		centroids = append(centroids, r.Vector(dim))
		size := int(r.U32())
		if size > n {
			return fmt.Errorf("ivf: cluster size %d exceeds %d vectors", size, n)
		}
		members := make([]int, size)
		for m := range members {
			members[m] = int(r.U32())
			if members[m] >= n {
				return fmt.Errorf("ivf: member %d out of range", members[m])
			}
		}
		if err := r.Err(); err != nil {
			return fmt.Errorf("ivf: %w", err)
		}
		lists = append(lists, members)
	}
	i.metric, i.nlist, i.dim = metric, nlist, dim
	i.ids, i.vecs, i.centroids, i.lists = ids, vecs, centroids, lists
	if n == 0 {
		i.dim = 0
	}
	return nil
}
