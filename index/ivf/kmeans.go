package ivf

import (
	"math/rand"
)

const (
	maxIterations = 20
	convergence   = 1e-5
)

// kmeans clusters vectors into k centroids seeded with k-means++. The random
// source is seeded by the caller so that builds are reproducible.
func kmeans(vectors [][]float32, k int, rnd *rand.Rand) [][]float32 {
	if len(vectors) == 0 || k <= 0 {
		return nil
	}
	if k > len(vectors) {
		k = len(vectors)
	}
	centroids := initPlusPlus(vectors, k, rnd)
	dim := len(vectors[0])
	for iter := 0; iter < maxIterations; iter++ {
		sums := make([][]float64, k)
		counts := make([]int, k)
		for _, v := range vectors {
			c, _ := nearest(v, centroids)
			if sums[c] == nil {
				sums[c] = make([]float64, dim)
			}
			for i, f := range v {
				sums[c][i] += float64(f)
			}
			counts[c]++
		}
		converged := true
		for c := range centroids {
			if counts[c] == 0 {
				// empty cluster keeps its previous centroid
				continue
			}
			next := make([]float32, dim)
			for i := range next {
				next[i] = float32(sums[c][i] / float64(counts[c]))
			}
			if squaredL2(centroids[c], next) > convergence {
				converged = false
			}
			centroids[c] = next
		}
		if converged {
			break
		}
	}
	return centroids
}

func initPlusPlus(vectors [][]float32, k int, rnd *rand.Rand) [][]float32 {
	centroids := make([][]float32, 0, k)
	centroids = append(centroids, clone(vectors[rnd.Intn(len(vectors))]))
	distSq := make([]float64, len(vectors))
	for len(centroids) < k {
		var sum float64
		for j, v := range vectors {
			_, d := nearest(v, centroids)
			distSq[j] = d
			sum += d
		}
		if sum == 0 {
			// remaining vectors duplicate existing centroids
			centroids = append(centroids, clone(vectors[len(centroids)%len(vectors)]))
			continue
		}
		r := rnd.Float64() * sum
		selected := len(vectors) - 1
		var cumulative float64
		for j, d := range distSq {
			cumulative += d
			if cumulative >= r && d > 0 {
				selected = j
				break
			}
		}
		centroids = append(centroids, clone(vectors[selected]))
	}
	return centroids
}

// nearest returns the position of the closest centroid and its squared L2 distance.
func nearest(v []float32, centroids [][]float32) (int, float64) {
	best, bestDist := 0, -1.0
	for c, centroid := range centroids {
		d := squaredL2(v, centroid)
		if bestDist < 0 || d < bestDist {
			best, bestDist = c, d
		}
	}
	return best, bestDist
}

func squaredL2(a, b []float32) float64 {
	var s float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		s += d * d
	}
	return s
}

func clone(v []float32) []float32 { return append([]float32(nil), v...) }
