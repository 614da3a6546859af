// Package ivf implements an IVF_FLAT index: vectors are partitioned into
// nlist clusters with k-means++, and a query scans only the nprobe clusters
// whose centroids are closest to it. Vectors are kept unquantized.
//
// Clustering and centroid probing use L2; candidates inside the probed
// clusters are ranked with the configured metric. For L2-normalized
// embeddings the three metrics induce the same neighbour order.
package ivf
