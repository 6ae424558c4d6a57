// Scene Plus Engine - Loyalty Analytics and Personalized Offers
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/NandaKumar8776/scene-plus-engine

// Package segmentation clusters customers into behavioral segments with
// seeded k-means over standardized profile features.
package segmentation

import (
	"fmt"
	"math"
	"math/rand"
)

// kmeans clusters rows into k groups. Initialization is k-means++ driven by
// the seed, so a given dataset and seed always produce the same clustering.
func kmeans(data [][]float64, k, maxIter int, seed int64) (centroids [][]float64, labels []int, err error) {
	if k <= 0 {
		return nil, nil, fmt.Errorf("k must be positive, got %d", k)
	}
	if len(data) < k {
		return nil, nil, fmt.Errorf("need at least %d samples for %d clusters, got %d", k, k, len(data))
	}

	rng := rand.New(rand.NewSource(seed))
	centroids = seedCentroids(data, k, rng)
	labels = make([]int, len(data))

	for iter := 0; iter < maxIter; iter++ {
		changed := false
		for i, row := range data {
			best := nearestCentroid(row, centroids)
			if best != labels[i] {
				labels[i] = best
				changed = true
			}
		}
		if !changed && iter > 0 {
			break
		}
		recomputeCentroids(data, labels, centroids, rng)
	}
	return centroids, labels, nil
}

// seedCentroids picks initial centers with k-means++: the first uniformly,
// each subsequent one weighted by squared distance to the nearest chosen
// center.
func seedCentroids(data [][]float64, k int, rng *rand.Rand) [][]float64 {
	centroids := make([][]float64, 0, k)
	centroids = append(centroids, cloneRow(data[rng.Intn(len(data))]))

	dists := make([]float64, len(data))
	for len(centroids) < k {
		total := 0.0
		for i, row := range data {
			d := math.Inf(1)
			for _, c := range centroids {
				if sq := squaredDistance(row, c); sq < d {
					d = sq
				}
			}
			dists[i] = d
			total += d
		}
		if total == 0 {
			// All remaining points coincide with a chosen center.
			centroids = append(centroids, cloneRow(data[rng.Intn(len(data))]))
			continue
		}
		target := rng.Float64() * total
		idx := 0
		for i, d := range dists {
			target -= d
			if target <= 0 {
				idx = i
				break
			}
		}
		centroids = append(centroids, cloneRow(data[idx]))
	}
	return centroids
}

// recomputeCentroids moves each center to the mean of its members. An empty
// cluster is reseeded from the point farthest from its center so k clusters
// survive the iteration.
func recomputeCentroids(data [][]float64, labels []int, centroids [][]float64, rng *rand.Rand) {
	dims := len(data[0])
	counts := make([]int, len(centroids))
	sums := make([][]float64, len(centroids))
	for c := range sums {
		sums[c] = make([]float64, dims)
	}
	for i, row := range data {
		counts[labels[i]]++
		for j, v := range row {
			sums[labels[i]][j] += v
		}
	}
	for c := range centroids {
		if counts[c] == 0 {
			far := farthestPoint(data, labels, centroids)
			if far < 0 {
				far = rng.Intn(len(data))
			}
			copy(centroids[c], data[far])
			labels[far] = c
			continue
		}
		for j := 0; j < dims; j++ {
			centroids[c][j] = sums[c][j] / float64(counts[c])
		}
	}
}

func farthestPoint(data [][]float64, labels []int, centroids [][]float64) int {
	best, bestDist := -1, -1.0
	for i, row := range data {
		d := squaredDistance(row, centroids[labels[i]])
		if d > bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

func nearestCentroid(row []float64, centroids [][]float64) int {
	best, bestDist := 0, math.Inf(1)
	for c, centroid := range centroids {
		if d := squaredDistance(row, centroid); d < bestDist {
			best, bestDist = c, d
		}
	}
	return best
}

func squaredDistance(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

func cloneRow(row []float64) []float64 {
	out := make([]float64, len(row))
	copy(out, row)
	return out
}
