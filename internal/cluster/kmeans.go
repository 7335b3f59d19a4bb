package cluster

import (
	"math"
	"math/rand"
)

// kmeansResult is one converged k-means run.
type kmeansResult struct {
	labels  []int
	inertia float64
}

const (
	maxIterations  = 300
	inertiaEpsilon = 1e-8
)

// kmeans runs one Lloyd iteration loop with k-means++ seeding. It converges
// when no point changes cluster or the total inertia moves by less than
// inertiaEpsilon between iterations. An empty cluster is reseeded from a
// uniformly random point.
func kmeans(points [][]float64, k int, rng *rand.Rand) kmeansResult {
	n := len(points)
	if k > n {
		k = n
	}
	centroids := seedPlusPlus(points, k, rng)
	labels := make([]int, n)
	for i := range labels {
		labels[i] = -1
	}

	prevInertia := math.Inf(1)
	for iter := 0; iter < maxIterations; iter++ {
		changed := false
		inertia := 0.0
		for i, p := range points {
			best, bestDist := 0, math.Inf(1)
			for c := range centroids {
				if d := squaredDistance(p, centroids[c]); d < bestDist {
					best, bestDist = c, d
				}
			}
			if labels[i] != best {
				labels[i] = best
				changed = true
			}
			inertia += bestDist
		}

		if !changed || math.Abs(prevInertia-inertia) < inertiaEpsilon {
			return kmeansResult{labels: labels, inertia: inertia}
		}
		prevInertia = inertia

		// Recompute centroids.
		dims := len(points[0])
		sums := make([][]float64, k)
		counts := make([]int, k)
		for c := range sums {
			sums[c] = make([]float64, dims)
		}
		for i, p := range points {
			c := labels[i]
			counts[c]++
			for d, val := range p {
				sums[c][d] += val
			}
		}
		for c := 0; c < k; c++ {
			if counts[c] == 0 {
				// Reseed an empty cluster from a random point.
				copy(centroids[c], points[rng.Intn(n)])
				continue
			}
			for d := range sums[c] {
				centroids[c][d] = sums[c][d] / float64(counts[c])
			}
		}
	}

	// Hit the iteration cap: report the final assignment's inertia.
	inertia := 0.0
	for i, p := range points {
		inertia += squaredDistance(p, centroids[labels[i]])
	}
	return kmeansResult{labels: labels, inertia: inertia}
}

// seedPlusPlus picks initial centroids with the k-means++ rule: the first
// uniformly at random, each subsequent one with probability proportional to
// its squared distance from the nearest centroid already chosen.
func seedPlusPlus(points [][]float64, k int, rng *rand.Rand) [][]float64 {
	n := len(points)
	centroids := make([][]float64, 0, k)
	first := points[rng.Intn(n)]
	centroids = append(centroids, append([]float64(nil), first...))

	distances := make([]float64, n)
	for len(centroids) < k {
		total := 0.0
		for i, p := range points {
			nearest := math.Inf(1)
			for _, c := range centroids {
				if d := squaredDistance(p, c); d < nearest {
					nearest = d
				}
			}
			distances[i] = nearest
			total += nearest
		}

		var next []float64
		if total <= 0 {
			// All remaining points coincide with a centroid.
			next = points[rng.Intn(n)]
		} else {
			target := rng.Float64() * total
			cum := 0.0
			next = points[n-1]
			for i, d := range distances {
				cum += d
				if cum >= target {
					next = points[i]
					break
				}
			}
		}
		centroids = append(centroids, append([]float64(nil), next...))
	}
	return centroids
}

func squaredDistance(a, b []float64) float64 {
	sum := 0.0
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}
