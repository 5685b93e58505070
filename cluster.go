package pdfhtml

import (
	"math"
	"slices"
)

// Cluster groups 1-D values. Values are sorted; a new cluster starts when
// the next value is more than tolerance away from the last value placed.
// The returned centroids are cluster means in ascending order.
func Cluster(values []float64, tolerance float64) []float64 {
	if len(values) == 0 {
		return nil
	}

	sorted := slices.Clone(values)
	slices.Sort(sorted)

	var centroids []float64
	sum, count := sorted[0], 1
	last := sorted[0]
	for _, v := range sorted[1:] {
		if math.Abs(v-last) > tolerance {
			centroids = append(centroids, sum/float64(count))
			sum, count = 0, 0
		}
		sum += v
		count++
		last = v
	}
	return append(centroids, sum/float64(count))
}

// NearestCentroid returns the index of the centroid closest to v, or -1
// when there are none. Ties go to the lower index.
func NearestCentroid(centroids []float64, v float64) int {
	best := -1
	bestDist := math.Inf(1)
	for i, c := range centroids {
		if d := math.Abs(c - v); d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

// mergeClosestCentroids merges the closest adjacent pair into its midpoint
// until at most limit centroids remain.
func mergeClosestCentroids(centroids []float64, limit int) []float64 {
	out := slices.Clone(centroids)
	for limit > 0 && len(out) > limit {
		best := 0
		bestGap := math.Inf(1)
		for i := 0; i+1 < len(out); i++ {
			if gap := out[i+1] - out[i]; gap < bestGap {
				best, bestGap = i, gap
			}
		}
		out[best] = (out[best] + out[best+1]) / 2
		out = slices.Delete(out, best+1, best+2)
	}
	return out
}
