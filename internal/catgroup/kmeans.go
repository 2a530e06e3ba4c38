package catgroup

import (
	"fmt"
	"math"
	"math/rand"
	"slices"

	"featuregraph/domain/core"
	"featuregraph/domain/dataset"
	"featuregraph/internal/learn"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

const maxIterations = 100

// targetProfile holds the per-row target representation used to describe
// categories: one indicator per class for classification, the value itself
// for regression.
type targetProfile struct {
	task  learn.Task
	rows  [][]float64
	valid []bool
	total []float64
}

func newTargetProfile(table *dataset.Table, target string, task learn.Task) (*targetProfile, error) {
	cells, err := table.Column(target)
	if err != nil {
		return nil, err
	}
	p := &targetProfile{task: task, rows: make([][]float64, len(cells)), valid: make([]bool, len(cells))}

	if task == learn.Classification {
		var present []string
		for _, c := range cells {
			if !dataset.IsMissing(c) {
				present = append(present, c)
			}
		}
		if len(present) == 0 {
			return nil, fmt.Errorf("%w: target %s has no values", core.ErrInsufficientData, target)
		}
		enc := learn.FitOrdinalEncoder(present)
		p.total = make([]float64, len(enc.Categories))
		for i, c := range cells {
			if dataset.IsMissing(c) {
				continue
			}
			codes, _ := enc.Transform([]string{c})
			row := make([]float64, len(enc.Categories))
			row[int(codes[0])] = 1
			p.rows[i], p.valid[i] = row, true
			p.total[int(codes[0])]++
		}
		return p, nil
	}

	for i, c := range cells {
		if v, ok := dataset.ParseNumber(c); ok {
			p.rows[i], p.valid[i] = []float64{v}, true
		}
	}
	if !slices.Contains(p.valid, true) {
		return nil, fmt.Errorf("%w: target %s has no numeric values", core.ErrInsufficientData, target)
	}
	return p, nil
}

// describe returns, per category, its target profile: the share of each
// class that falls in the category, or the mean target within it.
func (p *targetProfile) describe(cells []string) (map[string][]float64, map[string]float64) {
	sums := make(map[string][]float64)
	counts := make(map[string]float64)
	for i, c := range cells {
		if dataset.IsMissing(c) || !p.valid[i] {
			continue
		}
		if sums[c] == nil {
			sums[c] = make([]float64, len(p.rows[i]))
		}
		floats.Add(sums[c], p.rows[i])
		counts[c]++
	}
	for c, s := range sums {
		if p.task == learn.Classification {
			for j := range s {
				if p.total[j] > 0 {
					s[j] /= p.total[j]
				}
			}
		} else {
			floats.Scale(1/counts[c], s)
		}
	}
	return sums, counts
}

// groupKMeans clusters categories by target profile with Lloyd's algorithm,
// weighting each category by its row count. Clusters are numbered in the
// lexical order of their first category.
func groupKMeans(cells []string, p *targetProfile, k int, seed int64) map[string]string {
	profiles, weights := p.describe(cells)
	categories := make([]string, 0, len(profiles))
	for c := range profiles {
		categories = append(categories, c)
	}
	slices.Sort(categories)
	if len(categories) == 0 {
		return map[string]string{}
	}
	k = min(k, len(categories))

	points := make([][]float64, len(categories))
	w := make([]float64, len(categories))
	for i, c := range categories {
		points[i], w[i] = profiles[c], weights[c]
	}

	assign := lloyd(points, w, k, seed)

	names := make(map[int]string)
	mapping := make(map[string]string, len(categories))
	for i, c := range categories {
		name, ok := names[assign[i]]
		if !ok {
			name = fmt.Sprintf("grupo_%d", len(names))
			names[assign[i]] = name
		}
		mapping[c] = name
	}
	return mapping
}

func lloyd(points [][]float64, weights []float64, k int, seed int64) []int {
	centroids := seedCentroids(points, weights, k, rand.New(rand.NewSource(seed)))

	assign := make([]int, len(points))
	for iter := 0; iter < maxIterations; iter++ {
		changed := iter == 0
		for i, pt := range points {
			if best := nearest(pt, centroids); best != assign[i] {
				assign[i] = best
				changed = true
			}
		}
		if !changed {
			break
		}

		dim := len(points[0])
		for c := range centroids {
			var members []int
			for i, a := range assign {
				if a == c {
					members = append(members, i)
				}
			}
			// an empty cluster keeps its previous centroid
			if len(members) == 0 {
				continue
			}
			col := make([]float64, len(members))
			wt := make([]float64, len(members))
			for d := 0; d < dim; d++ {
				for m, i := range members {
					col[m], wt[m] = points[i][d], weights[i]
				}
				centroids[c][d] = stat.Mean(col, wt)
			}
		}
	}
	return assign
}

// seedCentroids picks initial centroids k-means++ style: each new centroid
// is drawn with probability proportional to the weighted squared distance to
// the closest centroid chosen so far.
func seedCentroids(points [][]float64, weights []float64, k int, rng *rand.Rand) [][]float64 {
	centroids := [][]float64{slices.Clone(points[rng.Intn(len(points))])}
	d2 := make([]float64, len(points))
	for len(centroids) < k {
		for i, pt := range points {
			d := floats.Distance(pt, centroids[nearest(pt, centroids)], 2)
			d2[i] = weights[i] * d * d
		}
		total := floats.Sum(d2)
		if total == 0 {
			centroids = append(centroids, slices.Clone(points[rng.Intn(len(points))]))
			continue
		}
		r, pick := rng.Float64()*total, -1
		for i, v := range d2 {
			if v == 0 {
				continue
			}
			pick = i
			if r -= v; r <= 0 {
				break
			}
		}
		centroids = append(centroids, slices.Clone(points[pick]))
	}
	return centroids
}

func nearest(pt []float64, centroids [][]float64) int {
	best, bestDist := 0, math.Inf(1)
	for c, centroid := range centroids {
		if d := floats.Distance(pt, centroid, 2); d < bestDist {
			best, bestDist = c, d
		}
	}
	return best
}
