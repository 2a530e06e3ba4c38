package learn

import (
	"math"
	"math/rand"
	"sort"
)

// Task selects the kind of model being fitted
type Task int

const (
	Classification Task = iota
	Regression
)

func (t Task) String() string {
	if t == Classification {
		return "classification"
	}
	return "regression"
}

// constantEps is the minimal spread for a feature to be split on
const constantEps = 1e-7

type treeNode struct {
	left, right *treeNode
	feature     int
	threshold   float64
	leaf        bool
	value       float64   // regression mean
	dist        []float64 // class proportions
}

// Tree is a single CART tree. Labels for classification are class codes
// 0..Classes-1 stored as float64.
type Tree struct {
	Task        Task
	Classes     int
	MinSplit    int
	MinLeaf     int
	MaxDepth    int // -1 grows a full tree
	MaxFeatures int // -1 considers every feature
	root        *treeNode
	rng         *rand.Rand
}

type stackItem struct {
	node  *treeNode
	inx   []int
	depth int
}

// fitInx grows the tree on the samples selected by inx. inx may repeat
// samples, which is how bootstrap weights are expressed.
func (t *Tree) fitInx(X [][]float64, y []float64, inx []int) {
	nFeatures := len(X[0])
	maxFeatures := t.MaxFeatures
	if maxFeatures <= 0 || maxFeatures > nFeatures {
		maxFeatures = nFeatures
	}
	minSplit := max(t.MinSplit, 2)
	minLeaf := max(t.MinLeaf, 1)

	features := make([]int, nFeatures)
	for i := range features {
		features[i] = i
	}

	t.root = &treeNode{}
	stack := []stackItem{{node: t.root, inx: inx}}

	for len(stack) > 0 {
		w := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n := w.node

		impurity := t.setLeafValue(n, y, w.inx)

		if len(w.inx) < minSplit ||
			len(w.inx) < 2*minLeaf ||
			(t.MaxDepth > 0 && w.depth >= t.MaxDepth) ||
			impurity <= 1e-12 {
			n.leaf = true
			continue
		}

		bestGain := 0.0
		bestFeature, bestPos := -1, -1
		var bestThreshold float64
		var bestOrder []int

		// Fisher-Yates over the feature list; keep drawing past maxFeatures
		// until at least one non-constant feature was evaluated.
		evaluated := 0
		for j := nFeatures - 1; j >= 0; j-- {
			if evaluated >= maxFeatures && bestFeature >= 0 {
				break
			}
			k := t.rng.Intn(j + 1)
			features[k], features[j] = features[j], features[k]
			f := features[j]

			order := append([]int(nil), w.inx...)
			sort.SliceStable(order, func(a, b int) bool { return X[order[a]][f] < X[order[b]][f] })
			if X[order[len(order)-1]][f] <= X[order[0]][f]+constantEps {
				continue
			}
			evaluated++

			threshold, gain, pos := t.bestSplit(X, y, order, f, impurity, minLeaf)
			if pos > 0 && gain > bestGain {
				bestGain, bestFeature, bestThreshold, bestPos = gain, f, threshold, pos
				bestOrder = order
			}
		}

		if bestFeature < 0 {
			n.leaf = true
			continue
		}

		n.feature = bestFeature
		n.threshold = bestThreshold
		n.left = &treeNode{}
		n.right = &treeNode{}
		stack = append(stack,
			stackItem{node: n.left, inx: bestOrder[:bestPos], depth: w.depth + 1},
			stackItem{node: n.right, inx: bestOrder[bestPos:], depth: w.depth + 1},
		)
	}
}

// setLeafValue stores the prediction for a node and returns its impurity
func (t *Tree) setLeafValue(n *treeNode, y []float64, inx []int) float64 {
	total := float64(len(inx))
	if t.Task == Classification {
		counts := make([]float64, t.Classes)
		for _, i := range inx {
			counts[int(y[i])]++
		}
		gini := 1.0
		for c := range counts {
			p := counts[c] / total
			counts[c] = p
			gini -= p * p
		}
		n.dist = counts
		return gini
	}

	var s, ss float64
	for _, i := range inx {
		s += y[i]
		ss += y[i] * y[i]
	}
	mean := s / total
	n.value = mean
	return ss/total - mean*mean
}

// bestSplit scans the sorted samples for the split with the largest impurity
// decrease. pos is the size of the left partition, -1 when no split is valid.
func (t *Tree) bestSplit(X [][]float64, y []float64, order []int, f int, parent float64, minLeaf int) (threshold, gain float64, pos int) {
	n := len(order)
	pos = -1

	if t.Task == Classification {
		left := make([]float64, t.Classes)
		right := make([]float64, t.Classes)
		for _, i := range order {
			right[int(y[i])]++
		}
		for i := 1; i < n; i++ {
			c := int(y[order[i-1]])
			left[c]++
			right[c]--
			if X[order[i]][f] <= X[order[i-1]][f]+constantEps {
				continue
			}
			nL, nR := i, n-i
			if nL < minLeaf || nR < minLeaf {
				continue
			}
			d := parent - (float64(nL)/float64(n))*gini(left, nL) - (float64(nR)/float64(n))*gini(right, nR)
			if d > gain {
				gain = d
				threshold = (X[order[i-1]][f] + X[order[i]][f]) / 2
				pos = nL
			}
		}
		return threshold, gain, pos
	}

	var sL, ssL, sR, ssR float64
	for _, i := range order {
		sR += y[i]
		ssR += y[i] * y[i]
	}
	for i := 1; i < n; i++ {
		v := y[order[i-1]]
		sL += v
		ssL += v * v
		sR -= v
		ssR -= v * v
		if X[order[i]][f] <= X[order[i-1]][f]+constantEps {
			continue
		}
		nL, nR := float64(i), float64(n-i)
		if i < minLeaf || n-i < minLeaf {
			continue
		}
		lMean, rMean := sL/nL, sR/nR
		iL := ssL/nL - lMean*lMean
		iR := ssR/nR - rMean*rMean
		d := parent - (nL/float64(n))*iL - (nR/float64(n))*iR
		if d > gain {
			gain = d
			threshold = (X[order[i-1]][f] + X[order[i]][f]) / 2
			pos = i
		}
	}
	return threshold, gain, pos
}

func gini(counts []float64, n int) float64 {
	g := 1.0
	for _, c := range counts {
		p := c / float64(n)
		g -= p * p
	}
	return g
}

func (t *Tree) leafFor(x []float64) *treeNode {
	n := t.root
	for !n.leaf {
		if x[n.feature] <= n.threshold {
			n = n.left
		} else {
			n = n.right
		}
	}
	return n
}

// predictValue returns the regression estimate for one sample
func (t *Tree) predictValue(x []float64) float64 {
	return t.leafFor(x).value
}

// predictDist returns the class proportions for one sample
func (t *Tree) predictDist(x []float64) []float64 {
	return t.leafFor(x).dist
}

func argmax(v []float64) int {
	best, bestVal := 0, math.Inf(-1)
	for i, x := range v {
		if x > bestVal {
			best, bestVal = i, x
		}
	}
	return best
}
