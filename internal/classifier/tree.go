package classifier

import "sort"

// Node is a single node of a regression tree. Leaves have Left == -1.
type Node struct {
	Feature   int
	Threshold float64
	Left      int
	Right     int
	Value     float64
}

// Tree is a binary regression tree stored as a flat node slice rooted at 0
type Tree struct {
	Nodes []Node
}

// predict walks the tree; samples with x[feature] <= threshold go left
func (t *Tree) predict(x []float64) float64 {
	i := 0
	for {
		n := &t.Nodes[i]
		if n.Left < 0 {
			return n.Value
		}
		if x[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

// treeBuilder grows one regression tree on the current residuals
type treeBuilder struct {
	x         [][]float64
	residual  []float64
	maxDepth  int
	minSplit  int
	minLeaf   int
	leafValue func(idx []int) float64
	nodes     []Node
}

func (b *treeBuilder) fit(idx []int) Tree {
	b.nodes = b.nodes[:0]
	b.build(idx, 0)
	nodes := make([]Node, len(b.nodes))
	copy(nodes, b.nodes)
	return Tree{Nodes: nodes}
}

func (b *treeBuilder) build(idx []int, depth int) int {
	node := len(b.nodes)
	b.nodes = append(b.nodes, Node{Left: -1, Right: -1})

	if depth < b.maxDepth && len(idx) >= b.minSplit {
		if feature, threshold, ok := b.bestSplit(idx); ok {
			var left, right []int
			for _, i := range idx {
				if b.x[i][feature] <= threshold {
					left = append(left, i)
				} else {
					right = append(right, i)
				}
			}
			l := b.build(left, depth+1)
			r := b.build(right, depth+1)
			b.nodes[node].Feature = feature
			b.nodes[node].Threshold = threshold
			b.nodes[node].Left = l
			b.nodes[node].Right = r
			return node
		}
	}

	b.nodes[node].Value = b.leafValue(idx)
	return node
}

// bestSplit scans every feature for the threshold with the largest
// Friedman improvement n_l*n_r/n * (mean_l - mean_r)^2.
func (b *treeBuilder) bestSplit(idx []int) (int, float64, bool) {
	n := len(idx)
	if n < 2 {
		return 0, 0, false
	}

	var total float64
	for _, i := range idx {
		total += b.residual[i]
	}

	sorted := make([]int, n)
	bestGain := 0.0
	bestFeature, bestThreshold := -1, 0.0

	numFeatures := len(b.x[idx[0]])
	for f := 0; f < numFeatures; f++ {
		copy(sorted, idx)
		sort.SliceStable(sorted, func(a, c int) bool {
			return b.x[sorted[a]][f] < b.x[sorted[c]][f]
		})

		var leftSum float64
		for pos := 0; pos < n-1; pos++ {
			leftSum += b.residual[sorted[pos]]
			cur, next := b.x[sorted[pos]][f], b.x[sorted[pos+1]][f]
			if cur == next {
				continue
			}
			nl, nr := pos+1, n-pos-1
			if nl < b.minLeaf || nr < b.minLeaf {
				continue
			}
			diff := leftSum/float64(nl) - (total-leftSum)/float64(nr)
			gain := float64(nl) * float64(nr) / float64(n) * diff * diff
			if gain > bestGain {
				bestGain = gain
				bestFeature = f
				bestThreshold = cur + (next-cur)/2
				if bestThreshold >= next {
					bestThreshold = cur
				}
			}
		}
	}

	if bestFeature < 0 {
		return 0, 0, false
	}
	return bestFeature, bestThreshold, true
}
