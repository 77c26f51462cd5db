package model

import "fmt"

// Tree is one decision tree of the frozen ensemble, flattened into parallel
// node arrays by the offline trainer. Node 0 is the root. A node is a leaf
// when its Feature entry is negative; otherwise Feature indexes into the
// input vector and Threshold splits it (x[feature] <= threshold goes left).
type Tree struct {
	Feature   []int       `json:"feature"`
	Threshold []float64   `json:"threshold"`
	Left      []int       `json:"left"`
	Right     []int       `json:"right"`
	Value     [][]float64 `json:"value"` // per-node class counts [normal, failure]
}

// Forest is a frozen binary tree-ensemble classifier. It holds no mutable
// state, so a single instance is shared read-only across all prediction
// calls.
type Forest struct {
	Trees []Tree `json:"trees"`
}

// validate checks the structural integrity of every tree: array lengths
// agree, child indices stay in range, and leaf distributions are non-empty.
func (f *Forest) validate() error {
	if len(f.Trees) == 0 {
		return fmt.Errorf("classifier has no trees")
	}
	for i, t := range f.Trees {
		n := len(t.Feature)
		if n == 0 {
			return fmt.Errorf("tree %d is empty", i)
		}
		if len(t.Threshold) != n || len(t.Left) != n || len(t.Right) != n || len(t.Value) != n {
			return fmt.Errorf("tree %d: node arrays have mismatched lengths", i)
		}
		for node := 0; node < n; node++ {
			if t.Feature[node] < 0 {
				if len(t.Value[node]) != 2 {
					return fmt.Errorf("tree %d node %d: leaf value must have 2 classes", i, node)
				}
				continue
			}
			if t.Left[node] < 0 || t.Left[node] >= n || t.Right[node] < 0 || t.Right[node] >= n {
				return fmt.Errorf("tree %d node %d: child index out of range", i, node)
			}
		}
	}
	return nil
}

// PredictProba returns the class probability distribution [normal, failure]
// for the given feature vector, averaged across all trees. The walk is fully
// deterministic — the same vector and the same loaded artifact always yield
// the same output.
func (f *Forest) PredictProba(x []float64) [2]float64 {
	var sum [2]float64
	for i := range f.Trees {
		p := f.Trees[i].leafProba(x)
		sum[0] += p[0]
		sum[1] += p[1]
	}
	n := float64(len(f.Trees))
	return [2]float64{sum[0] / n, sum[1] / n}
}

// leafProba walks the tree to a leaf and returns its normalized class
// distribution.
func (t *Tree) leafProba(x []float64) [2]float64 {
	node := 0
	for t.Feature[node] >= 0 {
		feat := t.Feature[node]
		var v float64
		if feat < len(x) {
			v = x[feat]
		}
		if v <= t.Threshold[node] {
			node = t.Left[node]
		} else {
			node = t.Right[node]
		}
	}

	counts := t.Value[node]
	total := counts[0] + counts[1]
	if total <= 0 {
		return [2]float64{0.5, 0.5}
	}
	return [2]float64{counts[0] / total, counts[1] / total}
}
