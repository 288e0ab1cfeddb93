package model

import (
	"errors"
	"fmt"

	"github.com/couchcryptid/storm-windspeed-predictor/internal/domain"
	"gonum.org/v1/gonum/stat"
)

// Sentinels used by the exported tree arrays.
const (
	LeafFeature = -2
	NoChild     = -1
)

// Tree is one regression tree stored as parallel node arrays. Node 0 is the root.
type Tree struct {
	Feature       []int
	Threshold     []float64
	Value         []float64
	ChildrenLeft  []int
	ChildrenRight []int
}

func (t *Tree) clone() Tree {
	return Tree{
		Feature:       append([]int(nil), t.Feature...),
		Threshold:     append([]float64(nil), t.Threshold...),
		Value:         append([]float64(nil), t.Value...),
		ChildrenLeft:  append([]int(nil), t.ChildrenLeft...),
		ChildrenRight: append([]int(nil), t.ChildrenRight...),
	}
}

// Len returns the number of nodes.
func (t *Tree) Len() int { return len(t.Value) }

func (t *Tree) isLeaf(node int) bool {
	return t.ChildrenLeft[node] == NoChild && t.ChildrenRight[node] == NoChild
}

// validate checks array lengths, that every split node points at valid
// children and a valid feature, and that no node is reachable twice from the root.
func (t *Tree) validate() error {
	n := t.Len()
	if n == 0 {
		return errors.New("tree has no nodes")
	}
	if len(t.Feature) != n || len(t.Threshold) != n || len(t.ChildrenLeft) != n || len(t.ChildrenRight) != n {
		return fmt.Errorf("node arrays differ in length: feature=%d threshold=%d value=%d children_left=%d children_right=%d",
			len(t.Feature), len(t.Threshold), n, len(t.ChildrenLeft), len(t.ChildrenRight))
	}
	for node := 0; node < n; node++ {
		if t.isLeaf(node) {
			continue
		}
		left, right := t.ChildrenLeft[node], t.ChildrenRight[node]
		if left < 0 || left >= n || right < 0 || right >= n {
			return fmt.Errorf("node %d has children (%d, %d) outside [0, %d)", node, left, right, n)
		}
		if f := t.Feature[node]; f < 0 || f >= domain.FeatureCount {
			return fmt.Errorf("node %d splits on feature %d", node, f)
		}
	}

	seen := make([]bool, n)
	stack := []int{0}
	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[node] {
			return fmt.Errorf("node %d is reachable by more than one path", node)
		}
		seen[node] = true
		if !t.isLeaf(node) {
			stack = append(stack, t.ChildrenLeft[node], t.ChildrenRight[node])
		}
	}
	return nil
}

// predict walks from the root to a leaf. Traversal is bounded by the node
// count so cyclic child links fail instead of looping.
func (t *Tree) predict(x []float64) (float64, error) {
	n := t.Len()
	if n == 0 || len(t.Feature) != n || len(t.Threshold) != n || len(t.ChildrenLeft) != n || len(t.ChildrenRight) != n {
		return 0, fmt.Errorf("%w: malformed node arrays", domain.ErrCorruptArtifact)
	}

	node := 0
	for steps := 0; steps <= n; steps++ {
		if t.isLeaf(node) {
			return t.Value[node], nil
		}
		f := t.Feature[node]
		if f < 0 || f >= len(x) {
			return 0, fmt.Errorf("%w: node %d splits on feature %d", domain.ErrCorruptArtifact, node, f)
		}
		// Trees were grown on float32 inputs; compare at that precision.
		if float64(float32(x[f])) <= t.Threshold[node] {
			node = t.ChildrenLeft[node]
		} else {
			node = t.ChildrenRight[node]
		}
		if node < 0 || node >= n {
			return 0, fmt.Errorf("%w: child index %d outside [0, %d)", domain.ErrCorruptArtifact, node, n)
		}
	}
	return 0, fmt.Errorf("%w: traversal did not reach a leaf within %d steps", domain.ErrCorruptArtifact, n)
}

// EnsembleRegressor averages the outputs of equally weighted trees.
type EnsembleRegressor struct {
	trees []Tree
}

// NewEnsembleRegressor copies and validates every tree eagerly. Errors wrap
// domain.ErrCorruptArtifact.
func NewEnsembleRegressor(trees []Tree) (*EnsembleRegressor, error) {
	if len(trees) == 0 {
		return nil, fmt.Errorf("%w: ensemble has no trees", domain.ErrCorruptArtifact)
	}
	owned := make([]Tree, len(trees))
	for i := range trees {
		owned[i] = trees[i].clone()
		if err := owned[i].validate(); err != nil {
			return nil, fmt.Errorf("%w: tree %d: %w", domain.ErrCorruptArtifact, i, err)
		}
	}
	return &EnsembleRegressor{trees: owned}, nil
}

// NumTrees returns the ensemble size.
func (e *EnsembleRegressor) NumTrees() int { return len(e.trees) }

// Predict returns the unweighted mean of every tree's leaf value.
func (e *EnsembleRegressor) Predict(x []float64) (float64, error) {
	if err := domain.CheckVector(x); err != nil {
		return 0, err
	}
	if len(e.trees) == 0 {
		return 0, fmt.Errorf("%w: ensemble has no trees", domain.ErrCorruptArtifact)
	}
	outputs := make([]float64, len(e.trees))
	for i := range e.trees {
		v, err := e.trees[i].predict(x)
		if err != nil {
			return 0, fmt.Errorf("tree %d: %w", i, err)
		}
		outputs[i] = v
	}
	return stat.Mean(outputs, nil), nil
}
