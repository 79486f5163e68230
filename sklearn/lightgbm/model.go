package lightgbm

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/pricepredict/pkg/errors"
)

// Node represents a single node in a regression tree
type Node struct {
	LeftChild  int // Left child node index (-1 if leaf)
	RightChild int // Right child node index (-1 if leaf)

	// Split information (for non-leaf nodes)
	SplitFeature int     // Feature index used for splitting
	Threshold    float64 // Samples with value <= Threshold go left
	DefaultLeft  bool    // Direction for NaN values
	Gain         float64 // Split gain (reduction in loss)

	// Leaf information (for leaf nodes)
	LeafValue float64
	LeafCount int
}

// IsLeaf returns true if the node is a leaf node
func (n *Node) IsLeaf() bool {
	return n.LeftChild == -1 && n.RightChild == -1
}

// Tree represents a single decision tree in the ensemble
type Tree struct {
	TreeIndex     int     // Index of the tree in ensemble
	NumLeaves     int     // Number of leaf nodes
	ShrinkageRate float64 // Learning rate applied to this tree
	Nodes         []Node  // Nodes[0] is the root
}

// Predict returns the shrunk leaf value reached by features.
func (t *Tree) Predict(features []float64) float64 {
	nodeID := 0
	for nodeID >= 0 && nodeID < len(t.Nodes) {
		node := &t.Nodes[nodeID]
		if node.IsLeaf() {
			return node.LeafValue * t.ShrinkageRate
		}

		v := features[node.SplitFeature]
		switch {
		case math.IsNaN(v):
			if node.DefaultLeft {
				nodeID = node.LeftChild
			} else {
				nodeID = node.RightChild
			}
		case v <= node.Threshold:
			nodeID = node.LeftChild
		default:
			nodeID = node.RightChild
		}
	}
	return 0
}

// Model is a trained ensemble of regression trees
type Model struct {
	Trees        []Tree
	NumFeatures  int
	NumIteration int
	LearningRate float64
	NumLeaves    int
	InitScore    float64
}

// PredictRow returns the raw score of one sample
func (m *Model) PredictRow(features []float64) float64 {
	score := m.InitScore
	for i := range m.Trees {
		score += m.Trees[i].Predict(features)
	}
	return score
}

// Predict returns an n×1 matrix of predictions
func (m *Model) Predict(X mat.Matrix) (mat.Matrix, error) {
	rows, cols := X.Dims()
	if cols != m.NumFeatures {
		return nil, errors.NewDimensionError("lightgbm.Model.Predict", m.NumFeatures, cols, 1)
	}

	out := mat.NewDense(rows, 1, nil)
	row := make([]float64, cols)
	for i := 0; i < rows; i++ {
		mat.Row(row, i, X)
		out.Set(i, 0, m.PredictRow(row))
	}
	return out, nil
}

// FeatureImportance returns the total split gain of each feature
func (m *Model) FeatureImportance() []float64 {
	importance := make([]float64, m.NumFeatures)
	for _, tree := range m.Trees {
		for _, node := range tree.Nodes {
			if !node.IsLeaf() {
				importance[node.SplitFeature] += node.Gain
			}
		}
	}
	return importance
}

// String summarizes the ensemble
func (m *Model) String() string {
	return fmt.Sprintf("FastTree(trees=%d, features=%d, learning_rate=%g, init_score=%g)",
		len(m.Trees), m.NumFeatures, m.LearningRate, m.InitScore)
}
