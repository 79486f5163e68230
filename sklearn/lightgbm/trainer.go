package lightgbm

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/pricepredict/core/parallel"
	"github.com/YuminosukeSato/pricepredict/pkg/errors"
	"github.com/YuminosukeSato/pricepredict/pkg/log"
)

// parallelSplitThreshold is the number of leaf rows below which the split
// search stays on the calling goroutine.
const parallelSplitThreshold = 2048

// Trainer implements leaf-wise gradient boosting with the L2 objective
type Trainer struct {
	params TrainingParams

	// Data
	X *mat.Dense
	y []float64

	// orderedIdx holds, per feature, the row indices with a non-NaN value sorted by value
	orderedIdx [][]int

	// Gradient and Hessian
	gradients []float64
	hessians  []float64

	// scores caches the current ensemble prediction of every training row
	scores []float64

	// goLeft is scratch space for partitioning rows of a split leaf
	goLeft []bool

	trees     []Tree
	initScore float64
	iteration int

	logger log.Logger
}

// TrainingParams contains all training hyperparameters
type TrainingParams struct {
	NumIterations  int     `json:"num_iterations"`
	LearningRate   float64 `json:"learning_rate"`
	NumLeaves      int     `json:"num_leaves"`
	MaxDepth       int     `json:"max_depth"` // 0 means unlimited
	MinDataInLeaf  int     `json:"min_data_in_leaf"`
	Lambda         float64 `json:"lambda_l2"`
	MinGainToSplit float64 `json:"min_gain_to_split"`
	Verbosity      int     `json:"verbosity"`
}

// DefaultTrainingParams returns the FastTree defaults
func DefaultTrainingParams() TrainingParams {
	return TrainingParams{
		NumIterations: 100,
		LearningRate:  0.2,
		NumLeaves:     20,
		MinDataInLeaf: 10,
	}
}

// SplitInfo contains information about a potential split
type SplitInfo struct {
	Feature    int
	Threshold  float64
	Gain       float64
	LeftCount  int
	RightCount int
}

// leaf is a node that may still be split
type leaf struct {
	node    int
	depth   int
	rows    []int
	sorted  [][]int
	sumGrad float64
	sumHess float64
	split   SplitInfo
}

// NewTrainer creates a new trainer, filling zero parameters with defaults
func NewTrainer(params TrainingParams) *Trainer {
	defaults := DefaultTrainingParams()
	if params.NumIterations == 0 {
		params.NumIterations = defaults.NumIterations
	}
	if params.LearningRate == 0 {
		params.LearningRate = defaults.LearningRate
	}
	if params.NumLeaves == 0 {
		params.NumLeaves = defaults.NumLeaves
	}
	if params.MinDataInLeaf == 0 {
		params.MinDataInLeaf = defaults.MinDataInLeaf
	}

	return &Trainer{
		params: params,
		logger: log.GetLoggerWithName("lightgbm.trainer"),
	}
}

// Fit trains the ensemble. X may contain NaN, y may not.
func (t *Trainer) Fit(X, y mat.Matrix) error {
	rows, cols := X.Dims()
	yRows, yCols := y.Dims()
	if rows == 0 || cols == 0 {
		return errors.NewModelError("lightgbm.Fit", "empty data", errors.ErrEmptyData)
	}
	if rows != yRows {
		return errors.NewDimensionError("lightgbm.Fit", rows, yRows, 0)
	}
	if yCols != 1 {
		return errors.NewDimensionError("lightgbm.Fit", 1, yCols, 1)
	}
	if t.params.NumLeaves < 2 {
		return errors.NewValueError("lightgbm.Fit", "num_leaves must be at least 2")
	}
	if t.params.LearningRate <= 0 {
		return errors.NewValueError("lightgbm.Fit", "learning_rate must be positive")
	}

	t.X = mat.DenseCopyOf(X)
	t.y = mat.Col(nil, 0, y)
	if err := errors.CheckNumericalStability("lightgbm.Fit", t.y, 0); err != nil {
		return err
	}

	t.initialize()

	for iter := 0; iter < t.params.NumIterations; iter++ {
		t.iteration = iter
		t.calculateGradients()

		tree := t.buildTree()
		t.trees = append(t.trees, tree)
		t.updateScores(tree)

		if t.params.Verbosity > 0 && iter%10 == 0 {
			t.logger.Debug("Training progress",
				log.IterationKey, iter,
				log.LossKey, t.calculateLoss())
		}
	}

	return nil
}

// initialize prepares gradients, the score cache and the presorted indices
func (t *Trainer) initialize() {
	rows, cols := t.X.Dims()

	t.gradients = make([]float64, rows)
	t.hessians = make([]float64, rows)
	t.goLeft = make([]bool, rows)
	t.trees = t.trees[:0]

	t.initScore = stat.Mean(t.y, nil)
	t.scores = make([]float64, rows)
	for i := range t.scores {
		t.scores[i] = t.initScore
	}

	t.orderedIdx = make([][]int, cols)
	for j := 0; j < cols; j++ {
		indices := make([]int, 0, rows)
		for i := 0; i < rows; i++ {
			if !math.IsNaN(t.X.At(i, j)) {
				indices = append(indices, i)
			}
		}
		feature := j
		sort.SliceStable(indices, func(a, b int) bool {
			return t.X.At(indices[a], feature) < t.X.At(indices[b], feature)
		})
		t.orderedIdx[j] = indices
	}
}

// calculateGradients computes L2 gradients and hessians for the cached scores
func (t *Trainer) calculateGradients() {
	for i, target := range t.y {
		t.gradients[i] = t.scores[i] - target
		t.hessians[i] = 1
	}
}

// buildTree grows one tree leaf-wise
func (t *Trainer) buildTree() Tree {
	tree := Tree{
		TreeIndex:     t.iteration,
		ShrinkageRate: t.params.LearningRate,
	}

	rows := len(t.y)
	root := &leaf{rows: make([]int, rows), sorted: t.orderedIdx}
	for i := range root.rows {
		root.rows[i] = i
		root.sumGrad += t.gradients[i]
		root.sumHess += t.hessians[i]
	}
	root.node = t.appendLeaf(&tree, root)
	t.evaluate(root)

	leaves := []*leaf{root}
	for len(leaves) < t.params.NumLeaves {
		best := -1
		for i, l := range leaves {
			if l.split.Gain > t.params.MinGainToSplit && l.split.Gain > 0 &&
				(best < 0 || l.split.Gain > leaves[best].split.Gain) {
				best = i
			}
		}
		if best < 0 {
			break
		}

		left, right := t.splitLeaf(&tree, leaves[best])
		leaves[best] = left
		leaves = append(leaves, right)
	}

	tree.NumLeaves = len(leaves)
	return tree
}

func (t *Trainer) appendLeaf(tree *Tree, l *leaf) int {
	tree.Nodes = append(tree.Nodes, Node{
		LeftChild:  -1,
		RightChild: -1,
		LeafValue:  t.calculateLeafValue(l.sumGrad, l.sumHess),
		LeafCount:  len(l.rows),
	})
	return len(tree.Nodes) - 1
}

// evaluate stores the best split of l, or a zero-gain split when none is allowed
func (t *Trainer) evaluate(l *leaf) {
	l.split = SplitInfo{Feature: -1}
	if t.params.MaxDepth > 0 && l.depth >= t.params.MaxDepth {
		return
	}
	if len(l.rows) < 2*t.params.MinDataInLeaf {
		return
	}

	_, cols := t.X.Dims()
	sequential := cols
	if len(l.rows) >= parallelSplitThreshold {
		sequential = 0
	}
	candidates := parallel.Map(cols, sequential, func(j int) SplitInfo {
		return t.findBestSplitForFeature(l, j)
	})
	for _, c := range candidates {
		if c.Feature >= 0 && c.Gain > l.split.Gain {
			l.split = c
		}
	}
}

// findBestSplitForFeature scans the sorted values of feature within the leaf.
// Rows with NaN for the feature always go right.
func (t *Trainer) findBestSplitForFeature(l *leaf, feature int) SplitInfo {
	best := SplitInfo{Feature: -1}
	values := l.sorted[feature]
	total := len(l.rows)

	var leftGrad, leftHess float64
	for i := 0; i < len(values)-1; i++ {
		idx := values[i]
		leftGrad += t.gradients[idx]
		leftHess += t.hessians[idx]

		v, next := t.X.At(idx, feature), t.X.At(values[i+1], feature)
		if v == next {
			continue
		}

		leftCount := i + 1
		rightCount := total - leftCount
		if leftCount < t.params.MinDataInLeaf || rightCount < t.params.MinDataInLeaf {
			continue
		}

		gain := t.calculateSplitGain(leftGrad, leftHess, l.sumGrad-leftGrad, l.sumHess-leftHess, l.sumGrad, l.sumHess)
		if gain > best.Gain {
			best = SplitInfo{
				Feature:    feature,
				Threshold:  (v + next) / 2,
				Gain:       gain,
				LeftCount:  leftCount,
				RightCount: rightCount,
			}
		}
	}
	return best
}

// calculateSplitGain calculates the reduction in loss from a split
func (t *Trainer) calculateSplitGain(leftGrad, leftHess, rightGrad, rightHess, totalGrad, totalHess float64) float64 {
	lambda := t.params.Lambda

	leftScore := (leftGrad * leftGrad) / (leftHess + lambda)
	rightScore := (rightGrad * rightGrad) / (rightHess + lambda)
	totalScore := (totalGrad * totalGrad) / (totalHess + lambda)

	return 0.5 * (leftScore + rightScore - totalScore)
}

// calculateLeafValue calculates the optimal value for a leaf node
func (t *Trainer) calculateLeafValue(sumGrad, sumHess float64) float64 {
	const epsilon = 1e-10
	return -sumGrad / (sumHess + t.params.Lambda + epsilon)
}

// splitLeaf turns l into an internal node and returns its two children.
// Row order inside every per-feature list is preserved.
func (t *Trainer) splitLeaf(tree *Tree, l *leaf) (*leaf, *leaf) {
	split := l.split
	for _, idx := range l.rows {
		v := t.X.At(idx, split.Feature)
		t.goLeft[idx] = !math.IsNaN(v) && v <= split.Threshold
	}

	left := &leaf{depth: l.depth + 1, sorted: make([][]int, len(l.sorted))}
	right := &leaf{depth: l.depth + 1, sorted: make([][]int, len(l.sorted))}
	left.rows = make([]int, 0, split.LeftCount)
	right.rows = make([]int, 0, split.RightCount)
	for _, idx := range l.rows {
		if t.goLeft[idx] {
			left.rows = append(left.rows, idx)
			left.sumGrad += t.gradients[idx]
			left.sumHess += t.hessians[idx]
		} else {
			right.rows = append(right.rows, idx)
			right.sumGrad += t.gradients[idx]
			right.sumHess += t.hessians[idx]
		}
	}
	for j, values := range l.sorted {
		var lv, rv []int
		for _, idx := range values {
			if t.goLeft[idx] {
				lv = append(lv, idx)
			} else {
				rv = append(rv, idx)
			}
		}
		left.sorted[j], right.sorted[j] = lv, rv
	}

	left.node = t.appendLeaf(tree, left)
	right.node = t.appendLeaf(tree, right)

	node := &tree.Nodes[l.node]
	node.SplitFeature = split.Feature
	node.Threshold = split.Threshold
	node.Gain = split.Gain
	node.LeftChild = left.node
	node.RightChild = right.node
	node.LeafValue = 0
	node.LeafCount = 0

	t.evaluate(left)
	t.evaluate(right)
	return left, right
}

// updateScores adds the new tree's output to the score cache
func (t *Trainer) updateScores(tree Tree) {
	row := make([]float64, t.X.RawMatrix().Cols)
	for i := range t.scores {
		mat.Row(row, i, t.X)
		t.scores[i] += tree.Predict(row)
	}
}

// calculateLoss returns the mean squared error on the training rows
func (t *Trainer) calculateLoss() float64 {
	var loss float64
	for i, target := range t.y {
		d := t.scores[i] - target
		loss += d * d
	}
	return loss / float64(len(t.y))
}

// GetModel returns the trained model
func (t *Trainer) GetModel() *Model {
	trees := make([]Tree, len(t.trees))
	copy(trees, t.trees)
	return &Model{
		Trees:        trees,
		NumIteration: len(trees),
		NumFeatures:  t.X.RawMatrix().Cols,
		LearningRate: t.params.LearningRate,
		NumLeaves:    t.params.NumLeaves,
		InitScore:    t.initScore,
	}
}
