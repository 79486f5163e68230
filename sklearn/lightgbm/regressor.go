package lightgbm

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/pricepredict/core/model"
	"github.com/YuminosukeSato/pricepredict/metrics"
	"github.com/YuminosukeSato/pricepredict/pkg/errors"
	"github.com/YuminosukeSato/pricepredict/pkg/log"
)

// FastTreeRegressor is a gradient-boosted tree regressor with a scikit-learn style API
type FastTreeRegressor struct {
	model.BaseEstimator

	// Model is the trained ensemble
	Model *Model

	// Hyperparameters
	NumLeaves       int     // Maximum number of leaves in one tree
	MaxDepth        int     // Maximum tree depth (0 for no limit)
	LearningRate    float64 // Boosting learning rate
	NumIterations   int     // Number of boosting iterations
	MinChildSamples int     // Minimum number of data in one leaf
	RegLambda       float64 // L2 regularization
	MinGainToSplit  float64 // Minimum gain to perform a split
	Verbosity       int     // Verbosity level

	NFeatures int
}

// NewFastTreeRegressor creates a regressor with the FastTree defaults
func NewFastTreeRegressor() *FastTreeRegressor {
	p := DefaultTrainingParams()
	return &FastTreeRegressor{
		NumLeaves:       p.NumLeaves,
		LearningRate:    p.LearningRate,
		NumIterations:   p.NumIterations,
		MinChildSamples: p.MinDataInLeaf,
	}
}

// WithNumLeaves sets the number of leaves
func (r *FastTreeRegressor) WithNumLeaves(n int) *FastTreeRegressor {
	r.NumLeaves = n
	return r
}

// WithMaxDepth sets the maximum depth
func (r *FastTreeRegressor) WithMaxDepth(d int) *FastTreeRegressor {
	r.MaxDepth = d
	return r
}

// WithLearningRate sets the learning rate
func (r *FastTreeRegressor) WithLearningRate(lr float64) *FastTreeRegressor {
	r.LearningRate = lr
	return r
}

// WithNumIterations sets the number of boosting iterations
func (r *FastTreeRegressor) WithNumIterations(n int) *FastTreeRegressor {
	r.NumIterations = n
	return r
}

// WithMinChildSamples sets the minimum number of rows per leaf
func (r *FastTreeRegressor) WithMinChildSamples(n int) *FastTreeRegressor {
	r.MinChildSamples = n
	return r
}

// Fit trains the ensemble on X (n×d) and y (n×1)
func (r *FastTreeRegressor) Fit(X, y mat.Matrix) (err error) {
	defer errors.Recover(&err, "FastTreeRegressor.Fit")

	rows, cols := X.Dims()
	logger := log.GetLoggerWithName("lightgbm.regressor")
	logger.Debug("Training FastTree",
		log.SamplesKey, rows,
		log.FeaturesKey, cols,
		"num_leaves", r.NumLeaves,
		"num_iterations", r.NumIterations)

	trainer := NewTrainer(TrainingParams{
		NumIterations:  r.NumIterations,
		LearningRate:   r.LearningRate,
		NumLeaves:      r.NumLeaves,
		MaxDepth:       r.MaxDepth,
		MinDataInLeaf:  r.MinChildSamples,
		Lambda:         r.RegLambda,
		MinGainToSplit: r.MinGainToSplit,
		Verbosity:      r.Verbosity,
	})
	if err := trainer.Fit(X, y); err != nil {
		return errors.Wrap(err, "FastTree training failed")
	}

	r.Model = trainer.GetModel()
	r.NFeatures = cols
	r.SetFitted()
	return nil
}

// Predict makes predictions for input samples
func (r *FastTreeRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	if !r.IsFitted() {
		return nil, errors.NewNotFittedError("FastTreeRegressor", "Predict")
	}
	return r.Model.Predict(X)
}

// Score returns the coefficient of determination R^2 of the prediction
func (r *FastTreeRegressor) Score(X, y mat.Matrix) (float64, error) {
	if !r.IsFitted() {
		return 0, errors.NewNotFittedError("FastTreeRegressor", "Score")
	}

	predictions, err := r.Predict(X)
	if err != nil {
		return 0, err
	}
	m, err := metrics.EvaluateRegression(y, predictions)
	return m.R2, err
}

// GetParams returns the parameters of the regressor
func (r *FastTreeRegressor) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"num_leaves":        r.NumLeaves,
		"max_depth":         r.MaxDepth,
		"learning_rate":     r.LearningRate,
		"num_iterations":    r.NumIterations,
		"min_child_samples": r.MinChildSamples,
		"reg_lambda":        r.RegLambda,
		"min_gain_to_split": r.MinGainToSplit,
		"verbosity":         r.Verbosity,
	}
}

// SetParams sets the parameters of the regressor. Unknown keys and values of
// the wrong type are rejected.
func (r *FastTreeRegressor) SetParams(params map[string]interface{}) error {
	for key, value := range params {
		var ok bool
		switch key {
		case "num_leaves", "n_leaves":
			r.NumLeaves, ok = model.IntParam(value)
		case "max_depth":
			r.MaxDepth, ok = model.IntParam(value)
		case "learning_rate":
			r.LearningRate, ok = model.FloatParam(value)
		case "n_estimators", "num_iterations", "num_trees":
			r.NumIterations, ok = model.IntParam(value)
		case "min_child_samples", "min_data_in_leaf":
			r.MinChildSamples, ok = model.IntParam(value)
		case "reg_lambda", "lambda_l2":
			r.RegLambda, ok = model.FloatParam(value)
		case "min_gain_to_split":
			r.MinGainToSplit, ok = model.FloatParam(value)
		case "verbosity":
			r.Verbosity, ok = model.IntParam(value)
		default:
			return errors.NewValueError("FastTreeRegressor.SetParams", fmt.Sprintf("unknown parameter %q", key))
		}
		if !ok {
			return errors.NewValueError("FastTreeRegressor.SetParams", fmt.Sprintf("invalid value %v for %q", value, key))
		}
	}
	return nil
}

// GetFeatureImportance returns the total split gain per feature
func (r *FastTreeRegressor) GetFeatureImportance() []float64 {
	if !r.IsFitted() || r.Model == nil {
		return nil
	}
	return r.Model.FeatureImportance()
}
