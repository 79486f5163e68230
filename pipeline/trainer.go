package pipeline

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/pricepredict/core/model"
	"github.com/YuminosukeSato/pricepredict/data"
	"github.com/YuminosukeSato/pricepredict/pkg/errors"
	"github.com/YuminosukeSato/pricepredict/pkg/log"
	"github.com/YuminosukeSato/pricepredict/sklearn/lightgbm"
	"github.com/YuminosukeSato/pricepredict/sklearn/linear_model"
)

// Algorithm names a regression trainer.
type Algorithm string

const (
	// FastTree is gradient-boosted regression trees.
	FastTree Algorithm = "FastTree"
	// Sdca is linear regression by stochastic dual coordinate ascent.
	Sdca Algorithm = "Sdca"
	// Ols is linear regression by ordinary least squares.
	Ols Algorithm = "Ols"
)

// Algorithms lists the supported trainers.
var Algorithms = []Algorithm{FastTree, Sdca, Ols}

// ParseAlgorithm matches s case-insensitively against the supported trainers.
func ParseAlgorithm(s string) (Algorithm, error) {
	for _, a := range Algorithms {
		if strings.EqualFold(s, string(a)) {
			return a, nil
		}
	}
	return "", errors.NewConfigurationError("trainer", fmt.Sprintf("unknown algorithm %q", s))
}

// TrainerConfig selects and parameterises the trainer stage.
type TrainerConfig struct {
	Algorithm     Algorithm
	LabelColumn   string
	FeatureColumn string

	// Options are passed to the regressor's SetParams, e.g. "num_leaves" for FastTree.
	Options map[string]interface{}
}

// DefaultTrainerConfig trains alg on Label using the Features vector.
func DefaultTrainerConfig(alg Algorithm) TrainerConfig {
	return TrainerConfig{
		Algorithm:     alg,
		LabelColumn:   data.ColLabel,
		FeatureColumn: data.ColFeatures,
	}
}

type configurableRegressor interface {
	model.Regressor
	SetParams(params map[string]interface{}) error
}

// newRegressor creates the unfitted regressor for cfg.
func newRegressor(cfg TrainerConfig, seed int64) (configurableRegressor, error) {
	var reg configurableRegressor
	switch cfg.Algorithm {
	case FastTree:
		reg = lightgbm.NewFastTreeRegressor()
	case Sdca:
		s := linear_model.NewSDCARegressor()
		s.Seed = uint64(seed)
		reg = s
	case Ols:
		reg = linear_model.NewOLSRegressor()
	default:
		return nil, errors.NewConfigurationError("trainer", fmt.Sprintf("unknown algorithm %q", cfg.Algorithm))
	}
	if len(cfg.Options) > 0 {
		if err := reg.SetParams(cfg.Options); err != nil {
			return nil, errors.NewConfigurationError("trainer", err.Error())
		}
	}
	return reg, nil
}

// TrainerEstimator is the unfitted trainer stage.
type TrainerEstimator struct {
	Config TrainerConfig
}

func (e *TrainerEstimator) Name() string { return string(e.Config.Algorithm) }

// Fit trains the regressor on the feature and label columns. Rows with a
// missing (NaN) label are left out.
func (e *TrainerEstimator) Fit(ctx FitContext, frame *data.Frame) (Transformer, error) {
	reg, err := newRegressor(e.Config, ctx.Seed)
	if err != nil {
		return nil, err
	}
	if frame.Rows() == 0 {
		return nil, errors.NewModelError(e.Name(), "empty data", errors.ErrEmptyData)
	}

	X, err := frame.Column(e.Config.FeatureColumn)
	if err != nil {
		return nil, err
	}
	y, err := frame.Column(e.Config.LabelColumn)
	if err != nil {
		return nil, err
	}
	if _, w := y.Dims(); w != 1 {
		return nil, errors.NewDimensionError(e.Name(), 1, w, 1)
	}

	X, y, dropped := dropMissingLabels(X, y)
	if dropped > 0 {
		ctx.logger().Warn("Rows without label left out",
			log.ModelNameKey, e.Name(),
			"rows", dropped)
	}
	if X == nil {
		return nil, errors.NewModelError(e.Name(), "no labelled rows", errors.ErrEmptyData)
	}

	if err := reg.Fit(X, y); err != nil {
		return nil, err
	}
	return &RegressionTransformer{
		Algorithm:     e.Config.Algorithm,
		FeatureColumn: e.Config.FeatureColumn,
		ScoreColumn:   data.ColScore,
		Regressor:     reg,
	}, nil
}

func dropMissingLabels(X, y *mat.Dense) (*mat.Dense, *mat.Dense, int) {
	rows, cols := X.Dims()
	keep := make([]int, 0, rows)
	for i := 0; i < rows; i++ {
		if !math.IsNaN(y.At(i, 0)) {
			keep = append(keep, i)
		}
	}
	if len(keep) == rows {
		return X, y, 0
	}
	if len(keep) == 0 {
		return nil, nil, rows
	}
	Xk := mat.NewDense(len(keep), cols, nil)
	yk := mat.NewDense(len(keep), 1, nil)
	for i, idx := range keep {
		Xk.SetRow(i, X.RawRowView(idx))
		yk.Set(i, 0, y.At(idx, 0))
	}
	return Xk, yk, rows - len(keep)
}

// RegressionTransformer is a fitted trainer stage. It writes predictions to ScoreColumn.
type RegressionTransformer struct {
	Algorithm     Algorithm
	FeatureColumn string
	ScoreColumn   string
	Regressor     model.Regressor
}

func (t *RegressionTransformer) Name() string { return string(t.Algorithm) }

// Transform adds the score column.
func (t *RegressionTransformer) Transform(frame *data.Frame) (*data.Frame, error) {
	if frame.Rows() == 0 {
		return frame.WithColumn(t.ScoreColumn, nil)
	}
	X, err := frame.Column(t.FeatureColumn)
	if err != nil {
		return nil, err
	}
	pred, err := t.Regressor.Predict(X)
	if err != nil {
		return nil, err
	}
	return frame.WithColumn(t.ScoreColumn, mat.DenseCopyOf(pred))
}
