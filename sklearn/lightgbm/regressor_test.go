package lightgbm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/pricepredict/pkg/errors"
)

func TestFastTreeRegressorFitPredict(t *testing.T) {
	X, y := linearData(200)

	reg := NewFastTreeRegressor().WithNumIterations(60).WithMinChildSamples(5)
	require.NoError(t, reg.Fit(X, y))
	assert.True(t, reg.IsFitted())

	score, err := reg.Score(X, y)
	require.NoError(t, err)
	assert.Greater(t, score, 0.95)

	importance := reg.GetFeatureImportance()
	require.Len(t, importance, 2)
	assert.Greater(t, importance[0], 0.0)

	_, err = reg.Predict(mat.NewDense(1, 3, nil))
	var de *errors.DimensionError
	assert.True(t, errors.As(err, &de))
}

func TestFastTreeRegressorNotFitted(t *testing.T) {
	_, err := NewFastTreeRegressor().Predict(mat.NewDense(1, 2, nil))
	var nf *errors.NotFittedError
	assert.True(t, errors.As(err, &nf))
}

func TestFastTreeRegressorSetParams(t *testing.T) {
	reg := NewFastTreeRegressor()
	require.NoError(t, reg.SetParams(map[string]interface{}{
		"num_leaves":       31,
		"learning_rate":    0.1,
		"num_trees":        50.0,
		"min_data_in_leaf": 2,
	}))
	assert.Equal(t, 31, reg.NumLeaves)
	assert.Equal(t, 0.1, reg.LearningRate)
	assert.Equal(t, 50, reg.NumIterations)
	assert.Equal(t, 2, reg.GetParams()["min_child_samples"])

	assert.Error(t, reg.SetParams(map[string]interface{}{"bogus": 1}))
	assert.Error(t, reg.SetParams(map[string]interface{}{"num_leaves": "many"}))
}
