package linear_model

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/pricepredict/core/model"
	"github.com/YuminosukeSato/pricepredict/pkg/errors"
	"github.com/YuminosukeSato/pricepredict/preprocessing"
)

var (
	_ model.Regressor   = (*OLSRegressor)(nil)
	_ model.LinearModel = (*OLSRegressor)(nil)
	_ model.Regressor   = (*SDCARegressor)(nil)
	_ model.LinearModel = (*SDCARegressor)(nil)
)

// predictLinear は標準化してから w·x + b を計算する
func predictLinear(scaler *preprocessing.StandardScaler, coef []float64, intercept float64, X mat.Matrix, op string) (mat.Matrix, error) {
	rows, cols := X.Dims()
	if cols != len(coef) {
		return nil, errors.NewDimensionError(op, len(coef), cols, 1)
	}

	Xs, err := scaler.Transform(X)
	if err != nil {
		return nil, err
	}

	predictions := mat.NewDense(rows, 1, nil)
	row := make([]float64, cols)
	for i := 0; i < rows; i++ {
		mat.Row(row, i, Xs)
		predictions.Set(i, 0, intercept+floats.Dot(row, coef))
	}
	return predictions, nil
}

// unscale は標準化空間の係数を元のスケールに戻す
//
//	w_j = w'_j / scale_j,  b = b' - Σ w_j * mean_j
func unscale(scaler *preprocessing.StandardScaler, coef []float64, intercept float64) ([]float64, float64) {
	if scaler == nil || coef == nil {
		return nil, 0
	}
	w := make([]float64, len(coef))
	floats.DivTo(w, coef, scaler.Scale)
	return w, intercept - floats.Dot(w, scaler.Mean)
}
