// Package metrics は回帰モデルの評価指標を提供する
package metrics

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/pricepredict/pkg/errors"
)

// Regression は回帰の評価指標をまとめたもの
type Regression struct {
	R2   float64
	MSE  float64
	RMSE float64
	MAE  float64
}

// MSE は平均二乗誤差（Mean Squared Error）を計算する
func MSE(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := checkPair("MSE", yTrue, yPred)
	if err != nil {
		return 0, err
	}

	// MSE = (1/n) * Σ(yTrue - yPred)²
	var sum float64
	for i := 0; i < n; i++ {
		diff := yTrue.AtVec(i) - yPred.AtVec(i)
		sum += diff * diff
	}
	return sum / float64(n), nil
}

// RMSE は平方根平均二乗誤差（Root Mean Squared Error）を計算する
func RMSE(yTrue, yPred *mat.VecDense) (float64, error) {
	mse, err := MSE(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return math.Sqrt(mse), nil
}

// MAE は平均絶対誤差（Mean Absolute Error）を計算する
func MAE(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := checkPair("MAE", yTrue, yPred)
	if err != nil {
		return 0, err
	}

	var sum float64
	for i := 0; i < n; i++ {
		sum += math.Abs(yTrue.AtVec(i) - yPred.AtVec(i))
	}
	return sum / float64(n), nil
}

// R2Score は決定係数（R²）を計算する
//
// yTrue に分散がない場合、または結果が NaN になる場合は
// errors.ErrUndefinedScore を返す。
func R2Score(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := checkPair("R2Score", yTrue, yPred)
	if err != nil {
		return 0, err
	}

	values := make([]float64, n)
	for i := range values {
		values[i] = yTrue.AtVec(i)
	}
	yMean := stat.Mean(values, nil)

	// 全変動（TSS）と残差変動（RSS）
	var tss, rss float64
	for i := 0; i < n; i++ {
		yt := yTrue.AtVec(i)
		yp := yPred.AtVec(i)
		tss += (yt - yMean) * (yt - yMean)
		rss += (yt - yp) * (yt - yp)
	}

	if tss == 0 {
		return 0, errors.Wrap(errors.ErrUndefinedScore, "R2Score: total sum of squares is zero")
	}
	r2 := 1 - rss/tss
	if math.IsNaN(r2) {
		return 0, errors.Wrap(errors.ErrUndefinedScore, "R2Score: result is NaN")
	}
	return r2, nil
}

// EvaluateRegression は n×1 の行列同士から全ての指標を計算する
func EvaluateRegression(yTrue, yPred mat.Matrix) (Regression, error) {
	t, err := columnVector("EvaluateRegression", yTrue)
	if err != nil {
		return Regression{}, err
	}
	p, err := columnVector("EvaluateRegression", yPred)
	if err != nil {
		return Regression{}, err
	}

	var r Regression
	if r.MSE, err = MSE(t, p); err != nil {
		return Regression{}, err
	}
	r.RMSE = math.Sqrt(r.MSE)
	if r.MAE, err = MAE(t, p); err != nil {
		return Regression{}, err
	}
	if r.R2, err = R2Score(t, p); err != nil {
		return r, err
	}
	return r, nil
}

func checkPair(op string, yTrue, yPred *mat.VecDense) (int, error) {
	n := yTrue.Len()
	if n == 0 {
		return 0, errors.NewValueError(op, "empty vector")
	}
	if yPred.Len() != n {
		return 0, errors.NewDimensionError(op, n, yPred.Len(), 0)
	}
	return n, nil
}

func columnVector(op string, m mat.Matrix) (*mat.VecDense, error) {
	r, c := m.Dims()
	if r == 0 || c == 0 {
		return nil, errors.NewValueError(op, "empty matrix")
	}
	if c != 1 {
		return nil, errors.NewValueError(op, "must be a column vector (n×1 matrix)")
	}
	return mat.NewVecDense(r, mat.Col(nil, 0, m)), nil
}
