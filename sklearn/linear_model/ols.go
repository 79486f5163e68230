package linear_model

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/pricepredict/core/model"
	"github.com/YuminosukeSato/pricepredict/pkg/errors"
	"github.com/YuminosukeSato/pricepredict/preprocessing"
)

// OLSRegressor は最小二乗法による線形回帰モデル
//
// 特徴量は StandardScaler で標準化してから解く。欠損値（NaN）は平均値として扱われる。
// QR分解で解けない（ランク落ちした）場合は SVD による最小ノルム解を使う。
type OLSRegressor struct {
	model.BaseEstimator

	// FitIntercept は切片を学習するかどうか
	FitIntercept bool

	// Scaler は学習時の標準化パラメータ
	Scaler *preprocessing.StandardScaler

	// ScaledCoef は標準化空間での重み係数
	ScaledCoef []float64

	// ScaledIntercept は標準化空間での切片
	ScaledIntercept float64

	// Rank は計画行列のランク
	Rank int

	NFeatures int
}

// NewOLSRegressor は新しいOLSRegressorを作成する
func NewOLSRegressor() *OLSRegressor {
	return &OLSRegressor{FitIntercept: true}
}

// Fit は X（n×d）と y（n×1）から係数を求める
func (r *OLSRegressor) Fit(X, y mat.Matrix) error {
	rows, cols := X.Dims()
	yRows, yCols := y.Dims()

	// 入力検証
	if rows == 0 || cols == 0 {
		return errors.NewModelError("OLSRegressor.Fit", "empty data", errors.ErrEmptyData)
	}
	if rows != yRows {
		return errors.NewDimensionError("OLSRegressor.Fit", rows, yRows, 0)
	}
	if yCols != 1 {
		return errors.NewDimensionError("OLSRegressor.Fit", 1, yCols, 1)
	}
	if err := errors.CheckMatrix("OLSRegressor.Fit", y, yRows, yCols, 0); err != nil {
		return err
	}

	r.Scaler = preprocessing.NewStandardScaler(r.FitIntercept, true)
	Xs, err := r.Scaler.FitTransform(X)
	if err != nil {
		return err
	}

	// 切片の処理: [1 | X] の行列を作成
	width := cols
	if r.FitIntercept {
		width++
	}
	design := mat.NewDense(rows, width, nil)
	for i := 0; i < rows; i++ {
		off := 0
		if r.FitIntercept {
			design.Set(i, 0, 1)
			off = 1
		}
		for j := 0; j < cols; j++ {
			design.Set(i, j+off, Xs.At(i, j))
		}
	}

	coefficients, rank, err := solveLeastSquares(design, y)
	if err != nil {
		return errors.NewModelError("OLSRegressor.Fit", "solve", err)
	}
	r.Rank = rank

	r.ScaledCoef = make([]float64, cols)
	if r.FitIntercept {
		r.ScaledIntercept = coefficients.AtVec(0)
		for j := 0; j < cols; j++ {
			r.ScaledCoef[j] = coefficients.AtVec(j + 1)
		}
	} else {
		r.ScaledIntercept = 0
		for j := 0; j < cols; j++ {
			r.ScaledCoef[j] = coefficients.AtVec(j)
		}
	}

	r.NFeatures = cols
	r.SetFitted()
	return nil
}

// solveLeastSquares はより数値的に安定なQR分解で最小二乗解を求め、
// 特異な場合は SVD の最小ノルム解に切り替える
func solveLeastSquares(A *mat.Dense, b mat.Matrix) (*mat.VecDense, int, error) {
	_, cols := A.Dims()
	rhs := mat.NewVecDense(cols, nil)
	bVec := mat.NewVecDense(A.RawMatrix().Rows, mat.Col(nil, 0, b))

	if A.RawMatrix().Rows >= cols {
		var qr mat.QR
		qr.Factorize(A)
		if err := qr.SolveVecTo(rhs, false, bVec); err == nil {
			return rhs, cols, nil
		}
	}

	var svd mat.SVD
	if !svd.Factorize(A, mat.SVDThin) {
		return nil, 0, errors.ErrSingularMatrix
	}
	rank := svd.Rank(1e-12)
	if rank == 0 {
		return nil, 0, errors.ErrSingularMatrix
	}
	var sol mat.Dense
	svd.SolveTo(&sol, bVec, rank)
	return mat.NewVecDense(cols, mat.Col(nil, 0, &sol)), rank, nil
}

// Predict は入力データに対する予測を行う
func (r *OLSRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	if !r.IsFitted() {
		return nil, errors.NewNotFittedError("OLSRegressor", "Predict")
	}
	return predictLinear(r.Scaler, r.ScaledCoef, r.ScaledIntercept, X, "OLSRegressor.Predict")
}

// Weights は元のスケールでの重み係数を返す
func (r *OLSRegressor) Weights() []float64 {
	w, _ := unscale(r.Scaler, r.ScaledCoef, r.ScaledIntercept)
	return w
}

// Intercept は元のスケールでの切片を返す
func (r *OLSRegressor) Intercept() float64 {
	_, b := unscale(r.Scaler, r.ScaledCoef, r.ScaledIntercept)
	return b
}

// SetParams はパラメータを設定する
func (r *OLSRegressor) SetParams(params map[string]interface{}) error {
	for key, value := range params {
		switch key {
		case "fit_intercept":
			v, ok := value.(bool)
			if !ok {
				return errors.NewValueError("OLSRegressor.SetParams", fmt.Sprintf("invalid value %v for %q", value, key))
			}
			r.FitIntercept = v
		default:
			return errors.NewValueError("OLSRegressor.SetParams", fmt.Sprintf("unknown parameter %q", key))
		}
	}
	return nil
}

// String はモデルの文字列表現を返す
func (r *OLSRegressor) String() string {
	if !r.IsFitted() {
		return fmt.Sprintf("OLSRegressor(fit_intercept=%t)", r.FitIntercept)
	}
	return fmt.Sprintf("OLSRegressor(fit_intercept=%t, n_features=%d, rank=%d)", r.FitIntercept, r.NFeatures, r.Rank)
}
