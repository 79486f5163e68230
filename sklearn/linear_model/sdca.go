package linear_model

import (
	"fmt"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/pricepredict/core/model"
	"github.com/YuminosukeSato/pricepredict/pkg/errors"
	"github.com/YuminosukeSato/pricepredict/pkg/log"
	"github.com/YuminosukeSato/pricepredict/preprocessing"
)

// SDCARegressor は確率的双対座標上昇法（SDCA）による二乗損失の線形回帰モデル
//
// 特徴量とラベルを標準化したうえで、L2正則化付き二乗損失の双対問題を座標ごとに解く。
// 各エポックで座標の順序をシード付きPCG乱数で並べ替えるため、同じシードなら結果は同じになる。
type SDCARegressor struct {
	model.BaseEstimator

	// ハイパーパラメータ
	L2      float64 // L2正則化の強さ（λ）
	MaxIter int     // 最大エポック数
	Tol     float64 // 重みの相対変化がこれ未満になったら収束
	Shuffle bool    // 各エポックで座標の順序をシャッフルするか
	Seed    uint64  // 乱数シード

	// 学習パラメータ（標準化空間）
	Scaler          *preprocessing.StandardScaler
	ScaledCoef      []float64
	ScaledIntercept float64
	LabelMean       float64
	LabelScale      float64

	// 学習状態
	NIter     int
	Converged bool
	NFeatures int
}

// NewSDCARegressor はデフォルト設定でSDCARegressorを作成する
func NewSDCARegressor() *SDCARegressor {
	return &SDCARegressor{
		L2:      1e-4,
		MaxIter: 100,
		Tol:     1e-4,
		Shuffle: true,
	}
}

// Fit は X（n×d）と y（n×1）で学習する
func (s *SDCARegressor) Fit(X, y mat.Matrix) error {
	rows, cols := X.Dims()
	yRows, yCols := y.Dims()

	// 入力検証
	if rows == 0 || cols == 0 {
		return errors.NewModelError("SDCARegressor.Fit", "empty data", errors.ErrEmptyData)
	}
	if rows != yRows {
		return errors.NewDimensionError("SDCARegressor.Fit", rows, yRows, 0)
	}
	if yCols != 1 {
		return errors.NewDimensionError("SDCARegressor.Fit", 1, yCols, 1)
	}
	if s.L2 <= 0 {
		return errors.NewValueError("SDCARegressor.Fit", "l2 must be positive")
	}
	if s.MaxIter <= 0 {
		return errors.NewValueError("SDCARegressor.Fit", "max_iter must be positive")
	}

	labels := mat.Col(nil, 0, y)
	if err := errors.CheckNumericalStability("SDCARegressor.Fit", labels, 0); err != nil {
		return err
	}

	s.Scaler = preprocessing.NewStandardScalerDefault()
	Xs, err := s.Scaler.FitTransform(X)
	if err != nil {
		return err
	}

	// ラベルを標準化する
	s.LabelMean, s.LabelScale = stat.PopMeanStdDev(labels, nil)
	if s.LabelScale < 1e-12 {
		s.LabelScale = 1
	}
	target := make([]float64, rows)
	for i, v := range labels {
		target[i] = (v - s.LabelMean) / s.LabelScale
	}

	data := make([][]float64, rows)
	norms := make([]float64, rows)
	for i := range data {
		data[i] = mat.Row(nil, i, Xs)
		norms[i] = floats.Dot(data[i], data[i])
	}

	lambdaN := s.L2 * float64(rows)
	alpha := make([]float64, rows)
	w := make([]float64, cols)
	prev := make([]float64, cols)

	order := make([]int, rows)
	for i := range order {
		order[i] = i
	}
	rng := rand.New(rand.NewPCG(s.Seed, s.Seed))

	s.Converged = false
	for epoch := 0; epoch < s.MaxIter; epoch++ {
		if s.Shuffle {
			rng.Shuffle(rows, func(a, b int) { order[a], order[b] = order[b], order[a] })
		}
		copy(prev, w)

		for _, i := range order {
			// 二乗損失の閉形式の座標更新
			delta := (target[i] - floats.Dot(w, data[i]) - alpha[i]) / (1 + norms[i]/lambdaN)
			alpha[i] += delta
			floats.AddScaled(w, delta/lambdaN, data[i])
		}
		s.NIter = epoch + 1

		if err := errors.CheckNumericalStability("SDCARegressor.Fit", w, epoch); err != nil {
			return err
		}

		change := floats.Distance(w, prev, 2)
		if norm := floats.Norm(w, 2); norm > 0 {
			change /= norm
		}
		if change < s.Tol {
			s.Converged = true
			break
		}
	}

	if !s.Converged {
		errors.Warn(errors.NewConvergenceWarning("SDCA", s.NIter, "weights still changing at the last epoch"))
	}
	log.GetLoggerWithName("linear_model.sdca").Debug("SDCA finished",
		log.IterationKey, s.NIter,
		"converged", s.Converged)

	// 標準化されたラベルの空間から戻す
	s.ScaledCoef = make([]float64, cols)
	floats.ScaleTo(s.ScaledCoef, s.LabelScale, w)
	s.ScaledIntercept = s.LabelMean
	s.NFeatures = cols
	s.SetFitted()
	return nil
}

// Predict は入力データに対する予測を行う
func (s *SDCARegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	if !s.IsFitted() {
		return nil, errors.NewNotFittedError("SDCARegressor", "Predict")
	}
	return predictLinear(s.Scaler, s.ScaledCoef, s.ScaledIntercept, X, "SDCARegressor.Predict")
}

// Weights は元のスケールでの重み係数を返す
func (s *SDCARegressor) Weights() []float64 {
	w, _ := unscale(s.Scaler, s.ScaledCoef, s.ScaledIntercept)
	return w
}

// Intercept は元のスケールでの切片を返す
func (s *SDCARegressor) Intercept() float64 {
	_, b := unscale(s.Scaler, s.ScaledCoef, s.ScaledIntercept)
	return b
}

// SetParams はパラメータを設定する
func (s *SDCARegressor) SetParams(params map[string]interface{}) error {
	for key, value := range params {
		var ok bool
		switch key {
		case "l2", "l2_regularization", "alpha":
			s.L2, ok = model.FloatParam(value)
		case "max_iter", "max_iterations":
			s.MaxIter, ok = model.IntParam(value)
		case "tol", "convergence_tolerance":
			s.Tol, ok = model.FloatParam(value)
		case "shuffle":
			s.Shuffle, ok = value.(bool)
		case "seed", "random_state":
			var seed int
			seed, ok = model.IntParam(value)
			s.Seed = uint64(seed)
		default:
			return errors.NewValueError("SDCARegressor.SetParams", fmt.Sprintf("unknown parameter %q", key))
		}
		if !ok {
			return errors.NewValueError("SDCARegressor.SetParams", fmt.Sprintf("invalid value %v for %q", value, key))
		}
	}
	return nil
}

// String はモデルの文字列表現を返す
func (s *SDCARegressor) String() string {
	return fmt.Sprintf("SDCARegressor(l2=%g, max_iter=%d, tol=%g, seed=%d)", s.L2, s.MaxIter, s.Tol, s.Seed)
}
