package model

import "gonum.org/v1/gonum/mat"

// Fitter は学習可能なモデルのインターフェース
type Fitter interface {
	// Fit はモデルを訓練データで学習させる
	Fit(X, y mat.Matrix) error
}

// Predictor は予測可能なモデルのインターフェース
type Predictor interface {
	// Predict は入力データに対する予測を行う（n×1の行列を返す）
	Predict(X mat.Matrix) (mat.Matrix, error)
}

// Regressor は回帰器のインターフェース
type Regressor interface {
	Fitter
	Predictor
}

// LinearModel は線形モデルのインターフェース
type LinearModel interface {
	// Weights は学習された重み（係数）を返す
	Weights() []float64
	// Intercept は学習された切片を返す
	Intercept() float64
}

// Transformer は特徴量行列を学習済みの統計量で写像する前処理のインターフェース
//
// 統計量は NaN を除いて計算し、Transform は入力の NaN を補完して返す。
// 列数が Fit 時と異なる場合は DimensionError を返す。
type Transformer interface {
	Fit(X mat.Matrix) error
	Transform(X mat.Matrix) (mat.Matrix, error)
	FitTransform(X mat.Matrix) (mat.Matrix, error)
}

// InverseTransformer は Transform の逆写像を持つ Transformer
// 補完した NaN は元に戻らない。
type InverseTransformer interface {
	Transformer
	InverseTransform(X mat.Matrix) (mat.Matrix, error)
}
