package model_selection

import (
	"iter"
	"math"

	"github.com/YuminosukeSato/pricepredict/pkg/errors"
)

// FoldResult is the outcome of training and scoring one fold
type FoldResult[M any] struct {
	Fold  int
	Model M
	Score float64

	// Degenerate marks a fold whose score is undefined (for example a
	// validation fold without label variance). It never wins selection.
	Degenerate bool
}

// FitFunc trains on train and scores on test. Returning an error that wraps
// errors.ErrUndefinedScore marks the fold degenerate instead of failing.
type FitFunc[M any] func(fold int, train, test []int) (M, float64, error)

// Evaluate lazily trains and scores every fold in order.
// Iteration stops at the first hard error, which is yielded with the fold's result.
func Evaluate[M any](folds []Fold, fit FitFunc[M]) iter.Seq2[FoldResult[M], error] {
	return func(yield func(FoldResult[M], error) bool) {
		for i, f := range folds {
			m, score, err := fit(i, f.TrainIndices, f.TestIndices)
			res := FoldResult[M]{Fold: i, Model: m, Score: score}
			switch {
			case err == nil && math.IsNaN(score):
				res.Degenerate = true
			case errors.Is(err, errors.ErrUndefinedScore):
				res.Degenerate = true
				err = nil
			}
			if !yield(res, err) || err != nil {
				return
			}
		}
	}
}

// CrossValidate evaluates every fold and returns the results in fold order.
func CrossValidate[M any](folds []Fold, fit FitFunc[M]) ([]FoldResult[M], error) {
	results := make([]FoldResult[M], 0, len(folds))
	for res, err := range Evaluate(folds, fit) {
		if err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	return results, nil
}

// SelectBest returns the non-degenerate result with the highest score.
// Ties go to the lowest fold index. ok is false when every fold is degenerate.
func SelectBest[M any](results []FoldResult[M]) (best FoldResult[M], ok bool) {
	for _, r := range results {
		if r.Degenerate {
			continue
		}
		if !ok || r.Score > best.Score {
			best, ok = r, true
		}
	}
	return best, ok
}
