// Package model_selection provides k-fold splitting and best-fold selection.
package model_selection

import (
	"fmt"
	"math/rand/v2"

	"github.com/YuminosukeSato/pricepredict/pkg/errors"
)

// Fold represents a single fold in cross-validation
type Fold struct {
	TrainIndices []int
	TestIndices  []int
}

// KFold implements k-fold cross-validation splitter
type KFold struct {
	NSplits int
	Shuffle bool
	Seed    int64
}

// NewKFold creates a new k-fold splitter
func NewKFold(nSplits int, shuffle bool, seed int64) *KFold {
	return &KFold{
		NSplits: nSplits,
		Shuffle: shuffle,
		Seed:    seed,
	}
}

// Split generates train/test indices for each fold.
//
// Indices are shuffled with a PCG source seeded by Seed and then cut into
// NSplits contiguous blocks. The first nSamples % NSplits blocks hold one extra
// row. Training indices keep the shuffled order.
func (kf *KFold) Split(nSamples int) ([]Fold, error) {
	if kf.NSplits < 2 {
		return nil, errors.NewValueError("KFold.Split", fmt.Sprintf("need at least 2 folds, got %d", kf.NSplits))
	}
	if kf.NSplits > nSamples {
		return nil, errors.NewValueError("KFold.Split",
			fmt.Sprintf("cannot have %d folds with only %d samples", kf.NSplits, nSamples))
	}

	indices := make([]int, nSamples)
	for i := range indices {
		indices[i] = i
	}
	if kf.Shuffle {
		seed := uint64(kf.Seed)
		r := rand.New(rand.NewPCG(seed, seed))
		r.Shuffle(len(indices), func(i, j int) {
			indices[i], indices[j] = indices[j], indices[i]
		})
	}

	folds := make([]Fold, kf.NSplits)
	foldSize := nSamples / kf.NSplits
	remainder := nSamples % kf.NSplits

	start := 0
	for i := range folds {
		end := start + foldSize
		if i < remainder {
			end++
		}

		test := make([]int, end-start)
		copy(test, indices[start:end])

		train := make([]int, 0, nSamples-len(test))
		train = append(train, indices[:start]...)
		train = append(train, indices[end:]...)

		folds[i] = Fold{TrainIndices: train, TestIndices: test}
		start = end
	}
	return folds, nil
}
