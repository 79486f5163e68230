// Package lightgbm implements gradient-boosted regression trees (the FastTree
// trainer) in pure Go.
//
// Trees are grown leaf-wise: at every step the leaf with the largest split gain
// is split, until the leaf budget is reached or no split improves the squared
// loss. The first score is the label mean and each tree fits the negative
// gradient of the L2 loss.
//
// # Basic Usage
//
//	reg := lightgbm.NewFastTreeRegressor().
//	    WithNumIterations(100).
//	    WithNumLeaves(20)
//	if err := reg.Fit(X, y); err != nil {
//	    log.Fatal(err)
//	}
//	predictions, err := reg.Predict(XTest)
//
// # Missing Values
//
// NaN feature values are routed to the right child during training and
// prediction, so rows with partially missing features still train.
//
// # Determinism
//
// Training uses no randomness. The split search runs features in parallel but
// the best split is reduced in feature order, so the same data always yields
// the same trees.
package lightgbm
