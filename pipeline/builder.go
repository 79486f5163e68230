package pipeline

import (
	"fmt"

	"github.com/YuminosukeSato/pricepredict/data"
	"github.com/YuminosukeSato/pricepredict/pkg/errors"
)

// Build returns [Concatenate(features -> Features) -> Trainer].
// It performs no I/O and uses no randomness.
func Build(features []string, cfg TrainerConfig) (*Pipeline, error) {
	transform, err := BuildTransform(features)
	if err != nil {
		return nil, err
	}
	trainer, err := BuildTrainer(cfg)
	if err != nil {
		return nil, err
	}
	return transform.Append(trainer.stages...), nil
}

// BuildTransform returns [Concatenate(features -> Features)].
func BuildTransform(features []string) (*Pipeline, error) {
	if err := validateFeatures(features); err != nil {
		return nil, err
	}
	return New(&Concatenate{
		Output: data.ColFeatures,
		Inputs: append([]string(nil), features...),
	}), nil
}

// BuildTrainer returns [Trainer] alone, for data whose Features column already exists.
func BuildTrainer(cfg TrainerConfig) (*Pipeline, error) {
	if cfg.LabelColumn == "" {
		return nil, errors.NewConfigurationError("trainer", "label column is empty")
	}
	if cfg.FeatureColumn == "" {
		return nil, errors.NewConfigurationError("trainer", "feature column is empty")
	}
	// reject unknown algorithms and options before any data is read
	if _, err := newRegressor(cfg, 0); err != nil {
		return nil, err
	}
	return New(&TrainerEstimator{Config: cfg}), nil
}

func validateFeatures(features []string) error {
	if len(features) == 0 {
		return errors.NewConfigurationError("features", "feature list is empty")
	}
	seen := make(map[string]bool, len(features))
	for i, f := range features {
		if f == "" {
			return errors.NewConfigurationError("features", fmt.Sprintf("feature %d has an empty name", i))
		}
		if seen[f] {
			return errors.NewConfigurationError("features", fmt.Sprintf("duplicate feature %q", f))
		}
		seen[f] = true
	}
	return nil
}
