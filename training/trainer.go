// Package training fits pipelines on datasets, cross-validates them and
// exposes the training service used by the HTTP and CLI front ends.
package training

import (
	"fmt"
	"math"
	"time"

	"github.com/YuminosukeSato/pricepredict/data"
	"github.com/YuminosukeSato/pricepredict/pipeline"
	"github.com/YuminosukeSato/pricepredict/pkg/errors"
	"github.com/YuminosukeSato/pricepredict/pkg/log"
)

// MinTrainingRows is the smallest dataset a model is fitted on.
const MinTrainingRows = 2

// Environment is the shared context of training runs: the random seed and the logger.
type Environment struct {
	Seed   int64
	RunID  string
	Logger log.Logger
}

// NewEnvironment returns an environment with the given seed. A nil logger
// uses the process logger.
func NewEnvironment(seed int64, logger log.Logger) *Environment {
	if logger == nil {
		logger = log.GetLoggerWithName("training")
	}
	return &Environment{Seed: seed, Logger: logger}
}

// WithRunID returns a copy of e whose logs and models carry runID.
func (e *Environment) WithRunID(runID string) *Environment {
	return &Environment{
		Seed:   e.Seed,
		RunID:  runID,
		Logger: e.logger().With(log.RunIDKey, runID),
	}
}

func (e *Environment) logger() log.Logger {
	if e.Logger == nil {
		return log.GetLoggerWithName("training")
	}
	return e.Logger
}

func (e *Environment) fitContext() pipeline.FitContext {
	return pipeline.FitContext{Seed: e.Seed, RunID: e.RunID, Logger: e.logger()}
}

// Fit materialises view and fits p on it in a single pass.
func (e *Environment) Fit(p *pipeline.Pipeline, view data.View) (*pipeline.Model, error) {
	start := time.Now()
	logger := e.logger()

	frame, err := view.Frame()
	if err != nil {
		return nil, err
	}
	if err := checkTrainable(p, frame); err != nil {
		return nil, err
	}

	var m *pipeline.Model
	err = errors.SafeExecute("training.Fit", func() error {
		var err error
		m, err = p.Fit(e.fitContext(), frame)
		return err
	})
	if err != nil {
		return nil, errors.NewTrainingError("fit", "pipeline fit failed", err)
	}

	logger.Info("Model trained",
		log.OperationKey, log.OperationFit,
		log.SamplesKey, frame.Rows(),
		log.DurationMsKey, time.Since(start).Milliseconds())
	return m, nil
}

// checkTrainable rejects frames with too few rows or with a feature column
// that holds no numeric value at all.
func checkTrainable(p *pipeline.Pipeline, frame *data.Frame) error {
	if frame.Rows() < MinTrainingRows {
		return errors.NewTrainingError("fit",
			fmt.Sprintf("need at least %d rows, got %d", MinTrainingRows, frame.Rows()), errors.ErrEmptyData)
	}
	for _, name := range featureColumns(p) {
		col, err := frame.Column(name)
		if err != nil || col == nil {
			continue
		}
		if allNaN(col.RawMatrix().Data) {
			return errors.NewTrainingError("fit", fmt.Sprintf("feature %q has no numeric values", name), nil)
		}
	}
	return nil
}

// featureColumns lists the inputs of every concatenate stage in p.
func featureColumns(p *pipeline.Pipeline) []string {
	var names []string
	for _, s := range p.Stages() {
		if c, ok := s.(*pipeline.Concatenate); ok {
			names = append(names, c.Inputs...)
		}
	}
	return names
}

func allNaN(values []float64) bool {
	for _, v := range values {
		if !math.IsNaN(v) {
			return false
		}
	}
	return true
}
