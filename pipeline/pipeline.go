// Package pipeline composes dataset transforms and a regression trainer into
// a unit that is fitted once and yields an immutable model.
package pipeline

import (
	"fmt"

	"github.com/YuminosukeSato/pricepredict/data"
	"github.com/YuminosukeSato/pricepredict/pkg/errors"
	"github.com/YuminosukeSato/pricepredict/pkg/log"
)

// FitContext carries what every stage needs while fitting.
type FitContext struct {
	Seed   int64
	RunID  string
	Logger log.Logger
}

func (c FitContext) logger() log.Logger {
	if c.Logger == nil {
		return log.GetLoggerWithName("pipeline")
	}
	return c.Logger
}

// Estimator is an unfitted pipeline stage.
type Estimator interface {
	Name() string
	Fit(ctx FitContext, frame *data.Frame) (Transformer, error)
}

// Transformer is a fitted stage. Implementations are gob-encoded inside
// model artifacts and must be registered in persist.go.
type Transformer interface {
	Name() string
	Transform(frame *data.Frame) (*data.Frame, error)
}

// Pipeline is an ordered list of unfitted stages.
type Pipeline struct {
	stages []Estimator
}

// New returns a pipeline of the given stages.
func New(stages ...Estimator) *Pipeline {
	return &Pipeline{stages: append([]Estimator(nil), stages...)}
}

// Append returns a new pipeline with stages added after p's.
func (p *Pipeline) Append(stages ...Estimator) *Pipeline {
	all := make([]Estimator, 0, len(p.stages)+len(stages))
	all = append(all, p.stages...)
	return &Pipeline{stages: append(all, stages...)}
}

// Stages returns a copy of the stage list.
func (p *Pipeline) Stages() []Estimator {
	return append([]Estimator(nil), p.stages...)
}

// Fit fits each stage on the output of the previous fitted stage.
func (p *Pipeline) Fit(ctx FitContext, view data.View) (*Model, error) {
	if len(p.stages) == 0 {
		return nil, errors.NewConfigurationError("pipeline", "no stages")
	}
	frame, err := view.Frame()
	if err != nil {
		return nil, err
	}

	logger := ctx.logger()
	fitted := make([]Transformer, 0, len(p.stages))
	for i, stage := range p.stages {
		logger.Debug("Fitting stage",
			log.ModelNameKey, stage.Name(),
			log.OperationKey, log.OperationFit,
			log.SamplesKey, frame.Rows())

		t, err := stage.Fit(ctx, frame)
		if err != nil {
			return nil, errors.Wrapf(err, "stage %d (%s)", i, stage.Name())
		}
		fitted = append(fitted, t)

		// the last stage's output is only needed at prediction time
		if i < len(p.stages)-1 {
			if frame, err = t.Transform(frame); err != nil {
				return nil, errors.Wrapf(err, "stage %d (%s)", i, stage.Name())
			}
		}
	}
	return &Model{stages: fitted, schema: view.Schema(), runID: ctx.RunID}, nil
}

// Model is a fitted pipeline. It is never mutated after Fit or Load.
type Model struct {
	stages []Transformer
	schema data.Schema
	runID  string
}

// NewModel wraps already fitted stages.
func NewModel(schema data.Schema, runID string, stages ...Transformer) *Model {
	return &Model{stages: append([]Transformer(nil), stages...), schema: schema, runID: runID}
}

// Stages returns a copy of the fitted stages.
func (m *Model) Stages() []Transformer {
	return append([]Transformer(nil), m.stages...)
}

// InputSchema is the schema the model was fitted on.
func (m *Model) InputSchema() data.Schema { return m.schema }

// RunID identifies the training run that produced the model.
func (m *Model) RunID() string { return m.runID }

// HasStage reports whether a stage with the given name is present.
func (m *Model) HasStage(name string) bool {
	for _, s := range m.stages {
		if s.Name() == name {
			return true
		}
	}
	return false
}

// Then returns a model applying m's stages followed by next's.
func (m *Model) Then(next *Model) *Model {
	stages := append(m.Stages(), next.stages...)
	return &Model{stages: stages, schema: m.schema, runID: next.runID}
}

// Transform applies every stage to view.
func (m *Model) Transform(view data.View) (*data.Frame, error) {
	frame, err := view.Frame()
	if err != nil {
		return nil, err
	}
	for _, s := range m.stages {
		if frame, err = s.Transform(frame); err != nil {
			return nil, errors.Wrapf(err, "transform %s", s.Name())
		}
	}
	return frame, nil
}

// Predict scores records and returns one prediction per record.
func (m *Model) Predict(records []data.HouseData) ([]data.HousePrediction, error) {
	frame, err := m.Transform(data.FrameFromRecords(records))
	if err != nil {
		return nil, err
	}
	out := make([]data.HousePrediction, frame.Rows())
	if frame.Rows() == 0 {
		return out, nil
	}
	score, err := frame.Column(data.ColScore)
	if err != nil {
		return nil, errors.NewValueError("Model.Predict", fmt.Sprintf("model has no %s column", data.ColScore))
	}
	for i := range out {
		out[i].SoldPrice = score.At(i, 0)
	}
	return out, nil
}
