package training

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/pricepredict/data"
	"github.com/YuminosukeSato/pricepredict/metrics"
	"github.com/YuminosukeSato/pricepredict/pipeline"
	"github.com/YuminosukeSato/pricepredict/pkg/errors"
	"github.com/YuminosukeSato/pricepredict/pkg/log"
	"github.com/YuminosukeSato/pricepredict/sklearn/model_selection"
)

// FoldScore holds the validation metrics of one fold.
type FoldScore struct {
	Fold      int
	R2        float64
	RMSE      float64
	MAE       float64
	TrainRows int
	TestRows  int

	// Degenerate is set when R² is undefined on the validation rows.
	Degenerate bool
}

// MarshalJSON writes undefined metrics as null.
func (f FoldScore) MarshalJSON() ([]byte, error) {
	finite := func(v float64) *float64 {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil
		}
		return &v
	}
	return json.Marshal(struct {
		Fold       int      `json:"fold"`
		R2         *float64 `json:"r2"`
		RMSE       *float64 `json:"rmse"`
		MAE        *float64 `json:"mae"`
		TrainRows  int      `json:"train_rows"`
		TestRows   int      `json:"test_rows"`
		Degenerate bool     `json:"degenerate,omitempty"`
	}{f.Fold, finite(f.R2), finite(f.RMSE), finite(f.MAE), f.TrainRows, f.TestRows, f.Degenerate})
}

// CrossValidationResult is the outcome of CrossValidate.
type CrossValidationResult struct {
	// TransformModel is the fitted transform that produces the Features column.
	TransformModel *pipeline.Model
	// BestModel is the trainer model of the winning fold. It expects Features as input.
	BestModel *pipeline.Model
	BestFold  int
	BestScore float64
	Folds     []FoldScore
}

// CrossValidate fits transform on view, then trains trainer on k folds of the
// transformed data and keeps the model of the fold with the highest R².
// Ties go to the lowest fold index.
func (e *Environment) CrossValidate(trainer, transform *pipeline.Pipeline, view data.View, k int) (*CrossValidationResult, error) {
	start := time.Now()
	logger := e.logger().With(log.OperationKey, log.OperationCrossValidate)

	frame, err := view.Frame()
	if err != nil {
		return nil, err
	}
	if err := checkTrainable(transform, frame); err != nil {
		return nil, err
	}

	var transformModel *pipeline.Model
	var transformed *data.Frame
	err = errors.SafeExecute("training.CrossValidate", func() error {
		var err error
		if transformModel, err = transform.Fit(e.fitContext(), frame); err != nil {
			return err
		}
		transformed, err = transformModel.Transform(frame)
		return err
	})
	if err != nil {
		return nil, errors.NewTrainingError("cross-validate", "transform fit failed", err)
	}

	folds, err := model_selection.NewKFold(k, true, e.Seed).Split(transformed.Rows())
	if err != nil {
		return nil, errors.NewTrainingError("cross-validate", fmt.Sprintf("cannot split %d rows into %d folds", transformed.Rows(), k), err)
	}

	scores := make([]FoldScore, len(folds))
	fit := func(fold int, train, test []int) (*pipeline.Model, float64, error) {
		score := FoldScore{Fold: fold, TrainRows: len(train), TestRows: len(test)}
		defer func() { scores[fold] = score }()

		m, reg, err := e.fitFold(trainer, transformed, train, test)
		score.R2, score.RMSE, score.MAE = reg.R2, reg.RMSE, reg.MAE
		if errors.Is(err, errors.ErrUndefinedScore) {
			score.Degenerate = true
			score.R2 = math.NaN()
			logger.Warn("Fold score undefined",
				log.FoldKey, fold,
				log.SamplesKey, len(test))
			return m, math.NaN(), err
		}
		if err != nil {
			return nil, 0, err
		}
		logger.Info("Fold evaluated",
			log.FoldKey, fold,
			log.R2ScoreKey, reg.R2,
			log.RMSEKey, reg.RMSE,
			log.MAEKey, reg.MAE)
		return m, reg.R2, nil
	}

	var results []model_selection.FoldResult[*pipeline.Model]
	err = errors.SafeExecute("training.CrossValidate", func() error {
		var err error
		results, err = model_selection.CrossValidate(folds, fit)
		return err
	})
	if err != nil {
		return nil, errors.NewTrainingError("cross-validate", "fold training failed", err)
	}

	best, ok := model_selection.SelectBest(results)
	if !ok {
		return nil, errors.NewTrainingError("cross-validate",
			fmt.Sprintf("R² is undefined on all %d folds", len(folds)), errors.ErrUndefinedScore)
	}

	logger.Info("Cross-validation finished",
		log.FoldKey, best.Fold,
		log.R2ScoreKey, best.Score,
		log.SamplesKey, transformed.Rows(),
		log.DurationMsKey, time.Since(start).Milliseconds())

	return &CrossValidationResult{
		TransformModel: transformModel,
		BestModel:      best.Model,
		BestFold:       best.Fold,
		BestScore:      best.Score,
		Folds:          scores,
	}, nil
}

// fitFold trains on the train rows and scores the test rows. The returned
// error wraps errors.ErrUndefinedScore when R² cannot be computed.
func (e *Environment) fitFold(trainer *pipeline.Pipeline, frame *data.Frame, train, test []int) (*pipeline.Model, metrics.Regression, error) {
	trainFrame, err := frame.Subset(train)
	if err != nil {
		return nil, metrics.Regression{}, err
	}
	testFrame, err := frame.Subset(test)
	if err != nil {
		return nil, metrics.Regression{}, err
	}

	m, err := trainer.Fit(e.fitContext(), trainFrame)
	if err != nil {
		return nil, metrics.Regression{}, err
	}
	scored, err := m.Transform(testFrame)
	if err != nil {
		return nil, metrics.Regression{}, err
	}

	yTrue, yPred, err := labelledScores(scored)
	if err != nil {
		return nil, metrics.Regression{}, err
	}
	if yTrue == nil {
		return m, metrics.Regression{R2: math.NaN(), RMSE: math.NaN(), MAE: math.NaN()},
			errors.Wrap(errors.ErrUndefinedScore, "no labelled validation rows")
	}
	reg, err := metrics.EvaluateRegression(yTrue, yPred)
	return m, reg, err
}

// labelledScores returns the label and score columns restricted to rows with
// a label. Both are nil when no row has one.
func labelledScores(frame *data.Frame) (*mat.Dense, *mat.Dense, error) {
	label, err := frame.Column(data.ColLabel)
	if err != nil {
		return nil, nil, err
	}
	score, err := frame.Column(data.ColScore)
	if err != nil {
		return nil, nil, err
	}
	var t, p []float64
	for i := 0; i < frame.Rows(); i++ {
		if y := label.At(i, 0); !math.IsNaN(y) {
			t = append(t, y)
			p = append(p, score.At(i, 0))
		}
	}
	if len(t) == 0 {
		return nil, nil, nil
	}
	return mat.NewDense(len(t), 1, t), mat.NewDense(len(p), 1, p), nil
}
