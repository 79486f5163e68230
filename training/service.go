package training

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/YuminosukeSato/pricepredict/data"
	"github.com/YuminosukeSato/pricepredict/pipeline"
	"github.com/YuminosukeSato/pricepredict/pkg/errors"
	"github.com/YuminosukeSato/pricepredict/pkg/log"
	"github.com/YuminosukeSato/pricepredict/report"
)

// Artifact name prefixes under TrainedRoot.
const (
	TrainedPrefix   = "Trained"
	TransformPrefix = "Transform"
	FoldChartPrefix = "Folds"
)

// DefaultFolds is the fold count used when a request does not name one.
const DefaultFolds = 3

// ServiceConfig locates datasets and artifacts and selects the trainers.
type ServiceConfig struct {
	DataRoot    string
	TrainedRoot string

	// Algorithm trains single-pass models, CVAlgorithm cross-validated ones.
	Algorithm   pipeline.Algorithm
	CVAlgorithm pipeline.Algorithm
	Folds       int

	// FoldChart writes a per-fold R² bar chart next to cross-validated models.
	FoldChart bool

	// Options are trainer parameters per algorithm, see pipeline.TrainerConfig.
	Options map[pipeline.Algorithm]map[string]interface{}
}

// DefaultServiceConfig trains FastTree single-pass and Sdca over 3 folds.
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		DataRoot:    "Data",
		TrainedRoot: "TrainedData",
		Algorithm:   pipeline.FastTree,
		CVAlgorithm: pipeline.Sdca,
		Folds:       DefaultFolds,
	}
}

// Loader opens a dataset.
type Loader func(path string, opts data.TextLoaderOptions) (data.View, error)

// LoadTextFile is the default Loader.
func LoadTextFile(path string, opts data.TextLoaderOptions) (data.View, error) {
	v, err := data.LoadFromTextFile(path, opts)
	if err != nil {
		return nil, err
	}
	return v, nil
}

// Option customises a Service.
type Option func(*Service)

// WithLoader replaces the dataset loader.
func WithLoader(l Loader) Option {
	return func(s *Service) { s.load = l }
}

// Service trains, persists and applies house price models.
// It keeps no state between calls apart from the files it writes.
type Service struct {
	cfg  ServiceConfig
	env  *Environment
	load Loader
}

// NewService returns a service over cfg. A nil env uses seed 0.
func NewService(cfg ServiceConfig, env *Environment, opts ...Option) *Service {
	if env == nil {
		env = NewEnvironment(0, nil)
	}
	if cfg.Algorithm == "" {
		cfg.Algorithm = pipeline.FastTree
	}
	if cfg.CVAlgorithm == "" {
		cfg.CVAlgorithm = pipeline.Sdca
	}
	if cfg.Folds == 0 {
		cfg.Folds = DefaultFolds
	}
	s := &Service{cfg: cfg, env: env, load: LoadTextFile}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Config returns the effective configuration.
func (s *Service) Config() ServiceConfig { return s.cfg }

func (s *Service) loaderOptions(separator rune) data.TextLoaderOptions {
	return data.TextLoaderOptions{
		Separator:      separator,
		HasHeader:      true,
		AllowQuoting:   true,
		TrimWhitespace: false,
	}
}

func (s *Service) trainerConfig(alg pipeline.Algorithm) pipeline.TrainerConfig {
	cfg := pipeline.DefaultTrainerConfig(alg)
	cfg.Options = s.cfg.Options[alg]
	return cfg
}

func (s *Service) begin(op string) (*Environment, log.Logger) {
	env := s.env.WithRunID(uuid.NewString())
	return env, env.logger().With(log.OperationKey, op)
}

// TrainModel trains the configured single-pass algorithm on DataRoot/filename
// and writes the model to TrainedRoot/Trained<filename>. It returns that path.
func (s *Service) TrainModel(filename string, separator rune) (out string, err error) {
	if err := validateRequest(filename, separator); err != nil {
		return "", err
	}
	env, logger := s.begin(log.OperationFit)
	start := time.Now()
	defer func() { logResult(logger, "Training request", start, err) }()

	err = errors.SafeExecute("training.TrainModel", func() error {
		in := filepath.Join(s.cfg.DataRoot, filename)
		logger.Info("Loading dataset", log.PathKey, in, log.SeparatorKey, string(separator))
		view, err := s.load(in, s.loaderOptions(separator))
		if err != nil {
			return err
		}
		p, err := pipeline.Build(data.NumericFeatures, s.trainerConfig(s.cfg.Algorithm))
		if err != nil {
			return err
		}
		m, err := env.Fit(p, view)
		if err != nil {
			return err
		}
		out = filepath.Join(s.cfg.TrainedRoot, TrainedPrefix+filename)
		return pipeline.Save(m, view.Schema(), out)
	})
	if err != nil {
		return "", err
	}
	return out, nil
}

// CrossValidationOutput describes the artifacts written by TrainModelCrossValidated.
type CrossValidationOutput struct {
	RunID         string `json:"run_id"`
	ModelPath     string `json:"model_path"`
	TransformPath string `json:"transform_path"`

	// ChartPath is empty unless the fold chart is enabled.
	ChartPath string      `json:"chart_path,omitempty"`
	BestFold  int         `json:"best_fold"`
	BestScore float64     `json:"best_score"`
	Folds     []FoldScore `json:"folds"`
}

// TrainModelCrossValidated runs k-fold cross-validation with the configured
// CV algorithm and persists the transform and the best fold's model.
// folds <= 0 selects the configured fold count.
func (s *Service) TrainModelCrossValidated(filename string, separator rune, folds int) (out *CrossValidationOutput, err error) {
	if err := validateRequest(filename, separator); err != nil {
		return nil, err
	}
	if folds <= 0 {
		folds = s.cfg.Folds
	}
	env, logger := s.begin(log.OperationCrossValidate)
	start := time.Now()
	defer func() { logResult(logger, "Cross-validation request", start, err) }()

	err = errors.SafeExecute("training.TrainModelCrossValidated", func() error {
		in := filepath.Join(s.cfg.DataRoot, filename)
		logger.Info("Loading dataset", log.PathKey, in, log.SeparatorKey, string(separator))
		view, err := s.load(in, s.loaderOptions(separator))
		if err != nil {
			return err
		}
		transform, err := pipeline.BuildTransform(data.NumericFeatures)
		if err != nil {
			return err
		}
		trainer, err := pipeline.BuildTrainer(s.trainerConfig(s.cfg.CVAlgorithm))
		if err != nil {
			return err
		}
		res, err := env.CrossValidate(trainer, transform, view, folds)
		if err != nil {
			return err
		}

		out = &CrossValidationOutput{
			RunID:         env.RunID,
			TransformPath: filepath.Join(s.cfg.TrainedRoot, TransformPrefix+filename),
			ModelPath:     filepath.Join(s.cfg.TrainedRoot, TrainedPrefix+filename),
			BestFold:      res.BestFold,
			BestScore:     res.BestScore,
			Folds:         res.Folds,
		}
		if err := pipeline.Save(res.TransformModel, view.Schema(), out.TransformPath); err != nil {
			return err
		}
		if err := pipeline.Save(res.BestModel, res.BestModel.InputSchema(), out.ModelPath); err != nil {
			_ = os.Remove(out.TransformPath)
			return err
		}
		if s.cfg.FoldChart {
			out.ChartPath = filepath.Join(s.cfg.TrainedRoot, FoldChartPrefix+chartName(filename))
			if err := report.WriteFoldChart(out.ChartPath, "R² per fold: "+filename, foldBars(res.Folds), res.BestFold); err != nil {
				// the models are usable without the chart
				logger.Warn("Fold chart not written", log.PathKey, out.ChartPath, "error", err.Error())
				out.ChartPath = ""
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Predict scores records with TrainedRoot/modelFilename. A model trained by
// cross-validation is preceded by its matching Transform artifact.
func (s *Service) Predict(modelFilename string, records []data.HouseData) (preds []data.HousePrediction, err error) {
	if err := validateFilename(modelFilename); err != nil {
		return nil, err
	}
	_, logger := s.begin(log.OperationPredict)
	start := time.Now()
	defer func() { logResult(logger, "Prediction request", start, err) }()

	err = errors.SafeExecute("training.Predict", func() error {
		m, _, err := pipeline.Load(filepath.Join(s.cfg.TrainedRoot, modelFilename))
		if err != nil {
			return err
		}
		if !m.HasStage(pipeline.ConcatenateName) {
			name := TransformPrefix + strings.TrimPrefix(modelFilename, TrainedPrefix)
			t, _, err := pipeline.Load(filepath.Join(s.cfg.TrainedRoot, name))
			if err != nil {
				return err
			}
			m = t.Then(m)
		}
		preds, err = m.Predict(records)
		return err
	})
	if err != nil {
		return nil, err
	}
	logger.Debug("Predicted", log.SamplesKey, len(preds))
	return preds, nil
}

func validateRequest(filename string, separator rune) error {
	if err := validateFilename(filename); err != nil {
		return err
	}
	if !data.ValidSeparator(separator) {
		return errors.NewValidationError("separator", "not a valid separator", string(separator))
	}
	return nil
}

func validateFilename(filename string) error {
	switch {
	case strings.TrimSpace(filename) == "":
		return errors.NewValidationError("filename", "must not be empty", filename)
	case filename == "." || filename == ".." || strings.ContainsAny(filename, `/\`):
		return errors.NewValidationError("filename", "must be a plain file name", filename)
	}
	return nil
}

func logResult(logger log.Logger, msg string, start time.Time, err error) {
	ms := time.Since(start).Milliseconds()
	if err != nil {
		logger.Error(msg+" failed", err, log.ErrorCodeKey, errors.Code(err), log.DurationMsKey, ms)
		return
	}
	logger.Info(msg+" done", log.DurationMsKey, ms)
}

func chartName(filename string) string {
	return strings.TrimSuffix(filename, filepath.Ext(filename)) + ".png"
}

func foldBars(scores []FoldScore) []report.FoldBar {
	bars := make([]report.FoldBar, len(scores))
	for i, f := range scores {
		bars[i] = report.FoldBar{Label: fmt.Sprintf("fold %d", f.Fold), R2: f.R2, Degenerate: f.Degenerate}
	}
	return bars
}
