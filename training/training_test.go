package training

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/pricepredict/data"
	"github.com/YuminosukeSato/pricepredict/pipeline"
	"github.com/YuminosukeSato/pricepredict/pkg/errors"
	"github.com/YuminosukeSato/pricepredict/pkg/log"
)

const header = "row;id;date;price;bedrooms;bathrooms;sqft_living;sqft_lot;floors;waterfront;view;condition;grade;sqft_above;sqft_basement;yr_built;yr_renovated;zipcode;lat;long;sqft_living15;sqft_lot15"

// houses returns n rows where price grows with living area and grade.
func houses(n int) []data.HouseData {
	out := make([]data.HouseData, n)
	for i := range out {
		area := 800 + float64((i*37)%60)*40
		grade := 5 + float64(i%6)
		out[i] = data.HouseData{
			Bedrooms:   float64(2 + i%4),
			Bathrooms:  1 + float64(i%3)*0.5,
			LivingArea: area,
			LotArea:    4000 + float64(i%11)*250,
			Floors:     1 + float64(i%2),
			Condition:  3,
			Grade:      grade,
			HighFeet:   area,
			Label:      50000 + 150*area + 20000*grade + 1000*math.Sin(float64(i)),
		}
	}
	return out
}

// writeDataset writes records as a 22-column ';' separated file under dir.
func writeDataset(t *testing.T, dir, name string, records []data.HouseData) {
	t.Helper()
	lines := []string{header}
	for i, r := range records {
		fields := []string{strconv.Itoa(i), strconv.Itoa(1000 + i), "20141013T000000"}
		for _, v := range r.Values() {
			fields = append(fields, strconv.FormatFloat(v, 'f', -1, 64))
		}
		fields = append(fields, "1955", "0", "98178", "47.5112", "-122.257", "1340", "5650")
		lines = append(lines, strings.Join(fields, ";"))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(strings.Join(lines, "\n")+"\n"), 0o644))
}

type fixture struct {
	svc    *Service
	logger *log.TestLogger
	data   string
	out    string
}

func newFixture(t *testing.T, mutate func(*ServiceConfig), opts ...Option) *fixture {
	t.Helper()
	root := t.TempDir()
	f := &fixture{data: filepath.Join(root, "Data"), out: filepath.Join(root, "TrainedModels")}
	require.NoError(t, os.MkdirAll(f.data, 0o755))
	require.NoError(t, os.MkdirAll(f.out, 0o755))

	cfg := DefaultServiceConfig()
	cfg.DataRoot, cfg.TrainedRoot = f.data, f.out
	if mutate != nil {
		mutate(&cfg)
	}
	f.logger, _ = log.NewTestLogger(log.LevelDebug)
	f.svc = NewService(cfg, NewEnvironment(0, f.logger), opts...)
	return f
}

func testEnv() *Environment {
	logger, _ := log.NewTestLogger(log.LevelDebug)
	return NewEnvironment(0, logger)
}

func predictAll(t *testing.T, m *pipeline.Model, records []data.HouseData) []float64 {
	t.Helper()
	preds, err := m.Predict(records)
	require.NoError(t, err)
	out := make([]float64, len(preds))
	for i, p := range preds {
		out[i] = p.SoldPrice
	}
	return out
}

func TestFitIsDeterministic(t *testing.T) {
	records := houses(80)
	for _, alg := range pipeline.Algorithms {
		t.Run(string(alg), func(t *testing.T) {
			p, err := pipeline.Build(data.NumericFeatures, pipeline.DefaultTrainerConfig(alg))
			require.NoError(t, err)

			m1, err := testEnv().Fit(p, data.FrameFromRecords(records))
			require.NoError(t, err)
			m2, err := testEnv().Fit(p, data.FrameFromRecords(records))
			require.NoError(t, err)

			assert.Equal(t, predictAll(t, m1, records), predictAll(t, m2, records))
		})
	}
}

func TestFitRejectsSingleRow(t *testing.T) {
	p, err := pipeline.Build(data.NumericFeatures, pipeline.DefaultTrainerConfig(pipeline.FastTree))
	require.NoError(t, err)

	_, err = testEnv().Fit(p, data.FrameFromRecords(houses(1)))
	var te *errors.TrainingError
	require.True(t, errors.As(err, &te), "got %v", err)
	assert.True(t, errors.Is(err, errors.ErrEmptyData))
}

func TestFitRejectsNonNumericFeature(t *testing.T) {
	records := houses(30)
	for i := range records {
		records[i].Waterfront = math.NaN()
	}
	p, err := pipeline.Build(data.NumericFeatures, pipeline.DefaultTrainerConfig(pipeline.Sdca))
	require.NoError(t, err)

	_, err = testEnv().Fit(p, data.FrameFromRecords(records))
	var te *errors.TrainingError
	assert.True(t, errors.As(err, &te), "got %v", err)
}

func TestCrossValidate(t *testing.T) {
	transform, err := pipeline.BuildTransform(data.NumericFeatures)
	require.NoError(t, err)
	trainer, err := pipeline.BuildTrainer(pipeline.DefaultTrainerConfig(pipeline.Sdca))
	require.NoError(t, err)

	logger, _ := log.NewTestLogger(log.LevelDebug)
	env := NewEnvironment(0, logger)
	view := data.FrameFromRecords(houses(60))

	res, err := env.CrossValidate(trainer, transform, view, 3)
	require.NoError(t, err)
	require.Len(t, res.Folds, 3)

	best := res.Folds[0]
	for _, f := range res.Folds {
		assert.False(t, f.Degenerate)
		assert.Equal(t, 20, f.TestRows)
		assert.Equal(t, 40, f.TrainRows)
		if f.R2 > best.R2 {
			best = f
		}
	}
	assert.Equal(t, best.Fold, res.BestFold)
	assert.Equal(t, best.R2, res.BestScore)
	assert.Greater(t, res.BestScore, 0.9)
	assert.True(t, logger.ContainsMessage("Fold evaluated"))

	// the best model consumes the transform's output
	assert.False(t, res.BestModel.HasStage(pipeline.ConcatenateName))
	preds := predictAll(t, res.TransformModel.Then(res.BestModel), houses(5))
	assert.Len(t, preds, 5)
}

func TestCrossValidateStableBestFold(t *testing.T) {
	transform, err := pipeline.BuildTransform(data.NumericFeatures)
	require.NoError(t, err)
	trainer, err := pipeline.BuildTrainer(pipeline.DefaultTrainerConfig(pipeline.Sdca))
	require.NoError(t, err)
	view := data.FrameFromRecords(houses(45))

	first, err := testEnv().CrossValidate(trainer, transform, view, 4)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		again, err := testEnv().CrossValidate(trainer, transform, view, 4)
		require.NoError(t, err)
		assert.Equal(t, first.BestFold, again.BestFold)
		assert.Equal(t, first.Folds, again.Folds)
	}
}

func TestCrossValidateFoldCounts(t *testing.T) {
	transform, err := pipeline.BuildTransform(data.NumericFeatures)
	require.NoError(t, err)
	trainer, err := pipeline.BuildTrainer(pipeline.DefaultTrainerConfig(pipeline.Sdca))
	require.NoError(t, err)

	t.Run("more folds than rows", func(t *testing.T) {
		_, err := testEnv().CrossValidate(trainer, transform, data.FrameFromRecords(houses(5)), 6)
		var te *errors.TrainingError
		assert.True(t, errors.As(err, &te), "got %v", err)
	})

	t.Run("one fold", func(t *testing.T) {
		_, err := testEnv().CrossValidate(trainer, transform, data.FrameFromRecords(houses(10)), 1)
		var te *errors.TrainingError
		assert.True(t, errors.As(err, &te), "got %v", err)
	})

	t.Run("one row per fold", func(t *testing.T) {
		// a single validation row has no label variance, so no fold can be scored
		_, err := testEnv().CrossValidate(trainer, transform, data.FrameFromRecords(houses(6)), 6)
		var te *errors.TrainingError
		require.True(t, errors.As(err, &te), "got %v", err)
		assert.True(t, errors.Is(err, errors.ErrUndefinedScore))
	})
}

func TestTrainModelRoundTrip(t *testing.T) {
	f := newFixture(t, nil)
	records := houses(80)
	writeDataset(t, f.data, "houses.csv", records)

	out, err := f.svc.TrainModel("houses.csv", ';')
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(f.out, "Trainedhouses.csv"), out)

	// reference model fitted in memory on the same file
	view, err := data.LoadFromTextFile(filepath.Join(f.data, "houses.csv"),
		data.TextLoaderOptions{Separator: ';', HasHeader: true, AllowQuoting: true})
	require.NoError(t, err)
	p, err := pipeline.Build(data.NumericFeatures, pipeline.DefaultTrainerConfig(pipeline.FastTree))
	require.NoError(t, err)
	inMemory, err := testEnv().Fit(p, view)
	require.NoError(t, err)

	preds, err := f.svc.Predict("Trainedhouses.csv", records)
	require.NoError(t, err)
	want := predictAll(t, inMemory, records)
	require.Len(t, preds, len(want))
	for i := range want {
		assert.InDelta(t, want[i], preds[i].SoldPrice, 1e-6)
	}
}

func TestTrainModelJitteredRows(t *testing.T) {
	f := newFixture(t, nil)
	records := make([]data.HouseData, 100)
	for i := range records {
		records[i] = data.HouseData{
			Label:      500000 + float64(i%7-3)*1000,
			Bedrooms:   3,
			Bathrooms:  2,
			LivingArea: 1800,
			LotArea:    5000,
			Floors:     1,
			Condition:  3,
			Grade:      7,
			HighFeet:   1800,
		}
	}
	writeDataset(t, f.data, "jitter.csv", records)

	_, err := f.svc.TrainModel("jitter.csv", ';')
	require.NoError(t, err)

	preds, err := f.svc.Predict("Trainedjitter.csv", records[:1])
	require.NoError(t, err)
	require.Len(t, preds, 1)
	assert.InEpsilon(t, 500000, preds[0].SoldPrice, 0.05)
}

func TestTrainModelSingleRow(t *testing.T) {
	f := newFixture(t, nil)
	writeDataset(t, f.data, "one.csv", houses(1))

	_, err := f.svc.TrainModel("one.csv", ';')
	var te *errors.TrainingError
	require.True(t, errors.As(err, &te), "got %v", err)
	assert.Equal(t, errors.CodeTraining, errors.Code(err))

	_, statErr := os.Stat(filepath.Join(f.out, "Trainedone.csv"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestTrainModelReplacesStaleFile(t *testing.T) {
	f := newFixture(t, nil)
	writeDataset(t, f.data, "houses.csv", houses(40))
	stale := filepath.Join(f.out, "Trainedhouses.csv")
	require.NoError(t, os.WriteFile(stale, []byte("not a model"), 0o644))

	_, err := f.svc.TrainModel("houses.csv", ';')
	require.NoError(t, err)

	_, err = f.svc.Predict("Trainedhouses.csv", houses(3))
	require.NoError(t, err)

	entries, err := os.ReadDir(f.out)
	require.NoError(t, err)
	require.Len(t, entries, 1, "temporary files must not remain")
}

func TestTrainModelMissingDataset(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.svc.TrainModel("absent.csv", ';')
	var de *errors.DataLoadError
	require.True(t, errors.As(err, &de), "got %v", err)
	assert.Equal(t, errors.CodeDataLoad, errors.Code(err))
	assert.True(t, f.logger.ContainsMessage("Training request failed"))
}

func TestValidationNeverLoads(t *testing.T) {
	calls := 0
	loader := func(path string, opts data.TextLoaderOptions) (data.View, error) {
		calls++
		return LoadTextFile(path, opts)
	}
	f := newFixture(t, nil, WithLoader(loader))

	tests := []struct {
		name      string
		filename  string
		separator rune
	}{
		{"empty filename", "", ';'},
		{"blank filename", "  ", ';'},
		{"path", "../houses.csv", ';'},
		{"nested", "sub/houses.csv", ';'},
		{"dot dot", "..", ';'},
		{"letter separator", "houses.csv", 'a'},
		{"quote separator", "houses.csv", '"'},
		{"newline separator", "houses.csv", '\n'},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.TrainModel(tt.filename, tt.separator)
			var ve *errors.ValidationError
			assert.True(t, errors.As(err, &ve), "got %v", err)
			assert.Equal(t, errors.CodeValidation, errors.Code(err))

			_, err = f.svc.TrainModelCrossValidated(tt.filename, tt.separator, 3)
			assert.True(t, errors.As(err, &ve), "got %v", err)
		})
	}
	assert.Zero(t, calls)
}

func TestTrainModelCrossValidated(t *testing.T) {
	f := newFixture(t, func(c *ServiceConfig) { c.FoldChart = true })
	records := houses(60)
	writeDataset(t, f.data, "houses.csv", records)

	out, err := f.svc.TrainModelCrossValidated("houses.csv", ';', 0)
	require.NoError(t, err)
	assert.Len(t, out.Folds, DefaultFolds)
	assert.NotEmpty(t, out.RunID)
	assert.Equal(t, filepath.Join(f.out, "Transformhouses.csv"), out.TransformPath)
	assert.Equal(t, filepath.Join(f.out, "Trainedhouses.csv"), out.ModelPath)
	assert.Equal(t, filepath.Join(f.out, "Foldshouses.png"), out.ChartPath)
	for _, p := range []string{out.TransformPath, out.ModelPath, out.ChartPath} {
		assert.FileExists(t, p)
	}

	preds, err := f.svc.Predict("Trainedhouses.csv", records[:10])
	require.NoError(t, err)
	require.Len(t, preds, 10)
	for i, p := range preds {
		assert.InEpsilon(t, records[i].Label, p.SoldPrice, 0.2)
	}
}

func TestPredictMissingModel(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.svc.Predict("Trainedabsent.csv", houses(1))
	var pe *errors.PersistenceError
	assert.True(t, errors.As(err, &pe), "got %v", err)

	_, err = f.svc.Predict("", houses(1))
	var ve *errors.ValidationError
	assert.True(t, errors.As(err, &ve), "got %v", err)
}

func TestFoldScoreJSON(t *testing.T) {
	b, err := json.Marshal(FoldScore{Fold: 2, R2: math.NaN(), RMSE: 3, MAE: 2, TrainRows: 4, TestRows: 1, Degenerate: true})
	require.NoError(t, err)
	assert.JSONEq(t, `{"fold":2,"r2":null,"rmse":3,"mae":2,"train_rows":4,"test_rows":1,"degenerate":true}`, string(b))
}
