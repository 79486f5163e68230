package errors

import (
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewModelError(t *testing.T) {
	tests := []struct {
		name    string
		op      string
		kind    string
		err     error
		wantMsg string
	}{
		{
			name:    "with original error",
			op:      "Fit",
			kind:    "invalid input",
			err:     fmt.Errorf("test error"),
			wantMsg: "pricepredict: Fit: invalid input: test error",
		},
		{
			name:    "without original error",
			op:      "Predict",
			kind:    "not fitted",
			wantMsg: "pricepredict: Predict: not fitted",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewModelError(tt.op, tt.kind, tt.err)

			assert.Equal(t, tt.wantMsg, err.Error())

			// スタックトレースの存在確認
			formatted := fmt.Sprintf("%+v", err)
			assert.Contains(t, formatted, "errors_test.go")

			var modelErr *ModelError
			assert.True(t, As(err, &modelErr))
		})
	}
}

func TestNewDimensionError(t *testing.T) {
	err := NewDimensionError("Predict", 11, 3, 1)

	assert.Equal(t, "pricepredict: Predict: dimension mismatch on axis 1 (features). Expected 11, got 3", err.Error())

	var dimErr *DimensionError
	require.True(t, As(err, &dimErr))
	assert.Equal(t, 11, dimErr.Expected)
}

func TestDataLoadErrorMessages(t *testing.T) {
	t.Run("file level", func(t *testing.T) {
		err := NewDataLoadError("Data/missing.csv", "cannot open dataset", os.ErrNotExist)
		assert.Equal(t, `pricepredict: failed to load "Data/missing.csv": cannot open dataset: file does not exist`, err.Error())
		assert.True(t, Is(err, os.ErrNotExist))
	})

	t.Run("row level", func(t *testing.T) {
		err := NewRowLoadError("houses.csv", 7, 5, "not a number", nil)
		assert.Equal(t, `pricepredict: failed to load "houses.csv" at line 7, column 5: not a number`, err.Error())
	})
}

func TestCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, CodeOK},
		{"validation", NewValidationError("separator", "not a separator", "a"), CodeValidation},
		{"data load", NewDataLoadError("x", "missing", nil), CodeDataLoad},
		{"configuration", NewConfigurationError("pipeline", "no features"), CodeConfiguration},
		{"training", NewTrainingError("Fit", "empty view", nil), CodeTraining},
		{"persistence", NewPersistenceError("out", "cannot write", nil), CodePersistence},
		{"wrapped training", Wrap(NewTrainingError("Fit", "empty view", nil), "service"), CodeTraining},
		{"training wrapping numerical", NewTrainingError("Fit", "trainer failed", NewNumericalInstabilityError("sdca", []float64{1}, 3)), CodeTraining},
		{"plain", New("boom"), CodeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Code(tt.err))
		})
	}
}

func TestUnwrapChains(t *testing.T) {
	base := New("disk full")
	err := NewPersistenceError("TrainedData/Trainedhouses.csv", "cannot write model", base)

	assert.True(t, Is(err, base))
	assert.True(t, strings.HasSuffix(err.Error(), "disk full"))

	var persist *PersistenceError
	require.True(t, As(err, &persist))
	assert.Equal(t, "TrainedData/Trainedhouses.csv", persist.Path)
}

func TestWarnUsesConfiguredHandler(t *testing.T) {
	var got []error
	SetWarningHandler(func(w error) { got = append(got, w) })
	defer SetWarningHandler(func(error) {})

	Warn(NewConvergenceWarning("Sdca", 10, ""))

	require.Len(t, got, 1)
	assert.Contains(t, got[0].Error(), "Sdca failed to converge after 10 iterations")
}

func TestCheckNumericalStability(t *testing.T) {
	assert.NoError(t, CheckNumericalStability("op", []float64{1, 2, 3}, 0))
	assert.Error(t, CheckScalar("op", nan(), 4))

	var inst *NumericalInstabilityError
	err := CheckNumericalStability("leaf", []float64{1, nan()}, 2)
	require.True(t, As(err, &inst))
	assert.Equal(t, 2, inst.Iteration)
}

func nan() float64 {
	zero := 0.0
	return zero / zero
}
