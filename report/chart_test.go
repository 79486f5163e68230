package report

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/pricepredict/pkg/errors"
)

var pngMagic = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

func TestWriteFoldChart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Folds.png")
	bars := []FoldBar{
		{Label: "fold 0", R2: 0.71},
		{Label: "fold 1", R2: 0.83},
		{Label: "fold 2", R2: math.NaN(), Degenerate: true},
	}

	require.NoError(t, WriteFoldChart(path, "R² per fold", bars, 1))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(b, pngMagic))
}

func TestWriteFoldChart_ReplacesStaleFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Folds.png")
	require.NoError(t, os.WriteFile(path, []byte("stale"), 0o644))

	require.NoError(t, WriteFoldChart(path, "", []FoldBar{{Label: "fold 0", R2: 0.5}}, 0))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(b, pngMagic))
}

func TestFoldChart_NoFolds(t *testing.T) {
	_, err := FoldChart("empty", nil, -1)
	var verr *errors.ValueError
	assert.True(t, errors.As(err, &verr))
}

func TestWriteFoldChart_MissingDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "Folds.png")
	err := WriteFoldChart(path, "", []FoldBar{{Label: "fold 0", R2: 0.5}}, 0)

	var perr *errors.PersistenceError
	require.True(t, errors.As(err, &perr))
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}
