package model

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	scierrors "github.com/YuminosukeSato/pricepredict/pkg/errors"
)

type sample struct {
	Name    string
	Weights []float64
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.bin")
	in := sample{Name: "ols", Weights: []float64{1.5, -2, 3.25}}

	require.NoError(t, SaveModel(&in, path))

	var out sample
	require.NoError(t, LoadModel(&out, path))
	assert.Equal(t, in, out)
}

func TestWriterReaderRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, SaveModelToWriter(sample{Name: "x"}, &buf))

	var out sample
	require.NoError(t, LoadModelFromReader(&out, &buf))
	assert.Equal(t, "x", out.Name)
}

func TestWriteAtomicReplacesStaleFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out")
	require.NoError(t, os.WriteFile(path, bytes.Repeat([]byte("stale"), 1000), 0o644))

	require.NoError(t, WriteAtomic(path, func(w io.Writer) error {
		_, err := w.Write([]byte("fresh"))
		return err
	}))

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "fresh", string(got))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestWriteAtomicFailureLeavesNothing(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out")

	err := WriteAtomic(path, func(w io.Writer) error {
		_, _ = w.Write([]byte("partial"))
		return scierrors.New("disk full")
	})
	require.Error(t, err)

	var perr *scierrors.PersistenceError
	assert.True(t, scierrors.As(err, &perr))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestWriteAtomicMissingDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "out")
	err := WriteAtomic(path, func(w io.Writer) error { return nil })

	var perr *scierrors.PersistenceError
	require.True(t, scierrors.As(err, &perr))
	assert.Equal(t, path, perr.Path)
}

func TestLoadModelMissingFile(t *testing.T) {
	var out sample
	err := LoadModel(&out, filepath.Join(t.TempDir(), "nope"))

	var perr *scierrors.PersistenceError
	assert.True(t, scierrors.As(err, &perr))
}

type fittedSample struct {
	BaseEstimator
	Bias float64
}

func TestFittedStateSurvivesRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	in := fittedSample{Bias: 2}
	in.SetFitted()
	require.NoError(t, SaveModelToWriter(&in, &buf))

	var out fittedSample
	require.NoError(t, LoadModelFromReader(&out, &buf))
	assert.True(t, out.IsFitted())
	assert.Equal(t, 2.0, out.Bias)
}
