package filewatch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/pricepredict/pkg/errors"
)

func waitDone(t *testing.T, ctx context.Context) {
	t.Helper()
	select {
	case <-ctx.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("context was not canceled")
	}
}

func TestUntilModified(t *testing.T) {
	tests := []struct {
		name   string
		setup  func(t *testing.T, dir string) (watch string)
		modify func(t *testing.T, dir string)
	}{
		{
			name:  "file created in watched directory",
			setup: func(t *testing.T, dir string) string { return dir },
			modify: func(t *testing.T, dir string) {
				require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), nil, 0o644))
			},
		},
		{
			name: "watched file written",
			setup: func(t *testing.T, dir string) string {
				p := filepath.Join(dir, "config.yaml")
				require.NoError(t, os.WriteFile(p, []byte("a: 1"), 0o644))
				return p
			},
			modify: func(t *testing.T, dir string) {
				require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("a: 2"), 0o644))
			},
		},
		{
			name: "file removed from watched directory",
			setup: func(t *testing.T, dir string) string {
				require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), nil, 0o644))
				return dir
			},
			modify: func(t *testing.T, dir string) {
				require.NoError(t, os.Remove(filepath.Join(dir, "config.yaml")))
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			ctx, cancel, err := UntilModified(context.Background(), tt.setup(t, dir))
			require.NoError(t, err)
			defer cancel()
			require.NoError(t, ctx.Err())

			tt.modify(t, dir)

			waitDone(t, ctx)
			assert.True(t, errors.Is(context.Cause(ctx), ErrModified), "cause: %v", context.Cause(ctx))
		})
	}
}

func TestUntilModified_Cancel(t *testing.T) {
	ctx, cancel, err := UntilModified(context.Background(), t.TempDir())
	require.NoError(t, err)

	cancel()
	waitDone(t, ctx)
	assert.ErrorIs(t, context.Cause(ctx), context.Canceled)
}

func TestUntilModified_MissingPath(t *testing.T) {
	ctx, cancel, err := UntilModified(context.Background(), filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
	assert.Nil(t, ctx)
	assert.Nil(t, cancel)
}
