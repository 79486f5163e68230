// Package filewatch cancels contexts when watched files change.
package filewatch

import (
	"context"

	"github.com/fsnotify/fsnotify"

	"github.com/YuminosukeSato/pricepredict/pkg/errors"
)

// ErrModified is the cancellation cause of contexts returned by UntilModified.
var ErrModified = errors.New("watched file modified")

// UntilModified returns a context that is canceled when one of paths is
// written, created, removed or renamed. context.Cause of the returned context
// wraps ErrModified and names the file.
//
// Directories may be watched; changes to their direct entries count.
// On error, the returned context and cancel function are nil.
func UntilModified(ctx context.Context, paths ...string) (context.Context, context.CancelFunc, error) {
	cctx, cancel := context.WithCancelCause(ctx)

	w, err := fsnotify.NewWatcher()
	if err != nil {
		cancel(err)
		return nil, nil, errors.Wrap(err, "filewatch: cannot create watcher")
	}
	for _, p := range paths {
		if err := w.Add(p); err != nil {
			w.Close()
			cancel(err)
			return nil, nil, errors.Wrapf(err, "filewatch: cannot watch %s", p)
		}
	}

	go func() {
		defer w.Close()
		for {
			select {
			case <-cctx.Done():
				return
			case event, ok := <-w.Events:
				if !ok {
					return
				}
				if event.Op == fsnotify.Chmod {
					continue
				}
				cancel(errors.Wrapf(ErrModified, "%s (%s)", event.Name, event.Op))
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				cancel(errors.Wrap(err, "filewatch"))
			}
		}
	}()

	return cctx, func() { cancel(nil) }, nil
}
