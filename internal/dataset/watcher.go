package dataset

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watch monitors a dataset directory and invokes rebuild after the source
// datasets (posts.csv, comments.csv) change. Events are batched with a short
// settle window so editors and bulk writes trigger a single rebuild.
//
// Changes to derived files (edges.csv, meta.json) are ignored so a rebuild's
// own output does not retrigger it.
func Watch(ctx context.Context, store *Store, rebuild func() error) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(store.Dir()); err != nil {
		return fmt.Errorf("watching %s: %w", store.Dir(), err)
	}

	// Batch changes so one rebuild covers a burst of writes
	pending := false
	batchTimer := time.NewTimer(2 * time.Second)
	batchTimer.Stop() // Don't start yet

	fmt.Printf("Watching %s for changes (Ctrl+C to stop)\n", store.Dir())

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			if !isSourceDataset(event.Name) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Remove) {
				continue
			}

			pending = true
			batchTimer.Reset(2 * time.Second)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(os.Stderr, "Watch error: %v\n", err)

		case <-batchTimer.C:
			if pending {
				fmt.Println("Source datasets changed, rebuilding network...")
				if err := rebuild(); err != nil {
					fmt.Fprintf(os.Stderr, "Error rebuilding network: %v\n", err)
				}
				pending = false
			}
		}
	}
}

// isSourceDataset reports whether a changed path is one of the datasets the
// network is derived from.
func isSourceDataset(path string) bool {
	switch filepath.Base(path) {
	case PostsFile, CommentsFile:
		return true
	}
	return false
}
