package cmd

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pders01/savepoint/internal/config"
	"github.com/spf13/cobra"
)

var watchTag string

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Snapshot the save directory whenever it changes",
	Long: `Watch the save directory and take a snapshot once it has been quiet for
watch.debounce (default 5s). Snapshots get the tag watch.tag (default "auto").

Stop with Ctrl-C.

Examples:
  savepoint watch
  savepoint watch --tag run-12`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().StringVar(&watchTag, "tag", "", "Tag for automatic snapshots (default watch.tag)")
}

func runWatch(cmd *cobra.Command, args []string) error {
	liveDir, err := requireSaveDir()
	if err != nil {
		return err
	}
	tag := watchTag
	if tag == "" {
		tag = config.GetWatchTag()
	}
	debounce := config.GetWatchDebounce()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	if err := addRecursive(watcher, liveDir); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Printf("Watching %s (debounce %s, tag %s). Press Ctrl-C to stop.\n", liveDir, debounce, tag)

	return watchLoop(ctx, watcher.Events, watcher.Errors, debounce, func(ev fsnotify.Event) {
		if ev.Has(fsnotify.Create) {
			if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
				if err := addRecursive(watcher, ev.Name); err != nil {
					logger.Warnf("failed to watch %s: %v", ev.Name, err)
				}
			}
		}
	}, func() {
		id, err := snapshotOnce(liveDir, tag)
		if err != nil {
			logger.Errorf("automatic snapshot failed: %v", err)
			return
		}
		fmt.Printf("✓ %s Snapshot %s\n", time.Now().Format("15:04:05"), id)
	})
}

// watchLoop calls settle once no event has arrived for debounce. onEvent sees
// every event first. It returns when ctx is done or a channel closes.
func watchLoop(ctx context.Context, events <-chan fsnotify.Event, errs <-chan error, debounce time.Duration, onEvent func(fsnotify.Event), settle func()) error {
	timer := time.NewTimer(debounce)
	timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if ev.Has(fsnotify.Chmod) && !ev.Has(fsnotify.Write) {
				continue
			}
			if onEvent != nil {
				onEvent(ev)
			}
			timer.Reset(debounce)
		case err, ok := <-errs:
			if !ok {
				return nil
			}
			logger.Warnf("watch error: %v", err)
		case <-timer.C:
			settle()
		}
	}
}

// snapshotOnce opens the store for a single save so the index lock is not
// held between snapshots
func snapshotOnce(liveDir, tag string) (string, error) {
	a, err := openApp()
	if err != nil {
		return "", err
	}
	defer a.Close()

	return a.snapshots.Save(liveDir, []string{tag}, "automatic snapshot")
}

func addRecursive(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if err := watcher.Add(path); err != nil {
				return fmt.Errorf("failed to watch %s: %w", path, err)
			}
		}
		return nil
	})
}
