package settings

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const watchDebounce = 200 * time.Millisecond

// Watch reloads the file when another process changes it and calls onChange
// with the new preferences. Writes made through f itself are not reported.
// It blocks until ctx is cancelled.
//
// The directory is watched rather than the file because atomic writes
// replace the file by rename.
func (f *File) Watch(ctx context.Context, onChange func(Prefs)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(filepath.Dir(f.path)); err != nil {
		return err
	}
	f.logger.Info("settings: watching", slog.String("path", f.path))

	var timer *time.Timer
	var timerCh <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil

		case <-timerCh:
			changed, err := f.Reload()
			if err != nil {
				f.logger.Warn("settings: reload failed", slog.String("error", err.Error()))
				continue
			}
			if changed && onChange != nil {
				onChange(f.Get())
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != f.path {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(watchDebounce)
				timerCh = timer.C
			} else {
				timer.Reset(watchDebounce)
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			f.logger.Error("settings: watcher error", slog.String("error", watchErr.Error()))
		}
	}
}
