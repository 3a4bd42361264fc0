package config

import (
	"context"

	"github.com/fsnotify/fsnotify"
)

// Watch reloads path whenever it changes on disk and invokes onChange with
// the freshly parsed config. It returns once ctx is cancelled. Only
// operational knobs are live this way; the engine's own deterministic state
// is never touched by a reload.
func Watch(ctx context.Context, path string, onChange func(*EngineConfig)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(path); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			cfg, err := Load(path)
			if err != nil {
				continue
			}
			onChange(cfg)
		case _, ok := <-w.Errors:
			if !ok {
				return nil
			}
		}
	}
}
