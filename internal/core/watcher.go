package core

// watcher.go rebuilds when files under the input directory change.
//
// Events are debounced: the rebuild fires a short interval after the
// last write settles, so copying several CSVs into the directory
// triggers one run, not one per file.

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// startWatcher arms the input directory watcher when enabled.
func (s *Service) startWatcher() error {
	if !s.cfg.Build.WatchInput {
		return nil
	}

	if err := os.MkdirAll(s.cfg.Paths.InputDir, 0o755); err != nil {
		return fmt.Errorf("create input dir: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(s.cfg.Paths.InputDir); err != nil {
		watcher.Close()
		return fmt.Errorf("watch %s: %w", s.cfg.Paths.InputDir, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.watcher = watcher
	s.watchCancel = cancel

	go s.watchLoop(ctx, watcher, s.cfg.Build.WatchDebounce)

	slog.Info("input watcher armed",
		"dir", s.cfg.Paths.InputDir,
		"debounce", s.cfg.Build.WatchDebounce,
	)
	return nil
}

func (s *Service) watchLoop(ctx context.Context, watcher *fsnotify.Watcher, debounce time.Duration) {
	var pending *time.Timer
	defer func() {
		if pending != nil {
			pending.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			// Dotfiles are in-flight downloads and editor temp files.
			if strings.HasPrefix(filepath.Base(event.Name), ".") {
				continue
			}

			if pending != nil {
				pending.Stop()
			}
			name := event.Name
			pending = time.AfterFunc(debounce, func() {
				id, err := s.StartRun(context.Background(), RunRequest{})
				if errors.Is(err, ErrRunInProgress) {
					slog.Info("input changed, rebuild already running", "file", name)
					return
				}
				if err != nil {
					slog.Error("input change rebuild failed to start", "error", err)
					return
				}
				slog.Info("input changed, rebuild started", "file", name, "run_id", id)
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			slog.Error("input watcher error", "error", err)
		}
	}
}

// stopWatcher tears the watcher down if armed.
func (s *Service) stopWatcher() {
	if s.watchCancel != nil {
		s.watchCancel()
		s.watchCancel = nil
	}
	if s.watcher != nil {
		s.watcher.Close()
		s.watcher = nil
	}
}
