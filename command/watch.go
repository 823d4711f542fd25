package command

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

const debounceDelay = 200 * time.Millisecond

// watcher re-runs a callback when watched YAML files change
type watcher struct {
	fs    *fsnotify.Watcher
	delay time.Duration
}

// watchTargets lists the test paths plus the config and locators files
func watchTargets(c *cli.Context) []string {
	targets := testPaths(c)
	targets = append(targets, c.String("config"))
	if v := c.String("locators"); v != "" {
		targets = append(targets, v)
	}
	return targets
}

func newWatcher(paths []string) (*watcher, error) {
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	w := &watcher{fs: fs, delay: debounceDelay}

	for _, path := range paths {
		if err := w.add(path); err != nil {
			log.Warn().Err(err).Str("path", path).Msg("couldn't watch path")
		}
	}
	return w, nil
}

// add watches a directory tree, or the directory holding a file
func (w *watcher) add(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}

	if info.IsDir() {
		return filepath.Walk(path, func(p string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if info.IsDir() {
				return w.fs.Add(p)
			}
			return nil
		})
	}

	return w.fs.Add(filepath.Dir(path))
}

func (w *watcher) Close() error {
	return w.fs.Close()
}

// Loop calls run once, then again after each batch of changes until ctx is done
func (w *watcher) Loop(ctx context.Context, run func()) error {
	trigger := make(chan struct{}, 1)
	var (
		timer *time.Timer
		mu    sync.Mutex
	)
	schedule := func() {
		mu.Lock()
		defer mu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(w.delay, func() {
			select {
			case trigger <- struct{}{}:
			default:
			}
		})
	}
	defer func() {
		mu.Lock()
		if timer != nil {
			timer.Stop()
		}
		mu.Unlock()
	}()

	run()
	for {
		select {
		case <-ctx.Done():
			return nil

		case <-trigger:
			run()

		case event, ok := <-w.fs.Events:
			if !ok {
				return nil
			}

			// Handle new directories - add them to watcher
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := w.fs.Add(event.Name); err != nil {
						log.Warn().Err(err).Str("path", event.Name).Msg("couldn't watch new directory")
					}
				}
			}

			if isWatchedFile(event.Name) && event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
				log.Debug().Str("file", event.Name).Str("op", event.Op.String()).Msg("change detected")
				schedule()
			}

		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			log.Warn().Err(err).Msg("watcher error")
		}
	}
}

func isWatchedFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".yaml" || ext == ".yml"
}
