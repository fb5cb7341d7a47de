package config

import (
	"context"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/multierr"
	goutils "go.viam.com/utils"

	"github.com/viam-labs/colordetect/logging"
)

// A Watcher watches a config file for changes and reports each new, valid
// config. Invalid edits are logged and skipped so a typo cannot take a
// running process down.
type Watcher struct {
	logger    logging.Logger
	configCh  chan *Config
	fsWatcher *fsnotify.Watcher

	cancel                  func()
	activeBackgroundWorkers sync.WaitGroup
}

// NewWatcher begins watching the config file at the given path.
func NewWatcher(filePath string, logger logging.Logger) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsWatcher.Add(filePath); err != nil {
		return nil, multierr.Combine(err, fsWatcher.Close())
	}
	cancelCtx, cancel := context.WithCancel(context.Background())
	w := &Watcher{
		logger:    logger,
		configCh:  make(chan *Config),
		fsWatcher: fsWatcher,
		cancel:    cancel,
	}
	w.activeBackgroundWorkers.Add(1)
	goutils.ManagedGo(func() {
		for {
			if cancelCtx.Err() != nil {
				return
			}
			select {
			case <-cancelCtx.Done():
				return
			case event, ok := <-fsWatcher.Events:
				if !ok {
					return
				}
				if event.Op&fsnotify.Write != fsnotify.Write {
					continue
				}
				cfg, err := Read(filePath, logger)
				if err != nil {
					logger.Errorw("error reading config after write", "error", err)
					continue
				}
				select {
				case w.configCh <- cfg:
				case <-cancelCtx.Done():
					return
				}
			case err, ok := <-fsWatcher.Errors:
				if !ok {
					return
				}
				logger.Errorw("config watch error", "error", err)
			}
		}
	}, w.activeBackgroundWorkers.Done)
	return w, nil
}

// Config returns the channel new configs arrive on.
func (w *Watcher) Config() <-chan *Config {
	return w.configCh
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	w.cancel()
	w.activeBackgroundWorkers.Wait()
	return w.fsWatcher.Close()
}
