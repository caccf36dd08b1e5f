package image

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/u64view/u64view/pkg/logger"
)

// PaletteWatcher reloads a user palette file whenever it changes, so
// palette tweaking doesn't need a viewer restart.
type PaletteWatcher struct {
	path    string
	pal     *Palette
	watcher *fsnotify.Watcher
	log     *logger.Logger
	done    chan struct{}
}

func NewPaletteWatcher(path string, pal *Palette, log *logger.Logger) (*PaletteWatcher, error) {
	colors, err := LoadPaletteFile(path)
	if err != nil {
		return nil, err
	}
	pal.Set(colors)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	// watch the directory: editors replace files instead of writing
	// them in place
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		_ = watcher.Close()
		return nil, err
	}
	return &PaletteWatcher{path: path, pal: pal, watcher: watcher, log: log, done: make(chan struct{})}, nil
}

func (w *PaletteWatcher) Run() {
	go func() {
		for {
			select {
			case event, ok := <-w.watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != filepath.Clean(w.path) {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				colors, err := LoadPaletteFile(w.path)
				if err != nil {
					w.log.Warn().Err(err).Msgf("palette reload failed, keeping the old one")
					continue
				}
				w.pal.Set(colors)
				w.log.Info().Msgf("palette reloaded from %v", w.path)
			case err, ok := <-w.watcher.Errors:
				if !ok {
					return
				}
				w.log.Warn().Err(err).Msg("palette watch error")
			case <-w.done:
				return
			}
		}
	}()
}

func (w *PaletteWatcher) Shutdown(_ context.Context) error {
	close(w.done)
	return w.watcher.Close()
}

func (w *PaletteWatcher) String() string { return "palette::" + w.path }
