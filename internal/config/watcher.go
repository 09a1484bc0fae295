package config

import (
	"os"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// Watcher watches the directory holding the api-key database for permission
// changes and logs a warning when it becomes group- or world-readable. It is
// a deliberately narrow reuse of the file-watching idiom the teacher's
// pkg/hotreload.ConfigReloader uses for full config hot-reload: Kukur's
// registry is built once at startup (spec §5), so there is nothing to
// reload here, only a security posture to keep an eye on.
type Watcher struct {
	watcher *fsnotify.Watcher
	logger  *logrus.Logger
	done    chan struct{}
}

// NewWatcher starts watching dir. Call Stop to release the underlying
// fsnotify watcher.
func NewWatcher(dir string, logger *logrus.Logger) (*Watcher, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, err
	}

	w := &Watcher{watcher: fsw, logger: logger, done: make(chan struct{})}
	go w.run(dir)
	return w, nil
}

func (w *Watcher) run(dir string) {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Chmod|fsnotify.Write|fsnotify.Create) != 0 {
				w.checkPermissions(dir)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.WithFields(logrus.Fields{"component": component}).WithError(err).Warn("watcher error")
		case <-w.done:
			return
		}
	}
}

func (w *Watcher) checkPermissions(path string) {
	info, err := os.Stat(path)
	if err != nil {
		return
	}
	if info.Mode().Perm()&0o077 != 0 {
		w.logger.WithFields(logrus.Fields{"component": component, "path": path}).
			Warn("api key database directory is readable by group or other")
	}
}

// Stop releases the underlying fsnotify watcher.
func (w *Watcher) Stop() {
	close(w.done)
	w.watcher.Close()
}
