package config

import (
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/schubergphilis/clumon/pkg/logging"
)

// Watcher reports changes to a config file
type Watcher struct {
	file     string
	watcher  *fsnotify.Watcher
	changed  chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// NewWatcher watches file. The directory is watched, so editors replacing the file are noticed too.
func NewWatcher(file string) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(file)
	if err != nil {
		fw.Close()
		return nil, err
	}
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		fw.Close()
		return nil, err
	}

	w := &Watcher{
		file:    abs,
		watcher: fw,
		changed: make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	go w.run()
	return w, nil
}

// Changed receives a value after the file was written, bursts are collapsed
func (w *Watcher) Changed() <-chan struct{} {
	return w.changed
}

func (w *Watcher) run() {
	log := logging.For("config/watcher").WithField("file", w.file)
	log.Debug("watching config file for changes")
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.file {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				log.WithField("op", event.Op.String()).Debug("config file changed")
				select {
				case w.changed <- struct{}{}:
				default:
				}
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.WithError(err).Warn("config watcher error")
		case <-w.done:
			return
		}
	}
}

// Stop stops watching
func (w *Watcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.done)
		err = w.watcher.Close()
	})
	return err
}
