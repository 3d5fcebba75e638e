/*
Copyright 2021 Loggie Authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package processor

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/atomic"

	"github.com/loggie-io/artifactgate/pkg/core/log"
	"github.com/loggie-io/artifactgate/pkg/core/sysconfig"
	"github.com/loggie-io/artifactgate/pkg/util/file"
)

// Watcher feeds files landing in an inbox directory to a Processor. A file is
// picked up once it has seen no write for the settle delay. Inbox files are not modified.
type Watcher struct {
	config    sysconfig.Watch
	processor *Processor
	osWatcher *fsnotify.Watcher

	pending map[string]time.Time // key:file|value:last write

	processed *atomic.Int64
	failed    *atomic.Int64
	results   chan *Result
}

func NewWatcher(config sysconfig.Watch, processor *Processor) (*Watcher, error) {
	osWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := osWatcher.Add(config.Directory); err != nil {
		osWatcher.Close()
		return nil, err
	}
	return &Watcher{
		config:    config,
		processor: processor,
		osWatcher: osWatcher,
		pending:   make(map[string]time.Time),
		processed: atomic.NewInt64(0),
		failed:    atomic.NewInt64(0),
		results:   make(chan *Result, 64),
	}, nil
}

func (w *Watcher) Processed() int64 {
	return w.processed.Load()
}

func (w *Watcher) Failed() int64 {
	return w.failed.Load()
}

// Run blocks until stopCh is closed. Artifacts still being decompressed are
// canceled on stop.
func (w *Watcher) Run(stopCh <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	defer w.osWatcher.Close()

	w.scanExisting()

	interval := w.config.SettleDelay / 2
	if interval <= 0 {
		interval = time.Second
	}
	tick := time.NewTicker(interval)
	defer tick.Stop()

	log.Info("watching %s for artifacts matching %s", w.config.Directory, w.config.Pattern)
	for {
		select {
		case <-stopCh:
			log.Info("stop watching %s, processed %d, failed %d", w.config.Directory, w.Processed(), w.Failed())
			return

		case e, ok := <-w.osWatcher.Events:
			if !ok {
				return
			}
			w.osNotify(e)

		case err, ok := <-w.osWatcher.Errors:
			if !ok {
				return
			}
			log.Warn("watch %s error: %v", w.config.Directory, err)

		case r := <-w.results:
			if r.Err != nil {
				w.failed.Inc()
			} else {
				w.processed.Inc()
			}

		case <-tick.C:
			w.submitSettled(ctx)
		}
	}
}

func (w *Watcher) scanExisting() {
	entries, err := os.ReadDir(w.config.Directory)
	if err != nil {
		log.Warn("read watch directory %s failed: %v", w.config.Directory, err)
		return
	}
	now := time.Now()
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := filepath.Join(w.config.Directory, entry.Name())
		if w.accept(name) {
			w.pending[name] = now
		}
	}
}

func (w *Watcher) osNotify(e fsnotify.Event) {
	log.Debug("received os notify: %+v", e)
	switch {
	case e.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		delete(w.pending, e.Name)

	case e.Op&(fsnotify.Create|fsnotify.Write) != 0:
		if !w.accept(e.Name) {
			return
		}
		info, err := os.Stat(e.Name)
		if err != nil || info.IsDir() {
			return
		}
		w.pending[e.Name] = time.Now()
	}
}

func (w *Watcher) accept(name string) bool {
	base := filepath.Base(name)
	if file.IsHidden(base) {
		return false
	}
	matched, err := file.MatchWithRecursive(w.config.Pattern, base)
	if err != nil {
		log.Warn("match %s with %s failed: %v", base, w.config.Pattern, err)
		return false
	}
	return matched
}

func (w *Watcher) submitSettled(ctx context.Context) {
	now := time.Now()
	for name, last := range w.pending {
		if now.Sub(last) < w.config.SettleDelay {
			continue
		}
		delete(w.pending, name)

		info, err := os.Stat(name)
		if err != nil {
			log.Debug("pending artifact %s is gone: %v", name, err)
			continue
		}
		if w.config.MaxArtifactSize.Exceeded(info.Size()) {
			log.Warn("skip artifact %s: %d bytes exceeds maxArtifactSize %s", name, info.Size(), w.config.MaxArtifactSize)
			w.failed.Inc()
			continue
		}

		err = w.processor.Submit(ctx, name, func(r *Result) {
			select {
			case w.results <- r:
			case <-ctx.Done():
			}
		})
		if err != nil {
			log.Error("submit %s failed: %v", name, err)
			w.failed.Inc()
		}
	}
}
