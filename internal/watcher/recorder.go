// Package watcher records which asset directories saw filesystem activity
// while WP-CLI was installing or updating.
//
// The recorder watches the plugins (or themes) directory and each asset
// directory directly below it. That is coarse but matches how WordPress
// upgrades work: the upgrader removes and recreates the whole asset
// directory, which always produces events at the top level.
package watcher

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"

	"github.com/blackwell-systems/wpgh/internal/logging"
)

const (
	defaultSettle  = 100 * time.Millisecond
	defaultMaxWait = 2 * time.Second
)

// Tracker starts recorders. The zero value is ready to use.
type Tracker struct {
	// Settle is how long Stop waits for the event stream to go quiet.
	Settle time.Duration
	// MaxWait bounds the total time Stop spends settling.
	MaxWait time.Duration
}

// Recorder collects asset ids with filesystem activity under a base dir.
type Recorder struct {
	base    string
	fsw     *fsnotify.Watcher
	settle  time.Duration
	maxWait time.Duration
	log     *logrus.Entry

	mu        sync.Mutex
	touched   map[string]bool
	lastEvent time.Time

	done chan struct{}
}

// Start begins recording activity under baseDir. A missing baseDir is
// created by WordPress on first install, so its parent is watched instead.
func (t Tracker) Start(baseDir string) (*Recorder, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	r := &Recorder{
		base:    filepath.Clean(baseDir),
		fsw:     fsw,
		settle:  t.Settle,
		maxWait: t.MaxWait,
		log:     logging.NewLogger("watcher"),
		touched: make(map[string]bool),
		done:    make(chan struct{}),
	}
	if r.settle <= 0 {
		r.settle = defaultSettle
	}
	if r.maxWait <= 0 {
		r.maxWait = defaultMaxWait
	}

	if err := r.watchTree(); err != nil {
		fsw.Close()
		return nil, err
	}

	go r.loop()
	return r, nil
}

func (r *Recorder) watchTree() error {
	if _, err := os.Stat(r.base); os.IsNotExist(err) {
		return r.fsw.Add(filepath.Dir(r.base))
	}
	if err := r.fsw.Add(r.base); err != nil {
		return err
	}
	entries, err := os.ReadDir(r.base)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		dir := filepath.Join(r.base, e.Name())
		if err := r.fsw.Add(dir); err != nil {
			r.log.WithError(err).Debugf("failed to watch %s", dir)
		}
	}
	return nil
}

func (r *Recorder) loop() {
	defer close(r.done)
	for {
		select {
		case event, ok := <-r.fsw.Events:
			if !ok {
				return
			}
			r.handle(event)
		case err, ok := <-r.fsw.Errors:
			if !ok {
				return
			}
			r.log.WithError(err).Warn("filesystem watcher error")
		}
	}
}

func (r *Recorder) handle(event fsnotify.Event) {
	id := r.assetID(event.Name)
	r.log.Debugf("fsnotify event: %s op=%v", event.Name, event.Op)

	if id == "" {
		// The base directory itself appearing; start watching it.
		if event.Op&fsnotify.Create != 0 && filepath.Clean(event.Name) == r.base {
			if err := r.fsw.Add(r.base); err != nil {
				r.log.WithError(err).Debugf("failed to watch %s", r.base)
			}
		}
		return
	}

	if event.Op&fsnotify.Create != 0 && filepath.Dir(event.Name) == r.base {
		if fi, err := os.Stat(event.Name); err == nil && fi.IsDir() {
			if err := r.fsw.Add(event.Name); err != nil {
				r.log.WithError(err).Debugf("failed to watch %s", event.Name)
			}
		}
	}

	r.mu.Lock()
	r.touched[id] = true
	r.lastEvent = time.Now()
	r.mu.Unlock()
}

// assetID maps a path below base to its first path component. Paths outside
// base, and base itself, map to "".
func (r *Recorder) assetID(name string) string {
	rel, err := filepath.Rel(r.base, name)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return ""
	}
	id := strings.SplitN(filepath.ToSlash(rel), "/", 2)[0]
	// single-file plugins live directly in the plugins dir
	return strings.TrimSuffix(id, ".php")
}

// Stop waits for the event stream to settle, stops watching and returns
// the set of touched asset ids. Stop must be called exactly once.
func (r *Recorder) Stop() map[string]bool {
	deadline := time.Now().Add(r.maxWait)
	start := time.Now()
	for time.Now().Before(deadline) {
		r.mu.Lock()
		last := r.lastEvent
		r.mu.Unlock()
		if last.IsZero() {
			last = start
		}
		if time.Since(last) >= r.settle {
			break
		}
		time.Sleep(r.settle / 4)
	}

	r.fsw.Close()
	<-r.done

	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]bool, len(r.touched))
	for id := range r.touched {
		out[id] = true
	}
	return out
}

// Track starts a recorder on dir and returns its Stop method.
func (t Tracker) Track(dir string) (func() map[string]bool, error) {
	r, err := t.Start(dir)
	if err != nil {
		return nil, err
	}
	return r.Stop, nil
}
