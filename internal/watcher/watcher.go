// Package watcher feeds repository filesystem changes into the panel's
// debouncer using fsnotify.
package watcher

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/chmouel/lazypanel/internal/log"
)

// Watcher observes a repository worktree and the interesting parts of its
// .git directory. Every surviving event invokes notify; coalescing is the
// debouncer's job, not ours.
type Watcher struct {
	root   string
	gitDir string
	notify func()

	mu      sync.Mutex
	watcher *fsnotify.Watcher
	paths   map[string]struct{}
	done    chan struct{}
	started bool
}

// New creates a watcher for the worktree rooted at root with the given
// .git directory.
func New(root, gitDir string, notify func()) *Watcher {
	return &Watcher{
		root:   root,
		gitDir: gitDir,
		notify: notify,
	}
}

// Start initialises the fsnotify watcher and begins observing.
func (w *Watcher) Start() error {
	if w.started {
		return nil
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	w.watcher = fsw
	w.paths = make(map[string]struct{})
	w.done = make(chan struct{})
	w.started = true

	w.addTree(w.root, true)
	// Ref updates and index writes are what make the status stale; the
	// object store is noise.
	w.addDir(w.gitDir)
	w.addTree(filepath.Join(w.gitDir, "refs"), false)

	go w.run()
	return nil
}

// Stop shuts the watcher down.
func (w *Watcher) Stop() {
	if !w.started {
		return
	}
	w.started = false
	close(w.done)
	_ = w.watcher.Close()
}

func (w *Watcher) run() {
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if w.ignored(event.Name) {
				continue
			}
			if event.Op&fsnotify.Create != 0 {
				w.maybeWatchNewDir(event.Name)
			}
			w.notify()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("watcher error: %v", err)
		}
	}
}

// ignored filters events that never change user-visible status: lock
// files, the object store and reflogs.
func (w *Watcher) ignored(path string) bool {
	if strings.HasSuffix(path, ".lock") || strings.HasSuffix(path, "~") {
		return true
	}
	if rel, err := filepath.Rel(w.gitDir, path); err == nil && !strings.HasPrefix(rel, "..") {
		switch {
		case strings.HasPrefix(rel, "objects"):
			return true
		case strings.HasPrefix(rel, "logs"):
			return true
		}
	}
	return false
}

func (w *Watcher) maybeWatchNewDir(path string) {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return
	}
	w.addDir(path)
}

func (w *Watcher) addDir(path string) {
	if path == "" {
		return
	}
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if _, ok := w.paths[path]; ok {
		return
	}
	if err := w.watcher.Add(path); err != nil {
		log.Printf("watcher add failed for %s: %v", path, err)
		return
	}
	w.paths[path] = struct{}{}
}

func (w *Watcher) addTree(root string, skipGit bool) {
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if skipGit && d.Name() == ".git" {
			return filepath.SkipDir
		}
		w.addDir(path)
		return nil
	})
}
