package watcher

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
	"virtualmod/internal/shared/observability"
	"virtualmod/internal/shared/util"

	"github.com/fsnotify/fsnotify"
	"github.com/gobwas/glob"
)

// Watcher batches filesystem events under the watched roots and hands the
// changed paths to onChange once the tree has been quiet for the debounce
// interval. Batches are additionally rate limited.
type Watcher struct {
	fsWatcher    *fsnotify.Watcher
	debounce     time.Duration
	excludeDirs  []glob.Glob
	excludeFiles []glob.Glob
	extFilters   map[string]bool
	nameFilters  map[string]bool
	testSuffixes []string
	onChange     func([]string)
	callbackMu   sync.Mutex
	limiter      *util.Limiter

	pending   map[string]time.Time
	pendingMu sync.Mutex
	timer     *time.Timer

	ctx    context.Context
	cancel context.CancelFunc
}

var (
	defaultExtensions = []string{".ts", ".tsx", ".mts", ".cts", ".js", ".jsx", ".mjs", ".cjs"}
	defaultFilenames  = []string{"package.json", "tsconfig.json"}
)

func NewWatcher(debounce time.Duration, excludeDirs, excludeFiles []string, onChange func([]string)) (*Watcher, error) {
	if onChange == nil {
		return nil, os.ErrInvalid
	}

	compiledDirs, err := compileAll(excludeDirs)
	if err != nil {
		return nil, err
	}
	compiledFiles, err := compileAll(excludeFiles)
	if err != nil {
		return nil, err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Watcher{
		fsWatcher:    fsw,
		debounce:     debounce,
		excludeDirs:  compiledDirs,
		excludeFiles: compiledFiles,
		onChange:     onChange,
		limiter:      util.NewLimiter(0, 1),
		pending:      make(map[string]time.Time),
		extFilters:   lowerSet(defaultExtensions),
		nameFilters:  lowerSet(defaultFilenames),
		testSuffixes: []string{".test.ts", ".spec.ts"},
		ctx:          ctx,
		cancel:       cancel,
	}, nil
}

func compileAll(patterns []string) ([]glob.Glob, error) {
	out := make([]glob.Glob, 0, len(patterns))
	for _, pattern := range patterns {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, nil
}

// SetLanguageFilters replaces the extension, exact file-name and test-suffix
// filters. File names route non-source inputs such as package.json.
func (w *Watcher) SetLanguageFilters(extensions, filenames, testSuffixes []string) {
	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()

	w.extFilters = lowerSet(extensions)
	w.nameFilters = lowerSet(filenames)
	suffixes := make([]string, 0, len(testSuffixes))
	for _, suffix := range testSuffixes {
		if normalized := strings.ToLower(strings.TrimSpace(suffix)); normalized != "" {
			suffixes = append(suffixes, normalized)
		}
	}
	w.testSuffixes = suffixes
}

func lowerSet(values []string) map[string]bool {
	out := make(map[string]bool, len(values))
	for _, v := range values {
		if normalized := strings.ToLower(strings.TrimSpace(v)); normalized != "" {
			out[normalized] = true
		}
	}
	return out
}

func (w *Watcher) SetDebounce(debounce time.Duration) {
	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()
	w.debounce = debounce
}

// SetRateLimit caps change batches per second. Zero or less disables the cap.
func (w *Watcher) SetRateLimit(perSecond float64) {
	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()
	w.limiter = util.NewLimiter(perSecond, 1)
}

func (w *Watcher) Watch(paths []string) error {
	for _, path := range paths {
		if err := w.watchRecursive(path); err != nil {
			return err
		}
	}

	go w.run()
	return nil
}

func (w *Watcher) watchRecursive(root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if info.IsDir() {
			if path != root && w.shouldExcludeDir(path) {
				return filepath.SkipDir
			}
			return w.fsWatcher.Add(path)
		}

		return nil
	})
}

func (w *Watcher) run() {
	for {
		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			observability.WatcherEventsTotal.Inc()

			if event.Has(fsnotify.Create) {
				info, err := os.Stat(event.Name)
				if err == nil && info.IsDir() {
					if !w.shouldExcludeDir(event.Name) {
						if err := w.watchRecursive(event.Name); err != nil {
							slog.Warn("failed to watch new directory", "path", event.Name, "error", err)
						} else {
							w.enqueueExistingFiles(event.Name)
						}
					}
					continue
				}
			}

			if w.shouldExcludeFile(event.Name) {
				continue
			}

			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) ||
				event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				w.scheduleChange(event.Name)
			}

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			slog.Error("watcher error", "error", err)

		case <-w.ctx.Done():
			return
		}
	}
}

func (w *Watcher) scheduleChange(path string) {
	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()

	w.pending[path] = time.Now()

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.flushChanges)
}

func (w *Watcher) flushChanges() {
	w.callbackMu.Lock()
	defer w.callbackMu.Unlock()

	w.pendingMu.Lock()
	limiter := w.limiter
	w.pendingMu.Unlock()

	throttled, err := limiter.Take(w.ctx)
	if err != nil {
		return
	}
	if throttled {
		observability.WatchRunsThrottledTotal.Inc()
	}

	// Events that arrived while waiting join this batch.
	w.pendingMu.Lock()
	paths := make([]string, 0, len(w.pending))
	for path := range w.pending {
		paths = append(paths, path)
	}
	w.pending = make(map[string]time.Time)
	w.pendingMu.Unlock()

	if len(paths) > 0 {
		sort.Strings(paths)
		w.onChange(paths)
	}
}

func (w *Watcher) shouldExcludeDir(path string) bool {
	base := filepath.Base(path)
	for _, g := range w.excludeDirs {
		if g.Match(base) {
			return true
		}
	}
	return false
}

func (w *Watcher) shouldExcludeFile(path string) bool {
	base := strings.ToLower(filepath.Base(path))

	w.pendingMu.Lock()
	extFilters, nameFilters, testSuffixes := w.extFilters, w.nameFilters, w.testSuffixes
	w.pendingMu.Unlock()

	if nameFilters[base] {
		return false
	}
	for _, suffix := range testSuffixes {
		if strings.HasSuffix(base, suffix) {
			return true
		}
	}
	if len(extFilters) > 0 && !extFilters[strings.ToLower(filepath.Ext(base))] {
		return true
	}

	for _, g := range w.excludeFiles {
		if g.Match(base) {
			return true
		}
	}
	return false
}

func (w *Watcher) Close() error {
	w.cancel()
	w.pendingMu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.pendingMu.Unlock()
	return w.fsWatcher.Close()
}

func (w *Watcher) enqueueExistingFiles(root string) {
	_ = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil || info == nil {
			return nil
		}
		if info.IsDir() {
			if path != root && w.shouldExcludeDir(path) {
				return filepath.SkipDir
			}
			return nil
		}
		if w.shouldExcludeFile(path) {
			return nil
		}
		w.scheduleChange(path)
		return nil
	})
}
