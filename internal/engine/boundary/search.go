// Package boundary locates the directories that delimit projects and
// virtual modules by walking a path upward toward a bound.
package boundary

import (
	"iter"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// AllowFunc reports whether dir may be returned as a match. A nil AllowFunc
// allows every directory.
type AllowFunc func(dir string) bool

// AllowSet returns an AllowFunc that admits exactly the given directories.
// It returns nil for an empty set so callers fall back to "everything counts".
func AllowSet(dirs []string) AllowFunc {
	if len(dirs) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(dirs))
	for _, dir := range dirs {
		set[filepath.Clean(dir)] = struct{}{}
	}
	return func(dir string) bool {
		_, ok := set[dir]
		return ok
	}
}

// Ancestors yields startDir and then each parent directory, stopping before
// the first directory that is not inside rootBound. rootBound itself is
// yielded when reached. The sequence is finite and may be ranged repeatedly.
func Ancestors(startDir, rootBound string) iter.Seq[string] {
	dir := filepath.Clean(startDir)
	bound := filepath.Clean(rootBound)
	return func(yield func(string) bool) {
		current := dir
		for WithinBound(current, bound) {
			if !yield(current) {
				return
			}
			parent := filepath.Dir(current)
			if parent == current {
				return
			}
			current = parent
		}
	}
}

// WithinBound reports whether dir equals bound or lies below it.
func WithinBound(dir, bound string) bool {
	if dir == bound {
		return true
	}
	if strings.HasSuffix(bound, string(filepath.Separator)) {
		return strings.HasPrefix(dir, bound)
	}
	return strings.HasPrefix(dir, bound+string(filepath.Separator))
}

// Searcher runs read-only marker lookups against a filesystem.
type Searcher struct {
	fs afero.Fs
}

func NewSearcher(fs afero.Fs) *Searcher {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &Searcher{fs: fs}
}

// Find returns the closest directory at or above startDir that contains one
// of markers and passes allow, never leaving rootBound.
func (s *Searcher) Find(startDir string, markers []string, rootBound string, allow AllowFunc) (string, bool) {
	for dir := range Ancestors(absolute(startDir), absolute(rootBound)) {
		if !s.hasMarker(dir, markers) {
			continue
		}
		if allow != nil && !allow(dir) {
			continue
		}
		return dir, true
	}
	return "", false
}

func (s *Searcher) hasMarker(dir string, markers []string) bool {
	for _, marker := range markers {
		if s.exists(filepath.Join(dir, marker)) {
			return true
		}
	}
	return false
}

// exists treats every stat failure as absence; a file path used as a
// directory yields ENOTDIR rather than ENOENT.
func (s *Searcher) exists(path string) bool {
	_, err := s.fs.Stat(path)
	return err == nil
}

// FS exposes the filesystem the searcher reads from.
func (s *Searcher) FS() afero.Fs {
	return s.fs
}

func absolute(p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return filepath.Clean(p)
}

// FilesystemRoot returns the root directory of the volume holding path.
func FilesystemRoot(path string) string {
	return filepath.VolumeName(absolute(path)) + string(filepath.Separator)
}
