package boundary

import (
	"path/filepath"
	"strings"
	coreerrors "virtualmod/internal/core/errors"

	"github.com/spf13/afero"
)

const (
	DefaultProjectMarker = "package.json"
	DefaultBarrelFile    = "index.ts"
)

type Options struct {
	// ProjectMarker names the manifest that marks a project root.
	ProjectMarker string
	// BarrelFiles are the file names that mark a virtual module root.
	BarrelFiles []string
	// IncludeModules lists absolute barrel file paths. When non-empty only
	// their directories count as module roots.
	IncludeModules []string
}

// Resolver answers project-root and module-root questions for one
// configuration. It is safe for concurrent use.
type Resolver struct {
	search        *Searcher
	projectMarker string
	barrels       []string
	allow         AllowFunc
	cache         *Cache
}

func NewResolver(fs afero.Fs, opts Options) *Resolver {
	marker := strings.TrimSpace(opts.ProjectMarker)
	if marker == "" {
		marker = DefaultProjectMarker
	}
	barrels := make([]string, 0, len(opts.BarrelFiles))
	for _, name := range opts.BarrelFiles {
		name = strings.TrimSpace(name)
		if name != "" {
			barrels = append(barrels, name)
		}
	}
	if len(barrels) == 0 {
		barrels = []string{DefaultBarrelFile}
	}
	return &Resolver{
		search:        NewSearcher(fs),
		projectMarker: marker,
		barrels:       barrels,
		allow:         AllowSet(ModuleDirs(opts.IncludeModules)),
	}
}

// ModuleDirs maps barrel file paths to the directories that contain them.
func ModuleDirs(barrelPaths []string) []string {
	if len(barrelPaths) == 0 {
		return nil
	}
	dirs := make([]string, 0, len(barrelPaths))
	for _, p := range barrelPaths {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		dirs = append(dirs, filepath.Dir(absolute(p)))
	}
	return dirs
}

// WithCache returns a copy of r that memoizes lookups in c. A nil c disables
// memoization.
func (r *Resolver) WithCache(c *Cache) *Resolver {
	clone := *r
	clone.cache = c
	return &clone
}

// ProjectRoot finds the nearest directory at or above startDir holding the
// project marker. The allow-list never applies here.
func (r *Resolver) ProjectRoot(startDir string) (string, error) {
	start := absolute(startDir)
	if dir, ok, hit := r.cache.lookup(kindProject, start, ""); hit {
		return projectResult(dir, ok, start)
	}
	dir, ok := r.search.Find(start, []string{r.projectMarker}, FilesystemRoot(start), nil)
	r.cache.store(kindProject, start, "", dir, ok)
	return projectResult(dir, ok, start)
}

func projectResult(dir string, ok bool, start string) (string, error) {
	if !ok {
		err := coreerrors.New(coreerrors.CodeEnvironment, "project root could not be found")
		return "", coreerrors.AddContext(err, coreerrors.CtxPath, start)
	}
	return dir, nil
}

// ModuleRoot finds the nearest virtual module root at or above startDir
// without leaving projectRoot. ok is false when startDir belongs to no
// virtual module.
func (r *Resolver) ModuleRoot(startDir, projectRoot string) (string, bool) {
	start := absolute(startDir)
	bound := absolute(projectRoot)
	if dir, ok, hit := r.cache.lookup(kindModule, start, bound); hit {
		return dir, ok
	}
	dir, ok := r.search.Find(start, r.barrels, bound, r.allow)
	r.cache.store(kindModule, start, bound, dir, ok)
	return dir, ok
}

// IsBarrel reports whether path names a barrel file.
func (r *Resolver) IsBarrel(path string) bool {
	base := filepath.Base(path)
	for _, name := range r.barrels {
		if base == name {
			return true
		}
	}
	return false
}

func (r *Resolver) BarrelFiles() []string {
	out := make([]string, len(r.barrels))
	copy(out, r.barrels)
	return out
}

func (r *Resolver) ProjectMarker() string {
	return r.projectMarker
}
