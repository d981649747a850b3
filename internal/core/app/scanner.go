package app

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"virtualmod/internal/core/errors"
	"virtualmod/internal/shared/util"

	ignore "github.com/sabhiram/go-gitignore"
	"github.com/spf13/afero"
)

// ScanDirectories walks roots and returns every analyzable source file,
// sorted and without duplicates. A root may also name a single file.
func (a *App) ScanDirectories(roots []string) ([]string, error) {
	seen := make(map[string]bool)
	var files []string

	for _, root := range util.UniqueSorted(roots) {
		info, err := a.fs.Stat(root)
		if err != nil {
			return nil, errors.AddContext(
				errors.Wrap(err, errors.CodeNotFound, "scan root not accessible"),
				errors.CtxPath, root,
			)
		}
		if !info.IsDir() {
			if a.shouldAnalyze(root) && !seen[root] {
				seen[root] = true
				files = append(files, root)
			}
			continue
		}

		matcher := a.gitignoreMatcher(root)
		err = afero.Walk(a.fs, root, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			rel, err := filepath.Rel(root, path)
			if err != nil {
				return err
			}
			rel = util.NormalizePatternPath(rel)

			if info.IsDir() {
				if rel == "" {
					return nil
				}
				if a.excludedDirName(info.Name()) || ignored(matcher, rel, true) {
					return filepath.SkipDir
				}
				return nil
			}

			if ignored(matcher, rel, false) || !a.includeFile(path, rel) {
				return nil
			}
			if !seen[path] {
				seen[path] = true
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	sort.Strings(files)
	return files, nil
}

// shouldAnalyze applies the scan filters to a single absolute path. Only
// directories below the config base are matched against exclude.dirs, and
// the .gitignore is not consulted.
func (a *App) shouldAnalyze(path string) bool {
	rel := util.NormalizePatternPath(path)
	if a.Paths.BaseDir != "" {
		if r, err := filepath.Rel(a.Paths.BaseDir, path); err == nil && !strings.HasPrefix(r, "..") {
			rel = util.NormalizePatternPath(r)
			for _, part := range strings.Split(rel, "/")[:strings.Count(rel, "/")] {
				if a.excludedDirName(part) {
					return false
				}
			}
		}
	}
	return a.includeFile(path, rel)
}

func (a *App) includeFile(path, rel string) bool {
	if !a.codeParser.IsSupportedPath(path) {
		return false
	}
	if !a.Config.Scan.IncludeTests && a.codeParser.IsTestFile(path) {
		return false
	}
	base := filepath.Base(path)
	for _, g := range a.excludeFiles {
		if g.Match(base) || g.Match(rel) {
			return false
		}
	}
	return true
}

func (a *App) excludedDirName(name string) bool {
	for _, g := range a.excludeDirs {
		if g.Match(name) {
			return true
		}
	}
	return false
}

func (a *App) gitignoreMatcher(root string) *ignore.GitIgnore {
	if !a.Config.GitignoreEnabled() {
		return nil
	}
	content, err := afero.ReadFile(a.fs, filepath.Join(root, ".gitignore"))
	if err != nil {
		return nil
	}
	return ignore.CompileIgnoreLines(strings.Split(string(content), "\n")...)
}

func ignored(matcher *ignore.GitIgnore, rel string, dir bool) bool {
	if matcher == nil {
		return false
	}
	if matcher.MatchesPath(rel) {
		return true
	}
	return dir && matcher.MatchesPath(rel+"/")
}
