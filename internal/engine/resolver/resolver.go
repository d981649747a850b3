// Package resolver maps JavaScript and TypeScript import specifiers to files
// on disk using Node-style lookup rules.
package resolver

import (
	"encoding/json"
	"log/slog"
	"path/filepath"
	"strings"

	"virtualmod/internal/core/errors"
	"virtualmod/internal/engine/boundary"

	"github.com/spf13/afero"
)

var DefaultExtensions = []string{".ts", ".tsx", ".d.ts", ".js", ".jsx", ".mjs", ".cjs"}

// Compiled JavaScript specifiers that TypeScript sources use for their own
// .ts siblings.
var jsToTS = map[string][]string{
	".js":  {".ts", ".tsx"},
	".jsx": {".tsx"},
	".mjs": {".mts"},
	".cjs": {".cts"},
}

type Options struct {
	Extensions []string
	BaseURL    string
	Paths      map[string][]string
	// TSConfig is merged underneath BaseURL and Paths when set.
	TSConfig string
}

// Resolution is the outcome of resolving one specifier. External results
// (core modules, installed packages) carry no project path to classify.
type Resolution struct {
	Path     string
	External bool
}

type Resolver struct {
	fs         afero.Fs
	extensions []string
	baseURL    string
	pathsBase  string
	aliases    []pathAlias
}

func New(fs afero.Fs, opts Options) (*Resolver, error) {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	r := &Resolver{fs: fs, extensions: opts.Extensions}
	if len(r.extensions) == 0 {
		r.extensions = DefaultExtensions
	}

	paths := opts.Paths
	if opts.TSConfig != "" {
		ts, err := LoadTSConfig(fs, opts.TSConfig)
		if err != nil {
			return nil, errors.AddContext(
				errors.Wrap(err, errors.CodeValidationError, "load tsconfig"),
				errors.CtxPath, opts.TSConfig,
			)
		}
		r.baseURL = ts.BaseURL
		r.pathsBase = ts.PathsBase
		if len(paths) == 0 {
			paths = ts.Paths
		}
	}
	if opts.BaseURL != "" {
		r.baseURL = opts.BaseURL
		r.pathsBase = opts.BaseURL
	}
	if r.pathsBase == "" {
		r.pathsBase = r.baseURL
	}
	r.aliases = compileAliases(paths)
	return r, nil
}

// Resolve maps specifier, imported from fromFile, to an absolute path.
// Failure is an UNRESOLVED_IMPORT error.
func (r *Resolver) Resolve(fromFile, specifier string) (Resolution, error) {
	specifier = strings.TrimSpace(specifier)
	fromDir := filepath.Dir(fromFile)

	if specifier != "" {
		if IsBuiltin(specifier) {
			return Resolution{External: true}, nil
		}
		if res, ok := r.resolve(fromDir, specifier); ok {
			return res, nil
		}
	}

	slog.Error("cannot resolve import", "file", fromFile, "import", specifier)
	err := errors.New(errors.CodeUnresolvedImport, "cannot resolve import")
	err = errors.AddContext(err, errors.CtxPath, fromFile)
	return Resolution{}, errors.AddContext(err, errors.CtxSpecifier, specifier)
}

func (r *Resolver) resolve(fromDir, specifier string) (Resolution, bool) {
	if isPathSpecifier(specifier) {
		target := specifier
		if !filepath.IsAbs(target) {
			target = filepath.Join(fromDir, filepath.FromSlash(specifier))
		}
		path, ok := r.resolveFile(target)
		return Resolution{Path: path}, ok
	}

	for _, alias := range r.aliases {
		targets, ok := alias.match(specifier)
		if !ok {
			continue
		}
		for _, target := range targets {
			if path, ok := r.resolveFile(filepath.Join(r.pathsBase, filepath.FromSlash(target))); ok {
				return Resolution{Path: path}, true
			}
		}
		break
	}

	if r.baseURL != "" {
		if path, ok := r.resolveFile(filepath.Join(r.baseURL, filepath.FromSlash(specifier))); ok {
			return Resolution{Path: path}, true
		}
	}

	return r.resolvePackage(fromDir, specifier)
}

func isPathSpecifier(specifier string) bool {
	return specifier == "." || specifier == ".." ||
		strings.HasPrefix(specifier, "./") || strings.HasPrefix(specifier, "../") ||
		filepath.IsAbs(specifier)
}

// resolveFile tries target as a file, with each extension appended, with a
// TypeScript source swapped in for a compiled extension, then as a directory
// holding an index file.
func (r *Resolver) resolveFile(target string) (string, bool) {
	target = filepath.Clean(target)
	if r.isFile(target) {
		return target, true
	}
	for _, ext := range r.extensions {
		if r.isFile(target + ext) {
			return target + ext, true
		}
	}
	ext := filepath.Ext(target)
	if swaps, ok := jsToTS[ext]; ok {
		stem := strings.TrimSuffix(target, ext)
		for _, swap := range swaps {
			if r.isFile(stem + swap) {
				return stem + swap, true
			}
		}
	}
	if r.isDir(target) {
		for _, ext := range r.extensions {
			index := filepath.Join(target, "index"+ext)
			if r.isFile(index) {
				return index, true
			}
		}
	}
	return "", false
}

// resolvePackage looks for the package in node_modules directories from
// fromDir up to the filesystem root.
func (r *Resolver) resolvePackage(fromDir, specifier string) (Resolution, bool) {
	name, subpath := splitPackageSpecifier(specifier)
	if name == "" {
		return Resolution{}, false
	}

	for dir := range boundary.Ancestors(fromDir, boundary.FilesystemRoot(fromDir)) {
		pkgDir := filepath.Join(dir, "node_modules", filepath.FromSlash(name))
		if !r.isDir(pkgDir) {
			continue
		}
		var path string
		var ok bool
		if subpath != "" {
			path, ok = r.resolveFile(filepath.Join(pkgDir, filepath.FromSlash(subpath)))
		} else {
			path, ok = r.packageEntry(pkgDir)
		}
		// A shadowing package without the file falls through to outer node_modules.
		if ok {
			return Resolution{Path: path, External: true}, true
		}
	}
	return Resolution{}, false
}

func (r *Resolver) packageEntry(pkgDir string) (string, bool) {
	var manifest struct {
		Types   string `json:"types"`
		Typings string `json:"typings"`
		Module  string `json:"module"`
		Main    string `json:"main"`
	}
	if data, err := afero.ReadFile(r.fs, filepath.Join(pkgDir, "package.json")); err == nil {
		if err := json.Unmarshal(data, &manifest); err != nil {
			slog.Debug("ignoring malformed package manifest", "dir", pkgDir, "error", err)
		}
	}
	for _, entry := range []string{manifest.Types, manifest.Typings, manifest.Module, manifest.Main} {
		if entry == "" {
			continue
		}
		if path, ok := r.resolveFile(filepath.Join(pkgDir, filepath.FromSlash(entry))); ok {
			return path, true
		}
	}
	return r.resolveFile(pkgDir)
}

// splitPackageSpecifier splits "@scope/pkg/sub/path" into ("@scope/pkg", "sub/path").
func splitPackageSpecifier(specifier string) (string, string) {
	parts := strings.SplitN(specifier, "/", 3)
	if strings.HasPrefix(specifier, "@") {
		if len(parts) < 2 || parts[1] == "" {
			return "", ""
		}
		name := parts[0] + "/" + parts[1]
		if len(parts) == 3 {
			return name, parts[2]
		}
		return name, ""
	}
	name := parts[0]
	if len(parts) > 1 {
		return name, strings.Join(parts[1:], "/")
	}
	return name, ""
}

func (r *Resolver) isFile(path string) bool {
	info, err := r.fs.Stat(path)
	return err == nil && !info.IsDir()
}

func (r *Resolver) isDir(path string) bool {
	info, err := r.fs.Stat(path)
	return err == nil && info.IsDir()
}
