package resolver

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"
)

const maxExtendsDepth = 8

type tsconfigFile struct {
	Extends         string `json:"extends"`
	CompilerOptions struct {
		BaseURL *string             `json:"baseUrl"`
		Paths   map[string][]string `json:"paths"`
	} `json:"compilerOptions"`
}

// CompilerPaths is the module resolution subset of a tsconfig.json. BaseURL
// is absolute; Paths targets are relative to PathsBase.
type CompilerPaths struct {
	BaseURL   string
	PathsBase string
	Paths     map[string][]string
}

// LoadTSConfig reads baseUrl and paths from a tsconfig.json, following
// relative "extends" chains. Comments and trailing commas are accepted.
func LoadTSConfig(fs afero.Fs, path string) (CompilerPaths, error) {
	return loadTSConfig(fs, path, 0)
}

func loadTSConfig(fs afero.Fs, path string, depth int) (CompilerPaths, error) {
	if depth > maxExtendsDepth {
		return CompilerPaths{}, fmt.Errorf("tsconfig extends chain too deep at %s", path)
	}
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return CompilerPaths{}, fmt.Errorf("read tsconfig %s: %w", path, err)
	}

	var raw tsconfigFile
	if err := json.Unmarshal(standardizeJSONC(data), &raw); err != nil {
		return CompilerPaths{}, fmt.Errorf("parse tsconfig %s: %w", path, err)
	}

	dir := filepath.Dir(path)
	var out CompilerPaths
	if raw.Extends != "" && (strings.HasPrefix(raw.Extends, ".") || filepath.IsAbs(raw.Extends)) {
		parentPath := raw.Extends
		if !filepath.IsAbs(parentPath) {
			parentPath = filepath.Join(dir, parentPath)
		}
		if filepath.Ext(parentPath) == "" {
			parentPath += ".json"
		}
		out, err = loadTSConfig(fs, parentPath, depth+1)
		if err != nil {
			return CompilerPaths{}, err
		}
	}

	if raw.CompilerOptions.BaseURL != nil {
		out.BaseURL = filepath.Join(dir, *raw.CompilerOptions.BaseURL)
	}
	if raw.CompilerOptions.Paths != nil {
		out.Paths = raw.CompilerOptions.Paths
		out.PathsBase = dir
	}
	if out.Paths != nil && out.BaseURL != "" {
		out.PathsBase = out.BaseURL
	}
	return out, nil
}

// pathAlias is one compiled "paths" entry. Pattern holds at most one "*".
type pathAlias struct {
	prefix   string
	suffix   string
	wildcard bool
	targets  []string
}

func compileAliases(paths map[string][]string) []pathAlias {
	aliases := make([]pathAlias, 0, len(paths))
	for pattern, targets := range paths {
		alias := pathAlias{targets: targets}
		if before, after, ok := strings.Cut(pattern, "*"); ok {
			alias.prefix, alias.suffix, alias.wildcard = before, after, true
		} else {
			alias.prefix = pattern
		}
		aliases = append(aliases, alias)
	}
	// Exact patterns first, then the longest prefix.
	sort.Slice(aliases, func(i, j int) bool {
		if aliases[i].wildcard != aliases[j].wildcard {
			return !aliases[i].wildcard
		}
		if len(aliases[i].prefix) != len(aliases[j].prefix) {
			return len(aliases[i].prefix) > len(aliases[j].prefix)
		}
		return aliases[i].prefix < aliases[j].prefix
	})
	return aliases
}

// match returns the substituted targets when specifier fits the pattern.
func (a pathAlias) match(specifier string) ([]string, bool) {
	if !a.wildcard {
		if specifier != a.prefix {
			return nil, false
		}
		return a.targets, true
	}
	if len(specifier) < len(a.prefix)+len(a.suffix) ||
		!strings.HasPrefix(specifier, a.prefix) ||
		!strings.HasSuffix(specifier, a.suffix) {
		return nil, false
	}
	star := specifier[len(a.prefix) : len(specifier)-len(a.suffix)]
	out := make([]string, 0, len(a.targets))
	for _, target := range a.targets {
		out = append(out, strings.Replace(target, "*", star, 1))
	}
	return out, true
}

// standardizeJSONC drops // and /* */ comments and trailing commas so the
// result decodes with encoding/json.
func standardizeJSONC(in []byte) []byte {
	out := make([]byte, 0, len(in))
	inString := false
	for i := 0; i < len(in); i++ {
		c := in[i]
		if inString {
			out = append(out, c)
			if c == '\\' && i+1 < len(in) {
				i++
				out = append(out, in[i])
			} else if c == '"' {
				inString = false
			}
			continue
		}
		switch {
		case c == '"':
			inString = true
			out = append(out, c)
		case c == '/' && i+1 < len(in) && in[i+1] == '/':
			for i < len(in) && in[i] != '\n' {
				i++
			}
			if i < len(in) {
				out = append(out, '\n')
			}
		case c == '/' && i+1 < len(in) && in[i+1] == '*':
			i += 2
			for i+1 < len(in) && !(in[i] == '*' && in[i+1] == '/') {
				i++
			}
			i++
		case c == ']' || c == '}':
			out = trimTrailingComma(out)
			out = append(out, c)
		default:
			out = append(out, c)
		}
	}
	return out
}

func trimTrailingComma(out []byte) []byte {
	j := len(out) - 1
	for j >= 0 && (out[j] == ' ' || out[j] == '\t' || out[j] == '\n' || out[j] == '\r') {
		j--
	}
	if j >= 0 && out[j] == ',' {
		return append(out[:j], out[j+1:]...)
	}
	return out
}
