package parser

import (
	"fmt"
	"sort"
	"strings"
)

type LanguageSpec struct {
	Name             string
	Extensions       []string
	TestFileSuffixes []string
	Enabled          bool
}

type LanguageOverride struct {
	Enabled    *bool
	Extensions []string
}

func DefaultLanguageRegistry() map[string]LanguageSpec {
	return map[string]LanguageSpec{
		"javascript": {
			Name:             "javascript",
			Extensions:       []string{".js", ".jsx", ".mjs", ".cjs"},
			TestFileSuffixes: []string{".test.js", ".spec.js", ".test.jsx", ".spec.jsx"},
			Enabled:          true,
		},
		"tsx": {
			Name:             "tsx",
			Extensions:       []string{".tsx"},
			TestFileSuffixes: []string{".test.tsx", ".spec.tsx"},
			Enabled:          true,
		},
		"typescript": {
			Name:             "typescript",
			Extensions:       []string{".ts", ".mts", ".cts"},
			TestFileSuffixes: []string{".test.ts", ".spec.ts"},
			Enabled:          true,
		},
	}
}

func BuildLanguageRegistry(overrides map[string]LanguageOverride) (map[string]LanguageSpec, error) {
	registry := cloneLanguageRegistry(DefaultLanguageRegistry())
	for language, override := range overrides {
		spec, ok := registry[language]
		if !ok {
			return nil, fmt.Errorf("unknown language override %q", language)
		}
		if override.Enabled != nil {
			spec.Enabled = *override.Enabled
		}
		if len(override.Extensions) > 0 {
			spec.Extensions = normalizeExtensions(override.Extensions)
		}
		registry[language] = spec
	}

	owner := make(map[string]string)
	for _, language := range sortedLanguages(registry) {
		spec := registry[language]
		if !spec.Enabled {
			continue
		}
		for _, ext := range spec.Extensions {
			if prev, ok := owner[ext]; ok {
				return nil, fmt.Errorf("extension %q claimed by both %s and %s", ext, prev, language)
			}
			owner[ext] = language
		}
	}
	return registry, nil
}

func cloneLanguageRegistry(in map[string]LanguageSpec) map[string]LanguageSpec {
	out := make(map[string]LanguageSpec, len(in))
	for k, v := range in {
		v.Extensions = append([]string(nil), v.Extensions...)
		v.TestFileSuffixes = append([]string(nil), v.TestFileSuffixes...)
		out[k] = v
	}
	return out
}

func normalizeExtensions(exts []string) []string {
	out := make([]string, 0, len(exts))
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		out = append(out, ext)
	}
	return out
}

func sortedLanguages(registry map[string]LanguageSpec) []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
