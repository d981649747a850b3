package resolver

import (
	_ "embed"
	"strings"
)

//go:embed data/builtins.txt
var builtinsData string

var (
	builtins       = map[string]bool{}
	schemeBuiltins = map[string]bool{}
)

func init() {
	for _, line := range strings.Split(builtinsData, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if name, ok := strings.CutPrefix(line, "node:"); ok {
			schemeBuiltins[name] = true
			continue
		}
		builtins[line] = true
	}
}

// IsBuiltin reports whether specifier names a Node.js core module.
func IsBuiltin(specifier string) bool {
	if name, ok := strings.CutPrefix(specifier, "node:"); ok {
		return builtins[name] || schemeBuiltins[name]
	}
	return builtins[specifier]
}
