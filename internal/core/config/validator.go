package config

import (
	stderrors "errors"
	"fmt"
	"path/filepath"
	"reflect"
	"strings"

	"virtualmod/internal/core/errors"
	"virtualmod/internal/shared/util"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("toml"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate runs tag validation followed by the cross-field checks.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return errors.Wrap(err, errors.CodeValidationError, describeValidation(err))
	}
	for _, check := range []func(*Config) error{
		validateRule,
		validateResolver,
		validateLanguages,
		validateObservability,
	} {
		if err := check(cfg); err != nil {
			return errors.Wrap(err, errors.CodeValidationError, "invalid config")
		}
	}
	return nil
}

func describeValidation(err error) string {
	var fieldErrs validator.ValidationErrors
	if !stderrors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return "invalid config"
	}
	first := fieldErrs[0]
	// Namespace is "Config.scan.roots[0]"; drop the root type name.
	field := first.Namespace()
	if _, rest, ok := strings.Cut(field, "."); ok {
		field = rest
	}
	if first.Param() != "" {
		return fmt.Sprintf("%s failed %s=%s", field, first.Tag(), first.Param())
	}
	return fmt.Sprintf("%s failed %s", field, first.Tag())
}

func validateRule(cfg *Config) error {
	for _, name := range cfg.Rule.BarrelFiles {
		if util.ContainsPathSeparator(name) {
			return fmt.Errorf("rule.barrel_files entries must be file names, got %q", name)
		}
	}
	if util.ContainsPathSeparator(cfg.Rule.ProjectMarker) {
		return fmt.Errorf("rule.project_marker must be a file name, got %q", cfg.Rule.ProjectMarker)
	}
	for _, path := range cfg.Rule.IncludeModules {
		base := filepath.Base(path)
		if !contains(cfg.Rule.BarrelFiles, base) {
			return fmt.Errorf("rule.include_modules entry %q is not a barrel file (%s)", path, strings.Join(cfg.Rule.BarrelFiles, ", "))
		}
	}
	return nil
}

func validateResolver(cfg *Config) error {
	for pattern, targets := range cfg.Resolver.Paths {
		if strings.Count(pattern, "*") > 1 {
			return fmt.Errorf("resolver.paths pattern %q may contain at most one '*'", pattern)
		}
		if len(targets) == 0 {
			return fmt.Errorf("resolver.paths pattern %q has no targets", pattern)
		}
		for _, target := range targets {
			if strings.Count(target, "*") > 1 {
				return fmt.Errorf("resolver.paths target %q may contain at most one '*'", target)
			}
		}
	}
	return nil
}

var knownLanguages = map[string]bool{"javascript": true, "tsx": true, "typescript": true}

func validateLanguages(cfg *Config) error {
	for name := range cfg.Languages {
		if !knownLanguages[name] {
			return fmt.Errorf("languages.%s is not supported (javascript, tsx, typescript)", name)
		}
	}
	return nil
}

func validateObservability(cfg *Config) error {
	if cfg.Observability.EnableTracing && cfg.Observability.OTLPEndpoint == "" {
		return fmt.Errorf("observability.enable_tracing requires observability.otlp_endpoint")
	}
	return nil
}

func contains(values []string, want string) bool {
	for _, v := range values {
		if v == want {
			return true
		}
	}
	return false
}
