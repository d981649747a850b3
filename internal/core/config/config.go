package config

import (
	"time"
)

// DefaultFile is the config file looked up in the working directory when
// no --config flag is given.
const DefaultFile = "virtualmod.toml"

type Config struct {
	Version       int                 `toml:"version" validate:"min=1,max=1"`
	Paths         Paths               `toml:"paths"`
	Scan          Scan                `toml:"scan"`
	Exclude       Exclude             `toml:"exclude"`
	Rule          Rule                `toml:"rule"`
	Resolver      Resolver            `toml:"resolver"`
	Languages     map[string]Language `toml:"languages"`
	Output        Output              `toml:"output"`
	Watch         Watch               `toml:"watch"`
	History       History             `toml:"history"`
	Performance   Performance         `toml:"performance"`
	Observability Observability       `toml:"observability"`
}

type Paths struct {
	StateDir string `toml:"state_dir" validate:"required"`
}

type Scan struct {
	Roots        []string `toml:"roots" validate:"min=1,dive,required"`
	IncludeTests bool     `toml:"include_tests"`
}

type Exclude struct {
	Dirs         []string `toml:"dirs"`
	Files        []string `toml:"files"`
	UseGitignore *bool    `toml:"use_gitignore"`
}

// Rule holds the boundary rule options.
type Rule struct {
	// IncludeModules lists barrel files whose directories are the only
	// module roots. Empty means every barrel is a module root.
	IncludeModules []string `toml:"include_modules"`
	BarrelFiles    []string `toml:"barrel_files" validate:"min=1,dive,required"`
	ProjectMarker  string   `toml:"project_marker" validate:"required"`
}

type Resolver struct {
	Extensions []string            `toml:"extensions" validate:"dive,startswith=."`
	BaseURL    string              `toml:"base_url"`
	Paths      map[string][]string `toml:"paths"`
	TSConfig   string              `toml:"tsconfig"`
}

type Language struct {
	Enabled    *bool    `toml:"enabled"`
	Extensions []string `toml:"extensions"`
}

type Output struct {
	Format          string `toml:"format" validate:"oneof=text json sarif"`
	Path            string `toml:"path"`
	FailOnViolation *bool  `toml:"fail_on_violation"`
	Color           string `toml:"color" validate:"oneof=auto always never"`
}

type Watch struct {
	Debounce         time.Duration `toml:"debounce" validate:"gte=0"`
	MaxRunsPerSecond float64       `toml:"max_runs_per_second" validate:"gt=0"`
	ReloadConfig     bool          `toml:"reload_config"`
	// QueueCapacity bounds pending changed paths; overflow forces a full run.
	QueueCapacity int `toml:"queue_capacity" validate:"gte=0"`
}

type History struct {
	Enabled     bool          `toml:"enabled"`
	Path        string        `toml:"path"`
	ProjectKey  string        `toml:"project_key"`
	BusyTimeout time.Duration `toml:"busy_timeout" validate:"gte=0"`
	// Retain caps stored snapshots per project; 0 keeps everything.
	Retain int `toml:"retain" validate:"gte=0"`
}

type Performance struct {
	Workers      int `toml:"workers" validate:"min=1,max=256"`
	CacheEntries int `toml:"cache_entries" validate:"min=1"`
}

type Observability struct {
	Enabled       bool   `toml:"enabled"`
	Address       string `toml:"address" validate:"omitempty,hostname_port"`
	OTLPEndpoint  string `toml:"otlp_endpoint"`
	EnableTracing bool   `toml:"enable_tracing"`
	Insecure      bool   `toml:"insecure"`
}

// GitignoreEnabled reports whether .gitignore files are honored while scanning.
func (c *Config) GitignoreEnabled() bool {
	return c.Exclude.UseGitignore == nil || *c.Exclude.UseGitignore
}

func (c *Config) FailOnViolation() bool {
	return c.Output.FailOnViolation == nil || *c.Output.FailOnViolation
}
