// Package config loads workflow settings from an optional toil.yaml at the
// repository root, over a complete set of defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// FileName is the optional per-repository config file.
const FileName = "toil.yaml"

// Config is the full set of tunables for one invocation. Every field has a
// usable default; a config file only overrides what it names.
type Config struct {
	// Backup settings.
	Backup BackupConfig `yaml:"backup"`

	// Clean lists artifacts removed by the clean task, relative to the
	// repository root. Globs are allowed in the last path segment.
	Clean []string `yaml:"clean"`

	// Tools holds the external argv for each delegated concern.
	Tools ToolsConfig `yaml:"tools"`

	// IntegrationSubsets are the named integration-test subsets, in the
	// order the aggregate integration task runs them.
	IntegrationSubsets []string `yaml:"integration_subsets"`

	// Docs settings for watch-docs.
	Docs DocsConfig `yaml:"docs"`

	// LogLevel is debug, info, warn or error.
	LogLevel string `yaml:"log_level"`

	// LogFile, when set, receives JSON log records alongside stderr.
	LogFile string `yaml:"log_file"`
}

type BackupConfig struct {
	// ExcludePatterns filter the archive walk.
	ExcludePatterns []string `yaml:"exclude_patterns"`

	// DestinationDir receives finished archives, relative to the root.
	DestinationDir string `yaml:"destination_dir"`
}

type ToolsConfig struct {
	Test        []string `yaml:"test"`
	TypeCheck   []string `yaml:"type_check"`
	Format      []string `yaml:"format"`
	Coverage    []string `yaml:"coverage"`
	Build       []string `yaml:"build"`
	Publish     []string `yaml:"publish"`
	DocsBuild   []string `yaml:"docs_build"`
	Integration []string `yaml:"integration"` // prefix; subset path appended
}

type DocsConfig struct {
	// SiteDir is the docs build output served by watch-docs.
	SiteDir string `yaml:"site_dir"`

	// SourceDir is watched for changes to trigger rebuild + reload.
	SourceDir string `yaml:"source_dir"`

	// Addr is the listen address of the live-reload server.
	Addr string `yaml:"addr"`
}

// Default returns the builtin configuration, mirroring the workflow the
// tool grew up around: pytest, mypy, pre-commit, build/twine, mkdocs.
func Default() Config {
	return Config{
		Backup: BackupConfig{
			ExcludePatterns: []string{"*.pkl", "*.tar.gz", "*.db", "*.csv", "./.*", "node_modules", "__pycache__"},
			DestinationDir:  ".backups",
		},
		Clean: []string{".coverage", "htmlcov", "coverage.json", "dist", ".mypy_cache", ".pytest_cache", "*.db"},
		Tools: ToolsConfig{
			Test:        []string{"pytest", "-x", "tests"},
			TypeCheck:   []string{"mypy", "edsl"},
			Format:      []string{"pre-commit", "run", "--all-files"},
			Coverage:    []string{"pytest", "--cov=edsl", "--cov-report=html", "--cov-report=json", "tests"},
			Build:       []string{"python", "-m", "build"},
			Publish:     []string{"twine", "upload", "--repository", "testpypi", "dist/*"},
			DocsBuild:   []string{"mkdocs", "build"},
			Integration: []string{"pytest"},
		},
		IntegrationSubsets: []string{"memory", "jobs", "runners", "questions", "models"},
		Docs: DocsConfig{
			SiteDir:   "site",
			SourceDir: "docs",
			Addr:      "127.0.0.1:8000",
		},
		LogLevel: "info",
	}
}

// Load reads root/toil.yaml over the defaults. A missing file is not an
// error; a malformed one is.
func Load(root string) (Config, error) {
	cfg := Default()

	path := filepath.Join(root, FileName)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing %s: %w", path, err)
	}
	return cfg, nil
}
