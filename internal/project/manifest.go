// Package project locates and loads the ember.toml manifest and the
// optional rules.yaml severity overrides of an analysis target.
package project

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// ManifestName is the file the project root is identified by.
const ManifestName = "ember.toml"

// Manifest is a located, parsed project manifest.
type Manifest struct {
	Path   string
	Root   string
	Config Config
}

// Config mirrors the manifest layout.
type Config struct {
	Package  PackageConfig  `toml:"package"`
	Analysis AnalysisConfig `toml:"analysis"`
}

type PackageConfig struct {
	Name string `toml:"name"`
}

// AnalysisConfig configures the analysis run. BundleDir is where the
// front end drops its unit bundles, relative to the project root.
type AnalysisConfig struct {
	BundleDir      string `toml:"bundle_dir"`
	MaxDiagnostics int    `toml:"max_diagnostics"`
	Rules          string `toml:"rules"`
}

// Find walks from startDir upwards until it sees an ember.toml.
func Find(startDir string) (string, bool, error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, ManifestName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// Load locates a manifest from startDir and parses it. The second
// return value is false when no manifest exists on the path upwards.
func Load(startDir string) (*Manifest, bool, error) {
	path, ok, err := Find(startDir)
	if err != nil || !ok {
		return nil, ok, err
	}
	cfg, err := parse(path)
	if err != nil {
		return nil, true, err
	}
	return &Manifest{
		Path:   path,
		Root:   filepath.Dir(path),
		Config: cfg,
	}, true, nil
}

func parse(path string) (Config, error) {
	var cfg Config
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if !meta.IsDefined("package") {
		return Config{}, fmt.Errorf("%s: missing [package]", path)
	}
	if !meta.IsDefined("package", "name") || strings.TrimSpace(cfg.Package.Name) == "" {
		return Config{}, fmt.Errorf("%s: missing [package].name", path)
	}
	if cfg.Analysis.BundleDir == "" {
		cfg.Analysis.BundleDir = "build/ast"
	}
	if cfg.Analysis.MaxDiagnostics <= 0 {
		cfg.Analysis.MaxDiagnostics = 200
	}
	return cfg, nil
}

// BundleDir resolves the configured bundle directory against the root.
func (m *Manifest) BundleDir() string {
	dir := m.Config.Analysis.BundleDir
	if filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(m.Root, dir)
}

// RulesPath resolves the optional rules file; empty when unset.
func (m *Manifest) RulesPath() string {
	r := m.Config.Analysis.Rules
	if r == "" {
		return ""
	}
	if filepath.IsAbs(r) {
		return r
	}
	return filepath.Join(m.Root, r)
}
