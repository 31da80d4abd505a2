// Package project locates and decodes quill.toml, the project manifest.
package project

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// ManifestName is the manifest file the walk-up looks for.
const ManifestName = "quill.toml"

// Manifest is a located, decoded project manifest.
type Manifest struct {
	Path   string
	Root   string
	Config Config
}

// Config mirrors quill.toml.
type Config struct {
	Package PackageConfig `toml:"package"`
	Build   BuildConfig   `toml:"build"`
	Run     RunConfig     `toml:"run"`
}

type PackageConfig struct {
	Name string `toml:"name"`
}

// BuildConfig tunes the compilation driver.
type BuildConfig struct {
	// Jobs is the worker count; 0 means one per CPU.
	Jobs int `toml:"jobs"`
	// Target is the layout target triple.
	Target string `toml:"target"`
	// MaxDiagnostics caps diagnostic output.
	MaxDiagnostics int `toml:"max_diagnostics"`
	// Cache enables the on-disk artifact cache.
	Cache bool `toml:"cache"`
}

type RunConfig struct {
	// Main is the entry function name. Defaults to "main".
	Main string `toml:"main"`
	// Program is the compiled-program input path, relative to the root.
	Program string `toml:"program"`
}

// FindManifest walks up from startDir until it finds quill.toml.
func FindManifest(startDir string) (path string, ok bool, err error) {
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

// FindRoot returns the directory containing quill.toml, if any.
func FindRoot(startDir string) (root string, ok bool, err error) {
	manifestPath, ok, err := FindManifest(startDir)
	if err != nil || !ok {
		return "", ok, err
	}
	return filepath.Dir(manifestPath), true, nil
}

// Load locates and decodes the manifest governing startDir.
func Load(startDir string) (*Manifest, bool, error) {
	manifestPath, ok, err := FindManifest(startDir)
	if err != nil || !ok {
		return nil, ok, err
	}
	var cfg Config
	meta, err := toml.DecodeFile(manifestPath, &cfg)
	if err != nil {
		return nil, true, fmt.Errorf("failed to parse %s: %w", manifestPath, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, true, fmt.Errorf("%s: unknown key %q", manifestPath, undecoded[0].String())
	}
	if cfg.Run.Main == "" {
		cfg.Run.Main = "main"
	}
	return &Manifest{
		Path:   manifestPath,
		Root:   filepath.Dir(manifestPath),
		Config: cfg,
	}, true, nil
}
