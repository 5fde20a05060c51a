// Package config provides the configuration loader for modbridge.
package config

import (
	"bytes"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"go.trai.ch/modbridge/internal/core/domain"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

// Loader implements ports.ConfigLoader using a YAML file.
type Loader struct{}

// NewLoader creates a new Loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load discovers modbridge.yaml walking up from cwd and returns the resolved
// configuration. A missing file yields defaults rooted at cwd.
func (l *Loader) Load(cwd string) (*domain.Config, error) {
	absCwd, err := filepath.Abs(cwd)
	if err != nil {
		return nil, zerr.Wrap(err, domain.ErrConfigReadFailed.Error())
	}

	configPath, found := findConfig(absCwd)
	if !found {
		return defaults(absCwd), nil
	}

	//nolint:gosec // path was discovered under the caller's directory tree
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, zerr.Wrap(err, domain.ErrConfigReadFailed.Error())
	}

	var dto fileDTO
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&dto); err != nil {
		parseErr := zerr.Wrap(err, domain.ErrConfigParseFailed.Error())
		return nil, zerr.With(parseErr, "path", configPath)
	}

	cfg := resolve(dto, filepath.Dir(configPath))
	if err := cfg.Validate(); err != nil {
		return nil, zerr.With(err, "path", configPath)
	}
	return cfg, nil
}

// findConfig walks up from dir looking for modbridge.yaml.
func findConfig(dir string) (string, bool) {
	for {
		candidate := filepath.Join(dir, domain.ConfigFileName)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, true
		} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return "", false
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}

func defaults(root string) *domain.Config {
	return &domain.Config{
		Tool:       domain.DefaultTool,
		WorkingDir: root,
		CacheDir:   filepath.Join(root, domain.DefaultCachePath()),
	}
}

// resolve fills defaults and anchors relative paths at the config file's
// directory.
func resolve(dto fileDTO, configDir string) *domain.Config {
	cfg := defaults(configDir)

	if dto.Tool != "" {
		cfg.Tool = dto.Tool
	}
	if dto.WorkingDir != "" {
		cfg.WorkingDir = anchor(dto.WorkingDir, configDir)
		cfg.CacheDir = filepath.Join(cfg.WorkingDir, domain.DefaultCachePath())
	}
	if dto.CacheDir != "" {
		cfg.CacheDir = anchor(dto.CacheDir, configDir)
	}
	return cfg
}

func anchor(path, base string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(base, path)
}
