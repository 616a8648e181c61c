package config

import (
	"fmt"
	"path/filepath"

	"github.com/quarrylabs/quarry/pkg/dotdir"
)

// ResolveStorePaths anchors relative store paths in the resolved .quarry/
// directory. Commands call this before constructing drivers so the same
// configuration opens the same stores no matter which directory a command
// runs from. Absolute paths are left untouched.
func ResolveStorePaths(cfg *Config, configDir string) error {
	ddm := dotdir.NewManager()
	target, err := ddm.Target(configDir)
	if err != nil {
		return fmt.Errorf("resolving quarry directory: %w", err)
	}

	if cfg.Storage.Path != "" && !filepath.IsAbs(cfg.Storage.Path) {
		cfg.Storage.Path = filepath.Join(target, cfg.Storage.Path)
	}
	if cfg.VectorStore.Path != "" && !filepath.IsAbs(cfg.VectorStore.Path) {
		cfg.VectorStore.Path = filepath.Join(target, cfg.VectorStore.Path)
	}

	return nil
}
