package ir

import (
	"fmt"
	"os"
	"path/filepath"
)

// Load reads and parses an IR document from disk.
func Load(path string) (*Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("ir: read %s: %w", path, err)
	}
	spec, err := ParseYAML(data)
	if err != nil {
		return nil, fmt.Errorf("ir: parse %s: %w", path, err)
	}
	return spec, nil
}

// Save writes the canonical encoding of spec to path, creating parent
// directories as needed.
func Save(spec *Spec, path string) error {
	data, err := EncodeYAML(spec)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("ir: mkdir %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("ir: write %s: %w", path, err)
	}
	return nil
}

// DefaultOutputPath implements the filesystem layout default of
// spec.md §6: "<out>/output/<name>.ir.yaml".
func DefaultOutputPath(outRoot, specName string) string {
	return filepath.Join(outRoot, "output", specName+".ir.yaml")
}
