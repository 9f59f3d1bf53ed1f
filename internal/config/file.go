// SPDX-License-Identifier: MIT
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// mergeFile overlays values from a YAML file onto cfg. Unknown keys are
// rejected so typos fail loudly at startup instead of being ignored.
func mergeFile(cfg *Config, path string) error {
	path = filepath.Clean(path)
	data, err := os.ReadFile(path) // #nosec G304 -- path comes from the operator's own flag
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}

	dec := yaml.NewDecoder(strings.NewReader(string(data)))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		if errors.Is(err, io.EOF) { // empty file: nothing to merge
			return nil
		}
		if isUnknownFieldError(err) {
			return fmt.Errorf("config: parse %s: %w: %v", path, ErrUnknownConfigField, err)
		}
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	return nil
}

func isUnknownFieldError(err error) bool {
	var typeErr *yaml.TypeError
	if errors.As(err, &typeErr) {
		for _, msg := range typeErr.Errors {
			if strings.Contains(msg, "not found in type") {
				return true
			}
		}
	}
	return strings.Contains(err.Error(), "not found in type")
}
