// Package configutil reads json5 configuration files with optional local overrides.
package configutil

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"dario.cat/mergo"
	"github.com/titanous/json5"
)

// LocalPath returns the override file that sits next to name, "config.json5"
// becomes "config.local.json5".
func LocalPath(name string) string {
	ext := filepath.Ext(name)
	return fmt.Sprintf("%s.local%s", strings.TrimSuffix(name, ext), ext)
}

func readInto[T any](path string, out *T) (bool, error) {
	buf, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if len(buf) == 0 {
		return false, nil
	}
	if err := json5.Unmarshal(buf, out); err != nil {
		return false, fmt.Errorf("parse %s: %w", path, err)
	}
	return true, nil
}

// ReadConfig reads name and merges the values of LocalPath(name) over it.
// Fields left empty in the local file keep the value of the base file.
// os.ErrNotExist is returned when neither file exists.
func ReadConfig[T any](name string) (T, error) {
	var out T
	found, err := readInto(name, &out)
	if err != nil {
		return out, err
	}

	localPath := LocalPath(name)
	var override T
	foundLocal, err := readInto(localPath, &override)
	if err != nil {
		return out, err
	}
	if foundLocal {
		err = mergo.Merge(&out, override, mergo.WithOverride)
		if err != nil {
			return out, err
		}
		slog.Info("merging config with local overrides", "local", localPath)
	}

	if !found && !foundLocal {
		return out, os.ErrNotExist
	}
	return out, nil
}
