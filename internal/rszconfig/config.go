// Package rszconfig is a YAML-based settings file for the diagnostic CLI,
// mirroring the persistence shape of original_source's settings.py as a
// typed Go struct instead of a loosely-keyed dict.
package rszconfig

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Settings holds everything the rszkit CLI needs across invocations:
// where the Type Registry JSON lives, which container variant to assume
// when a file's magic is ambiguous, and rebuild-pipeline toggles.
type Settings struct {
	// RegistryPath is the Type Registry JSON file to load.
	RegistryPath string `yaml:"registry_path"`

	// RegistryCachePath is the sqlite patch-cache database. Empty disables
	// caching.
	RegistryCachePath string `yaml:"registry_cache_path"`

	// VariantHint names a container variant to assume when a file's magic
	// is ambiguous (PFB vs PFB.16 share no distinguishing byte and are
	// normally told apart by file extension). One of "scn", "pfb", "usr",
	// "pfb16", "scn18", "scn19", or "" for magic-only detection.
	VariantHint string `yaml:"variant_hint"`

	// SpecialAlignEnabled mirrors RebuildOptions.SpecialAlignEnabled: some
	// titles insert an extra 16-byte alignment before the Object Stream
	// that isn't implied by any header field (spec.md §4.8 step 8).
	SpecialAlignEnabled bool `yaml:"special_align_enabled"`

	// LogLevel is one of "debug", "info", "warn", "error".
	LogLevel string `yaml:"log_level"`
}

// DefaultSettings returns the settings a fresh CLI invocation starts from
// when no config file is present.
func DefaultSettings() Settings {
	return Settings{
		VariantHint: "",
		LogLevel:    "info",
	}
}

// Load reads and parses a YAML settings file at path. A missing file is not
// an error: it yields DefaultSettings(), matching settings.py's behavior of
// falling back to in-memory defaults on first run.
func Load(path string) (Settings, error) {
	s := DefaultSettings()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return s, fmt.Errorf("rszconfig: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("rszconfig: parse %s: %w", path, err)
	}
	return s, nil
}

// Save writes s to path as YAML, creating or truncating the file.
func Save(path string, s Settings) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("rszconfig: marshal settings: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("rszconfig: write %s: %w", path, err)
	}
	return nil
}
