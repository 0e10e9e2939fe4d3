package config

import (
	"os"
	"path/filepath"
	"regexp"

	"github.com/inkwell-editor/inkwell/errors"
	"github.com/inkwell-editor/inkwell/paths"
	"gopkg.in/yaml.v3"
)

// ConfigFileName is the per-project configuration file.
const ConfigFileName = "inkwell.yml"

var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

// Load reads and parses a configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.ConfigNotFound(path)
		}
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to read config file").
			WithDetail("path", path)
	}

	return LoadFromBytes(data)
}

// LoadFromBytes parses, validates, and defaults a raw configuration document.
func LoadFromBytes(data []byte) (*Config, error) {
	expanded := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to parse config file")
	}

	validator, err := NewSchemaValidator()
	if err != nil {
		return nil, err
	}
	if err := validator.Validate(&cfg); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigValidation, "configuration failed schema validation")
	}

	cfg.ApplyDefaults()
	return &cfg, nil
}

// LoadDefault loads configuration with hierarchical merging:
// 1. Global config (~/.config/inkwell/inkwell.yml) - base layer
// 2. Project config (inkwell.yml found walking up from cwd) - overrides global
// Both layers are optional; with neither present the defaults apply.
func LoadDefault() (*Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to get current directory")
	}
	return LoadFrom(cwd)
}

// LoadFrom loads configuration with hierarchical merging starting from the
// given directory.
func LoadFrom(startDir string) (*Config, error) {
	merged := map[string]interface{}{}

	globalPath := filepath.Join(paths.ConfigDir(), ConfigFileName)
	if data, err := os.ReadFile(globalPath); err == nil {
		if err := mergeYAML(merged, data); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to parse global config").
				WithDetail("path", globalPath)
		}
	}

	if projectPath := findConfigFile(startDir); projectPath != "" {
		data, err := os.ReadFile(projectPath)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to read project config").
				WithDetail("path", projectPath)
		}
		if err := mergeYAML(merged, data); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to parse project config").
				WithDetail("path", projectPath)
		}
	}

	data, err := yaml.Marshal(merged)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to re-serialize merged config")
	}
	return LoadFromBytes(data)
}

// mergeYAML unmarshals data and deep-merges it over dst.
func mergeYAML(dst map[string]interface{}, data []byte) error {
	expanded := expandEnvVars(string(data))
	var layer map[string]interface{}
	if err := yaml.Unmarshal([]byte(expanded), &layer); err != nil {
		return err
	}
	deepMerge(dst, layer)
	return nil
}

func deepMerge(dst, src map[string]interface{}) {
	for key, val := range src {
		if srcMap, ok := val.(map[string]interface{}); ok {
			if dstMap, ok := dst[key].(map[string]interface{}); ok {
				deepMerge(dstMap, srcMap)
				continue
			}
		}
		dst[key] = val
	}
}

// findConfigFile walks up from startDir looking for inkwell.yml.
// Returns "" when none is found.
func findConfigFile(startDir string) string {
	dir := startDir
	for {
		candidate := filepath.Join(dir, ConfigFileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// expandEnvVars replaces ${VAR} references with environment values.
func expandEnvVars(s string) string {
	return envVarRegex.ReplaceAllStringFunc(s, func(match string) string {
		name := envVarRegex.FindStringSubmatch(match)[1]
		return os.Getenv(name)
	})
}
