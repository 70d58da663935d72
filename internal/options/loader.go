package options

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// LocalConfigName is the per-directory config file read from and written to
// the current working directory.
const LocalConfigName = "bugconf"

// Loader reads and writes bugconf config files. The pure merge lives in
// Resolve; Loader is the file adapter around it.
type Loader struct {
	logger *zap.Logger
}

// NewLoader creates a new configuration loader.
func NewLoader(logger *zap.Logger) *Loader {
	return &Loader{
		logger: logger,
	}
}

// LoadGlobal loads the global config from the first existing candidate path.
// No candidate existing is not an error; it yields an empty mapping.
func (l *Loader) LoadGlobal(candidates []string) (Options, error) {
	for _, path := range candidates {
		content, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("failed to read global config %s: %w", path, err)
		}

		l.logger.Debug("loading global config", zap.String("path", path))
		opts, err := parseConfig(path, content)
		if err != nil {
			return nil, err
		}
		return opts, nil
	}

	l.logger.Debug("no global config found, using empty defaults")
	return Options{}, nil
}

// LoadLocal loads the bugconf file from dir. The second return value reports
// whether the file existed; absence is not an error (callers decide whether
// to warn).
func (l *Loader) LoadLocal(dir string) (Options, bool, error) {
	path := filepath.Join(dir, LocalConfigName)
	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Options{}, false, nil
		}
		return nil, false, fmt.Errorf("failed to read %s: %w", path, err)
	}

	l.logger.Debug("loading local config", zap.String("path", path))
	opts, err := parseConfig(path, content)
	if err != nil {
		return nil, true, err
	}
	return opts, true, nil
}

// WriteLocal persists the given option subset to the bugconf file in dir,
// overwriting any existing file. Keys are written sorted so the file diffs
// cleanly under version control.
func (l *Loader) WriteLocal(dir string, subset Options) error {
	names := make([]string, 0, len(subset))
	for name := range subset {
		names = append(names, name)
	}
	sort.Strings(names)

	var buf bytes.Buffer
	buf.WriteString("{\n")
	for i, name := range names {
		value, err := json.Marshal(subset[name])
		if err != nil {
			return fmt.Errorf("failed to encode option %q: %w", name, err)
		}
		fmt.Fprintf(&buf, " %q: %s", name, value)
		if i < len(names)-1 {
			buf.WriteString(",")
		}
		buf.WriteString("\n")
	}
	buf.WriteString("}\n")

	path := filepath.Join(dir, LocalConfigName)
	l.logger.Debug("writing local config", zap.String("path", path), zap.Strings("options", names))
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// parseConfig decodes a config file into a validated Options mapping. Files
// with a .yaml or .yml extension are YAML; everything else is JSON.
func parseConfig(path string, content []byte) (Options, error) {
	raw := map[string]any{}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(content, &raw); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, path, err)
		}
	default:
		if err := json.Unmarshal(content, &raw); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, path, err)
		}
	}

	opts := Options(raw)
	if err := Validate(opts); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return opts, nil
}
