// Package options implements the layered configuration model used by all
// bugconf commands. An option can come from the global config, from the
// per-directory bugconf file, or from the command line; precedence is
// CLI > local > global.
package options

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrInvalidConfig indicates a config file that exists but does not parse
// into the expected flat mapping of recognized options.
var ErrInvalidConfig = errors.New("invalid config")

// Kind describes the value type of a recognized option.
type Kind int

const (
	String Kind = iota
	Int
	Bool
)

// Spec describes one recognized option. Name is both the config file key and
// the long flag name; Short is the optional short flag.
type Spec struct {
	Name  string
	Short string
	Help  string
	Kind  Kind

	// Path marks string options whose values are filesystem paths. They are
	// tilde-expanded before use and completed as paths. Dir narrows the
	// completion to directories.
	Path bool
	Dir  bool
}

// Registry enumerates every recognized option, sorted by name.
var Registry = []Spec{
	{Name: "any-crash", Help: "Any crash is interesting during reduction", Kind: Bool},
	{Name: "build", Short: "b", Help: "Folder name of downloaded build (relative to buildpath)", Kind: String},
	{Name: "buildpath", Short: "bp", Help: "Path of downloaded builds", Kind: String, Path: true, Dir: true},
	{Name: "char", Short: "c", Help: "Use char reduction", Kind: Bool},
	{Name: "extension", Short: "e", Help: "Use DOMFuzz extension", Kind: Bool},
	{Name: "extension-path", Help: "Path to DOMFuzz extension", Kind: String, Path: true, Dir: true},
	{Name: "gdb", Short: "g", Help: "Use GDB", Kind: Bool},
	{Name: "js", Short: "j", Help: "Use jsstr reduction", Kind: Bool},
	{Name: "logfn", Short: "l", Help: "Filename to save log to during repro", Kind: String, Path: true},
	{Name: "memory", Short: "m", Help: "Set memory limit in MB", Kind: Int},
	{Name: "min-crashes", Short: "n", Help: "Require the testcase to crash n times before accepting the result", Kind: Int},
	{Name: "no-harness", Help: "Don't use a background tab to detect timeout", Kind: Bool},
	{Name: "prefs", Short: "p", Help: "Path to prefs.js to use", Kind: String, Path: true},
	{Name: "reduce-file", Short: "rf", Help: "Testcase to reduce", Kind: String, Path: true},
	{Name: "reducer", Help: "Path to the interestingness script", Kind: String, Path: true},
	{Name: "repeat", Help: "Run intermittent testcase reduction multiple times", Kind: Int},
	{Name: "safemode", Help: "Launch in Safe Mode (requires interaction)", Kind: Bool},
	{Name: "sig", Help: "Specify signature to reduce", Kind: String},
	{Name: "skip", Help: "Skip n initial iterations", Kind: Int},
	{Name: "strategy", Help: "Use lithium strategy", Kind: String},
	{Name: "symbol", Help: "Use symbol reduction", Kind: Bool},
	{Name: "timeout", Short: "t", Help: "Kill the target if the testcase doesn't terminate within n seconds", Kind: Int},
	{Name: "valgrind", Help: "Use Valgrind", Kind: Bool},
	{Name: "xvfb", Help: "Use Xvfb", Kind: Bool},
}

// Lookup returns the Spec for a recognized option name.
func Lookup(name string) (Spec, bool) {
	for _, spec := range Registry {
		if spec.Name == name {
			return spec, true
		}
	}
	return Spec{}, false
}

// LookupShort returns the Spec registered under the given short flag.
func LookupShort(short string) (Spec, bool) {
	for _, spec := range Registry {
		if spec.Short != "" && spec.Short == short {
			return spec, true
		}
	}
	return Spec{}, false
}

// Options is a flat mapping of recognized option name to value. Values are
// string, int, or bool according to the option's Kind.
type Options map[string]any

// Resolve merges the three configuration layers into the effective option
// set for one invocation. Later layers win: CLI > local > global. The inputs
// are not modified; any of them may be nil.
func Resolve(global, local, cli Options) Options {
	effective := make(Options, len(global)+len(local)+len(cli))
	for _, layer := range []Options{global, local, cli} {
		for name, value := range layer {
			effective[name] = value
		}
	}
	return effective
}

// Validate checks that every key is a recognized option with a value of the
// right shape. JSON numbers arrive as float64 and are normalized to int in
// place for Int options.
func Validate(opts Options) error {
	for name, value := range opts {
		spec, ok := Lookup(name)
		if !ok {
			return fmt.Errorf("%w: unsupported option %q", ErrInvalidConfig, name)
		}
		normalized, err := normalize(spec, value)
		if err != nil {
			return err
		}
		opts[name] = normalized
	}
	return nil
}

func normalize(spec Spec, value any) (any, error) {
	switch spec.Kind {
	case String:
		if s, ok := value.(string); ok {
			return s, nil
		}
	case Bool:
		if b, ok := value.(bool); ok {
			return b, nil
		}
	case Int:
		switch v := value.(type) {
		case int:
			return v, nil
		case int64:
			return int(v), nil
		case float64:
			if v == float64(int(v)) {
				return int(v), nil
			}
		}
	}
	return nil, fmt.Errorf("%w: option %q expects a %s value, got %T",
		ErrInvalidConfig, spec.Name, kindName(spec.Kind), value)
}

func kindName(kind Kind) string {
	switch kind {
	case Int:
		return "number"
	case Bool:
		return "boolean"
	default:
		return "string"
	}
}

// Bool returns the boolean option value; unset reads as false.
func (o Options) Bool(name string) bool {
	value, _ := o[name].(bool)
	return value
}

// Int returns the integer option value; unset reads as zero.
func (o Options) Int(name string) int {
	value, _ := o[name].(int)
	return value
}

// String returns the string option value; unset reads as empty.
func (o Options) String(name string) string {
	value, _ := o[name].(string)
	return value
}

// Path returns the string option value with a leading tilde expanded.
func (o Options) Path(name string) string {
	return ExpandUser(o.String(name))
}

// Has reports whether the option is present in this layer.
func (o Options) Has(name string) bool {
	_, ok := o[name]
	return ok
}

// ExpandUser expands a leading "~" or "~/" to the user's home directory.
func ExpandUser(path string) string {
	if path == "~" {
		if home, err := os.UserHomeDir(); err == nil {
			return home
		}
		return path
	}
	if strings.HasPrefix(path, "~/") || strings.HasPrefix(path, "~"+string(filepath.Separator)) {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
