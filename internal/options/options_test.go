package options

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve_CLIWins(t *testing.T) {
	global := Options{"build": "global-build", "prefs": "~/prefs.js"}
	local := Options{"build": "local-build", "xvfb": false}
	cli := Options{"build": "cli-build"}

	effective := Resolve(global, local, cli)

	assert.Equal(t, "cli-build", effective.String("build"))
	assert.Equal(t, "~/prefs.js", effective.String("prefs"))
	assert.False(t, effective.Bool("xvfb"))
}

func TestResolve_LocalOverGlobal(t *testing.T) {
	global := Options{"timeout": 60, "memory": 3000}
	local := Options{"timeout": 120}

	effective := Resolve(global, local, nil)

	assert.Equal(t, 120, effective.Int("timeout"))
	assert.Equal(t, 3000, effective.Int("memory"))
}

func TestResolve_GlobalWhenUnsetElsewhere(t *testing.T) {
	global := Options{"strategy": "minimize"}

	effective := Resolve(global, Options{}, Options{})

	assert.Equal(t, "minimize", effective.String("strategy"))
}

func TestResolve_DoesNotMutateInputs(t *testing.T) {
	global := Options{"build": "a"}
	cli := Options{"build": "b"}

	_ = Resolve(global, nil, cli)

	assert.Equal(t, "a", global["build"])
}

func TestOptions_UnsetBooleansReadFalse(t *testing.T) {
	effective := Resolve(nil, nil, nil)

	assert.False(t, effective.Bool("xvfb"))
	assert.False(t, effective.Bool("any-crash"))
	assert.Equal(t, 0, effective.Int("timeout"))
	assert.Equal(t, "", effective.String("build"))
}

func TestValidate_UnknownOption(t *testing.T) {
	err := Validate(Options{"no-such-option": true})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestValidate_WrongShape(t *testing.T) {
	err := Validate(Options{"xvfb": "yes"})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestValidate_NormalizesJSONNumbers(t *testing.T) {
	opts := Options{"timeout": float64(45)}

	require.NoError(t, Validate(opts))
	assert.Equal(t, 45, opts.Int("timeout"))
}

func TestValidate_RejectsFractionalInt(t *testing.T) {
	err := Validate(Options{"timeout": 4.5})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestLookupShort(t *testing.T) {
	spec, ok := LookupShort("bp")
	require.True(t, ok)
	assert.Equal(t, "buildpath", spec.Name)

	_, ok = LookupShort("zz")
	assert.False(t, ok)
}

func TestPath_ExpandsTilde(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	opts := Options{"prefs": "~/prefs.js"}
	assert.Equal(t, filepath.Join(home, "prefs.js"), opts.Path("prefs"))
}

func TestExpandUser_PassthroughWithoutTilde(t *testing.T) {
	assert.Equal(t, "/tmp/prefs.js", ExpandUser("/tmp/prefs.js"))
	assert.Equal(t, "", ExpandUser(""))
}
