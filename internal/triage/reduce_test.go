package triage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/crashtriage/bugconf/internal/options"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestReduceArgs_FullOptions(t *testing.T) {
	buildpath := makeBuildDir(t, "m-c-1234567-asan-opt")
	opts := options.Options{
		"buildpath":   buildpath,
		"build":       "m-c-1234567-asan-opt",
		"char":        true,
		"strategy":    "minimize",
		"reduce-file": "a.html",
		"reducer":     "/fuzz/interesting.py",
		"prefs":       "/fuzz/prefs.js",
		"xvfb":        true,
		"any-crash":   true,
		"min-crashes": 2,
		"repeat":      5,
		"sig":         "[@ js::wasm::Boom]",
		"skip":        1,
	}

	reduce := NewReduce(zap.NewNop(), nil)
	args, err := reduce.Args(opts, "testcase.html", true)

	require.NoError(t, err)
	assert.Equal(t, []string{
		"--char",
		"--strategy", "minimize",
		"--testcase", "a.html",
		"/fuzz/interesting.py",
		"-p", "/fuzz/prefs.js",
		filepath.Join(buildpath, "m-c-1234567-asan-opt", "firefox"),
		"--xvfb",
		"--any-crash",
		"--min-crashes", "2",
		"--repeat", "5",
		"--sig", "[@ js::wasm::Boom]",
		"--skip", "1",
		"-v",
		"testcase.html",
	}, args)
}

func TestReduceArgs_MinimalOptions(t *testing.T) {
	buildpath := makeBuildDir(t, "m-c-1-opt")
	opts := options.Options{
		"buildpath": buildpath,
		"build":     "m-c-1-opt",
		"reducer":   "/fuzz/interesting.py",
	}

	reduce := NewReduce(zap.NewNop(), nil)
	args, err := reduce.Args(opts, "tc.html", false)

	require.NoError(t, err)
	assert.Equal(t, []string{
		"/fuzz/interesting.py",
		"-p", "",
		filepath.Join(buildpath, "m-c-1-opt", "firefox"),
		"tc.html",
	}, args)
}

func TestReduceArgs_RequiresReducer(t *testing.T) {
	buildpath := makeBuildDir(t, "m-c-1-opt")
	opts := options.Options{
		"buildpath": buildpath,
		"build":     "m-c-1-opt",
	}

	reduce := NewReduce(zap.NewNop(), nil)
	_, err := reduce.Args(opts, "tc.html", false)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no reducer configured")
}

func TestReduceRun_TestcaseMustExist(t *testing.T) {
	reduce := NewReduce(zap.NewNop(), &fakeRunner{})
	_, err := reduce.Run(context.Background(), options.Options{}, "missing.html", false)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTestcaseNotFound)
}

func TestReduceRun_InvokesReduceTool(t *testing.T) {
	buildpath := makeBuildDir(t, "m-c-1-opt")
	testcase := makeTestcase(t)
	opts := options.Options{
		"buildpath": buildpath,
		"build":     "m-c-1-opt",
		"reducer":   "/fuzz/interesting.py",
	}

	runner := &fakeRunner{}
	reduce := NewReduce(zap.NewNop(), runner)
	status, err := reduce.Run(context.Background(), opts, testcase, false)

	require.NoError(t, err)
	assert.Equal(t, 0, status)
	assert.Equal(t, DefaultReduceTool, runner.name)
	assert.Equal(t, testcase, runner.args[len(runner.args)-1])
}
