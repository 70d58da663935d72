package triage

import (
	"context"
	"errors"
	"path/filepath"
	"strconv"

	"github.com/crashtriage/bugconf/internal/builds"
	"github.com/crashtriage/bugconf/internal/options"
	"go.uber.org/zap"
)

// DefaultReduceTool is the testcase reduction tool invoked for reduce runs.
const DefaultReduceTool = "lithium"

// Reduce dispatches testcase reduction to the external reducer. The reducer
// replaces the testcase file in place; that effect is the tool's, not ours.
type Reduce struct {
	logger *zap.Logger
	runner Runner
	tool   string
}

// NewReduce creates a reduce dispatcher. A nil runner uses ExecRunner.
func NewReduce(logger *zap.Logger, runner Runner) *Reduce {
	if runner == nil {
		runner = ExecRunner{Logger: logger}
	}
	return &Reduce{
		logger: logger,
		runner: runner,
		tool:   DefaultReduceTool,
	}
}

// Args constructs the reduction tool's argument list from the effective
// options, mirroring the interestingness-script calling convention.
func (r *Reduce) Args(opts options.Options, testcase string, verbose bool) ([]string, error) {
	buildpath := opts.Path("buildpath")
	build := opts.String("build")
	if build == "" {
		return nil, errors.New("no build configured, pass -b/--build or set it in bugconf")
	}
	if err := builds.Validate(buildpath, build); err != nil {
		return nil, err
	}

	reducer := opts.Path("reducer")
	if reducer == "" {
		return nil, errors.New("no reducer configured, pass --reducer or set it in bugconf")
	}

	var args []string
	if opts.Bool("char") {
		args = append(args, "--char")
	}
	if opts.Bool("js") {
		args = append(args, "--js")
	}
	if strategy := opts.String("strategy"); strategy != "" {
		args = append(args, "--strategy", strategy)
	}
	if opts.Bool("symbol") {
		args = append(args, "--symbol")
	}
	if reduceFile := opts.Path("reduce-file"); reduceFile != "" {
		args = append(args, "--testcase", reduceFile)
	}
	args = append(args, reducer)
	args = append(args, "-p", opts.Path("prefs"), filepath.Join(buildpath, build, "firefox"))
	for _, toggle := range []string{"xvfb", "gdb", "valgrind"} {
		if opts.Bool(toggle) {
			args = append(args, "--"+toggle)
		}
	}
	if opts.Bool("any-crash") {
		args = append(args, "--any-crash")
	}
	if minCrashes := opts.Int("min-crashes"); minCrashes > 0 {
		args = append(args, "--min-crashes", strconv.Itoa(minCrashes))
	}
	if opts.Bool("no-harness") {
		args = append(args, "--no-harness")
	}
	if repeat := opts.Int("repeat"); repeat > 0 {
		args = append(args, "--repeat", strconv.Itoa(repeat))
	}
	if sig := opts.String("sig"); sig != "" {
		args = append(args, "--sig", sig)
	}
	if skip := opts.Int("skip"); skip > 0 {
		args = append(args, "--skip", strconv.Itoa(skip))
	}
	if verbose {
		args = append(args, "-v")
	}
	args = append(args, testcase)
	return args, nil
}

// Run validates the testcase and invokes the reduction tool, surfacing its
// exit status unchanged.
func (r *Reduce) Run(ctx context.Context, opts options.Options, testcase string, verbose bool) (int, error) {
	if err := validateTestcase(testcase); err != nil {
		return -1, err
	}

	args, err := r.Args(opts, testcase, verbose)
	if err != nil {
		return -1, err
	}

	r.logger.Info("launching reducer",
		zap.String("build", opts.String("build")),
		zap.String("testcase", testcase))
	return r.runner.Run(ctx, r.tool, args...)
}
