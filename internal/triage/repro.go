package triage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/crashtriage/bugconf/internal/builds"
	"github.com/crashtriage/bugconf/internal/options"
	"go.uber.org/zap"
)

// DefaultHarness is the browser-automation harness invoked for repro runs.
const DefaultHarness = "ffpuppet"

// Repro dispatches testcase reproduction to the automation harness.
type Repro struct {
	logger  *zap.Logger
	runner  Runner
	harness string
}

// NewRepro creates a repro dispatcher. A nil runner uses ExecRunner.
func NewRepro(logger *zap.Logger, runner Runner) *Repro {
	if runner == nil {
		runner = ExecRunner{Logger: logger}
	}
	return &Repro{
		logger:  logger,
		runner:  runner,
		harness: DefaultHarness,
	}
}

// Args constructs the harness argument list from the effective options. The
// build is validated against the buildpath listing; a miss is fatal here.
func (r *Repro) Args(opts options.Options, testcase string) ([]string, error) {
	buildpath := opts.Path("buildpath")
	build := opts.String("build")
	if build == "" {
		return nil, errors.New("no build configured, pass -b/--build or set it in bugconf")
	}
	if err := builds.Validate(buildpath, build); err != nil {
		return nil, err
	}

	args := []string{filepath.Join(buildpath, build, "firefox")}
	if prefs := opts.Path("prefs"); prefs != "" {
		args = append(args, "-p", prefs)
	}
	if logfn := opts.Path("logfn"); logfn != "" {
		args = append(args, "-l", logfn)
	}
	if opts.Bool("extension") {
		args = append(args, "-e", opts.Path("extension-path"))
	}
	if opts.Bool("safemode") {
		args = append(args, "--safe-mode")
	}
	if memory := opts.Int("memory"); memory > 0 {
		args = append(args, "--memory", strconv.Itoa(memory))
	}
	if timeout := opts.Int("timeout"); timeout > 0 {
		args = append(args, "--timeout", strconv.Itoa(timeout))
	}
	for _, toggle := range []string{"xvfb", "gdb", "valgrind"} {
		if opts.Bool(toggle) {
			args = append(args, "--"+toggle)
		}
	}
	args = append(args, "-u", testcase)
	return args, nil
}

// Run validates the testcase, invokes the harness, and summarizes the crash
// logs it left behind. The harness exit status is surfaced unchanged.
func (r *Repro) Run(ctx context.Context, opts options.Options, testcase string) (int, error) {
	if err := validateTestcase(testcase); err != nil {
		return -1, err
	}

	args, err := r.Args(opts, testcase)
	if err != nil {
		return -1, err
	}

	r.logger.Info("launching harness",
		zap.String("build", opts.String("build")),
		zap.String("testcase", testcase))
	status, err := r.runner.Run(ctx, r.harness, args...)
	if err != nil {
		return -1, err
	}

	cwd, err := os.Getwd()
	if err == nil {
		if err := r.summarizeCrashLogs(cwd); err != nil {
			r.logger.Warn("failed to summarize crash logs", zap.Error(err))
		}
	}

	buildDir := filepath.Join(opts.Path("buildpath"), opts.String("build"))
	if product, rev, err := BuildMetadata(buildDir); err == nil {
		r.logger.Warn("run in "+product+" rev "+rev,
			zap.String("product", product), zap.String("revision", rev))
	} else {
		r.logger.Debug("no build metadata", zap.Error(err))
	}

	return status, nil
}

// summarizeCrashLogs picks the most interesting harness log from dir and
// writes it to stdout, echoing assertion and panic lines from stderr first.
func (r *Repro) summarizeCrashLogs(dir string) error {
	crashLog, stderrLog, err := SelectCrashLog(dir)
	if err != nil {
		return err
	}

	if crashLog == "" && stderrLog == "" {
		r.logger.Warn("no stderr log found")
		return nil
	}

	if crashLog == "" {
		// Nothing better than raw stderr.
		content, err := os.ReadFile(filepath.Join(dir, stderrLog))
		if err != nil {
			return err
		}
		os.Stdout.Write(content)
		return nil
	}

	if stderrLog != "" {
		f, err := os.Open(filepath.Join(dir, stderrLog))
		if err != nil {
			return err
		}
		for _, line := range ScanStderr(f) {
			fmt.Println(line)
		}
		f.Close()
	}

	f, err := os.Open(filepath.Join(dir, crashLog))
	if err != nil {
		return err
	}
	defer f.Close()

	if IsMinidumpLog(crashLog) {
		for _, frame := range FormatMinidumpBacktrace(f) {
			fmt.Println(frame)
		}
		return nil
	}

	content, err := os.ReadFile(filepath.Join(dir, crashLog))
	if err != nil {
		return err
	}
	os.Stdout.Write(content)
	return nil
}
