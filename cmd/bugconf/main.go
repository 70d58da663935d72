// Command bugconf automates bug triage. One binary serves several command
// names (installed as symlinks): bugconf resolves and optionally writes
// configuration, bclistbuilds enumerates downloaded builds, bcrepro and
// bcreduce dispatch to the external reproduction and reduction tools, and
// dlcrash/initbug fetch crash entries from the crash-signature service.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/crashtriage/bugconf/internal/appupdate"
	"github.com/crashtriage/bugconf/internal/bug"
	"github.com/crashtriage/bugconf/internal/builds"
	"github.com/crashtriage/bugconf/internal/completion"
	"github.com/crashtriage/bugconf/internal/core"
	"github.com/crashtriage/bugconf/internal/filesystem"
	"github.com/crashtriage/bugconf/internal/fuzzmanager"
	"github.com/crashtriage/bugconf/internal/history"
	"github.com/crashtriage/bugconf/internal/options"
	"github.com/crashtriage/bugconf/internal/triage"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"
)

var BUILD_VERSION = "dev"

func main() {
	name, args := resolveCommand(os.Args)
	handler, ok := commands[name]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q (expected one of: %s)\n", name, strings.Join(commandNames(), ", "))
		os.Exit(1)
	}

	flags := newCLIFlags(name)
	if err := flags.fs.Parse(args); err != nil {
		os.Exit(2)
	}

	logger, err := initializeLogger(flags.verbose)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	app := &app{
		command: name,
		flags:   flags,
		logger:  logger,
		loader:  options.NewLoader(logger),
	}

	appupdate.NotifyIfUpdateAvailable(BUILD_VERSION, logger, filesystem.DefaultFileSystem{})
	updateResult := appupdate.HandleSelfUpdate(
		BUILD_VERSION,
		logger,
		filesystem.DefaultFileSystem{},
		appupdate.DefaultUpdater{},
	)

	err = handler(context.Background(), app)

	// Pick up the background check's result if it finished in time; the
	// cached version file covers the next invocation otherwise.
	select {
	case <-updateResult:
	default:
	}

	var exitStatus triage.ExitStatusError
	if errors.As(err, &exitStatus) {
		os.Exit(int(exitStatus))
	}
	if err != nil {
		logger.Error(err.Error())
		os.Exit(1)
	}
}

type app struct {
	command string
	flags   *cliFlags
	logger  *zap.Logger
	loader  *options.Loader
}

type commandHandler func(ctx context.Context, a *app) error

// commands is the explicit name-to-handler table; the invocation name (or
// the first argument as a fallback subcommand) selects the handler.
var commands = map[string]commandHandler{
	"bugconf":      runBugconf,
	"bclistbuilds": runListBuilds,
	"bcrepro":      runRepro,
	"bcreduce":     runReduce,
	"dlcrash":      runDownloadCrash,
	"initbug":      runInitBug,
}

func commandNames() []string {
	return []string{"bugconf", "bclistbuilds", "bcrepro", "bcreduce", "dlcrash", "initbug"}
}

// resolveCommand maps the invocation name to a command, falling back to the
// first argument as a subcommand when the binary runs under an unknown name.
func resolveCommand(argv []string) (string, []string) {
	base := filepath.Base(argv[0])
	name := strings.TrimSuffix(base, filepath.Ext(base))
	args := argv[1:]

	if _, ok := commands[name]; !ok && len(args) > 0 {
		if _, ok := commands[args[0]]; ok {
			return args[0], args[1:]
		}
		return "bugconf", args
	}
	if _, ok := commands[name]; !ok {
		return "bugconf", args
	}
	return name, args
}

// cliFlags binds every recognized option under its long and short name plus
// the meta flags. flag.Visit later recovers exactly the explicitly-supplied
// subset, which is what write-back persists.
type cliFlags struct {
	fs     *flag.FlagSet
	values map[string]any

	write       bool
	verbose     bool
	completions bool
}

func newCLIFlags(command string) *cliFlags {
	c := &cliFlags{
		fs:     flag.NewFlagSet(command, flag.ExitOnError),
		values: make(map[string]any),
	}

	for _, spec := range options.Registry {
		switch spec.Kind {
		case options.Bool:
			p := new(bool)
			c.fs.BoolVar(p, spec.Name, false, spec.Help)
			if spec.Short != "" {
				c.fs.BoolVar(p, spec.Short, false, spec.Help)
			}
			c.values[spec.Name] = p
		case options.Int:
			p := new(int)
			c.fs.IntVar(p, spec.Name, 0, spec.Help)
			if spec.Short != "" {
				c.fs.IntVar(p, spec.Short, 0, spec.Help)
			}
			c.values[spec.Name] = p
		default:
			p := new(string)
			c.fs.StringVar(p, spec.Name, "", spec.Help)
			if spec.Short != "" {
				c.fs.StringVar(p, spec.Short, "", spec.Help)
			}
			c.values[spec.Name] = p
		}
	}

	c.fs.BoolVar(&c.write, "write", false, "Write options to bugconf")
	c.fs.BoolVar(&c.write, "w", false, "Write options to bugconf")
	c.fs.BoolVar(&c.verbose, "verbose", false, "Be more verbose")
	c.fs.BoolVar(&c.verbose, "v", false, "Be more verbose")
	c.fs.BoolVar(&c.completions, "completions", false, "Print the bash completion script and exit")

	return c
}

// supplied returns the options explicitly present on the command line,
// keyed by canonical long name.
func (c *cliFlags) supplied() options.Options {
	cli := options.Options{}
	c.fs.Visit(func(f *flag.Flag) {
		spec, ok := options.Lookup(f.Name)
		if !ok {
			spec, ok = options.LookupShort(f.Name)
		}
		if !ok {
			return // meta flag
		}
		switch p := c.values[spec.Name].(type) {
		case *bool:
			cli[spec.Name] = *p
		case *int:
			cli[spec.Name] = *p
		case *string:
			cli[spec.Name] = *p
		}
	})
	return cli
}

// resolve loads the global and local configs, merges in the CLI layer, and
// applies write-back when requested. warnMissingLocal suppresses the missing
// local config warning for commands used by shell completion.
func (a *app) resolve(warnMissingLocal bool) (options.Options, error) {
	global, err := a.loader.LoadGlobal(core.GlobalConfigPaths())
	if err != nil {
		return nil, err
	}

	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	local, found, err := a.loader.LoadLocal(cwd)
	if err != nil {
		return nil, err
	}
	if !found && warnMissingLocal {
		a.logger.Warn("no bugconf file found in current directory")
	}

	cli := a.flags.supplied()
	effective := options.Resolve(global, local, cli)

	if a.flags.write {
		if err := a.loader.WriteLocal(cwd, cli); err != nil {
			return nil, err
		}
	}

	return effective, nil
}

func runBugconf(ctx context.Context, a *app) error {
	if a.flags.completions {
		return completion.WriteBash(os.Stdout)
	}

	if _, err := a.resolve(true); err != nil {
		return err
	}
	if !a.flags.write {
		a.logger.Warn("nothing to do!")
	}
	return nil
}

func runListBuilds(ctx context.Context, a *app) error {
	opts, err := a.resolve(false)
	if err != nil {
		return err
	}

	names, err := builds.List(opts.Path("buildpath"))
	if err != nil {
		// Empty output is acceptable for completion use; report, don't fail.
		a.logger.Warn(err.Error())
		return nil
	}
	for _, name := range names {
		fmt.Println(name)
	}
	return nil
}

func runRepro(ctx context.Context, a *app) error {
	opts, testcase, err := a.resolveWithTestcase()
	if err != nil {
		return err
	}

	repro := triage.NewRepro(a.logger, nil)
	finish := a.recordRun("repro", opts, testcase)
	status, err := repro.Run(ctx, opts, testcase)
	finish(status)
	if err != nil {
		return err
	}
	if status != 0 {
		return triage.ExitStatusError(status)
	}
	return nil
}

func runReduce(ctx context.Context, a *app) error {
	opts, testcase, err := a.resolveWithTestcase()
	if err != nil {
		return err
	}

	reduce := triage.NewReduce(a.logger, nil)
	finish := a.recordRun("reduce", opts, testcase)
	status, err := reduce.Run(ctx, opts, testcase, a.flags.verbose)
	finish(status)
	if err != nil {
		return err
	}
	if status != 0 {
		return triage.ExitStatusError(status)
	}
	return nil
}

func (a *app) resolveWithTestcase() (options.Options, string, error) {
	opts, err := a.resolve(true)
	if err != nil {
		return nil, "", err
	}
	testcase := a.flags.fs.Arg(0)
	if testcase == "" {
		return nil, "", fmt.Errorf("%s requires a testcase argument", a.command)
	}
	return opts, testcase, nil
}

// recordRun opens the run history and records the dispatch around the
// external tool's lifetime. History failures are logged, never fatal.
func (a *app) recordRun(kind string, opts options.Options, testcase string) func(int) {
	manager, err := history.NewHistoryManager(core.HistoryFile())
	if err != nil {
		a.logger.Warn("run history unavailable", zap.Error(err))
		return func(int) {}
	}

	cwd, _ := os.Getwd()
	entry, err := manager.StartRun(kind, a.command+" "+testcase, cwd, opts.String("build"), testcase)
	if err != nil {
		a.logger.Warn("failed to record run", zap.Error(err))
		return func(int) {}
	}
	return func(exitCode int) {
		if _, err := manager.FinishRun(entry, exitCode); err != nil {
			a.logger.Warn("failed to record run result", zap.Error(err))
		}
	}
}

func runDownloadCrash(ctx context.Context, a *app) error {
	id, err := crashIDArg(a)
	if err != nil {
		return err
	}

	client, err := fuzzmanager.NewClientFromConfig(core.FuzzManagerConfFile(), a.logger)
	if err != nil {
		return err
	}

	cwd, err := os.Getwd()
	if err != nil {
		return err
	}

	initializer := bug.NewInitializer(a.logger, client, a.loader)
	_, name, err := initializer.Download(ctx, id, cwd)
	if err != nil {
		return err
	}
	fmt.Println(name)
	return nil
}

func runInitBug(ctx context.Context, a *app) error {
	id, err := crashIDArg(a)
	if err != nil {
		return err
	}

	client, err := fuzzmanager.NewClientFromConfig(core.FuzzManagerConfFile(), a.logger)
	if err != nil {
		return err
	}

	cwd, err := os.Getwd()
	if err != nil {
		return err
	}

	initializer := bug.NewInitializer(a.logger, client, a.loader)
	dir, err := initializer.Init(ctx, id, cwd)
	if err != nil {
		return err
	}
	fmt.Println(dir)
	return nil
}

func crashIDArg(a *app) (int, error) {
	arg := a.flags.fs.Arg(0)
	if arg == "" {
		return 0, fmt.Errorf("%s requires a crash id argument", a.command)
	}
	id, err := strconv.Atoi(arg)
	if err != nil {
		return 0, fmt.Errorf("invalid crash id %q", arg)
	}
	return id, nil
}

func initializeLogger(verbose bool) (*zap.Logger, error) {
	level := zap.InfoLevel
	if verbose {
		level = zap.DebugLevel
	}

	loggerConfig := zap.NewDevelopmentConfig()
	loggerConfig.Level = zap.NewAtomicLevelAt(level)
	loggerConfig.OutputPaths = []string{"stderr"}
	if term.IsTerminal(int(os.Stderr.Fd())) {
		loggerConfig.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	return loggerConfig.Build()
}
