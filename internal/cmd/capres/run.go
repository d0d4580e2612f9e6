// Package capres implements the capres command: it loads resolution
// scenarios, resolves every capability request in them and reports the
// diagnostics.
package capres

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/NigeWarren/dotty/internal/capconfig"
	"github.com/NigeWarren/dotty/internal/cli"
	"github.com/NigeWarren/dotty/internal/diagnostics"
	"github.com/NigeWarren/dotty/internal/logging"
	"github.com/NigeWarren/dotty/internal/migration"
	"github.com/NigeWarren/dotty/internal/resolve"
	"github.com/NigeWarren/dotty/internal/scenario"
	"github.com/NigeWarren/dotty/internal/sortutil"
	"github.com/NigeWarren/dotty/internal/version"
)

// Run executes capres with the given arguments.
// Returns exit code.
func Run(args []string) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return RunWithIO(ctx, args, os.Stdin, os.Stdout, os.Stderr)
}

// RunWithIO allows custom IO for embedding/testing. Cancelling ctx ends
// watch mode.
func RunWithIO(ctx context.Context, args []string, _ io.Reader, stdout, stderr io.Writer) int {
	var (
		jsonFlag      bool
		versionFlag   bool
		quietFlag     bool
		checkFlag     bool
		watchFlag     bool
		specificity   bool
		sourceFlag    string
		modeFlag      string
		configFlag    string
		logLevelFlag  string
		logFormatFlag string
		parallelFlag  int
	)

	fs := flag.NewFlagSet("capres", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.BoolVar(&jsonFlag, "json", false, "output results as JSON")
	fs.BoolVar(&versionFlag, "version", false, "print version and exit")
	fs.BoolVar(&quietFlag, "quiet", false, "only output errors, no summary")
	fs.BoolVar(&checkFlag, "check", false, "compare outcomes with the scenario expectations and print a diff")
	fs.BoolVar(&watchFlag, "watch", false, "resolve again whenever a scenario file changes")
	fs.BoolVar(&specificity, "specificity", false, "let a strictly more specific provider win a tie between equally ranked providers")
	fs.StringVar(&sourceFlag, "source", "", "language-version target selecting the migration mode (e.g. 3.0, 3.1-migration, future)")
	fs.StringVar(&modeFlag, "mode", "", "migration mode: permissive, warn, or strict (overrides -source)")
	fs.StringVar(&configFlag, "config", "", "config file (default: discover capres.sky or capres.toml)")
	fs.StringVar(&logLevelFlag, "log-level", "", "log level: debug, info, warn, error")
	fs.StringVar(&logFormatFlag, "log-format", "", "log format: text or json")
	fs.IntVar(&parallelFlag, "parallel", 0, "requests resolved concurrently (default: GOMAXPROCS)")

	fs.Usage = func() {
		cli.Writeln(stderr, "Usage: capres [flags] <scenario files or directories...>")
		cli.Writeln(stderr)
		cli.Writeln(stderr, "Resolves the capability requests described by scenario files")
		cli.Writeln(stderr, "(.toml, .yaml, .yml, .sky, .star) and reports ambiguous, missing,")
		cli.Writeln(stderr, "divergent and deprecated capabilities.")
		cli.Writeln(stderr)
		cli.Writeln(stderr, "Flags:")
		fs.PrintDefaults()
		cli.Writeln(stderr)
		cli.Writeln(stderr, "Examples:")
		cli.Writeln(stderr, "  capres scenarios/                   # Resolve every scenario in a directory")
		cli.Writeln(stderr, "  capres -source 3.1 ordering.toml    # Resolve as for a 3.1 migration build")
		cli.Writeln(stderr, "  capres -check testdata/             # Verify expected outcomes")
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return cli.ExitOK
		}
		return cli.ExitError
	}

	if versionFlag {
		cli.Writef(stdout, "capres %s\n", version.String())
		return cli.ExitOK
	}

	paths := fs.Args()
	if len(paths) == 0 {
		cli.Writeln(stderr, "capres: no scenarios specified")
		fs.Usage()
		return cli.ExitError
	}

	override := &capconfig.Config{
		Resolve: capconfig.ResolveConfig{
			Source:      sourceFlag,
			Mode:        modeFlag,
			Parallel:    parallelFlag,
			Specificity: specificity,
		},
		Log:    capconfig.LogConfig{Level: logLevelFlag, Format: logFormatFlag},
		Output: capconfig.OutputConfig{Quiet: quietFlag},
	}
	if jsonFlag {
		override.Output.Format = "json"
	}
	cfgPath := configFlag
	if cfgPath == "" {
		found, err := capconfig.FindConfig("")
		if err != nil {
			cli.Writef(stderr, "capres: %v\n", err)
			return cli.ExitError
		}
		cfgPath = found
	}
	cfg, mode, err := buildConfig(cfgPath, override)
	if err != nil {
		cli.Writef(stderr, "capres: %v\n", err)
		return cli.ExitError
	}

	logger, err := logging.New(stderr, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		cli.Writef(stderr, "capres: %v\n", err)
		return cli.ExitError
	}
	logger = logger.With("run", uuid.NewString())

	files, err := expandPaths(paths)
	if err != nil {
		cli.Writef(stderr, "capres: %v\n", err)
		return cli.ExitError
	}
	if len(files) == 0 {
		cli.Writeln(stderr, "capres: no scenario files found")
		return cli.ExitOK
	}

	r := &runner{
		cfg:      cfg,
		mode:     mode,
		cfgPath:  cfgPath,
		override: override,
		check:    checkFlag,
		logger:   logger,
		stdout:   stdout,
		stderr:   stderr,
	}
	r.resolver = r.newResolver()
	logger.Info("starting", "files", len(files), "mode", mode.String(), "config", cfgPath)

	code := r.run(ctx, files)
	if !watchFlag {
		return code
	}
	return r.watch(ctx, files, code)
}

// buildConfig loads the config file at path (defaults when empty), applies
// the command-line overrides and validates the result. A -source given
// without -mode replaces any mode from the file.
func buildConfig(path string, override *capconfig.Config) (*capconfig.Config, migration.Mode, error) {
	cfg := capconfig.DefaultConfig()
	if path != "" {
		loaded, err := capconfig.LoadConfig(path)
		if err != nil {
			return nil, "", err
		}
		cfg = loaded
	}
	if override.Resolve.Source != "" && override.Resolve.Mode == "" {
		cfg.Resolve.Mode = ""
	}
	cfg.Merge(override)
	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}
	mode, err := cfg.MigrationMode()
	if err != nil {
		return nil, "", err
	}
	return cfg, mode, nil
}

// runner resolves a set of scenario files with one configuration.
type runner struct {
	cfg      *capconfig.Config
	mode     migration.Mode
	cfgPath  string
	override *capconfig.Config
	check    bool
	logger   *slog.Logger
	resolver *resolve.Resolver
	stdout   io.Writer
	stderr   io.Writer
}

func (r *runner) newResolver() *resolve.Resolver {
	return resolve.New(resolve.Options{
		Logger:      r.logger,
		Specificity: r.cfg.Resolve.Specificity,
	})
}

// reload rereads the config file, keeping the command-line overrides.
func (r *runner) reload() error {
	cfg, mode, err := buildConfig(r.cfgPath, r.override)
	if err != nil {
		return err
	}
	r.cfg, r.mode = cfg, mode
	r.resolver = r.newResolver()
	return nil
}

// fileReport collects the outcomes of one scenario file.
type fileReport struct {
	path    string
	entries []entry
	result  diagnostics.Result
}

// entry is one resolved request.
type entry struct {
	site    scenario.Site
	request scenario.Request
	mode    migration.Mode
	outcome resolve.Outcome
}

// job ties a batch request back to its file and scenario request.
type job struct {
	file    int
	site    scenario.Site
	request scenario.Request
	mode    migration.Mode
}

func (r *runner) run(ctx context.Context, files []string) int {
	start := time.Now()

	reports := make([]*fileReport, len(files))
	var (
		jobs []job
		reqs []resolve.Request
	)
	for i, path := range files {
		reports[i] = &fileReport{path: path}

		s, err := scenario.Load(path)
		if err != nil {
			cli.Writef(r.stderr, "capres: %v\n", err)
			return cli.ExitError
		}
		sites, err := s.Build()
		if err != nil {
			cli.Writef(r.stderr, "capres: %v\n", err)
			return cli.ExitError
		}
		for _, site := range sites {
			for _, req := range site.Requests {
				mode := req.Mode
				if mode == "" {
					mode = r.mode
				}
				jobs = append(jobs, job{file: i, site: site, request: req, mode: mode})
				reqs = append(reqs, resolve.Request{Type: req.Type, Chain: site.Chain, Mode: mode})
			}
		}
	}

	results := resolve.ResolveAll(ctx, r.resolver, reqs, r.cfg.Resolve.Parallel)
	for i, res := range results {
		j := jobs[i]
		if res.Err != nil {
			cli.Writef(r.stderr, "capres: %s: %s: %v\n", files[j.file], j.site.ID, res.Err)
			return cli.ExitError
		}
		rep := reports[j.file]
		rep.entries = append(rep.entries, entry{site: j.site, request: j.request, mode: j.mode, outcome: res.Outcome})
		rep.result.Add(diagnostics.Classify(j.site.ID, res.Outcome, j.mode)...)
	}
	for _, rep := range reports {
		diagnostics.Sort(rep.result.Diagnostics)
	}

	r.logger.Info("resolved",
		"files", len(files),
		"requests", len(reqs),
		"duration", time.Since(start),
	)

	switch {
	case r.check:
		return r.outputCheck(reports)
	case r.cfg.Output.Format == "json":
		return r.outputJSON(reports)
	default:
		return r.outputText(reports)
	}
}

// expandPaths expands globs and directories into scenario files, sorted
// and without duplicates. Config files are skipped when walking directories.
func expandPaths(patterns []string) ([]string, error) {
	var files []string
	for _, pattern := range patterns {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
		}
		if len(matches) == 0 {
			matches = []string{pattern}
		}
		for _, match := range matches {
			expanded, err := expandPath(match)
			if err != nil {
				return nil, err
			}
			files = append(files, expanded...)
		}
	}
	sortutil.ByName(files, func(s string) string { return s })
	return slices.Compact(files), nil
}

func expandPath(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	var files []string
	err = filepath.WalkDir(path, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && p != path {
				return filepath.SkipDir
			}
			return nil
		}
		switch d.Name() {
		case capconfig.ConfigSky, capconfig.ConfigTOML:
			return nil
		}
		if scenario.IsScenarioFile(p) {
			files = append(files, p)
		}
		return nil
	})
	return files, err
}
