package cmd

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/abdul-hamid-achik/paraspec/packages/core/config"
	paraerrors "github.com/abdul-hamid-achik/paraspec/packages/core/errors"
	"github.com/abdul-hamid-achik/paraspec/packages/core/orchestrator"
	"github.com/abdul-hamid-achik/paraspec/packages/logging"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var runCmd = &cobra.Command{
	Use:   "run [patterns...]",
	Short: "Run suite files in parallel",
	Long: `Run every suite file matching the given patterns. A pattern is a file,
a directory, a glob, or a path without extension. Without patterns the
config file's spec list is used, and then ./test.

Examples:
  paraspec run
  paraspec run ./tests --recursive
  paraspec run "tests/**/*.yaml" --max-parallel 4 --retry 2
  paraspec run ./tests -R junit --output-file report.xml
  paraspec run ./tests --require .env --require tests/fixtures/common.yaml
  paraspec run ./tests --compilers hcl:hcl --compilers json:json`,
	RunE: runCommand,
}

var (
	configFlag string
	debugFlag  bool

	maxParallelFlag  int
	retryFlag        int
	reporterFlag     string
	reporterOptsFlag []string
	compilersFlag    []string
	requireFlag      []string
	recursiveFlag    bool
	timeoutFlag      int
	noTimeoutsFlag   bool
	dispatchRateFlag float64
	noColorFlag      bool
	verboseFlag      bool
	outputFileFlag   string
)

func init() {
	addLoadFlags(runCmd)

	// Execution flags
	runCmd.Flags().IntVar(&maxParallelFlag, "max-parallel", getEnvInt("PARASPEC_MAX_PARALLEL", 0), "Maximum files run at once (default: number of CPUs) (env: PARASPEC_MAX_PARALLEL)")
	runCmd.Flags().IntVar(&retryFlag, "retry", getEnvInt("PARASPEC_RETRY", 0), "Times a failing file is re-run (env: PARASPEC_RETRY)")
	runCmd.Flags().IntVar(&timeoutFlag, "timeout", getEnvInt("PARASPEC_TIMEOUT", config.DefaultTimeout), "Per-test timeout in milliseconds, 0 disables (env: PARASPEC_TIMEOUT)")
	runCmd.Flags().BoolVar(&noTimeoutsFlag, "no-timeouts", getEnvBool("PARASPEC_NO_TIMEOUTS", false), "Disable per-test timeouts (env: PARASPEC_NO_TIMEOUTS)")
	runCmd.Flags().Float64Var(&dispatchRateFlag, "dispatch-rate", getEnvFloat("PARASPEC_DISPATCH_RATE", 0), "Maximum file dispatches per second, 0 is unlimited (env: PARASPEC_DISPATCH_RATE)")

	// Output flags
	runCmd.Flags().StringVarP(&reporterFlag, "reporter", "R", getEnvString("PARASPEC_REPORTER", config.DefaultReporter), "Reporter: spec, json, tap, junit (env: PARASPEC_REPORTER)")
	runCmd.Flags().StringArrayVarP(&reporterOptsFlag, "reporter-option", "O", nil, "Reporter option as key=value (repeatable)")
	runCmd.Flags().BoolVar(&noColorFlag, "no-color", getEnvBool("PARASPEC_NO_COLOR", false), "Disable colored output (env: PARASPEC_NO_COLOR)")
	runCmd.Flags().BoolVarP(&verboseFlag, "verbose", "v", getEnvBool("PARASPEC_VERBOSE", false), "Show test durations and latency percentiles (env: PARASPEC_VERBOSE)")
	runCmd.Flags().StringVar(&outputFileFlag, "output-file", getEnvString("PARASPEC_OUTPUT_FILE", ""), "Write the report to a file (default: stdout) (env: PARASPEC_OUTPUT_FILE)")
}

// addLoadFlags registers the flags that decide which files load and how.
func addLoadFlags(cmd *cobra.Command) {
	cmd.Flags().StringSliceVar(&compilersFlag, "compilers", getEnvList("PARASPEC_COMPILERS"), "Extra suite formats as ext:module, e.g. hcl:hcl or ts:./compile.sh (env: PARASPEC_COMPILERS)")
	cmd.Flags().StringSliceVarP(&requireFlag, "require", "r", getEnvList("PARASPEC_REQUIRE"), "Modules loaded before discovery: .env files or library suites (env: PARASPEC_REQUIRE)")
	cmd.Flags().BoolVar(&recursiveFlag, "recursive", getEnvBool("PARASPEC_RECURSIVE", false), "Search directories recursively (env: PARASPEC_RECURSIVE)")
}

// Environment variable helpers
func getEnvString(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		return val == "true" || val == "1" || val == "yes"
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvList(key string) []string {
	var out []string
	for _, v := range strings.Split(os.Getenv(key), ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// flagSet reports whether a flag was given on the command line or through
// its environment variable.
type flagSet func(flag, envKey string) bool

func cobraFlagSet(cmd *cobra.Command) flagSet {
	return func(flag, envKey string) bool {
		if f := cmd.Flags().Lookup(flag); f != nil && f.Changed {
			return true
		}
		return envKey != "" && os.Getenv(envKey) != ""
	}
}

// flagOverlay turns the flags that were set into a config layer. Flag
// defaults come from PARASPEC_* variables, so one layer covers both.
func flagOverlay(set flagSet) (*config.Config, error) {
	overlay := &config.Config{}
	if set("max-parallel", "PARASPEC_MAX_PARALLEL") {
		if maxParallelFlag < 1 {
			return nil, paraerrors.Configf("--max-parallel must be at least 1, got %d", maxParallelFlag)
		}
		overlay.MaxParallel = maxParallelFlag
	}
	if set("retry", "PARASPEC_RETRY") {
		overlay.Retry = config.IntPtr(retryFlag)
	}
	if set("reporter", "PARASPEC_REPORTER") {
		overlay.Reporter = reporterFlag
	}
	if set("reporter-option", "") {
		opts, err := parseReporterOptions(reporterOptsFlag)
		if err != nil {
			return nil, err
		}
		overlay.ReporterOptions = opts
	}
	if set("compilers", "PARASPEC_COMPILERS") {
		overlay.Compilers = compilersFlag
	}
	if set("require", "PARASPEC_REQUIRE") {
		overlay.Require = requireFlag
	}
	if set("recursive", "PARASPEC_RECURSIVE") {
		overlay.Recursive = config.BoolPtr(recursiveFlag)
	}
	if set("timeout", "PARASPEC_TIMEOUT") {
		if timeoutFlag < 0 {
			return nil, paraerrors.Configf("--timeout must not be negative, got %d", timeoutFlag)
		}
		if timeoutFlag == 0 {
			overlay.Timeouts = config.BoolPtr(false)
		}
		overlay.Timeout = timeoutFlag
	}
	if set("no-timeouts", "PARASPEC_NO_TIMEOUTS") && noTimeoutsFlag {
		overlay.Timeouts = config.BoolPtr(false)
	}
	if set("dispatch-rate", "PARASPEC_DISPATCH_RATE") {
		overlay.DispatchRate = dispatchRateFlag
	}
	if set("no-color", "PARASPEC_NO_COLOR") {
		overlay.NoColor = config.BoolPtr(noColorFlag)
	}
	if set("verbose", "PARASPEC_VERBOSE") {
		overlay.Verbose = config.BoolPtr(verboseFlag)
	}
	return overlay, nil
}

func parseReporterOptions(pairs []string) (map[string]any, error) {
	opts := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, paraerrors.Configf("invalid reporter option %q: expected key=value", pair)
		}
		opts[key] = value
	}
	return opts, nil
}

// resolveConfig layers, lowest first: defaults, the config file, PARASPEC_*
// variables and flags given on the command line.
func resolveConfig(set flagSet) (*config.Config, error) {
	fileConfig, err := config.LoadConfig(configFlag)
	if err != nil {
		return nil, paraerrors.Configf("%v", err)
	}
	overlay, err := flagOverlay(set)
	if err != nil {
		return nil, err
	}
	cfg := config.DefaultConfig().Merge(fileConfig).Merge(overlay)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func orchestratorOptions(cfg *config.Config, patterns []string, out io.Writer) orchestrator.Options {
	if len(patterns) == 0 {
		patterns = cfg.Spec
	}
	timeouts := cfg.GetTimeouts()
	return orchestrator.Options{
		Compilers:       cfg.Compilers,
		Timeouts:        &timeouts,
		Timeout:         cfg.TimeoutDuration(),
		Recursive:       cfg.GetRecursive(),
		MaxParallel:     cfg.MaxParallel,
		Retry:           cfg.GetRetry(),
		DispatchRate:    cfg.DispatchRate,
		Require:         cfg.Require,
		Reporter:        cfg.Reporter,
		ReporterOptions: cfg.ReporterOptions,
		Patterns:        patterns,
		NoColor:         cfg.GetNoColor(),
		Verbose:         cfg.GetVerbose(),
		Output:          out,
	}
}

func runCommand(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cobraFlagSet(cmd))
	if err != nil {
		return err
	}

	logger := logging.New(debugFlag, cmd.ErrOrStderr())
	defer func() { _ = logger.Sync() }()
	logger.Debug("configuration resolved",
		zap.Bool("defaults", cfg.IsDefault()),
		zap.Int("maxParallel", cfg.MaxParallel),
		zap.Int("retry", cfg.GetRetry()),
		zap.String("reporter", cfg.Reporter))

	out := cmd.OutOrStdout()
	if outputFileFlag != "" {
		f, err := os.Create(outputFileFlag)
		if err != nil {
			return fmt.Errorf("cannot create output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	orch := orchestrator.New(
		orchestrator.WithStderr(cmd.ErrOrStderr()),
		orchestrator.WithLogger(logger),
	)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rn, err := orch.Run(ctx, orchestratorOptions(cfg, args, out))
	if err != nil {
		return err
	}
	res, err := rn.Wait(ctx)
	if err != nil {
		return fmt.Errorf("waiting for run: %w", err)
	}
	if !res.Success() {
		return errTestsFailed
	}
	return nil
}
