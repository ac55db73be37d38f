package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "paraspec",
	Short: "Run file-based test suites in parallel.",
	Long: `paraspec discovers suite files, checks that each one loads, and runs
them across a pool of workers, retrying failing files and reporting the
aggregate result.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute(v, bt string) {
	version = v
	buildTime = bt
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errTestsFailed) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(exitCode(err))
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", getEnvString("PARASPEC_CONFIG", ""), "Path to config file (env: PARASPEC_CONFIG)")
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", getEnvBool("PARASPEC_DEBUG", false), "Log orchestration phases to stderr (env: PARASPEC_DEBUG)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(initCmd)
}
