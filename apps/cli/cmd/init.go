package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/abdul-hamid-achik/paraspec/packages/core/config"
	"github.com/spf13/cobra"
)

var forceInit bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a new paraspec project",
	Long: `Initialize a new paraspec project in the current directory.

This creates:
  - .paraspec.yaml      - Configuration file
  - test/example.yaml   - Example suite file

Examples:
  paraspec init
  paraspec init --force`,
	RunE: initCommand,
}

func init() {
	initCmd.Flags().BoolVarP(&forceInit, "force", "f", false, "Overwrite existing files")
}

const exampleSuite = `describe: example
vars:
  greeting: hello

before:
  - exec: echo setup

tests:
  - it: runs a command
    exec: echo {{greeting}} from {{$HOME}}
    expect:
      exit: 0
      stdout: "{{greeting}}"

  - it: checks an endpoint
    skip: true
    http:
      method: GET
      url: http://localhost:3000/health
    expect:
      status: 200
      json:
        status: ok

suites:
  - describe: nested
    beforeEach:
      - exec: "true"
    tests:
      - it: inherits variables
        exec: printf '%s' {{greeting}}
        expect:
          stdout:
            equals: hello
`

func initCommand(cmd *cobra.Command, args []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return err
	}

	configFile := filepath.Join(cwd, ".paraspec.yaml")
	exampleFile := filepath.Join(cwd, config.DefaultPatterns[0], "example.yaml")

	if !forceInit {
		for _, f := range []string{configFile, exampleFile} {
			if _, err := os.Stat(f); err == nil {
				return fmt.Errorf("file already exists: %s (use --force to overwrite)", f)
			}
		}
	}

	cfg := &config.Config{
		Reporter: config.DefaultReporter,
		Retry:    config.IntPtr(1),
		Timeout:  config.DefaultTimeout,
		Spec:     config.DefaultPatterns,
	}
	if err := cfg.SaveConfig(configFile); err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created: %s\n", configFile)

	if err := os.MkdirAll(filepath.Dir(exampleFile), 0755); err != nil {
		return fmt.Errorf("failed to create test directory: %w", err)
	}
	if err := os.WriteFile(exampleFile, []byte(exampleSuite), 0644); err != nil {
		return fmt.Errorf("failed to create example file: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created: %s\n", exampleFile)

	fmt.Fprintf(cmd.OutOrStdout(), "\nparaspec project initialized!\n")
	fmt.Fprintf(cmd.OutOrStdout(), "Run 'paraspec run' to execute the example suite.\n")

	return nil
}
