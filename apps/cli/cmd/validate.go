package cmd

import (
	"fmt"

	"github.com/abdul-hamid-achik/paraspec/packages/core/orchestrator"
	"github.com/abdul-hamid-achik/paraspec/packages/logging"
	"github.com/abdul-hamid-achik/paraspec/packages/suite"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate [patterns...]",
	Short: "Check that suite files load, without running them",
	Long: `Load every matching suite file the way a run does and report the ones
that fail. Nothing is executed.

Examples:
  paraspec validate
  paraspec validate ./tests --recursive
  paraspec validate api.hcl --compilers hcl:hcl`,
	RunE: validateCommand,
}

func init() {
	addLoadFlags(validateCmd)
}

// validation loads the matching files with the resolved configuration.
func validation(cmd *cobra.Command, args []string) (*orchestrator.Validation, error) {
	cfg, err := resolveConfig(cobraFlagSet(cmd))
	if err != nil {
		return nil, err
	}
	logger := logging.New(debugFlag, cmd.ErrOrStderr())
	defer func() { _ = logger.Sync() }()

	orch := orchestrator.New(
		orchestrator.WithStderr(cmd.ErrOrStderr()),
		orchestrator.WithLogger(logger),
	)
	return orch.Validate(cmd.Context(), orchestratorOptions(cfg, args, nil))
}

func declarationsByFile(v *orchestrator.Validation) map[string]suite.Declaration {
	out := make(map[string]suite.Declaration, len(v.Declarations))
	for _, d := range v.Declarations {
		out[d.File] = d
	}
	return out
}

func validateCommand(cmd *cobra.Command, args []string) error {
	v, err := validation(cmd, args)
	if err != nil {
		return err
	}

	decls := declarationsByFile(v)
	for _, file := range v.Files {
		d, ok := decls[file]
		if !ok {
			fmt.Fprintf(cmd.OutOrStdout(), "Valid: %s (library)\n", file)
			continue
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Valid: %s (%d tests, %d hooks)\n", file, len(d.Tests), d.Hooks)
	}
	return nil
}
