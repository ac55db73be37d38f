package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list [patterns...]",
	Short: "List the tests suite files declare",
	Long: `List the full title of every test declared by the matching suite files.

Examples:
  paraspec list
  paraspec list ./tests --recursive`,
	RunE: listCommand,
}

func init() {
	addLoadFlags(listCmd)
}

func listCommand(cmd *cobra.Command, args []string) error {
	v, err := validation(cmd, args)
	if err != nil {
		return err
	}

	decls := declarationsByFile(v)
	total := 0
	for _, file := range v.Files {
		d, ok := decls[file]
		if !ok {
			continue
		}
		fmt.Fprintf(cmd.OutOrStdout(), "\n%s:\n", file)
		for _, title := range d.Tests {
			fmt.Fprintf(cmd.OutOrStdout(), "  - %s\n", title)
		}
		if d.Skips > 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "    (%d skipped)\n", d.Skips)
		}
		total += len(d.Tests)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "\n%d tests in %d files\n", total, len(v.Files))
	return nil
}
