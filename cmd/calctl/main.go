// Command calctl works with calendar definition files offline: it validates
// them, converts imports from other calendar tools to YAML, and answers date
// questions (linear time, weekdays, moons, recurrences) without a server.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "calctl",
		Short:         "Fantasy calendar toolkit",
		Long:          "Validate, convert and query fantasy calendar definitions. Dates are written YEAR-MONTH-DAY with 1-based months, optionally followed by THH:MM:SS.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringP("calendar", "c", "calendar.yaml", "calendar file (YAML, native JSON export, or a supported import format)")
	root.PersistentFlags().StringP("output", "o", "yaml", "output format: yaml or json")

	root.AddCommand(
		newValidateCmd(),
		newConvertCmd(),
		newMigrateCmd(),
		newToSecondsCmd(),
		newFromSecondsCmd(),
		newDateCmd(),
		newMonthCmd(),
		newNextCmd(),
	)
	return root
}
