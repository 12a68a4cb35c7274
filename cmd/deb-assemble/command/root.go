// Package command implements the deb-assemble CLI commands.
package command

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/debassemble/debassemble/pkg/logger"
	"github.com/debassemble/debassemble/pkg/shell"
)

var (
	verbose bool
	noColor bool
)

var rootCmd = &cobra.Command{
	Use:   "deb-assemble",
	Short: "Assemble a Debian .deb package from a resolved manifest and staged build output",
	Long: "deb-assemble folds an upstream project manifest, packaging metadata, and CLI\n" +
		"overrides into a single package description, then stages, strips,\n" +
		"resolves dependencies for, and archives it into one .deb file.",
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		shouldDisableColor := noColor || os.Getenv("NO_COLOR") != ""
		logger.SetColorDisabled(shouldDisableColor)
		logger.SetVerbose(verbose)
		shell.SetVerbose(verbose)
	},
}

// Execute adds all child commands to the root command and runs it.
func Execute() {
	cobra.CheckErr(rootCmd.Execute())
}

//nolint:gochecknoinits // cobra root command wiring via init is idiomatic for this CLI structure
func init() {
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"enable verbose logging")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false,
		"disable colored output")
}
