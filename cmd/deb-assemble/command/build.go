package command

import (
	"context"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/debassemble/debassemble/pkg/config"
	"github.com/debassemble/debassemble/pkg/errors"
	"github.com/debassemble/debassemble/pkg/logger"
	"github.com/debassemble/debassemble/pkg/manifest"
	"github.com/debassemble/debassemble/pkg/pipeline"
)

var buildFlags manifest.CLIOverrides

var buildCmd = &cobra.Command{
	Use:   "build <manifest.json>",
	Short: "Assemble a .deb from an upstream manifest and its packaging metadata",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		manifestFile := args[0]

		upstream, err := loadUpstream(manifestFile)
		if err != nil {
			return err
		}

		if buildFlags.ManifestPath == "" {
			buildFlags.ManifestPath = filepath.Dir(manifestFile)
		}

		cfg, err := config.Resolve(upstream, buildFlags)
		if err != nil {
			return err
		}

		if err := config.Validate(cfg); err != nil {
			return err
		}

		logger.Info("assembling package", "name", cfg.Name, "version", cfg.Version, "architecture", cfg.Architecture)

		result, err := pipeline.Assemble(context.Background(), cfg, pipeline.Options{
			OutputPath: buildFlags.Output,
			Install:    buildFlags.Install,
			NoBuild:    buildFlags.NoBuild,
		})
		if err != nil {
			return err
		}

		logger.Info("package assembled",
			"output", result.OutputPath,
			"installed-size-kib", result.InstalledSizeKiB)

		absOutputPath, err := filepath.Abs(result.OutputPath)
		if err != nil {
			return errors.Wrap(err, errors.IO, "resolving absolute output path")
		}

		cmd.Println(absOutputPath)

		return nil
	},
}

//nolint:gochecknoinits // cobra command registration, teacher idiom
func init() {
	rootCmd.AddCommand(buildCmd)

	buildCmd.Flags().StringVarP(&buildFlags.Output, "output", "o", "",
		"output .deb path (default derived from name/version/architecture)")
	buildCmd.Flags().BoolVar(&buildFlags.Install, "install", false,
		"install the package with dpkg after assembling it")
	buildCmd.Flags().BoolVar(&buildFlags.NoBuild, "no-build", false,
		"assemble from already-staged assets without invoking a build step")
	buildCmd.Flags().BoolVar(&buildFlags.NoStrip, "no-strip", false,
		"skip stripping debug symbols from staged binaries")
	buildCmd.Flags().BoolVar(&buildFlags.SeparateDebugSymbols, "separate-debug-symbols", false,
		"split debug symbols into a companion /usr/lib/debug file instead of discarding them")
	buildCmd.Flags().BoolVar(&buildFlags.Fast, "fast", false,
		"trade compression ratio for speed")
	buildCmd.Flags().StringVar(&buildFlags.Target, "target", "",
		"cross-compilation target triple")
	buildCmd.Flags().StringVar(&buildFlags.Variant, "variant", "",
		"named packaging variant to select")
	buildCmd.Flags().StringVar(&buildFlags.DebVersion, "deb-version", "",
		"override the package version recorded in the control file")
	buildCmd.Flags().StringVar(&buildFlags.ManifestPath, "manifest-path", "",
		"directory asset globs are resolved against (default: the manifest file's directory)")
}
