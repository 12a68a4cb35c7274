package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/debassemble/debassemble/pkg/dependencies"
	"github.com/debassemble/debassemble/pkg/depends"
	"github.com/debassemble/debassemble/pkg/errors"
	"github.com/debassemble/debassemble/pkg/manifest"
	"github.com/debassemble/debassemble/pkg/platform"
)

// Resolve folds the four precedence layers — upstream manifest, base
// user metadata, selected variant, CLI overrides, highest precedence
// last — into a validated PackageConfig, then applies its defaulting
// rules.
func Resolve(upstream manifest.Upstream, cli manifest.CLIOverrides) (*PackageConfig, error) {
	cfg := &PackageConfig{
		Name:        upstream.Name,
		Version:     upstream.Version,
		License:     upstream.License,
		LicenseFile: upstream.LicenseFile,
		Description: upstream.Description,
		Homepage:    upstream.Homepage,
		ManifestDir: resolveManifestDir(cli.ManifestPath),
	}

	if len(upstream.Authors) > 0 {
		cfg.Maintainer = upstream.Authors[0]
	}

	overlayMetadata(cfg, upstream.Metadata)

	if cli.Variant != "" {
		variant, ok := upstream.Metadata.Variants[cli.Variant]
		if !ok {
			return nil, errors.Newf(errors.Config, "unknown variant %q", cli.Variant)
		}

		overlayMetadata(cfg, variant)
		cfg.Variant = cli.Variant

		if variant.Name == "" {
			cfg.Name = upstreamOrBaseName(upstream, cfg) + "-" + cli.Variant
		}
	}

	applyCLIOverrides(cfg, cli)

	if err := applyDefaults(cfg, upstream); err != nil {
		return nil, err
	}

	return cfg, nil
}

func upstreamOrBaseName(upstream manifest.Upstream, cfg *PackageConfig) string {
	if upstream.Metadata.Name != "" {
		return upstream.Metadata.Name
	}

	return upstream.Name
}

// overlayMetadata applies every non-zero field of m onto cfg,
// last-write-wins for scalars. Relation list fields (Depends,
// Conflicts, and the rest) replace outright; conf_files concatenates
// here and is deduplicated later in applyDefaults (its asset
// destination cross-check runs in Validate).
func overlayMetadata(cfg *PackageConfig, m manifest.DebMetadata) {
	overlayString(&cfg.Name, m.Name)
	overlayString(&cfg.Maintainer, m.Maintainer)
	overlayString(&cfg.Copyright, m.Copyright)
	overlayString(&cfg.License, m.License)
	overlayString(&cfg.LicenseFile, m.LicenseFile)
	overlayString(&cfg.Description, m.Description)
	overlayString(&cfg.ExtendedDescription, m.ExtendedDescription)
	overlayString(&cfg.ExtendedDescriptionFile, m.ExtendedDescriptionFile)
	overlayString(&cfg.Homepage, m.Homepage)
	overlayString(&cfg.Section, m.Section)
	overlayString(&cfg.Priority, m.Priority)
	overlayString(&cfg.MaintainerScriptsDir, m.MaintainerScriptsDir)
	overlayString(&cfg.ExtraControlDir, m.ExtraControlDir)
	overlayString(&cfg.TriggersFile, m.TriggersFile)
	overlayString(&cfg.Changelog, m.Changelog)
	overlayString(&cfg.StripPath, m.StripPath)
	overlayString(&cfg.ObjcopyPath, m.ObjcopyPath)
	overlayString(&cfg.TargetDir, m.TargetDir)
	overlayString(&cfg.Revision, m.Revision)

	if m.LicenseFileSkipLines != 0 {
		cfg.LicenseFileSkipLines = m.LicenseFileSkipLines
	}

	overlayList(&cfg.Depends, m.Depends)
	overlayList(&cfg.PreDepends, m.PreDepends)
	overlayList(&cfg.Recommends, m.Recommends)
	overlayList(&cfg.Suggests, m.Suggests)
	overlayList(&cfg.Enhances, m.Enhances)
	overlayList(&cfg.Conflicts, m.Conflicts)
	overlayList(&cfg.Breaks, m.Breaks)
	overlayList(&cfg.Replaces, m.Replaces)
	overlayList(&cfg.Provides, m.Provides)
	overlayList(&cfg.Features, m.Features)
	overlayList(&cfg.SystemdUnits, m.SystemdUnits)

	if len(m.Assets) > 0 {
		cfg.AssetSpecs = m.Assets
	}

	cfg.ConfFiles = append(cfg.ConfFiles, m.ConfFiles...)

	if m.DefaultFeatures {
		cfg.DefaultFeatures = true
	}

	if m.SeparateDebugSymbols {
		cfg.SeparateDebugSymbols = true
	}

	if m.PreserveSymlinks {
		cfg.PreserveSymlinks = true
	}

	if m.Fast {
		cfg.Fast = true
	}
}

func overlayString(dst *string, src string) {
	if src != "" {
		*dst = src
	}
}

func overlayList(dst *[]string, src []string) {
	if len(src) > 0 {
		*dst = src
	}
}

func applyCLIOverrides(cfg *PackageConfig, cli manifest.CLIOverrides) {
	cfg.StripEnabled = !cli.NoStrip

	if cli.SeparateDebugSymbols {
		cfg.SeparateDebugSymbols = true
	}

	if cli.Fast {
		cfg.Fast = true
	}

	if cli.Target != "" {
		cfg.Target = cli.Target
	}

	if cli.DebVersion != "" {
		cfg.Version = cli.DebVersion
	}
}

// applyDefaults runs the defaulting rules, in order, after the layer
// merge completes.
func applyDefaults(cfg *PackageConfig, upstream manifest.Upstream) error {
	if cfg.Copyright == "" {
		author := strings.Join(upstream.Authors, ", ")
		cfg.Copyright = fmt.Sprintf("%d %s", currentYear(), author)
	}

	if cfg.Description == "" {
		return errors.New(errors.Config, "description is required")
	}

	if cfg.ExtendedDescription == "" {
		switch {
		case cfg.ExtendedDescriptionFile != "":
			content, err := os.ReadFile(cfg.ExtendedDescriptionFile)
			if err != nil {
				return errors.Wrap(err, errors.Config, "reading extended description file")
			}

			cfg.ExtendedDescription = string(content)
		case upstream.Readme != "":
			if content, err := os.ReadFile(upstream.Readme); err == nil {
				cfg.ExtendedDescription = string(content)
			}
		}
	}

	if cfg.Priority != "" && !validPriorities[cfg.Priority] {
		return errors.Newf(errors.Config, "unknown priority %q", cfg.Priority)
	}

	if cfg.Revision == "" {
		cfg.Revision = "1"
	}

	arch, err := platform.DebianArch(cfg.Target)
	if err != nil {
		return errors.Wrap(err, errors.Config, "resolving architecture")
	}

	cfg.Architecture = arch

	if len(cfg.AssetSpecs) == 0 {
		cfg.AssetSpecs = defaultAssetSpecs(upstream)
	}

	cfg.ConfFiles = dedupStrings(cfg.ConfFiles)

	relationFields := map[string][]string{
		"Depends":    cfg.Depends,
		"PreDepends": cfg.PreDepends,
		"Recommends": cfg.Recommends,
		"Suggests":   cfg.Suggests,
		"Enhances":   cfg.Enhances,
		"Conflicts":  cfg.Conflicts,
		"Breaks":     cfg.Breaks,
		"Replaces":   cfg.Replaces,
		"Provides":   cfg.Provides,
	}

	for field, relations := range relationFields {
		for _, rel := range relations {
			if field == "Depends" && rel == AutoDependsSentinel {
				continue
			}

			if _, err := depends.ParseRelation(rel); err != nil {
				return errors.Wrap(err, errors.Config, "invalid "+field+" relation string")
			}
		}
	}

	return nil
}

// defaultAssetSpecs synthesizes one "/usr/bin/<bin>" entry per
// declared binary target, plus a README doc entry when the upstream
// manifest names one.
func defaultAssetSpecs(upstream manifest.Upstream) []manifest.AssetSpec {
	var specs []manifest.AssetSpec

	triplePart := "release"

	for _, bin := range upstream.Binaries {
		specs = append(specs, manifest.AssetSpec{
			Source: "target/" + triplePart + "/" + bin,
			Dest:   "/usr/bin/" + bin,
			Mode:   "755",
		})
	}

	if upstream.Readme != "" {
		if _, err := os.Stat(upstream.Readme); err == nil {
			specs = append(specs, manifest.AssetSpec{
				Source: upstream.Readme,
				Dest:   "/usr/share/doc/" + upstream.Name + "/README",
				Mode:   "644",
			})
		}
	}

	return specs
}

func dedupStrings(in []string) []string {
	seen := make(map[string]bool, len(in))

	out := make([]string, 0, len(in))

	for _, s := range dependencies.NormalizeBackupFiles(in) {
		if !seen[s] {
			seen[s] = true

			out = append(out, s)
		}
	}

	return out
}

func currentYear() int {
	if v := os.Getenv("SOURCE_DATE_EPOCH"); v != "" {
		if epoch, err := strconv.ParseInt(v, 10, 64); err == nil {
			return time.Unix(epoch, 0).UTC().Year()
		}
	}

	return time.Now().UTC().Year()
}

func resolveManifestDir(manifestPath string) string {
	if manifestPath == "" {
		return "."
	}

	return manifestPath
}
