// Package config implements the manifest resolver: folding the
// upstream manifest, base user metadata, selected variant, and CLI
// overrides into a single validated PackageConfig.
package config

import (
	"github.com/debassemble/debassemble/pkg/assets"
	"github.com/debassemble/debassemble/pkg/manifest"
)

// AutoDependsSentinel is the literal string that, when present in a
// relation list, triggers the dependency detector's auto-detection
// expansion.
const AutoDependsSentinel = "$auto"

// PackageConfig is the fully resolved description of one package, as
// produced by the manifest resolver and subsequently augmented by the
// asset planner (default asset insertion) and dependency detector
// (depends expansion) before being frozen for the control generator
// and archive writer.
type PackageConfig struct {
	Name         string `validate:"required"`
	Version      string `validate:"required"`
	Revision     string
	Architecture string `validate:"required"`
	Variant      string

	Maintainer              string `validate:"required"`
	Copyright               string
	License                 string
	LicenseFile             string
	LicenseFileSkipLines    int
	Homepage                string
	Section                 string
	Priority                string
	Description             string `validate:"required"`
	ExtendedDescription     string
	ExtendedDescriptionFile string

	Depends    []string
	PreDepends []string
	Recommends []string
	Suggests   []string
	Enhances   []string
	Conflicts  []string
	Breaks     []string
	Replaces   []string
	Provides   []string

	AssetSpecs           []manifest.AssetSpec
	Assets               assets.AssetList
	MaintainerScriptsDir string
	ConfFiles            []string
	TriggersFile         string
	Changelog            string
	SystemdUnits         []string
	ExtraControlDir      string

	Features             []string
	DefaultFeatures      bool
	SeparateDebugSymbols bool
	PreserveSymlinks     bool
	Fast                 bool
	StripEnabled         bool
	StripPath            string
	ObjcopyPath          string
	TargetDir            string
	ManifestDir          string
	Target               string // selected target triple, empty for native
}

// validPriorities are the only Priority values dpkg's policy permits.
var validPriorities = map[string]bool{
	"required": true, "important": true, "standard": true,
	"optional": true, "extra": true,
}
