// Package manifest holds the upstream project manifest record and the
// command-line override record that the Manifest Resolver folds
// together. Parsing the manifest file itself is an external
// collaborator's job (§6); this package only defines the shape a
// parser must produce.
package manifest

// AssetSpec is one raw asset declaration as written by a user: a
// source glob, a destination (directory or literal path), and an
// octal mode string.
type AssetSpec struct {
	Source string
	Dest   string
	Mode   string
}

// DebMetadata is the `[package.metadata.deb]` subtree (or one of its
// `variants.<name>` subtables), carrying every packaging field a user
// may set independently of the upstream manifest's own fields.
type DebMetadata struct {
	Name                    string
	Maintainer              string
	Copyright               string
	License                 string
	LicenseFile             string
	LicenseFileSkipLines    int
	Description             string
	ExtendedDescription     string
	ExtendedDescriptionFile string
	Homepage                string
	Section                 string
	Priority                string

	Depends     []string
	PreDepends  []string
	Recommends  []string
	Suggests    []string
	Enhances    []string
	Conflicts   []string
	Breaks      []string
	Replaces    []string
	Provides    []string

	Assets              []AssetSpec
	MaintainerScriptsDir string
	ExtraControlDir     string
	ConfFiles           []string
	TriggersFile        string
	Changelog           string
	SystemdUnits        []string

	Revision             string
	Features             []string
	DefaultFeatures      bool
	SeparateDebugSymbols bool
	PreserveSymlinks     bool
	Fast                 bool
	StripPath            string
	ObjcopyPath          string
	TargetDir            string

	// Variants is `[package.metadata.deb.variants.<name>]`: each is a
	// partial DebMetadata overlaid on the base table when selected.
	Variants map[string]DebMetadata
}

// Upstream is the assumed-parsed record exposing the fields of the
// upstream project manifest that the resolver consumes.
type Upstream struct {
	Name        string
	Version     string
	License     string
	LicenseFile string
	Description string
	Readme      string
	Homepage    string
	Repository  string
	Authors     []string
	// Binaries lists the names of binary targets the upstream build
	// declares; used to synthesize default assets when none are
	// configured.
	Binaries []string
	Metadata DebMetadata
}

// CLIOverrides is the highest-precedence layer: flags passed on the
// command line for a single invocation.
type CLIOverrides struct {
	Output               string
	Install              bool
	NoBuild              bool
	NoStrip              bool
	SeparateDebugSymbols bool
	Fast                 bool
	Target               string
	Variant              string
	DebVersion           string
	ManifestPath         string
}
