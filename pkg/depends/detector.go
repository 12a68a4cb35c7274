package depends

import (
	"context"
	"debug/elf"
	"sort"
	"strings"

	"github.com/debassemble/debassemble/pkg/dependencies"
	"github.com/debassemble/debassemble/pkg/logger"
	"github.com/debassemble/debassemble/pkg/shell"
)

// ElfNeeded enumerates the DT_NEEDED soname entries of an ELF binary
// at path, grounded on the same debug/elf package the staged-file
// type detector already uses for magic-number sniffing.
func ElfNeeded(path string) ([]string, error) {
	file, err := elf.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return file.ImportedLibraries()
}

// Resolve expands $auto (or an empty depends list) into concrete
// Debian relation strings by inspecting every ELF asset staged under a
// system executable/library directory.
//
// elfPaths are the on-disk paths of staged ELF assets already
// identified by the caller (the asset planner and binary post-processor
// know which assets are ELF and where they're staged; this package
// only needs the resulting path list). existing is the user-supplied
// depends list, which may or may not contain the $auto sentinel.
func Resolve(ctx context.Context, elfPaths []string, existing []string) []string {
	hasAuto := false

	var userEntries []string

	for _, dep := range existing {
		if dep == "$auto" {
			hasAuto = true
			continue
		}

		userEntries = append(userEntries, dep)
	}

	if !hasAuto && len(existing) > 0 {
		return existing
	}

	sonames := map[string]bool{}

	for _, path := range elfPaths {
		needed, err := ElfNeeded(path)
		if err != nil {
			logger.Debug("reading ELF NEEDED entries failed", "path", path, "error", err)
			continue
		}

		for _, soname := range needed {
			sonames[soname] = true
		}
	}

	if len(sonames) == 0 {
		return userEntries
	}

	if !shell.LookPath("dpkg-query") {
		logger.Warn("dependency auto-detection unavailable: dpkg-query not found on PATH")
		return userEntries
	}

	generated := resolveSonames(ctx, sonames)
	generated = dependencies.DedupeHighestVersion(generated)

	return append(append([]string{}, userEntries...), generated...)
}

func resolveSonames(ctx context.Context, sonames map[string]bool) []string {
	seenPackages := map[string]bool{}

	sortedSonames := make([]string, 0, len(sonames))
	for soname := range sonames {
		sortedSonames = append(sortedSonames, soname)
	}

	sort.Strings(sortedSonames)

	var relations []string

	for _, soname := range sortedSonames {
		pkgName, ok := ownerPackage(ctx, soname)
		if !ok || seenPackages[pkgName] {
			continue
		}

		seenPackages[pkgName] = true

		version, ok := packageVersion(ctx, pkgName)
		if !ok {
			relations = append(relations, pkgName)
			continue
		}

		relations = append(relations, pkgName+" (>= "+version+")")
	}

	return relations
}

// ownerPackage queries dpkg's file database for the package owning a
// shared-object soname. dpkg-query -S searches by filename, so this
// looks up any library path ending in the soname.
func ownerPackage(ctx context.Context, soname string) (string, bool) {
	result, err := shell.Output(ctx, "", "dpkg-query", "-S", "*/"+soname)
	if err != nil {
		return "", false
	}

	line := strings.SplitN(strings.TrimSpace(result.Stdout), "\n", 2)[0]

	idx := strings.Index(line, ":")
	if idx < 0 {
		return "", false
	}

	return line[:idx], true
}

func packageVersion(ctx context.Context, pkgName string) (string, bool) {
	result, err := shell.Output(ctx, "", "dpkg-query", "-W", "-f=${Version}", pkgName)
	if err != nil {
		return "", false
	}

	version := strings.TrimSpace(result.Stdout)
	if version == "" {
		return "", false
	}

	return version, true
}
