// Package depends implements the dependency detector: enumerating an
// ELF asset's dynamic library dependencies, resolving them to the
// owning Debian package via the host's package database, and
// formatting the result as Debian relation strings.
package depends

import (
	"regexp"
	"strings"

	"github.com/debassemble/debassemble/pkg/errors"
)

// DependencyRelation is a parsed Debian relation clause, used to
// validate relation strings during manifest resolution.
type DependencyRelation struct {
	Package           string
	VersionConstraint string // e.g. ">= 2.28", empty if unconstrained
	ArchQualifier     string // e.g. "amd64", empty if unqualified
}

var relationPattern = regexp.MustCompile(
	`^([a-z0-9][a-z0-9+.-]*)(:[a-zA-Z0-9-]+)?(\s*\((<<|<=|=|>=|>>)\s*([^)]+)\))?$`)

// ParseRelation validates and parses a single Debian relation clause
// such as "libc6 (>= 2.28)" or "libssl3:amd64". It does not handle
// the "|" alternative-dependency separator; callers split on "|"
// first when that syntax is allowed.
func ParseRelation(clause string) (DependencyRelation, error) {
	clause = strings.TrimSpace(clause)

	m := relationPattern.FindStringSubmatch(clause)
	if m == nil {
		return DependencyRelation{}, errors.Newf(errors.Config, "invalid relation string %q", clause)
	}

	rel := DependencyRelation{
		Package: m[1],
	}

	if m[2] != "" {
		rel.ArchQualifier = strings.TrimPrefix(m[2], ":")
	}

	if m[4] != "" {
		rel.VersionConstraint = m[4] + " " + strings.TrimSpace(m[5])
	}

	return rel, nil
}
