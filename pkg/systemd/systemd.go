// Package systemd implements a small optional add-on to the control
// generator: when a package declares systemd unit files, it
// contributes them as staged assets under /lib/systemd/system and
// merges enable/daemon-reload fragments into the maintainer scripts,
// the way a minimal dh_installsystemd equivalent would.
package systemd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/debassemble/debassemble/pkg/assets"
	"github.com/debassemble/debassemble/pkg/errors"
)

const unitDir = "/lib/systemd/system"

// Assets turns a list of on-disk unit file paths into staged assets
// under /lib/systemd/system, mode 0644, tagged with OriginSystemd so
// later diagnostics can tell they weren't user-declared.
func Assets(unitFiles []string) (assets.AssetList, error) {
	out := make(assets.AssetList, 0, len(unitFiles))

	for _, path := range unitFiles {
		if !strings.HasSuffix(path, ".service") {
			return nil, errors.Newf(errors.Config, "systemd unit %q: only .service files are supported", path)
		}

		out = append(out, assets.Asset{
			SourcePath:    path,
			InstalledPath: filepath.Join(unitDir, filepath.Base(path)),
			Mode:          0o644,
			Origin:        assets.OriginSystemd,
		})
	}

	return out, nil
}

// unitNames derives the bare unit name (service.service) for each
// staged systemd asset, in the order the list holds them.
func unitNames(staged assets.AssetList) []string {
	names := make([]string, 0, len(staged))

	for _, a := range staged {
		if a.Origin == assets.OriginSystemd {
			names = append(names, filepath.Base(a.InstalledPath))
		}
	}

	return names
}

// MergeScriptFragments appends systemctl enable/start fragments to
// postinst, stop/disable fragments to prerm, and a daemon-reload
// fragment to postrm, guarding every invocation with the
// /run/systemd/system check so packages installed in a container
// without an init system don't fail. Existing script bodies are kept
// verbatim and the add-on's own fragment is appended after them.
func MergeScriptFragments(scripts map[string]string, staged assets.AssetList) map[string]string {
	names := unitNames(staged)
	if len(names) == 0 {
		return scripts
	}

	out := make(map[string]string, len(scripts))
	for k, v := range scripts {
		out[k] = v
	}

	out["postinst"] = appendFragment(out["postinst"], postinstFragment(names))
	out["prerm"] = appendFragment(out["prerm"], prermFragment(names))
	out["postrm"] = appendFragment(out["postrm"], postrmFragment())

	return out
}

func appendFragment(body, fragment string) string {
	if body == "" {
		return "#!/bin/sh\nset -e\n" + fragment
	}

	return strings.TrimRight(body, "\n") + "\n" + fragment
}

func postinstFragment(names []string) string {
	var b strings.Builder

	b.WriteString("if [ -d /run/systemd/system ]; then\n")
	b.WriteString("    systemctl --system daemon-reload >/dev/null 2>&1 || true\n")

	for _, name := range names {
		fmt.Fprintf(&b, "    systemctl enable %s >/dev/null 2>&1 || true\n", name)
		fmt.Fprintf(&b, "    systemctl start %s >/dev/null 2>&1 || true\n", name)
	}

	b.WriteString("fi\n")

	return b.String()
}

func prermFragment(names []string) string {
	var b strings.Builder

	b.WriteString("if [ -d /run/systemd/system ] && [ \"$1\" = remove ]; then\n")

	for _, name := range names {
		fmt.Fprintf(&b, "    systemctl stop %s >/dev/null 2>&1 || true\n", name)
		fmt.Fprintf(&b, "    systemctl disable %s >/dev/null 2>&1 || true\n", name)
	}

	b.WriteString("fi\n")

	return b.String()
}

func postrmFragment() string {
	return "if [ -d /run/systemd/system ]; then\n" +
		"    systemctl --system daemon-reload >/dev/null 2>&1 || true\n" +
		"fi\n"
}
