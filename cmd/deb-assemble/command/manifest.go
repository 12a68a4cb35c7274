package command

import (
	"encoding/json"
	"os"

	"github.com/debassemble/debassemble/pkg/errors"
	"github.com/debassemble/debassemble/pkg/manifest"
)

// loadUpstream reads the pre-parsed upstream manifest record from a
// JSON file. Parsing the project's own native manifest format (a
// Cargo.toml-style TOML file) is left to an external collaborator;
// deb-assemble's own input format is this JSON rendering of
// manifest.Upstream, which a real caller would produce after its own
// TOML/YAML parse.
func loadUpstream(path string) (manifest.Upstream, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return manifest.Upstream{}, errors.Wrap(err, errors.IO, "reading manifest file "+path)
	}

	var upstream manifest.Upstream
	if err := json.Unmarshal(content, &upstream); err != nil {
		return manifest.Upstream{}, errors.Wrap(err, errors.Config, "parsing manifest file "+path)
	}

	return upstream, nil
}
