package config

import (
	"os"

	"github.com/go-playground/validator/v10"
	spdxexp "github.com/github/go-spdx/v2/spdxexp"

	"github.com/debassemble/debassemble/pkg/errors"
)

var structValidator = validator.New()

// Validate runs struct-tag validation (required fields) plus the checks
// a tag alone can't express: package-name grammar, SPDX license syntax,
// license_file existence, conf_files cross-referencing an asset
// destination.
func Validate(cfg *PackageConfig) error {
	if err := structValidator.Struct(cfg); err != nil {
		return errors.Wrap(err, errors.Config, "package config failed validation")
	}

	if !isValidPackageName(cfg.Name) {
		return errors.Newf(errors.Config, "invalid package name %q", cfg.Name)
	}

	if cfg.License != "" {
		if valid, _ := spdxexp.ValidateLicenses([]string{cfg.License}); !valid {
			return errors.Newf(errors.Config, "invalid SPDX license identifier %q", cfg.License)
		}
	}

	if cfg.LicenseFile != "" {
		if err := checkLicenseFileExists(cfg.LicenseFile); err != nil {
			return err
		}
	}

	if err := checkConffilesHaveAssets(cfg); err != nil {
		return err
	}

	return nil
}

func isValidPackageName(name string) bool {
	if name == "" {
		return false
	}

	if name[0] == '-' || name[0] == '.' || name[0] == '+' {
		return false
	}

	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= '0' && r <= '9':
		case r == '-' || r == '+' || r == '.':
		default:
			return false
		}
	}

	return true
}

func checkConffilesHaveAssets(cfg *PackageConfig) error {
	destinations := make(map[string]bool, len(cfg.AssetSpecs))
	for _, spec := range cfg.AssetSpecs {
		destinations[spec.Dest] = true
	}

	for _, conf := range cfg.ConfFiles {
		if !destinations[conf] && !hasLiteralAssetDest(cfg, conf) {
			// A directory-style dest ("/etc/") legitimately won't
			// match the literal conffile path; only flag when no
			// asset spec's dest plausibly produces it.
			if !anyAssetDirCovers(cfg, conf) {
				return errors.Newf(errors.Config, "conf_files entry %q has no matching asset destination", conf)
			}
		}
	}

	return nil
}

func hasLiteralAssetDest(cfg *PackageConfig, conf string) bool {
	for _, spec := range cfg.AssetSpecs {
		if spec.Dest == conf {
			return true
		}
	}

	return false
}

func anyAssetDirCovers(cfg *PackageConfig, conf string) bool {
	for _, spec := range cfg.AssetSpecs {
		if len(spec.Dest) > 0 && spec.Dest[len(spec.Dest)-1] == '/' &&
			len(conf) > len(spec.Dest) && conf[:len(spec.Dest)] == spec.Dest {
			return true
		}
	}

	return false
}

func checkLicenseFileExists(path string) error {
	if _, err := os.Stat(path); err != nil {
		return errors.Wrap(err, errors.Config, "license_file not found: "+path)
	}

	return nil
}
