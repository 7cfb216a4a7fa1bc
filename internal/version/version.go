// Package version holds the host version and plugin compatibility checks.
package version

import (
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/cockroachdb/errors"
)

// Version is the host version, overridden by ldflags at release build time.
var Version = "dev"

// Compatible reports whether the host version satisfies the given semver
// constraint (e.g. ">= 1.2"). Dev builds satisfy every constraint. An empty
// constraint is always compatible.
func Compatible(constraint string) (bool, error) {
	return CompatibleWith(Version, constraint)
}

// CompatibleWith checks an explicit host version against a constraint.
func CompatibleWith(hostVersion, constraint string) (bool, error) {
	if constraint == "" {
		return true, nil
	}

	if hostVersion == "dev" {
		return true, nil
	}

	c, err := semver.NewConstraint(constraint)
	if err != nil {
		return false, errors.Wrapf(err, "invalid version constraint %q", constraint)
	}

	v, err := semver.NewVersion(strings.TrimPrefix(hostVersion, "v"))
	if err != nil {
		return false, errors.Wrapf(err, "invalid host version %q", hostVersion)
	}

	return c.Check(v), nil
}
