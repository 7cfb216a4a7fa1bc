// Package updater checks whether a newer strata release is available.
package updater

import (
	"context"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/cockroachdb/errors"

	"github.com/strata-install/strata/internal/github"
)

const (
	// GitHubOwner is the repository owner for release lookups.
	GitHubOwner = "strata-install"

	// GitHubRepo is the repository name for release lookups.
	GitHubRepo = "strata"
)

// ErrAlreadyLatest is returned when the current version is already the latest.
var ErrAlreadyLatest = errors.New("already up to date")

// Checker compares the running version against the latest GitHub release.
type Checker struct {
	currentVersion string
	ghClient       github.Client
}

// NewChecker creates a Checker for the given running version.
func NewChecker(currentVersion string, ghClient github.Client) *Checker {
	return &Checker{
		currentVersion: currentVersion,
		ghClient:       ghClient,
	}
}

// CheckLatest returns the latest release tag, or ErrAlreadyLatest when the
// running version is current. Dev builds always report the latest tag.
func (c *Checker) CheckLatest(ctx context.Context) (string, error) {
	release, err := c.ghClient.GetLatestRelease(ctx, GitHubOwner, GitHubRepo)
	if err != nil {
		return "", errors.Wrap(err, "checking latest release")
	}

	tag := release.TagName

	if c.currentVersion == "dev" {
		return tag, nil
	}

	latestVer, err := semver.NewVersion(strings.TrimPrefix(tag, "v"))
	if err != nil {
		return "", errors.Wrapf(err, "parsing latest version %q", tag)
	}

	currentVer, err := semver.NewVersion(strings.TrimPrefix(c.currentVersion, "v"))
	if err != nil {
		return "", errors.Wrapf(err, "parsing current version %q", c.currentVersion)
	}

	if !currentVer.LessThan(latestVer) {
		return "", ErrAlreadyLatest
	}

	return tag, nil
}
