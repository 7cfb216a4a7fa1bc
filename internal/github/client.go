// Package github wraps the GitHub API for release lookups.
package github

import (
	"context"
	"net/http"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/google/go-github/v84/github"
)

var (
	// ErrRepositoryNotFound is returned when the repository does not exist.
	ErrRepositoryNotFound = errors.New("repository not found")

	// ErrNoReleases is returned when the repository has no releases.
	ErrNoReleases = errors.New("no releases found")
)

// Release is a published GitHub release.
type Release struct {
	TagName string
	Name    string
	HTMLURL string
}

// Client defines the GitHub API operations strata needs.
type Client interface {
	// GetLatestRelease retrieves the latest release for a repository.
	GetLatestRelease(ctx context.Context, owner, repo string) (*Release, error)
}

// SDKClient implements Client using the go-github SDK.
type SDKClient struct {
	client *github.Client
}

// NewClient creates a GitHub client. GH_TOKEN or GITHUB_TOKEN, when set,
// authenticates requests; release lookups work unauthenticated too.
func NewClient() *SDKClient {
	var httpClient *http.Client

	if token := getToken(); token != "" {
		httpClient = &http.Client{
			Transport: &authTransport{token: token},
		}
	}

	return &SDKClient{client: github.NewClient(httpClient)}
}

// getToken retrieves a GitHub token from the environment.
func getToken() string {
	if token := os.Getenv("GH_TOKEN"); token != "" {
		return token
	}

	return os.Getenv("GITHUB_TOKEN")
}

// authTransport injects the bearer token into outgoing requests.
type authTransport struct {
	token string
}

func (t *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())
	clone.Header.Set("Authorization", "Bearer "+t.token)

	return http.DefaultTransport.RoundTrip(clone)
}

// GetLatestRelease retrieves the latest release for a repository.
func (c *SDKClient) GetLatestRelease(ctx context.Context, owner, repo string) (*Release, error) {
	release, resp, err := c.client.Repositories.GetLatestRelease(ctx, owner, repo)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return nil, errors.Wrapf(ErrRepositoryNotFound, "%s/%s", owner, repo)
		}

		return nil, errors.Wrap(err, "fetching latest release")
	}

	if release == nil || release.GetTagName() == "" {
		return nil, errors.Wrapf(ErrNoReleases, "%s/%s", owner, repo)
	}

	return &Release{
		TagName: release.GetTagName(),
		Name:    release.GetName(),
		HTMLURL: release.GetHTMLURL(),
	}, nil
}
