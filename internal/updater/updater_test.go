package updater_test

import (
	"context"

	"github.com/cockroachdb/errors"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/strata-install/strata/internal/github"
	"github.com/strata-install/strata/internal/updater"
)

// fakeClient serves a fixed release, recording the requested repository.
type fakeClient struct {
	release *github.Release
	err     error

	owner string
	repo  string
}

func (f *fakeClient) GetLatestRelease(_ context.Context, owner, repo string) (*github.Release, error) {
	f.owner = owner
	f.repo = repo

	if f.err != nil {
		return nil, f.err
	}

	return f.release, nil
}

var _ = Describe("Checker", func() {
	var client *fakeClient

	BeforeEach(func() {
		client = &fakeClient{release: &github.Release{TagName: "v1.2.0"}}
	})

	Describe("CheckLatest", func() {
		It("queries the strata release repository", func() {
			checker := updater.NewChecker("dev", client)

			_, err := checker.CheckLatest(context.Background())

			Expect(err).NotTo(HaveOccurred())
			Expect(client.owner).To(Equal(updater.GitHubOwner))
			Expect(client.repo).To(Equal(updater.GitHubRepo))
		})

		It("always reports the latest tag for dev builds", func() {
			checker := updater.NewChecker("dev", client)

			tag, err := checker.CheckLatest(context.Background())

			Expect(err).NotTo(HaveOccurred())
			Expect(tag).To(Equal("v1.2.0"))
		})

		It("reports a newer release", func() {
			checker := updater.NewChecker("v1.1.3", client)

			tag, err := checker.CheckLatest(context.Background())

			Expect(err).NotTo(HaveOccurred())
			Expect(tag).To(Equal("v1.2.0"))
		})

		It("returns ErrAlreadyLatest when on the latest version", func() {
			checker := updater.NewChecker("v1.2.0", client)

			_, err := checker.CheckLatest(context.Background())

			Expect(err).To(MatchError(updater.ErrAlreadyLatest))
		})

		It("returns ErrAlreadyLatest when ahead of the latest release", func() {
			checker := updater.NewChecker("v1.3.0", client)

			_, err := checker.CheckLatest(context.Background())

			Expect(err).To(MatchError(updater.ErrAlreadyLatest))
		})

		It("wraps client errors", func() {
			client.err = errors.New("rate limited")
			checker := updater.NewChecker("v1.0.0", client)

			_, err := checker.CheckLatest(context.Background())

			Expect(err).To(MatchError(ContainSubstring("checking latest release")))
		})

		It("fails on an unparseable release tag", func() {
			client.release.TagName = "release-candidate"
			checker := updater.NewChecker("v1.0.0", client)

			_, err := checker.CheckLatest(context.Background())

			Expect(err).To(MatchError(ContainSubstring("parsing latest version")))
		})
	})
})
