package fetch_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/strata-install/strata/internal/fetch"
	"github.com/strata-install/strata/pkg/logger"
)

var _ = Describe("IsRemote", func() {
	DescribeTable("classifies plugin paths",
		func(path string, remote bool) {
			Expect(fetch.IsRemote(path)).To(Equal(remote))
		},
		Entry("http URL", "http://example.com/p.lua", true),
		Entry("https URL", "https://example.com/p.lua", true),
		Entry("file URL", "file:///opt/p.lua", false),
		Entry("absolute path", "/opt/plugins/p.lua", false),
		Entry("relative path", "plugins/p.lua", false),
		Entry("empty string", "", false),
	)
})

var _ = Describe("Localizer", func() {
	var (
		server    *httptest.Server
		handler   http.HandlerFunc
		localizer *fetch.Localizer
	)

	BeforeEach(func() {
		handler = func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("function on_pacstrap(value) return value end\n"))
		}

		server = httptest.NewServer(http.HandlerFunc(
			func(w http.ResponseWriter, r *http.Request) { handler(w, r) }))
		DeferCleanup(server.Close)

		localizer = fetch.NewLocalizerWithClient(server.Client(), logger.NewNoOpLogger())
	})

	It("downloads a plugin to a temp file", func() {
		path, err := localizer.Localize(context.Background(), server.URL+"/pkglist.lua")

		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(func() { _ = os.Remove(path) })

		data, err := os.ReadFile(path)

		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).To(ContainSubstring("on_pacstrap"))
	})

	It("preserves the file extension for loader selection", func() {
		path, err := localizer.Localize(context.Background(), server.URL+"/dir/pkglist.lua")

		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(func() { _ = os.Remove(path) })

		Expect(filepath.Ext(path)).To(Equal(".lua"))
		Expect(filepath.Base(path)).To(HavePrefix("strata-plugin-"))
	})

	It("rejects non-http schemes", func() {
		_, err := localizer.Localize(context.Background(), "ftp://example.com/p.lua")

		Expect(err).To(MatchError(fetch.ErrUnsupportedScheme))
	})

	It("fails on non-200 responses", func() {
		handler = func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}

		_, err := localizer.Localize(context.Background(), server.URL+"/missing.lua")

		Expect(err).To(MatchError(ContainSubstring("status 404")))
	})

	It("rejects downloads over the size limit", func() {
		huge := bytes.Repeat([]byte("a"), 16<<20+1)
		handler = func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write(huge)
		}

		_, err := localizer.Localize(context.Background(), server.URL+"/huge.lua")

		Expect(err).To(MatchError(fetch.ErrTooLarge))
	})

	It("honors context cancellation", func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := localizer.Localize(ctx, server.URL+"/pkglist.lua")

		Expect(err).To(HaveOccurred())
	})

	It("does not leave a temp file behind on oversized downloads", func() {
		huge := strings.Repeat("a", 16<<20+1)
		handler = func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(huge))
		}

		before := tempPluginFiles()

		_, err := localizer.Localize(context.Background(), server.URL+"/huge.lua")

		Expect(err).To(HaveOccurred())
		Expect(tempPluginFiles()).To(Equal(before))
	})
})

func tempPluginFiles() []string {
	matches, err := filepath.Glob(filepath.Join(os.TempDir(), "strata-plugin-*"))
	Expect(err).NotTo(HaveOccurred())

	return matches
}
