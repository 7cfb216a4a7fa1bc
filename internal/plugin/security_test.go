package plugin_test

import (
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/strata-install/strata/internal/plugin"
)

var _ = Describe("Security", func() {
	Describe("ValidatePath", func() {
		It("accepts a normal absolute path", func() {
			Expect(plugin.ValidatePath("/usr/lib/strata/plugins/pkglist.lua")).To(Succeed())
		})

		It("rejects an empty path", func() {
			Expect(plugin.ValidatePath("")).NotTo(Succeed())
		})

		It("rejects path traversal", func() {
			err := plugin.ValidatePath("/plugins/../../etc/passwd")

			Expect(err).To(MatchError(plugin.ErrPathTraversal))
		})

		It("rejects a leading traversal", func() {
			Expect(plugin.ValidatePath("../plugin.lua")).To(MatchError(plugin.ErrPathTraversal))
		})

		It("allows dots inside file names", func() {
			Expect(plugin.ValidatePath("/plugins/my..plugin.lua")).To(Succeed())
		})
	})

	Describe("ValidateExtension", func() {
		It("accepts a listed extension case-insensitively", func() {
			Expect(plugin.ValidateExtension("/p/a.LUA", []string{".lua"})).To(Succeed())
		})

		It("rejects anything else", func() {
			err := plugin.ValidateExtension("/p/a.sh", []string{".lua"})

			Expect(err).To(MatchError(plugin.ErrInvalidExtension))
		})
	})

	Describe("ValidateMetachars", func() {
		It("accepts plain paths", func() {
			Expect(plugin.ValidateMetachars("/usr/local/bin/my-plugin_v2")).To(Succeed())
		})

		It("rejects shell metacharacters", func() {
			for _, path := range []string{"/p/a;b", "/p/a|b", "/p/a$(b)", "/p/a`b`"} {
				Expect(plugin.ValidateMetachars(path)).To(MatchError(plugin.ErrDangerousChars))
			}
		})
	})

	Describe("SanitizePanicMessage", func() {
		It("strips file paths", func() {
			out := plugin.SanitizePanicMessage("open /home/user/.secret/token.json: denied")

			Expect(out).NotTo(ContainSubstring("/home/user"))
			Expect(out).To(ContainSubstring("<path>"))
		})

		It("bounds the message length", func() {
			out := plugin.SanitizePanicMessage(strings.Repeat("x", 500))

			Expect(len(out)).To(BeNumerically("<=", 203))
			Expect(out).To(HaveSuffix("..."))
		})
	})
})
