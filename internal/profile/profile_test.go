package profile_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/strata-install/strata/internal/profile"
)

var _ = Describe("Resolver", func() {
	var (
		dir      string
		resolver *profile.Resolver
	)

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
		resolver = profile.NewResolverWithDir(dir)
	})

	writeProfile := func(name, body string) {
		Expect(os.WriteFile(
			filepath.Join(dir, name+".yaml"), []byte(body), 0o600,
		)).To(Succeed())
	}

	Describe("Resolve", func() {
		It("resolves builtin profiles", func() {
			p, err := resolver.Resolve("minimal")

			Expect(err).NotTo(HaveOccurred())
			Expect(p.Name).To(Equal("minimal"))
			Expect(p.Packages).To(Equal([]string{"base", "linux", "linux-firmware"}))
			Expect(p.Services).To(BeEmpty())
		})

		It("includes services for the server builtin", func() {
			p, err := resolver.Resolve("server")

			Expect(err).NotTo(HaveOccurred())
			Expect(p.Packages).To(ContainElement("openssh"))
			Expect(p.Services).To(Equal([]string{"sshd"}))
		})

		It("loads user profiles from the directory", func() {
			writeProfile("web", `
name: web
description: nginx box
packages: [base, linux, nginx]
services: [nginx]
`)

			p, err := resolver.Resolve("web")

			Expect(err).NotTo(HaveOccurred())
			Expect(p.Description).To(Equal("nginx box"))
			Expect(p.Packages).To(Equal([]string{"base", "linux", "nginx"}))
			Expect(p.Services).To(Equal([]string{"nginx"}))
		})

		It("lets a user profile shadow a builtin of the same name", func() {
			writeProfile("minimal", "packages: [base, linux, zsh]\n")

			p, err := resolver.Resolve("minimal")

			Expect(err).NotTo(HaveOccurred())
			Expect(p.Packages).To(Equal([]string{"base", "linux", "zsh"}))
		})

		It("defaults the name from the file name", func() {
			writeProfile("kiosk", "packages: [base, linux, cage]\n")

			p, err := resolver.Resolve("kiosk")

			Expect(err).NotTo(HaveOccurred())
			Expect(p.Name).To(Equal("kiosk"))
		})

		It("fails for an unknown profile", func() {
			_, err := resolver.Resolve("nope")

			Expect(err).To(MatchError(profile.ErrProfileNotFound))
		})

		It("fails for malformed YAML", func() {
			writeProfile("broken", "packages: [unclosed\n")

			_, err := resolver.Resolve("broken")

			Expect(err).To(HaveOccurred())
			Expect(err).NotTo(MatchError(profile.ErrProfileNotFound))
		})
	})

	Describe("Names", func() {
		It("lists builtins when the directory is empty", func() {
			Expect(resolver.Names()).To(Equal([]string{"desktop", "minimal", "server"}))
		})

		It("merges user profiles sorted and without duplicates", func() {
			writeProfile("web", "packages: [nginx]\n")
			writeProfile("minimal", "packages: [base]\n")

			Expect(resolver.Names()).To(Equal([]string{"desktop", "minimal", "server", "web"}))
		})

		It("ignores non-yaml entries", func() {
			Expect(os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o600)).To(Succeed())
			Expect(os.MkdirAll(filepath.Join(dir, "sub.yaml"), 0o755)).To(Succeed())

			Expect(resolver.Names()).To(Equal([]string{"desktop", "minimal", "server"}))
		})
	})
})
