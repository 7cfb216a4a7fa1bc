package plugin_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/strata-install/strata/internal/plugin"
	"github.com/strata-install/strata/pkg/config"
	"github.com/strata-install/strata/pkg/hook"
)

var _ = Describe("LuaLoader", func() {
	var (
		loader *plugin.LuaLoader
		dir    string
		ctx    context.Context
	)

	BeforeEach(func() {
		loader = plugin.NewLuaLoader()
		dir = GinkgoT().TempDir()
		ctx = context.Background()
	})

	load := func(body string) plugin.Plugin {
		path := writeLuaPlugin(dir, "plugin.lua", body)

		p, err := loader.Load(&config.PluginInstanceConfig{Path: path})

		ExpectWithOffset(1, err).NotTo(HaveOccurred())

		return p
	}

	Describe("Load", func() {
		It("rejects non-lua extensions", func() {
			_, err := loader.Load(&config.PluginInstanceConfig{Path: "/p/plugin.sh"})

			Expect(err).To(MatchError(plugin.ErrInvalidExtension))
		})

		It("rejects scripts that fail to run", func() {
			path := writeLuaPlugin(dir, "broken.lua", "function on_pacstrap(")

			_, err := loader.Load(&config.PluginInstanceConfig{Path: path})

			Expect(err).NotTo(Succeed())
		})

		It("reads metadata from the strata global", func() {
			p := load(`
strata = {
    name = "meta",
    version = "2.1.0",
    description = "test plugin",
    requires = ">= 1.0",
}
function on_pacstrap(value, args) return value end
`)
			defer func() { _ = p.Close() }()

			info := p.Info()

			Expect(info.Name).To(Equal("meta"))
			Expect(info.Version).To(Equal("2.1.0"))
			Expect(info.Description).To(Equal("test plugin"))
			Expect(info.Requires).To(Equal(">= 1.0"))
			Expect(info.Hooks).To(Equal([]string{"on_pacstrap"}))
		})

		It("builds the capability table from on_ globals only", func() {
			p := load(`
function on_pacstrap(value, args) return value end
function on_mirrors(value, args) return value end
function helper() return 1 end
function on_() return 1 end
`)
			defer func() { _ = p.Close() }()

			Expect(p.Hooks()).To(Equal([]hook.Name{hook.OnMirrors, hook.OnPacstrap}))
		})

		It("falls back to the configured name without metadata", func() {
			path := writeLuaPlugin(dir, "plugin.lua", "function on_pacstrap(v, a) return v end")

			p, err := loader.Load(&config.PluginInstanceConfig{Name: "from-config", Path: path})

			Expect(err).NotTo(HaveOccurred())

			defer func() { _ = p.Close() }()

			Expect(p.Info().Name).To(Equal("from-config"))
		})
	})

	Describe("Invoke", func() {
		It("transforms the value", func() {
			p := load(`
function on_pacstrap(value, args)
    table.insert(value, "extra-pkg")
    return value
end
`)
			defer func() { _ = p.Close() }()

			out, err := p.Invoke(ctx, &hook.Call{
				Hook:  hook.OnPacstrap,
				Value: []string{"nano"},
			})

			Expect(err).NotTo(HaveOccurred())
			Expect(hook.Strings(out)).To(Equal([]string{"nano", "extra-pkg"}))
		})

		It("treats a lua nil return as no change", func() {
			p := load("function on_pacstrap(value, args) return nil end")
			defer func() { _ = p.Close() }()

			out, err := p.Invoke(ctx, &hook.Call{Hook: hook.OnPacstrap, Value: []string{"base"}})

			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(BeNil())
		})

		It("reads call args", func() {
			p := load(`
function on_mirrors(value, args)
    return { "https://" .. args.region .. ".example.org" }
end
`)
			defer func() { _ = p.Close() }()

			out, err := p.Invoke(ctx, &hook.Call{
				Hook:  hook.OnMirrors,
				Value: []string{},
				Args:  map[string]any{"region": "de"},
			})

			Expect(err).NotTo(HaveOccurred())
			Expect(hook.Strings(out)).To(Equal([]string{"https://de.example.org"}))
		})

		It("surfaces lua runtime errors", func() {
			p := load(`function on_pacstrap(value, args) error("boom") end`)
			defer func() { _ = p.Close() }()

			_, err := p.Invoke(ctx, &hook.Call{Hook: hook.OnPacstrap, Value: []string{}})

			Expect(err).To(MatchError(ContainSubstring("boom")))
		})

		It("returns nil for hooks the script does not implement", func() {
			p := load("function on_pacstrap(value, args) return value end")
			defer func() { _ = p.Close() }()

			out, err := p.Invoke(ctx, &hook.Call{Hook: hook.OnMirrors, Value: []string{"x"}})

			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(BeNil())
		})
	})

	Describe("sandbox", func() {
		It("does not expose io or os", func() {
			path := writeLuaPlugin(dir, "escape.lua", `
if io ~= nil or os ~= nil then
    error("sandbox leak")
end
function on_pacstrap(value, args) return value end
`)

			p, err := loader.Load(&config.PluginInstanceConfig{Path: path})

			Expect(err).NotTo(HaveOccurred())
			Expect(p.Close()).To(Succeed())
		})

		It("disables file loading primitives", func() {
			path := writeLuaPlugin(dir, "escape.lua", `
if dofile ~= nil or loadfile ~= nil or load ~= nil then
    error("sandbox leak")
end
function on_pacstrap(value, args) return value end
`)

			_, err := loader.Load(&config.PluginInstanceConfig{Path: path})

			Expect(err).NotTo(HaveOccurred())
		})
	})
})
