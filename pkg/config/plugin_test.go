package config_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/strata-install/strata/pkg/config"
)

var _ = Describe("PluginConfig", func() {
	Describe("IsEnabled", func() {
		It("defaults to enabled", func() {
			Expect((&config.PluginConfig{}).IsEnabled()).To(BeTrue())
		})

		It("is disabled for a nil config", func() {
			var p *config.PluginConfig

			Expect(p.IsEnabled()).To(BeFalse())
		})

		It("honors an explicit false", func() {
			off := false

			Expect((&config.PluginConfig{Enabled: &off}).IsEnabled()).To(BeFalse())
		})
	})

	Describe("DiscoveryEnabled", func() {
		It("defaults to enabled, even on nil", func() {
			var p *config.PluginConfig

			Expect(p.DiscoveryEnabled()).To(BeTrue())
			Expect((&config.PluginConfig{}).DiscoveryEnabled()).To(BeTrue())
		})
	})

	Describe("IsDisabled", func() {
		It("matches listed names only", func() {
			p := &config.PluginConfig{Disabled: []string{"noisy"}}

			Expect(p.IsDisabled("noisy")).To(BeTrue())
			Expect(p.IsDisabled("quiet")).To(BeFalse())
		})
	})

	Describe("GetDefaultTimeout", func() {
		It("falls back to five seconds", func() {
			Expect((&config.PluginConfig{}).GetDefaultTimeout()).To(Equal(5 * time.Second))
		})

		It("uses the configured value", func() {
			p := &config.PluginConfig{DefaultTimeout: config.Duration(time.Minute)}

			Expect(p.GetDefaultTimeout()).To(Equal(time.Minute))
		})
	})
})

var _ = Describe("PluginInstanceConfig", func() {
	Describe("AllowsHook", func() {
		It("allows everything with no patterns", func() {
			c := &config.PluginInstanceConfig{}

			Expect(c.AllowsHook("on_pacstrap")).To(BeTrue())
		})

		It("matches glob patterns", func() {
			c := &config.PluginInstanceConfig{Hooks: []string{"on_pac*", "on_mirrors"}}

			Expect(c.AllowsHook("on_pacstrap")).To(BeTrue())
			Expect(c.AllowsHook("on_mirrors")).To(BeTrue())
			Expect(c.AllowsHook("on_service")).To(BeFalse())
		})

		It("treats invalid patterns as non-matching", func() {
			c := &config.PluginInstanceConfig{Hooks: []string{"on_[unclosed"}}

			Expect(c.AllowsHook("on_pacstrap")).To(BeFalse())
		})
	})

	Describe("GetTimeout", func() {
		It("inherits the default when unset", func() {
			c := &config.PluginInstanceConfig{}

			Expect(c.GetTimeout(3 * time.Second)).To(Equal(3 * time.Second))
		})

		It("prefers its own value", func() {
			c := &config.PluginInstanceConfig{Timeout: config.Duration(time.Second)}

			Expect(c.GetTimeout(3 * time.Second)).To(Equal(time.Second))
		})
	})
})

var _ = Describe("Duration", func() {
	It("parses duration strings", func() {
		var d config.Duration

		Expect(d.UnmarshalText([]byte("1m30s"))).To(Succeed())
		Expect(d.ToDuration()).To(Equal(90 * time.Second))
	})

	It("rejects negative durations", func() {
		var d config.Duration

		Expect(d.UnmarshalText([]byte("-5s"))).To(MatchError(config.ErrNegativeDuration))
	})

	It("rejects garbage", func() {
		var d config.Duration

		Expect(d.UnmarshalText([]byte("soon"))).NotTo(Succeed())
	})
})

var _ = Describe("InstallConfig", func() {
	It("defaults the target mount point", func() {
		var i *config.InstallConfig

		Expect(i.GetTarget()).To(Equal("/mnt/archinstall"))
		Expect((&config.InstallConfig{Target: "/mnt/x"}).GetTarget()).To(Equal("/mnt/x"))
	})

	It("defaults dry-run off", func() {
		Expect((&config.InstallConfig{}).IsDryRun()).To(BeFalse())
	})

	It("defaults the user shell", func() {
		u := config.UserConfig{Username: "dev"}

		Expect(u.GetShell()).To(Equal("/bin/bash"))
	})
})
