package hook_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/strata-install/strata/pkg/hook"
)

var _ = Describe("Name", func() {
	Describe("Valid", func() {
		It("accepts on_ prefixed names", func() {
			Expect(hook.OnPacstrap.Valid()).To(BeTrue())
			Expect(hook.Name("on_custom").Valid()).To(BeTrue())
		})

		It("rejects the bare prefix and other names", func() {
			Expect(hook.Name("on_").Valid()).To(BeFalse())
			Expect(hook.Name("pacstrap").Valid()).To(BeFalse())
			Expect(hook.Name("").Valid()).To(BeFalse())
		})
	})
})

var _ = Describe("Strings", func() {
	It("passes string slices through", func() {
		Expect(hook.Strings([]string{"a", "b"})).To(Equal([]string{"a", "b"}))
	})

	It("coerces generic slices, dropping non-strings", func() {
		Expect(hook.Strings([]any{"a", 1, "b", nil})).To(Equal([]string{"a", "b"}))
	})

	It("wraps a bare string", func() {
		Expect(hook.Strings("solo")).To(Equal([]string{"solo"}))
	})

	It("returns nil for nil and unsupported kinds", func() {
		Expect(hook.Strings(nil)).To(BeNil())
		Expect(hook.Strings(42)).To(BeNil())
	})
})
