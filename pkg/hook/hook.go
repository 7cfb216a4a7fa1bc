// Package hook provides core types for strata extension points.
//
// A hook is a named point in the installation flow where plugin-supplied
// behavior may transform a value before the installer uses it. Hook names
// follow the on_<verb> convention and form a contract between the host call
// site and plugin authors; the argument shape of each hook is documented at
// its constant below.
package hook

import "strings"

// Name identifies an extension point.
type Name string

// Hooks dispatched by the installation engine. The documented value is what
// a plugin receives and may replace; Args carry supporting context.
const (
	// OnPacstrap transforms the package list before pacstrap runs.
	// Value: []string package names. Args: "target" mount point.
	OnPacstrap Name = "on_pacstrap"

	// OnMirrors transforms the mirror URL list before it is written.
	// Value: []string mirror URLs. Args: "region".
	OnMirrors Name = "on_mirrors"

	// OnGenfstab transforms the genfstab flag list.
	// Value: []string flags. Args: "target".
	OnGenfstab Name = "on_genfstab"

	// OnMkinitcpio transforms the initramfs hook list.
	// Value: []string mkinitcpio hooks. Args: "target".
	OnMkinitcpio Name = "on_mkinitcpio"

	// OnService transforms a service name before it is enabled; returning
	// an empty string skips the service. Value: string. Args: "target".
	OnService Name = "on_service"

	// OnUserCreate transforms a user definition before useradd runs.
	// Value: map with "username", "groups", "shell". Args: "target".
	OnUserCreate Name = "on_user_create"
)

// Prefix is the required hook-name prefix. Loaders use it to pick hook
// functions out of a plugin's exports.
const Prefix = "on_"

// Valid reports whether the name follows the on_<verb> convention.
func (n Name) Valid() bool {
	return strings.HasPrefix(string(n), Prefix) && len(n) > len(Prefix)
}

// String returns the hook name as a plain string.
func (n Name) String() string {
	return string(n)
}

// Call is a single hook invocation constructed by a host call site.
// It exists only for the duration of dispatch and is never persisted.
type Call struct {
	// Hook is the extension point being dispatched.
	Hook Name

	// Value is the value being transformed. Each plugin in the chain sees
	// the value as left by the previous plugin.
	Value any

	// Args carry supporting context that plugins may read but not replace.
	Args map[string]any
}

// Strings coerces a dispatched value back to a string slice. Plugins loaded
// from scripts return []any, so both representations are accepted. Non-string
// elements are dropped.
func Strings(v any) []string {
	switch vv := v.(type) {
	case nil:
		return nil
	case []string:
		return vv
	case []any:
		out := make([]string, 0, len(vv))

		for _, el := range vv {
			if s, ok := el.(string); ok {
				out = append(out, s)
			}
		}

		return out
	case string:
		return []string{vv}
	default:
		return nil
	}
}
