package installer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/strata-install/strata/internal/profile"
	"github.com/strata-install/strata/pkg/hook"
)

// defaultMkinitcpioHooks is the stock Arch HOOKS line.
var defaultMkinitcpioHooks = []string{
	"base", "udev", "autodetect", "microcode", "modconf",
	"kms", "keyboard", "keymap", "consolefont", "block",
	"filesystems", "fsck",
}

// stepMirrors writes the mirror list after plugins have had a chance to
// reorder or replace it. No configured mirrors means the step is a no-op,
// the live environment's list stays in place.
func (e *Engine) stepMirrors(ctx context.Context, _ *profile.Profile) error {
	mirrors := e.plugins.DispatchStrings(ctx, hook.OnMirrors, e.cfg.Mirrors, map[string]any{
		"region": e.cfg.Region,
	})

	if len(mirrors) == 0 {
		e.logger.Debug("no mirrors configured, keeping existing mirrorlist")

		return nil
	}

	var sb strings.Builder

	for _, url := range mirrors {
		fmt.Fprintf(&sb, "Server = %s\n", url)
	}

	return e.writeFile(e.mirrorlistPath, []byte(sb.String()), 0o644)
}

// stepPacstrap bootstraps the target with the profile's packages plus the
// explicitly configured ones.
func (e *Engine) stepPacstrap(ctx context.Context, prof *profile.Profile) error {
	packages := mergeUnique(prof.Packages, e.cfg.Packages)

	packages = e.plugins.DispatchStrings(ctx, hook.OnPacstrap, packages, map[string]any{
		"target": e.cfg.GetTarget(),
	})

	if len(packages) == 0 {
		return errors.New("no packages to install")
	}

	e.logger.Info("installing base system", "packages", len(packages))

	args := append([]string{"-K", e.cfg.GetTarget()}, packages...)

	return e.runCommand(ctx, "pacstrap", args...)
}

// stepGenfstab generates the target's fstab from current mounts.
func (e *Engine) stepGenfstab(ctx context.Context, _ *profile.Profile) error {
	flags := e.plugins.DispatchStrings(ctx, hook.OnGenfstab, []string{"-U"}, map[string]any{
		"target": e.cfg.GetTarget(),
	})

	if e.cfg.IsDryRun() {
		e.logger.Info("dry-run: would execute",
			"command", "genfstab",
			"args", strings.Join(append(flags, e.cfg.GetTarget()), " "),
		)

		return nil
	}

	result, err := e.runner.Run(ctx, "genfstab", append(flags, e.cfg.GetTarget())...)
	if result != nil && result.ExitCode != 0 {
		return errors.Wrapf(ErrCommandFailed, "genfstab exited with code %d", result.ExitCode)
	}

	if err != nil {
		return errors.Wrap(err, "executing genfstab")
	}

	fstabPath := filepath.Join(e.cfg.GetTarget(), "etc", "fstab")

	return e.writeFile(fstabPath, []byte(result.Stdout), 0o644)
}

// stepMkinitcpio regenerates the initramfs. When plugins change the hook
// list, the new list is dropped into mkinitcpio.conf.d first.
func (e *Engine) stepMkinitcpio(ctx context.Context, _ *profile.Profile) error {
	hooks := e.plugins.DispatchStrings(ctx, hook.OnMkinitcpio, defaultMkinitcpioHooks, map[string]any{
		"target": e.cfg.GetTarget(),
	})

	if !equalStrings(hooks, defaultMkinitcpioHooks) {
		confPath := filepath.Join(e.cfg.GetTarget(), "etc", "mkinitcpio.conf.d", "strata.conf")
		line := fmt.Sprintf("HOOKS=(%s)\n", strings.Join(hooks, " "))

		if err := e.writeFile(confPath, []byte(line), 0o644); err != nil {
			return err
		}
	}

	return e.runInTarget(ctx, "mkinitcpio", "-P")
}

// stepServices enables systemd units in the target. A plugin returning an
// empty string for on_service drops that unit.
func (e *Engine) stepServices(ctx context.Context, prof *profile.Profile) error {
	for _, svc := range mergeUnique(prof.Services, e.cfg.Services) {
		name := toString(e.plugins.Dispatch(ctx, hook.OnService, svc, map[string]any{
			"target": e.cfg.GetTarget(),
		}))

		if name == "" {
			e.logger.Info("service skipped by plugin", "service", svc)

			continue
		}

		if err := e.runInTarget(ctx, "systemctl", "enable", name); err != nil {
			return err
		}
	}

	return nil
}

// stepUsers creates the configured accounts in the target.
func (e *Engine) stepUsers(ctx context.Context, _ *profile.Profile) error {
	for _, user := range e.cfg.Users {
		spec := map[string]any{
			"username": user.Username,
			"groups":   user.Groups,
			"shell":    user.GetShell(),
		}

		out := e.plugins.Dispatch(ctx, hook.OnUserCreate, spec, map[string]any{
			"target": e.cfg.GetTarget(),
		})

		if m, ok := out.(map[string]any); ok {
			spec = m
		}

		username := toString(spec["username"])
		if username == "" {
			e.logger.Warn("user dropped by plugin", "username", user.Username)

			continue
		}

		args := []string{"-m", "-s", toString(spec["shell"])}

		if groups := hook.Strings(spec["groups"]); len(groups) > 0 {
			args = append(args, "-G", strings.Join(groups, ","))
		}

		args = append(args, username)

		if err := e.runInTarget(ctx, "useradd", args...); err != nil {
			return err
		}
	}

	return nil
}

// stepCustomCommands runs user-supplied shell commands inside the target.
// The batch was syntax-checked before the first step ran.
func (e *Engine) stepCustomCommands(ctx context.Context, _ *profile.Profile) error {
	for _, cmd := range e.cfg.CustomCommands {
		e.logger.Info("running custom command", "command", cmd)

		if err := e.runInTarget(ctx, "/bin/bash", "-c", cmd); err != nil {
			return err
		}
	}

	return nil
}

// writeFile writes a file on disk, honoring dry-run mode.
func (e *Engine) writeFile(path string, data []byte, mode os.FileMode) error {
	if e.cfg.IsDryRun() {
		e.logger.Info("dry-run: would write file",
			"path", path,
			"bytes", len(data),
		)

		return nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrapf(err, "creating directory for %s", path)
	}

	if err := os.WriteFile(path, data, mode); err != nil {
		return errors.Wrapf(err, "writing %s", path)
	}

	return nil
}

// mergeUnique concatenates two lists preserving order, dropping duplicates.
func mergeUnique(a, b []string) []string {
	out := make([]string, 0, len(a)+len(b))
	seen := make(map[string]bool, len(a)+len(b))

	for _, s := range append(append([]string{}, a...), b...) {
		if s == "" || seen[s] {
			continue
		}

		seen[s] = true
		out = append(out, s)
	}

	return out
}

// equalStrings compares two slices element-wise.
func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}

	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}

	return true
}

// toString coerces a dispatched scalar back to a string.
func toString(v any) string {
	s, _ := v.(string)

	return s
}
