package plugin

import (
	"bytes"
	"context"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/strata-install/strata/internal/exec"
	"github.com/strata-install/strata/pkg/config"
	"github.com/strata-install/strata/pkg/hook"
	"github.com/strata-install/strata/pkg/plugin"
)

const (
	// defaultExecPluginTimeout is the default timeout for exec plugin operations.
	defaultExecPluginTimeout = 5 * time.Second
)

var (
	// ErrPluginInfoFailed is returned when plugin --info execution fails.
	ErrPluginInfoFailed = errors.New("plugin --info exited with non-zero code")

	// ErrPluginExecFailed is returned when plugin execution fails.
	ErrPluginExecFailed = errors.New("plugin execution failed with non-zero code")
)

// ExecLoader loads plugins as external executables that communicate via JSON.
//
// Protocol:
//   - Info: execute with --info, returns JSON-encoded plugin.Info (including
//     the "hooks" name list) on stdout
//   - Hook call: execute with --hook <name>, JSON-encoded plugin.HookRequest
//     on stdin, JSON-encoded plugin.HookResponse on stdout; a null value
//     means "no change"
type ExecLoader struct {
	runner exec.CommandRunner
}

// NewExecLoader creates a new exec plugin loader.
func NewExecLoader(runner exec.CommandRunner) *ExecLoader {
	return &ExecLoader{
		runner: runner,
	}
}

// Load loads an exec plugin from the specified path.
//
//nolint:ireturn // interface return is required by Loader interface
func (l *ExecLoader) Load(cfg *config.PluginInstanceConfig) (Plugin, error) {
	if err := ValidatePath(cfg.Path); err != nil {
		return nil, err
	}

	// Defense-in-depth: reject paths with shell metacharacters even though
	// exec.Command never passes them through a shell.
	if err := ValidateMetachars(cfg.Path); err != nil {
		return nil, errors.Wrap(err, "invalid characters in plugin path")
	}

	info, err := l.fetchInfo(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "failed to fetch plugin info")
	}

	table := make(map[hook.Name]bool, len(info.Hooks))

	for _, raw := range info.Hooks {
		name := hook.Name(strings.TrimSpace(raw))
		if name.Valid() {
			table[name] = true
		}
	}

	return &execPluginAdapter{
		path:    cfg.Path,
		args:    cfg.Args,
		timeout: cfg.GetTimeout(defaultExecPluginTimeout),
		config:  cfg.Config,
		info:    info,
		table:   table,
		runner:  l.runner,
	}, nil
}

// Close releases any resources held by the loader.
func (*ExecLoader) Close() error {
	// No global resources to clean up
	return nil
}

// fetchInfo fetches plugin metadata by executing with the --info flag.
func (l *ExecLoader) fetchInfo(cfg *config.PluginInstanceConfig) (plugin.Info, error) {
	ctx, cancel := context.WithTimeout(
		context.Background(),
		cfg.GetTimeout(defaultExecPluginTimeout),
	)
	defer cancel()

	args := append([]string{"--info"}, cfg.Args...)

	result, err := l.runner.Run(ctx, cfg.Path, args...)
	if result != nil && result.ExitCode != 0 {
		return plugin.Info{}, errors.Wrapf(
			ErrPluginInfoFailed,
			"exit code %d: %s",
			result.ExitCode,
			result.Stderr,
		)
	}

	if err != nil {
		return plugin.Info{}, errors.Wrap(err, "failed to execute plugin --info")
	}

	var info plugin.Info
	if err := json.Unmarshal([]byte(result.Stdout), &info); err != nil {
		return plugin.Info{}, errors.Wrap(err, "failed to parse plugin info JSON")
	}

	return info, nil
}

// execPluginAdapter adapts an external executable to the internal Plugin interface.
type execPluginAdapter struct {
	path    string
	args    []string
	timeout time.Duration
	config  map[string]any
	info    plugin.Info
	table   map[hook.Name]bool
	runner  exec.CommandRunner
}

// Info returns metadata about the plugin.
func (a *execPluginAdapter) Info() plugin.Info {
	return a.info
}

// Hooks returns the capability table reported by --info.
func (a *execPluginAdapter) Hooks() []hook.Name {
	names := make([]hook.Name, 0, len(a.table))
	for name := range a.table {
		names = append(names, name)
	}

	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })

	return names
}

// Invoke executes the plugin with the hook request on stdin.
func (a *execPluginAdapter) Invoke(ctx context.Context, call *hook.Call) (any, error) {
	if !a.table[call.Hook] {
		return nil, nil
	}

	req := &plugin.HookRequest{
		Hook:   call.Hook.String(),
		Value:  call.Value,
		Args:   call.Args,
		Config: a.config,
	}

	reqJSON, err := json.Marshal(req)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal hook request to JSON")
	}

	// Apply the plugin timeout if the context doesn't carry a deadline.
	execCtx := ctx
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc

		execCtx, cancel = context.WithTimeout(ctx, a.timeout)

		defer cancel()
	}

	args := append([]string{"--hook", call.Hook.String()}, a.args...)

	result, err := a.runner.RunWithStdin(execCtx, bytes.NewReader(reqJSON), a.path, args...)
	if result != nil && result.ExitCode != 0 {
		return nil, errors.Wrapf(
			ErrPluginExecFailed,
			"exit code %d: %s",
			result.ExitCode,
			result.Stderr,
		)
	}

	if err != nil {
		return nil, errors.Wrap(err, "plugin execution failed")
	}

	out := strings.TrimSpace(result.Stdout)
	if out == "" {
		return nil, nil
	}

	var resp plugin.HookResponse
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		return nil, errors.Wrap(err, "failed to parse hook response JSON")
	}

	return resp.Value, nil
}

// Close releases any resources held by the plugin.
func (*execPluginAdapter) Close() error {
	// No resources to clean up for exec plugins
	return nil
}
