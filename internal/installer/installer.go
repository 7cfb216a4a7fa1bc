// Package installer runs the installation steps, dispatching hooks so
// plugins can reshape each step's inputs.
package installer

import (
	"context"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/hako/durafmt"
	"mvdan.cc/sh/v3/syntax"

	"github.com/strata-install/strata/internal/dispatcher"
	"github.com/strata-install/strata/internal/exec"
	"github.com/strata-install/strata/internal/profile"
	"github.com/strata-install/strata/pkg/config"
	"github.com/strata-install/strata/pkg/logger"
)

const (
	// defaultCommandTimeout bounds a single external command. pacstrap can
	// legitimately run for a long time on slow mirrors.
	defaultCommandTimeout = 30 * time.Minute

	// defaultMirrorlistPath is where the mirror list is written on the host.
	defaultMirrorlistPath = "/etc/pacman.d/mirrorlist"
)

var (
	// ErrCommandFailed is returned when an external command exits non-zero.
	ErrCommandFailed = errors.New("command failed")

	// ErrInvalidCommand is returned when a custom command fails the shell
	// syntax check.
	ErrInvalidCommand = errors.New("invalid custom command")
)

// Engine executes the installation steps in order. Each step dispatches its
// hook before acting, so plugins see and may transform the step's input.
type Engine struct {
	cfg            *config.InstallConfig
	plugins        *dispatcher.Dispatcher
	resolver       *profile.Resolver
	runner         exec.CommandRunner
	logger         logger.Logger
	mirrorlistPath string
}

// Option configures an Engine.
type Option func(*Engine)

// WithRunner sets the command runner (for testing).
func WithRunner(runner exec.CommandRunner) Option {
	return func(e *Engine) {
		e.runner = runner
	}
}

// WithResolver sets the profile resolver.
func WithResolver(resolver *profile.Resolver) Option {
	return func(e *Engine) {
		e.resolver = resolver
	}
}

// WithMirrorlistPath overrides the mirror list location (for testing).
func WithMirrorlistPath(path string) Option {
	return func(e *Engine) {
		e.mirrorlistPath = path
	}
}

// NewEngine creates an installation engine.
func NewEngine(
	cfg *config.InstallConfig,
	plugins *dispatcher.Dispatcher,
	log logger.Logger,
	opts ...Option,
) *Engine {
	e := &Engine{
		cfg:            cfg,
		plugins:        plugins,
		resolver:       profile.NewResolver(),
		runner:         exec.NewCommandRunner(defaultCommandTimeout),
		logger:         log,
		mirrorlistPath: defaultMirrorlistPath,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// step is one named unit of the installation flow.
type step struct {
	name string
	run  func(ctx context.Context, prof *profile.Profile) error
}

// Run executes the full installation. Custom commands are syntax-checked up
// front so a typo fails before anything touches the target.
func (e *Engine) Run(ctx context.Context) error {
	if err := ValidateCustomCommands(e.cfg.CustomCommands); err != nil {
		return err
	}

	prof, err := e.resolveProfile()
	if err != nil {
		return err
	}

	steps := []step{
		{name: "mirrors", run: e.stepMirrors},
		{name: "pacstrap", run: e.stepPacstrap},
		{name: "genfstab", run: e.stepGenfstab},
		{name: "mkinitcpio", run: e.stepMkinitcpio},
		{name: "services", run: e.stepServices},
		{name: "users", run: e.stepUsers},
		{name: "custom-commands", run: e.stepCustomCommands},
	}

	for _, s := range steps {
		start := time.Now()

		e.logger.Info("step started", "step", s.name)

		if err := s.run(ctx, prof); err != nil {
			return errors.Wrapf(err, "step %s failed", s.name)
		}

		e.logger.Info("step completed",
			"step", s.name,
			"took", durafmt.Parse(time.Since(start)).LimitFirstN(2).String(),
		)
	}

	return nil
}

// resolveProfile loads the configured profile, or an empty one when none
// is set.
func (e *Engine) resolveProfile() (*profile.Profile, error) {
	if e.cfg.Profile == "" {
		return &profile.Profile{}, nil
	}

	prof, err := e.resolver.Resolve(e.cfg.Profile)
	if err != nil {
		return nil, err
	}

	e.logger.Info("using profile",
		"profile", prof.Name,
		"packages", len(prof.Packages),
	)

	return prof, nil
}

// ValidateCustomCommands parses each command as shell and rejects the batch
// on the first syntax error.
func ValidateCustomCommands(commands []string) error {
	parser := syntax.NewParser()

	for _, cmd := range commands {
		if strings.TrimSpace(cmd) == "" {
			return errors.Wrap(ErrInvalidCommand, "empty command")
		}

		if _, err := parser.Parse(strings.NewReader(cmd), ""); err != nil {
			return errors.Wrapf(ErrInvalidCommand, "%q: %v", cmd, err)
		}
	}

	return nil
}

// runCommand executes a command against the host, honoring dry-run mode.
func (e *Engine) runCommand(ctx context.Context, name string, args ...string) error {
	if e.cfg.IsDryRun() {
		e.logger.Info("dry-run: would execute",
			"command", name,
			"args", strings.Join(args, " "),
		)

		return nil
	}

	result, err := e.runner.Run(ctx, name, args...)
	if result != nil && result.ExitCode != 0 {
		e.logger.Error("command failed",
			"command", name,
			"exit_code", result.ExitCode,
			"stderr", strings.TrimSpace(result.Stderr),
		)

		return errors.Wrapf(ErrCommandFailed, "%s exited with code %d", name, result.ExitCode)
	}

	if err != nil {
		return errors.Wrapf(err, "executing %s", name)
	}

	return nil
}

// runInTarget executes a command inside the target via arch-chroot.
func (e *Engine) runInTarget(ctx context.Context, name string, args ...string) error {
	chrootArgs := append([]string{e.cfg.GetTarget(), name}, args...)

	return e.runCommand(ctx, "arch-chroot", chrootArgs...)
}
