package plugin_test

import (
	"context"
	"encoding/json"
	"io"
	"time"

	"github.com/cockroachdb/errors"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/strata-install/strata/internal/exec"
	"github.com/strata-install/strata/internal/plugin"
	"github.com/strata-install/strata/pkg/config"
	"github.com/strata-install/strata/pkg/hook"
	pluginapi "github.com/strata-install/strata/pkg/plugin"
)

// fakeRunner is a scripted CommandRunner: each call pops the next response.
type fakeRunner struct {
	responses []*exec.CommandResult
	errs      []error
	calls     [][]string
	stdins    []string
}

func (r *fakeRunner) Run(ctx context.Context, name string, args ...string) (*exec.CommandResult, error) {
	return r.RunWithStdin(ctx, nil, name, args...)
}

func (r *fakeRunner) RunWithStdin(
	_ context.Context,
	stdin io.Reader,
	name string,
	args ...string,
) (*exec.CommandResult, error) {
	r.calls = append(r.calls, append([]string{name}, args...))

	if stdin != nil {
		data, _ := io.ReadAll(stdin)
		r.stdins = append(r.stdins, string(data))
	} else {
		r.stdins = append(r.stdins, "")
	}

	idx := len(r.calls) - 1

	var err error
	if idx < len(r.errs) {
		err = r.errs[idx]
	}

	if idx < len(r.responses) {
		return r.responses[idx], err
	}

	return &exec.CommandResult{}, err
}

func (r *fakeRunner) RunWithTimeout(_ time.Duration, name string, args ...string) (*exec.CommandResult, error) {
	return r.Run(context.Background(), name, args...)
}

func infoJSON(info pluginapi.Info) string {
	data, err := json.Marshal(info)

	ExpectWithOffset(1, err).NotTo(HaveOccurred())

	return string(data)
}

var _ = Describe("ExecLoader", func() {
	var (
		runner *fakeRunner
		loader *plugin.ExecLoader
		ctx    context.Context
	)

	BeforeEach(func() {
		runner = &fakeRunner{}
		loader = plugin.NewExecLoader(runner)
		ctx = context.Background()
	})

	Describe("Load", func() {
		It("rejects paths with shell metacharacters", func() {
			_, err := loader.Load(&config.PluginInstanceConfig{Path: "/p/evil;rm"})

			Expect(err).To(MatchError(plugin.ErrDangerousChars))
		})

		It("queries --info and builds the capability table", func() {
			runner.responses = []*exec.CommandResult{{
				Stdout: infoJSON(pluginapi.Info{
					Name:    "tuner",
					Version: "1.2.3",
					Hooks:   []string{"on_mirrors", "not-a-hook", " on_pacstrap "},
				}),
			}}

			p, err := loader.Load(&config.PluginInstanceConfig{Path: "/p/tuner"})

			Expect(err).NotTo(HaveOccurred())
			Expect(p.Info().Name).To(Equal("tuner"))
			Expect(p.Hooks()).To(Equal([]hook.Name{hook.OnMirrors, hook.OnPacstrap}))
			Expect(runner.calls[0]).To(Equal([]string{"/p/tuner", "--info"}))
		})

		It("fails when --info exits non-zero", func() {
			runner.responses = []*exec.CommandResult{{ExitCode: 1, Stderr: "bad flag"}}
			runner.errs = []error{errors.New("exit status 1")}

			_, err := loader.Load(&config.PluginInstanceConfig{Path: "/p/tuner"})

			Expect(err).To(MatchError(plugin.ErrPluginInfoFailed))
		})

		It("fails on malformed info JSON", func() {
			runner.responses = []*exec.CommandResult{{Stdout: "not json"}}

			_, err := loader.Load(&config.PluginInstanceConfig{Path: "/p/tuner"})

			Expect(err).NotTo(Succeed())
		})
	})

	Describe("Invoke", func() {
		var p plugin.Plugin

		BeforeEach(func() {
			runner.responses = []*exec.CommandResult{{
				Stdout: infoJSON(pluginapi.Info{
					Name:  "tuner",
					Hooks: []string{"on_pacstrap"},
				}),
			}}

			loaded, err := loader.Load(&config.PluginInstanceConfig{
				Path:   "/p/tuner",
				Args:   []string{"--verbose"},
				Config: map[string]any{"extra": "zsh"},
			})

			Expect(err).NotTo(HaveOccurred())

			p = loaded
		})

		It("sends the request on stdin and parses the response", func() {
			runner.responses = append(runner.responses, &exec.CommandResult{
				Stdout: `{"value": ["base", "zsh"]}`,
			})

			out, err := p.Invoke(ctx, &hook.Call{
				Hook:  hook.OnPacstrap,
				Value: []string{"base"},
				Args:  map[string]any{"target": "/mnt"},
			})

			Expect(err).NotTo(HaveOccurred())
			Expect(hook.Strings(out)).To(Equal([]string{"base", "zsh"}))

			Expect(runner.calls[1]).To(Equal([]string{"/p/tuner", "--hook", "on_pacstrap", "--verbose"}))

			var req pluginapi.HookRequest
			Expect(json.Unmarshal([]byte(runner.stdins[1]), &req)).To(Succeed())
			Expect(req.Hook).To(Equal("on_pacstrap"))
			Expect(req.Args).To(HaveKeyWithValue("target", "/mnt"))
			Expect(req.Config).To(HaveKeyWithValue("extra", "zsh"))
		})

		It("treats a null response value as no change", func() {
			runner.responses = append(runner.responses, &exec.CommandResult{
				Stdout: `{"value": null}`,
			})

			out, err := p.Invoke(ctx, &hook.Call{Hook: hook.OnPacstrap, Value: []string{"base"}})

			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(BeNil())
		})

		It("treats empty stdout as no change", func() {
			runner.responses = append(runner.responses, &exec.CommandResult{Stdout: "\n"})

			out, err := p.Invoke(ctx, &hook.Call{Hook: hook.OnPacstrap, Value: []string{"base"}})

			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(BeNil())
		})

		It("fails on a non-zero exit code", func() {
			runner.responses = append(runner.responses, &exec.CommandResult{
				ExitCode: 2,
				Stderr:   "crashed",
			})
			runner.errs = []error{nil, errors.New("exit status 2")}

			_, err := p.Invoke(ctx, &hook.Call{Hook: hook.OnPacstrap, Value: []string{"base"}})

			Expect(err).To(MatchError(plugin.ErrPluginExecFailed))
		})

		It("skips hooks outside the capability table without executing", func() {
			out, err := p.Invoke(ctx, &hook.Call{Hook: hook.OnMirrors, Value: []string{"x"}})

			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(BeNil())
			Expect(runner.calls).To(HaveLen(1)) // only the --info call
		})
	})
})
