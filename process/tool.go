package process

import (
	"context"
	"os/exec"
	"time"

	apperrors "github.com/kbukum/speakerid/errors"
	"github.com/kbukum/speakerid/provider"
)

var (
	_ provider.RequestResponse[Command, *Result] = (*Tool)(nil)
	_ provider.RequestResponse[string, float64]  = (*Call[string, float64])(nil)
)

// ToolConfig binds a binary to per-run defaults.
type ToolConfig struct {
	// Name defaults to Binary.
	Name        string        `yaml:"name,omitempty" mapstructure:"name"`
	Binary      string        `yaml:"binary" mapstructure:"binary"`
	Timeout     time.Duration `yaml:"timeout,omitempty" mapstructure:"timeout"`
	GracePeriod time.Duration `yaml:"grace_period,omitempty" mapstructure:"grace_period"`
}

// Tool runs commands against one configured binary.
type Tool struct {
	cfg ToolConfig
}

func NewTool(cfg ToolConfig) *Tool {
	if cfg.Name == "" {
		cfg.Name = cfg.Binary
	}
	return &Tool{cfg: cfg}
}

func (t *Tool) Name() string { return t.cfg.Name }

// IsAvailable reports whether the binary resolves on PATH.
func (t *Tool) IsAvailable(context.Context) bool {
	_, err := exec.LookPath(t.cfg.Binary)
	return err == nil
}

// Execute runs cmd with the tool's binary, grace period, and timeout
// filled in where cmd leaves them unset.
func (t *Tool) Execute(ctx context.Context, cmd Command) (*Result, error) {
	if cmd.Binary == "" {
		cmd.Binary = t.cfg.Binary
	}
	if cmd.GracePeriod == 0 {
		cmd.GracePeriod = t.cfg.GracePeriod
	}
	if t.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.cfg.Timeout)
		defer cancel()
	}
	return Run(ctx, cmd)
}

// Call is a typed provider over a Tool: build maps the input to a command
// and parse reads the output.
type Call[I, O any] struct {
	name  string
	tool  *Tool
	build func(I) Command
	parse func(*Result) (O, error)
}

func NewCall[I, O any](name string, tool *Tool, build func(I) Command, parse func(*Result) (O, error)) *Call[I, O] {
	return &Call[I, O]{name: name, tool: tool, build: build, parse: parse}
}

func (c *Call[I, O]) Name() string { return c.name }
func (c *Call[I, O]) IsAvailable(ctx context.Context) bool { return c.tool.IsAvailable(ctx) }

// Execute runs the tool. Failures come back as EXTERNAL_SERVICE_ERROR with
// the stderr tail in the details.
func (c *Call[I, O]) Execute(ctx context.Context, in I) (O, error) {
	var zero O
	res, err := c.tool.Execute(ctx, c.build(in))
	if err != nil {
		appErr := apperrors.ExternalServiceError(c.name, err)
		if tail := res.StderrTail(3); tail != "" {
			appErr = appErr.WithDetail("stderr", tail)
		}
		return zero, appErr
	}
	return c.parse(res)
}
