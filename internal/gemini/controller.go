package gemini

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os/exec"
	"strings"
	"time"

	"github.com/codex-k8s/gemini-check-mcp-server/internal/executil"
)

const (
	// DefaultCommand is the executable resolved via PATH.
	DefaultCommand = "gemini"
	// DefaultTimeout is the hard deadline for a single invocation.
	DefaultTimeout = 30 * time.Second
	// DefaultMaxPayloadBytes caps the composed payload.
	DefaultMaxPayloadBytes = 4 << 20
)

// Controller forwards prompt and content to the gemini CLI.
type Controller struct {
	// Launcher starts the external process.
	Launcher executil.Launcher
	// Command overrides DefaultCommand.
	Command string
	// Timeout overrides DefaultTimeout.
	Timeout time.Duration
	// MaxPayloadBytes caps the payload size; zero or negative disables the cap.
	MaxPayloadBytes int
}

// New returns a Controller backed by real OS processes.
func New() *Controller {
	return &Controller{
		Launcher:        executil.Exec{},
		Command:         DefaultCommand,
		Timeout:         DefaultTimeout,
		MaxPayloadBytes: DefaultMaxPayloadBytes,
	}
}

const contentSeparator = "\n\nContent:\n"

// errDeadline marks expiry of the invocation's own deadline.
var errDeadline = errors.New("gemini deadline exceeded")

// ComposePayload joins prompt and content in the framing the CLI expects.
func ComposePayload(prompt, content string) string {
	return prompt + contentSeparator + content
}

// PayloadSize returns len(ComposePayload(prompt, content)) without building it.
func PayloadSize(prompt, content string) int {
	return len(prompt) + len(contentSeparator) + len(content)
}

// Check runs Invoke and renders the outcome as text.
func (c *Controller) Check(ctx context.Context, prompt, content string) string {
	return c.Invoke(ctx, prompt, content).String()
}

// Invoke runs the CLI once and classifies the result. It never panics and
// never returns before a spawned process has exited or been killed.
func (c *Controller) Invoke(ctx context.Context, prompt, content string) (out Outcome) {
	if strings.TrimSpace(prompt) == "" {
		return EmptyPrompt()
	}

	if c.MaxPayloadBytes > 0 && PayloadSize(prompt, content) > c.MaxPayloadBytes {
		return PayloadTooLarge(c.MaxPayloadBytes)
	}
	payload := ComposePayload(prompt, content)

	defer func() {
		if r := recover(); r != nil {
			out = Unexpected(fmt.Errorf("%v", r))
		}
	}()

	launcher := c.Launcher
	if launcher == nil {
		launcher = executil.Exec{}
	}
	command := c.Command
	if command == "" {
		command = DefaultCommand
	}
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	runCtx, cancel := context.WithTimeoutCause(ctx, timeout, errDeadline)
	defer cancel()

	result, err := launcher.Launch(runCtx, executil.Spec{
		Command: command,
		Stdin:   []byte(payload),
	})
	if err != nil {
		return classify(runCtx, err, timeout)
	}
	if result.ExitCode != 0 {
		return NonZeroExit(result.ExitCode, string(result.Stderr))
	}
	return Success(string(result.Stdout))
}

func classify(runCtx context.Context, err error, timeout time.Duration) Outcome {
	switch {
	case errors.Is(context.Cause(runCtx), errDeadline):
		return Timeout(timeout)
	case errors.Is(err, exec.ErrNotFound), errors.Is(err, fs.ErrNotExist):
		return NotFound()
	default:
		return Unexpected(err)
	}
}
