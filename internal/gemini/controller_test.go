package gemini

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os/exec"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codex-k8s/gemini-check-mcp-server/internal/executil"
)

type fakeLauncher struct {
	mu     sync.Mutex
	calls  []executil.Spec
	result executil.Result
	err    error
	block  bool
	panic  any
}

func (f *fakeLauncher) Launch(ctx context.Context, spec executil.Spec) (executil.Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, spec)
	f.mu.Unlock()
	if f.panic != nil {
		panic(f.panic)
	}
	if f.block {
		<-ctx.Done()
		return executil.Result{Stdout: []byte("partial"), ExitCode: -1}, ctx.Err()
	}
	return f.result, f.err
}

func (f *fakeLauncher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func newTestController(l executil.Launcher) *Controller {
	c := New()
	c.Launcher = l
	return c
}

func TestInvokeEmptyPromptDoesNotSpawn(t *testing.T) {
	for _, prompt := range []string{"", " ", "\t\n", "\r\n  "} {
		for _, content := range []string{"", "some content"} {
			launcher := &fakeLauncher{}
			got := newTestController(launcher).Check(context.Background(), prompt, content)
			assert.Equal(t, "Error: prompt cannot be empty", got)
			assert.Zero(t, launcher.callCount())
		}
	}
}

func TestInvokeWritesComposedPayload(t *testing.T) {
	cases := []struct {
		prompt  string
		content string
		want    string
	}{
		{"Review this", "def f(): pass", "Review this\n\nContent:\ndef f(): pass"},
		{"  padded prompt  ", "", "  padded prompt  \n\nContent:\n"},
		{"multi\nline", "a\nb\n", "multi\nline\n\nContent:\na\nb\n"},
	}
	for _, tc := range cases {
		launcher := &fakeLauncher{}
		newTestController(launcher).Invoke(context.Background(), tc.prompt, tc.content)
		require.Equal(t, 1, launcher.callCount())
		spec := launcher.calls[0]
		assert.Equal(t, tc.want, string(spec.Stdin))
		assert.Equal(t, "gemini", spec.Command)
		assert.Empty(t, spec.Args)
	}
}

func TestInvokeSuccessReturnsStdoutVerbatim(t *testing.T) {
	launcher := &fakeLauncher{result: executil.Result{Stdout: []byte("OK"), ExitCode: 0}}
	assert.Equal(t, "OK", newTestController(launcher).Check(context.Background(), "p", "c"))

	launcher = &fakeLauncher{result: executil.Result{Stdout: []byte("  spaced\n\n"), ExitCode: 0}}
	outcome := newTestController(launcher).Invoke(context.Background(), "p", "c")
	assert.Equal(t, KindSuccess, outcome.Kind)
	assert.Equal(t, "  spaced\n\n", outcome.String())
}

func TestInvokeNonZeroExitEmbedsStderr(t *testing.T) {
	launcher := &fakeLauncher{result: executil.Result{Stdout: []byte("ignored"), Stderr: []byte("bad input"), ExitCode: 1}}
	outcome := newTestController(launcher).Invoke(context.Background(), "p", "c")
	assert.Equal(t, KindNonZeroExit, outcome.Kind)
	assert.Equal(t, 1, outcome.ExitCode)
	assert.Equal(t, "Error calling gemini tool: bad input", outcome.String())
}

func TestInvokeExecutableNotFound(t *testing.T) {
	for _, err := range []error{
		&exec.Error{Name: "gemini", Err: exec.ErrNotFound},
		fmt.Errorf("run gemini: %w", &fs.PathError{Op: "fork/exec", Path: "/nope/gemini", Err: fs.ErrNotExist}),
	} {
		launcher := &fakeLauncher{err: err, result: executil.Result{ExitCode: -1}}
		got := newTestController(launcher).Check(context.Background(), "p", "c")
		assert.Equal(t, "Error: 'gemini' CLI tool not found. Please ensure it is installed and in PATH", got)
	}
}

func TestInvokeUnexpectedError(t *testing.T) {
	launcher := &fakeLauncher{err: errors.New("broken pipe"), result: executil.Result{ExitCode: -1}}
	got := newTestController(launcher).Check(context.Background(), "p", "c")
	assert.Equal(t, "Unexpected error: broken pipe", got)
}

func TestInvokeRecoversLauncherPanic(t *testing.T) {
	launcher := &fakeLauncher{panic: "boom"}
	outcome := newTestController(launcher).Invoke(context.Background(), "p", "c")
	assert.Equal(t, KindUnexpected, outcome.Kind)
	assert.Equal(t, "Unexpected error: boom", outcome.String())
}

func TestInvokeTimeoutDiscardsPartialOutput(t *testing.T) {
	launcher := &fakeLauncher{block: true}
	c := newTestController(launcher)
	c.Timeout = 50 * time.Millisecond

	start := time.Now()
	outcome := c.Invoke(context.Background(), "p", "c")
	assert.Equal(t, KindTimeout, outcome.Kind)
	assert.Equal(t, 50*time.Millisecond, outcome.After)
	assert.Empty(t, outcome.Output)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestInvokeDefaultTimeoutMessage(t *testing.T) {
	assert.Equal(t, 30*time.Second, New().Timeout)
	assert.Equal(t, "Error: Gemini request timed out after 30 seconds", Timeout(DefaultTimeout).String())
}

func TestInvokeCallerCancellationIsUnexpected(t *testing.T) {
	launcher := &fakeLauncher{block: true}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	outcome := newTestController(launcher).Invoke(ctx, "p", "c")
	assert.Equal(t, KindUnexpected, outcome.Kind)
	assert.Equal(t, "Unexpected error: context canceled", outcome.String())
}

func TestInvokePayloadTooLarge(t *testing.T) {
	launcher := &fakeLauncher{}
	c := newTestController(launcher)
	c.MaxPayloadBytes = 16

	outcome := c.Invoke(context.Background(), "p", "0123456789abcdef")
	assert.Equal(t, KindPayloadTooLarge, outcome.Kind)
	assert.Equal(t, "Error: payload exceeds 16 byte limit", outcome.String())
	assert.Zero(t, launcher.callCount())

	c.MaxPayloadBytes = 0
	outcome = c.Invoke(context.Background(), "p", "0123456789abcdef")
	assert.Equal(t, KindSuccess, outcome.Kind)
	assert.Equal(t, 1, launcher.callCount())
}

func TestInvokeIsRepeatable(t *testing.T) {
	launcher := &fakeLauncher{result: executil.Result{Stdout: []byte("same"), ExitCode: 0}}
	c := newTestController(launcher)

	first := c.Invoke(context.Background(), "p", "c")
	second := c.Invoke(context.Background(), "p", "c")
	assert.Equal(t, first, second)
	assert.Equal(t, 2, launcher.callCount())
	assert.Equal(t, launcher.calls[0], launcher.calls[1])
}

func TestInvokeZeroValueControllerUsesDefaults(t *testing.T) {
	launcher := &fakeLauncher{result: executil.Result{Stdout: []byte("ok")}}
	c := &Controller{Launcher: launcher}
	assert.Equal(t, "ok", c.Check(context.Background(), "p", ""))
	assert.Equal(t, DefaultCommand, launcher.calls[0].Command)
}

func TestInvokeParentDeadlineIsNotTimeout(t *testing.T) {
	launcher := &fakeLauncher{block: true}
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	outcome := newTestController(launcher).Invoke(ctx, "p", "c")
	assert.Equal(t, KindUnexpected, outcome.Kind)
	assert.Equal(t, "Unexpected error: context deadline exceeded", outcome.String())
}

func TestPayloadSizeMatchesComposedPayload(t *testing.T) {
	for _, tc := range [][2]string{{"p", ""}, {"Review this", "def f(): pass"}, {"", "x\ny"}, {"ünïcode", "✓"}} {
		assert.Equal(t, len(ComposePayload(tc[0], tc[1])), PayloadSize(tc[0], tc[1]))
	}
}
