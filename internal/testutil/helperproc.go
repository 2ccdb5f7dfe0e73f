// Package testutil lets a test binary stand in for the gemini CLI.
//
// A test package calls RunHelperIfRequested from TestMain; when the helper
// environment variable is set the binary behaves like a fake CLI and exits
// instead of running tests.
package testutil

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"testing"
	"time"
)

// Environment variables read by the helper process.
const (
	EnvHelperMode    = "GEMINI_MCP_HELPER_MODE"
	EnvHelperPIDFile = "GEMINI_MCP_HELPER_PID_FILE"
	EnvHelperDelay   = "GEMINI_MCP_HELPER_DELAY"
)

// Helper modes.
const (
	// ModeEcho copies stdin to stdout.
	ModeEcho = "echo"
	// ModeOK prints "OK" without a trailing newline.
	ModeOK = "ok"
	// ModeFail prints "bad input" to stderr and exits 1.
	ModeFail = "fail"
	// ModeHang writes its PID to EnvHelperPIDFile and sleeps for a minute.
	ModeHang = "hang"
	// ModeLarge writes 1 MiB to stdout and to stderr, then exits 0.
	ModeLarge = "large"
	// ModeDetach prints "early", leaves a ModeLate child holding stdout and exits 0.
	ModeDetach = "detach"
	// ModeLate sleeps for EnvHelperDelay and prints "late".
	ModeLate = "late"
)

// DefaultHelperDelay is the ModeLate sleep when EnvHelperDelay is unset.
const DefaultHelperDelay = 2500 * time.Millisecond

// LargeOutputSize is the number of bytes ModeLarge writes to each stream.
const LargeOutputSize = 1 << 20

// RunHelperIfRequested turns the current process into a fake CLI when
// EnvHelperMode is set. It does not return in that case.
func RunHelperIfRequested() {
	mode := os.Getenv(EnvHelperMode)
	if mode == "" {
		return
	}
	os.Exit(runHelper(mode))
}

func runHelper(mode string) int {
	switch mode {
	case ModeEcho:
		if _, err := io.Copy(os.Stdout, os.Stdin); err != nil {
			fmt.Fprint(os.Stderr, err)
			return 2
		}
		return 0
	case ModeOK:
		_, _ = io.Copy(io.Discard, os.Stdin)
		fmt.Fprint(os.Stdout, "OK")
		return 0
	case ModeFail:
		_, _ = io.Copy(io.Discard, os.Stdin)
		fmt.Fprint(os.Stderr, "bad input")
		return 1
	case ModeHang:
		if path := os.Getenv(EnvHelperPIDFile); path != "" {
			if err := os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o600); err != nil {
				fmt.Fprint(os.Stderr, err)
				return 2
			}
		}
		fmt.Fprint(os.Stdout, "partial")
		time.Sleep(time.Minute)
		return 0
	case ModeLarge:
		_, _ = io.Copy(io.Discard, os.Stdin)
		chunk := strings.Repeat("x", LargeOutputSize)
		fmt.Fprint(os.Stdout, chunk)
		fmt.Fprint(os.Stderr, chunk)
		return 0
	case ModeDetach:
		_, _ = io.Copy(io.Discard, os.Stdin)
		self, err := os.Executable()
		if err != nil {
			fmt.Fprint(os.Stderr, err)
			return 2
		}
		child := exec.Command(self)
		child.Env = append(os.Environ(), EnvHelperMode+"="+ModeLate)
		child.Stdout = os.Stdout
		child.Stderr = os.Stderr
		if err := child.Start(); err != nil {
			fmt.Fprint(os.Stderr, err)
			return 2
		}
		fmt.Fprint(os.Stdout, "early\n")
		return 0
	case ModeLate:
		delay := DefaultHelperDelay
		if raw := os.Getenv(EnvHelperDelay); raw != "" {
			parsed, err := time.ParseDuration(raw)
			if err != nil {
				fmt.Fprint(os.Stderr, err)
				return 2
			}
			delay = parsed
		}
		time.Sleep(delay)
		fmt.Fprint(os.Stdout, "late\n")
		return 0
	default:
		fmt.Fprintf(os.Stderr, "unknown helper mode %q", mode)
		return 2
	}
}

// HelperCommand returns the path of the running test binary.
func HelperCommand(t testing.TB) string {
	t.Helper()
	path, err := os.Executable()
	if err != nil {
		t.Fatalf("resolve test executable: %v", err)
	}
	return path
}

// ReadPID waits up to timeout for the helper to write its PID file.
func ReadPID(t testing.TB, path string, timeout time.Duration) int {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for {
		data, err := os.ReadFile(path)
		if err == nil && len(data) > 0 {
			pid, convErr := strconv.Atoi(strings.TrimSpace(string(data)))
			if convErr != nil {
				t.Fatalf("parse pid file %s: %v", path, convErr)
			}
			return pid
		}
		if time.Now().After(deadline) {
			t.Fatalf("pid file %s not written: %v", path, err)
		}
		time.Sleep(10 * time.Millisecond)
	}
}
