package executil

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
)

// Spec describes a single process invocation.
type Spec struct {
	// Command is the executable name or path.
	Command string
	// Args are command arguments.
	Args []string
	// Env adds environment variables on top of the current environment.
	Env map[string]string
	// Stdin is written to the process input and then closed.
	Stdin []byte
}

// Result holds captured process output.
type Result struct {
	// Stdout is the full standard output.
	Stdout []byte
	// Stderr is the full standard error.
	Stderr []byte
	// ExitCode is the process exit code, -1 when unknown or killed.
	ExitCode int
}

// Launcher starts a process and waits for it to finish.
type Launcher interface {
	// Launch runs the process described by spec. A non-zero exit is reported
	// through Result.ExitCode, not as an error. When ctx ends first the
	// process is killed and reaped and ctx.Err() is returned.
	Launch(ctx context.Context, spec Spec) (Result, error)
}

// Exec launches real OS processes.
//
// Output is read until both streams reach EOF, even when descendants of the
// process keep them open after it exits; only ctx bounds the wait.
type Exec struct{}

// BuildCommand builds an exec.Cmd for spec.
func BuildCommand(ctx context.Context, spec Spec) (*exec.Cmd, error) {
	if spec.Command == "" {
		return nil, errors.New("command is empty")
	}
	cmd := exec.CommandContext(ctx, spec.Command, spec.Args...)
	if len(spec.Env) > 0 {
		cmd.Env = os.Environ()
		for key, value := range spec.Env {
			cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", key, value))
		}
	}
	return cmd, nil
}

type pipes struct {
	stdinR, stdinW   *os.File
	stdoutR, stdoutW *os.File
	stderrR, stderrW *os.File
}

func openPipes() (*pipes, error) {
	p := &pipes{}
	var err error
	if p.stdinR, p.stdinW, err = os.Pipe(); err != nil {
		return nil, fmt.Errorf("stdin pipe: %w", err)
	}
	if p.stdoutR, p.stdoutW, err = os.Pipe(); err != nil {
		p.close()
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	if p.stderrR, p.stderrW, err = os.Pipe(); err != nil {
		p.close()
		return nil, fmt.Errorf("stderr pipe: %w", err)
	}
	return p, nil
}

// closeChildEnds releases the descriptors handed to the process.
func (p *pipes) closeChildEnds() {
	closeFiles(p.stdinR, p.stdoutW, p.stderrW)
}

// close releases every descriptor; it unblocks pending reads and writes.
func (p *pipes) close() {
	closeFiles(p.stdinR, p.stdinW, p.stdoutR, p.stdoutW, p.stderrR, p.stderrW)
}

func closeFiles(files ...*os.File) {
	for _, f := range files {
		if f != nil {
			_ = f.Close()
		}
	}
}

// Launch runs spec with stdin fed from spec.Stdin and both output streams captured.
func (e Exec) Launch(ctx context.Context, spec Spec) (Result, error) {
	cmd, err := BuildCommand(ctx, spec)
	if err != nil {
		return Result{ExitCode: -1}, err
	}
	p, err := openPipes()
	if err != nil {
		return Result{ExitCode: -1}, err
	}
	defer p.close()

	cmd.Stdin = p.stdinR
	cmd.Stdout = p.stdoutW
	cmd.Stderr = p.stderrW
	err = cmd.Start()
	p.closeChildEnds()
	if err != nil {
		return Result{ExitCode: -1}, fmt.Errorf("run %s: %w", spec.Command, err)
	}

	var stdout, stderr bytes.Buffer
	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		_, _ = p.stdinW.Write(spec.Stdin)
		_ = p.stdinW.Close()
	}()
	go func() {
		defer wg.Done()
		_, _ = io.Copy(&stdout, p.stdoutR)
	}()
	go func() {
		defer wg.Done()
		_, _ = io.Copy(&stderr, p.stderrR)
	}()

	waitErr := cmd.Wait()

	streamsDone := make(chan struct{})
	go func() {
		wg.Wait()
		close(streamsDone)
	}()
	interrupted := false
	select {
	case <-streamsDone:
	case <-ctx.Done():
		interrupted = true
		p.close()
		<-streamsDone
	}

	result := Result{Stdout: stdout.Bytes(), Stderr: stderr.Bytes(), ExitCode: -1}
	if cmd.ProcessState != nil {
		result.ExitCode = cmd.ProcessState.ExitCode()
	}
	if interrupted {
		return result, ctx.Err()
	}
	if waitErr == nil {
		return result, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return result, ctxErr
	}

	var exitErr *exec.ExitError
	if errors.As(waitErr, &exitErr) {
		return result, nil
	}
	return result, fmt.Errorf("run %s: %w", spec.Command, waitErr)
}
